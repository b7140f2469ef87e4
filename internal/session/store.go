// Package session owns the authoritative in-memory session:
// identity, token grant, subscription claims, workspace
// context and lifecycle flags, with explicit transitions
// between them. One Store per composition root ; tests
// instantiate isolated stores, there is no ambient global.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/huzilerz/session-core/internal/client/api"
	"github.com/huzilerz/session-core/internal/crosstab"
	"github.com/huzilerz/session-core/internal/entitlement"
	"github.com/huzilerz/session-core/internal/errors"
	"github.com/huzilerz/session-core/internal/flight"
	"github.com/huzilerz/session-core/internal/model"
	"github.com/huzilerz/session-core/internal/token"
	"github.com/huzilerz/session-core/internal/workspace"
)

// Session lifecycle status ; mutually exclusive.
type Status string

const (
	StatusIdle          Status = "idle"
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusError         Status = "error"
)

// Indicates an operation that requires an authenticated session
var ErrNotAuthenticated = errors.Unauthorized(
	errors.ID("session.not_authenticated"),
	errors.Message("session: not authenticated"),
)

// Indicates a locally rejected workspace switch: the target id
// is not among the caller's known-available workspaces, so no
// network call was issued. Distinguishable from server-side
// denial codes by [ID].
var ErrWorkspaceUnavailable = errors.Forbidden(
	errors.ID("workspace.unavailable"),
	errors.Status(errors.StatusAccessDenied),
	errors.Message("session: workspace is not available to this account"),
)

// API. Backend operations the store delegates to.
type API interface {
	Login(ctx context.Context, creds model.Credentials) (*api.AuthResult, error)
	Register(ctx context.Context, reg model.Registration) (*api.AuthResult, error)
	Refresh(ctx context.Context) (*api.TokenResult, error)
	Logout(ctx context.Context) error
}

// StoreOptions. Constructor injected collaborators.
type StoreOptions struct {
	fx.In

	Logs         *slog.Logger
	Client       API
	Codec        *token.Codec
	Workspaces   *workspace.Tracker
	Entitlements *entitlement.Cache
	Broadcast    *crosstab.Synchronizer `optional:"true"`
	Clock        model.Clock            `optional:"true"`
}

// Store. The single mutable session root.
type Store struct {
	logs         *slog.Logger
	client       API
	codec        *token.Codec
	workspaces   *workspace.Tracker
	entitlements *entitlement.Cache
	broadcast    *crosstab.Synchronizer
	clock        model.Clock

	refresh flight.Group[*api.TokenResult]

	mu sync.Mutex
	// gen is the session generation: bumped on every login and
	// logout. In-flight operations capture it before suspending
	// and their results are discarded on mismatch — a slow
	// refresh can never resurrect a logged-out session.
	gen          uint64
	status       Status
	user         *model.User
	grant        *model.AccessToken
	claims       *model.Claims
	workspace    *model.WorkspaceContext
	available    []model.WorkspaceSummary
	lastActivity time.Time
	initialized  bool
	lastError    string
}

func NewStore(opts StoreOptions) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.Errorf("session: backend client required")
	}
	if opts.Codec == nil {
		opts.Codec = token.InsecureCodec()
	}
	if opts.Clock == nil {
		opts.Clock = model.LocalTime
	}
	if opts.Logs == nil {
		opts.Logs = slog.Default()
	}
	return &Store{
		logs:         opts.Logs,
		client:       opts.Client,
		codec:        opts.Codec,
		workspaces:   opts.Workspaces,
		entitlements: opts.Entitlements,
		broadcast:    opts.Broadcast,
		clock:        opts.Clock,
		status:       StatusIdle,
	}, nil
}

// Snapshot. Immutable copy of the session state.
// Invariant: Status == authenticated ⇔ Token ≠ nil ∧ User ≠ nil.
type Snapshot struct {
	Status       Status
	User         *model.User
	Token        *model.AccessToken
	Claims       *model.Claims
	Workspace    *model.WorkspaceContext
	Workspaces   []model.WorkspaceSummary
	LastActivity time.Time
	Initialized  bool
	LastError    string
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Status:       s.status,
		User:         s.user.Clone(),
		Token:        s.grant.Clone(),
		Claims:       s.claims.Clone(),
		Workspace:    s.workspace.Clone(),
		Workspaces:   append([]model.WorkspaceSummary(nil), s.available...),
		LastActivity: s.lastActivity,
		Initialized:  s.initialized,
		LastError:    s.lastError,
	}
}

// Status of the session.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// HasPermission reports whether the active workspace membership
// grants [perm]. Never throws: returns false on a nil context ;
// render-path safe.
func (s *Store) HasPermission(perm string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspace.HasPermission(perm)
}

// Can reports whether the plan entitlements enable [feature].
// Memory-tier read only ; false whenever the session or the
// cache has nothing to say.
func (s *Store) Can(feature string) bool {
	s.mu.Lock()
	userID := int64(0)
	if s.status == StatusAuthenticated && s.user != nil {
		userID = s.user.ID
	}
	s.mu.Unlock()
	if userID == 0 || s.entitlements == nil {
		return false
	}
	return s.entitlements.Can(userID, feature)
}

// BearerToken exposes the current grant to the HTTP layer.
// [api.Credentials]
func (s *Store) BearerToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grant == nil {
		return ""
	}
	return s.grant.Token
}

// WorkspaceID exposes the active workspace id to the HTTP
// layer's per-request header contract. [api.Credentials]
func (s *Store) WorkspaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workspace == nil {
		return ""
	}
	return s.workspace.ID
}

var _ api.Credentials = (*Store)(nil)

// setLoading transitions to [loading]: identity fields cleared.
func (s *Store) setLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusLoading
	s.user = nil
	s.grant = nil
	s.claims = nil
	s.lastError = ""
}

// setError transitions to [error]: message retained, all
// identity fields cleared. [gen] guards against a state that
// already moved on.
func (s *Store) setError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return // stale
	}
	s.status = StatusError
	s.user = nil
	s.grant = nil
	s.claims = nil
	if fault, ok := errors.FromError(err); ok && fault != nil {
		s.lastError = fault.String()
	} else if err != nil {
		s.lastError = err.Error()
	}
}

// clearLocked resets to [idle] and bumps the generation ;
// s.mu MUST be held.
func (s *Store) clearLocked() (userID int64) {
	if s.user != nil {
		userID = s.user.ID
	}
	s.gen++
	s.status = StatusIdle
	s.user = nil
	s.grant = nil
	s.claims = nil
	s.workspace = nil
	s.available = nil
	s.lastError = ""
	return // userID?
}

// sameGen reports whether the session identity is unchanged.
func (s *Store) sameGen(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// touchLocked records activity ; s.mu MUST be held.
func (s *Store) touchLocked() {
	s.lastActivity = s.clock.Now()
}

// publish broadcasts [event] to sibling surfaces, best effort.
func (s *Store) publish(ctx context.Context, event crosstab.Event) {
	if s.broadcast == nil {
		return
	}
	_ = s.broadcast.Broadcast(ctx, event)
}
