package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/huzilerz/session-core/infra/log/slogx"
	"github.com/huzilerz/session-core/internal/client/api"
	"github.com/huzilerz/session-core/internal/crosstab"
	"github.com/huzilerz/session-core/internal/model"
)

// single-flight operation kind ; refresh and workspace switch
// are independent kinds and MAY overlap: they touch disjoint
// session fields
const kindRefresh = "refresh"

// Login: idle|error → loading → authenticated | error.
func (s *Store) Login(ctx context.Context, creds model.Credentials) error {
	s.setLoading()
	gen := s.generation()

	res, err := s.client.Login(ctx, creds)
	if err != nil {
		s.setError(gen, err)
		return err
	}
	return s.adopt(ctx, gen, res, true)
}

// Register: same transitions as Login.
func (s *Store) Register(ctx context.Context, reg model.Registration) error {
	s.setLoading()
	gen := s.generation()

	res, err := s.client.Register(ctx, reg)
	if err != nil {
		s.setError(gen, err)
		return err
	}
	return s.adopt(ctx, gen, res, true)
}

// Logout: authenticated → idle. The local clear is synchronous
// and wins over any in-flight refresh: the generation bump makes
// the refresh's eventual resolution a discarded stale result.
// Server-side revocation and cache clears follow, best effort.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	userID := s.clearLocked()
	s.mu.Unlock()

	if err := s.client.Logout(ctx); err != nil {
		s.logs.DebugContext(ctx, "session: server-side logout failed",
			"error", err,
		)
	}
	if s.workspaces != nil {
		s.workspaces.Leave(ctx)
	}
	if s.entitlements != nil && userID != 0 {
		s.entitlements.Invalidate(ctx, userID)
	}
	s.publish(ctx, crosstab.Event{Type: crosstab.EventLogout})
}

// RefreshSafe regenerates the access token through the
// single-flight ticket: however many callers detect an expired
// token at once, exactly one network call is made and every
// caller receives the identical outcome.
//
// Refresh failure is terminal for the session — a session that
// cannot refresh cannot be trusted to remain authenticated —
// and forces logout with a [session-expired] broadcast.
func (s *Store) RefreshSafe(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusAuthenticated {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	gen := s.gen
	s.mu.Unlock()

	res, err := s.refresh.Do(ctx, kindRefresh, func(ctx context.Context) (*api.TokenResult, error) {
		return s.client.Refresh(ctx)
	})

	if err != nil {
		if s.sameGen(gen) {
			s.expire(ctx)
		}
		return err
	}

	return s.applyToken(ctx, gen, res)
}

// RestoreSession attempts exactly one refresh at boot, then
// workspace restoration, then an entitlement warm-up. Failure
// leaves the state [idle] silently — the expected, non-error
// outcome for a never-logged-in visitor.
func (s *Store) RestoreSession(ctx context.Context) error {
	s.setLoading()
	gen := s.generation()

	res, err := s.refresh.Do(ctx, kindRefresh, func(ctx context.Context) (*api.TokenResult, error) {
		return s.client.Refresh(ctx)
	})
	if err != nil {
		s.idle(gen)
		return nil
	}

	claims, err := s.codec.Decode(res.Token)
	if err != nil {
		// undecodable token == "no session" ; fail open to
		// logged-out, never closed to an error state
		s.idle(gen)
		return nil
	}

	grant := s.grantOf(res.Token, res.ExpiresIn, claims)
	user := &model.User{
		ID:       claims.UserID,
		Email:    claims.Email,
		Username: claims.Username,
	}
	res.User.Apply(user)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil // stale
	}
	s.gen++
	gen = s.gen
	s.status = StatusAuthenticated
	s.user = user
	s.grant = grant
	s.claims = claims
	s.lastError = ""
	s.initialized = true
	s.touchLocked()
	s.mu.Unlock()

	s.logs.InfoContext(ctx, "session: restored",
		"user_id", claims.UserID,
		"token", slogx.DeferValue(func() slog.Value {
			return slogx.Token(res.Token)
		}),
	)

	// durable workspace id, if any ; one guarded switch call
	if s.workspaces != nil {
		restored, err := s.workspaces.Restore(ctx)
		if err == nil && restored != nil {
			s.mu.Lock()
			if s.gen == gen {
				s.workspace = restored
			}
			s.mu.Unlock()
		}
	}

	s.warmEntitlements(ctx, claims.Subscription, user.ID)
	return nil
}

// PatchUser mutates the listed identity fields of an
// authenticated session. No-op otherwise.
func (s *Store) PatchUser(patch model.UserPatch) {
	if patch.Zero() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusAuthenticated || s.user == nil {
		return
	}
	patch.Apply(s.user)
	s.touchLocked()
}

// AutoRefresh proactively renews the token slightly before its
// expiry until [ctx] is done. Single-flight makes it safe to
// run alongside on-demand refreshes.
func (s *Store) AutoRefresh(ctx context.Context) {
	const idlePoll = time.Minute
	for {
		wait := idlePoll
		s.mu.Lock()
		if s.status == StatusAuthenticated && s.grant != nil && s.grant.Expires != nil {
			until := s.grant.Expires.Sub(s.clock.Now()) - s.codec.Skew()
			if until < time.Second {
				until = time.Second
			}
			if until < wait {
				wait = until
			}
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		s.mu.Lock()
		due := s.status == StatusAuthenticated &&
			s.grant.Verify(s.clock.Now(), s.codec.Skew()) != nil
		s.mu.Unlock()

		if due {
			if err := s.RefreshSafe(ctx); err != nil {
				s.logs.WarnContext(ctx, "session: proactive refresh failed",
					"error", err,
				)
			}
		}
	}
}

// generation returns the current session generation.
func (s *Store) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// idle resolves a failed boot / restore to [idle] ; guarded.
func (s *Store) idle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return // stale
	}
	s.status = StatusIdle
	s.user = nil
	s.grant = nil
	s.claims = nil
	s.lastError = ""
	s.initialized = true
}

// expire force-logs-out after a terminal refresh failure and
// tells sibling surfaces why.
func (s *Store) expire(ctx context.Context) {
	s.mu.Lock()
	userID := s.clearLocked()
	s.mu.Unlock()

	if s.workspaces != nil {
		s.workspaces.Leave(ctx)
	}
	if s.entitlements != nil && userID != 0 {
		s.entitlements.Invalidate(ctx, userID)
	}
	s.publish(ctx, crosstab.Event{Type: crosstab.EventSessionExpired})
}

// adopt applies a login / register result ; [broadcastLogin]
// tells sibling surfaces to hydrate from the event payload.
func (s *Store) adopt(ctx context.Context, gen uint64, res *api.AuthResult, broadcastLogin bool) error {
	claims, err := s.codec.Decode(res.Token)
	if err != nil {
		s.setError(gen, err)
		return err
	}
	grant := s.grantOf(res.Token, res.ExpiresIn, claims)
	user := res.User.Clone()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil // stale
	}
	s.gen++
	s.status = StatusAuthenticated
	s.user = user
	s.grant = grant
	s.claims = claims
	s.available = res.Workspaces
	s.workspace = res.Workspace.Clone()
	s.lastError = ""
	s.initialized = true
	s.touchLocked()
	s.mu.Unlock()

	if broadcastLogin {
		s.publish(ctx, crosstab.Event{
			Type: crosstab.EventLogin,
			Session: &crosstab.SessionPayload{
				User:      *user,
				Token:     res.Token,
				ExpiresAt: claims.ExpiresAt,
			},
			Workspace: res.Workspace,
		})
	}

	s.warmEntitlements(ctx, claims.Subscription, user.ID)
	return nil
}

// applyToken applies a refresh result in place: token & claims
// replaced, user patched if the payload says so, workspace
// context untouched — workspace scope is independent of token
// lifetime. Discarded when the session generation moved on.
func (s *Store) applyToken(ctx context.Context, gen uint64, res *api.TokenResult) error {
	claims, err := s.codec.Decode(res.Token)
	if err != nil {
		// a successful refresh with an undecodable token is a
		// broken session ; same terminal handling as failure
		if s.sameGen(gen) {
			s.expire(ctx)
		}
		return err
	}
	grant := s.grantOf(res.Token, res.ExpiresIn, claims)

	s.mu.Lock()
	if s.gen != gen || s.status != StatusAuthenticated {
		s.mu.Unlock()
		return nil // stale result discard
	}
	s.grant = grant
	s.claims = claims
	res.User.Apply(s.user)
	s.touchLocked()
	userID := s.user.ID
	s.mu.Unlock()

	s.publish(ctx, crosstab.Event{
		Type: crosstab.EventTokenRefreshed,
		Session: &crosstab.SessionPayload{
			Token:     res.Token,
			ExpiresAt: claims.ExpiresAt,
		},
	})

	s.warmEntitlements(ctx, claims.Subscription, userID)
	return nil
}

// warmEntitlements reconciles the capability cache against the
// version hash now carried by the claims. Failures degrade
// inside the cache ; nothing here may block a render path.
func (s *Store) warmEntitlements(ctx context.Context, claims *model.SubscriptionClaims, userID int64) {
	if s.entitlements == nil || claims == nil {
		return
	}
	if _, err := s.entitlements.Get(ctx, claims, userID); err != nil {
		s.logs.WarnContext(ctx, "session: entitlement warm-up failed",
			"user_id", userID,
			"error", err,
		)
	}
}

// grantOf builds the in-memory grant, preferring the explicit
// [expiresIn] lifetime and falling back to the [exp] claim.
func (s *Store) grantOf(bearer string, expiresIn int64, claims *model.Claims) *model.AccessToken {
	grant := model.NewAccessToken(bearer, expiresIn, s.clock)
	if grant != nil && grant.Expires == nil {
		if exp := claims.Expires(); !exp.IsZero() {
			grant.Expires = &exp
		}
	}
	return grant
}
