package session

import (
	"context"
	"slices"

	"github.com/huzilerz/session-core/internal/crosstab"
	"github.com/huzilerz/session-core/internal/model"
)

// SwitchWorkspace makes [id] the active tenant scope.
// The highest-risk operation in the core: it changes request
// scoping without re-issuing the token. Protocol:
//
//  1. local validation against the known-available list ; a
//     miss is rejected WITHOUT a network call ;
//  2. previous context snapshotted for rollback ;
//  3. the switch call (single-flight per target id) ; the
//     response membership is the only source of truth for
//     workspace permissions ;
//  4. structured failure → exact rollback, code intact ;
//  5. success → atomic replace, durable persist, broadcast.
func (s *Store) SwitchWorkspace(ctx context.Context, id string) (*model.WorkspaceContext, error) {

	if s.workspaces == nil {
		return nil, ErrWorkspaceUnavailable
	}

	s.mu.Lock()
	if s.status != StatusAuthenticated {
		s.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	// validate locally -if- the available list is known ; an
	// empty list (restored session) defers to the server
	if len(s.available) > 0 && !slices.ContainsFunc(s.available,
		func(w model.WorkspaceSummary) bool { return w.ID == id },
	) {
		s.mu.Unlock()
		return nil, ErrWorkspaceUnavailable
	}
	prev := s.workspace.Clone() // rollback snapshot
	gen := s.gen
	s.mu.Unlock()

	next, err := s.workspaces.Switch(ctx, id)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		// the session changed mid-switch ; discard the stale
		// result without touching durable state, which a newer
		// session may already own
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		// exact rollback ; the structured denial code passes
		// through to the caller for contextual UI messaging
		s.workspace = prev
		s.mu.Unlock()
		return nil, err
	}
	s.workspace = next
	s.touchLocked()
	s.mu.Unlock()

	s.publish(ctx, crosstab.Event{
		Type:      crosstab.EventWorkspaceSwitch,
		Workspace: next,
	})

	return next.Clone(), nil
}

// LeaveWorkspace clears the active context. Not undoable:
// the durable id is removed and siblings are told.
func (s *Store) LeaveWorkspace(ctx context.Context) {
	s.mu.Lock()
	if s.workspace == nil {
		s.mu.Unlock()
		return
	}
	s.workspace = nil
	s.touchLocked()
	s.mu.Unlock()

	if s.workspaces != nil {
		s.workspaces.Leave(ctx)
	}
	s.publish(ctx, crosstab.Event{
		Type: crosstab.EventWorkspaceSwitch,
		// Workspace: nil ; "left"
	})
}
