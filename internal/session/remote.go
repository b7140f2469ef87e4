package session

import (
	"context"

	"github.com/huzilerz/session-core/internal/crosstab"
	"github.com/huzilerz/session-core/internal/model"
)

// ApplyRemote applies a cross-surface session event, in
// receipt order. Handed to [crosstab.Synchronizer.Run].
//
// [logout] is the highest-priority event: it forces [idle]
// unconditionally — no concurrent in-flight refresh and no
// later event may override it for the cleared generation.
// [workspace-switch] updates ONLY the workspace field, so it
// never clobbers this surface's independently-valid token.
func (s *Store) ApplyRemote(event crosstab.Event) {
	ctx := context.Background()

	switch event.Type {
	case crosstab.EventLogout, crosstab.EventSessionExpired:
		s.mu.Lock()
		userID := s.clearLocked()
		s.mu.Unlock()
		// the sender already cleared the shared durable keys ;
		// drop only this surface's memory tier
		if s.entitlements != nil && userID != 0 {
			s.entitlements.Forget(userID)
		}
		s.logs.Info("session: remote sign-out applied",
			"event", string(event.Type),
		)

	case crosstab.EventLogin:
		if event.Session == nil {
			return
		}
		// hydrate from the broadcast, not from re-decoding
		// storage blindly ; an undecodable token is ignored
		claims, err := s.codec.Decode(event.Session.Token)
		if err != nil {
			return
		}
		grant := s.grantOf(event.Session.Token, 0, claims)
		user := event.Session.User

		s.mu.Lock()
		s.gen++
		s.status = StatusAuthenticated
		s.user = &user
		s.grant = grant
		s.claims = claims
		s.workspace = event.Workspace.Clone()
		s.available = nil // unknown here ; server validates
		s.lastError = ""
		s.initialized = true
		s.touchLocked()
		userID := user.ID
		s.mu.Unlock()

		s.warmEntitlements(ctx, claims.Subscription, userID)

	case crosstab.EventTokenRefreshed:
		if event.Session == nil {
			return
		}
		claims, err := s.codec.Decode(event.Session.Token)
		if err != nil {
			return
		}
		grant := s.grantOf(event.Session.Token, 0, claims)

		s.mu.Lock()
		// apply only onto the same authenticated identity
		if s.status != StatusAuthenticated ||
			s.user == nil || s.user.ID != claims.UserID {
			s.mu.Unlock()
			return
		}
		s.grant = grant
		s.claims = claims
		s.touchLocked()
		userID := s.user.ID
		s.mu.Unlock()

		s.warmEntitlements(ctx, claims.Subscription, userID)

	case crosstab.EventWorkspaceSwitch:
		s.mu.Lock()
		if s.status != StatusAuthenticated {
			s.mu.Unlock()
			return
		}
		var next *model.WorkspaceContext
		if event.Workspace != nil {
			next = event.Workspace.Clone()
		}
		s.workspace = next
		s.touchLocked()
		s.mu.Unlock()
	}
}
