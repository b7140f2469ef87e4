package crosstab

import (
	"time"

	"github.com/huzilerz/session-core/internal/model"
)

// Session event types fanned out between console surfaces.
type EventType string

const (
	EventLogin           EventType = "login"
	EventLogout          EventType = "logout"
	EventTokenRefreshed  EventType = "token-refreshed"
	EventWorkspaceSwitch EventType = "workspace-switch"
	EventSessionExpired  EventType = "session-expired"
)

// Event envelope. [SentAt] drives the staleness discard: a
// surface that was asleep must not replay an old logout onto
// a now-different live session.
type Event struct {
	Type     EventType `json:"type"`
	SenderID string    `json:"sender_id"`
	SentAt   int64     `json:"sent_at"` // unix milliseconds

	// [login] | [token-refreshed] payload ; other surfaces
	// re-hydrate from the broadcast, not from re-decoding
	// durable storage blindly
	Session *SessionPayload `json:"session,omitempty"`
	// [workspace-switch] payload ; nil means "left workspace"
	Workspace *model.WorkspaceContext `json:"workspace,omitempty"`
}

// SessionPayload carries enough state for a sibling surface
// to adopt the session without its own network round-trip.
type SessionPayload struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt int64      `json:"expires_at,omitempty"` // unix seconds
}

// Expire reports whether the event is older than [ttl] at [now].
func (e *Event) Expire(now time.Time, ttl time.Duration) bool {
	if e == nil || e.SentAt == 0 {
		return true
	}
	sent := time.UnixMilli(e.SentAt)
	return now.Sub(sent) > ttl
}
