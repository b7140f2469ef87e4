package model

import (
	"time"

	"github.com/huzilerz/session-core/internal/errors"
)

// AccessToken GRANT for the current console session.
// Owned exclusively by the session store ; kept in memory,
// NEVER persisted verbatim to durable storage.
type AccessToken struct {
	Type    string     // token type ; default: "bearer"
	Token   string     // [access_token] string ; REQUIRED
	Expires *time.Time // [access_token] absolute expiry date
}

// Indicates ANY token claims violation
var ErrTokenIsInvalid = errors.Unauthorized(
	errors.Message("session: token is invalid"),
)

// Indicates [exp] claim violation
var ErrTokenIsExpired = errors.Unauthorized(
	errors.Message("session: token is expired"),
)

// Verify reports whether the grant may still be used at [date].
// A non-zero [skew] treats the token as expired slightly before
// its absolute expiry, so refresh can be triggered in advance.
func (e *AccessToken) Verify(date time.Time, skew time.Duration) error {
	// assigned ?
	if e == nil || e.Token == "" {
		return ErrTokenIsInvalid
	}
	if date.IsZero() {
		date = LocalTime.Now()
	}
	// expired ?
	if e.Expires != nil && !date.Before(e.Expires.Add(-skew)) {
		return ErrTokenIsExpired
	}
	// [ OK ]
	return nil
}

// NewAccessToken builds a bearer grant from [token] string
// and its relative [expiresIn] lifetime, seconds.
func NewAccessToken(token string, expiresIn int64, clock Clock) *AccessToken {
	if token == "" {
		return nil
	}
	if clock == nil {
		clock = LocalTime
	}
	grant := AccessToken{
		Type:  "bearer",
		Token: token,
	}
	if expiresIn > 0 {
		expiry := clock.Now().Add(time.Duration(expiresIn) * time.Second)
		grant.Expires = &expiry
	}
	return &grant
}

// Clone returns a deep copy of the grant.
func (e *AccessToken) Clone() *AccessToken {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Expires != nil {
		expiry := *e.Expires
		clone.Expires = &expiry
	}
	return &clone
}
