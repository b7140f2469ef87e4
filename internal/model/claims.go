package model

import (
	"time"
)

// Token type claims ; [type]
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims. Access token payload, decoded client-side.
// Display & cache-keying data ONLY ; the signature is
// verified by the backend, never from these fields.
type Claims struct {
	// Account (User) identifier
	UserID int64 `json:"user_id"`
	// Account e-mail address
	Email string `json:"email"`
	// Account display name
	Username string `json:"username"`
	// Subscription (plan) claims ; OPTIONAL
	Subscription *SubscriptionClaims `json:"subscription,omitempty"`
	// [iat] issued at ; unix seconds
	IssuedAt int64 `json:"iat"`
	// [exp] expires at ; unix seconds
	ExpiresAt int64 `json:"exp"`
	// [type] token kind ; "access" | "refresh"
	Type string `json:"type"`
	// [jti] token unique id
	TokenID string `json:"jti"`
}

// Expires returns the [exp] claim as an absolute date.
func (c *Claims) Expires() (date time.Time) {
	if c != nil && c.ExpiresAt > 0 {
		date = time.Unix(c.ExpiresAt, 0)
	}
	return // date?
}

// CapabilitiesVersion returns the subscription capabilities
// snapshot hash, if any subscription claims were granted.
func (c *Claims) CapabilitiesVersion() string {
	if c == nil || c.Subscription == nil {
		return ""
	}
	return c.Subscription.CapabilitiesVersion
}

// Clone returns a deep copy of the claims, subscription and
// trial records included.
func (c *Claims) Clone() *Claims {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Subscription != nil {
		sub := *c.Subscription
		if sub.Trial != nil {
			trial := *sub.Trial
			sub.Trial = &trial
		}
		clone.Subscription = &sub
	}
	return &clone
}

// SubscriptionClaims. Plan grant carried inside the token.
// Replaced wholesale on every login / refresh.
type SubscriptionClaims struct {
	Tier                string       `json:"tier"`
	Status              string       `json:"status"`
	ExpiresAt           int64        `json:"expires_at"`
	CapabilitiesVersion string       `json:"capabilities_version"`
	BillingCycle        string       `json:"billing_cycle"`
	Currency            string       `json:"currency"`
	Trial               *TrialClaims `json:"trial,omitempty"`
}

// TrialClaims. Trial sub-record of the subscription grant.
type TrialClaims struct {
	Active    bool  `json:"active"`
	ExpiresAt int64 `json:"expires_at"`
	DaysLeft  int   `json:"days_left"`
}
