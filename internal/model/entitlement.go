package model

import "maps"

// EntitlementSnapshot. Resolved capability set for a
// subscription tier. Valid only while [Version] equals the
// capabilities version currently carried by the session
// claims ; replaced atomically, never partially updated.
type EntitlementSnapshot struct {
	// Opaque snapshot hash ; cache validity key
	Version string `json:"version"`
	// Subscription tier the snapshot was resolved for
	Tier string `json:"tier"`
	// Feature flags & limits ; value is bool | number | string
	Capabilities map[string]any `json:"capabilities"`
}

// Can reports whether [feature] is enabled by the snapshot.
// A boolean capability must be true ; any other non-nil,
// non-false value counts as granted. Safe on nil receiver.
func (e *EntitlementSnapshot) Can(feature string) bool {
	value, ok := e.Value(feature)
	if !ok {
		return false
	}
	if enabled, isBool := value.(bool); isBool {
		return enabled
	}
	return value != nil
}

// Value returns the raw capability value for [feature].
func (e *EntitlementSnapshot) Value(feature string) (any, bool) {
	if e == nil || e.Capabilities == nil {
		return nil, false
	}
	value, ok := e.Capabilities[feature]
	return value, ok
}

// Clone returns a deep-enough copy ; capability values are
// plain JSON scalars.
func (e *EntitlementSnapshot) Clone() *EntitlementSnapshot {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Capabilities = maps.Clone(e.Capabilities)
	return &clone
}
