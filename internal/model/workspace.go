package model

import "slices"

// WorkspaceContext. "Which tenant am I acting as."
// NOT carried inside the token ; sourced from an explicit
// switch call or a session restoration, only.
type WorkspaceContext struct {
	// Workspace (tenant) identifier
	ID string `json:"id"`
	// Display name
	Name string `json:"name"`
	// Workspace kind ; e.g. "store" | "agency"
	Type string `json:"type"`
	// Caller's membership role within the workspace
	Role string `json:"role"`
	// Caller's granted permissions ; source of truth is the
	// switch response membership, never the token
	Permissions []string `json:"permissions"`
	// Restricted-mode flag ; e.g. billing hold
	Restricted bool `json:"restricted"`
}

// HasPermission reports whether [perm] was granted.
// Safe on a nil receiver ; called pervasively in render paths.
func (e *WorkspaceContext) HasPermission(perm string) bool {
	if e == nil || perm == "" {
		return false
	}
	return slices.Contains(e.Permissions, perm)
}

// Clone returns a deep copy of the context.
func (e *WorkspaceContext) Clone() *WorkspaceContext {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Permissions = slices.Clone(e.Permissions)
	return &clone
}

// Equal reports deep equality ; nil == nil.
func (e *WorkspaceContext) Equal(v *WorkspaceContext) bool {
	if e == nil || v == nil {
		return e == v
	}
	return e.ID == v.ID && e.Name == v.Name && e.Type == v.Type &&
		e.Role == v.Role && e.Restricted == v.Restricted &&
		slices.Equal(e.Permissions, v.Permissions)
}

// WorkspaceSummary. Known-available workspace reference
// returned with login / register result.
type WorkspaceSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Role string `json:"role"`
}
