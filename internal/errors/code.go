package errors

import (
	"net/http"
)

// Structured workspace-switch denial statuses.
// Passed through with their code intact, so the calling UI can
// render specific guidance ; never collapsed into one generic
// error string.
const (
	StatusWorkspaceRestricted    = "WORKSPACE_RESTRICTED"
	StatusWorkspaceNoncompliant  = "WORKSPACE_NONCOMPLIANT"
	StatusSubscriptionRestricted = "SUBSCRIPTION_RESTRICTED"
	StatusNotFound               = "NOT_FOUND"
	StatusAccessDenied           = "ACCESS_DENIED"
)

// map[status]code defaults
var codeMap = map[string]int32{
	StatusWorkspaceRestricted:    http.StatusForbidden,
	StatusWorkspaceNoncompliant:  http.StatusForbidden,
	StatusSubscriptionRestricted: http.StatusPaymentRequired,
	StatusNotFound:               http.StatusNotFound,
	StatusAccessDenied:           http.StatusForbidden,

	"UNAUTHORIZED": http.StatusUnauthorized,
	"FORBIDDEN":    http.StatusForbidden,
	"BAD_REQUEST":  http.StatusBadRequest,
}

// StatusCode resolves the default HTTP-alike code
// for well-known [status] string.
func StatusCode(status string) int32 {
	if code, ok := codeMap[status]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// IsWorkspaceDenied reports whether [err] carries one of the
// structured workspace-switch denial statuses.
func IsWorkspaceDenied(err error) bool {
	e, ok := FromError(err)
	if !ok || e == nil {
		return false
	}
	switch e.Status {
	case StatusWorkspaceRestricted,
		StatusWorkspaceNoncompliant,
		StatusSubscriptionRestricted,
		StatusNotFound,
		StatusAccessDenied:
		return true
	}
	return false
}

// IsUnauthorized reports whether [err] means the session
// can no longer be trusted to remain authenticated.
func IsUnauthorized(err error) bool {
	e, ok := FromError(err)
	if !ok || e == nil {
		return false
	}
	return e.Code == http.StatusUnauthorized
}
