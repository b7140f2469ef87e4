package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/huzilerz/session-core/internal/model"
)

// AuthResult. Login / register response.
type AuthResult struct {
	// Bearer [access_token] string
	Token string `json:"access_token"`
	// Relative token lifetime, seconds
	ExpiresIn int64 `json:"expires_in"`
	// Authenticated identity
	User model.User `json:"user"`
	// Known-available workspaces of the account
	Workspaces []model.WorkspaceSummary `json:"workspaces,omitempty"`
	// Pre-selected workspace context ; OPTIONAL
	Workspace *model.WorkspaceContext `json:"workspace,omitempty"`
}

// TokenResult. Refresh response: a new access token and an
// optional identity patch. NO workspace data: workspace scope
// is independent of token lifetime.
type TokenResult struct {
	Token     string           `json:"access_token"`
	ExpiresIn int64            `json:"expires_in"`
	User      *model.UserPatch `json:"user,omitempty"`
}

// Login exchanges credentials for a session grant.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*AuthResult, error) {
	res := new(AuthResult)
	err := c.do(ctx, http.MethodPost, "/auth/login", creds, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, reg model.Registration) (*AuthResult, error) {
	res := new(AuthResult)
	err := c.do(ctx, http.MethodPost, "/auth/register", reg, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Refresh regenerates the access token. Relies on the
// HTTP-only refresh cookie held by the client's jar.
func (c *Client) Refresh(ctx context.Context) (*TokenResult, error) {
	res := new(TokenResult)
	err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, res)
	if err != nil {
		return nil, err
	}
	c.logs.DebugContext(ctx, "api: token refreshed",
		slog.Any("token", c.logToken(res.Token)),
	)
	return res, nil
}

// Logout revokes the session server-side. Best effort: the
// local session is already cleared by the time this is sent.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}
