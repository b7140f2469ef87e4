package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/huzilerz/session-core/internal/model"
)

// switchResult. Workspace switch response: the resolved
// descriptor plus the caller's membership for it — the only
// source of truth for workspace permissions.
type switchResult struct {
	Workspace struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Type       string `json:"type"`
		Restricted bool   `json:"restricted"`
	} `json:"workspace"`
	Membership struct {
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	} `json:"membership"`
}

// SwitchWorkspace makes [id] the active tenant scope.
// Denials arrive as structured statuses (WORKSPACE_RESTRICTED,
// WORKSPACE_NONCOMPLIANT, SUBSCRIPTION_RESTRICTED, NOT_FOUND,
// ACCESS_DENIED) and are passed through intact.
func (c *Client) SwitchWorkspace(ctx context.Context, id string) (*model.WorkspaceContext, error) {
	res := new(switchResult)
	err := c.do(ctx, http.MethodPost, "/workspaces/"+url.PathEscape(id)+"/switch", nil, res)
	if err != nil {
		return nil, err
	}
	return &model.WorkspaceContext{
		ID:          res.Workspace.ID,
		Name:        res.Workspace.Name,
		Type:        res.Workspace.Type,
		Restricted:  res.Workspace.Restricted,
		Role:        res.Membership.Role,
		Permissions: res.Membership.Permissions,
	}, nil
}
