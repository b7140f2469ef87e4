package api

import (
	"context"
	"net/http"

	"github.com/huzilerz/session-core/internal/model"
)

// Capabilities fetches the full entitlement snapshot for the
// authenticated account ; scoping comes from the bearer.
func (c *Client) Capabilities(ctx context.Context) (*model.EntitlementSnapshot, error) {
	res := new(model.EntitlementSnapshot)
	err := c.do(ctx, http.MethodGet, "/subscriptions/me/capabilities", nil, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}
