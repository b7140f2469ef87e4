// Package api consumes the console backend HTTP contract.
// The session core's responsibility ends here: expose the
// current bearer and workspace id as request headers and
// hand the structured error envelope back to callers intact.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/huzilerz/session-core/infra/log/slogx"
	"github.com/huzilerz/session-core/internal/errors"
)

// Per-request header carrying the active workspace id.
// This header — not the token — scopes requests to a tenant
// on the server side.
const HeaderWorkspace = "X-Huzilerz-Workspace"

// Credentials supplies per-request authorization state.
// Empty values mean "not authenticated" / "no workspace".
type Credentials interface {
	BearerToken() string
	WorkspaceID() string
}

// Config of the backend endpoint.
type Config struct {
	// Base URL, e.g. "https://api.huzilerz.dev"
	BaseURL string
	// Per-request timeout ; default 15s
	Timeout time.Duration
}

// Client. Console backend HTTP client.
type Client struct {
	base  *url.URL
	http  *http.Client
	creds Credentials
	logs  *slog.Logger
}

func NewClient(cfg Config, logs *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	// cookie jar holds the HTTP-only refresh cookie ;
	// the refresh token itself never surfaces to callers
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = slog.Default()
	}
	return &Client{
		base: base,
		http: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		logs: logs,
	}, nil
}

// Bind attaches the credentials source. Two-phase because the
// session store both consumes this client and supplies its
// authorization state.
func (c *Client) Bind(creds Credentials) {
	c.creds = creds
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		if bearer := c.creds.BearerToken(); bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		if workspace := c.creds.WorkspaceID(); workspace != "" {
			req.Header.Set(HeaderWorkspace, workspace)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}

	if res.StatusCode >= http.StatusBadRequest {
		// structured envelope ; pass the status code through
		fault, ok := errors.Parse(string(raw))
		if !ok || fault == nil {
			fault = errors.New(
				errors.Code(int32(res.StatusCode)),
				errors.Status(strings.ReplaceAll(
					strings.ToUpper(http.StatusText(res.StatusCode)), " ", "_",
				)),
				errors.Message("api: %s %s", method, path),
			)
		}
		if fault.Code == 0 {
			fault.Code = int32(res.StatusCode)
		}
		c.logs.DebugContext(ctx, "api: request failed",
			"method", method,
			"path", path,
			"status", fault.Status,
			"code", fault.Code,
		)
		return fault
	}

	if out != nil && len(raw) > 0 {
		return json.Unmarshal(raw, out)
	}
	return nil
}

// logToken is used at debug sites that record a bearer.
func (c *Client) logToken(bearer string) slogx.DeferValue {
	return func() slog.Value {
		return slogx.Token(bearer)
	}
}
