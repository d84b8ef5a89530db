// Package deployproxy forwards deployment orders to the internal deploy
// service on behalf of chat-side operators
package deployproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	perr "teambot/internal/platform/errors"
	"teambot/internal/platform/logger"
)

const defaultTimeout = 30 * time.Second

// Options configures the Client
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client triggers deployments; it holds no state about them
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewClient creates a Client with sane defaults
func NewClient(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("deployproxy"),
	}
}

// Deploy asks the deploy service to roll app out on env at ref. The service
// answers once the order is queued, not when the rollout finishes.
func (c *Client) Deploy(ctx context.Context, app, env, ref string) error {
	body, err := json.Marshal(map[string]string{
		"application": app,
		"environment": env,
		"ref":         ref,
	})
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "deploy payload marshal failed")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/deployments", bytes.NewReader(body))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "deploy new request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeTransport, "deploy service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return perr.Deliveryf("deploy service status %d body %s", resp.StatusCode, string(tail))
	}
	c.log.Info().Str("app", app).Str("env", env).Str("ref", ref).Msg("deployment queued")
	return nil
}
