// Package notion writes release note drafts into the shared docs workspace
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	perr "teambot/internal/platform/errors"
	"teambot/internal/platform/logger"
	reldom "teambot/internal/services/releases/domain"
)

const (
	apiRootDefault = "https://api.notion.com"
	apiVersion     = "2022-06-28"
	defaultTimeout = 10 * time.Second
)

// Options configures the Client
type Options struct {
	APIRoot  string
	Token    string
	ParentID string // database that holds release note pages
	Timeout  time.Duration
}

// Client is a thin wrapper over the pages endpoints
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewClient creates a Client with sane defaults
func NewClient(o Options) *Client {
	if o.APIRoot == "" {
		o.APIRoot = apiRootDefault
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("notion"),
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeUnknown, "docs payload marshal failed"), op)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.APIRoot+path, bytes.NewReader(body))
	if err != nil {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeUnknown, "docs new request failed"), op)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	req.Header.Set("Notion-Version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeTransport, "docs api unreachable"), op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return perr.WithOp(perr.Deliveryf("docs api status %d body %s", resp.StatusCode, string(tail)), op)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return perr.WithOp(perr.Wrap(err, perr.ErrorCodeDelivery, "docs response undecodable"), op)
		}
	}
	return nil
}

// CreateReleasePage drafts a release note page titled "<repo> <version>" with
// the raw notes as a single paragraph block
func (c *Client) CreateReleasePage(ctx context.Context, repoName, version, notes string) (reldom.Note, error) {
	title := repoName + " " + version
	payload := map[string]any{
		"parent": map[string]any{"database_id": c.opts.ParentID},
		"properties": map[string]any{
			"Name": map[string]any{
				"title": []map[string]any{
					{"text": map[string]any{"content": title}},
				},
			},
		},
		"children": []map[string]any{
			{
				"object": "block",
				"type":   "paragraph",
				"paragraph": map[string]any{
					"rich_text": []map[string]any{
						{"type": "text", "text": map[string]any{"content": notes}},
					},
				},
			},
		},
	}

	var resp struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := c.do(ctx, "createReleasePage", http.MethodPost, "/v1/pages", payload, &resp); err != nil {
		return reldom.Note{}, err
	}
	if resp.ID == "" {
		return reldom.Note{}, perr.Deliveryf("docs api returned a page without an id")
	}
	return reldom.Note{ID: resp.ID, URL: resp.URL}, nil
}
