// Package slack is the messaging client: it posts, edits, and searches chat
// messages as the integration's own identity
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	perr "teambot/internal/platform/errors"
	"teambot/internal/platform/logger"
	itemdom "teambot/internal/services/items/domain"
)

const (
	apiRootDefault = "https://slack.com/api"
	defaultTimeout = 10 * time.Second
)

// Options configures the Client. Tokens are injected once at startup.
// BotToken drives posting/editing; UserToken is required by the search API.
type Options struct {
	APIRoot   string
	BotToken  string
	UserToken string
	Timeout   time.Duration
}

// Client talks to the chat API's fixed endpoints with bearer auth
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
		log:  *logger.Named("slack"),
	}
}

// ack is the envelope every chat API call answers with
type ack struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// postJSON sends payload to the fixed endpoint and decodes into out
func (c *Client) postJSON(ctx context.Context, op, path, token string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeUnknown, "chat payload marshal failed"), op)
	}
	return c.do(ctx, op, path, token, "application/json; charset=utf-8", bytes.NewReader(body), out)
}

// postForm sends form-encoded values; the search endpoint insists on it
func (c *Client) postForm(ctx context.Context, op, path, token string, form url.Values, out any) error {
	return c.do(ctx, op, path, token, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), out)
}

func (c *Client) do(ctx context.Context, op, path, token, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.APIRoot+path, body)
	if err != nil {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeUnknown, "chat new request failed"), op)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeTransport, "chat api unreachable"), op)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("chat http response")

	if resp.StatusCode != http.StatusOK {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return perr.WithOp(
			perr.Deliveryf("chat api status %d body %s", resp.StatusCode, string(tail)), op)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeDelivery, "chat response undecodable"), op)
	}
	return nil
}

// PostMessage sends text to a channel as the app and returns the channel id
// and timestamp token that seed threaded replies
func (c *Client) PostMessage(ctx context.Context, channel, text string) (string, string, error) {
	return c.post(ctx, "postMessage", map[string]any{
		"channel": channel,
		"text":    text,
	})
}

// PostMessageBlocks sends text plus a block kit document (raw JSON array)
func (c *Client) PostMessageBlocks(ctx context.Context, channel, text string, blocks json.RawMessage) (string, string, error) {
	return c.post(ctx, "postMessageBlocks", map[string]any{
		"channel": channel,
		"text":    text,
		"blocks":  blocks,
	})
}

func (c *Client) post(ctx context.Context, op string, payload map[string]any) (string, string, error) {
	var a ack
	if err := c.postJSON(ctx, op, "/chat.postMessage", c.opts.BotToken, payload, &a); err != nil {
		return "", "", err
	}
	if !a.OK {
		return "", "", perr.WithOp(perr.Deliveryf("chat api error: %s", a.Error), op)
	}
	return a.Channel, a.TS, nil
}

// PostReply posts text under a parent message; callers ignore the result
func (c *Client) PostReply(ctx context.Context, channel, parentTimestamp, text string) error {
	var a ack
	err := c.postJSON(ctx, "postReply", "/chat.postMessage", c.opts.BotToken, map[string]any{
		"channel":   channel,
		"thread_ts": parentTimestamp,
		"text":      text,
	}, &a)
	if err != nil {
		return err
	}
	if !a.OK {
		return perr.WithOp(perr.Deliveryf("chat api error: %s", a.Error), "postReply")
	}
	return nil
}

// EditMessage replaces the text of an existing message. Diffing against the
// current text is the caller's job; this call is unconditional.
func (c *Client) EditMessage(ctx context.Context, channel, timestamp, text string) error {
	var a ack
	err := c.postJSON(ctx, "editMessage", "/chat.update", c.opts.BotToken, map[string]any{
		"channel": channel,
		"ts":      timestamp,
		"text":    text,
	}, &a)
	if err != nil {
		return err
	}
	if !a.OK {
		return perr.WithOp(perr.Deliveryf("chat api error: %s", a.Error), "editMessage")
	}
	return nil
}

// searchResponse is the shape of the search endpoint's answer
type searchResponse struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error"`
	Messages struct {
		Total   int `json:"total"`
		Matches []struct {
			Channel struct {
				ID string `json:"id"`
			} `json:"channel"`
			TS   string `json:"ts"`
			Text string `json:"text"`
		} `json:"matches"`
	} `json:"messages"`
}

// SearchThread runs query through the remote search index and returns the
// top-ranked match. The token embedded in the query is assumed unique enough
// in practice; no secondary verification happens here or anywhere else.
func (c *Client) SearchThread(ctx context.Context, query string) (itemdom.ThreadRef, error) {
	form := url.Values{}
	form.Set("query", query)
	form.Set("count", strconv.Itoa(1))
	form.Set("sort", "score")

	var sr searchResponse
	if err := c.postForm(ctx, "searchThread", "/search.messages", c.opts.UserToken, form, &sr); err != nil {
		return itemdom.ThreadRef{}, err
	}
	if !sr.OK {
		return itemdom.ThreadRef{}, perr.WithOp(perr.Deliveryf("chat api error: %s", sr.Error), "searchThread")
	}
	if sr.Messages.Total == 0 || len(sr.Messages.Matches) == 0 {
		return itemdom.ThreadRef{}, perr.NotFoundf("no thread matches %q", query)
	}
	top := sr.Messages.Matches[0]
	return itemdom.ThreadRef{
		Channel:   top.Channel.ID,
		Timestamp: top.TS,
		Text:      top.Text,
	}, nil
}

// OpenView opens a modal for the user behind triggerID. view is a complete
// view document (see modals.go).
func (c *Client) OpenView(ctx context.Context, triggerID string, view json.RawMessage) error {
	var a ack
	err := c.postJSON(ctx, "openView", "/views.open", c.opts.BotToken, map[string]any{
		"trigger_id": triggerID,
		"view":       view,
	}, &a)
	if err != nil {
		return err
	}
	if !a.OK {
		return perr.WithOp(perr.Deliveryf("chat api error: %s", a.Error), "openView")
	}
	return nil
}
