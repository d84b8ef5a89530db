// Package ovh lists the dedicated servers and their addresses that back the
// support team's IP allow-list answers
package ovh

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	perr "teambot/internal/platform/errors"
	"teambot/internal/platform/logger"
	supdom "teambot/internal/services/support/domain"
)

const (
	apiRootDefault = "https://eu.api.ovh.com/1.0"
	defaultTimeout = 15 * time.Second
)

// Options configures the Client. The three credentials follow the provider's
// application/consumer split.
type Options struct {
	APIRoot     string
	AppKey      string
	AppSecret   string
	ConsumerKey string
	Timeout     time.Duration
}

// Client signs each request with the provider's sha1 scheme
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
	now  func() time.Time
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
		log:  *logger.Named("ovh"),
		now:  time.Now,
	}
}

// sign computes "$1$" + sha1(appSecret+consumerKey+method+url+body+timestamp)
// joined with "+" separators, as the provider's docs prescribe
func (c *Client) sign(method, fullURL, body string, ts int64) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s+%s+%s+%s+%s+%d",
		c.opts.AppSecret, c.opts.ConsumerKey, method, fullURL, body, ts)
	return "$1$" + fmt.Sprintf("%x", h.Sum(nil))
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	fullURL := c.opts.APIRoot + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeUnknown, "hosting new request failed"), op)
	}
	ts := c.now().Unix()
	req.Header.Set("X-Ovh-Application", c.opts.AppKey)
	req.Header.Set("X-Ovh-Consumer", c.opts.ConsumerKey)
	req.Header.Set("X-Ovh-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Ovh-Signature", c.sign(http.MethodGet, fullURL, "", ts))

	resp, err := c.http.Do(req)
	if err != nil {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeTransport, "hosting api unreachable"), op)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return perr.WithOp(perr.Deliveryf("hosting api status %d body %s", resp.StatusCode, string(tail)), op)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return perr.WithOp(perr.Wrap(err, perr.ErrorCodeDelivery, "hosting response undecodable"), op)
	}
	return nil
}

// ListServers returns the account's dedicated server names
func (c *Client) ListServers(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.get(ctx, "listServers", "/dedicated/server", &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ServerDetail returns the operator-facing identity of one dedicated server
func (c *Client) ServerDetail(ctx context.Context, name string) (supdom.ServerDetail, error) {
	var info struct {
		Name string `json:"name"`
		IAM  struct {
			DisplayName string `json:"displayName"`
		} `json:"iam"`
	}
	if err := c.get(ctx, "serverDetail", "/dedicated/server/"+name, &info); err != nil {
		return supdom.ServerDetail{}, err
	}
	return supdom.ServerDetail{Name: info.Name, DisplayName: info.IAM.DisplayName}, nil
}

// ServerIPs returns every address block (v4 and v6) routed to one server
func (c *Client) ServerIPs(ctx context.Context, name string) ([]string, error) {
	var blocks []string
	if err := c.get(ctx, "serverIPs", "/dedicated/server/"+name+"/ips", &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}
