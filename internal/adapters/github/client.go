// Package github is the tracker query client: it translates lifecycle intents
// into GraphQL calls against the project board API
package github

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"

	"teambot/internal/platform/config"
	perr "teambot/internal/platform/errors"
	"teambot/internal/platform/logger"
)

const (
	endpointDefault  = "https://api.github.com/graphql"
	defaultTimeout   = 10 * time.Second
	defaultMaxRetry  = 2
	defaultRetryBase = 500 * time.Millisecond
)

// Options configures the Client. Constructed once at startup and passed in;
// there is no lazy token fetching hidden inside the client.
type Options struct {
	Endpoint string
	Token    string
	Timeout  time.Duration

	// Retry config for transport failures; GraphQL-level errors never retry
	MaxRetries int
	RetryBase  time.Duration
}

// Client issues structured queries/mutations with bearer auth and a small
// fixed retry policy at the transport layer
type Client struct {
	gql   *graphql.Client
	opts  Options
	board *config.BoardConfig
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a Client with sane defaults
func NewClient(o Options, board *config.BoardConfig) *Client {
	if o.Endpoint == "" {
		o.Endpoint = endpointDefault
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	return &Client{
		gql:   graphql.NewClient(o.Endpoint, graphql.WithHTTPClient(&http.Client{Timeout: o.Timeout})),
		opts:  o,
		board: board,
		log:   *logger.Named("github"),
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// isAPIError reports whether err was reported by the GraphQL layer itself
// (machinebox prefixes those with "graphql:") as opposed to the transport
func isAPIError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "graphql:")
}

// run executes a request with auth and transport retries
func (c *Client) run(ctx context.Context, op string, req *graphql.Request, resp any) error {
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return perr.WithOp(perr.Wrapf(ctx.Err(), perr.ErrorCodeTransport, "tracker call canceled"), op)
		default:
		}

		start := c.now()
		err := c.gql.Run(ctx, req, resp)
		lat := c.now().Sub(start)

		c.log.Debug().
			Str("op", op).
			Int("attempt", attempts).
			Dur("latency", lat).
			Err(err).
			Msg("tracker graphql call")

		if err == nil {
			return nil
		}
		if isAPIError(err) {
			// the endpoint answered; retrying the same document cannot help
			return perr.WithOp(perr.Wrap(err, perr.ErrorCodeDelivery, "tracker reported an error"), op)
		}
		if attempts >= c.opts.MaxRetries {
			return perr.WithOp(perr.Wrap(err, perr.ErrorCodeTransport, "tracker unreachable"), op)
		}
		back := c.backoff(attempts)
		c.log.Warn().Str("op", op).Dur("retry_in", back).Int("attempt", attempts).Msg("tracker transport error retrying")
		c.sleep(back)
		attempts++
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if limit := 10 * time.Second; d > limit {
		d = limit
	}
	return d
}
