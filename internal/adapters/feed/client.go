// Package feed is the client for the upstream live-timing API.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/longcourse/agegrade/internal/domain/model"
	"github.com/longcourse/agegrade/internal/domain/results"
	"github.com/longcourse/agegrade/pkg/logger"
	"github.com/longcourse/agegrade/pkg/metrics"
)

// Defaults for the upstream client.
const (
	DefaultTimeout    = 15 * time.Second
	defaultMaxRecords = 2000
)

// errorTypeNoResults is the upstream error envelope type meaning nobody has
// finished yet.
const errorTypeNoResults = "no_results"

// Client queries the live-timing feed. Every call applies the configured
// HTTP timeout so a slow upstream surfaces as a transport error instead of
// hanging the request.
type Client struct {
	httpClient *http.Client
	appID      string
	token      string
	maxRecords int
	log        logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithCredentials sets the upstream application id and token.
func WithCredentials(appID, token string) Option {
	return func(c *Client) {
		c.appID = appID
		c.token = token
	}
}

// WithTimeout bounds each upstream round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client, for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxRecords caps the number of records requested per query.
func WithMaxRecords(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRecords = n
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a feed client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxRecords: defaultMaxRecords,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Named("feed")
	}
	return c
}

// envelope is the upstream response shape: either a record list (plus the
// starter-count summary) or an error object.
type envelope struct {
	List     []model.AthleteRecord `json:"list"`
	CatTotal json.Number           `json:"cattotal"`
	Error    *feedError            `json:"error"`
}

type feedError struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

// Results fetches the full finisher list from one feed endpoint.
//
// The upstream "no_results" error envelope translates to
// results.ErrNoFinishers; transport and decode failures wrap
// results.ErrUpstreamTransport and results.ErrUpstreamParse respectively.
func (c *Client) Results(ctx context.Context, endpoint string) ([]model.AthleteRecord, error) {
	env, err := c.query(ctx, endpoint, c.maxRecords)
	if err != nil {
		return nil, err
	}
	if env.Error != nil {
		if env.Error.Type == errorTypeNoResults {
			return nil, results.ErrNoFinishers
		}
		return nil, fmt.Errorf("%w: upstream error %q", results.ErrUpstreamTransport, env.Error.Type)
	}
	return env.List, nil
}

// StarterCount fetches the lightweight starter-count summary for one feed
// endpoint. It requests a single record; only the cattotal field matters.
func (c *Client) StarterCount(ctx context.Context, endpoint string) (int, error) {
	env, err := c.query(ctx, endpoint, 1)
	if err != nil {
		return 0, err
	}
	if env.Error != nil && env.Error.Type != errorTypeNoResults {
		return 0, fmt.Errorf("%w: upstream error %q", results.ErrUpstreamTransport, env.Error.Type)
	}
	if env.CatTotal == "" {
		return 0, fmt.Errorf("%w: missing cattotal", results.ErrUpstreamParse)
	}
	n, err := strconv.Atoi(env.CatTotal.String())
	if err != nil {
		return 0, fmt.Errorf("%w: cattotal %q: %v", results.ErrUpstreamParse, env.CatTotal, err)
	}
	return n, nil
}

func (c *Client) query(ctx context.Context, endpoint string, maxRecords int) (*envelope, error) {
	form := url.Values{
		"timesort": {"1"},
		"nohide":   {"1"},
		"checksum": {""},
		"appid":    {c.appID},
		"token":    {c.token},
		"max":      {strconv.Itoa(maxRecords)},
		"catloc":   {"1"},
		"cattotal": {"1"},
		"units":    {"standard"},
		"source":   {"webtracker"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", results.ErrUpstreamTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	metrics.ObserveFeedLatency(float64(elapsed.Milliseconds()))
	if err != nil {
		metrics.RecordFeedRequest("transport_error")
		return nil, fmt.Errorf("%w: %v", results.ErrUpstreamTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordFeedRequest("transport_error")
		return nil, fmt.Errorf("%w: status %d from %s", results.ErrUpstreamTransport, resp.StatusCode, endpoint)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.RecordFeedRequest("parse_error")
		return nil, fmt.Errorf("%w: %v", results.ErrUpstreamParse, err)
	}

	outcome := "ok"
	if env.Error != nil {
		if env.Error.Type == errorTypeNoResults {
			outcome = "no_finishers"
		} else {
			outcome = "transport_error"
		}
	}
	metrics.RecordFeedRequest(outcome)
	c.log.Debug(ctx, "feed query",
		logger.String("endpoint", endpoint),
		logger.String("outcome", outcome),
		logger.Duration("elapsed", elapsed),
	)
	return &env, nil
}
