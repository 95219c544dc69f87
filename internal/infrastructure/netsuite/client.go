package netsuite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/erp/portalsync/internal/domain/erpsync"
	"github.com/erp/portalsync/internal/infrastructure/telemetry"
)

// TokenSource supplies bearer tokens for ERP calls.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
	Invalidate(ctx context.Context)
}

// RetryObserver is told about every transient retry. Telemetry implements it.
type RetryObserver interface {
	ObserveRetry(ctx context.Context, tag string, attempt int, delay time.Duration, status int, code string)
}

// Client talks to the SuiteQL endpoint and the file RESTlet.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	tokens     TokenSource
	backoff    Backoff
	sleep      Sleeper
	observer   RetryObserver
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// WithBackoff replaces the backoff policy.
func WithBackoff(b Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// WithRetryObserver registers a retry observer.
func WithRetryObserver(o RetryObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client. cfg is validated.
func NewClient(cfg *Config, tokens TokenSource, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigMissingAccount
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, errors.New("netsuite: token source is required")
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		tokens:     tokens,
		backoff:    NewBackoff(cfg.MaxWait),
		sleep:      sleepContext,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// queryPage is one SuiteQL result page.
type queryPage struct {
	Items   []json.RawMessage `json:"items"`
	HasMore bool              `json:"hasMore"`
	Links   []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

func (p *queryPage) next() string {
	if !p.HasMore {
		return ""
	}
	for _, l := range p.Links {
		if l.Rel == "next" {
			return l.Href
		}
	}
	return ""
}

// Query runs statement and follows next links until every page is read.
func (c *Client) Query(ctx context.Context, statement, tag string) ([]json.RawMessage, error) {
	payload, err := json.Marshal(map[string]string{"q": statement})
	if err != nil {
		return nil, fmt.Errorf("netsuite: encode query: %w", err)
	}

	next := c.firstQueryURL()
	seen := make(map[string]struct{})
	var rows []json.RawMessage
	for page := 0; next != ""; page++ {
		if _, dup := seen[next]; dup {
			return nil, erpsync.NewMalformedError("QUERY_PAGINATION_LOOP", "%s: next link repeats %s", tag, next)
		}
		seen[next] = struct{}{}

		body, err := c.do(ctx, tag, next, payload, map[string]string{"Prefer": "transient"})
		if err != nil {
			return nil, err
		}
		var p queryPage
		if err := json.Unmarshal(body, &p); err != nil {
			e := erpsync.NewMalformedError("QUERY_RESPONSE_INVALID", "%s: page %d is not a query result: %v", tag, page, err)
			e.Tag, e.Body = tag, erpsync.Excerpt(body)
			return nil, e
		}
		rows = append(rows, p.Items...)
		next = p.next()
	}

	logger := c.logger.With(zap.String("tag", tag))
	logger.Debug("Query completed", zap.Int("rows", len(rows)))
	return rows, nil
}

func (c *Client) firstQueryURL() string {
	u, err := url.Parse(c.cfg.QueryURL)
	if err != nil {
		return c.cfg.QueryURL
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.cfg.QueryPageSize))
	q.Set("offset", "0")
	u.RawQuery = q.Encode()
	return u.String()
}

// ScriptRequest is the RESTlet request body.
type ScriptRequest struct {
	Action string `json:"action"`
	FileID string `json:"fileId,omitempty"`
	Name   string `json:"name,omitempty"`
	Folder string `json:"folder,omitempty"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

// ScriptResponse is the RESTlet reply to a read.
type ScriptResponse struct {
	Data          string `json:"data"`
	LinesReturned int    `json:"linesReturned"`
	Done          bool   `json:"done"`
	FileID        string `json:"fileId,omitempty"`
}

// CallScript invokes the file RESTlet with the same retry policy as Query.
func (c *Client) CallScript(ctx context.Context, req ScriptRequest) (*ScriptResponse, error) {
	tag := "script." + req.Action
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("netsuite: encode script request: %w", err)
	}
	body, err := c.do(ctx, tag, c.cfg.ScriptURL, payload, nil)
	if err != nil {
		return nil, err
	}
	var resp ScriptResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		e := erpsync.NewMalformedError("SCRIPT_RESPONSE_INVALID", "%s: response is not a script result: %v", tag, err)
		e.Tag, e.Body = tag, erpsync.Excerpt(body)
		return nil, e
	}
	if resp.LinesReturned < 0 {
		return nil, erpsync.NewMalformedError("SCRIPT_RESPONSE_INVALID", "%s: negative linesReturned %d", tag, resp.LinesReturned)
	}
	return &resp, nil
}

// do POSTs payload to target. Transient failures are retried forever with
// backoff; a 401 invalidates the token and is retried once.
func (c *Client) do(ctx context.Context, tag, target string, payload []byte, headers map[string]string) (body []byte, err error) {
	ctx, span := telemetry.StartSpan(ctx, "netsuite.request",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrRequestTag, tag),
	)
	attempt := 0
	defer func() {
		telemetry.SetAttributes(span, telemetry.SpanAttrAttempts, attempt+1)
		telemetry.RecordError(span, err)
		span.End()
	}()

	reauthorized := false
	for {
		token, err := c.tokens.GetValidToken(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("netsuite: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Connection level failures are treated like a 5xx.
			if err := c.wait(ctx, tag, attempt, "", 0, "NETWORK_ERROR"); err != nil {
				return nil, err
			}
			attempt++
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if readErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err := c.wait(ctx, tag, attempt, "", resp.StatusCode, "READ_ERROR"); err != nil {
				return nil, err
			}
			attempt++
			continue
		}

		transient, code := classify(resp.StatusCode, body)
		switch {
		case transient:
			if err := c.wait(ctx, tag, attempt, resp.Header.Get("Retry-After"), resp.StatusCode, code); err != nil {
				return nil, err
			}
			attempt++
			continue
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode == http.StatusUnauthorized && !reauthorized:
			reauthorized = true
			c.tokens.Invalidate(ctx)
			c.logger.Info("Token rejected, refreshing", zap.String("tag", tag))
			continue
		}

		c.logger.Warn("Remote request failed",
			zap.String("tag", tag),
			zap.Int("status", resp.StatusCode),
			zap.String("remote_code", code),
		)
		return nil, erpsync.NewRemoteError(tag, resp.StatusCode, code, body)
	}
}

func (c *Client) wait(ctx context.Context, tag string, attempt int, retryAfter string, status int, code string) error {
	delay := c.backoff.Delay(attempt, retryAfter)
	c.logger.Info("Remote rate limited, backing off",
		zap.String("tag", tag),
		zap.Int("attempt", attempt+1),
		zap.Duration("delay", delay),
		zap.Int("status", status),
		zap.String("remote_code", code),
	)
	if c.observer != nil {
		c.observer.ObserveRetry(ctx, tag, attempt, delay, status, code)
	}
	return c.sleep(ctx, delay)
}
