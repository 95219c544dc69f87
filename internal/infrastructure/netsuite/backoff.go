package netsuite

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxWait caps one backoff sleep.
const DefaultMaxWait = 120 * time.Second

// DefaultBackoffTable is indexed by attempt; the last entry repeats.
var DefaultBackoffTable = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
}

// Provider error codes that mean "slow down" rather than "failed".
var transientCodes = map[string]struct{}{
	"CONCURRENCY_LIMIT_EXCEEDED":     {},
	"SSS_REQUEST_LIMIT_EXCEEDED":     {},
	"SSS_CONCURRENCY_LIMIT_EXCEEDED": {},
	"REQUEST_LIMIT_EXCEEDED":         {},
}

// Backoff computes retry delays.
type Backoff struct {
	Table   []time.Duration
	MaxWait time.Duration
	Now     func() time.Time
}

// NewBackoff returns the default policy capped at maxWait.
func NewBackoff(maxWait time.Duration) Backoff {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return Backoff{Table: DefaultBackoffTable, MaxWait: maxWait, Now: time.Now}
}

// Delay returns the wait before retry number attempt (0-based). A usable
// Retry-After hint wins over the table.
func (b Backoff) Delay(attempt int, retryAfter string) time.Duration {
	if d, ok := b.parseRetryAfter(retryAfter); ok {
		return b.capped(d)
	}
	table := b.Table
	if len(table) == 0 {
		table = DefaultBackoffTable
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(table) {
		attempt = len(table) - 1
	}
	return b.capped(table[attempt])
}

func (b Backoff) capped(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	maxWait := b.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if d > maxWait {
		return maxWait
	}
	return d
}

// parseRetryAfter accepts delay-seconds or an HTTP date. Dates in the past
// yield zero.
func (b Backoff) parseRetryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, false
		}
		if secs < 0 {
			return 0, true
		}
		if secs > 1e6 {
			secs = 1e6
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	at, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	d := at.Sub(now())
	if d < 0 {
		d = 0
	}
	return d, true
}

// classify decides whether a response is a transient signal and extracts
// the provider error code when the body carries one.
func classify(status int, body []byte) (transient bool, code string) {
	code = errorCode(body)
	if _, ok := transientCodes[code]; ok {
		return true, code
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return true, code
	}
	return false, code
}

// errorCode pulls the error code out of either error envelope the ERP uses:
// REST {"o:errorDetails":[{"o:errorCode":...}]} or script {"error":{"code":...}}.
func errorCode(body []byte) string {
	if len(body) == 0 || body[0] != '{' {
		return ""
	}
	var env struct {
		Details []struct {
			Code string `json:"o:errorCode"`
		} `json:"o:errorDetails"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	for _, d := range env.Details {
		if d.Code != "" {
			return d.Code
		}
	}
	if env.Error != nil {
		return env.Error.Code
	}
	return ""
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
