package netsuite

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultQueryPageSize is the SuiteQL page size (the service maximum).
	DefaultQueryPageSize = 1000
	// DefaultPageLines is the number of export lines read per script call.
	DefaultPageLines = 1000
	// DefaultTimeoutSeconds bounds a single HTTP attempt.
	DefaultTimeoutSeconds = 60

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 32 << 20
)

var (
	ErrConfigMissingAccount   = errors.New("netsuite: account id is required")
	ErrConfigMissingQueryURL  = errors.New("netsuite: query url is required")
	ErrConfigMissingScriptURL = errors.New("netsuite: script url is required")
	ErrConfigInvalidURL       = errors.New("netsuite: invalid url")
)

// Config holds the ERP endpoint settings.
type Config struct {
	// AccountID is the ERP account, used to derive default URLs.
	AccountID string
	// QueryURL is the full SuiteQL endpoint.
	QueryURL string
	// ScriptURL is the full RESTlet URL including script and deploy params.
	ScriptURL string
	// QueryPageSize is sent as the limit parameter on SuiteQL calls.
	QueryPageSize int
	// PageLines is the default line count per export page.
	PageLines int
	// TimeoutSeconds bounds one HTTP attempt, not the retry loop.
	TimeoutSeconds int
	// MaxWait caps a single backoff sleep.
	MaxWait time.Duration
	UserAgent string
}

// NewConfig returns a config with URLs derived from the account id.
func NewConfig(accountID string) *Config {
	c := &Config{AccountID: accountID}
	c.applyDefaults()
	return c
}

// Validate fills defaults and checks required settings.
func (c *Config) Validate() error {
	c.applyDefaults()
	if c.AccountID == "" && c.QueryURL == "" {
		return ErrConfigMissingAccount
	}
	if c.QueryURL == "" {
		return ErrConfigMissingQueryURL
	}
	if c.ScriptURL == "" {
		return ErrConfigMissingScriptURL
	}
	for _, raw := range []string{c.QueryURL, c.ScriptURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrConfigInvalidURL, raw)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.QueryURL == "" && c.AccountID != "" {
		c.QueryURL = fmt.Sprintf("https://%s.suitetalk.api.netsuite.com/services/rest/query/v1/suiteql", accountHost(c.AccountID))
	}
	if c.QueryPageSize <= 0 {
		c.QueryPageSize = DefaultQueryPageSize
	}
	if c.PageLines <= 0 {
		c.PageLines = DefaultPageLines
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.MaxWait <= 0 {
		c.MaxWait = DefaultMaxWait
	}
	if c.UserAgent == "" {
		c.UserAgent = "portalsync/1.0"
	}
}

// accountHost lowercases the account id and swaps '_' for '-' as the
// ERP does for sandbox accounts (1234567_SB1 -> 1234567-sb1).
func accountHost(accountID string) string {
	b := []byte(accountID)
	for i, ch := range b {
		switch {
		case ch == '_':
			b[i] = '-'
		case ch >= 'A' && ch <= 'Z':
			b[i] = ch + ('a' - 'A')
		}
	}
	return string(b)
}
