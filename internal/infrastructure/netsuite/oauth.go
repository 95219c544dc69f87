package netsuite

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	assertionLifetime   = 5 * time.Minute
)

var (
	ErrOAuthMissingTokenURL = errors.New("netsuite: oauth token url is required")
	ErrOAuthMissingClientID = errors.New("netsuite: oauth client id is required")
	ErrOAuthMissingKey      = errors.New("netsuite: oauth private key is required")
)

// OAuthConfig configures the machine-to-machine client credentials flow.
type OAuthConfig struct {
	TokenURL      string
	ClientID      string
	CertificateID string
	// PrivateKeyPEM takes precedence over PrivateKeyFile.
	PrivateKeyPEM  string
	PrivateKeyFile string
	Scopes         []string
}

// assertionClaims are the claims of the signed client assertion.
type assertionClaims struct {
	Scope []string `json:"scope"`
	jwt.RegisteredClaims
}

// ClientCredentials fetches tokens with a PS256-signed JWT assertion.
type ClientCredentials struct {
	cfg        OAuthConfig
	key        *rsa.PrivateKey
	httpClient *http.Client
	now        func() time.Time
}

// NewClientCredentials parses the signing key and returns a fetcher.
func NewClientCredentials(cfg OAuthConfig, httpClient *http.Client) (*ClientCredentials, error) {
	if cfg.TokenURL == "" {
		return nil, ErrOAuthMissingTokenURL
	}
	if cfg.ClientID == "" {
		return nil, ErrOAuthMissingClientID
	}
	pemData := []byte(cfg.PrivateKeyPEM)
	if len(pemData) == 0 && cfg.PrivateKeyFile != "" {
		data, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("netsuite: read private key: %w", err)
		}
		pemData = data
	}
	if len(pemData) == 0 {
		return nil, ErrOAuthMissingKey
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("netsuite: parse private key: %w", err)
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"rest_webservices", "restlets"}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ClientCredentials{cfg: cfg, key: key, httpClient: httpClient, now: time.Now}, nil
}

// Assertion builds the signed client assertion.
func (c *ClientCredentials) Assertion() (string, error) {
	now := c.now()
	claims := assertionClaims{
		Scope: c.cfg.Scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.cfg.ClientID,
			Audience:  jwt.ClaimStrings{c.cfg.TokenURL},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodPS256, claims)
	if c.cfg.CertificateID != "" {
		token.Header["kid"] = c.cfg.CertificateID
	}
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("netsuite: sign assertion: %w", err)
	}
	return signed, nil
}

// FetchToken exchanges a fresh assertion for an access token.
func (c *ClientCredentials) FetchToken(ctx context.Context) (*Token, error) {
	assertion, err := c.Assertion()
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_assertion_type", clientAssertionType)
	form.Set("client_assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("netsuite: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issuedAt := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("netsuite: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("netsuite: read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("netsuite: token endpoint returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("netsuite: decode token response: %w", err)
	}
	if out.ExpiresIn <= 0 {
		out.ExpiresIn = 3600
	}
	return &Token{
		AccessToken: out.AccessToken,
		ExpiresAt:   issuedAt.Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}
