package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DevSentinel is returned instead of a real token when provider credentials
// are absent outside production. Transports seeing it must simulate delivery
// instead of calling the network.
const DevSentinel = "dev-no-token"

// ErrNotConfigured means the provider credentials are missing in a
// production configuration. Fatal for the provider, never retried.
var ErrNotConfigured = errors.New("provider credentials not configured")

const safetyMargin = 60 * time.Second

type credential struct {
	token     string
	expiresAt time.Time
}

// Cache holds one short-lived bearer token per provider endpoint and
// refreshes it proactively before expiry. Tokens live only in process memory
// and are replaced, never mutated.
type Cache struct {
	tokenURL     string
	clientID     string
	clientSecret string
	production   bool

	client *http.Client
	logger *logrus.Logger

	mu     sync.Mutex
	cached *credential
	now    func() time.Time
}

// NewCache builds a credential cache for one token endpoint.
func NewCache(tokenURL, clientID, clientSecret string, production bool, logger *logrus.Logger) *Cache {
	return &Cache{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		production:   production,
		client:       &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
		now:          time.Now,
	}
}

// Token returns a valid bearer token, exchanging client credentials with the
// token endpoint when the cached one is missing or near expiry. Exchange
// failures are surfaced and never cached.
func (c *Cache) Token(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		if c.production {
			return "", ErrNotConfigured
		}
		c.logger.Warn("SMS credentials absent, returning dev sentinel token (deliveries will be SIMULATED)")
		return DevSentinel, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.now().Before(c.cached.expiresAt.Add(-safetyMargin)) {
		return c.cached.token, nil
	}

	tok, ttl, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}

	c.cached = &credential{token: tok, expiresAt: c.now().Add(ttl)}
	c.logger.Debugf("obtained provider token, ttl=%s", ttl)
	return tok, nil
}

// exchange performs a client-credentials grant against the token endpoint.
func (c *Cache) exchange(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", 0, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", 0, fmt.Errorf("token endpoint returned empty access_token")
	}
	if out.ExpiresIn <= 0 {
		out.ExpiresIn = 300
	}
	return out.AccessToken, time.Duration(out.ExpiresIn) * time.Second, nil
}
