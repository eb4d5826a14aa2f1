package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/reddit-pulse/internal/httpx"
	"github.com/onnwee/reddit-pulse/internal/logger"
	"github.com/onnwee/reddit-pulse/internal/secrets"
)

const tokenURL = "https://www.reddit.com/api/v1/access_token"

// tokenManager owns the OAuth client-credentials lifecycle for the API
// backend. Tokens renew 60s before expiry; short-lived tokens renew at
// half-life.
type tokenManager struct {
	mu           sync.RWMutex
	accessToken  string
	tokenExpiry  time.Time
	clientID     string
	clientSecret string
	userAgent    string
	client       *httpx.Client
}

func newTokenManager(client *httpx.Client, clientID, clientSecret, userAgent string) *tokenManager {
	return &tokenManager{
		client:       client,
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
	}
}

// Validate checks that credentials are present and can mint a token.
func (tm *tokenManager) Validate(ctx context.Context) error {
	if tm.clientID == "" || tm.clientSecret == "" {
		return fmt.Errorf("%w: REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required", ErrAuthFailed)
	}
	if _, err := tm.Token(ctx); err != nil {
		return err
	}
	logger.Info("oauth credentials validated", "client_id", secrets.Mask(tm.clientID))
	return nil
}

// Token returns a valid access token, refreshing when within 60s of expiry.
func (tm *tokenManager) Token(ctx context.Context) (string, error) {
	tm.mu.RLock()
	if tm.accessToken != "" && time.Now().Add(60*time.Second).Before(tm.tokenExpiry) {
		token := tm.accessToken
		tm.mu.RUnlock()
		return token, nil
	}
	tm.mu.RUnlock()

	tm.mu.Lock()
	defer tm.mu.Unlock()

	// Another goroutine may have refreshed while we waited on the lock.
	if tm.accessToken != "" && time.Now().Add(60*time.Second).Before(tm.tokenExpiry) {
		return tm.accessToken, nil
	}
	return tm.refreshLocked(ctx)
}

func (tm *tokenManager) refreshLocked(ctx context.Context) (string, error) {
	if tm.clientID == "" || tm.clientSecret == "" {
		return "", fmt.Errorf("%w: credentials not configured", ErrAuthFailed)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "read")

	resp, err := tm.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(tm.clientID, tm.clientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", tm.userAgent)
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed: status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthFailed)
	}

	tm.accessToken = tokenResp.AccessToken
	ttl := time.Duration(tokenResp.ExpiresIn) * time.Second
	if ttl > 120*time.Second {
		ttl -= 60 * time.Second
	} else {
		ttl /= 2
	}
	tm.tokenExpiry = time.Now().Add(ttl)

	logger.Info("obtained reddit access token", "expires_in", ttl)
	return tm.accessToken, nil
}

// Invalidate drops the cached token so the next call re-authenticates.
// Called after a 401 from the API.
func (tm *tokenManager) Invalidate() {
	tm.mu.Lock()
	tm.accessToken = ""
	tm.tokenExpiry = time.Time{}
	tm.mu.Unlock()
}
