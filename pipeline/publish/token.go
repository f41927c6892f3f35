package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// expirySkew is subtracted from a token's lifetime so callers never hand a
// sink a token about to lapse mid-request.
const expirySkew = 5 * time.Minute

type tokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// TokenCache acquires and caches bearer credentials for social sinks. The
// cache is shared across all publish operations for a target; refreshes
// collapse through singleflight so concurrent callers observing an expired
// token trigger exactly one request.
type TokenCache struct {
	store  tokenStore
	client *http.Client
	group  singleflight.Group
}

func NewTokenCache(store tokenStore) *TokenCache {
	return &TokenCache{
		store:  store,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func tokenKey(targetID string) string {
	return "publish:token:" + targetID
}

// Token returns a valid bearer token for the target, refreshing on a cache
// miss.
func (c *TokenCache) Token(ctx context.Context, target Target) (string, error) {
	token, err := c.store.Get(ctx, tokenKey(target.ID))
	if err == nil && token != "" {
		return token, nil
	}
	return c.refresh(ctx, target)
}

// ForceRefresh drops the cached token and acquires a fresh one. Used after a
// sink rejects the current credential with 401.
func (c *TokenCache) ForceRefresh(ctx context.Context, target Target) (string, error) {
	if err := c.store.Delete(ctx, tokenKey(target.ID)); err != nil {
		log.Warn().Err(err).Str("target", target.Name).Msg("Error evicting cached token")
	}
	return c.refresh(ctx, target)
}

func (c *TokenCache) refresh(ctx context.Context, target Target) (string, error) {
	v, err, _ := c.group.Do(target.ID, func() (interface{}, error) {
		return c.requestToken(ctx, target)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *TokenCache) requestToken(ctx context.Context, target Target) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", target.Credentials.ClientID)
	form.Set("client_secret", target.Credentials.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.Credentials.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request for %s: %w", target.Name, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request for %s failed: %w", target.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response for %s: %w", target.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint for %s returned %d: %s", target.Name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse token response for %s: %w", target.Name, err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token endpoint for %s returned no access_token", target.Name)
	}

	ttl := time.Duration(parsed.ExpiresIn) * time.Second
	if ttl > expirySkew {
		ttl -= expirySkew
	}
	if ttl > 0 {
		if err := c.store.Set(ctx, tokenKey(target.ID), parsed.AccessToken, ttl); err != nil {
			log.Warn().Err(err).Str("target", target.Name).Msg("Error caching token")
		}
	}
	return parsed.AccessToken, nil
}
