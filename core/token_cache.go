package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// cacheKey scopes entries to their owner. A shared cache instance serves
// every authenticated identity, so service alone is not a safe key.
type cacheKey struct {
	userID  string
	service GoogleService
}

// TokenCache fronts ResolveAccessToken with a short-lived in-process cache so
// repeated external-API calls within a session avoid redundant round-trips.
// The local TTL is independent of the token's server-side expiry and bounds
// how stale the client's belief about validity can get; it must stay below
// Google's minimum token lifetime.
type TokenCache struct {
	mu       sync.Mutex
	resolver AccessTokenResolver
	ttl      time.Duration
	nowFn    func() time.Time
	entries  map[cacheKey]cachedToken
}

type TokenCacheOption func(*TokenCache)

func WithCacheClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) {
		if now != nil {
			c.nowFn = now
		}
	}
}

func NewTokenCache(resolver AccessTokenResolver, ttl time.Duration, options ...TokenCacheOption) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultClientCacheTTL
	}
	cache := &TokenCache{
		resolver: resolver,
		ttl:      ttl,
		nowFn:    func() time.Time { return time.Now().UTC() },
		entries:  map[cacheKey]cachedToken{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cache)
	}
	return cache
}

// GetValidAccessToken returns the cached token on an unexpired hit with no
// network activity; on a miss it resolves, caches, and returns. A resolver
// failure invalidates any entry for the service before surfacing the error.
func (c *TokenCache) GetValidAccessToken(ctx context.Context, id Identity, service GoogleService) (string, error) {
	if c == nil {
		return "", fmt.Errorf("core: token cache is not configured")
	}
	if c.resolver == nil {
		return "", fmt.Errorf("core: token cache resolver is not configured")
	}
	parsed, err := ParseGoogleService(string(service))
	if err != nil {
		return "", err
	}

	key := cacheKey{userID: id.UserID, service: parsed}
	now := c.nowFn().UTC()
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && entry.expiresAt.After(now) {
		return entry.token, nil
	}

	token, err := c.resolver.ResolveAccessToken(ctx, id, parsed)
	if err != nil {
		c.Invalidate(id, parsed)
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = cachedToken{token: token, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()
	return token, nil
}

// Invalidate drops the caller's entry only; a rejected token for one user
// must not evict another user's still-valid entry.
func (c *TokenCache) Invalidate(id Identity, service GoogleService) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, cacheKey{userID: id.UserID, service: service})
	c.mu.Unlock()
}

func (c *TokenCache) InvalidateAll() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = map[cacheKey]cachedToken{}
	c.mu.Unlock()
}

var _ AccessTokenGetter = (*TokenCache)(nil)

// AccessTokenGetter is what integration services depend on.
type AccessTokenGetter interface {
	GetValidAccessToken(ctx context.Context, id Identity, service GoogleService) (string, error)
	Invalidate(id Identity, service GoogleService)
}
