package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type countingResolver struct {
	mu     sync.Mutex
	calls  int
	tokens []string
	errs   []error
}

func (r *countingResolver) ResolveAccessToken(_ context.Context, _ Identity, _ GoogleService) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	index := r.calls
	r.calls++
	if index < len(r.errs) && r.errs[index] != nil {
		return "", r.errs[index]
	}
	if index < len(r.tokens) {
		return r.tokens[index], nil
	}
	return fmt.Sprintf("token-%d", index), nil
}

func (r *countingResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestTokenCacheHitSkipsResolver(t *testing.T) {
	resolver := &countingResolver{tokens: []string{"cached-token"}}
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	cache := NewTokenCache(resolver, 4*time.Minute, WithCacheClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		got, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), ServiceCalendar)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if got != "cached-token" {
			t.Fatalf("get %d: expected cached token, got %q", i, got)
		}
	}
	if resolver.callCount() != 1 {
		t.Fatalf("expected one resolver call, got %d", resolver.callCount())
	}
}

func TestTokenCacheExpiryTriggersReresolve(t *testing.T) {
	resolver := &countingResolver{tokens: []string{"first", "second"}}
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	cache := NewTokenCache(resolver, 4*time.Minute, WithCacheClock(func() time.Time { return now }))

	if _, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), ServiceCalendar); err != nil {
		t.Fatalf("first get: %v", err)
	}

	now = now.Add(5 * time.Minute)
	got, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), ServiceCalendar)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if got != "second" {
		t.Fatalf("expected re-resolved token, got %q", got)
	}
	if resolver.callCount() != 2 {
		t.Fatalf("expected two resolver calls, got %d", resolver.callCount())
	}
}

func TestTokenCacheEntriesArePerService(t *testing.T) {
	resolver := &countingResolver{tokens: []string{"calendar-token", "sheets-token"}}
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	cache := NewTokenCache(resolver, 4*time.Minute, WithCacheClock(func() time.Time { return now }))

	calendarToken, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), ServiceCalendar)
	if err != nil {
		t.Fatalf("calendar get: %v", err)
	}
	sheetsToken, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), ServiceSheets)
	if err != nil {
		t.Fatalf("sheets get: %v", err)
	}
	if calendarToken == sheetsToken {
		t.Fatal("expected distinct entries per service")
	}
	if resolver.callCount() != 2 {
		t.Fatalf("expected two resolver calls, got %d", resolver.callCount())
	}
}

func TestTokenCacheResolverFailureInvalidates(t *testing.T) {
	resolver := &countingResolver{
		tokens: []string{"first", "", "third"},
		errs:   []error{nil, fmt.Errorf("upstream down")},
	}
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	cache := NewTokenCache(resolver, 4*time.Minute, WithCacheClock(func() time.Time { return now }))

	if _, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), ServiceCalendar); err != nil {
		t.Fatalf("first get: %v", err)
	}

	now = now.Add(5 * time.Minute)
	if _, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), ServiceCalendar); err == nil {
		t.Fatal("expected resolver failure surfaced")
	}

	got, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), ServiceCalendar)
	if err != nil {
		t.Fatalf("third get: %v", err)
	}
	if got != "third" {
		t.Fatalf("expected fresh resolution after failure, got %q", got)
	}
}

func TestTokenCacheInvalidate(t *testing.T) {
	resolver := &countingResolver{tokens: []string{"first", "second"}}
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	cache := NewTokenCache(resolver, 4*time.Minute, WithCacheClock(func() time.Time { return now }))

	if _, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), ServiceDrive); err != nil {
		t.Fatalf("first get: %v", err)
	}
	cache.Invalidate(authorizedIdentity(), ServiceDrive)

	got, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), ServiceDrive)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if got != "second" {
		t.Fatalf("expected re-resolution after invalidate, got %q", got)
	}
}

type perUserResolver struct {
	mu    sync.Mutex
	calls int
}

func (r *perUserResolver) ResolveAccessToken(_ context.Context, id Identity, _ GoogleService) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return "token-for-" + id.UserID, nil
}

func (r *perUserResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestTokenCacheIsolatesUsers(t *testing.T) {
	resolver := &perUserResolver{}
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	cache := NewTokenCache(resolver, 4*time.Minute, WithCacheClock(func() time.Time { return now }))

	ana := Identity{UserID: "usr_1", Email: "ana@mrladvogados.com.br"}
	bruno := Identity{UserID: "usr_2", Email: "bruno@mrladvogados.com.br"}

	anaToken, err := cache.GetValidAccessToken(context.Background(), ana, ServiceCalendar)
	if err != nil {
		t.Fatalf("ana get: %v", err)
	}
	brunoToken, err := cache.GetValidAccessToken(context.Background(), bruno, ServiceCalendar)
	if err != nil {
		t.Fatalf("bruno get: %v", err)
	}
	if brunoToken == anaToken {
		t.Fatalf("second user was served the first user's credential %q", brunoToken)
	}
	if brunoToken != "token-for-usr_2" {
		t.Fatalf("unexpected token for second user: %q", brunoToken)
	}
	if resolver.callCount() != 2 {
		t.Fatalf("expected one resolution per user, got %d", resolver.callCount())
	}

	// Evicting one user's entry leaves the other's untouched.
	cache.Invalidate(bruno, ServiceCalendar)
	if _, err := cache.GetValidAccessToken(context.Background(), ana, ServiceCalendar); err != nil {
		t.Fatalf("ana re-get: %v", err)
	}
	if resolver.callCount() != 2 {
		t.Fatalf("invalidating one user evicted another's entry (calls: %d)", resolver.callCount())
	}
}

func TestTokenCacheRejectsUnknownService(t *testing.T) {
	cache := NewTokenCache(&countingResolver{}, time.Minute)
	if _, err := cache.GetValidAccessToken(context.Background(), authorizedIdentity(), GoogleService("gmail")); err == nil {
		t.Fatal("expected invalid service error")
	}
}
