package core

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type memoryTokenStore struct {
	mu          sync.Mutex
	tokens      map[string]Token
	seq         int
	upsertCalls int
	updateCalls int
	deleteCalls int
	failUpdate  error
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{tokens: map[string]Token{}}
}

func (s *memoryTokenStore) seed(token Token) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if strings.TrimSpace(token.ID) == "" {
		token.ID = "tok_" + strconv.Itoa(s.seq)
	}
	if token.Revision == 0 {
		token.Revision = 1
	}
	s.tokens[token.ID] = token
	return token
}

func (s *memoryTokenStore) Newest(_ context.Context, userID string, service GoogleService) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := make([]Token, 0, len(s.tokens))
	for _, token := range s.tokens {
		if token.UserID == userID && token.Service == service {
			matches = append(matches, token)
		}
	}
	if len(matches) == 0 {
		return Token{}, ErrTokenNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches[0], nil
}

func (s *memoryTokenStore) Get(_ context.Context, userID string, id string) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok || token.UserID != userID {
		return Token{}, ErrTokenNotFound
	}
	return token, nil
}

func (s *memoryTokenStore) Upsert(_ context.Context, in UpsertTokenInput) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	for id, token := range s.tokens {
		if token.UserID == in.UserID && token.Service == in.Service {
			delete(s.tokens, id)
		}
	}
	s.seq++
	token := Token{
		ID:           "tok_upsert_" + strconv.Itoa(s.seq),
		UserID:       in.UserID,
		Service:      in.Service,
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		TokenType:    in.TokenType,
		Scope:        in.Scope,
		ExpiresAt:    in.ExpiresAt,
		Revision:     1,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	s.tokens[token.ID] = token
	return token, nil
}

func (s *memoryTokenStore) UpdateAccess(_ context.Context, in UpdateAccessTokenInput) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.failUpdate != nil {
		return Token{}, s.failUpdate
	}
	token, ok := s.tokens[in.ID]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	if token.Revision != in.Revision {
		return Token{}, ErrTokenRevisionStale
	}
	token.AccessToken = in.AccessToken
	token.ExpiresAt = in.ExpiresAt
	token.Revision++
	token.UpdatedAt = time.Now().UTC()
	s.tokens[in.ID] = token
	return token, nil
}

func (s *memoryTokenStore) Delete(_ context.Context, userID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	token, ok := s.tokens[id]
	if !ok || token.UserID != userID {
		return ErrTokenNotFound
	}
	delete(s.tokens, id)
	return nil
}

func (s *memoryTokenStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

type memoryClientConfigStore struct {
	mu      sync.Mutex
	configs map[string]ClientConfig
}

func newMemoryClientConfigStore() *memoryClientConfigStore {
	return &memoryClientConfigStore{configs: map[string]ClientConfig{}}
}

func configKey(userID string, service GoogleService) string {
	return userID + "/" + string(service)
}

func (s *memoryClientConfigStore) seed(cfg ClientConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[configKey(cfg.UserID, cfg.Service)] = cfg
}

func (s *memoryClientConfigStore) Get(_ context.Context, userID string, service GoogleService) (ClientConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[configKey(userID, service)]
	if !ok {
		return ClientConfig{}, ErrClientConfigNotFound
	}
	return cfg, nil
}

func (s *memoryClientConfigStore) Upsert(_ context.Context, in UpsertClientConfigInput) (ClientConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := ClientConfig{
		ID:           configKey(in.UserID, in.Service),
		UserID:       in.UserID,
		Service:      in.Service,
		ClientID:     in.ClientID,
		ClientSecret: in.ClientSecret,
		RedirectURI:  in.RedirectURI,
	}
	s.configs[configKey(in.UserID, in.Service)] = cfg
	return cfg, nil
}

func (s *memoryClientConfigStore) Delete(_ context.Context, userID string, service GoogleService) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, configKey(userID, service))
	return nil
}

type memoryIntegrationStore struct {
	mu           sync.Mutex
	integrations map[string]Integration
}

func newMemoryIntegrationStore() *memoryIntegrationStore {
	return &memoryIntegrationStore{integrations: map[string]Integration{}}
}

func (s *memoryIntegrationStore) Get(_ context.Context, userID string, service GoogleService) (Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	integration, ok := s.integrations[configKey(userID, service)]
	if !ok {
		return Integration{}, ErrIntegrationNotFound
	}
	return integration, nil
}

func (s *memoryIntegrationStore) Upsert(_ context.Context, in UpsertIntegrationInput) (Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	integration := Integration{
		ID:           configKey(in.UserID, in.Service),
		UserID:       in.UserID,
		Service:      in.Service,
		IsConnected:  in.IsConnected,
		LastSyncedAt: in.LastSyncedAt,
		Settings:     in.Settings,
	}
	s.integrations[integration.ID] = integration
	return integration, nil
}

type memoryAccessLogStore struct {
	mu      sync.Mutex
	entries []AccessLogEntry
}

func (s *memoryAccessLogStore) Append(_ context.Context, entry AccessLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryAccessLogStore) actions() []AccessLogAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AccessLogAction, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.Action)
	}
	return out
}

type scriptedGrant struct {
	grant TokenGrant
	err   error
}

type fakeTokenEndpointClient struct {
	mu            sync.Mutex
	exchangeCalls int
	refreshCalls  int
	revokeCalls   int
	exchanges     []scriptedGrant
	refreshes     []scriptedGrant
	revokeErr     error
}

func (c *fakeTokenEndpointClient) Exchange(_ context.Context, _ ClientCredentials, _ string, _ string) (TokenGrant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	index := c.exchangeCalls
	c.exchangeCalls++
	if index < len(c.exchanges) {
		return c.exchanges[index].grant, c.exchanges[index].err
	}
	return TokenGrant{AccessToken: "exchanged-access", ExpiresIn: 3600}, nil
}

func (c *fakeTokenEndpointClient) RefreshGrant(_ context.Context, _ ClientCredentials, _ string) (TokenGrant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	index := c.refreshCalls
	c.refreshCalls++
	if index < len(c.refreshes) {
		return c.refreshes[index].grant, c.refreshes[index].err
	}
	return TokenGrant{AccessToken: "refreshed-access", ExpiresIn: 3600}, nil
}

func (c *fakeTokenEndpointClient) RevokeGrant(_ context.Context, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revokeCalls++
	return c.revokeErr
}

type serviceFixture struct {
	service      *Service
	tokens       *memoryTokenStore
	configs      *memoryClientConfigStore
	integrations *memoryIntegrationStore
	accessLog    *memoryAccessLogStore
	client       *fakeTokenEndpointClient
	now          time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	fixture := &serviceFixture{
		tokens:       newMemoryTokenStore(),
		configs:      newMemoryClientConfigStore(),
		integrations: newMemoryIntegrationStore(),
		accessLog:    &memoryAccessLogStore{},
		client:       &fakeTokenEndpointClient{},
		now:          time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}

	service, err := NewService(Config{},
		WithTokenStore(fixture.tokens),
		WithClientConfigStore(fixture.configs),
		WithIntegrationStore(fixture.integrations),
		WithAccessLogStore(fixture.accessLog),
		WithTokenEndpointClient(fixture.client),
		WithClock(func() time.Time { return fixture.now }),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	fixture.service = service
	return fixture
}

func authorizedIdentity() Identity {
	return Identity{UserID: "usr_1", Email: "ana@mrladvogados.com.br"}
}

func (f *serviceFixture) seedCalendarConfig() {
	f.configs.seed(ClientConfig{
		UserID:       "usr_1",
		Service:      ServiceCalendar,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://crm.example/oauth/callback",
	})
}
