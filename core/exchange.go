package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const defaultGrantTTL = time.Hour

type ExchangeRequest struct {
	Code        string
	Service     GoogleService
	RedirectURI string
}

type ExchangeResult struct {
	Service   GoogleService
	Scope     string
	ExpiresAt time.Time
}

// ExchangeCode swaps an authorization code for tokens and stores them as the
// single authoritative row for (user, service). The domain gate runs before
// any outbound call; nothing is persisted on a failed exchange.
func (s *Service) ExchangeCode(ctx context.Context, id Identity, req ExchangeRequest) (ExchangeResult, error) {
	if s == nil {
		return ExchangeResult{}, fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	result, err := s.exchangeCode(ctx, id, req)
	s.observeOperation(ctx, startedAt, "token_exchange", err, map[string]any{
		"user_id": id.UserID,
		"service": string(req.Service),
	})
	if err != nil {
		return ExchangeResult{}, s.mapError(err)
	}
	return result, nil
}

func (s *Service) exchangeCode(ctx context.Context, id Identity, req ExchangeRequest) (ExchangeResult, error) {
	if err := s.requireAuthorizedDomain(id); err != nil {
		return ExchangeResult{}, err
	}
	service, err := ParseGoogleService(string(req.Service))
	if err != nil {
		return ExchangeResult{}, err
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return ExchangeResult{}, fmt.Errorf("core: authorization code is required")
	}
	if s.tokenClient == nil {
		return ExchangeResult{}, fmt.Errorf("core: token endpoint client is not configured")
	}
	if s.tokenStore == nil {
		return ExchangeResult{}, fmt.Errorf("core: token store is not configured")
	}

	cfg, err := s.clientConfigFor(ctx, id, service)
	if err != nil {
		return ExchangeResult{}, err
	}

	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" {
		redirectURI = strings.TrimSpace(cfg.RedirectURI)
	}

	grant, err := s.tokenClient.Exchange(ctx, ClientCredentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}, code, redirectURI)
	if err != nil {
		return ExchangeResult{}, exchangeFailedError(err)
	}

	expiresAt := s.resolveExpiresAt(grant.ExpiresIn)
	token, err := s.tokenStore.Upsert(ctx, UpsertTokenInput{
		UserID:       id.UserID,
		Service:      service,
		AccessToken:  strings.TrimSpace(grant.AccessToken),
		RefreshToken: strings.TrimSpace(grant.RefreshToken),
		TokenType:    normalizeTokenType(grant.TokenType),
		Scope:        strings.TrimSpace(grant.Scope),
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return ExchangeResult{}, err
	}

	s.appendAccessLog(ctx, AccessLogEntry{
		UserID:   id.UserID,
		Action:   AccessLogServiceConnected,
		Resource: string(service),
		Detail:   "google " + string(service) + " connected",
		Metadata: map[string]any{"scope": token.Scope},
	})
	s.projectIntegrationStatus(ctx, id, service, true, nil)

	return ExchangeResult{
		Service:   service,
		Scope:     token.Scope,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// Revoke calls Google's revocation endpoint best-effort, then removes the
// stored row so a fresh consent flow is required.
func (s *Service) Revoke(ctx context.Context, id Identity, tokenID string) error {
	if s == nil {
		return fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	err := s.revoke(ctx, id, tokenID)
	s.observeOperation(ctx, startedAt, "token_revoke", err, map[string]any{
		"user_id":  id.UserID,
		"token_id": tokenID,
	})
	return s.mapError(err)
}

func (s *Service) revoke(ctx context.Context, id Identity, tokenID string) error {
	if err := s.requireAuthorizedDomain(id); err != nil {
		return err
	}
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return fmt.Errorf("core: token id is required")
	}
	if s.tokenStore == nil {
		return fmt.Errorf("core: token store is not configured")
	}

	token, err := s.tokenStore.Get(ctx, id.UserID, tokenID)
	if err != nil {
		return err
	}

	if s.tokenClient != nil {
		revocable := token.RefreshToken
		if strings.TrimSpace(revocable) == "" {
			revocable = token.AccessToken
		}
		if revokeErr := s.tokenClient.RevokeGrant(ctx, revocable); revokeErr != nil {
			s.logError(ctx, "remote token revocation failed", map[string]any{
				"user_id":  id.UserID,
				"token_id": tokenID,
				"error":    revokeErr.Error(),
			})
		}
	}

	if err := s.tokenStore.Delete(ctx, id.UserID, token.ID); err != nil {
		return err
	}

	s.appendAccessLog(ctx, AccessLogEntry{
		UserID:   id.UserID,
		Action:   AccessLogServiceRevoked,
		Resource: string(token.Service),
		Detail:   "google " + string(token.Service) + " disconnected",
	})
	s.projectIntegrationStatus(ctx, id, token.Service, false, nil)
	return nil
}

type ConfigCheckResult struct {
	ClientID   string
	Configured bool
}

// ConfigCheck reports whether an OAuth client registration exists for the
// service. The client secret is never returned.
func (s *Service) ConfigCheck(ctx context.Context, id Identity, service GoogleService) (ConfigCheckResult, error) {
	if s == nil {
		return ConfigCheckResult{}, fmt.Errorf("core: service is nil")
	}
	if err := s.requireAuthorizedDomain(id); err != nil {
		return ConfigCheckResult{}, s.mapError(err)
	}
	parsed, err := ParseGoogleService(string(service))
	if err != nil {
		return ConfigCheckResult{}, s.mapError(err)
	}
	cfg, err := s.clientConfigFor(ctx, id, parsed)
	if err != nil {
		return ConfigCheckResult{Configured: false}, s.mapError(err)
	}
	return ConfigCheckResult{ClientID: cfg.ClientID, Configured: true}, nil
}

func (s *Service) resolveExpiresAt(expiresIn int64) time.Time {
	ttl := defaultGrantTTL
	if expiresIn > 0 {
		ttl = time.Duration(expiresIn) * time.Second
	}
	return s.now().Add(ttl)
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}
