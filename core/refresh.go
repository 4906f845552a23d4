package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ResolveAccessToken returns a currently valid access token for the caller's
// (user, service) connection, refreshing through the stored refresh token
// when the cached one is inside the expiry lead window.
//
// Concurrent resolutions take no lock: each call re-checks persisted state,
// and the revision compare-and-swap makes the slower refresher adopt the
// winner's row instead of clobbering it.
func (s *Service) ResolveAccessToken(ctx context.Context, id Identity, service GoogleService) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: service is nil")
	}
	startedAt := s.now()
	token, refreshed, err := s.resolveAccessToken(ctx, id, service)
	s.observeOperation(ctx, startedAt, "token_resolve", err, map[string]any{
		"user_id":   id.UserID,
		"service":   string(service),
		"refreshed": refreshed,
	})
	if err != nil {
		return "", s.mapError(err)
	}
	return token, nil
}

func (s *Service) resolveAccessToken(ctx context.Context, id Identity, service GoogleService) (string, bool, error) {
	if err := s.requireAuthorizedDomain(id); err != nil {
		return "", false, err
	}
	parsed, err := ParseGoogleService(string(service))
	if err != nil {
		return "", false, err
	}
	if s.tokenStore == nil {
		return "", false, fmt.Errorf("core: token store is not configured")
	}

	token, err := s.tokenStore.Newest(ctx, id.UserID, parsed)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return "", false, notConnectedError(parsed)
		}
		return "", false, err
	}

	now := s.now()
	if !token.ExpiresWithin(now, s.config.RefreshLeadWindow()) {
		return token.AccessToken, false, nil
	}

	if !token.Refreshable() {
		return "", false, reconnectRequiredError(parsed, "stored token has no refresh grant")
	}
	if s.tokenClient == nil {
		return "", false, fmt.Errorf("core: token endpoint client is not configured")
	}

	cfg, err := s.clientConfigFor(ctx, id, parsed)
	if err != nil {
		return "", false, err
	}

	grant, err := s.tokenClient.RefreshGrant(ctx, ClientCredentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}, token.RefreshToken)
	if err != nil {
		var grantErr *GrantError
		if errors.As(err, &grantErr) && grantErr.InvalidGrant() {
			// The grant is permanently revoked; delete the row so the UI
			// forces a full consent flow instead of retrying forever.
			if deleteErr := s.tokenStore.Delete(ctx, id.UserID, token.ID); deleteErr != nil {
				s.logError(ctx, "revoked token cleanup failed", map[string]any{
					"user_id":  id.UserID,
					"token_id": token.ID,
					"error":    deleteErr.Error(),
				})
			}
			s.projectIntegrationStatus(ctx, id, parsed, false, nil)
			return "", false, reconnectRequiredError(parsed, grantErr.Description)
		}
		return "", false, refreshFailedError(err)
	}

	accessToken := strings.TrimSpace(grant.AccessToken)
	updated, err := s.tokenStore.UpdateAccess(ctx, UpdateAccessTokenInput{
		ID:          token.ID,
		Revision:    token.Revision,
		AccessToken: accessToken,
		ExpiresAt:   s.resolveExpiresAt(grant.ExpiresIn),
	})
	if err != nil {
		if errors.Is(err, ErrTokenRevisionStale) {
			// A concurrent refresh won the write; its token is just as valid.
			winner, reloadErr := s.tokenStore.Newest(ctx, id.UserID, parsed)
			if reloadErr != nil {
				return "", false, reloadErr
			}
			return winner.AccessToken, true, nil
		}
		return "", false, err
	}

	s.appendAccessLog(ctx, AccessLogEntry{
		UserID:   id.UserID,
		Action:   AccessLogTokenRefreshed,
		Resource: string(parsed),
		Detail:   "access token refreshed",
	})
	return updated.AccessToken, true, nil
}

// ConnectionStatus derives connection state from token resolution alone and
// refreshes the integrations projection as a side effect.
func (s *Service) ConnectionStatus(ctx context.Context, id Identity, service GoogleService) (ConnectionState, error) {
	if s == nil {
		return ConnectionState{}, fmt.Errorf("core: service is nil")
	}
	if err := s.requireAuthorizedDomain(id); err != nil {
		return ConnectionState{}, s.mapError(err)
	}
	parsed, err := ParseGoogleService(string(service))
	if err != nil {
		return ConnectionState{}, s.mapError(err)
	}
	if s.tokenStore == nil {
		return ConnectionState{}, s.mapError(fmt.Errorf("core: token store is not configured"))
	}

	state := ConnectionState{Service: parsed}
	token, err := s.tokenStore.Newest(ctx, id.UserID, parsed)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			s.projectIntegrationStatus(ctx, id, parsed, false, nil)
			return state, nil
		}
		return ConnectionState{}, s.mapError(err)
	}

	expiresAt := token.ExpiresAt
	state.ExpiresAt = &expiresAt
	state.Refreshable = token.Refreshable()
	expired := token.ExpiresWithin(s.now(), s.config.RefreshLeadWindow())
	state.Connected = !expired || token.Refreshable()
	state.ReconnectNeed = expired && !token.Refreshable()

	if s.integrationStore != nil {
		if integration, getErr := s.integrationStore.Get(ctx, id.UserID, parsed); getErr == nil {
			state.LastSyncedAt = integration.LastSyncedAt
		}
	}
	s.projectIntegrationStatus(ctx, id, parsed, state.Connected, state.LastSyncedAt)
	return state, nil
}
