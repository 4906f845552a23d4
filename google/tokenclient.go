package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lexfirm/google-services/core"
)

const (
	DefaultTokenURL  = "https://oauth2.googleapis.com/token"
	DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

	maxTokenResponseBodyBytes = 1 << 20 // 1 MiB
)

type TokenClientConfig struct {
	TokenURL   string
	RevokeURL  string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// TokenClient talks to Google's OAuth token and revocation endpoints with
// form-encoded requests. Client credentials travel in the request body, which
// is the variant Google documents for web server applications.
type TokenClient struct {
	cfg        TokenClientConfig
	httpClient HTTPDoer
}

func NewTokenClient(cfg TokenClientConfig) *TokenClient {
	cfg.TokenURL = strings.TrimSpace(cfg.TokenURL)
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	cfg.RevokeURL = strings.TrimSpace(cfg.RevokeURL)
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = DefaultRevokeURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &TokenClient{cfg: cfg, httpClient: httpClient}
}

func (c *TokenClient) Exchange(ctx context.Context, creds core.ClientCredentials, code string, redirectURI string) (core.TokenGrant, error) {
	if c == nil {
		return core.TokenGrant{}, fmt.Errorf("google: token client is nil")
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", strings.TrimSpace(code))
	if strings.TrimSpace(redirectURI) != "" {
		form.Set("redirect_uri", strings.TrimSpace(redirectURI))
	}
	return c.fetchGrant(ctx, creds, form)
}

func (c *TokenClient) RefreshGrant(ctx context.Context, creds core.ClientCredentials, refreshToken string) (core.TokenGrant, error) {
	if c == nil {
		return core.TokenGrant{}, fmt.Errorf("google: token client is nil")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", strings.TrimSpace(refreshToken))
	return c.fetchGrant(ctx, creds, form)
}

// RevokeGrant invalidates either token of the pair at Google; revoking a
// refresh token also revokes the access tokens minted from it.
func (c *TokenClient) RevokeGrant(ctx context.Context, token string) error {
	if c == nil {
		return fmt.Errorf("google: token client is nil")
	}
	form := url.Values{}
	form.Set("token", strings.TrimSpace(token))

	statusCode, body, err := c.postForm(ctx, c.cfg.RevokeURL, form)
	if err != nil {
		return err
	}
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		payload, parseErr := parseGrantPayload(body, "")
		if parseErr != nil {
			return &core.GrantError{StatusCode: statusCode, Description: strings.TrimSpace(string(body))}
		}
		return &core.GrantError{
			StatusCode:  statusCode,
			Code:        payload.ErrorCode,
			Description: payload.ErrorDescription,
		}
	}
	return nil
}

func (c *TokenClient) fetchGrant(ctx context.Context, creds core.ClientCredentials, form url.Values) (core.TokenGrant, error) {
	form.Set("client_id", strings.TrimSpace(creds.ClientID))
	form.Set("client_secret", strings.TrimSpace(creds.ClientSecret))

	statusCode, body, err := c.postForm(ctx, c.cfg.TokenURL, form)
	if err != nil {
		return core.TokenGrant{}, err
	}

	payload, parseErr := parseGrantPayload(body, "")
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		if parseErr != nil {
			return core.TokenGrant{}, &core.GrantError{
				StatusCode:  statusCode,
				Description: strings.TrimSpace(string(body)),
			}
		}
		return core.TokenGrant{}, &core.GrantError{
			StatusCode:  statusCode,
			Code:        payload.ErrorCode,
			Description: payload.ErrorDescription,
		}
	}
	if parseErr != nil {
		return core.TokenGrant{}, fmt.Errorf("google: decode token response: %w", parseErr)
	}
	if payload.ErrorCode != "" {
		return core.TokenGrant{}, &core.GrantError{
			StatusCode:  statusCode,
			Code:        payload.ErrorCode,
			Description: payload.ErrorDescription,
		}
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.TokenGrant{}, fmt.Errorf("google: token endpoint response missing access token")
	}

	return core.TokenGrant{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    payload.TokenType,
		Scope:        payload.Scope,
		ExpiresIn:    payload.ExpiresIn,
	}, nil
}

func (c *TokenClient) postForm(ctx context.Context, endpoint string, form url.Values) (int, []byte, error) {
	if c.httpClient == nil {
		return 0, nil, fmt.Errorf("google: http client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set(headerContentType, contentTypeFormEncoded)
	req.Header.Set(headerAccept, contentTypeJSON)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("google: token request failed: %w", err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return response.StatusCode, nil, fmt.Errorf("google: read token response: %w", readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return response.StatusCode, nil, fmt.Errorf("google: token response exceeds %d bytes", maxTokenResponseBodyBytes)
	}
	return response.StatusCode, body, nil
}

type grantPayload struct {
	AccessToken      string
	TokenType        string
	RefreshToken     string
	Scope            string
	ExpiresIn        int64
	ErrorCode        string
	ErrorDescription string
}

// parseGrantPayload accepts both JSON and form-encoded token responses; some
// OAuth endpoints still answer the latter.
func parseGrantPayload(body []byte, contentType string) (grantPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseGrantPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseGrantPayloadForm(body)
	}
	if payload, err := parseGrantPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseGrantPayloadForm(body)
}

func parseGrantPayloadJSON(body []byte) (grantPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return grantPayload{}, fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return grantPayload{}, err
	}
	return grantPayload{
		AccessToken:      readAnyString(decoded["access_token"]),
		TokenType:        readAnyString(decoded["token_type"]),
		RefreshToken:     readAnyString(decoded["refresh_token"]),
		Scope:            readAnyString(decoded["scope"]),
		ExpiresIn:        readAnyInt64(decoded["expires_in"]),
		ErrorCode:        readAnyString(decoded["error"]),
		ErrorDescription: readAnyString(decoded["error_description"]),
	}, nil
}

func parseGrantPayloadForm(body []byte) (grantPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return grantPayload{}, fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return grantPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return grantPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		RefreshToken:     strings.TrimSpace(values.Get("refresh_token")),
		Scope:            strings.TrimSpace(values.Get("scope")),
		ExpiresIn:        expiresIn,
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		return ""
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case float64:
		return int64(typed)
	case int64:
		return typed
	case int:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

var _ core.TokenEndpointClient = (*TokenClient)(nil)
