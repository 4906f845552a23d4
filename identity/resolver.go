// Package identity resolves the Google account behind a stored access token.
// The CRM integrations screen uses it to show which account a service is
// connected as.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/lexfirm/google-services/core"
	"github.com/lexfirm/google-services/google"
)

const defaultUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

var ErrProfileNotFound = errors.New("identity: profile not found")

// ProfileNotFoundError wraps upstream auth failures so callers can treat a
// dead token as "no profile" instead of a hard API error.
type ProfileNotFoundError struct {
	Cause error
}

func (e *ProfileNotFoundError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrProfileNotFound.Error()
	}
	return ErrProfileNotFound.Error() + ": " + e.Cause.Error()
}

func (e *ProfileNotFoundError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrProfileNotFound
	}
	return errors.Join(ErrProfileNotFound, e.Cause)
}

func (e *ProfileNotFoundError) ToServiceError() *goerrors.Error {
	message := ErrProfileNotFound.Error()
	if e != nil && e.Cause != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.ErrorCodeNotConnected)
}

func profileNotFound(cause error) error {
	return &ProfileNotFoundError{Cause: cause}
}

// UserProfile is the normalized OpenID Connect userinfo payload.
type UserProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	PictureURL    string
	Locale        string
	Raw           map[string]any
}

func (p UserProfile) Map() map[string]any {
	metadata := map[string]any{
		"subject":        strings.TrimSpace(p.Subject),
		"email":          strings.TrimSpace(p.Email),
		"email_verified": p.EmailVerified,
		"name":           strings.TrimSpace(p.Name),
		"given_name":     strings.TrimSpace(p.GivenName),
		"family_name":    strings.TrimSpace(p.FamilyName),
		"picture_url":    strings.TrimSpace(p.PictureURL),
		"locale":         strings.TrimSpace(p.Locale),
	}
	if len(p.Raw) > 0 {
		raw := make(map[string]any, len(p.Raw))
		for key, value := range p.Raw {
			raw[key] = value
		}
		metadata["raw"] = raw
	}
	return metadata
}

type Config struct {
	Tokens      core.AccessTokenGetter
	Client      google.HTTPDoer
	UserInfoURL string
}

// GoogleProfileResolver fetches the userinfo document with a valid access
// token for the requested service. Any of the three service tokens works;
// they all identify the same Google account.
type GoogleProfileResolver struct {
	tokens      core.AccessTokenGetter
	client      google.HTTPDoer
	userInfoURL string
}

func NewGoogleProfileResolver(cfg Config) (*GoogleProfileResolver, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("identity: access token getter is required")
	}
	client := cfg.Client
	if client == nil {
		client = google.DefaultHTTPClient()
	}
	userInfoURL := strings.TrimSpace(cfg.UserInfoURL)
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}
	return &GoogleProfileResolver{
		tokens:      cfg.Tokens,
		client:      client,
		userInfoURL: userInfoURL,
	}, nil
}

func (r *GoogleProfileResolver) Resolve(ctx context.Context, id core.Identity, service core.GoogleService) (UserProfile, error) {
	if r == nil {
		return UserProfile{}, fmt.Errorf("identity: resolver is nil")
	}
	accessToken, err := r.tokens.GetValidAccessToken(ctx, id, service)
	if err != nil {
		return UserProfile{}, err
	}

	status, body, err := google.DoJSON(ctx, r.client, http.MethodGet, r.userInfoURL, accessToken, "", nil)
	if err != nil {
		return UserProfile{}, err
	}
	switch {
	case status == http.StatusOK:
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
		return UserProfile{}, profileNotFound(google.NewAPIError("userinfo", status, body))
	default:
		return UserProfile{}, google.NewAPIError("userinfo", status, body)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return UserProfile{}, fmt.Errorf("identity: decode userinfo payload: %w", err)
	}
	profile := normalizeProfile(payload)
	if profile.Subject == "" {
		return UserProfile{}, profileNotFound(fmt.Errorf("userinfo payload has no subject"))
	}
	return profile, nil
}

func normalizeProfile(payload map[string]any) UserProfile {
	return UserProfile{
		Subject:       stringField(payload, "sub"),
		Email:         stringField(payload, "email"),
		EmailVerified: boolField(payload, "email_verified"),
		Name:          stringField(payload, "name"),
		GivenName:     stringField(payload, "given_name"),
		FamilyName:    stringField(payload, "family_name"),
		PictureURL:    stringField(payload, "picture"),
		Locale:        stringField(payload, "locale"),
		Raw:           payload,
	}
}

func stringField(payload map[string]any, key string) string {
	value, _ := payload[key].(string)
	return strings.TrimSpace(value)
}

// boolField tolerates the string form Google sometimes returns for
// email_verified.
func boolField(payload map[string]any, key string) bool {
	switch value := payload[key].(type) {
	case bool:
		return value
	case string:
		return strings.EqualFold(strings.TrimSpace(value), "true")
	}
	return false
}
