package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTokenRefreshLeadWindow = 5 * time.Minute
	DefaultClientCacheTTL         = 4 * time.Minute
)

type GoogleEndpointsConfig struct {
	TokenURL  string `koanf:"token_url" mapstructure:"token_url"`
	RevokeURL string `koanf:"revoke_url" mapstructure:"revoke_url"`
}

type Config struct {
	ServiceName        string                `koanf:"service_name" mapstructure:"service_name"`
	AllowedEmailDomain string                `koanf:"allowed_email_domain" mapstructure:"allowed_email_domain"`
	RefreshLeadSeconds int                   `koanf:"refresh_lead_seconds" mapstructure:"refresh_lead_seconds"`
	CacheTTLSeconds    int                   `koanf:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
	Google             GoogleEndpointsConfig `koanf:"google" mapstructure:"google"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:        "google-services",
		AllowedEmailDomain: "@mrladvogados.com.br",
		RefreshLeadSeconds: int(DefaultTokenRefreshLeadWindow / time.Second),
		CacheTTLSeconds:    int(DefaultClientCacheTTL / time.Second),
		Google: GoogleEndpointsConfig{
			TokenURL:  "https://oauth2.googleapis.com/token",
			RevokeURL: "https://oauth2.googleapis.com/revoke",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.RefreshLeadSeconds < 0 {
		return fmt.Errorf("core: refresh_lead_seconds must be >= 0")
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("core: cache_ttl_seconds must be >= 0")
	}
	return nil
}

func (c Config) RefreshLeadWindow() time.Duration {
	if c.RefreshLeadSeconds <= 0 {
		return DefaultTokenRefreshLeadWindow
	}
	return time.Duration(c.RefreshLeadSeconds) * time.Second
}

func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return DefaultClientCacheTTL
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
