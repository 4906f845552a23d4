// Package services is the module facade. It re-exports the core token
// lifecycle surface and wires persistence-backed stores into a ready
// core.Service so callers only import this package and the store layer.
package services

import (
	"github.com/lexfirm/google-services/core"
	sqlstore "github.com/lexfirm/google-services/store/sql"
)

type Config = core.Config

type Option = core.Option

type Service = core.Service

type Identity = core.Identity
type GoogleService = core.GoogleService
type ExchangeRequest = core.ExchangeRequest
type ExchangeResult = core.ExchangeResult
type ConfigCheckResult = core.ConfigCheckResult
type ConnectionState = core.ConnectionState
type Token = core.Token
type ClientConfig = core.ClientConfig
type TokenCache = core.TokenCache

const (
	ServiceCalendar = core.ServiceCalendar
	ServiceSheets   = core.ServiceSheets
	ServiceDrive    = core.ServiceDrive
)

var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithTokenEndpointClient = core.WithTokenEndpointClient
	WithTokenStore          = core.WithTokenStore
	WithClientConfigStore   = core.WithClientConfigStore
	WithIntegrationStore    = core.WithIntegrationStore
	WithAccessLogStore      = core.WithAccessLogStore
	WithClock               = core.WithClock

	NewTokenCache = core.NewTokenCache
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

// Setup builds the SQL-backed stores from a persistence client or *bun.DB
// and returns a service wired to them. Explicit options still win; anything
// passed in opts overrides the store wiring done here.
func Setup(cfg Config, persistenceClient any, opts ...Option) (*Service, *sqlstore.RepositoryFactory, error) {
	factory := sqlstore.NewRepositoryFactory()
	provider, err := factory.BuildStores(persistenceClient)
	if err != nil {
		return nil, nil, err
	}
	wired := []Option{
		WithTokenStore(provider.TokenStore()),
		WithClientConfigStore(provider.ClientConfigStore()),
		WithIntegrationStore(provider.IntegrationStore()),
		WithAccessLogStore(provider.AccessLogStore()),
	}
	service, err := core.NewService(cfg, append(wired, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return service, factory, nil
}
