package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Service orchestrates the Google OAuth token lifecycle for CRM users:
// authorization-code exchange, cached refresh resolution, revocation, and
// connection-status projection.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	tokenClient       TokenEndpointClient
	tokenStore        TokenStore
	clientConfigStore ClientConfigStore
	integrationStore  IntegrationStore
	accessLogStore    AccessLogStore
	nowFn             func() time.Time
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("google-services", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("google-services"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.nowFn == nil {
		builder.nowFn = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		tokenClient:       builder.tokenClient,
		tokenStore:        builder.tokenStore,
		clientConfigStore: builder.clientConfigStore,
		integrationStore:  builder.integrationStore,
		accessLogStore:    builder.accessLogStore,
		nowFn:             builder.nowFn,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) now() time.Time {
	if s == nil || s.nowFn == nil {
		return time.Now().UTC()
	}
	return s.nowFn().UTC()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return integrationErrorMapper(err)
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return integrationErrorMapper(err)
	}
	return mapped
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return integrationErrorMapper(err)
	}
	if mapped := mapper(err); mapped != nil {
		return mapped
	}
	return integrationErrorMapper(err)
}

// requireAuthorizedDomain rejects callers outside the firm's email domain
// before any outbound call is made.
func (s *Service) requireAuthorizedDomain(id Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if !id.DomainAuthorized(s.config.AllowedEmailDomain) {
		return forbiddenError("user is not authorized for google integrations")
	}
	return nil
}

func (s *Service) appendAccessLog(ctx context.Context, entry AccessLogEntry) {
	if s == nil || s.accessLogStore == nil {
		return
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if err := s.accessLogStore.Append(ctx, entry); err != nil {
		s.logError(ctx, "access log append failed", map[string]any{
			"user_id": entry.UserID,
			"action":  string(entry.Action),
			"error":   err.Error(),
		})
	}
}

// projectIntegrationStatus recomputes the display-only is_connected flag in
// the integrations record from the resolved token state.
func (s *Service) projectIntegrationStatus(ctx context.Context, id Identity, service GoogleService, connected bool, syncedAt *time.Time) {
	if s == nil || s.integrationStore == nil {
		return
	}
	existing, err := s.integrationStore.Get(ctx, id.UserID, service)
	settings := map[string]any{}
	if err == nil {
		settings = existing.Settings
		if syncedAt == nil {
			syncedAt = existing.LastSyncedAt
		}
	}
	if _, err := s.integrationStore.Upsert(ctx, UpsertIntegrationInput{
		UserID:       id.UserID,
		Service:      service,
		IsConnected:  connected,
		LastSyncedAt: syncedAt,
		Settings:     settings,
	}); err != nil {
		s.logError(ctx, "integration status projection failed", map[string]any{
			"user_id": id.UserID,
			"service": string(service),
			"error":   err.Error(),
		})
	}
}

func (s *Service) clientConfigFor(ctx context.Context, id Identity, service GoogleService) (ClientConfig, error) {
	if s.clientConfigStore == nil {
		return ClientConfig{}, fmt.Errorf("core: client config store is not configured")
	}
	cfg, err := s.clientConfigStore.Get(ctx, id.UserID, service)
	if err != nil {
		return ClientConfig{}, configMissingError(service)
	}
	return cfg, nil
}
