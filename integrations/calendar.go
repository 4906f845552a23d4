package integrations

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/lexfirm/google-services/core"
	"github.com/lexfirm/google-services/google"
	gcalendar "github.com/lexfirm/google-services/google/calendar"
)

// CalendarAPI is the slice of the calendar REST client this service needs.
type CalendarAPI interface {
	ListEvents(ctx context.Context, accessToken string, req gcalendar.ListEventsRequest) ([]gcalendar.Event, error)
	InsertEvent(ctx context.Context, accessToken string, calendarID string, event gcalendar.Event) (gcalendar.Event, error)
	DeleteEvent(ctx context.Context, accessToken string, calendarID string, eventID string) error
}

type CalendarServiceConfig struct {
	Tokens       core.AccessTokenGetter
	Client       CalendarAPI
	Integrations core.IntegrationStore
	Logger       core.Logger
	Now          func() time.Time
}

// CalendarService imports and exports CRM deadlines against the user's
// primary Google calendar.
type CalendarService struct {
	tokens       core.AccessTokenGetter
	client       CalendarAPI
	integrations core.IntegrationStore
	logger       core.Logger
	nowFn        func() time.Time
	syncing      atomic.Bool
}

func NewCalendarService(cfg CalendarServiceConfig) (*CalendarService, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("integrations: token getter is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("integrations: calendar client is required")
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &CalendarService{
		tokens:       cfg.Tokens,
		client:       cfg.Client,
		integrations: cfg.Integrations,
		logger:       glog.Ensure(cfg.Logger),
		nowFn:        nowFn,
	}, nil
}

func (s *CalendarService) Syncing() bool {
	return s != nil && s.syncing.Load()
}

type ImportEventsRequest struct {
	CalendarID string
	TimeMin    time.Time
	TimeMax    time.Time
	MaxResults int
}

type ImportEventsResult struct {
	Events   []gcalendar.Event
	Imported int
}

// ImportEvents pulls upcoming events into the CRM agenda view. The syncing
// flag is visible to the UI and reset on every return path.
func (s *CalendarService) ImportEvents(ctx context.Context, id core.Identity, req ImportEventsRequest) (ImportEventsResult, error) {
	if s == nil {
		return ImportEventsResult{}, fmt.Errorf("integrations: calendar service is nil")
	}
	s.syncing.Store(true)
	defer s.syncing.Store(false)

	accessToken, err := s.tokens.GetValidAccessToken(ctx, id, core.ServiceCalendar)
	if err != nil {
		return ImportEventsResult{}, err
	}

	events, err := s.client.ListEvents(ctx, accessToken, gcalendar.ListEventsRequest{
		CalendarID: req.CalendarID,
		TimeMin:    req.TimeMin,
		TimeMax:    req.TimeMax,
		MaxResults: req.MaxResults,
	})
	if err != nil {
		s.reconcileAPIError(ctx, id, core.ServiceCalendar, err)
		return ImportEventsResult{}, err
	}

	s.recordSync(ctx, id, map[string]any{"imported_events": len(events)})
	return ImportEventsResult{Events: events, Imported: len(events)}, nil
}

// ExportEvent pushes one CRM deadline or hearing to Google Calendar.
func (s *CalendarService) ExportEvent(ctx context.Context, id core.Identity, calendarID string, event gcalendar.Event) (gcalendar.Event, error) {
	if s == nil {
		return gcalendar.Event{}, fmt.Errorf("integrations: calendar service is nil")
	}
	s.syncing.Store(true)
	defer s.syncing.Store(false)

	accessToken, err := s.tokens.GetValidAccessToken(ctx, id, core.ServiceCalendar)
	if err != nil {
		return gcalendar.Event{}, err
	}

	created, err := s.client.InsertEvent(ctx, accessToken, calendarID, event)
	if err != nil {
		s.reconcileAPIError(ctx, id, core.ServiceCalendar, err)
		return gcalendar.Event{}, err
	}

	s.recordSync(ctx, id, map[string]any{"exported_events": 1})
	return created, nil
}

func (s *CalendarService) DeleteEvent(ctx context.Context, id core.Identity, calendarID string, eventID string) error {
	if s == nil {
		return fmt.Errorf("integrations: calendar service is nil")
	}
	accessToken, err := s.tokens.GetValidAccessToken(ctx, id, core.ServiceCalendar)
	if err != nil {
		return err
	}
	if err := s.client.DeleteEvent(ctx, accessToken, calendarID, eventID); err != nil {
		s.reconcileAPIError(ctx, id, core.ServiceCalendar, err)
		return err
	}
	return nil
}

// reconcileAPIError keeps local belief consistent with what the API just told
// us: a 401 means the cached token is no longer valid anywhere.
func (s *CalendarService) reconcileAPIError(ctx context.Context, id core.Identity, service core.GoogleService, err error) {
	var apiErr *google.APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		return
	}
	s.tokens.Invalidate(id, service)
	markIntegrationDisconnected(ctx, s.integrations, s.logger, id, service)
}

func (s *CalendarService) recordSync(ctx context.Context, id core.Identity, counters map[string]any) {
	if s.integrations == nil {
		return
	}
	now := s.nowFn().UTC()
	settings := map[string]any{}
	if existing, err := s.integrations.Get(ctx, id.UserID, core.ServiceCalendar); err == nil {
		for key, value := range existing.Settings {
			settings[key] = value
		}
	}
	for key, value := range counters {
		settings[key] = value
	}
	if _, err := s.integrations.Upsert(ctx, core.UpsertIntegrationInput{
		UserID:       id.UserID,
		Service:      core.ServiceCalendar,
		IsConnected:  true,
		LastSyncedAt: &now,
		Settings:     settings,
	}); err != nil {
		s.logger.Error("calendar sync record update failed", "user_id", id.UserID, "error", err)
	}
}

func markIntegrationDisconnected(ctx context.Context, store core.IntegrationStore, logger core.Logger, id core.Identity, service core.GoogleService) {
	if store == nil {
		return
	}
	var lastSynced *time.Time
	settings := map[string]any{}
	if existing, err := store.Get(ctx, id.UserID, service); err == nil {
		lastSynced = existing.LastSyncedAt
		settings = existing.Settings
	}
	if _, err := store.Upsert(ctx, core.UpsertIntegrationInput{
		UserID:       id.UserID,
		Service:      service,
		IsConnected:  false,
		LastSyncedAt: lastSynced,
		Settings:     settings,
	}); err != nil {
		glog.Ensure(logger).Error("integration disconnect projection failed",
			"user_id", id.UserID, "service", string(service), "error", err)
	}
}
