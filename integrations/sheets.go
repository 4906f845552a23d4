package integrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/lexfirm/google-services/core"
	"github.com/lexfirm/google-services/google"
	gsheets "github.com/lexfirm/google-services/google/sheets"
)

// SheetsAPI is the slice of the sheets REST client this service needs.
type SheetsAPI interface {
	GetValues(ctx context.Context, accessToken string, spreadsheetID string, readRange string) (gsheets.ValueRange, error)
	AppendValues(ctx context.Context, accessToken string, spreadsheetID string, writeRange string, values [][]any) (int, error)
}

// Default read ranges per mapping kind. The first data row is 2; row 1 holds
// headers in the templates the firm distributes.
var sheetKindRanges = map[core.SheetMappingKind]string{
	core.SheetMappingFinancial: "Financeiro!A2:F",
	core.SheetMappingClients:   "Clientes!A2:H",
	core.SheetMappingProcesses: "Processos!A2:J",
}

type SheetSyncServiceConfig struct {
	Tokens       core.AccessTokenGetter
	Client       SheetsAPI
	Mappings     core.SheetMappingStore
	Integrations core.IntegrationStore
	Logger       core.Logger
	Now          func() time.Time
}

// SheetSyncService manages the user's registered spreadsheets and syncs their
// rows into the CRM.
type SheetSyncService struct {
	tokens       core.AccessTokenGetter
	client       SheetsAPI
	mappings     core.SheetMappingStore
	integrations core.IntegrationStore
	logger       core.Logger
	nowFn        func() time.Time
	syncing      atomic.Bool
}

func NewSheetSyncService(cfg SheetSyncServiceConfig) (*SheetSyncService, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("integrations: token getter is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("integrations: sheets client is required")
	}
	if cfg.Mappings == nil {
		return nil, fmt.Errorf("integrations: sheet mapping store is required")
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &SheetSyncService{
		tokens:       cfg.Tokens,
		client:       cfg.Client,
		mappings:     cfg.Mappings,
		integrations: cfg.Integrations,
		logger:       glog.Ensure(cfg.Logger),
		nowFn:        nowFn,
	}, nil
}

func (s *SheetSyncService) Syncing() bool {
	return s != nil && s.syncing.Load()
}

type RegisterSheetMappingRequest struct {
	Name     string
	SheetURL string
	Kind     string
}

// RegisterMapping validates the spreadsheet URL, extracts the document id,
// and records the mapping as connected.
func (s *SheetSyncService) RegisterMapping(ctx context.Context, id core.Identity, req RegisterSheetMappingRequest) (core.SheetMapping, error) {
	if s == nil {
		return core.SheetMapping{}, fmt.Errorf("integrations: sheet sync service is nil")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return core.SheetMapping{}, fmt.Errorf("integrations: mapping name is required")
	}
	kind, err := core.ParseSheetMappingKind(req.Kind)
	if err != nil {
		return core.SheetMapping{}, err
	}
	spreadsheetID, err := gsheets.SpreadsheetIDFromURL(req.SheetURL)
	if err != nil {
		return core.SheetMapping{}, err
	}

	return s.mappings.Create(ctx, core.CreateSheetMappingInput{
		UserID:        id.UserID,
		Name:          name,
		SheetURL:      strings.TrimSpace(req.SheetURL),
		SpreadsheetID: spreadsheetID,
		Kind:          kind,
	})
}

func (s *SheetSyncService) RemoveMapping(ctx context.Context, id core.Identity, mappingID string) error {
	if s == nil {
		return fmt.Errorf("integrations: sheet sync service is nil")
	}
	return s.mappings.Delete(ctx, id.UserID, strings.TrimSpace(mappingID))
}

func (s *SheetSyncService) ListMappings(ctx context.Context, id core.Identity) ([]core.SheetMapping, error) {
	if s == nil {
		return nil, fmt.Errorf("integrations: sheet sync service is nil")
	}
	return s.mappings.List(ctx, id.UserID)
}

type SheetSyncResult struct {
	Mapping  core.SheetMapping
	RowCount int
	Rows     [][]any
}

// SyncMapping walks one mapping through connected -> syncing -> connected,
// parking it in error with the upstream reason when the read fails.
func (s *SheetSyncService) SyncMapping(ctx context.Context, id core.Identity, mappingID string) (SheetSyncResult, error) {
	if s == nil {
		return SheetSyncResult{}, fmt.Errorf("integrations: sheet sync service is nil")
	}
	s.syncing.Store(true)
	defer s.syncing.Store(false)

	mapping, err := s.mappings.Get(ctx, id.UserID, strings.TrimSpace(mappingID))
	if err != nil {
		return SheetSyncResult{}, err
	}
	if err := s.mappings.UpdateStatus(ctx, mapping.ID, core.SheetMappingSyncing, "", nil); err != nil {
		return SheetSyncResult{}, err
	}

	rows, syncErr := s.readMappingRows(ctx, id, mapping)
	now := s.nowFn().UTC()
	if syncErr != nil {
		if statusErr := s.mappings.UpdateStatus(ctx, mapping.ID, core.SheetMappingErrored, syncErr.Error(), nil); statusErr != nil {
			s.logger.Error("sheet mapping error status update failed",
				"mapping_id", mapping.ID, "error", statusErr)
		}
		s.reconcileAPIError(ctx, id, syncErr)
		return SheetSyncResult{}, syncErr
	}

	if err := s.mappings.UpdateStatus(ctx, mapping.ID, core.SheetMappingConnected, "", &now); err != nil {
		return SheetSyncResult{}, err
	}
	s.recordSync(ctx, id, now, len(rows))

	mapping.Status = core.SheetMappingConnected
	mapping.LastError = ""
	mapping.LastSyncedAt = &now
	return SheetSyncResult{Mapping: mapping, RowCount: len(rows), Rows: rows}, nil
}

func (s *SheetSyncService) readMappingRows(ctx context.Context, id core.Identity, mapping core.SheetMapping) ([][]any, error) {
	readRange, ok := sheetKindRanges[mapping.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidSheetMappingKind, mapping.Kind)
	}
	accessToken, err := s.tokens.GetValidAccessToken(ctx, id, core.ServiceSheets)
	if err != nil {
		return nil, err
	}
	values, err := s.client.GetValues(ctx, accessToken, mapping.SpreadsheetID, readRange)
	if err != nil {
		return nil, err
	}
	return values.Values, nil
}

func (s *SheetSyncService) reconcileAPIError(ctx context.Context, id core.Identity, err error) {
	var apiErr *google.APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		return
	}
	s.tokens.Invalidate(id, core.ServiceSheets)
	markIntegrationDisconnected(ctx, s.integrations, s.logger, id, core.ServiceSheets)
}

func (s *SheetSyncService) recordSync(ctx context.Context, id core.Identity, syncedAt time.Time, rowCount int) {
	if s.integrations == nil {
		return
	}
	settings := map[string]any{}
	if existing, err := s.integrations.Get(ctx, id.UserID, core.ServiceSheets); err == nil {
		for key, value := range existing.Settings {
			settings[key] = value
		}
	}
	settings["imported_rows"] = rowCount
	if _, err := s.integrations.Upsert(ctx, core.UpsertIntegrationInput{
		UserID:       id.UserID,
		Service:      core.ServiceSheets,
		IsConnected:  true,
		LastSyncedAt: &syncedAt,
		Settings:     settings,
	}); err != nil {
		s.logger.Error("sheets sync record update failed", "user_id", id.UserID, "error", err)
	}
}
