// Package server exposes the Google integration operations as an HTTP
// function surface. Handlers translate JSON requests into core and
// integrations calls; all failures come back as a JSON error envelope with
// the status mapped from the error taxonomy.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/lexfirm/google-services/core"
	gcalendar "github.com/lexfirm/google-services/google/calendar"
	"github.com/lexfirm/google-services/identity"
	"github.com/lexfirm/google-services/integrations"
)

// TokenService is the OAuth token lifecycle surface, implemented by
// core.Service.
type TokenService interface {
	ExchangeCode(ctx context.Context, id core.Identity, req core.ExchangeRequest) (core.ExchangeResult, error)
	Revoke(ctx context.Context, id core.Identity, tokenID string) error
	ResolveAccessToken(ctx context.Context, id core.Identity, service core.GoogleService) (string, error)
	ConnectionStatus(ctx context.Context, id core.Identity, service core.GoogleService) (core.ConnectionState, error)
	ConfigCheck(ctx context.Context, id core.Identity, service core.GoogleService) (core.ConfigCheckResult, error)
}

type CalendarService interface {
	ImportEvents(ctx context.Context, id core.Identity, req integrations.ImportEventsRequest) (integrations.ImportEventsResult, error)
	ExportEvent(ctx context.Context, id core.Identity, calendarID string, event gcalendar.Event) (gcalendar.Event, error)
}

type SheetService interface {
	RegisterMapping(ctx context.Context, id core.Identity, req integrations.RegisterSheetMappingRequest) (core.SheetMapping, error)
	RemoveMapping(ctx context.Context, id core.Identity, mappingID string) error
	ListMappings(ctx context.Context, id core.Identity) ([]core.SheetMapping, error)
	SyncMapping(ctx context.Context, id core.Identity, mappingID string) (integrations.SheetSyncResult, error)
}

type DocumentService interface {
	UploadDocument(ctx context.Context, id core.Identity, req integrations.UploadDocumentRequest) (core.Document, error)
	DeleteDocument(ctx context.Context, id core.Identity, documentID string) error
	ListDocuments(ctx context.Context, id core.Identity) ([]core.Document, error)
}

type BankStatementService interface {
	ImportTransactions(ctx context.Context, id core.Identity, spreadsheetID string) (integrations.BankStatementImportResult, error)
}

type AccessLogReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]core.AccessLogEntry, error)
}

type ProfileService interface {
	Resolve(ctx context.Context, id core.Identity, service core.GoogleService) (identity.UserProfile, error)
}

// Config carries the wired services for the router. Tokens and Identities
// are required; integration services are optional and their routes are only
// mounted when present.
type Config struct {
	Tokens     TokenService
	Calendar   CalendarService
	Sheets     SheetService
	Documents  DocumentService
	Bank       BankStatementService
	AccessLogs AccessLogReader
	Profiles   ProfileService

	Identities  IdentityResolver
	Logger      core.Logger
	CORSOrigins []string
}

// NewRouter builds the gin engine with the function routes mounted under
// /functions behind bearer identity resolution.
func NewRouter(cfg Config) (*gin.Engine, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("server: token service is required")
	}
	if cfg.Identities == nil {
		return nil, fmt.Errorf("server: identity resolver is required")
	}
	logger := glog.Ensure(cfg.Logger)

	r := gin.Default()
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "google-services"})
	})

	fn := r.Group("/functions", BearerIdentity(cfg.Identities))

	fn.POST("/google-token-exchange", handleTokenExchange(cfg.Tokens, logger))
	fn.DELETE("/google-token-exchange", handleTokenRevoke(cfg.Tokens, logger))
	fn.POST("/google-token-refresh", handleTokenRefresh(cfg.Tokens))
	fn.GET("/google-config-check", handleConfigCheck(cfg.Tokens))
	fn.GET("/google-connection-status", handleConnectionStatus(cfg.Tokens))

	if cfg.Calendar != nil {
		fn.POST("/google-calendar-import", handleCalendarImport(cfg.Calendar))
		fn.POST("/google-calendar-export", handleCalendarExport(cfg.Calendar))
	}
	if cfg.Sheets != nil {
		fn.GET("/google-sheet-mappings", handleSheetMappingList(cfg.Sheets))
		fn.POST("/google-sheet-mappings", handleSheetMappingRegister(cfg.Sheets))
		fn.DELETE("/google-sheet-mappings/:id", handleSheetMappingRemove(cfg.Sheets))
		fn.POST("/google-sheet-mappings/:id/sync", handleSheetMappingSync(cfg.Sheets))
	}
	if cfg.Documents != nil {
		fn.GET("/google-documents", handleDocumentList(cfg.Documents))
		fn.POST("/google-documents", handleDocumentUpload(cfg.Documents))
		fn.DELETE("/google-documents/:id", handleDocumentDelete(cfg.Documents))
	}
	if cfg.Bank != nil {
		fn.POST("/google-bank-statement-import", handleBankStatementImport(cfg.Bank))
	}
	if cfg.AccessLogs != nil {
		fn.GET("/google-access-logs", handleAccessLogList(cfg.AccessLogs))
	}
	if cfg.Profiles != nil {
		fn.GET("/google-profile", handleProfile(cfg.Profiles))
	}

	return r, nil
}
