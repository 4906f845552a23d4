package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type UpsertTokenInput struct {
	UserID       string
	Service      GoogleService
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
}

type UpdateAccessTokenInput struct {
	ID          string
	Revision    int
	AccessToken string
	ExpiresAt   time.Time
}

// TokenStore persists OAuth tokens. Newest resolves the authoritative row for
// a (user, service) pair by created_at descending. UpdateAccess is a
// compare-and-swap on Revision and returns ErrTokenRevisionStale when the
// stored revision moved.
type TokenStore interface {
	Newest(ctx context.Context, userID string, service GoogleService) (Token, error)
	Get(ctx context.Context, userID string, id string) (Token, error)
	Upsert(ctx context.Context, in UpsertTokenInput) (Token, error)
	UpdateAccess(ctx context.Context, in UpdateAccessTokenInput) (Token, error)
	Delete(ctx context.Context, userID string, id string) error
}

type UpsertClientConfigInput struct {
	UserID       string
	Service      GoogleService
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type ClientConfigStore interface {
	Get(ctx context.Context, userID string, service GoogleService) (ClientConfig, error)
	Upsert(ctx context.Context, in UpsertClientConfigInput) (ClientConfig, error)
	Delete(ctx context.Context, userID string, service GoogleService) error
}

type CreateSheetMappingInput struct {
	UserID        string
	Name          string
	SheetURL      string
	SpreadsheetID string
	Kind          SheetMappingKind
}

type SheetMappingStore interface {
	Create(ctx context.Context, in CreateSheetMappingInput) (SheetMapping, error)
	Get(ctx context.Context, userID string, id string) (SheetMapping, error)
	List(ctx context.Context, userID string) ([]SheetMapping, error)
	UpdateStatus(ctx context.Context, id string, status SheetMappingStatus, reason string, syncedAt *time.Time) error
	Delete(ctx context.Context, userID string, id string) error
}

type CreateDocumentInput struct {
	UserID      string
	DriveFileID string
	Name        string
	Category    string
	ClientID    string
	ProcessID   string
	SizeBytes   int64
	MimeType    string
}

type DocumentStore interface {
	Create(ctx context.Context, in CreateDocumentInput) (Document, error)
	Get(ctx context.Context, userID string, id string) (Document, error)
	List(ctx context.Context, userID string) ([]Document, error)
	Delete(ctx context.Context, userID string, id string) error
}

type UpsertIntegrationInput struct {
	UserID       string
	Service      GoogleService
	IsConnected  bool
	LastSyncedAt *time.Time
	Settings     map[string]any
}

type IntegrationStore interface {
	Get(ctx context.Context, userID string, service GoogleService) (Integration, error)
	Upsert(ctx context.Context, in UpsertIntegrationInput) (Integration, error)
}

type AccessLogStore interface {
	Append(ctx context.Context, entry AccessLogEntry) error
}

// StoreProvider bundles every persistence contract the service consumes so a
// single factory can wire them from one database handle.
type StoreProvider interface {
	TokenStore() TokenStore
	ClientConfigStore() ClientConfigStore
	SheetMappingStore() SheetMappingStore
	DocumentStore() DocumentStore
	IntegrationStore() IntegrationStore
	AccessLogStore() AccessLogStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// ClientCredentials is the OAuth client registration handed to the token
// endpoint client. Secret never leaves the server side.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// TokenGrant is the parsed token endpoint response for either grant type.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresIn    int64
}

// GrantError carries the raw provider error so callers can distinguish a
// permanently revoked grant from a transient failure.
type GrantError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *GrantError) Error() string {
	if e == nil {
		return "core: grant error"
	}
	detail := strings.TrimSpace(e.Description)
	if detail == "" {
		detail = strings.TrimSpace(e.Code)
	}
	if detail == "" {
		detail = "unknown error"
	}
	return fmt.Sprintf("core: token endpoint error (%d): %s", e.StatusCode, detail)
}

// InvalidGrant reports a permanently revoked or expired refresh grant.
func (e *GrantError) InvalidGrant() bool {
	return e != nil && strings.EqualFold(strings.TrimSpace(e.Code), "invalid_grant")
}

// TokenEndpointClient talks to Google's OAuth token and revocation endpoints.
type TokenEndpointClient interface {
	Exchange(ctx context.Context, creds ClientCredentials, code string, redirectURI string) (TokenGrant, error)
	RefreshGrant(ctx context.Context, creds ClientCredentials, refreshToken string) (TokenGrant, error)
	RevokeGrant(ctx context.Context, token string) error
}

// AccessTokenResolver is the client-facing contract fronted by the token
// cache: integration services depend on this, not on the full Service.
type AccessTokenResolver interface {
	ResolveAccessToken(ctx context.Context, id Identity, service GoogleService) (string, error)
}
