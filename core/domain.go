package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidService                = errors.New("core: invalid google service")
	ErrInvalidSheetMappingKind       = errors.New("core: invalid sheet mapping kind")
	ErrInvalidSheetMappingTransition = errors.New("core: invalid sheet mapping status transition")
	ErrTokenNotFound                 = errors.New("core: token not found")
	ErrTokenRevisionStale            = errors.New("core: token revision is stale")
	ErrClientConfigNotFound          = errors.New("core: oauth client config not found")
	ErrIntegrationNotFound           = errors.New("core: integration not found")
	ErrSheetMappingNotFound          = errors.New("core: sheet mapping not found")
	ErrDocumentNotFound              = errors.New("core: document not found")
)

// Service identity is a first-class column, never inferred from scope
// substrings. Scope strings stay purely descriptive.
type GoogleService string

const (
	ServiceCalendar GoogleService = "calendar"
	ServiceSheets   GoogleService = "sheets"
	ServiceDrive    GoogleService = "drive"
)

func ParseGoogleService(value string) (GoogleService, error) {
	normalized := GoogleService(strings.TrimSpace(strings.ToLower(value)))
	switch normalized {
	case ServiceCalendar, ServiceSheets, ServiceDrive:
		return normalized, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidService, value)
}

// Token is one stored OAuth credential for a (user, service) pair. The most
// recently created row is authoritative; Revision guards concurrent refresh
// writes via compare-and-swap.
type Token struct {
	ID           string
	UserID       string
	Service      GoogleService
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
	Revision     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExpiresWithin reports whether the token expires before now+window.
func (t Token) ExpiresWithin(now time.Time, window time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return true
	}
	if window < 0 {
		window = 0
	}
	return !t.ExpiresAt.UTC().After(now.UTC().Add(window))
}

func (t Token) Refreshable() bool {
	return strings.TrimSpace(t.RefreshToken) != ""
}

// ClientConfig holds the per-user OAuth client registration for a service.
// Required before exchange or refresh can succeed.
type ClientConfig struct {
	ID           string
	UserID       string
	Service      GoogleService
	ClientID     string
	ClientSecret string
	RedirectURI  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c ClientConfig) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("core: client config user id is required")
	}
	if _, err := ParseGoogleService(string(c.Service)); err != nil {
		return err
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("core: client id is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return fmt.Errorf("core: client secret is required")
	}
	return nil
}

type SheetMappingKind string

const (
	SheetMappingFinancial SheetMappingKind = "financial"
	SheetMappingClients   SheetMappingKind = "clients"
	SheetMappingProcesses SheetMappingKind = "processes"
)

func ParseSheetMappingKind(value string) (SheetMappingKind, error) {
	normalized := SheetMappingKind(strings.TrimSpace(strings.ToLower(value)))
	switch normalized {
	case SheetMappingFinancial, SheetMappingClients, SheetMappingProcesses:
		return normalized, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSheetMappingKind, value)
}

type SheetMappingStatus string

const (
	SheetMappingConnected SheetMappingStatus = "connected"
	SheetMappingSyncing   SheetMappingStatus = "syncing"
	SheetMappingErrored   SheetMappingStatus = "error"
)

// SheetMapping is one user-registered external spreadsheet.
type SheetMapping struct {
	ID            string
	UserID        string
	Name          string
	SheetURL      string
	SpreadsheetID string
	Kind          SheetMappingKind
	Status        SheetMappingStatus
	LastError     string
	LastSyncedAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (m *SheetMapping) TransitionTo(status SheetMappingStatus, reason string, now time.Time) error {
	if m == nil {
		return nil
	}
	if m.Status == status {
		m.UpdatedAt = now
		if strings.TrimSpace(reason) != "" {
			m.LastError = strings.TrimSpace(reason)
		}
		return nil
	}
	if !sheetMappingTransitionAllowed(m.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSheetMappingTransition, m.Status, status)
	}
	m.Status = status
	m.UpdatedAt = now
	if strings.TrimSpace(reason) != "" {
		m.LastError = strings.TrimSpace(reason)
	}
	if status == SheetMappingConnected {
		m.LastError = ""
	}
	return nil
}

func sheetMappingTransitionAllowed(current, next SheetMappingStatus) bool {
	allowed := map[SheetMappingStatus]map[SheetMappingStatus]struct{}{
		SheetMappingConnected: {
			SheetMappingSyncing: {},
			SheetMappingErrored: {},
		},
		SheetMappingSyncing: {
			SheetMappingConnected: {},
			SheetMappingErrored:   {},
		},
		SheetMappingErrored: {
			SheetMappingSyncing:   {},
			SheetMappingConnected: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

// Document is local metadata for a file stored remotely in Drive.
type Document struct {
	ID          string
	UserID      string
	DriveFileID string
	Name        string
	Category    string
	ClientID    string
	ProcessID   string
	SizeBytes   int64
	MimeType    string
	CreatedAt   time.Time
}

// Integration is the per-(user, service) sync status record. IsConnected is a
// display-only projection recomputed from token resolution, never the source
// of truth.
type Integration struct {
	ID           string
	UserID       string
	Service      GoogleService
	IsConnected  bool
	LastSyncedAt *time.Time
	Settings     map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AccessLogAction string

const (
	AccessLogServiceConnected AccessLogAction = "service_connected"
	AccessLogServiceRevoked   AccessLogAction = "service_revoked"
	AccessLogTokenRefreshed   AccessLogAction = "token_refreshed"
)

type AccessLogEntry struct {
	ID        string
	UserID    string
	Action    AccessLogAction
	Resource  string
	Detail    string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Identity is the authenticated caller as resolved by the transport layer.
type Identity struct {
	UserID string
	Email  string
}

func (i Identity) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return fmt.Errorf("core: identity user id is required")
	}
	return nil
}

// DomainAuthorized reports whether the identity's email belongs to the
// authorized organizational domain suffix, e.g. "@mrladvogados.com.br".
func (i Identity) DomainAuthorized(suffix string) bool {
	suffix = strings.TrimSpace(strings.ToLower(suffix))
	if suffix == "" {
		return false
	}
	if !strings.HasPrefix(suffix, "@") {
		suffix = "@" + suffix
	}
	email := strings.TrimSpace(strings.ToLower(i.Email))
	return email != "" && strings.HasSuffix(email, suffix)
}

// ConnectionState is derived from token resolution alone so the UI has a
// single source of truth for "connected".
type ConnectionState struct {
	Service       GoogleService
	Connected     bool
	ExpiresAt     *time.Time
	Refreshable   bool
	ReconnectNeed bool
	LastSyncedAt  *time.Time
}
