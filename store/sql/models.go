package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type tokenRecord struct {
	bun.BaseModel `bun:"table:google_oauth_tokens,alias:got"`

	ID           string    `bun:"id,pk"`
	UserID       string    `bun:"user_id,notnull"`
	Service      string    `bun:"service,notnull"`
	AccessToken  string    `bun:"access_token,notnull"`
	RefreshToken string    `bun:"refresh_token"`
	TokenType    string    `bun:"token_type,notnull"`
	Scope        string    `bun:"scope"`
	ExpiresAt    time.Time `bun:"expires_at,nullzero"`
	Revision     int       `bun:"revision,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type clientConfigRecord struct {
	bun.BaseModel `bun:"table:google_oauth_configs,alias:goc"`

	ID           string    `bun:"id,pk"`
	UserID       string    `bun:"user_id,notnull"`
	Service      string    `bun:"service,notnull"`
	ClientID     string    `bun:"client_id,notnull"`
	ClientSecret string    `bun:"client_secret,notnull"`
	RedirectURI  string    `bun:"redirect_uri"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type sheetMappingRecord struct {
	bun.BaseModel `bun:"table:google_sheet_mappings,alias:gsm"`

	ID            string     `bun:"id,pk"`
	UserID        string     `bun:"user_id,notnull"`
	Name          string     `bun:"name,notnull"`
	SheetURL      string     `bun:"sheet_url,notnull"`
	SpreadsheetID string     `bun:"spreadsheet_id,notnull"`
	Kind          string     `bun:"kind,notnull"`
	Status        string     `bun:"status,notnull"`
	LastError     string     `bun:"last_error"`
	LastSyncedAt  *time.Time `bun:"last_synced_at,nullzero"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type documentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`

	ID          string    `bun:"id,pk"`
	UserID      string    `bun:"user_id,notnull"`
	DriveFileID string    `bun:"drive_file_id,notnull"`
	Name        string    `bun:"name,notnull"`
	Category    string    `bun:"category"`
	ClientID    string    `bun:"client_id"`
	ProcessID   string    `bun:"process_id"`
	SizeBytes   int64     `bun:"size_bytes,notnull"`
	MimeType    string    `bun:"mime_type"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type integrationRecord struct {
	bun.BaseModel `bun:"table:integrations,alias:itg"`

	ID           string         `bun:"id,pk"`
	UserID       string         `bun:"user_id,notnull"`
	Service      string         `bun:"service,notnull"`
	IsConnected  bool           `bun:"is_connected,notnull"`
	LastSyncedAt *time.Time     `bun:"last_synced_at,nullzero"`
	Settings     map[string]any `bun:"settings,type:jsonb,notnull"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type accessLogRecord struct {
	bun.BaseModel `bun:"table:access_logs,alias:alg"`

	ID        string         `bun:"id,pk"`
	UserID    string         `bun:"user_id,notnull"`
	Action    string         `bun:"action,notnull"`
	Resource  string         `bun:"resource,notnull"`
	Detail    string         `bun:"detail"`
	Metadata  map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
