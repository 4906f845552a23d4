package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/lexfirm/google-services/core"
	servicemigrations "github.com/lexfirm/google-services/migrations"
	sqlstore "github.com/lexfirm/google-services/store/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "google-services-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"google_oauth_tokens",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "google_oauth_tokens" {
		t.Fatalf("expected google_oauth_tokens table, got %q", tableName)
	}
}

func TestTokenStore_UpsertReplacesPriorRow(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()
	store := factory.TokenStore()

	first, err := store.Upsert(ctx, core.UpsertTokenInput{
		UserID:       "usr_1",
		Service:      core.ServiceCalendar,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "bearer",
		Scope:        "calendar.readonly",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", first.Revision)
	}

	second, err := store.Upsert(ctx, core.UpsertTokenInput{
		UserID:       "usr_1",
		Service:      core.ServiceCalendar,
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("expected a fresh row id on re-upsert")
	}

	var rowCount int
	if err := factory.DB().NewRaw(
		"SELECT COUNT(*) FROM google_oauth_tokens WHERE user_id = ? AND service = ?",
		"usr_1", "calendar",
	).Scan(ctx, &rowCount); err != nil {
		t.Fatalf("count token rows: %v", err)
	}
	if rowCount != 1 {
		t.Fatalf("expected exactly one row per (user, service), got %d", rowCount)
	}

	newest, err := store.Newest(ctx, "usr_1", core.ServiceCalendar)
	if err != nil {
		t.Fatalf("newest: %v", err)
	}
	if newest.AccessToken != "access-2" {
		t.Fatalf("newest access token = %q", newest.AccessToken)
	}

	if _, err := store.Newest(ctx, "usr_1", core.ServiceDrive); !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for drive, got %v", err)
	}
}

func TestTokenStore_UpdateAccessEnforcesRevision(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()
	store := factory.TokenStore()

	token, err := store.Upsert(ctx, core.UpsertTokenInput{
		UserID:       "usr_1",
		Service:      core.ServiceSheets,
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().UTC().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	updated, err := store.UpdateAccess(ctx, core.UpdateAccessTokenInput{
		ID:          token.ID,
		Revision:    token.Revision,
		AccessToken: "access-2",
		ExpiresAt:   time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("update access: %v", err)
	}
	if updated.Revision != token.Revision+1 {
		t.Fatalf("expected revision %d, got %d", token.Revision+1, updated.Revision)
	}
	if updated.AccessToken != "access-2" {
		t.Fatalf("access token = %q", updated.AccessToken)
	}
	if updated.RefreshToken != "refresh-1" {
		t.Fatalf("refresh token should be preserved, got %q", updated.RefreshToken)
	}

	_, err = store.UpdateAccess(ctx, core.UpdateAccessTokenInput{
		ID:          token.ID,
		Revision:    token.Revision,
		AccessToken: "access-3",
		ExpiresAt:   time.Now().UTC().Add(time.Hour),
	})
	if !errors.Is(err, core.ErrTokenRevisionStale) {
		t.Fatalf("expected ErrTokenRevisionStale, got %v", err)
	}

	_, err = store.UpdateAccess(ctx, core.UpdateAccessTokenInput{
		ID:          "00000000-0000-0000-0000-000000000000",
		Revision:    1,
		AccessToken: "access-4",
		ExpiresAt:   time.Now().UTC().Add(time.Hour),
	})
	if !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestTokenStore_Delete(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()
	store := factory.TokenStore()

	token, err := store.Upsert(ctx, core.UpsertTokenInput{
		UserID:      "usr_1",
		Service:     core.ServiceDrive,
		AccessToken: "access-1",
		TokenType:   "bearer",
		ExpiresAt:   time.Now().UTC().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := store.Delete(ctx, "usr_1", token.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "usr_1", token.ID); !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound on repeat delete, got %v", err)
	}
	if _, err := store.Newest(ctx, "usr_1", core.ServiceDrive); !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound after delete, got %v", err)
	}
}

func TestClientConfigStore_UpsertInsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()
	store := factory.ClientConfigStore()

	created, err := store.Upsert(ctx, core.UpsertClientConfigInput{
		UserID:       "usr_1",
		Service:      core.ServiceCalendar,
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "https://crm.example/oauth/callback",
	})
	if err != nil {
		t.Fatalf("insert upsert: %v", err)
	}
	if created.ClientID != "client-1" {
		t.Fatalf("client id = %q", created.ClientID)
	}

	updated, err := store.Upsert(ctx, core.UpsertClientConfigInput{
		UserID:       "usr_1",
		Service:      core.ServiceCalendar,
		ClientID:     "client-2",
		ClientSecret: "secret-2",
	})
	if err != nil {
		t.Fatalf("update upsert: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("expected the same row to be updated")
	}
	if updated.ClientID != "client-2" {
		t.Fatalf("client id after update = %q", updated.ClientID)
	}

	fetched, err := store.Get(ctx, "usr_1", core.ServiceCalendar)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.ClientSecret != "secret-2" {
		t.Fatalf("client secret = %q", fetched.ClientSecret)
	}

	if err := store.Delete(ctx, "usr_1", core.ServiceCalendar); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "usr_1", core.ServiceCalendar); !errors.Is(err, core.ErrClientConfigNotFound) {
		t.Fatalf("expected ErrClientConfigNotFound, got %v", err)
	}
}

func TestSheetMappingStore_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()
	store := factory.SheetMappingStore()

	mapping, err := store.Create(ctx, core.CreateSheetMappingInput{
		UserID:        "usr_1",
		Name:          "Planilha financeira",
		SheetURL:      "https://docs.google.com/spreadsheets/d/sheet_1/edit",
		SpreadsheetID: "sheet_1",
		Kind:          core.SheetMappingFinancial,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if mapping.Status != core.SheetMappingConnected {
		t.Fatalf("initial status = %q", mapping.Status)
	}

	if err := store.UpdateStatus(ctx, mapping.ID, core.SheetMappingSyncing, "", nil); err != nil {
		t.Fatalf("transition to syncing: %v", err)
	}
	syncedAt := time.Now().UTC().Truncate(time.Second)
	if err := store.UpdateStatus(ctx, mapping.ID, core.SheetMappingConnected, "", &syncedAt); err != nil {
		t.Fatalf("transition to connected: %v", err)
	}

	fetched, err := store.Get(ctx, "usr_1", mapping.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Status != core.SheetMappingConnected {
		t.Fatalf("status = %q", fetched.Status)
	}
	if fetched.LastSyncedAt == nil {
		t.Fatalf("expected last synced timestamp")
	}

	if err := store.UpdateStatus(ctx, mapping.ID, core.SheetMappingSyncing, "", nil); err != nil {
		t.Fatalf("transition to syncing: %v", err)
	}
	if err := store.UpdateStatus(ctx, mapping.ID, core.SheetMappingErrored, "quota exceeded", nil); err != nil {
		t.Fatalf("transition to errored: %v", err)
	}
	errored, err := store.Get(ctx, "usr_1", mapping.ID)
	if err != nil {
		t.Fatalf("get errored: %v", err)
	}
	if errored.LastError != "quota exceeded" {
		t.Fatalf("last error = %q", errored.LastError)
	}

	mappings, err := store.List(ctx, "usr_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("expected 1 mapping, got %d", len(mappings))
	}

	if err := store.Delete(ctx, "usr_1", mapping.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.UpdateStatus(ctx, mapping.ID, core.SheetMappingSyncing, "", nil); !errors.Is(err, core.ErrSheetMappingNotFound) {
		t.Fatalf("expected ErrSheetMappingNotFound, got %v", err)
	}
}

func TestDocumentStore_CreateListDelete(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()
	store := factory.DocumentStore()

	document, err := store.Create(ctx, core.CreateDocumentInput{
		UserID:      "usr_1",
		DriveFileID: "file_1",
		Name:        "contrato.pdf",
		Category:    "contracts",
		ClientID:    "cli_9",
		ProcessID:   "proc_3",
		SizeBytes:   2048,
		MimeType:    "application/pdf",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	fetched, err := store.Get(ctx, "usr_1", document.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.DriveFileID != "file_1" || fetched.SizeBytes != 2048 {
		t.Fatalf("unexpected document %+v", fetched)
	}

	if _, err := store.Get(ctx, "usr_2", document.ID); !errors.Is(err, core.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound for other user, got %v", err)
	}

	documents, err := store.List(ctx, "usr_1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(documents))
	}

	if err := store.Delete(ctx, "usr_1", document.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "usr_1", document.ID); !errors.Is(err, core.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound on repeat delete, got %v", err)
	}
}

func TestIntegrationStore_UpsertMergesSettings(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()
	store := factory.IntegrationStore()

	created, err := store.Upsert(ctx, core.UpsertIntegrationInput{
		UserID:      "usr_1",
		Service:     core.ServiceCalendar,
		IsConnected: true,
		Settings:    map[string]any{"imported_events": float64(3)},
	})
	if err != nil {
		t.Fatalf("insert upsert: %v", err)
	}
	if !created.IsConnected {
		t.Fatalf("expected connected integration")
	}

	syncedAt := time.Now().UTC().Truncate(time.Second)
	updated, err := store.Upsert(ctx, core.UpsertIntegrationInput{
		UserID:       "usr_1",
		Service:      core.ServiceCalendar,
		IsConnected:  false,
		LastSyncedAt: &syncedAt,
		Settings:     map[string]any{"imported_events": float64(8)},
	})
	if err != nil {
		t.Fatalf("update upsert: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("expected the same row to be updated")
	}
	if updated.IsConnected {
		t.Fatalf("expected disconnected integration")
	}
	if updated.LastSyncedAt == nil {
		t.Fatalf("expected last synced timestamp")
	}
	if got := updated.Settings["imported_events"]; fmt.Sprint(got) != "8" {
		t.Fatalf("imported_events = %v", got)
	}

	disconnectedOnly, err := store.Upsert(ctx, core.UpsertIntegrationInput{
		UserID:      "usr_1",
		Service:     core.ServiceCalendar,
		IsConnected: true,
	})
	if err != nil {
		t.Fatalf("status-only upsert: %v", err)
	}
	if disconnectedOnly.LastSyncedAt == nil {
		t.Fatalf("status-only upsert should keep last synced timestamp")
	}
	if got := disconnectedOnly.Settings["imported_events"]; fmt.Sprint(got) != "8" {
		t.Fatalf("status-only upsert should keep settings, got %v", got)
	}
}

func TestAccessLogStore_AppendRedactsSecrets(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()
	store := factory.AccessLogStore()

	err := store.Append(ctx, core.AccessLogEntry{
		UserID:   "usr_1",
		Action:   core.AccessLogServiceConnected,
		Resource: "calendar",
		Detail:   "google calendar connected",
		Metadata: map[string]any{
			"scope":        "calendar.readonly",
			"access_token": "should-not-persist",
		},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := factory.AccessLogReader().ListByUser(ctx, "usr_1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Action != core.AccessLogServiceConnected {
		t.Fatalf("action = %q", entry.Action)
	}
	if got := entry.Metadata["access_token"]; got != "[REDACTED]" {
		t.Fatalf("expected token redaction, got %v", got)
	}
	if got := entry.Metadata["scope"]; got != "calendar.readonly" {
		t.Fatalf("scope = %v", got)
	}
}

func newFactory(t *testing.T) (*sqlstore.RepositoryFactory, func()) {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		cleanup()
		t.Fatalf("build stores: %v", err)
	}
	return factory, cleanup
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:google-services-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = servicemigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != servicemigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, servicemigrations.WithValidationTargets(servicemigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
