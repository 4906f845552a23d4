package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	services "github.com/lexfirm/google-services"
	"github.com/lexfirm/google-services/core"
	"github.com/lexfirm/google-services/google"
	gcalendar "github.com/lexfirm/google-services/google/calendar"
	gdrive "github.com/lexfirm/google-services/google/drive"
	gsheets "github.com/lexfirm/google-services/google/sheets"
	"github.com/lexfirm/google-services/identity"
	"github.com/lexfirm/google-services/integrations"
	servicemigrations "github.com/lexfirm/google-services/migrations"
	"github.com/lexfirm/google-services/server"
)

type persistenceConfig struct {
	debug  bool
	driver string
	server string
}

func (c persistenceConfig) GetDebug() bool { return c.debug }
func (c persistenceConfig) GetDriver() string { return c.driver }
func (c persistenceConfig) GetServer() string { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string { return "google-services" }

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// logRecorder stands in for the CRM's financial module when the server runs
// standalone: imported transactions are only logged.
type logRecorder struct{}

func (logRecorder) Record(_ context.Context, userID string, tx integrations.Transaction) error {
	log.Printf("bank transaction imported: user=%s date=%s amount=%.2f kind=%s",
		userID, tx.Date.Format("2006-01-02"), tx.Amount, tx.Kind)
	return nil
}

func main() {
	listenAddr := flag.String("listen", getenv("GOOGLE_SERVICES_LISTEN_ADDR", ":8080"), "HTTP listen address")
	dbDriver := flag.String("db-driver", getenv("GOOGLE_SERVICES_DB_DRIVER", "sqlite3"), "Database driver: sqlite3|postgres")
	dbDSN := flag.String("db-dsn", getenv("GOOGLE_SERVICES_DB_DSN", "file:google-services.db?_foreign_keys=on"), "Database DSN")
	debugSQL := flag.Bool("debug-sql", false, "Log SQL statements")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "google-services exposes the firm's Google OAuth and sync functions over HTTP.\n\n")
		fmt.Fprintf(os.Stderr, "Environment variables:\n")
		fmt.Fprintf(os.Stderr, "  GOOGLE_SERVICES_API_TOKEN       Bearer token for the function routes (required)\n")
		fmt.Fprintf(os.Stderr, "  GOOGLE_SERVICES_USER_ID         CRM user id the token resolves to (required)\n")
		fmt.Fprintf(os.Stderr, "  GOOGLE_SERVICES_USER_EMAIL      CRM user email the token resolves to\n")
		fmt.Fprintf(os.Stderr, "  GOOGLE_SERVICES_ALLOWED_DOMAIN  Authorized email domain suffix (default: @mrladvogados.com.br)\n")
		fmt.Fprintf(os.Stderr, "  GOOGLE_SERVICES_CORS_ORIGINS    Comma-separated allowed origins\n")
		fmt.Fprintf(os.Stderr, "  GOOGLE_SERVICES_LISTEN_ADDR     Listen address (default: :8080)\n")
		fmt.Fprintf(os.Stderr, "  GOOGLE_SERVICES_DB_DRIVER       sqlite3 or postgres (default: sqlite3)\n")
		fmt.Fprintf(os.Stderr, "  GOOGLE_SERVICES_DB_DSN          Database DSN\n")
		fmt.Fprintf(os.Stderr, "\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	apiToken := strings.TrimSpace(os.Getenv("GOOGLE_SERVICES_API_TOKEN"))
	userID := strings.TrimSpace(os.Getenv("GOOGLE_SERVICES_USER_ID"))
	if apiToken == "" || userID == "" {
		log.Fatal("GOOGLE_SERVICES_API_TOKEN and GOOGLE_SERVICES_USER_ID are required")
	}

	var (
		driverName   string
		dialect      schema.Dialect
		migrationTgt string
	)
	switch *dbDriver {
	case "sqlite3", "sqlite":
		driverName = "sqlite3"
		dialect = sqlitedialect.New()
		migrationTgt = servicemigrations.DialectSQLite
	case "postgres", "pgx":
		driverName = "pgx"
		dialect = pgdialect.New()
		migrationTgt = servicemigrations.DialectPostgres
	default:
		log.Fatalf("unsupported db driver %q", *dbDriver)
	}

	sqlDB, err := sql.Open(driverName, *dbDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if driverName == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{
		debug:  *debugSQL,
		driver: driverName,
		server: *dbDSN,
	}, sqlDB, dialect)
	if err != nil {
		log.Fatalf("persistence client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	_, err = servicemigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != migrationTgt {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, servicemigrations.WithValidationTargets(migrationTgt))
	if err != nil {
		log.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	cfg := services.DefaultConfig()
	if domain := strings.TrimSpace(os.Getenv("GOOGLE_SERVICES_ALLOWED_DOMAIN")); domain != "" {
		cfg.AllowedEmailDomain = domain
	}

	service, factory, err := services.Setup(cfg, client,
		services.WithTokenEndpointClient(google.NewTokenClient(google.TokenClientConfig{
			TokenURL:  cfg.Google.TokenURL,
			RevokeURL: cfg.Google.RevokeURL,
		})),
	)
	if err != nil {
		log.Fatalf("build service: %v", err)
	}

	tokenCache := core.NewTokenCache(service, cfg.CacheTTL())
	httpClient := google.DefaultHTTPClient()

	calendarSvc, err := integrations.NewCalendarService(integrations.CalendarServiceConfig{
		Tokens:       tokenCache,
		Client:       gcalendar.NewClient(gcalendar.ClientConfig{HTTPClient: httpClient}),
		Integrations: factory.IntegrationStore(),
	})
	if err != nil {
		log.Fatalf("calendar service: %v", err)
	}

	sheetsClient := gsheets.NewClient(gsheets.ClientConfig{HTTPClient: httpClient})
	sheetsSvc, err := integrations.NewSheetSyncService(integrations.SheetSyncServiceConfig{
		Tokens:       tokenCache,
		Client:       sheetsClient,
		Mappings:     factory.SheetMappingStore(),
		Integrations: factory.IntegrationStore(),
	})
	if err != nil {
		log.Fatalf("sheet sync service: %v", err)
	}

	documentsSvc, err := integrations.NewDocumentService(integrations.DocumentServiceConfig{
		Tokens:       tokenCache,
		Client:       gdrive.NewClient(gdrive.ClientConfig{HTTPClient: httpClient}),
		Documents:    factory.DocumentStore(),
		Integrations: factory.IntegrationStore(),
	})
	if err != nil {
		log.Fatalf("document service: %v", err)
	}

	bankSvc, err := integrations.NewBankStatementImporter(integrations.BankStatementImporterConfig{
		Tokens:   tokenCache,
		Client:   sheetsClient,
		Recorder: logRecorder{},
	})
	if err != nil {
		log.Fatalf("bank statement importer: %v", err)
	}

	profiles, err := identity.NewGoogleProfileResolver(identity.Config{
		Tokens: tokenCache,
		Client: httpClient,
	})
	if err != nil {
		log.Fatalf("profile resolver: %v", err)
	}

	var corsOrigins []string
	if raw := strings.TrimSpace(os.Getenv("GOOGLE_SERVICES_CORS_ORIGINS")); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				corsOrigins = append(corsOrigins, origin)
			}
		}
	}

	router, err := server.NewRouter(server.Config{
		Tokens:     service,
		Calendar:   calendarSvc,
		Sheets:     sheetsSvc,
		Documents:  documentsSvc,
		Bank:       bankSvc,
		AccessLogs: factory.AccessLogReader(),
		Profiles:   profiles,
		Identities: server.NewStaticTokenResolver(map[string]core.Identity{
			apiToken: {
				UserID: userID,
				Email:  strings.TrimSpace(os.Getenv("GOOGLE_SERVICES_USER_EMAIL")),
			},
		}),
		CORSOrigins: corsOrigins,
	})
	if err != nil {
		log.Fatalf("build router: %v", err)
	}

	log.Printf("google-services listening on %s (driver=%s)", *listenAddr, driverName)
	if err := router.Run(*listenAddr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
