package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/lexfirm/google-services/core"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	tokenStore        *TokenStore
	clientConfigStore *ClientConfigStore
	sheetMappingStore *SheetMappingStore
	documentStore     *DocumentStore
	integrationStore  *IntegrationStore
	accessLogStore    *AccessLogStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.tokenStore != nil && f.clientConfigStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) TokenStore() core.TokenStore {
	if f == nil {
		return nil
	}
	return f.tokenStore
}

func (f *RepositoryFactory) ClientConfigStore() core.ClientConfigStore {
	if f == nil {
		return nil
	}
	return f.clientConfigStore
}

func (f *RepositoryFactory) SheetMappingStore() core.SheetMappingStore {
	if f == nil {
		return nil
	}
	return f.sheetMappingStore
}

func (f *RepositoryFactory) DocumentStore() core.DocumentStore {
	if f == nil {
		return nil
	}
	return f.documentStore
}

func (f *RepositoryFactory) IntegrationStore() core.IntegrationStore {
	if f == nil {
		return nil
	}
	return f.integrationStore
}

func (f *RepositoryFactory) AccessLogStore() core.AccessLogStore {
	if f == nil {
		return nil
	}
	return f.accessLogStore
}

// AccessLogReader exposes the audit listing beyond the append-only contract.
func (f *RepositoryFactory) AccessLogReader() *AccessLogStore {
	if f == nil {
		return nil
	}
	return f.accessLogStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	tokenRepo := repository.NewRepository[*tokenRecord](f.db, tokenHandlers())
	if validator, ok := tokenRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid token repository wiring: %w", err)
		}
	}

	clientConfigRepo := repository.NewRepository[*clientConfigRecord](f.db, clientConfigHandlers())
	if validator, ok := clientConfigRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid client config repository wiring: %w", err)
		}
	}

	sheetMappingRepo := repository.NewRepository[*sheetMappingRecord](f.db, sheetMappingHandlers())
	if validator, ok := sheetMappingRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid sheet mapping repository wiring: %w", err)
		}
	}

	documentRepo := repository.NewRepository[*documentRecord](f.db, documentHandlers())
	if validator, ok := documentRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid document repository wiring: %w", err)
		}
	}

	integrationRepo := repository.NewRepository[*integrationRecord](f.db, integrationHandlers())
	if validator, ok := integrationRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid integration repository wiring: %w", err)
		}
	}

	accessLogRepo := repository.NewRepository[*accessLogRecord](f.db, accessLogHandlers())
	if validator, ok := accessLogRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid access log repository wiring: %w", err)
		}
	}

	f.tokenStore = &TokenStore{db: f.db, repo: tokenRepo}
	f.clientConfigStore = &ClientConfigStore{db: f.db, repo: clientConfigRepo}
	f.sheetMappingStore = &SheetMappingStore{db: f.db, repo: sheetMappingRepo}
	f.documentStore = &DocumentStore{db: f.db, repo: documentRepo}
	f.integrationStore = &IntegrationStore{db: f.db, repo: integrationRepo}
	f.accessLogStore = &AccessLogStore{db: f.db, repo: accessLogRepo}

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
