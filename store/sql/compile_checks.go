package sqlstore

import "github.com/lexfirm/google-services/core"

var (
	_ core.TokenStore             = (*TokenStore)(nil)
	_ core.ClientConfigStore      = (*ClientConfigStore)(nil)
	_ core.SheetMappingStore      = (*SheetMappingStore)(nil)
	_ core.DocumentStore          = (*DocumentStore)(nil)
	_ core.IntegrationStore       = (*IntegrationStore)(nil)
	_ core.AccessLogStore         = (*AccessLogStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
