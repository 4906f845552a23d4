package services

import (
	"fmt"
	"reflect"

	servicescommand "github.com/lexfirm/google-services/command"
	servicesquery "github.com/lexfirm/google-services/query"
)

// FacadeServices are the wired domain services the facade dispatches to.
// Tokens is required; the integration services are optional and commands
// built without them fail with a dependency error at execution time.
type FacadeServices struct {
	Tokens    servicescommand.TokenService
	Calendar  servicescommand.CalendarService
	Sheets    servicescommand.SheetService
	Documents servicescommand.DocumentService
	Bank      servicescommand.BankStatementService
}

type Commands struct {
	ExchangeCode        *servicescommand.ExchangeCodeCommand
	RevokeToken         *servicescommand.RevokeTokenCommand
	ImportEvents        *servicescommand.ImportEventsCommand
	ExportEvent         *servicescommand.ExportEventCommand
	RegisterSheet       *servicescommand.RegisterSheetCommand
	RemoveSheet         *servicescommand.RemoveSheetCommand
	SyncSheet           *servicescommand.SyncSheetCommand
	UploadDocument      *servicescommand.UploadDocumentCommand
	DeleteDocument      *servicescommand.DeleteDocumentCommand
	ImportBankStatement *servicescommand.ImportBankStatementCommand
}

type Queries struct {
	GetAccessToken    *servicesquery.GetAccessTokenQuery
	ConnectionStatus  *servicesquery.ConnectionStatusQuery
	ConfigCheck       *servicesquery.ConfigCheckQuery
	ListSheetMappings *servicesquery.ListSheetMappingsQuery
	ListDocuments     *servicesquery.ListDocumentsQuery
	ListAccessLogs    *servicesquery.ListAccessLogsQuery
}

type Facade struct {
	services FacadeServices
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	accessLogs   servicesquery.AccessLogReader
	storeFactory any
}

func WithAccessLogReader(reader servicesquery.AccessLogReader) FacadeOption {
	return func(options *facadeOptions) {
		options.accessLogs = reader
	}
}

// WithStoreFactory lets the facade pull the access log reader off a store
// factory when the caller does not hand one over directly.
func WithStoreFactory(factory any) FacadeOption {
	return func(options *facadeOptions) {
		options.storeFactory = factory
	}
}

func NewFacade(services FacadeServices, opts ...FacadeOption) (*Facade, error) {
	if services.Tokens == nil {
		return nil, fmt.Errorf("services: token service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	accessLogs := cfg.accessLogs
	if accessLogs == nil {
		accessLogs = resolveAccessLogReader(cfg.storeFactory)
	}

	facade := &Facade{services: services}
	facade.commands = Commands{
		ExchangeCode:        servicescommand.NewExchangeCodeCommand(services.Tokens),
		RevokeToken:         servicescommand.NewRevokeTokenCommand(services.Tokens),
		ImportEvents:        servicescommand.NewImportEventsCommand(services.Calendar),
		ExportEvent:         servicescommand.NewExportEventCommand(services.Calendar),
		RegisterSheet:       servicescommand.NewRegisterSheetCommand(services.Sheets),
		RemoveSheet:         servicescommand.NewRemoveSheetCommand(services.Sheets),
		SyncSheet:           servicescommand.NewSyncSheetCommand(services.Sheets),
		UploadDocument:      servicescommand.NewUploadDocumentCommand(services.Documents),
		DeleteDocument:      servicescommand.NewDeleteDocumentCommand(services.Documents),
		ImportBankStatement: servicescommand.NewImportBankStatementCommand(services.Bank),
	}
	facade.queries = Queries{
		GetAccessToken:    servicesquery.NewGetAccessTokenQuery(asAccessTokenReader(services.Tokens)),
		ConnectionStatus:  servicesquery.NewConnectionStatusQuery(asConnectionReader(services.Tokens)),
		ConfigCheck:       servicesquery.NewConfigCheckQuery(asConnectionReader(services.Tokens)),
		ListSheetMappings: servicesquery.NewListSheetMappingsQuery(asSheetMappingReader(services.Sheets)),
		ListDocuments:     servicesquery.NewListDocumentsQuery(asDocumentReader(services.Documents)),
		ListAccessLogs:    servicesquery.NewListAccessLogsQuery(accessLogs),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Services() FacadeServices {
	if f == nil {
		return FacadeServices{}
	}
	return f.services
}

func asAccessTokenReader(candidate any) servicesquery.AccessTokenReader {
	reader, _ := candidate.(servicesquery.AccessTokenReader)
	return reader
}

func asConnectionReader(candidate any) servicesquery.ConnectionReader {
	reader, _ := candidate.(servicesquery.ConnectionReader)
	return reader
}

func asSheetMappingReader(candidate any) servicesquery.SheetMappingReader {
	reader, _ := candidate.(servicesquery.SheetMappingReader)
	return reader
}

func asDocumentReader(candidate any) servicesquery.DocumentReader {
	reader, _ := candidate.(servicesquery.DocumentReader)
	return reader
}

// resolveAccessLogReader accepts either a direct reader or any factory
// exposing an AccessLogReader() accessor, located reflectively so the facade
// does not depend on the store package.
func resolveAccessLogReader(candidate any) servicesquery.AccessLogReader {
	if candidate == nil {
		return nil
	}
	if reader, ok := candidate.(servicesquery.AccessLogReader); ok {
		return reader
	}

	factoryValue := reflect.ValueOf(candidate)
	if !factoryValue.IsValid() {
		return nil
	}
	if factoryValue.Kind() == reflect.Ptr && factoryValue.IsNil() {
		return nil
	}
	method := factoryValue.MethodByName("AccessLogReader")
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil
	}

	results, ok := safeReflectCall(method)
	if !ok || len(results) != 1 {
		return nil
	}
	result := results[0]
	if !result.IsValid() {
		return nil
	}
	if result.Kind() == reflect.Ptr && result.IsNil() {
		return nil
	}
	reader, ok := result.Interface().(servicesquery.AccessLogReader)
	if !ok {
		return nil
	}
	return reader
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
