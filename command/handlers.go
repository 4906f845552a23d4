package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/lexfirm/google-services/core"
	gcalendar "github.com/lexfirm/google-services/google/calendar"
	"github.com/lexfirm/google-services/integrations"
)

// TokenService is the token lifecycle surface commands mutate through.
type TokenService interface {
	ExchangeCode(ctx context.Context, id core.Identity, req core.ExchangeRequest) (core.ExchangeResult, error)
	Revoke(ctx context.Context, id core.Identity, tokenID string) error
}

type CalendarService interface {
	ImportEvents(ctx context.Context, id core.Identity, req integrations.ImportEventsRequest) (integrations.ImportEventsResult, error)
	ExportEvent(ctx context.Context, id core.Identity, calendarID string, event gcalendar.Event) (gcalendar.Event, error)
}

type SheetService interface {
	RegisterMapping(ctx context.Context, id core.Identity, req integrations.RegisterSheetMappingRequest) (core.SheetMapping, error)
	RemoveMapping(ctx context.Context, id core.Identity, mappingID string) error
	SyncMapping(ctx context.Context, id core.Identity, mappingID string) (integrations.SheetSyncResult, error)
}

type DocumentService interface {
	UploadDocument(ctx context.Context, id core.Identity, req integrations.UploadDocumentRequest) (core.Document, error)
	DeleteDocument(ctx context.Context, id core.Identity, documentID string) error
}

type BankStatementService interface {
	ImportTransactions(ctx context.Context, id core.Identity, spreadsheetID string) (integrations.BankStatementImportResult, error)
}

type ExchangeCodeCommand struct {
	service TokenService
}

func NewExchangeCodeCommand(service TokenService) *ExchangeCodeCommand {
	return &ExchangeCodeCommand{service: service}
}

func (c *ExchangeCodeCommand) Execute(ctx context.Context, msg ExchangeCodeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	out, err := c.service.ExchangeCode(ctx, msg.Identity, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RevokeTokenCommand struct {
	service TokenService
}

func NewRevokeTokenCommand(service TokenService) *RevokeTokenCommand {
	return &RevokeTokenCommand{service: service}
}

func (c *RevokeTokenCommand) Execute(ctx context.Context, msg RevokeTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	return c.service.Revoke(ctx, msg.Identity, msg.TokenID)
}

type ImportEventsCommand struct {
	service CalendarService
}

func NewImportEventsCommand(service CalendarService) *ImportEventsCommand {
	return &ImportEventsCommand{service: service}
}

func (c *ImportEventsCommand) Execute(ctx context.Context, msg ImportEventsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: calendar service is required")
	}
	out, err := c.service.ImportEvents(ctx, msg.Identity, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ExportEventCommand struct {
	service CalendarService
}

func NewExportEventCommand(service CalendarService) *ExportEventCommand {
	return &ExportEventCommand{service: service}
}

func (c *ExportEventCommand) Execute(ctx context.Context, msg ExportEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: calendar service is required")
	}
	out, err := c.service.ExportEvent(ctx, msg.Identity, msg.CalendarID, msg.Event)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RegisterSheetCommand struct {
	service SheetService
}

func NewRegisterSheetCommand(service SheetService) *RegisterSheetCommand {
	return &RegisterSheetCommand{service: service}
}

func (c *RegisterSheetCommand) Execute(ctx context.Context, msg RegisterSheetMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sheet service is required")
	}
	out, err := c.service.RegisterMapping(ctx, msg.Identity, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RemoveSheetCommand struct {
	service SheetService
}

func NewRemoveSheetCommand(service SheetService) *RemoveSheetCommand {
	return &RemoveSheetCommand{service: service}
}

func (c *RemoveSheetCommand) Execute(ctx context.Context, msg RemoveSheetMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sheet service is required")
	}
	return c.service.RemoveMapping(ctx, msg.Identity, msg.MappingID)
}

type SyncSheetCommand struct {
	service SheetService
}

func NewSyncSheetCommand(service SheetService) *SyncSheetCommand {
	return &SyncSheetCommand{service: service}
}

func (c *SyncSheetCommand) Execute(ctx context.Context, msg SyncSheetMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sheet service is required")
	}
	out, err := c.service.SyncMapping(ctx, msg.Identity, msg.MappingID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UploadDocumentCommand struct {
	service DocumentService
}

func NewUploadDocumentCommand(service DocumentService) *UploadDocumentCommand {
	return &UploadDocumentCommand{service: service}
}

func (c *UploadDocumentCommand) Execute(ctx context.Context, msg UploadDocumentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: document service is required")
	}
	out, err := c.service.UploadDocument(ctx, msg.Identity, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeleteDocumentCommand struct {
	service DocumentService
}

func NewDeleteDocumentCommand(service DocumentService) *DeleteDocumentCommand {
	return &DeleteDocumentCommand{service: service}
}

func (c *DeleteDocumentCommand) Execute(ctx context.Context, msg DeleteDocumentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: document service is required")
	}
	return c.service.DeleteDocument(ctx, msg.Identity, msg.DocumentID)
}

type ImportBankStatementCommand struct {
	service BankStatementService
}

func NewImportBankStatementCommand(service BankStatementService) *ImportBankStatementCommand {
	return &ImportBankStatementCommand{service: service}
}

func (c *ImportBankStatementCommand) Execute(ctx context.Context, msg ImportBankStatementMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: bank statement service is required")
	}
	out, err := c.service.ImportTransactions(ctx, msg.Identity, msg.SpreadsheetID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
