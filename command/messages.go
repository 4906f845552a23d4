package command

import (
	"strings"

	"github.com/lexfirm/google-services/core"
	gcalendar "github.com/lexfirm/google-services/google/calendar"
	"github.com/lexfirm/google-services/integrations"
)

const (
	TypeExchangeCode        = "google.command.token.exchange"
	TypeRevokeToken         = "google.command.token.revoke"
	TypeImportEvents        = "google.command.calendar.import"
	TypeExportEvent         = "google.command.calendar.export"
	TypeRegisterSheet       = "google.command.sheets.register"
	TypeRemoveSheet         = "google.command.sheets.remove"
	TypeSyncSheet           = "google.command.sheets.sync"
	TypeUploadDocument      = "google.command.documents.upload"
	TypeDeleteDocument      = "google.command.documents.delete"
	TypeImportBankStatement = "google.command.bank_statement.import"
)

type ExchangeCodeMessage struct {
	Identity core.Identity
	Request  core.ExchangeRequest
}

func (ExchangeCodeMessage) Type() string { return TypeExchangeCode }

func (m ExchangeCodeMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	if _, err := core.ParseGoogleService(string(m.Request.Service)); err != nil {
		return commandValidationError("service", "a valid google service is required")
	}
	if strings.TrimSpace(m.Request.Code) == "" {
		return commandValidationError("code", "authorization code is required")
	}
	return nil
}

type RevokeTokenMessage struct {
	Identity core.Identity
	TokenID  string
}

func (RevokeTokenMessage) Type() string { return TypeRevokeToken }

func (m RevokeTokenMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	if strings.TrimSpace(m.TokenID) == "" {
		return commandValidationError("token_id", "token id is required")
	}
	return nil
}

type ImportEventsMessage struct {
	Identity core.Identity
	Request  integrations.ImportEventsRequest
}

func (ImportEventsMessage) Type() string { return TypeImportEvents }

func (m ImportEventsMessage) Validate() error {
	return validateIdentity(m.Identity)
}

type ExportEventMessage struct {
	Identity   core.Identity
	CalendarID string
	Event      gcalendar.Event
}

func (ExportEventMessage) Type() string { return TypeExportEvent }

func (m ExportEventMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	if strings.TrimSpace(m.Event.Summary) == "" {
		return commandValidationError("summary", "event summary is required")
	}
	if strings.TrimSpace(m.Event.Start.DateTime) == "" && strings.TrimSpace(m.Event.Start.Date) == "" {
		return commandValidationError("start", "event start time is required")
	}
	return nil
}

type RegisterSheetMessage struct {
	Identity core.Identity
	Request  integrations.RegisterSheetMappingRequest
}

func (RegisterSheetMessage) Type() string { return TypeRegisterSheet }

func (m RegisterSheetMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.Name) == "" {
		return commandValidationError("name", "mapping name is required")
	}
	if strings.TrimSpace(m.Request.SheetURL) == "" {
		return commandValidationError("sheet_url", "sheet url is required")
	}
	if _, err := core.ParseSheetMappingKind(m.Request.Kind); err != nil {
		return commandValidationError("kind", "a valid mapping kind is required")
	}
	return nil
}

type RemoveSheetMessage struct {
	Identity  core.Identity
	MappingID string
}

func (RemoveSheetMessage) Type() string { return TypeRemoveSheet }

func (m RemoveSheetMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	if strings.TrimSpace(m.MappingID) == "" {
		return commandValidationError("mapping_id", "mapping id is required")
	}
	return nil
}

type SyncSheetMessage struct {
	Identity  core.Identity
	MappingID string
}

func (SyncSheetMessage) Type() string { return TypeSyncSheet }

func (m SyncSheetMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	if strings.TrimSpace(m.MappingID) == "" {
		return commandValidationError("mapping_id", "mapping id is required")
	}
	return nil
}

type UploadDocumentMessage struct {
	Identity core.Identity
	Request  integrations.UploadDocumentRequest
}

func (UploadDocumentMessage) Type() string { return TypeUploadDocument }

func (m UploadDocumentMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.Name) == "" {
		return commandValidationError("name", "document name is required")
	}
	if len(m.Request.Content) == 0 {
		return commandValidationError("content", "document content is required")
	}
	return nil
}

type DeleteDocumentMessage struct {
	Identity   core.Identity
	DocumentID string
}

func (DeleteDocumentMessage) Type() string { return TypeDeleteDocument }

func (m DeleteDocumentMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	if strings.TrimSpace(m.DocumentID) == "" {
		return commandValidationError("document_id", "document id is required")
	}
	return nil
}

type ImportBankStatementMessage struct {
	Identity      core.Identity
	SpreadsheetID string
}

func (ImportBankStatementMessage) Type() string { return TypeImportBankStatement }

func (m ImportBankStatementMessage) Validate() error {
	if err := validateIdentity(m.Identity); err != nil {
		return err
	}
	if strings.TrimSpace(m.SpreadsheetID) == "" {
		return commandValidationError("spreadsheet_id", "spreadsheet id is required")
	}
	return nil
}

func validateIdentity(id core.Identity) error {
	if strings.TrimSpace(id.UserID) == "" {
		return commandValidationError("user_id", "identity user id is required")
	}
	return nil
}
