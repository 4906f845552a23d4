package command

import (
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[ExchangeCodeMessage]        = (*ExchangeCodeCommand)(nil)
	_ gocmd.Commander[RevokeTokenMessage]         = (*RevokeTokenCommand)(nil)
	_ gocmd.Commander[ImportEventsMessage]        = (*ImportEventsCommand)(nil)
	_ gocmd.Commander[ExportEventMessage]         = (*ExportEventCommand)(nil)
	_ gocmd.Commander[RegisterSheetMessage]       = (*RegisterSheetCommand)(nil)
	_ gocmd.Commander[RemoveSheetMessage]         = (*RemoveSheetCommand)(nil)
	_ gocmd.Commander[SyncSheetMessage]           = (*SyncSheetCommand)(nil)
	_ gocmd.Commander[UploadDocumentMessage]      = (*UploadDocumentCommand)(nil)
	_ gocmd.Commander[DeleteDocumentMessage]      = (*DeleteDocumentCommand)(nil)
	_ gocmd.Commander[ImportBankStatementMessage] = (*ImportBankStatementCommand)(nil)
)
