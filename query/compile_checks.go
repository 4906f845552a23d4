package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/lexfirm/google-services/core"
)

var (
	_ gocmd.Querier[GetAccessTokenMessage, string]                 = (*GetAccessTokenQuery)(nil)
	_ gocmd.Querier[ConnectionStatusMessage, core.ConnectionState] = (*ConnectionStatusQuery)(nil)
	_ gocmd.Querier[ConfigCheckMessage, core.ConfigCheckResult]    = (*ConfigCheckQuery)(nil)
	_ gocmd.Querier[ListSheetMappingsMessage, []core.SheetMapping] = (*ListSheetMappingsQuery)(nil)
	_ gocmd.Querier[ListDocumentsMessage, []core.Document]         = (*ListDocumentsQuery)(nil)
	_ gocmd.Querier[ListAccessLogsMessage, []core.AccessLogEntry]  = (*ListAccessLogsQuery)(nil)
)
