package query

import (
	"context"

	"github.com/lexfirm/google-services/core"
)

type AccessTokenReader interface {
	ResolveAccessToken(ctx context.Context, id core.Identity, service core.GoogleService) (string, error)
}

type ConnectionReader interface {
	ConnectionStatus(ctx context.Context, id core.Identity, service core.GoogleService) (core.ConnectionState, error)
	ConfigCheck(ctx context.Context, id core.Identity, service core.GoogleService) (core.ConfigCheckResult, error)
}

type SheetMappingReader interface {
	ListMappings(ctx context.Context, id core.Identity) ([]core.SheetMapping, error)
}

type DocumentReader interface {
	ListDocuments(ctx context.Context, id core.Identity) ([]core.Document, error)
}

type AccessLogReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]core.AccessLogEntry, error)
}

type GetAccessTokenQuery struct {
	reader AccessTokenReader
}

func NewGetAccessTokenQuery(reader AccessTokenReader) *GetAccessTokenQuery {
	return &GetAccessTokenQuery{reader: reader}
}

func (q *GetAccessTokenQuery) Query(ctx context.Context, msg GetAccessTokenMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: access token reader is required")
	}
	return q.reader.ResolveAccessToken(ctx, msg.Identity, msg.Service)
}

type ConnectionStatusQuery struct {
	reader ConnectionReader
}

func NewConnectionStatusQuery(reader ConnectionReader) *ConnectionStatusQuery {
	return &ConnectionStatusQuery{reader: reader}
}

func (q *ConnectionStatusQuery) Query(ctx context.Context, msg ConnectionStatusMessage) (core.ConnectionState, error) {
	if q == nil || q.reader == nil {
		return core.ConnectionState{}, queryDependencyError("query: connection reader is required")
	}
	return q.reader.ConnectionStatus(ctx, msg.Identity, msg.Service)
}

type ConfigCheckQuery struct {
	reader ConnectionReader
}

func NewConfigCheckQuery(reader ConnectionReader) *ConfigCheckQuery {
	return &ConfigCheckQuery{reader: reader}
}

func (q *ConfigCheckQuery) Query(ctx context.Context, msg ConfigCheckMessage) (core.ConfigCheckResult, error) {
	if q == nil || q.reader == nil {
		return core.ConfigCheckResult{}, queryDependencyError("query: connection reader is required")
	}
	return q.reader.ConfigCheck(ctx, msg.Identity, msg.Service)
}

type ListSheetMappingsQuery struct {
	reader SheetMappingReader
}

func NewListSheetMappingsQuery(reader SheetMappingReader) *ListSheetMappingsQuery {
	return &ListSheetMappingsQuery{reader: reader}
}

func (q *ListSheetMappingsQuery) Query(ctx context.Context, msg ListSheetMappingsMessage) ([]core.SheetMapping, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: sheet mapping reader is required")
	}
	return q.reader.ListMappings(ctx, msg.Identity)
}

type ListDocumentsQuery struct {
	reader DocumentReader
}

func NewListDocumentsQuery(reader DocumentReader) *ListDocumentsQuery {
	return &ListDocumentsQuery{reader: reader}
}

func (q *ListDocumentsQuery) Query(ctx context.Context, msg ListDocumentsMessage) ([]core.Document, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: document reader is required")
	}
	return q.reader.ListDocuments(ctx, msg.Identity)
}

type ListAccessLogsQuery struct {
	reader AccessLogReader
}

func NewListAccessLogsQuery(reader AccessLogReader) *ListAccessLogsQuery {
	return &ListAccessLogsQuery{reader: reader}
}

func (q *ListAccessLogsQuery) Query(ctx context.Context, msg ListAccessLogsMessage) ([]core.AccessLogEntry, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: access log reader is required")
	}
	return q.reader.ListByUser(ctx, msg.Identity.UserID, msg.Limit)
}
