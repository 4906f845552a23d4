package sqlstore

import (
	"time"

	"github.com/lexfirm/google-services/core"
)

func newTokenRecord(in core.UpsertTokenInput, now time.Time) *tokenRecord {
	return &tokenRecord{
		UserID:       in.UserID,
		Service:      string(in.Service),
		AccessToken:  in.AccessToken,
		RefreshToken: in.RefreshToken,
		TokenType:    in.TokenType,
		Scope:        in.Scope,
		ExpiresAt:    in.ExpiresAt,
		Revision:     1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *tokenRecord) toDomain() core.Token {
	if r == nil {
		return core.Token{}
	}
	return core.Token{
		ID:           r.ID,
		UserID:       r.UserID,
		Service:      core.GoogleService(r.Service),
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		Scope:        r.Scope,
		ExpiresAt:    r.ExpiresAt,
		Revision:     r.Revision,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func newClientConfigRecord(in core.UpsertClientConfigInput, now time.Time) *clientConfigRecord {
	return &clientConfigRecord{
		UserID:       in.UserID,
		Service:      string(in.Service),
		ClientID:     in.ClientID,
		ClientSecret: in.ClientSecret,
		RedirectURI:  in.RedirectURI,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *clientConfigRecord) toDomain() core.ClientConfig {
	if r == nil {
		return core.ClientConfig{}
	}
	return core.ClientConfig{
		ID:           r.ID,
		UserID:       r.UserID,
		Service:      core.GoogleService(r.Service),
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		RedirectURI:  r.RedirectURI,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func newSheetMappingRecord(in core.CreateSheetMappingInput, now time.Time) *sheetMappingRecord {
	return &sheetMappingRecord{
		UserID:        in.UserID,
		Name:          in.Name,
		SheetURL:      in.SheetURL,
		SpreadsheetID: in.SpreadsheetID,
		Kind:          string(in.Kind),
		Status:        string(core.SheetMappingConnected),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (r *sheetMappingRecord) toDomain() core.SheetMapping {
	if r == nil {
		return core.SheetMapping{}
	}
	mapping := core.SheetMapping{
		ID:            r.ID,
		UserID:        r.UserID,
		Name:          r.Name,
		SheetURL:      r.SheetURL,
		SpreadsheetID: r.SpreadsheetID,
		Kind:          core.SheetMappingKind(r.Kind),
		Status:        core.SheetMappingStatus(r.Status),
		LastError:     r.LastError,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.LastSyncedAt != nil {
		syncedAt := *r.LastSyncedAt
		mapping.LastSyncedAt = &syncedAt
	}
	return mapping
}

func newDocumentRecord(in core.CreateDocumentInput, now time.Time) *documentRecord {
	return &documentRecord{
		UserID:      in.UserID,
		DriveFileID: in.DriveFileID,
		Name:        in.Name,
		Category:    in.Category,
		ClientID:    in.ClientID,
		ProcessID:   in.ProcessID,
		SizeBytes:   in.SizeBytes,
		MimeType:    in.MimeType,
		CreatedAt:   now,
	}
}

func (r *documentRecord) toDomain() core.Document {
	if r == nil {
		return core.Document{}
	}
	return core.Document{
		ID:          r.ID,
		UserID:      r.UserID,
		DriveFileID: r.DriveFileID,
		Name:        r.Name,
		Category:    r.Category,
		ClientID:    r.ClientID,
		ProcessID:   r.ProcessID,
		SizeBytes:   r.SizeBytes,
		MimeType:    r.MimeType,
		CreatedAt:   r.CreatedAt,
	}
}

func (r *integrationRecord) toDomain() core.Integration {
	if r == nil {
		return core.Integration{}
	}
	integration := core.Integration{
		ID:          r.ID,
		UserID:      r.UserID,
		Service:     core.GoogleService(r.Service),
		IsConnected: r.IsConnected,
		Settings:    cloneSettings(r.Settings),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.LastSyncedAt != nil {
		syncedAt := *r.LastSyncedAt
		integration.LastSyncedAt = &syncedAt
	}
	return integration
}

func cloneSettings(settings map[string]any) map[string]any {
	copied := make(map[string]any, len(settings))
	for key, value := range settings {
		copied[key] = value
	}
	return copied
}
