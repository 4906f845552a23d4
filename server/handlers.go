package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexfirm/google-services/core"
	gcalendar "github.com/lexfirm/google-services/google/calendar"
	"github.com/lexfirm/google-services/identity"
	"github.com/lexfirm/google-services/integrations"
)

func abortWithError(c *gin.Context, err error) {
	err = core.MapError(err)
	c.AbortWithStatusJSON(core.HTTPStatus(err), gin.H{
		"error": err.Error(),
		"code":  core.TextCode(err),
	})
}

func requireIdentity(c *gin.Context) (core.Identity, bool) {
	id, ok := identityFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity missing from request context"})
		return core.Identity{}, false
	}
	return id, true
}

func requireService(c *gin.Context) (core.GoogleService, bool) {
	service, err := core.ParseGoogleService(c.Query("service"))
	if err != nil {
		abortWithError(c, err)
		return "", false
	}
	return service, true
}

func handleTokenExchange(tokens TokenService, logger core.Logger) gin.HandlerFunc {
	type request struct {
		Code        string `json:"code"`
		Service     string `json:"service"`
		RedirectURI string `json:"redirect_uri"`
	}
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		result, err := tokens.ExchangeCode(c.Request.Context(), id, core.ExchangeRequest{
			Code:        req.Code,
			Service:     core.GoogleService(strings.TrimSpace(req.Service)),
			RedirectURI: req.RedirectURI,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		logger.Info("google token exchanged", "user_id", id.UserID, "service", string(result.Service))
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"service":    result.Service,
			"scope":      result.Scope,
			"expires_at": result.ExpiresAt,
		})
	}
}

func handleTokenRevoke(tokens TokenService, logger core.Logger) gin.HandlerFunc {
	type request struct {
		TokenID string `json:"token_id"`
	}
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		if strings.TrimSpace(req.TokenID) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "token_id is required"})
			return
		}
		if err := tokens.Revoke(c.Request.Context(), id, req.TokenID); err != nil {
			abortWithError(c, err)
			return
		}
		logger.Info("google token revoked", "user_id", id.UserID, "token_id", req.TokenID)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func handleTokenRefresh(tokens TokenService) gin.HandlerFunc {
	type request struct {
		Service string `json:"service"`
	}
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		service, err := core.ParseGoogleService(req.Service)
		if err != nil {
			abortWithError(c, err)
			return
		}
		accessToken, err := tokens.ResolveAccessToken(c.Request.Context(), id, service)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": accessToken})
	}
}

func handleConfigCheck(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		service, ok := requireService(c)
		if !ok {
			return
		}
		result, err := tokens.ConfigCheck(c.Request.Context(), id, service)
		if err != nil {
			err = core.MapError(err)
			c.AbortWithStatusJSON(core.HTTPStatus(err), gin.H{
				"error":      err.Error(),
				"code":       core.TextCode(err),
				"configured": false,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"client_id":  result.ClientID,
			"configured": result.Configured,
		})
	}
}

func handleConnectionStatus(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		service, ok := requireService(c)
		if !ok {
			return
		}
		state, err := tokens.ConnectionStatus(c.Request.Context(), id, service)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"service":            state.Service,
			"connected":          state.Connected,
			"expires_at":         state.ExpiresAt,
			"refreshable":        state.Refreshable,
			"reconnect_required": state.ReconnectNeed,
			"last_synced_at":     state.LastSyncedAt,
		})
	}
}

func handleCalendarImport(calendar CalendarService) gin.HandlerFunc {
	type request struct {
		CalendarID string    `json:"calendar_id"`
		TimeMin    time.Time `json:"time_min"`
		TimeMax    time.Time `json:"time_max"`
		MaxResults int       `json:"max_results"`
	}
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		result, err := calendar.ImportEvents(c.Request.Context(), id, integrations.ImportEventsRequest{
			CalendarID: req.CalendarID,
			TimeMin:    req.TimeMin,
			TimeMax:    req.TimeMax,
			MaxResults: req.MaxResults,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"imported": result.Imported,
			"events":   result.Events,
		})
	}
}

func handleCalendarExport(calendar CalendarService) gin.HandlerFunc {
	type request struct {
		CalendarID string          `json:"calendar_id"`
		Event      gcalendar.Event `json:"event"`
	}
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		created, err := calendar.ExportEvent(c.Request.Context(), id, req.CalendarID, req.Event)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"event": created})
	}
}

type sheetMappingResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	SheetURL      string     `json:"sheet_url"`
	SpreadsheetID string     `json:"spreadsheet_id"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	LastError     string     `json:"last_error,omitempty"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toSheetMappingResponse(mapping core.SheetMapping) sheetMappingResponse {
	return sheetMappingResponse{
		ID:            mapping.ID,
		Name:          mapping.Name,
		SheetURL:      mapping.SheetURL,
		SpreadsheetID: mapping.SpreadsheetID,
		Kind:          string(mapping.Kind),
		Status:        string(mapping.Status),
		LastError:     mapping.LastError,
		LastSyncedAt:  mapping.LastSyncedAt,
		CreatedAt:     mapping.CreatedAt,
	}
}

func handleSheetMappingList(sheets SheetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		mappings, err := sheets.ListMappings(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		out := make([]sheetMappingResponse, 0, len(mappings))
		for _, mapping := range mappings {
			out = append(out, toSheetMappingResponse(mapping))
		}
		c.JSON(http.StatusOK, gin.H{"mappings": out})
	}
}

func handleSheetMappingRegister(sheets SheetService) gin.HandlerFunc {
	type request struct {
		Name     string `json:"name"`
		SheetURL string `json:"sheet_url"`
		Kind     string `json:"kind"`
	}
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		mapping, err := sheets.RegisterMapping(c.Request.Context(), id, integrations.RegisterSheetMappingRequest{
			Name:     req.Name,
			SheetURL: req.SheetURL,
			Kind:     req.Kind,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"mapping": toSheetMappingResponse(mapping)})
	}
}

func handleSheetMappingRemove(sheets SheetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		if err := sheets.RemoveMapping(c.Request.Context(), id, c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func handleSheetMappingSync(sheets SheetService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		result, err := sheets.SyncMapping(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"mapping":   toSheetMappingResponse(result.Mapping),
			"row_count": result.RowCount,
		})
	}
}

type documentResponse struct {
	ID          string    `json:"id"`
	DriveFileID string    `json:"drive_file_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	ClientID    string    `json:"client_id,omitempty"`
	ProcessID   string    `json:"process_id,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	MimeType    string    `json:"mime_type"`
	CreatedAt   time.Time `json:"created_at"`
}

func toDocumentResponse(doc core.Document) documentResponse {
	return documentResponse{
		ID:          doc.ID,
		DriveFileID: doc.DriveFileID,
		Name:        doc.Name,
		Category:    doc.Category,
		ClientID:    doc.ClientID,
		ProcessID:   doc.ProcessID,
		SizeBytes:   doc.SizeBytes,
		MimeType:    doc.MimeType,
		CreatedAt:   doc.CreatedAt,
	}
}

func handleDocumentList(documents DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		docs, err := documents.ListDocuments(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		out := make([]documentResponse, 0, len(docs))
		for _, doc := range docs {
			out = append(out, toDocumentResponse(doc))
		}
		c.JSON(http.StatusOK, gin.H{"documents": out})
	}
}

func handleDocumentUpload(documents DocumentService) gin.HandlerFunc {
	type request struct {
		Name      string `json:"name"`
		MimeType  string `json:"mime_type"`
		Category  string `json:"category"`
		ClientID  string `json:"client_id"`
		ProcessID string `json:"process_id"`
		FolderID  string `json:"folder_id"`
		Content   []byte `json:"content"`
	}
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		doc, err := documents.UploadDocument(c.Request.Context(), id, integrations.UploadDocumentRequest{
			Name:      req.Name,
			MimeType:  req.MimeType,
			Category:  req.Category,
			ClientID:  req.ClientID,
			ProcessID: req.ProcessID,
			FolderID:  req.FolderID,
			Content:   req.Content,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"document": toDocumentResponse(doc)})
	}
}

func handleDocumentDelete(documents DocumentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		if err := documents.DeleteDocument(c.Request.Context(), id, c.Param("id")); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func handleBankStatementImport(bank BankStatementService) gin.HandlerFunc {
	type request struct {
		SpreadsheetID string `json:"spreadsheet_id"`
	}
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		var req request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		if strings.TrimSpace(req.SpreadsheetID) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "spreadsheet_id is required"})
			return
		}
		result, err := bank.ImportTransactions(c.Request.Context(), id, req.SpreadsheetID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		rowErrors := make([]gin.H, 0, len(result.Errors))
		for _, rowErr := range result.Errors {
			rowErrors = append(rowErrors, gin.H{"row": rowErr.Row, "reason": rowErr.Reason})
		}
		c.JSON(http.StatusOK, gin.H{
			"imported": result.Imported,
			"skipped":  result.Skipped,
			"errors":   rowErrors,
		})
	}
}

func handleProfile(profiles ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		service, ok := requireService(c)
		if !ok {
			return
		}
		profile, err := profiles.Resolve(c.Request.Context(), id, service)
		if err != nil {
			var notFound *identity.ProfileNotFoundError
			if errors.As(err, &notFound) {
				err = notFound.ToServiceError()
			}
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"subject":        profile.Subject,
			"email":          profile.Email,
			"email_verified": profile.EmailVerified,
			"name":           profile.Name,
			"picture_url":    profile.PictureURL,
			"locale":         profile.Locale,
		})
	}
}

func handleAccessLogList(logs AccessLogReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := requireIdentity(c)
		if !ok {
			return
		}
		limit := 0
		if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = parsed
		}
		entries, err := logs.ListByUser(c.Request.Context(), id.UserID, limit)
		if err != nil {
			abortWithError(c, err)
			return
		}
		out := make([]gin.H, 0, len(entries))
		for _, entry := range entries {
			out = append(out, gin.H{
				"id":         entry.ID,
				"action":     entry.Action,
				"resource":   entry.Resource,
				"detail":     entry.Detail,
				"metadata":   entry.Metadata,
				"created_at": entry.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"entries": out})
	}
}
