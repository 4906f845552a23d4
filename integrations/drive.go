package integrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/lexfirm/google-services/core"
	"github.com/lexfirm/google-services/google"
	gdrive "github.com/lexfirm/google-services/google/drive"
)

// DriveAPI is the slice of the drive REST client this service needs.
type DriveAPI interface {
	Upload(ctx context.Context, accessToken string, req gdrive.UploadRequest) (gdrive.File, error)
	GetMetadata(ctx context.Context, accessToken string, fileID string) (gdrive.File, error)
	Delete(ctx context.Context, accessToken string, fileID string) error
}

type DocumentServiceConfig struct {
	Tokens       core.AccessTokenGetter
	Client       DriveAPI
	Documents    core.DocumentStore
	Integrations core.IntegrationStore
	Logger       core.Logger
	Now          func() time.Time
}

// DocumentService stores case documents in Drive and keeps local metadata in
// step with the remote file.
type DocumentService struct {
	tokens       core.AccessTokenGetter
	client       DriveAPI
	documents    core.DocumentStore
	integrations core.IntegrationStore
	logger       core.Logger
	nowFn        func() time.Time
}

func NewDocumentService(cfg DocumentServiceConfig) (*DocumentService, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("integrations: token getter is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("integrations: drive client is required")
	}
	if cfg.Documents == nil {
		return nil, fmt.Errorf("integrations: document store is required")
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &DocumentService{
		tokens:       cfg.Tokens,
		client:       cfg.Client,
		documents:    cfg.Documents,
		integrations: cfg.Integrations,
		logger:       glog.Ensure(cfg.Logger),
		nowFn:        nowFn,
	}, nil
}

type UploadDocumentRequest struct {
	Name      string
	MimeType  string
	Category  string
	ClientID  string
	ProcessID string
	FolderID  string
	Content   []byte
}

// UploadDocument is a two-phase commit: remote upload first, local metadata
// second. If the metadata write fails the remote file is deleted best-effort
// so Drive does not accumulate orphans; a failed compensation is logged and
// left for manual cleanup, never retried here.
func (s *DocumentService) UploadDocument(ctx context.Context, id core.Identity, req UploadDocumentRequest) (core.Document, error) {
	if s == nil {
		return core.Document{}, fmt.Errorf("integrations: document service is nil")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return core.Document{}, fmt.Errorf("integrations: document name is required")
	}
	if len(req.Content) == 0 {
		return core.Document{}, fmt.Errorf("integrations: document content is required")
	}

	accessToken, err := s.tokens.GetValidAccessToken(ctx, id, core.ServiceDrive)
	if err != nil {
		return core.Document{}, err
	}

	var parents []string
	if folderID := strings.TrimSpace(req.FolderID); folderID != "" {
		parents = []string{folderID}
	}
	uploaded, err := s.client.Upload(ctx, accessToken, gdrive.UploadRequest{
		Name:     name,
		MimeType: req.MimeType,
		Parents:  parents,
		Content:  req.Content,
	})
	if err != nil {
		s.reconcileAPIError(ctx, id, err)
		return core.Document{}, err
	}

	size := uploaded.Size
	if size == 0 {
		size = int64(len(req.Content))
	}
	document, err := s.documents.Create(ctx, core.CreateDocumentInput{
		UserID:      id.UserID,
		DriveFileID: uploaded.ID,
		Name:        name,
		Category:    strings.TrimSpace(req.Category),
		ClientID:    strings.TrimSpace(req.ClientID),
		ProcessID:   strings.TrimSpace(req.ProcessID),
		SizeBytes:   size,
		MimeType:    uploaded.MimeType,
	})
	if err != nil {
		if deleteErr := s.client.Delete(ctx, accessToken, uploaded.ID); deleteErr != nil {
			s.logger.Error("orphaned drive file cleanup failed",
				"user_id", id.UserID, "drive_file_id", uploaded.ID, "error", deleteErr)
		}
		return core.Document{}, err
	}
	return document, nil
}

// DeleteDocument removes the remote file first, tolerating a file already
// gone, then drops the local metadata row.
func (s *DocumentService) DeleteDocument(ctx context.Context, id core.Identity, documentID string) error {
	if s == nil {
		return fmt.Errorf("integrations: document service is nil")
	}
	document, err := s.documents.Get(ctx, id.UserID, strings.TrimSpace(documentID))
	if err != nil {
		return err
	}

	accessToken, err := s.tokens.GetValidAccessToken(ctx, id, core.ServiceDrive)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, accessToken, document.DriveFileID); err != nil {
		var apiErr *google.APIError
		if !errors.As(err, &apiErr) || !apiErr.NotFound() {
			s.reconcileAPIError(ctx, id, err)
			return err
		}
		s.logger.Info("drive file already removed remotely",
			"user_id", id.UserID, "drive_file_id", document.DriveFileID)
	}

	return s.documents.Delete(ctx, id.UserID, document.ID)
}

func (s *DocumentService) ListDocuments(ctx context.Context, id core.Identity) ([]core.Document, error) {
	if s == nil {
		return nil, fmt.Errorf("integrations: document service is nil")
	}
	return s.documents.List(ctx, id.UserID)
}

func (s *DocumentService) reconcileAPIError(ctx context.Context, id core.Identity, err error) {
	var apiErr *google.APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		return
	}
	s.tokens.Invalidate(id, core.ServiceDrive)
	markIntegrationDisconnected(ctx, s.integrations, s.logger, id, core.ServiceDrive)
}
