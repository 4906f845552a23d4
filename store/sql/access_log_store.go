package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/lexfirm/google-services/core"
	"github.com/uptrace/bun"
)

// AccessLogStore is append-only. Entries are never updated or deleted.
type AccessLogStore struct {
	db   *bun.DB
	repo repository.Repository[*accessLogRecord]
}

func (s *AccessLogStore) Append(ctx context.Context, entry core.AccessLogEntry) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: access log store is not configured")
	}
	entry.UserID = strings.TrimSpace(entry.UserID)
	if entry.UserID == "" {
		return fmt.Errorf("sqlstore: access log user id is required")
	}
	if strings.TrimSpace(string(entry.Action)) == "" {
		return fmt.Errorf("sqlstore: access log action is required")
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	metadata := RedactMetadata(entry.Metadata)
	record := &accessLogRecord{
		UserID:    entry.UserID,
		Action:    string(entry.Action),
		Resource:  entry.Resource,
		Detail:    entry.Detail,
		Metadata:  metadata,
		CreatedAt: createdAt,
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

// ListByUser returns entries newest first for audit views.
func (s *AccessLogStore) ListByUser(ctx context.Context, userID string, limit int) ([]core.AccessLogEntry, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: access log store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	entries := make([]core.AccessLogEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, core.AccessLogEntry{
			ID:        record.ID,
			UserID:    record.UserID,
			Action:    core.AccessLogAction(record.Action),
			Resource:  record.Resource,
			Detail:    record.Detail,
			Metadata:  record.Metadata,
			CreatedAt: record.CreatedAt,
		})
	}
	return entries, nil
}
