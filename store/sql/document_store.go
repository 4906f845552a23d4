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

// DocumentStore persists local metadata for files whose content lives in
// Drive.
type DocumentStore struct {
	db   *bun.DB
	repo repository.Repository[*documentRecord]
}

func (s *DocumentStore) Create(ctx context.Context, in core.CreateDocumentInput) (core.Document, error) {
	if s == nil || s.repo == nil {
		return core.Document{}, fmt.Errorf("sqlstore: document store is not configured")
	}
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return core.Document{}, fmt.Errorf("sqlstore: document user id is required")
	}
	in.DriveFileID = strings.TrimSpace(in.DriveFileID)
	if in.DriveFileID == "" {
		return core.Document{}, fmt.Errorf("sqlstore: document drive file id is required")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return core.Document{}, fmt.Errorf("sqlstore: document name is required")
	}

	record := newDocumentRecord(in, time.Now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Document{}, err
	}
	return created.toDomain(), nil
}

func (s *DocumentStore) Get(ctx context.Context, userID string, id string) (core.Document, error) {
	if s == nil || s.repo == nil {
		return core.Document{}, fmt.Errorf("sqlstore: document store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", strings.TrimSpace(id)),
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Document{}, err
	}
	if len(records) == 0 {
		return core.Document{}, core.ErrDocumentNotFound
	}
	return records[0].toDomain(), nil
}

func (s *DocumentStore) List(ctx context.Context, userID string) ([]core.Document, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: document store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.OrderBy("created_at DESC"),
	)
	if err != nil {
		return nil, err
	}
	documents := make([]core.Document, 0, len(records))
	for _, record := range records {
		documents = append(documents, record.toDomain())
	}
	return documents, nil
}

func (s *DocumentStore) Delete(ctx context.Context, userID string, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: document store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*documentRecord)(nil)).
		Where("id = ?", strings.TrimSpace(id)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrDocumentNotFound
	}
	return nil
}
