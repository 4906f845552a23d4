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

// SheetMappingStore persists user-registered spreadsheet mappings. Status
// changes go through the domain transition rules so an illegal jump is
// rejected before touching the row.
type SheetMappingStore struct {
	db   *bun.DB
	repo repository.Repository[*sheetMappingRecord]
}

func (s *SheetMappingStore) Create(ctx context.Context, in core.CreateSheetMappingInput) (core.SheetMapping, error) {
	if s == nil || s.repo == nil {
		return core.SheetMapping{}, fmt.Errorf("sqlstore: sheet mapping store is not configured")
	}
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return core.SheetMapping{}, fmt.Errorf("sqlstore: sheet mapping user id is required")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return core.SheetMapping{}, fmt.Errorf("sqlstore: sheet mapping name is required")
	}
	kind, err := core.ParseSheetMappingKind(string(in.Kind))
	if err != nil {
		return core.SheetMapping{}, err
	}
	in.Kind = kind
	in.SpreadsheetID = strings.TrimSpace(in.SpreadsheetID)
	if in.SpreadsheetID == "" {
		return core.SheetMapping{}, fmt.Errorf("sqlstore: sheet mapping spreadsheet id is required")
	}

	record := newSheetMappingRecord(in, time.Now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.SheetMapping{}, err
	}
	return created.toDomain(), nil
}

func (s *SheetMappingStore) Get(ctx context.Context, userID string, id string) (core.SheetMapping, error) {
	if s == nil || s.repo == nil {
		return core.SheetMapping{}, fmt.Errorf("sqlstore: sheet mapping store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", strings.TrimSpace(id)),
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.SheetMapping{}, err
	}
	if len(records) == 0 {
		return core.SheetMapping{}, core.ErrSheetMappingNotFound
	}
	return records[0].toDomain(), nil
}

func (s *SheetMappingStore) List(ctx context.Context, userID string) ([]core.SheetMapping, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: sheet mapping store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	mappings := make([]core.SheetMapping, 0, len(records))
	for _, record := range records {
		mappings = append(mappings, record.toDomain())
	}
	return mappings, nil
}

func (s *SheetMappingStore) UpdateStatus(ctx context.Context, id string, status core.SheetMappingStatus, reason string, syncedAt *time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: sheet mapping store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("sqlstore: sheet mapping id is required")
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &sheetMappingRecord{}
		if err := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", id).
			Scan(ctx); err != nil {
			return core.ErrSheetMappingNotFound
		}

		mapping := record.toDomain()
		if err := mapping.TransitionTo(status, reason, now); err != nil {
			return err
		}

		query := tx.NewUpdate().
			Model((*sheetMappingRecord)(nil)).
			Set("status = ?", string(mapping.Status)).
			Set("last_error = ?", mapping.LastError).
			Set("updated_at = ?", now).
			Where("id = ?", id)
		if syncedAt != nil {
			query = query.Set("last_synced_at = ?", syncedAt.UTC())
		}
		_, err := query.Exec(ctx)
		return err
	})
}

func (s *SheetMappingStore) Delete(ctx context.Context, userID string, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: sheet mapping store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*sheetMappingRecord)(nil)).
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
		return core.ErrSheetMappingNotFound
	}
	return nil
}
