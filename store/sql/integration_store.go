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

// IntegrationStore keeps the per-(user, service) sync status projection, one
// row per pair.
type IntegrationStore struct {
	db   *bun.DB
	repo repository.Repository[*integrationRecord]
}

func (s *IntegrationStore) Get(ctx context.Context, userID string, service core.GoogleService) (core.Integration, error) {
	if s == nil || s.repo == nil {
		return core.Integration{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectBy("service", "=", string(service)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Integration{}, err
	}
	if len(records) == 0 {
		return core.Integration{}, core.ErrIntegrationNotFound
	}
	return records[0].toDomain(), nil
}

func (s *IntegrationStore) Upsert(ctx context.Context, in core.UpsertIntegrationInput) (core.Integration, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.Integration{}, fmt.Errorf("sqlstore: integration store is not configured")
	}
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return core.Integration{}, fmt.Errorf("sqlstore: integration user id is required")
	}
	service, err := core.ParseGoogleService(string(in.Service))
	if err != nil {
		return core.Integration{}, err
	}
	in.Service = service
	now := time.Now().UTC()

	var stored core.Integration
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &integrationRecord{}
		scanErr := tx.NewSelect().
			Model(record).
			Where("?TableAlias.user_id = ?", in.UserID).
			Where("?TableAlias.service = ?", string(in.Service)).
			Scan(ctx)
		if scanErr != nil {
			record = &integrationRecord{
				UserID:      in.UserID,
				Service:     string(in.Service),
				IsConnected: in.IsConnected,
				Settings:    cloneSettings(in.Settings),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if in.LastSyncedAt != nil {
				syncedAt := in.LastSyncedAt.UTC()
				record.LastSyncedAt = &syncedAt
			}
			inserted, createErr := s.repo.CreateTx(ctx, tx, record)
			if createErr != nil {
				return createErr
			}
			stored = inserted.toDomain()
			return nil
		}

		query := tx.NewUpdate().
			Model((*integrationRecord)(nil)).
			Set("is_connected = ?", in.IsConnected).
			Set("updated_at = ?", now).
			Where("id = ?", record.ID)
		if in.LastSyncedAt != nil {
			query = query.Set("last_synced_at = ?", in.LastSyncedAt.UTC())
		}
		if in.Settings != nil {
			query = query.Set("settings = ?", cloneSettings(in.Settings))
		}
		if _, updateErr := query.Exec(ctx); updateErr != nil {
			return updateErr
		}

		refreshed := &integrationRecord{}
		if reloadErr := tx.NewSelect().
			Model(refreshed).
			Where("?TableAlias.id = ?", record.ID).
			Scan(ctx); reloadErr != nil {
			return reloadErr
		}
		stored = refreshed.toDomain()
		return nil
	})
	if err != nil {
		return core.Integration{}, err
	}
	return stored, nil
}
