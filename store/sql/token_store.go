package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/lexfirm/google-services/core"
	"github.com/uptrace/bun"
)

// TokenStore keeps at most one OAuth token row per (user, service) pair. The
// newest row by created_at is the authoritative credential, and refresh
// writes compare-and-swap on the revision column.
type TokenStore struct {
	db   *bun.DB
	repo repository.Repository[*tokenRecord]
}

func (s *TokenStore) Newest(ctx context.Context, userID string, service core.GoogleService) (core.Token, error) {
	if s == nil || s.repo == nil {
		return core.Token{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectBy("service", "=", string(service)),
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Token{}, err
	}
	if len(records) == 0 {
		return core.Token{}, core.ErrTokenNotFound
	}
	return records[0].toDomain(), nil
}

func (s *TokenStore) Get(ctx context.Context, userID string, id string) (core.Token, error) {
	if s == nil || s.repo == nil {
		return core.Token{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", strings.TrimSpace(id)),
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Token{}, err
	}
	if len(records) == 0 {
		return core.Token{}, core.ErrTokenNotFound
	}
	return records[0].toDomain(), nil
}

// Upsert replaces any stored rows for (user, service) with a single fresh row
// at revision 1. Prior rows are removed in the same transaction so a failed
// exchange can never leave two candidates behind.
func (s *TokenStore) Upsert(ctx context.Context, in core.UpsertTokenInput) (core.Token, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.Token{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" {
		return core.Token{}, fmt.Errorf("sqlstore: token user id is required")
	}
	service, err := core.ParseGoogleService(string(in.Service))
	if err != nil {
		return core.Token{}, err
	}
	in.Service = service
	now := time.Now().UTC()

	var stored core.Token
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, deleteErr := tx.NewDelete().
			Model((*tokenRecord)(nil)).
			Where("user_id = ?", in.UserID).
			Where("service = ?", string(in.Service)).
			Exec(ctx); deleteErr != nil {
			return deleteErr
		}

		record := newTokenRecord(in, now)
		inserted, createErr := s.repo.CreateTx(ctx, tx, record)
		if createErr != nil {
			return createErr
		}
		stored = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.Token{}, err
	}
	return stored, nil
}

// UpdateAccess persists a refreshed access token only when the stored
// revision still matches. A zero-row update means either the row vanished or
// a concurrent refresh already bumped the revision.
func (s *TokenStore) UpdateAccess(ctx context.Context, in core.UpdateAccessTokenInput) (core.Token, error) {
	if s == nil || s.db == nil {
		return core.Token{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return core.Token{}, fmt.Errorf("sqlstore: token id is required")
	}
	now := time.Now().UTC()

	var updated core.Token
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, updateErr := tx.NewUpdate().
			Model((*tokenRecord)(nil)).
			Set("access_token = ?", in.AccessToken).
			Set("expires_at = ?", in.ExpiresAt).
			Set("revision = revision + 1").
			Set("updated_at = ?", now).
			Where("id = ?", id).
			Where("revision = ?", in.Revision).
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}
		affected, affectedErr := result.RowsAffected()
		if affectedErr != nil {
			return affectedErr
		}
		if affected == 0 {
			exists, existsErr := tx.NewSelect().
				Model((*tokenRecord)(nil)).
				Where("?TableAlias.id = ?", id).
				Exists(ctx)
			if existsErr != nil {
				return existsErr
			}
			if exists {
				return core.ErrTokenRevisionStale
			}
			return core.ErrTokenNotFound
		}

		record := &tokenRecord{}
		if scanErr := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", id).
			Scan(ctx); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return core.ErrTokenNotFound
			}
			return scanErr
		}
		updated = record.toDomain()
		return nil
	})
	if err != nil {
		return core.Token{}, err
	}
	return updated, nil
}

func (s *TokenStore) Delete(ctx context.Context, userID string, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*tokenRecord)(nil)).
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
		return core.ErrTokenNotFound
	}
	return nil
}
