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

// ClientConfigStore holds per-user OAuth client registrations, one row per
// (user, service).
type ClientConfigStore struct {
	db   *bun.DB
	repo repository.Repository[*clientConfigRecord]
}

func (s *ClientConfigStore) Get(ctx context.Context, userID string, service core.GoogleService) (core.ClientConfig, error) {
	if s == nil || s.repo == nil {
		return core.ClientConfig{}, fmt.Errorf("sqlstore: client config store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", strings.TrimSpace(userID)),
		repository.SelectBy("service", "=", string(service)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.ClientConfig{}, err
	}
	if len(records) == 0 {
		return core.ClientConfig{}, core.ErrClientConfigNotFound
	}
	return records[0].toDomain(), nil
}

func (s *ClientConfigStore) Upsert(ctx context.Context, in core.UpsertClientConfigInput) (core.ClientConfig, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.ClientConfig{}, fmt.Errorf("sqlstore: client config store is not configured")
	}
	in.UserID = strings.TrimSpace(in.UserID)
	service, err := core.ParseGoogleService(string(in.Service))
	if err != nil {
		return core.ClientConfig{}, err
	}
	in.Service = service

	draft := core.ClientConfig{
		UserID:       in.UserID,
		Service:      in.Service,
		ClientID:     strings.TrimSpace(in.ClientID),
		ClientSecret: strings.TrimSpace(in.ClientSecret),
	}
	if err := draft.Validate(); err != nil {
		return core.ClientConfig{}, err
	}
	in.ClientID = draft.ClientID
	in.ClientSecret = draft.ClientSecret
	in.RedirectURI = strings.TrimSpace(in.RedirectURI)
	now := time.Now().UTC()

	var stored core.ClientConfig
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, updateErr := tx.NewUpdate().
			Model((*clientConfigRecord)(nil)).
			Set("client_id = ?", in.ClientID).
			Set("client_secret = ?", in.ClientSecret).
			Set("redirect_uri = ?", in.RedirectURI).
			Set("updated_at = ?", now).
			Where("user_id = ?", in.UserID).
			Where("service = ?", string(in.Service)).
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}
		affected, affectedErr := result.RowsAffected()
		if affectedErr != nil {
			return affectedErr
		}
		if affected == 0 {
			record := newClientConfigRecord(in, now)
			inserted, createErr := s.repo.CreateTx(ctx, tx, record)
			if createErr != nil {
				return createErr
			}
			stored = inserted.toDomain()
			return nil
		}

		record := &clientConfigRecord{}
		if scanErr := tx.NewSelect().
			Model(record).
			Where("?TableAlias.user_id = ?", in.UserID).
			Where("?TableAlias.service = ?", string(in.Service)).
			Scan(ctx); scanErr != nil {
			return scanErr
		}
		stored = record.toDomain()
		return nil
	})
	if err != nil {
		return core.ClientConfig{}, err
	}
	return stored, nil
}

func (s *ClientConfigStore) Delete(ctx context.Context, userID string, service core.GoogleService) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: client config store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*clientConfigRecord)(nil)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("service = ?", string(service)).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrClientConfigNotFound
	}
	return nil
}
