package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens persists session credentials. Rotation and logout both
// reduce to a delete plus optional insert inside the caller's transaction.
type RefreshTokens interface {
	CreateTx(ctx context.Context, tx bun.IDB, record *RefreshToken) (*RefreshToken, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*RefreshToken, error)
	CountByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error)
	DeleteTx(ctx context.Context, tx bun.IDB, token string) (bool, error)
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error)
}

type refreshTokens struct {
	db *bun.DB
}

var _ RefreshTokens = (*refreshTokens)(nil)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	return &refreshTokens{db: db}
}

func (r *refreshTokens) CreateTx(ctx context.Context, tx bun.IDB, record *RefreshToken) (*RefreshToken, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Token == "" {
		record.Token = uuid.NewString()
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (r *refreshTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*RefreshToken, error) {
	record := &RefreshToken{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return record, nil
}

// CountByUserTx counts live tokens only; rows past expiry no longer hold a
// session slot.
func (r *refreshTokens) CountByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int, error) {
	return tx.NewSelect().
		Model((*RefreshToken)(nil)).
		Where("user_id = ?", userID).
		Where("expires_at > ?", time.Now()).
		Count(ctx)
}

func (r *refreshTokens) DeleteTx(ctx context.Context, tx bun.IDB, token string) (bool, error) {
	res, err := tx.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("token = ?", token).
		Exec(ctx)

	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *refreshTokens) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	res, err := tx.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// IsNoRows reports the bun/sql empty result condition.
func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
