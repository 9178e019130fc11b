package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Scopes stores scope reference data and the user/scope association.
type Scopes interface {
	CreateTx(ctx context.Context, tx bun.IDB, record *Scope) (*Scope, error)
	GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Scope, error)

	LinkExistsTx(ctx context.Context, tx bun.IDB, userID, scopeID uuid.UUID) (bool, error)
	LinkTx(ctx context.Context, tx bun.IDB, userID, scopeID uuid.UUID) error
	UnlinkTx(ctx context.Context, tx bun.IDB, userID, scopeID uuid.UUID) (bool, error)
	NamesByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]string, error)
}

type scopes struct {
	db *bun.DB
}

var _ Scopes = (*scopes)(nil)

func NewScopesRepository(db *bun.DB) Scopes {
	return &scopes{db: db}
}

func (s *scopes) CreateTx(ctx context.Context, tx bun.IDB, record *Scope) (*Scope, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, err
	}

	return record, nil
}

func (s *scopes) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Scope, error) {
	record := &Scope{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return record, nil
}

func (s *scopes) LinkExistsTx(ctx context.Context, tx bun.IDB, userID, scopeID uuid.UUID) (bool, error) {
	return tx.NewSelect().
		Model((*UserScopeLink)(nil)).
		Where("user_id = ?", userID).
		Where("scope_id = ?", scopeID).
		Exists(ctx)
}

func (s *scopes) LinkTx(ctx context.Context, tx bun.IDB, userID, scopeID uuid.UUID) error {
	link := &UserScopeLink{
		ID:      uuid.New(),
		UserID:  userID,
		ScopeID: scopeID,
	}

	_, err := tx.NewInsert().Model(link).Exec(ctx)
	return err
}

func (s *scopes) UnlinkTx(ctx context.Context, tx bun.IDB, userID, scopeID uuid.UUID) (bool, error) {
	res, err := tx.NewDelete().
		Model((*UserScopeLink)(nil)).
		Where("user_id = ?", userID).
		Where("scope_id = ?", scopeID).
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

func (s *scopes) NamesByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]string, error) {
	var names []string

	err := tx.NewSelect().
		Model((*Scope)(nil)).
		Column("scp.name").
		Join("JOIN user_scope_links AS usl ON usl.scope_id = scp.id").
		Where("usl.user_id = ?", userID).
		Scan(ctx, &names)

	if err != nil {
		return nil, err
	}

	return names, nil
}
