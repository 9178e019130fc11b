package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Authorizer resolves scope sets and enforces scope gates. Scopes match by
// exact name; there is no hierarchy or implication between them.
type Authorizer struct {
	repo     RepositoryManager
	logger   Logger
	activity ActivitySink
}

func NewAuthorizer(repo RepositoryManager) *Authorizer {
	return &Authorizer{
		repo:     repo,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (a *Authorizer) WithLogger(logger Logger) *Authorizer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

func (a *Authorizer) WithActivitySink(sink ActivitySink) *Authorizer {
	a.activity = normalizeActivitySink(sink)
	return a
}

// ScopesOf resolves the user's scope names. Empty set if none.
func (a *Authorizer) ScopesOf(ctx context.Context, userID uuid.UUID) ([]string, error) {
	names, err := a.repo.Scopes().NamesByUserTx(ctx, a.repo.DB(), userID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve user scopes")
	}

	if names == nil {
		names = []string{}
	}

	return names, nil
}

// RequireScope is the gate every protected operation calls. It succeeds only
// when the resolved set contains the scope name exactly.
func (a *Authorizer) RequireScope(ctx context.Context, userID uuid.UUID, scopeName string) error {
	names, err := a.ScopesOf(ctx, userID)
	if err != nil {
		return err
	}

	for _, name := range names {
		if name == scopeName {
			return nil
		}
	}

	return ErrForbidden
}

// CreateScope adds scope reference data. Duplicate names are rejected.
func (a *Authorizer) CreateScope(ctx context.Context, name, description string) (*Scope, error) {
	scope := &Scope{Name: name, Description: description}

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := a.repo.Scopes().GetByNameTx(ctx, tx, name); err == nil {
			return ErrScopeExists
		} else if !IsNoRows(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check scope name")
		}

		created, err := a.repo.Scopes().CreateTx(ctx, tx, scope)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create scope")
		}

		scope = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	return scope, nil
}

// GrantScope links a scope to a user. Granting a held scope is a no-op, not
// an error.
func (a *Authorizer) GrantScope(ctx context.Context, userID uuid.UUID, scopeName string) error {
	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return a.grantScopeTx(ctx, tx, userID, scopeName)
	})

	if err != nil {
		return err
	}

	emitActivity(ctx, a.activity, a.logger, ActivityEventScopeGranted, userID.String(), map[string]any{
		"scope": scopeName,
	})

	return nil
}

func (a *Authorizer) grantScopeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, scopeName string) error {
	scope, err := a.repo.Scopes().GetByNameTx(ctx, tx, scopeName)
	if err != nil {
		if IsNoRows(err) {
			return ErrScopeNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up scope")
	}

	held, err := a.repo.Scopes().LinkExistsTx(ctx, tx, userID, scope.ID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing grant")
	}

	if held {
		return nil
	}

	if err := a.repo.Scopes().LinkTx(ctx, tx, userID, scope.ID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to grant scope")
	}

	return nil
}

// RevokeScope removes a grant. Revoking a scope the user does not hold is a
// no-op.
func (a *Authorizer) RevokeScope(ctx context.Context, userID uuid.UUID, scopeName string) error {
	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		scope, err := a.repo.Scopes().GetByNameTx(ctx, tx, scopeName)
		if err != nil {
			if IsNoRows(err) {
				return ErrScopeNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up scope")
		}

		if _, err := a.repo.Scopes().UnlinkTx(ctx, tx, userID, scope.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke scope")
		}

		return nil
	})

	if err != nil {
		return err
	}

	emitActivity(ctx, a.activity, a.logger, ActivityEventScopeRevoked, userID.String(), map[string]any{
		"scope": scopeName,
	})

	return nil
}
