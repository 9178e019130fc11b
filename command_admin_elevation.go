package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AdminElevation implements the privilege elevation protocol: a short lived
// signed token, delivered out of band, grants the admin scope exactly once
// when consumed. The minted token's JTI is pinned on the user row and
// cleared on consumption, so a replayed link fails even inside the expiry
// window.
type AdminElevation struct {
	repo       RepositoryManager
	tokens     TokenService
	mailer     Mailer
	cfg        Config
	authorizer *Authorizer
	logger     Logger
	activity   ActivitySink
}

func NewAdminElevation(repo RepositoryManager, tokens TokenService, mailer Mailer, cfg Config, authorizer *Authorizer) *AdminElevation {
	return &AdminElevation{
		repo:       repo,
		tokens:     tokens,
		mailer:     mailer,
		cfg:        cfg,
		authorizer: authorizer,
		logger:     defLogger{},
		activity:   noopActivitySink{},
	}
}

func (e *AdminElevation) WithLogger(logger Logger) *AdminElevation {
	if logger != nil {
		e.logger = logger
	}
	return e
}

func (e *AdminElevation) WithActivitySink(sink ActivitySink) *AdminElevation {
	e.activity = normalizeActivitySink(sink)
	return e
}

// Request mints an elevation token for the user and emails the promotion
// link. Requesting again replaces any outstanding token: only the newest
// link stays consumable.
func (e *AdminElevation) Request(ctx context.Context, user *User) error {
	if user == nil {
		return ErrIdentityNotFound
	}

	ttl := time.Duration(e.cfg.GetElevationTokenExpiration()) * time.Minute
	jti := uuid.NewString()

	token, _, err := e.tokens.Issue(user.ID.String(), PurposeAdminElevation,
		WithScope(AdminScopeName),
		WithTTL(ttl),
		WithTokenID(jti),
	)
	if err != nil {
		return err
	}

	err = e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return e.repo.Users().SetElevationTokenIDTx(ctx, tx, user.ID, &jti)
	})

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record elevation token")
	}

	e.dispatchPromotionEmail(ctx, user, token)

	emitActivity(ctx, e.activity, e.logger, ActivityEventElevationRequested, user.ID.String(), nil)

	return nil
}

// Consume verifies signature, expiry, and purpose, then grants the admin
// scope to the token subject. The grant is idempotent; the token is not.
func (e *AdminElevation) Consume(ctx context.Context, raw string) (*User, error) {
	claims, err := e.tokens.Validate(raw, PurposeAdminElevation)
	if err != nil {
		// expired, tampered, or wrong purpose all collapse into the
		// same caller visible kind
		return nil, ErrInvalidToken
	}

	if claims.Scope != AdminScopeName {
		return nil, ErrInvalidToken
	}

	subject, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrInvalidToken
	}

	user := &User{}

	err = e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		user, err = e.repo.Users().GetByID(ctx, subject.String())
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve elevation subject")
		}

		// single use: the JTI must match the outstanding token and is
		// cleared before the grant commits
		if user.ElevationTokenID == nil || *user.ElevationTokenID != claims.ID {
			return ErrInvalidToken
		}

		if err := e.authorizer.grantScopeTx(ctx, tx, user.ID, AdminScopeName); err != nil {
			return err
		}

		if err := e.repo.Users().SetElevationTokenIDTx(ctx, tx, user.ID, nil); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate elevation token")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume elevation token")
	}

	emitActivity(ctx, e.activity, e.logger, ActivityEventElevationConsumed, user.ID.String(), nil)

	return user, nil
}

func (e *AdminElevation) dispatchPromotionEmail(ctx context.Context, user *User, token string) {
	link := ConfirmationLink(e.cfg.GetAdminPromotionURL(), token)

	err := e.mailer.Send(ctx,
		user.Email,
		"Become an administrator",
		"To accept administrator access, please follow the link:",
		link,
	)

	if err != nil {
		e.logger.Warn("elevation email dispatch failed", "error", err, "user_id", user.ID.String())
		emitActivity(ctx, e.activity, e.logger, ActivityEventMailFailure, user.ID.String(), map[string]any{
			"error": err.Error(),
		})
	}
}
