package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ResetTokenTTL bounds how long a stored reset token stays consumable. The
// expiry lives in its own column so operators can audit and revoke it.
var ResetTokenTTL = 24 * time.Hour

type InitializePasswordResetMessage struct {
	Email string `json:"email"`
}

func (e InitializePasswordResetMessage) Type() string { return "user.password_reset" }

// InitializePasswordResetHandler starts the recovery flow. It succeeds for
// unknown emails too: the response shape never reveals whether an account
// exists.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	cfg      Config
	logger   Logger
	activity ActivitySink
}

func NewInitializePasswordResetHandler(repo RepositoryManager, mailer Mailer, cfg Config) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		mailer:   mailer,
		cfg:      cfg,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)

	user, err := h.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// generic success: nothing stored, nothing sent, no
			// enumeration signal
			h.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(ResetTokenTTL)

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Users().SetResetTokenTx(ctx, tx, user.ID, token, expiresAt); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store reset token")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	h.dispatchResetEmail(ctx, user, token)

	emitActivity(ctx, h.activity, h.logger, ActivityEventResetRequested, user.ID.String(), nil)

	return nil
}

func (h *InitializePasswordResetHandler) dispatchResetEmail(ctx context.Context, user *User, token string) {
	link := ConfirmationLink(h.cfg.GetPasswordResetURL(), token)

	err := h.mailer.Send(ctx,
		user.Email,
		"Reset your password",
		"To choose a new password, please follow the link:",
		link,
	)

	if err != nil {
		h.logger.Warn("reset email dispatch failed", "error", err, "user_id", user.ID.String())
		emitActivity(ctx, h.activity, h.logger, ActivityEventMailFailure, user.ID.String(), map[string]any{
			"error": err.Error(),
		})
	}
}
