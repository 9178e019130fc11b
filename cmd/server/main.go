package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/amoryn/go-auth-core"
)

func main() {
	ctx := context.Background()

	cfg := auth.NewConfig(envOr("AUTH_SIGNING_KEY", ""))
	cfg.Issuer = envOr("AUTH_ISSUER", "go-auth-core")

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	dsn := envOr("AUTH_DSN", "file::memory:?cache=shared")
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := createTables(ctx, db); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		log.Fatalf("repository: %v", err)
	}

	tokens := auth.NewTokenService(cfg)
	mailer := auth.NewLogMailer(nil)

	sessions := auth.NewSessionManager(repo, tokens, cfg)
	authorizer := auth.NewAuthorizer(repo)
	elevation := auth.NewAdminElevation(repo, tokens, mailer, cfg, authorizer)

	controller := auth.NewAuthController(func(c *auth.AuthController) *auth.AuthController {
		c.Config = cfg
		c.Sessions = sessions
		c.Authorize = authorizer
		c.Elevation = elevation
		c.Register = auth.NewRegisterUserHandler(repo, mailer, cfg)
		c.ConfirmEmail = auth.NewConfirmEmailHandler(repo)
		c.ResetInit = auth.NewInitializePasswordResetHandler(repo, mailer, cfg)
		c.ResetFinalize = auth.NewFinalizePasswordResetHandler(repo)
		return c
	})

	app := fiber.New(fiber.Config{
		AppName: "go-auth-core",
	})

	controller.RegisterRoutes(app)

	addr := envOr("AUTH_ADDR", ":8080")
	if err := app.Listen(addr); err != nil {
		log.Fatalf("listen: %v", err)
	}
}

func createTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*auth.User)(nil),
		(*auth.RefreshToken)(nil),
		(*auth.Scope)(nil),
		(*auth.UserScopeLink)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
