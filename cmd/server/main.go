package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "authcore"
	"authcore/middleware/jwtware"
	"authcore/social"
	"authcore/social/providers/google"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	auth.RegisterModels(db)

	ctx := context.Background()
	if err := auth.CreateSchema(ctx, db); err != nil {
		log.Fatalf("create schema: %v", err)
	}
	if err := auth.SeedReferenceData(ctx, db); err != nil {
		log.Fatalf("seed reference data: %v", err)
	}

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	tokens, err := auth.NewTokenService(cfg, nil)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	registry := auth.NewRegistry(repo, tokens).
		WithAvatarStore(auth.NewLocalAvatarStore(cfg.AvatarDir, cfg.AvatarBaseURL))

	controller := auth.NewAuthController(
		auth.WithControllerRegistry(registry),
		auth.WithControllerContextKey(cfg.GetContextKey()),
	)

	guards := auth.GuardSet{
		Authenticated: jwtware.New(jwtware.Config{
			Validator:  tokens,
			AuthScheme: cfg.GetAuthScheme(),
			ContextKey: cfg.GetContextKey(),
		}),
		Admin: jwtware.New(jwtware.Config{
			Validator:     tokens,
			AuthScheme:    cfg.GetAuthScheme(),
			ContextKey:    cfg.GetContextKey(),
			RequiredRoles: []string{auth.RoleAdmin},
		}),
	}

	app := fiber.New(fiber.Config{
		AppName: "authcore",
	})

	auth.RegisterAuthRoutes(app, controller, guards)
	app.Static(cfg.AvatarBaseURL, cfg.AvatarDir)

	if cfg.GoogleClientID != "" {
		sa := social.NewAuthenticator(
			registry,
			social.AuthenticatorConfig{StateKey: []byte(cfg.StateKey)},
			social.WithProvider(google.New(google.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				CallbackURL:  cfg.GoogleCallbackURL,
			})),
		)
		social.RegisterSocialRoutes(app, sa)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.HTTPAddr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server: %v", err)
	case sig := <-stop:
		log.Printf("received %s, shutting down", sig)
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}
}
