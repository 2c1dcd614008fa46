package auth_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	auth "authcore"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testConfig struct {
	signingKey string
	issuer     string
	audience   []string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func (c testConfig) GetSigningKey() string {
	if c.signingKey != "" {
		return c.signingKey
	}
	return "test-signing-key"
}

func (c testConfig) GetIssuer() string                 { return c.issuer }
func (c testConfig) GetAudience() []string             { return c.audience }
func (c testConfig) GetAccessTokenTTL() time.Duration  { return c.accessTTL }
func (c testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTTL }
func (c testConfig) GetContextKey() string             { return "user" }
func (c testConfig) GetAuthScheme() string             { return "Bearer" }

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	auth.RegisterModels(db)

	ctx := context.Background()
	require.NoError(t, auth.CreateSchema(ctx, db))
	require.NoError(t, auth.SeedReferenceData(ctx, db))

	t.Cleanup(func() { db.Close() })

	return db
}

func setupRegistry(t *testing.T, cfg testConfig) (*auth.Registry, auth.RepositoryManager, *auth.TokenServiceImpl) {
	t.Helper()

	db := setupDB(t)
	repo := auth.NewRepositoryManager(db)

	tokens, err := auth.NewTokenService(cfg, nil)
	require.NoError(t, err)

	return auth.NewRegistry(repo, tokens), repo, tokens
}

func registerUser(t *testing.T, registry *auth.Registry, email, password string) *auth.Profile {
	t.Helper()

	profile, err := registry.RegisterLocal(context.Background(), auth.RegisterInput{
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
		FullName:        "Test User",
	}, nil)
	require.NoError(t, err)

	return profile
}
