package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	auth "authcore"
	"authcore/middleware/jwtware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Message    string          `json:"message"`
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
}

func setupApp(t *testing.T, cfg testConfig) (*fiber.App, *auth.Registry, auth.RepositoryManager) {
	t.Helper()

	registry, repo, tokens := setupRegistry(t, cfg)

	controller := auth.NewAuthController(
		auth.WithControllerRegistry(registry),
	)

	guards := auth.GuardSet{
		Authenticated: jwtware.New(jwtware.Config{Validator: tokens}),
		Admin: jwtware.New(jwtware.Config{
			Validator:     tokens,
			RequiredRoles: []string{auth.RoleAdmin},
		}),
	}

	app := fiber.New()
	auth.RegisterAuthRoutes(app, controller, guards)

	return app, registry, repo
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, token string) (*http.Response, envelope) {
	t.Helper()

	var payload io.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewReader(blob)
	}

	req := httptest.NewRequest(method, path, payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	res.Body.Close()

	return res, env
}

func TestRegisterEndpoint(t *testing.T) {
	app, _, _ := setupApp(t, testConfig{})

	t.Run("registers a new user", func(t *testing.T) {
		res, env := doJSON(t, app, fiber.MethodPost, "/auth/local/register", fiber.Map{
			"email":           "blake@example.com",
			"password":        "secret123",
			"confirmPassword": "secret123",
			"fullName":        "Blake Doe",
		}, "")

		assert.Equal(t, fiber.StatusCreated, res.StatusCode)
		assert.Equal(t, "User registered successfully", env.Message)

		var profile auth.Profile
		require.NoError(t, json.Unmarshal(env.Data, &profile))
		assert.Equal(t, "blake@example.com", profile.Email)
		assert.Equal(t, []string{auth.RoleUser}, profile.Roles)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		res, _ := doJSON(t, app, fiber.MethodPost, "/auth/local/register", fiber.Map{
			"email":           "not-an-email",
			"password":        "secret123",
			"confirmPassword": "secret123",
		}, "")

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	})

	t.Run("rejects mismatched confirmation", func(t *testing.T) {
		res, env := doJSON(t, app, fiber.MethodPost, "/auth/local/register", fiber.Map{
			"email":           "kai@example.com",
			"password":        "secret123",
			"confirmPassword": "different",
		}, "")

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Passwords do not match", env.Message)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		res, _ := doJSON(t, app, fiber.MethodPost, "/auth/local/register", fiber.Map{
			"email":           "blake@example.com",
			"password":        "secret123",
			"confirmPassword": "secret123",
		}, "")

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	})
}

func TestLoginEndpoint(t *testing.T) {
	app, registry, _ := setupApp(t, testConfig{})
	registerUser(t, registry, "eli@example.com", "secret123")

	t.Run("valid credentials", func(t *testing.T) {
		res, env := doJSON(t, app, fiber.MethodPost, "/auth/local/login", fiber.Map{
			"email":    "eli@example.com",
			"password": "secret123",
		}, "")

		assert.Equal(t, fiber.StatusOK, res.StatusCode)
		assert.Equal(t, "User logged in successfully", env.Message)

		var pair auth.TokenPair
		require.NoError(t, json.Unmarshal(env.Data, &pair))
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		res, env := doJSON(t, app, fiber.MethodPost, "/auth/local/login", fiber.Map{
			"email":    "eli@example.com",
			"password": "wrong",
		}, "")

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Invalid credentials", env.Message)
	})

	t.Run("unknown email reads the same", func(t *testing.T) {
		res, env := doJSON(t, app, fiber.MethodPost, "/auth/local/login", fiber.Map{
			"email":    "ghost@example.com",
			"password": "secret123",
		}, "")

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Invalid credentials", env.Message)
	})
}

func TestMeEndpoint(t *testing.T) {
	app, registry, _ := setupApp(t, testConfig{})
	registerUser(t, registry, "remy@example.com", "secret123")

	_, loginEnv := doJSON(t, app, fiber.MethodPost, "/auth/local/login", fiber.Map{
		"email":    "remy@example.com",
		"password": "secret123",
	}, "")

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(loginEnv.Data, &pair))

	t.Run("with access token", func(t *testing.T) {
		res, env := doJSON(t, app, fiber.MethodGet, "/auth/local/me", nil, pair.AccessToken)

		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		var profile auth.Profile
		require.NoError(t, json.Unmarshal(env.Data, &profile))
		assert.Equal(t, "remy@example.com", profile.Email)
		assert.Equal(t, []string{auth.RoleUser}, profile.Roles)
	})

	t.Run("without token", func(t *testing.T) {
		res, _ := doJSON(t, app, fiber.MethodGet, "/auth/local/me", nil, "")
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("with garbage token", func(t *testing.T) {
		res, _ := doJSON(t, app, fiber.MethodGet, "/auth/local/me", nil, "garbage")
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	app, registry, _ := setupApp(t, testConfig{})
	registerUser(t, registry, "noor@example.com", "secret123")

	_, loginEnv := doJSON(t, app, fiber.MethodPost, "/auth/local/login", fiber.Map{
		"email":    "noor@example.com",
		"password": "secret123",
	}, "")

	var first auth.TokenPair
	require.NoError(t, json.Unmarshal(loginEnv.Data, &first))

	var second auth.TokenPair

	t.Run("rotates the pair", func(t *testing.T) {
		res, env := doJSON(t, app, fiber.MethodPost, "/auth/local/refresh", fiber.Map{
			"refresh_token": first.RefreshToken,
		}, "")

		assert.Equal(t, fiber.StatusCreated, res.StatusCode)
		assert.Equal(t, "Tokens refreshed successfully", env.Message)

		require.NoError(t, json.Unmarshal(env.Data, &second))
		assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	})

	t.Run("replayed token fails", func(t *testing.T) {
		res, env := doJSON(t, app, fiber.MethodPost, "/auth/local/refresh", fiber.Map{
			"refresh_token": first.RefreshToken,
		}, "")

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Invalid token", env.Message)
	})

	t.Run("empty body fails the same way", func(t *testing.T) {
		res, env := doJSON(t, app, fiber.MethodPost, "/auth/local/refresh", fiber.Map{}, "")

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Invalid token", env.Message)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	app, registry, _ := setupApp(t, testConfig{})
	registerUser(t, registry, "sacha@example.com", "secret123")

	_, loginEnv := doJSON(t, app, fiber.MethodPost, "/auth/local/login", fiber.Map{
		"email":    "sacha@example.com",
		"password": "secret123",
	}, "")

	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(loginEnv.Data, &pair))

	res, env := doJSON(t, app, fiber.MethodPost, "/auth/local/logout", nil, pair.AccessToken)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, "User logged out successfully", env.Message)

	var cleared auth.TokenPair
	require.NoError(t, json.Unmarshal(env.Data, &cleared))
	assert.Empty(t, cleared.AccessToken)
	assert.Empty(t, cleared.RefreshToken)

	// The stored refresh token is gone; rotation must fail.
	res, _ = doJSON(t, app, fiber.MethodPost, "/auth/local/refresh", fiber.Map{
		"refresh_token": pair.RefreshToken,
	}, "")
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestAdminEndpoints(t *testing.T) {
	app, registry, repo := setupApp(t, testConfig{})
	profile := registerUser(t, registry, "lee@example.com", "secret123")

	login := func(t *testing.T) auth.TokenPair {
		t.Helper()
		_, env := doJSON(t, app, fiber.MethodPost, "/auth/local/login", fiber.Map{
			"email":    "lee@example.com",
			"password": "secret123",
		}, "")
		var pair auth.TokenPair
		require.NoError(t, json.Unmarshal(env.Data, &pair))
		return pair
	}

	userPair := login(t)

	t.Run("regular user is forbidden", func(t *testing.T) {
		res, _ := doJSON(t, app, fiber.MethodGet, "/users", nil, userPair.AccessToken)
		assert.Equal(t, fiber.StatusForbidden, res.StatusCode)

		res, _ = doJSON(t, app, fiber.MethodPost, "/auth/add-role", fiber.Map{
			"userId": profile.ID.String(),
			"roleId": profile.ID.String(),
		}, userPair.AccessToken)
		assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
	})

	t.Run("admin can list users and grant roles", func(t *testing.T) {
		ctx := context.Background()

		// Promote out of band, then log in again for a fresh role snapshot.
		admin, err := repo.Roles().GetByTitle(ctx, auth.RoleAdmin)
		require.NoError(t, err)
		require.NoError(t, registry.AddRoleGrant(ctx, profile.ID, admin.ID))

		adminPair := login(t)

		res, env := doJSON(t, app, fiber.MethodGet, "/users", nil, adminPair.AccessToken)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		var profiles []*auth.Profile
		require.NoError(t, json.Unmarshal(env.Data, &profiles))
		assert.Len(t, profiles, 1)

		target := registerUser(t, registry, "newhire@example.com", "secret123")
		res, env = doJSON(t, app, fiber.MethodPost, "/auth/add-role", fiber.Map{
			"userId": target.ID.String(),
			"roleId": admin.ID.String(),
		}, adminPair.AccessToken)
		assert.Equal(t, fiber.StatusCreated, res.StatusCode)
		assert.Equal(t, "Role added successfully", env.Message)

		// Granting the same role twice is a conflict.
		res, _ = doJSON(t, app, fiber.MethodPost, "/auth/add-role", fiber.Map{
			"userId": target.ID.String(),
			"roleId": admin.ID.String(),
		}, adminPair.AccessToken)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
	})
}
