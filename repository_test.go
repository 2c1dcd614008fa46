package auth_test

import (
	"context"
	"testing"

	auth "authcore"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(setupDB(t))

	t.Run("create and fetch", func(t *testing.T) {
		created, err := repo.Users().Create(ctx, &auth.User{
			Email:        "morgan@example.com",
			PasswordHash: "hash",
			FullName:     "Morgan Doe",
		})
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, created.ID, "repository should assign an id")

		byEmail, err := repo.Users().GetByEmail(ctx, "morgan@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)
		assert.Equal(t, "Morgan Doe", byEmail.FullName)

		byID, err := repo.Users().GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "morgan@example.com", byID.Email)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := repo.Users().Create(ctx, &auth.User{
			Email:        "morgan@example.com",
			PasswordHash: "other",
		})
		require.Error(t, err)

		var richErr *errors.Error
		require.ErrorAs(t, err, &richErr)
		assert.Equal(t, auth.TextCodeEmailExists, richErr.TextCode)
		assert.Equal(t, errors.CategoryConflict, richErr.Category)
	})

	t.Run("unknown lookups are not found", func(t *testing.T) {
		_, err := repo.Users().GetByID(ctx, uuid.New())
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))

		_, err = repo.Users().GetByEmail(ctx, "nobody@example.com")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("exists by email", func(t *testing.T) {
		exists, err := repo.Users().ExistsByEmail(ctx, "morgan@example.com")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.Users().ExistsByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestRefreshTokenRotation(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(setupDB(t))

	user, err := repo.Users().Create(ctx, &auth.User{
		Email:        "quinn@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	require.NoError(t, repo.Users().StoreRefreshToken(ctx, user.ID, "token-one"))

	t.Run("rotation replaces the stored value", func(t *testing.T) {
		err := repo.Users().RotateRefreshToken(ctx, user.ID, "token-one", "token-two")
		require.NoError(t, err)

		record, err := repo.Users().GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "token-two", record.RefreshToken)
	})

	t.Run("superseded token is rejected", func(t *testing.T) {
		err := repo.Users().RotateRefreshToken(ctx, user.ID, "token-one", "token-three")
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)

		// The losing attempt must not disturb the winner's value.
		record, err := repo.Users().GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "token-two", record.RefreshToken)
	})

	t.Run("clear invalidates the current token", func(t *testing.T) {
		require.NoError(t, repo.Users().ClearRefreshToken(ctx, user.ID))

		err := repo.Users().RotateRefreshToken(ctx, user.ID, "token-two", "token-four")
		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	})

	t.Run("store for unknown user fails", func(t *testing.T) {
		err := repo.Users().StoreRefreshToken(ctx, uuid.New(), "token")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestRolesRepository(t *testing.T) {
	ctx := context.Background()
	repo := auth.NewRepositoryManager(setupDB(t))

	user, err := repo.Users().Create(ctx, &auth.User{
		Email:        "sam@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	t.Run("seeded roles resolve by title", func(t *testing.T) {
		for _, title := range []string{auth.RoleUser, auth.RoleAdmin} {
			role, err := repo.Roles().GetByTitle(ctx, title)
			require.NoError(t, err)
			assert.Equal(t, title, role.Title)

			byID, err := repo.Roles().GetByID(ctx, role.ID)
			require.NoError(t, err)
			assert.Equal(t, title, byID.Title)
		}
	})

	t.Run("unknown role is not found", func(t *testing.T) {
		_, err := repo.Roles().GetByTitle(ctx, "owner")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("grant and duplicate grant", func(t *testing.T) {
		role, err := repo.Roles().GetByTitle(ctx, auth.RoleAdmin)
		require.NoError(t, err)

		require.NoError(t, repo.Roles().Grant(ctx, user.ID, role.ID))

		has, err := repo.Roles().HasGrant(ctx, user.ID, role.ID)
		require.NoError(t, err)
		assert.True(t, has)

		err = repo.Roles().Grant(ctx, user.ID, role.ID)
		assert.ErrorIs(t, err, auth.ErrDuplicateRoleGrant)
	})

	t.Run("grants surface on the user", func(t *testing.T) {
		record, err := repo.Users().GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Contains(t, record.RoleTitles(), auth.RoleAdmin)
	})

	t.Run("provider links are idempotent", func(t *testing.T) {
		require.NoError(t, repo.Roles().LinkProvider(ctx, user.ID, auth.ProviderLocal))
		require.NoError(t, repo.Roles().LinkProvider(ctx, user.ID, auth.ProviderLocal))

		record, err := repo.Users().GetByID(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, record.Providers, 1)
		assert.Equal(t, auth.ProviderLocal, record.Providers[0].Name)
	})

	t.Run("unknown provider is not found", func(t *testing.T) {
		err := repo.Roles().LinkProvider(ctx, user.ID, "github")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestRepositoryManagerValidate(t *testing.T) {
	repo := auth.NewRepositoryManager(setupDB(t))
	assert.NoError(t, repo.Validate())
	assert.NotPanics(t, func() { repo.MustValidate() })
}
