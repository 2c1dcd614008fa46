package auth

import (
	"context"
	"io"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Registry owns identity records and the token lifecycle built on top
// of them: local registration and login, refresh rotation, logout, role
// grants, and federated resolution.
type Registry struct {
	repo    RepositoryManager
	tokens  TokenService
	hasher  PasswordAuthenticator
	avatars AvatarStore
	logger  Logger
}

// NewRegistry returns a new identity registry
func NewRegistry(repo RepositoryManager, tokens TokenService) *Registry {
	return &Registry{
		repo:   repo,
		tokens: tokens,
		hasher: Hasher{},
		logger: defLogger{},
	}
}

func (r *Registry) WithLogger(logger Logger) *Registry {
	if logger != nil {
		r.logger = logger
	}
	return r
}

func (r *Registry) WithAvatarStore(store AvatarStore) *Registry {
	if store != nil {
		r.avatars = store
	}
	return r
}

func (r *Registry) WithPasswordAuthenticator(hasher PasswordAuthenticator) *Registry {
	if hasher != nil {
		r.hasher = hasher
	}
	return r
}

// RegisterInput is the payload for local registration.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FullName        string
}

// AvatarUpload is an optional opaque blob stored through the external
// AvatarStore collaborator.
type AvatarUpload struct {
	Filename string
	Blob     io.Reader
}

// RegisterLocal creates a local identity: validates the password
// confirmation, rejects duplicate emails, stores the avatar, then
// creates the user row with the default role grant and the local
// provider link in one transaction.
func (r *Registry) RegisterLocal(ctx context.Context, input RegisterInput, avatar *AvatarUpload) (*Profile, error) {
	if input.Password != input.ConfirmPassword {
		return nil, ErrPasswordConfirmation
	}

	taken, err := r.repo.Users().ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not check email")
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := r.hasher.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	avatarURL := ""
	if avatar != nil && r.avatars != nil {
		avatarURL, err = r.avatars.Save(ctx, avatar.Filename, avatar.Blob)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "could not store avatar")
		}
	}

	user := &User{
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     input.FullName,
		AvatarURL:    avatarURL,
	}

	defaultRole, err := r.repo.Roles().GetByTitle(ctx, RoleUser)
	if err != nil {
		return nil, err
	}

	err = r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := r.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return err
		}
		if err := r.repo.Roles().GrantTx(ctx, tx, user.ID, defaultRole.ID); err != nil {
			return err
		}
		return r.repo.Roles().LinkProviderTx(ctx, tx, user.ID, ProviderLocal)
	})
	if err != nil {
		r.logger.Error("RegisterLocal failed for %s: %v", input.Email, err)
		return nil, err
	}

	return &Profile{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		AvatarURL: user.AvatarURL,
		Roles:     []string{RoleUser},
	}, nil
}

// AuthenticateLocal verifies an email/password pair and returns the
// claim snapshot. Unknown email and wrong password produce the same
// error so the endpoint cannot be used to enumerate accounts.
func (r *Registry) AuthenticateLocal(ctx context.Context, email, password string) (TokenIdentity, error) {
	user, err := r.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		r.logger.Debug("AuthenticateLocal lookup failed: %v", err)
		return TokenIdentity{}, ErrInvalidCredentials
	}

	if user.PasswordHash == "" {
		return TokenIdentity{}, ErrInvalidCredentials
	}

	if err := r.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return TokenIdentity{}, ErrInvalidCredentials
	}

	return user.TokenIdentity(), nil
}

// Login authenticates the credentials, mints a token pair, and records
// the refresh token as the single valid one for the user.
func (r *Registry) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	identity, err := r.AuthenticateLocal(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return r.issueAndStore(ctx, identity)
}

// Refresh exchanges a refresh token for a new pair. The presented token
// must verify and still be the stored value for its subject; the
// replacement happens as one conditional write, so a raced or replayed
// token loses. Every failure mode collapses into ErrInvalidRefreshToken.
func (r *Registry) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	claims, err := r.tokens.Validate(presented)
	if err != nil {
		r.logger.Debug("Refresh token validation failed: %v", err)
		return nil, ErrInvalidRefreshToken
	}

	userID, err := claims.UserUUID()
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	// Reload the user so the new pair carries the current role snapshot,
	// not the one frozen into the old token.
	user, err := r.repo.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	pair, err := r.tokens.Issue(user.TokenIdentity())
	if err != nil {
		return nil, err
	}

	if err := r.repo.Users().RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken); err != nil {
		r.logger.Debug("Refresh rotation rejected for %s: %v", user.ID, err)
		return nil, ErrInvalidRefreshToken
	}

	return pair, nil
}

// Logout clears the stored refresh token. Any previously issued refresh
// token for the user stops working even before its expiry.
func (r *Registry) Logout(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	if err := r.repo.Users().ClearRefreshToken(ctx, userID); err != nil {
		return nil, err
	}
	return &TokenPair{}, nil
}

// AddRoleGrant attaches a role to a user. Unknown user or role is a not
// found failure; a grant the user already holds is a conflict.
func (r *Registry) AddRoleGrant(ctx context.Context, userID, roleID uuid.UUID) error {
	if _, err := r.repo.Users().GetByID(ctx, userID); err != nil {
		return err
	}

	if _, err := r.repo.Roles().GetByID(ctx, roleID); err != nil {
		return err
	}

	return r.repo.Roles().Grant(ctx, userID, roleID)
}

// GetProfile returns the public projection for a user. The password
// hash and refresh token never leave the registry.
func (r *Registry) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := r.repo.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ProfileFromUser(user), nil
}

// ListUsers returns the public projection of every user.
func (r *Registry) ListUsers(ctx context.Context) ([]*Profile, error) {
	records, err := r.repo.Users().List(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]*Profile, len(records))
	for i, user := range records {
		profiles[i] = ProfileFromUser(user)
	}
	return profiles, nil
}

// ResolveFederated reconciles an external identity assertion. On first
// sight it creates a user with the default role, the provider link, and
// a placeholder credential; otherwise it logs into the existing account
// and records the asserting provider as an additional link.
//
// Resolution is by email alone, not scoped to the provider: an
// assertion for an email that already has a local password account
// signs into that account. Last claim wins. This is a deliberate
// product decision and a security-relevant one; review it before
// enabling additional providers.
func (r *Registry) ResolveFederated(ctx context.Context, provider, email, fullName, avatarURL string) (*TokenPair, error) {
	user, err := r.repo.Users().GetByEmail(ctx, email)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	if user == nil || errors.IsNotFound(err) {
		user = &User{
			Email:     email,
			FullName:  fullName,
			AvatarURL: avatarURL,
			// An unguessable credential: the account can only be entered
			// through a federated assertion until a password reset.
			PasswordHash: RandomPasswordHash(),
		}

		defaultRole, err := r.repo.Roles().GetByTitle(ctx, RoleUser)
		if err != nil {
			return nil, err
		}

		err = r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := r.repo.Users().CreateTx(ctx, tx, user); err != nil {
				return err
			}
			if err := r.repo.Roles().GrantTx(ctx, tx, user.ID, defaultRole.ID); err != nil {
				return err
			}
			return r.repo.Roles().LinkProviderTx(ctx, tx, user.ID, provider)
		})
		if err != nil {
			r.logger.Error("ResolveFederated create failed for %s: %v", email, err)
			return nil, err
		}

		user, err = r.repo.Users().GetByID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
	} else {
		// An existing account reached through a new provider collects its
		// link, so the record shows every source that backs it.
		if err := r.repo.Roles().LinkProvider(ctx, user.ID, provider); err != nil {
			r.logger.Error("ResolveFederated link failed for %s: %v", email, err)
			return nil, err
		}
	}

	return r.issueAndStore(ctx, user.TokenIdentity())
}

func (r *Registry) issueAndStore(ctx context.Context, identity TokenIdentity) (*TokenPair, error) {
	pair, err := r.tokens.Issue(identity)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(identity.UserID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "invalid user id in claims")
	}

	if err := r.repo.Users().StoreRefreshToken(ctx, userID, pair.RefreshToken); err != nil {
		return nil, err
	}

	return pair, nil
}
