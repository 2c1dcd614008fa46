package auth

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles is the persistence surface for the static role table, role
// grants, and auth provider links.
type Roles interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Role, error)
	GetByTitle(ctx context.Context, title string) (*Role, error)

	Grant(ctx context.Context, userID, roleID uuid.UUID) error
	GrantTx(ctx context.Context, tx bun.IDB, userID, roleID uuid.UUID) error
	HasGrant(ctx context.Context, userID, roleID uuid.UUID) (bool, error)

	LinkProvider(ctx context.Context, userID uuid.UUID, providerName string) error
	LinkProviderTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, providerName string) error
}

type roles struct {
	db *bun.DB
}

var _ Roles = (*roles)(nil)

// NewRolesRepository wires the roles repository onto a bun DB handle.
func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

func (r *roles) GetByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	record := &Role{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, wrapRoleLookupErr(err, map[string]any{"id": id.String()})
	}

	return record, nil
}

func (r *roles) GetByTitle(ctx context.Context, title string) (*Role, error) {
	record := &Role{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.title = ?", title).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, wrapRoleLookupErr(err, map[string]any{"title": title})
	}

	return record, nil
}

func (r *roles) Grant(ctx context.Context, userID, roleID uuid.UUID) error {
	return r.GrantTx(ctx, r.db, userID, roleID)
}

// GrantTx inserts a (user, role) grant. The pair is unique: granting an
// already held role is rejected, not a no-op.
func (r *roles) GrantTx(ctx context.Context, tx bun.IDB, userID, roleID uuid.UUID) error {
	exists, err := tx.NewSelect().
		Model((*RoleGrant)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.role_id = ?", roleID).
		Exists(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not check role grant")
	}
	if exists {
		return ErrDuplicateRoleGrant
	}

	grant := &RoleGrant{UserID: userID, RoleID: roleID}
	if _, err := tx.NewInsert().Model(grant).Exec(ctx); err != nil {
		return errors.Wrap(err, ErrDuplicateRoleGrant.Category, ErrDuplicateRoleGrant.Message).
			WithTextCode(ErrDuplicateRoleGrant.TextCode).
			WithCode(errors.CodeBadRequest)
	}

	return nil
}

func (r *roles) HasGrant(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	return r.db.NewSelect().
		Model((*RoleGrant)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.role_id = ?", roleID).
		Exists(ctx)
}

func (r *roles) LinkProvider(ctx context.Context, userID uuid.UUID, providerName string) error {
	return r.LinkProviderTx(ctx, r.db, userID, providerName)
}

// LinkProviderTx records that the named identity source backs the user.
// Linking an already linked provider is a no-op; unlike role grants,
// provider links carry no privilege.
func (r *roles) LinkProviderTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, providerName string) error {
	provider := &AuthProvider{}
	err := tx.NewSelect().
		Model(provider).
		Where("?TableAlias.name = ?", providerName).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.New("auth provider not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound).
				WithMetadata(map[string]any{"provider": providerName})
		}
		return errors.Wrap(err, errors.CategoryInternal, "provider lookup failed")
	}

	exists, err := tx.NewSelect().
		Model((*AuthProviderLink)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.provider_id = ?", provider.ID).
		Exists(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not check provider link")
	}
	if exists {
		return nil
	}

	link := &AuthProviderLink{UserID: userID, ProviderID: provider.ID}
	if _, err := tx.NewInsert().Model(link).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not link provider")
	}

	return nil
}

func wrapRoleLookupErr(err error, meta map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, ErrRoleNotFound.Category, ErrRoleNotFound.Message).
			WithTextCode(ErrRoleNotFound.TextCode).
			WithCode(errors.CodeNotFound).
			WithMetadata(meta)
	}
	return errors.Wrap(err, errors.CategoryInternal, "role lookup failed").WithMetadata(meta)
}
