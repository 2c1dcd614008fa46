package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the persistence surface for identity records, including the
// single stored refresh token per user.
type Users interface {
	Create(ctx context.Context, user *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]*User, error)

	StoreRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	RotateRefreshToken(ctx context.Context, id uuid.UUID, presented, next string) error
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository wires the users repository onto a bun DB handle.
func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	return a.CreateTx(ctx, a.db, user)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryConflict, "could not create user").
			WithTextCode(TextCodeEmailExists).
			WithCode(errors.CodeBadRequest)
	}

	return user, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Roles").
		Relation("Providers").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, wrapUserLookupErr(err, map[string]any{"id": id.String()})
	}

	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Roles").
		Relation("Providers").
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, wrapUserLookupErr(err, map[string]any{"email": email})
	}

	return record, nil
}

func (a *users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", email).
		Exists(ctx)
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	records := make([]*User, 0)
	err := a.db.NewSelect().
		Model(&records).
		Relation("Roles").
		Order("usr.created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not list users")
	}

	return records, nil
}

// StoreRefreshToken overwrites the stored refresh value unconditionally.
// Login paths use this; the refresh path must use RotateRefreshToken.
func (a *users) StoreRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("refresh_token = ?", token).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not store refresh token")
	}

	return requireRowsAffected(res, map[string]any{"id": id.String()})
}

// RotateRefreshToken replaces the stored refresh value only if it still
// equals the presented one. Zero rows means another rotation won the
// race or the token was already superseded; the presented token must
// then be rejected, not re-validated.
func (a *users) RotateRefreshToken(ctx context.Context, id uuid.UUID, presented, next string) error {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("refresh_token = ?", next).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("refresh_token = ?", presented).
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not rotate refresh token")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not rotate refresh token")
	}
	if rows == 0 {
		return ErrInvalidRefreshToken
	}

	return nil
}

func (a *users) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return a.StoreRefreshToken(ctx, id, "")
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func wrapUserLookupErr(err error, meta map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, ErrIdentityNotFound.Category, ErrIdentityNotFound.Message).
			WithTextCode(ErrIdentityNotFound.TextCode).
			WithCode(errors.CodeNotFound).
			WithMetadata(meta)
	}
	return errors.Wrap(err, errors.CategoryInternal, "user lookup failed").WithMetadata(meta)
}

func requireRowsAffected(res sql.Result, meta map[string]any) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "could not read affected rows")
	}
	if rows == 0 {
		return errors.New(ErrIdentityNotFound.Message, ErrIdentityNotFound.Category).
			WithTextCode(ErrIdentityNotFound.TextCode).
			WithCode(errors.CodeNotFound).
			WithMetadata(meta)
	}
	return nil
}
