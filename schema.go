package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegisterModels registers the join tables bun needs to resolve the
// m2m relations. Call once before any relation query.
func RegisterModels(db *bun.DB) {
	db.RegisterModel(
		(*RoleGrant)(nil),
		(*AuthProviderLink)(nil),
	)
}

// CreateSchema creates the entity tables if they do not exist. Schema
// ownership beyond these minimal shapes belongs to an external
// collaborator; this is just enough to run and test the core.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*User)(nil),
		(*Role)(nil),
		(*RoleGrant)(nil),
		(*AuthProvider)(nil),
		(*AuthProviderLink)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to create schema")
		}
	}

	return nil
}

// SeedReferenceData inserts the static role and provider rows. Safe to
// run repeatedly; existing titles are left alone.
func SeedReferenceData(ctx context.Context, db *bun.DB) error {
	for _, title := range []string{RoleUser, RoleAdmin} {
		role := &Role{ID: uuid.New(), Title: title}
		if _, err := db.NewInsert().
			Model(role).
			On("CONFLICT (title) DO NOTHING").
			Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to seed roles")
		}
	}

	for _, name := range []string{ProviderLocal, ProviderGoogle, ProviderFacebook} {
		provider := &AuthProvider{ID: uuid.New(), Name: name}
		if _, err := db.NewInsert().
			Model(provider).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to seed auth providers")
		}
	}

	return nil
}
