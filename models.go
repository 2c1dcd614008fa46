package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// RoleUser is the default role granted on registration
	RoleUser = "user"
	// RoleAdmin gates privileged routes like add-role and the user listing
	RoleAdmin = "admin"
)

const (
	// ProviderLocal backs password accounts
	ProviderLocal = "local"
	// ProviderGoogle backs Google federated accounts
	ProviderGoogle = "google"
	// ProviderFacebook is seeded for parity with the reference data set
	ProviderFacebook = "facebook"
)

// User is the identity record. Purely federated accounts carry a
// random placeholder in PasswordHash; RefreshToken empty means
// logged out.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID       `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email        string          `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string          `bun:"password_hash" json:"-"`
	FullName     string          `bun:"full_name" json:"full_name,omitempty"`
	AvatarURL    string          `bun:"avatar_url" json:"avatar_url,omitempty"`
	RefreshToken string          `bun:"refresh_token" json:"-"`
	Roles        []*Role         `bun:"m2m:role_grants,join:User=Role" json:"roles,omitempty"`
	Providers    []*AuthProvider `bun:"m2m:auth_provider_links,join:User=Provider" json:"providers,omitempty"`
	CreatedAt    *time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt    *time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RoleTitles projects the loaded role grants to their titles.
func (u *User) RoleTitles() []string {
	titles := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		if role != nil {
			titles = append(titles, role.Title)
		}
	}
	return titles
}

// TokenIdentity snapshots the claim set for this user as currently loaded.
func (u *User) TokenIdentity() TokenIdentity {
	return TokenIdentity{
		UserID: u.ID.String(),
		Email:  u.Email,
		Roles:  u.RoleTitles(),
	}
}

// Role is static reference data, unique by title, seeded once.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`

	ID    uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title string    `bun:"title,notnull,unique" json:"title,omitempty"`
}

// RoleGrant joins users and roles; the (user, role) pair is unique.
type RoleGrant struct {
	bun.BaseModel `bun:"table:role_grants,alias:rgr"`

	UserID uuid.UUID `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	RoleID uuid.UUID `bun:"role_id,pk,type:uuid" json:"role_id,omitempty"`
	User   *User     `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	Role   *Role     `bun:"rel:belongs-to,join:role_id=id" json:"-"`
}

// AuthProvider is a seeded identity source (local, google, ...).
type AuthProvider struct {
	bun.BaseModel `bun:"table:auth_providers,alias:apr"`

	ID   uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name string    `bun:"name,notnull,unique" json:"name,omitempty"`
}

// AuthProviderLink records which identity sources back an account. A
// user may hold several links, e.g. local plus google under one email.
type AuthProviderLink struct {
	bun.BaseModel `bun:"table:auth_provider_links,alias:apl"`

	UserID     uuid.UUID     `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	ProviderID uuid.UUID     `bun:"provider_id,pk,type:uuid" json:"provider_id,omitempty"`
	User       *User         `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	Provider   *AuthProvider `bun:"rel:belongs-to,join:provider_id=id" json:"-"`
}

// Profile is the public user projection. It never carries the password
// hash or the stored refresh token.
type Profile struct {
	ID        uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Roles     []string  `json:"roles"`
}

// ProfileFromUser builds the public projection from a user row with its
// role grants loaded.
func ProfileFromUser(u *User) *Profile {
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		Roles:     u.RoleTitles(),
	}
}
