package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model. Rows are created on registration and mutated by
// confirmation, password reset, and scope grants; the core never deletes them.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name         string    `bun:"name" json:"name,omitempty"`
	Email        string    `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	IsConfirmed  bool      `bun:"is_confirmed" json:"is_confirmed"`

	// ConfirmationToken is an opaque one time value, cleared on confirm so
	// the link cannot be replayed.
	ConfirmationToken *string `bun:"confirmation_token,nullzero" json:"-"`

	// ResetToken carries its own expiry column so operators can audit and
	// revoke pending resets without decoding anything.
	ResetToken          *string    `bun:"reset_token,nullzero" json:"-"`
	ResetTokenExpiresAt *time.Time `bun:"reset_token_expires_at,nullzero" json:"-"`

	// ElevationTokenID pins the JTI of the one outstanding admin elevation
	// token; consuming it clears the column, making the token single use.
	ElevationTokenID *string `bun:"elevation_token_id,nullzero" json:"-"`

	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RefreshToken is a store persisted session credential. Deleted on logout,
// on rotation, and on expiry triggered rejection; cascade deleted with the
// owning user.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rft"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token     string     `bun:"token,notnull,unique" json:"-"`
	UserID    uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User      *User      `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	ExpiresAt time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Live reports whether the token can still rotate at the given instant.
func (t *RefreshToken) Live(now time.Time) bool {
	return t.ExpiresAt.After(now)
}

// Scope is a named permission. Reference data, immutable once created.
type Scope struct {
	bun.BaseModel `bun:"table:scopes,alias:scp"`

	ID          uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name        string     `bun:"name,notnull,unique" json:"name,omitempty"`
	Description string     `bun:"description" json:"description,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// UserScopeLink associates users with scopes. Uniqueness is per (user, scope)
// pair; granting a held scope is a no-op.
type UserScopeLink struct {
	bun.BaseModel `bun:"table:user_scope_links,alias:usl"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID    uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	ScopeID   uuid.UUID  `bun:"scope_id,notnull,type:uuid" json:"scope_id,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// AdminScopeName is the scope granted by the elevation protocol.
const AdminScopeName = "admin"

// NormalizeEmail lowercases and trims an email so uniqueness and lookups are
// case insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
