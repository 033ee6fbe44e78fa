package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateUser        = errors.New("user with email or username already exists")
	ErrRefreshTokenMismatch = errors.New("stored refresh token does not match")
	ErrInvalidUserUpdate    = errors.New("invalid user update")
)

// Projection selects which sensitive fields a read returns.
type Projection int

const (
	// ProjectionFull returns every field, including secrets.
	ProjectionFull Projection = iota
	// ProjectionPublic drops the password hash and the refresh token.
	ProjectionPublic
	// ProjectionNoPassword drops only the password hash.
	ProjectionNoPassword
)

type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Apply strips the fields the projection excludes. Stores call it after
// reads so every backend returns the same shape.
func (u *User) Apply(p Projection) *User {
	if u == nil {
		return nil
	}
	switch p {
	case ProjectionPublic:
		u.PasswordHash = ""
		u.RefreshToken = ""
	case ProjectionNoPassword:
		u.PasswordHash = ""
	}
	return u
}

func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// UserUpdate is a partial write. Nil fields are left untouched; a non-nil
// empty string clears the column.
type UserUpdate struct {
	FullName     *string `json:"fullName,omitempty" validate:"omitempty,notblank"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Avatar       *string `json:"avatar,omitempty" validate:"omitempty,notblank"`
	CoverImage   *string `json:"coverImage,omitempty"`
	PasswordHash *string `json:"-" validate:"omitempty,notblank"`
	RefreshToken *string `json:"-"`
}

func (u UserUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Email == nil && u.Avatar == nil &&
		u.CoverImage == nil && u.PasswordHash == nil && u.RefreshToken == nil
}

// Columns returns the changed fields keyed by storage column name.
func (u UserUpdate) Columns() map[string]any {
	cols := make(map[string]any, 6)
	if u.FullName != nil {
		cols["full_name"] = *u.FullName
	}
	if u.Email != nil {
		cols["email"] = NormalizeEmail(*u.Email)
	}
	if u.Avatar != nil {
		cols["avatar"] = *u.Avatar
	}
	if u.CoverImage != nil {
		cols["cover_image"] = *u.CoverImage
	}
	if u.PasswordHash != nil {
		cols["password_hash"] = *u.PasswordHash
	}
	if u.RefreshToken != nil {
		cols["refresh_token"] = *u.RefreshToken
	}
	return cols
}

// Session is a stored refresh token and its owner.
type Session struct {
	UserID       string
	RefreshToken string
}

type UpdateOptions struct {
	// SkipValidation writes the fields as given, for single-field saves
	// such as the refresh token.
	SkipValidation bool
	Projection     Projection
}
