package account

import "accounthub/internal/domain"

// RegisterInput is the parsed multipart registration form. The paths point
// at files already saved to the upload temp dir.
type RegisterInput struct {
	FullName       string `json:"fullName" validate:"notblank"`
	Email          string `json:"email" validate:"notblank,email"`
	Username       string `json:"username" validate:"notblank"`
	Password       string `json:"password" validate:"notblank"`
	AvatarPath     string `json:"-"`
	CoverImagePath string `json:"-"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"notblank"`
	NewPassword string `json:"newPassword" validate:"notblank"`
}

type UpdateAccountRequest struct {
	FullName string `json:"fullName" validate:"notblank"`
	Email    string `json:"email" validate:"notblank,email"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginResult struct {
	User   *domain.User
	Tokens *TokenPair
}

type LoginResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}
