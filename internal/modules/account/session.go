package account

import (
	"context"
	"errors"

	"accounthub/internal/domain"
	"accounthub/internal/pkg/apperr"
)

// SessionRotator issues a fresh access/refresh pair and makes the new
// refresh token the only one the store accepts for the user.
type SessionRotator struct {
	users  UserStore
	tokens TokenIssuer
}

func NewSessionRotator(users UserStore, tokens TokenIssuer) *SessionRotator {
	return &SessionRotator{users: users, tokens: tokens}
}

// Rotate starts a new session when previous is empty. Otherwise it replaces
// previous and fails if another exchange already consumed it.
func (r *SessionRotator) Rotate(ctx context.Context, userID, previous string) (*TokenPair, error) {
	user, err := r.users.FindByID(ctx, userID, domain.ProjectionNoPassword)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, apperr.NotFound(msgUserNotFound)
		}
		return nil, apperr.Internal(msgTokenGenerationFailed, err)
	}

	access, err := r.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(msgTokenGenerationFailed, err)
	}
	refresh, err := r.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(msgTokenGenerationFailed, err)
	}

	if previous == "" {
		_, err = r.users.Update(ctx, user.ID,
			domain.UserUpdate{RefreshToken: &refresh},
			domain.UpdateOptions{SkipValidation: true, Projection: domain.ProjectionPublic},
		)
	} else {
		err = r.users.SwapRefreshToken(ctx, user.ID, previous, refresh)
	}
	if err != nil {
		if errors.Is(err, domain.ErrRefreshTokenMismatch) {
			return nil, apperr.Unauthorized(msgRefreshTokenUsed)
		}
		return nil, apperr.Internal(msgTokenGenerationFailed, err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
