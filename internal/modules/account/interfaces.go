package account

import (
	"context"

	"accounthub/internal/domain"
	"accounthub/internal/events"
	"accounthub/internal/media"
	"accounthub/internal/pkg/jwt"
)

// UserStore is the credential store. Both the gorm and the mongo
// repositories implement it.
type UserStore interface {
	FindByID(ctx context.Context, id string, projection domain.Projection) (*domain.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, id string, fields domain.UserUpdate, opts domain.UpdateOptions) (*domain.User, error)
	SwapRefreshToken(ctx context.Context, id, expected, next string) error
}

type TokenIssuer interface {
	IssueAccessToken(userID string) (string, error)
	IssueRefreshToken(userID string) (string, error)
	VerifyRefresh(token string) (*jwt.Claims, error)
}

type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (*media.Asset, error)
}

// Locker serializes refresh exchanges per user.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
}
