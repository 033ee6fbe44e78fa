package middleware

import (
	"context"
	"errors"
	"strings"

	"accounthub/internal/domain"
	"accounthub/internal/pkg/apperr"
	"accounthub/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie = "accessToken"

	currentUserKey = "current_user"
	userIDKey      = "user_id"
)

type AccessVerifier interface {
	VerifyAccess(token string) (*jwt.Claims, error)
}

type UserLoader interface {
	FindByID(ctx context.Context, id string, projection domain.Projection) (*domain.User, error)
}

// Authenticate resolves the caller from the accessToken cookie or a Bearer
// header and stores the user (without secrets) in the context.
func Authenticate(tokens AccessVerifier, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractAccessToken(c)
		if token == "" {
			abort(c, apperr.Unauthorized("Unauthorized request"))
			return
		}

		claims, err := tokens.VerifyAccess(token)
		if err != nil {
			abort(c, apperr.Wrap(apperr.KindUnauthorized, "Invalid access token", err))
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID, domain.ProjectionPublic)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				abort(c, apperr.Unauthorized("Invalid Access Token"))
				return
			}
			abort(c, apperr.Internal("Failed to resolve user", err))
			return
		}

		c.Set(currentUserKey, user)
		c.Set(userIDKey, user.ID)
		c.Next()
	}
}

// CurrentUser returns the user set by Authenticate.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}

// Cookie wins over the header when both are present.
func extractAccessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
