package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	appErrors "github.com/seedbridge/crm-portal/errors"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

const (
	// UserKey is the echo context key of the authenticated user
	UserKey = "user"
	// UserIDKey is the echo context key of the authenticated user's ID
	UserIDKey = "user_id"
)

// SessionValidator resolves an access token to its user
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*entities.User, error)
}

// EchoAuth returns an Echo middleware that validates JWT and sets
// "user_id" (uuid.UUID) and "user" (*entities.User) into Echo context
func EchoAuth(sessions SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := ExtractToken(c)
			if token == "" {
				return appErrors.ErrUnauthenticated()
			}

			user, err := sessions.ValidateSession(c.Request().Context(), token)
			if err != nil {
				return appErrors.ErrInvalidToken()
			}

			c.Set(UserKey, user)
			c.Set(UserIDKey, user.ID)

			return next(c)
		}
	}
}

// OptionalAuth validates the token if present but doesn't require it
func OptionalAuth(sessions SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := ExtractToken(c); token != "" {
				if user, err := sessions.ValidateSession(c.Request().Context(), token); err == nil {
					c.Set(UserKey, user)
					c.Set(UserIDKey, user.ID)
				}
			}
			return next(c)
		}
	}
}

// GetUser returns the authenticated user set by EchoAuth
func GetUser(c echo.Context) (*entities.User, bool) {
	user, ok := c.Get(UserKey).(*entities.User)
	return user, ok && user != nil
}

// ExtractToken reads the bearer token from the Authorization header, falling
// back to the access_token cookie
func ExtractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie, err := c.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}
