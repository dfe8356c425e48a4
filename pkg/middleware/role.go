package middleware

import (
	"github.com/labstack/echo/v4"

	appErrors "github.com/seedbridge/crm-portal/errors"
	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

// RequireRole middleware: only allow users holding one of roles. Must run
// after the auth middleware.
func RequireRole(roles ...entities.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get("user").(*entities.User)
			if !ok || user == nil {
				return appErrors.ErrUnauthenticated()
			}
			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}
			return appErrors.ErrPermissionDenied("requires role " + joinRoles(roles))
		}
	}
}

// RequireTeam allows admins and team members
func RequireTeam() echo.MiddlewareFunc {
	return RequireRole(entities.RoleAdmin, entities.RoleTeam)
}

func joinRoles(roles []entities.UserRole) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += " or "
		}
		out += string(r)
	}
	return out
}
