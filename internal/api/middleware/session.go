package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// IdentitySource exposes the current dashboard identity.
type IdentitySource interface {
	Current() *domain.Identity
}

// Session rejects requests made while nobody is signed in to the dashboard
// and otherwise sets the same context keys as Auth.
func Session(src IdentitySource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := src.Current()
			if id == nil {
				return domain.ErrUnauthenticated
			}

			c.Set("user_id", id.ID)
			c.Set("role", string(id.Role))
			c.Set("is_demo", id.IsDemo)

			return next(c)
		}
	}
}
