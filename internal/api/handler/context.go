package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// ctxIdentity rebuilds the caller from the keys set by the Auth or Session
// middleware. A missing user_id or unknown role means neither ran.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	isDemo, _ := c.Get("is_demo").(bool)

	if id == "" || !domain.Role(role).Valid() {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return domain.Identity{ID: id, Role: domain.Role(role), IsDemo: isDemo}, nil
}
