package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/authz"
	authmw "github.com/vcms-io/vcms/internal/middleware/auth"
)

type UserHandler struct {
	DB *gorm.DB
}

// List returns the users inside the caller's reach; retailers get an empty
// list rather than an error.
func (h *UserHandler) List(c echo.Context) error {
	ident, _ := authmw.IdentityFromContext(c)

	users, err := authz.ScopeUsers(h.DB, ident)
	if err != nil {
		c.Logger().Errorf("user list: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, users)
}
