package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/vcms-io/vcms/internal/authz"
)

const identityKey = "identity"

func setIdentity(c echo.Context, ident authz.Identity) {
	c.Set(identityKey, ident)
}

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(c echo.Context) (authz.Identity, bool) {
	ident, ok := c.Get(identityKey).(authz.Identity)
	return ident, ok
}
