package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/authz"
	"github.com/vcms-io/vcms/internal/models"
)

type TokenMiddleware struct {
	DB        *gorm.DB
	JWTSecret []byte
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func (t *TokenMiddleware) resolve(c echo.Context, raw string) (authz.Identity, error) {
	claims, err := ParseAccessToken(raw, t.JWTSecret)
	if err != nil {
		return authz.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}

	var user models.User
	if err := t.DB.Where("id = ?", claims.Subject).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}
		c.Logger().Errorf("identity lookup: %v", err)
		return authz.Identity{}, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return authz.Identity{ID: user.ID, Role: user.Role}, nil
}

// RequireLogin rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func (t *TokenMiddleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		ident, err := t.resolve(c, raw)
		if err != nil {
			return err
		}
		setIdentity(c, ident)
		return next(c)
	}
}

// OptionalLogin resolves the identity when a token is present but lets
// anonymous requests through. Registration needs this: the role rules
// decide what an anonymous caller may create.
func (t *TokenMiddleware) OptionalLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c)
		if raw == "" {
			return next(c)
		}
		ident, err := t.resolve(c, raw)
		if err != nil {
			return err
		}
		setIdentity(c, ident)
		return next(c)
	}
}
