package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/hash"
	"github.com/vcms-io/vcms/internal/logging"
	authmw "github.com/vcms-io/vcms/internal/middleware/auth"
	"github.com/vcms-io/vcms/internal/models"
	"github.com/vcms-io/vcms/internal/mykafka"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	AccessTTL time.Duration
	Producer  *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username      string `json:"username"`
		Password      string `json:"password"`
		Role          string `json:"role"`
		CompanyName   string `json:"company_name"`
		ContactNumber string `json:"contact_number"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	if !models.ValidRole(req.Role) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown role")
	}

	creator, hasCreator := authmw.IdentityFromContext(c)
	switch req.Role {
	case models.RoleAdmin:
		return echo.NewHTTPError(http.StatusForbidden, "cannot create admin users through registration")
	case models.RoleDistributor:
		if !hasCreator || creator.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "only admins can create distributors")
		}
	case models.RoleRetailer:
		if !hasCreator || (creator.Role != models.RoleAdmin && creator.Role != models.RoleDistributor) {
			return echo.NewHTTPError(http.StatusForbidden, "only admins or distributors can create retailers")
		}
	}

	var existing models.User
	err := h.DB.Where("username = ?", req.Username).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "username already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.Logger().Errorf("register lookup: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		c.Logger().Errorf("password hash: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		Username:      req.Username,
		PasswordHash:  pwHash,
		Role:          req.Role,
		CompanyName:   req.CompanyName,
		ContactNumber: req.ContactNumber,
		CreatedBy:     creator.ID,
	}
	if req.Role == models.RoleRetailer && creator.Role == models.RoleDistributor {
		user.ParentID = creator.ID
	}
	if err := h.DB.Create(&user).Error; err != nil {
		c.Logger().Errorf("register create: %v", err)
		return echo.NewHTTPError(http.StatusBadRequest, "username already registered")
	}

	h.publish(c, user.ID, map[string]interface{}{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	})

	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
		}
		c.Logger().Errorf("login lookup: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	ok, legacy := hash.Verify(user.PasswordHash, req.Password)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect username or password")
	}
	if legacy {
		logging.FromContext(c.Request().Context()).Warn("legacy password hash used",
			"username", user.Username, "user_id", user.ID)
	}

	token, err := authmw.SignAccessToken(user.ID, user.Role, h.AccessTTL, h.JWTSecret)
	if err != nil {
		c.Logger().Errorf("sign token: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, user.ID, map[string]interface{}{
		"type":     "user_logged_in",
		"user_id":  user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	ident, ok := authmw.IdentityFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}
	var user models.User
	if err := h.DB.Where("id = ?", ident.ID).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	return c.JSON(http.StatusOK, user)
}
