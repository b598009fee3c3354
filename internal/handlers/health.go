package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type HealthHandler struct {
	DB *gorm.DB
}

// Health reports process liveness plus a best-effort DB connectivity flag.
// It always answers 200 so load balancers can tell "up but degraded" from
// "down".
func (h *HealthHandler) Health(c echo.Context) error {
	dbStatus := "ok"

	sqlDB, err := h.DB.DB()
	if err != nil {
		dbStatus = "degraded"
	} else {
		ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
		defer cancel()
		if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "degraded"
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"app": "ok", "db": dbStatus})
}

func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Vehicle Conspicuity Management System API",
		"status":  "ok",
	})
}
