package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/handlers"
	authmw "github.com/vcms-io/vcms/internal/middleware/auth"
	"github.com/vcms-io/vcms/internal/models"
)

type Deps struct {
	DB                 *gorm.DB
	TokenMW            *authmw.TokenMiddleware
	AuthHandler        *handlers.AuthHandler
	UserHandler        *handlers.UserHandler
	CertificateHandler *handlers.CertificateHandler
	DashboardHandler   *handlers.DashboardHandler
	SearchHandler      *handlers.SearchHandler
	HealthHandler      *handlers.HealthHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", d.HealthHandler.Health)

	api := e.Group("/api")
	api.GET("", handlers.Root)

	api.POST("/auth/register", d.AuthHandler.Register, d.TokenMW.OptionalLogin)
	api.POST("/auth/login", d.AuthHandler.Login)
	api.GET("/auth/me", d.AuthHandler.Me, d.TokenMW.RequireLogin)

	api.GET("/users", d.UserHandler.List, d.TokenMW.RequireLogin,
		authmw.RequireRoles(models.RoleAdmin, models.RoleDistributor, models.RoleRetailer))

	certs := api.Group("/certificates", d.TokenMW.RequireLogin)
	certs.POST("", d.CertificateHandler.Create, authmw.RequireRoles(models.RoleRetailer))
	certs.GET("", d.CertificateHandler.List)
	certs.GET("/search", d.SearchHandler.Search)
	certs.GET("/:id", d.CertificateHandler.Get)
	certs.PUT("/:id", d.CertificateHandler.Update, authmw.RequireRoles(models.RoleRetailer))
	certs.POST("/:id/upload-image", d.CertificateHandler.UploadImage, authmw.RequireRoles(models.RoleRetailer))

	api.GET("/dashboard/stats", d.DashboardHandler.Stats, d.TokenMW.RequireLogin)
}
