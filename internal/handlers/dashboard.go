package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/authz"
	authmw "github.com/vcms-io/vcms/internal/middleware/auth"
	"github.com/vcms-io/vcms/internal/models"
)

type DashboardHandler struct {
	DB *gorm.DB
}

// Stats recomputes role-scoped counts on every request; nothing is cached.
func (h *DashboardHandler) Stats(c echo.Context) error {
	ident, _ := authmw.IdentityFromContext(c)

	switch ident.Role {
	case models.RoleAdmin:
		return h.adminStats(c)
	case models.RoleDistributor:
		return h.distributorStats(c, ident)
	default:
		return h.retailerStats(c, ident)
	}
}

func (h *DashboardHandler) adminStats(c echo.Context) error {
	var totalUsers, totalDistributors, totalRetailers int64
	var totalCerts, submittedCerts int64

	counts := []struct {
		query *gorm.DB
		dst   *int64
	}{
		{h.DB.Model(&models.User{}), &totalUsers},
		{h.DB.Model(&models.User{}).Where("role = ?", models.RoleDistributor), &totalDistributors},
		{h.DB.Model(&models.User{}).Where("role = ?", models.RoleRetailer), &totalRetailers},
		{h.DB.Model(&models.Certificate{}), &totalCerts},
		{h.DB.Model(&models.Certificate{}).Where("status = ?", models.StatusSubmitted), &submittedCerts},
	}
	for _, cnt := range counts {
		if err := cnt.query.Count(cnt.dst).Error; err != nil {
			c.Logger().Errorf("dashboard count: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_users":            totalUsers,
		"total_distributors":     totalDistributors,
		"total_retailers":        totalRetailers,
		"total_certificates":     totalCerts,
		"submitted_certificates": submittedCerts,
		"draft_certificates":     totalCerts - submittedCerts,
	})
}

func (h *DashboardHandler) distributorStats(c echo.Context, ident authz.Identity) error {
	retailerIDs, err := authz.RetailerIDs(h.DB, ident.ID)
	if err != nil {
		c.Logger().Errorf("dashboard retailers: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var totalCerts, submittedCerts int64
	if len(retailerIDs) > 0 {
		if err := h.DB.Model(&models.Certificate{}).
			Where("retailer_id IN ?", retailerIDs).
			Count(&totalCerts).Error; err != nil {
			c.Logger().Errorf("dashboard count: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		if err := h.DB.Model(&models.Certificate{}).
			Where("retailer_id IN ? AND status = ?", retailerIDs, models.StatusSubmitted).
			Count(&submittedCerts).Error; err != nil {
			c.Logger().Errorf("dashboard count: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_retailers":        int64(len(retailerIDs)),
		"total_certificates":     totalCerts,
		"submitted_certificates": submittedCerts,
		"draft_certificates":     totalCerts - submittedCerts,
	})
}

func (h *DashboardHandler) retailerStats(c echo.Context, ident authz.Identity) error {
	var totalCerts, submittedCerts int64
	if err := h.DB.Model(&models.Certificate{}).
		Where("retailer_id = ?", ident.ID).
		Count(&totalCerts).Error; err != nil {
		c.Logger().Errorf("dashboard count: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := h.DB.Model(&models.Certificate{}).
		Where("retailer_id = ? AND status = ?", ident.ID, models.StatusSubmitted).
		Count(&submittedCerts).Error; err != nil {
		c.Logger().Errorf("dashboard count: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_certificates":     totalCerts,
		"submitted_certificates": submittedCerts,
		"draft_certificates":     totalCerts - submittedCerts,
	})
}
