package handlers

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/authz"
	authmw "github.com/vcms-io/vcms/internal/middleware/auth"
	"github.com/vcms-io/vcms/internal/models"
	"github.com/vcms-io/vcms/internal/service/search"
	"github.com/vcms-io/vcms/internal/util"
)

type SearchHandler struct {
	DB    *gorm.DB
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	if h.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not configured")
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}

	ident, _ := authmw.IdentityFromContext(c)

	var retailerIDs []string
	switch ident.Role {
	case models.RoleAdmin:
		// unscoped
	case models.RoleDistributor:
		ids, err := authz.RetailerIDs(h.DB, ident.ID)
		if err != nil {
			c.Logger().Errorf("search scope: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		if len(ids) == 0 {
			return c.JSON(http.StatusOK, echo.Map{"total": 0, "certificates": []search.Doc{}})
		}
		retailerIDs = ids
	case models.RoleRetailer:
		retailerIDs = []string{ident.ID}
	default:
		return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, docs, err := search.Search(c.Request().Context(), h.ES, h.Index, q, retailerIDs, from, limit)
	if err != nil {
		c.Logger().Errorf("search: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "certificates": docs})
}
