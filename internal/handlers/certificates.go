package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/authz"
	"github.com/vcms-io/vcms/internal/logging"
	authmw "github.com/vcms-io/vcms/internal/middleware/auth"
	"github.com/vcms-io/vcms/internal/models"
	"github.com/vcms-io/vcms/internal/mykafka"
	"github.com/vcms-io/vcms/internal/service/search"
	"github.com/vcms-io/vcms/internal/util"
)

type CertificateHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

type certificateCreate struct {
	DealerName     string                `json:"dealer_name"`
	DealerLicense  string                `json:"dealer_license"`
	VehicleDetails models.VehicleDetails `json:"vehicle_details"`
	OwnerDetails   models.OwnerDetails   `json:"owner_details"`
	FitmentDetails models.FitmentDetails `json:"fitment_details"`
	Status         string                `json:"status"`
}

type certificateUpdate struct {
	DealerName     *string                `json:"dealer_name"`
	DealerLicense  *string                `json:"dealer_license"`
	VehicleDetails *models.VehicleDetails `json:"vehicle_details"`
	OwnerDetails   *models.OwnerDetails   `json:"owner_details"`
	FitmentDetails *models.FitmentDetails `json:"fitment_details"`
	Status         *string                `json:"status"`
}

func (h *CertificateHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "certificate_events", key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

// index mirrors the certificate into elasticsearch; failures only get logged.
func (h *CertificateHandler) index(c echo.Context, cert *models.Certificate) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.Index(ctx, h.ES, h.ESIndex, cert); err != nil {
		c.Logger().Errorf("es index error: %v", err)
	}
}

func (h *CertificateHandler) load(c echo.Context, id string) (*models.Certificate, error) {
	var cert models.Certificate
	if err := h.DB.Where("id = ?", id).First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "certificate not found")
		}
		c.Logger().Errorf("certificate lookup: %v", err)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return &cert, nil
}

func (h *CertificateHandler) Create(c echo.Context) error {
	ident, _ := authmw.IdentityFromContext(c)

	var req certificateCreate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Status == "" {
		req.Status = models.StatusDraft
	}
	if req.Status != models.StatusDraft && req.Status != models.StatusSubmitted {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}

	cert := models.Certificate{
		RetailerID:     ident.ID,
		DealerName:     req.DealerName,
		DealerLicense:  req.DealerLicense,
		VehicleDetails: req.VehicleDetails,
		OwnerDetails:   req.OwnerDetails,
		FitmentDetails: req.FitmentDetails,
		Status:         req.Status,
	}
	if err := h.DB.Create(&cert).Error; err != nil {
		c.Logger().Errorf("certificate create: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, cert.ID, map[string]interface{}{
		"type":           "certificate_created",
		"certificate_id": cert.ID,
		"certificate_no": cert.CertificateNo,
		"retailer_id":    cert.RetailerID,
		"status":         cert.Status,
	})
	h.index(c, &cert)

	return c.JSON(http.StatusOK, cert)
}

func (h *CertificateHandler) List(c echo.Context) error {
	ident, _ := authmw.IdentityFromContext(c)

	query, err := authz.ScopeCertificates(h.DB, ident)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
	}

	// the dashboard UI fetches the full scoped list; page/size opt in to
	// a paginated envelope
	if c.QueryParam("page") == "" && c.QueryParam("size") == "" {
		certs := []models.Certificate{}
		if err := query.Order("created_at DESC").Find(&certs).Error; err != nil {
			c.Logger().Errorf("certificate list: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		return c.JSON(http.StatusOK, certs)
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.Logger().Errorf("certificate count: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	certs := []models.Certificate{}
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&certs).Error; err != nil {
		c.Logger().Errorf("certificate list: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": certs,
		"meta": echo.Map{
			"page":     page,
			"size":     limit,
			"total":    total,
			"has_prev": page > 1,
			"has_next": int64(offset+limit) < total,
		},
	})
}

func (h *CertificateHandler) Get(c echo.Context) error {
	ident, _ := authmw.IdentityFromContext(c)

	cert, err := h.load(c, c.Param("id"))
	if err != nil {
		return err
	}

	ok, err := authz.CanViewCertificate(h.DB, ident, cert)
	if err != nil {
		c.Logger().Errorf("certificate scope check: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
	}
	return c.JSON(http.StatusOK, cert)
}

func (h *CertificateHandler) Update(c echo.Context) error {
	ident, _ := authmw.IdentityFromContext(c)

	cert, err := h.load(c, c.Param("id"))
	if err != nil {
		return err
	}
	if !authz.CanMutateCertificate(ident, cert) {
		return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
	}
	if cert.Status == models.StatusSubmitted {
		return echo.NewHTTPError(http.StatusBadRequest, "certificate already submitted")
	}

	var req certificateUpdate
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Status != nil && *req.Status != models.StatusDraft && *req.Status != models.StatusSubmitted {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}

	if req.DealerName != nil {
		cert.DealerName = *req.DealerName
	}
	if req.DealerLicense != nil {
		cert.DealerLicense = *req.DealerLicense
	}
	if req.VehicleDetails != nil {
		cert.VehicleDetails = *req.VehicleDetails
	}
	if req.OwnerDetails != nil {
		cert.OwnerDetails = *req.OwnerDetails
	}
	if req.FitmentDetails != nil {
		cert.FitmentDetails = *req.FitmentDetails
	}
	submitted := false
	if req.Status != nil && *req.Status == models.StatusSubmitted {
		cert.Status = models.StatusSubmitted
		submitted = true
	}

	if err := h.DB.Save(cert).Error; err != nil {
		c.Logger().Errorf("certificate update: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, cert.ID, map[string]interface{}{
		"type":           "certificate_updated",
		"certificate_id": cert.ID,
		"status":         cert.Status,
	})
	if submitted {
		h.publish(c, cert.ID, map[string]interface{}{
			"type":           "certificate_submitted",
			"certificate_id": cert.ID,
			"certificate_no": cert.CertificateNo,
			"retailer_id":    cert.RetailerID,
		})
	}
	h.index(c, cert)

	return c.JSON(http.StatusOK, cert)
}

func (h *CertificateHandler) UploadImage(c echo.Context) error {
	ident, _ := authmw.IdentityFromContext(c)

	cert, err := h.load(c, c.Param("id"))
	if err != nil {
		return err
	}
	if !authz.CanMutateCertificate(ident, cert) {
		return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
	}

	imageType := c.QueryParam("image_type")
	if !models.ValidImageType(imageType) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid image type")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing image file")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing image file")
	}
	defer file.Close()
	contents, err := io.ReadAll(file)
	if err != nil {
		c.Logger().Errorf("image read: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// uploads are not status-gated; note when one lands on a finalized record
	if cert.Status == models.StatusSubmitted {
		logging.FromContext(c.Request().Context()).Warn("image attached to submitted certificate",
			"certificate_id", cert.ID, "image_type", imageType)
	}

	if cert.Images == nil {
		cert.Images = models.ImageSet{}
	}
	cert.Images[imageType] = base64.StdEncoding.EncodeToString(contents)

	if err := h.DB.Model(cert).Update("images", cert.Images).Error; err != nil {
		c.Logger().Errorf("image save: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, cert.ID, map[string]interface{}{
		"type":           "certificate_image_uploaded",
		"certificate_id": cert.ID,
		"image_type":     imageType,
	})
	h.index(c, cert)

	return c.JSON(http.StatusOK, echo.Map{
		"message":    "Image uploaded successfully",
		"image_type": imageType,
	})
}
