package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vcms-io/vcms/internal/handlers"
	"github.com/vcms-io/vcms/internal/hash"
	authmw "github.com/vcms-io/vcms/internal/middleware/auth"
	"github.com/vcms-io/vcms/internal/models"
	"github.com/vcms-io/vcms/internal/seed"
	httpserver "github.com/vcms-io/vcms/internal/transport/http"
)

var testSecret = []byte("test-jwt-secret")

type testEnv struct {
	t  *testing.T
	e  *echo.Echo
	db *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Certificate{}))

	e := echo.New()
	tokenMW := &authmw.TokenMiddleware{DB: db, JWTSecret: testSecret}
	deps := httpserver.Deps{
		DB:      db,
		TokenMW: tokenMW,
		AuthHandler: &handlers.AuthHandler{
			DB: db, JWTSecret: testSecret, AccessTTL: 30 * time.Minute,
		},
		UserHandler:        &handlers.UserHandler{DB: db},
		CertificateHandler: &handlers.CertificateHandler{DB: db},
		DashboardHandler:   &handlers.DashboardHandler{DB: db},
		SearchHandler:      &handlers.SearchHandler{DB: db},
		HealthHandler:      &handlers.HealthHandler{DB: db},
	}
	httpserver.Register(e, &deps)

	return &testEnv{t: t, e: e, db: db}
}

func (env *testEnv) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	env.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) upload(path, token, fieldName string, payload []byte) *httptest.ResponseRecorder {
	env.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(fieldName, "photo.jpg")
	require.NoError(env.t, err)
	_, err = io.Copy(fw, bytes.NewReader(payload))
	require.NoError(env.t, err)
	require.NoError(env.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func (env *testEnv) createUser(username, password, role, parentID string) models.User {
	env.t.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(env.t, err)
	u := models.User{Username: username, PasswordHash: pwHash, Role: role, ParentID: parentID}
	require.NoError(env.t, env.db.Create(&u).Error)
	return u
}

func (env *testEnv) login(username, password string) string {
	env.t.Helper()

	rec := env.request(http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(env.t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(env.t, rec, &resp)
	require.NotEmpty(env.t, resp.AccessToken)
	return resp.AccessToken
}

func (env *testEnv) seedAdmin() string {
	env.t.Helper()
	require.NoError(env.t, seed.EnsureAdmin(env.db, slog.Default()))
	return env.login(seed.DefaultAdminUsername, seed.DefaultAdminPassword)
}

func sampleCertificate() map[string]interface{} {
	return map[string]interface{}{
		"dealer_name":    "Highway Motors",
		"dealer_license": "DL-4417",
		"vehicle_details": map[string]interface{}{
			"registration_no":   "KA01AB1234",
			"chassis_no":        "CHS998877",
			"vehicle_make":      "Tata",
			"vehicle_model":     "LPT 1613",
			"registration_year": 2021,
			"engine_no":         "ENG445566",
		},
		"owner_details": map[string]interface{}{
			"owner_name":     "Ravi Kumar",
			"contact_number": "9900112233",
		},
		"fitment_details": map[string]interface{}{
			"red_20mm":    12.5,
			"white_20mm":  7.25,
			"yellow_20mm": 0.0,
			"red_50mm":    3.75,
			"white_50mm":  0.0,
			"yellow_50mm": 1.5,
			"c3_plates":   2,
			"c4_plates":   1,
		},
	}
}
