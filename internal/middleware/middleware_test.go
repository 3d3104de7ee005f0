package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRoles(t *testing.T) {
	r := gin.New()
	lecturer := &models.JWTClaims{UserID: "lect-1", Role: models.RoleLecturer}
	r.GET("/sessions", JWT(stubValidator{claims: lecturer}), RequireRoles(models.RoleLecturer), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/me", JWT(stubValidator{claims: lecturer}), RequireRoles(models.RoleStudent), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/sessions", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/sessions", "bad").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/sessions", "good").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/me", "good").Code)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	var deadline time.Time
	var ok bool
	r.GET("/", RequestTimeout(time.Second), func(c *gin.Context) {
		deadline, ok = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})
	serve(r, http.MethodGet, "/", "")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}

func TestAuditRecordsResourceID(t *testing.T) {
	audit := &recordingAudit{}
	lecturer := &models.JWTClaims{UserID: "lect-1", Role: models.RoleLecturer}
	r := gin.New()
	r.Use(JWT(stubValidator{claims: lecturer}))
	r.POST("/sessions", Audit(audit, nil, models.AuditActionSessionCreate, "attendance_session"), func(c *gin.Context) {
		SetAuditResource(c, "sess-9")
		c.Status(http.StatusCreated)
	})
	r.DELETE("/sessions/:id", Audit(audit, nil, models.AuditActionSessionDelete, "attendance_session"), func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	r.POST("/sessions/:id/complete", Audit(audit, nil, models.AuditActionSessionComplete, "attendance_session"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodPost, "/sessions", "good")
	serve(r, http.MethodDelete, "/sessions/sess-1", "good")
	serve(r, http.MethodPost, "/sessions/sess-2/complete", "good")

	require.Len(t, audit.logs, 2)
	assert.Equal(t, "sess-9", *audit.logs[0].ResourceID)
	assert.Equal(t, "lect-1", *audit.logs[0].UserID)
	assert.Equal(t, models.AuditActionSessionComplete, audit.logs[1].Action)
	assert.Equal(t, "sess-2", *audit.logs[1].ResourceID)
}

func TestResponseMeta(t *testing.T) {
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta, empty map[string]interface{}
	r.GET("/stats", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
	})
	r.GET("/plain", func(c *gin.Context) {
		empty = ExtractMeta(c)
	})
	serve(r, http.MethodGet, "/stats", "")
	serve(r, http.MethodGet, "/plain", "")

	assert.Equal(t, true, meta[cacheHitMetaKey])
	assert.Contains(t, meta, processingMetaKey)
	assert.Nil(t, empty)
}
