package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/middleware"
	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type sessionServiceMock struct {
	createResp  *models.AttendanceSession
	scanResp    *service.ScanResult
	scanErr     error
	completeErr error
	deleteErr   error
	listReq     service.SessionListRequest
	lastSession string
	lastCaller  string
	lastPayload string
}

func (m *sessionServiceMock) Create(ctx context.Context, lecturerID string, req service.CreateSessionRequest) (*models.AttendanceSession, error) {
	m.lastCaller = lecturerID
	return m.createResp, nil
}

func (m *sessionServiceMock) RecordScan(ctx context.Context, sessionID, lecturerID string, req service.RecordScanRequest) (*service.ScanResult, error) {
	m.lastSession, m.lastCaller, m.lastPayload = sessionID, lecturerID, req.Payload
	return m.scanResp, m.scanErr
}

func (m *sessionServiceMock) Complete(ctx context.Context, sessionID, lecturerID string) (*service.CompleteResult, error) {
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	return &service.CompleteResult{SessionID: sessionID, Status: models.SessionStatusCompleted, AbsentCount: 2}, nil
}

func (m *sessionServiceMock) Delete(ctx context.Context, sessionID, lecturerID string) error {
	return m.deleteErr
}

func (m *sessionServiceMock) Get(ctx context.Context, sessionID, lecturerID string) (*service.SessionDetail, error) {
	return &service.SessionDetail{}, nil
}

func (m *sessionServiceMock) List(ctx context.Context, lecturerID string, req service.SessionListRequest) ([]models.AttendanceSessionDetail, *models.Pagination, error) {
	m.listReq = req
	return []models.AttendanceSessionDetail{}, &models.Pagination{Page: req.Page, PageSize: req.PageSize}, nil
}

func (m *sessionServiceMock) StudentHistory(ctx context.Context, studentID string) ([]models.StudentAttendanceRow, error) {
	m.lastCaller = studentID
	return []models.StudentAttendanceRow{}, nil
}

func newTestContext(method, target string, body []byte, userID string, role models.UserRole) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if userID != "" {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
	}
	return c, w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestSessionHandlerScanAccepted(t *testing.T) {
	mockSvc := &sessionServiceMock{scanResp: &service.ScanResult{SessionID: "sess-1", StudentID: "stu-a", StudentName: "Ada", ScanTime: time.Now()}}
	h := NewSessionHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/sessions/sess-1/scans", []byte(`{"payload":"{\"studentId\":\"stu-a\"}"}`), "lect-1", models.RoleLecturer)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	h.Scan(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sess-1", mockSvc.lastSession)
	assert.Equal(t, "lect-1", mockSvc.lastCaller)
	assert.Equal(t, `{"studentId":"stu-a"}`, mockSvc.lastPayload)
}

func TestSessionHandlerScanErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{appErrors.ErrDuplicateScan, http.StatusConflict},
		{appErrors.ErrStalePayload, http.StatusUnprocessableEntity},
		{appErrors.ErrFuturePayload, http.StatusUnprocessableEntity},
		{appErrors.ErrMalformedPayload, http.StatusBadRequest},
		{appErrors.ErrNotOwner, http.StatusForbidden},
		{appErrors.ErrSessionNotActive, http.StatusConflict},
		{appErrors.ErrUnknownStudent, http.StatusNotFound},
		{appErrors.FromStore(context.DeadlineExceeded, "x"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(appErrors.FromError(tc.err).Code, func(t *testing.T) {
			h := NewSessionHandler(&sessionServiceMock{scanErr: tc.err})
			c, w := newTestContext(http.MethodPost, "/sessions/sess-1/scans", []byte(`{"payload":"x"}`), "lect-1", models.RoleLecturer)
			c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
			h.Scan(c)

			require.Equal(t, tc.status, w.Code)
			assert.Equal(t, appErrors.FromError(tc.err).Code, errorCode(t, w))
			if tc.status == http.StatusServiceUnavailable {
				assert.Equal(t, "2", w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestSessionHandlerScanRejectsNonJSONBody(t *testing.T) {
	h := NewSessionHandler(&sessionServiceMock{})
	c, w := newTestContext(http.MethodPost, "/sessions/sess-1/scans", []byte(`not json`), "lect-1", models.RoleLecturer)
	h.Scan(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrMalformedPayload.Code, errorCode(t, w))
}

func TestSessionHandlerCreateSetsAuditResource(t *testing.T) {
	h := NewSessionHandler(&sessionServiceMock{createResp: &models.AttendanceSession{ID: "sess-7"}})
	c, w := newTestContext(http.MethodPost, "/sessions", []byte(`{"courseId":"c1","week":3,"date":"2024-09-16","time":"08:00"}`), "lect-1", models.RoleLecturer)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	id, ok := c.Get(middleware.AuditResourceIDKey)
	require.True(t, ok)
	assert.Equal(t, "sess-7", id)
}

func TestSessionHandlerCompleteAndDelete(t *testing.T) {
	h := NewSessionHandler(&sessionServiceMock{})
	c, w := newTestContext(http.MethodPost, "/sessions/sess-1/complete", nil, "lect-1", models.RoleLecturer)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	h.Complete(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"absentCount":2`)

	h = NewSessionHandler(&sessionServiceMock{deleteErr: appErrors.ErrNotFound})
	c, w = newTestContext(http.MethodDelete, "/sessions/missing", nil, "lect-1", models.RoleLecturer)
	h.Delete(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandlerListParsesQuery(t *testing.T) {
	mockSvc := &sessionServiceMock{}
	h := NewSessionHandler(mockSvc)
	c, w := newTestContext(http.MethodGet, "/sessions?courseId=c1&week=3&status=completed&page=2", nil, "lect-1", models.RoleLecturer)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", mockSvc.listReq.CourseID)
	require.NotNil(t, mockSvc.listReq.Week)
	assert.Equal(t, 3, *mockSvc.listReq.Week)
	assert.Equal(t, models.SessionStatusCompleted, *mockSvc.listReq.Status)
	assert.Equal(t, 2, mockSvc.listReq.Page)

	c, w = newTestContext(http.MethodGet, "/sessions?status=open", nil, "lect-1", models.RoleLecturer)
	h.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerRequiresCaller(t *testing.T) {
	h := NewSessionHandler(&sessionServiceMock{})
	c, w := newTestContext(http.MethodGet, "/me/attendance", nil, "", "")
	h.MyAttendance(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
