package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qr-attendance-api/internal/middleware"
	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
	"github.com/noah-isme/qr-attendance-api/pkg/response"
)

type sessionService interface {
	Create(ctx context.Context, lecturerID string, req service.CreateSessionRequest) (*models.AttendanceSession, error)
	RecordScan(ctx context.Context, sessionID, lecturerID string, req service.RecordScanRequest) (*service.ScanResult, error)
	Complete(ctx context.Context, sessionID, lecturerID string) (*service.CompleteResult, error)
	Delete(ctx context.Context, sessionID, lecturerID string) error
	Get(ctx context.Context, sessionID, lecturerID string) (*service.SessionDetail, error)
	List(ctx context.Context, lecturerID string, req service.SessionListRequest) ([]models.AttendanceSessionDetail, *models.Pagination, error)
	StudentHistory(ctx context.Context, studentID string) ([]models.StudentAttendanceRow, error)
}

// SessionHandler exposes the attendance session lifecycle.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc sessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Create godoc
// @Summary Open an attendance session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	lecturerID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.service.Create(c.Request.Context(), lecturerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, session.ID)
	response.Created(c, session)
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param courseId query string false "Course filter"
// @Param week query int false "Week filter"
// @Param status query string false "active or completed"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	lecturerID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	week, err := optionalIntQuery(c, "week")
	if err != nil {
		response.Error(c, err)
		return
	}
	req := service.SessionListRequest{
		CourseID: c.Query("courseId"),
		Week:     week,
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "pageSize", 20),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.SessionStatus(raw)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be active or completed"))
			return
		}
		req.Status = &status
	}
	sessions, pagination, err := h.service.List(c.Request.Context(), lecturerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Get a session with its records
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	lecturerID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), lecturerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Scan godoc
// @Summary Record a scanned QR payload
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.RecordScanRequest true "Scanned text"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions/{id}/scans [post]
func (h *SessionHandler) Scan(c *gin.Context) {
	lecturerID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.RecordScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrMalformedPayload.Code, appErrors.ErrMalformedPayload.Status, "scan body must be {\"payload\": string}"))
		return
	}
	result, err := h.service.RecordScan(c.Request.Context(), c.Param("id"), lecturerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Complete godoc
// @Summary Complete a session
// @Description Back-fills an absent record for every enrolled student without one and closes the session. Safe to repeat.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/complete [post]
func (h *SessionHandler) Complete(c *gin.Context) {
	lecturerID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Complete(c.Request.Context(), c.Param("id"), lecturerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a session and its records
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	lecturerID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), lecturerID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MyAttendance godoc
// @Summary List the caller's attendance records
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/attendance [get]
func (h *SessionHandler) MyAttendance(c *gin.Context) {
	studentID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.service.StudentHistory(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
