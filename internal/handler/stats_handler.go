package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qr-attendance-api/internal/middleware"
	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
	"github.com/noah-isme/qr-attendance-api/pkg/export"
	"github.com/noah-isme/qr-attendance-api/pkg/response"
)

type statsService interface {
	ComputeCached(ctx context.Context, filter models.AttendanceStatsFilter) (*models.AttendanceStats, bool, error)
	Export(ctx context.Context, filter models.AttendanceStatsFilter, format export.Format) (*service.StatsExport, error)
}

// StatsHandler serves attendance statistics.
type StatsHandler struct {
	service statsService
}

// NewStatsHandler constructs the handler.
func NewStatsHandler(svc statsService) *StatsHandler {
	return &StatsHandler{service: svc}
}

// Get godoc
// @Summary Attendance statistics
// @Tags Statistics
// @Produce json
// @Param courseId query string false "Course filter"
// @Param week query int false "Week filter"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /statistics [get]
func (h *StatsHandler) Get(c *gin.Context) {
	filter, err := statsFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, hit, err := h.service.ComputeCached(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export attendance statistics
// @Tags Statistics
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param courseId query string false "Course filter"
// @Param week query int false "Week filter"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /statistics/export [get]
func (h *StatsHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf"))
		return
	}
	filter, err := statsFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.service.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Binary(c, out.ContentType, out.Filename, out.Data)
}

func statsFilter(c *gin.Context) (models.AttendanceStatsFilter, error) {
	lecturerID, err := callerID(c)
	if err != nil {
		return models.AttendanceStatsFilter{}, err
	}
	week, err := optionalIntQuery(c, "week")
	if err != nil {
		return models.AttendanceStatsFilter{}, err
	}
	return models.AttendanceStatsFilter{
		LecturerID: lecturerID,
		CourseID:   c.Query("courseId"),
		Week:       week,
	}, nil
}
