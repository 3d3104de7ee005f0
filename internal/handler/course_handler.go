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

type courseService interface {
	Create(ctx context.Context, lecturerID string, req service.CreateCourseRequest) (*models.Course, error)
	List(ctx context.Context, lecturerID string) ([]models.Course, error)
	Enroll(ctx context.Context, courseID, lecturerID string, req service.EnrollStudentRequest) (*models.EnrolledStudent, error)
	ListEnrolled(ctx context.Context, courseID, lecturerID string) ([]models.EnrolledStudent, error)
}

// CourseHandler exposes lecturer course management.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(svc courseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// Create godoc
// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	lecturerID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.service.Create(c.Request.Context(), lecturerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, course.ID)
	response.Created(c, course)
}

// List godoc
// @Summary List the caller's courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	lecturerID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	courses, err := h.service.List(c.Request.Context(), lecturerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Enroll godoc
// @Summary Enroll a student
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.EnrollStudentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/students [post]
func (h *CourseHandler) Enroll(c *gin.Context) {
	lecturerID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}
	enrolled, err := h.service.Enroll(c.Request.Context(), c.Param("id"), lecturerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrolled)
}

// Students godoc
// @Summary List enrolled students
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students [get]
func (h *CourseHandler) Students(c *gin.Context) {
	lecturerID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	students, err := h.service.ListEnrolled(c.Request.Context(), c.Param("id"), lecturerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}
