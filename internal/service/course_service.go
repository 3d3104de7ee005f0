package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
	"github.com/noah-isme/qr-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type courseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Course, error)
	Enroll(ctx context.Context, enrollment *models.CourseEnrollment) error
	ListEnrolled(ctx context.Context, courseID string) ([]models.EnrolledStudent, error)
}

// CourseService manages lecturer-owned courses and enrollments.
type CourseService struct {
	repo      courseRepository
	students  studentLookup
	validator *validator.Validate
	logger    *zap.Logger
	clock     clock.Clock
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, students studentLookup, validate *validator.Validate, logger *zap.Logger, c clock.Clock) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = clock.System{}
	}
	registerAttendanceValidations(validate)
	return &CourseService{repo: repo, students: students, validator: validate, logger: logger, clock: c}
}

// CreateCourseRequest describes a new course.
type CreateCourseRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Code string `json:"code" validate:"required,course_code"`
}

// EnrollStudentRequest enrolls an existing student account.
type EnrollStudentRequest struct {
	StudentID string `json:"studentId" validate:"required"`
}

// Create stores a course owned by the lecturer.
func (s *CourseService) Create(ctx context.Context, lecturerID string, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Name:      strings.TrimSpace(req.Name),
		Code:      normalizeCourseCode(req.Code),
		OwnerID:   lecturerID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateCourse, fmt.Sprintf("course code %s is already in use", course.Code))
		}
		return nil, appErrors.FromStore(err, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// List returns the lecturer's courses.
func (s *CourseService) List(ctx context.Context, lecturerID string) ([]models.Course, error) {
	courses, err := s.repo.ListByOwner(ctx, lecturerID)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to list courses")
	}
	return courses, nil
}

// Enroll adds a student to a course owned by the lecturer.
func (s *CourseService) Enroll(ctx context.Context, courseID, lecturerID string, req EnrollStudentRequest) (*models.EnrolledStudent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	course, err := s.ownedCourse(ctx, courseID, lecturerID)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindStudent(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownStudent, fmt.Sprintf("student %s not found", req.StudentID))
		}
		return nil, appErrors.FromStore(err, "failed to resolve student")
	}
	enrollment := &models.CourseEnrollment{CourseID: course.ID, StudentID: student.ID, EnrolledAt: s.clock.Now()}
	if err := s.repo.Enroll(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s is already enrolled in %s", student.FullName, course.Code))
		}
		return nil, appErrors.FromStore(err, "failed to enroll student")
	}
	return &models.EnrolledStudent{
		StudentID:  student.ID,
		FullName:   student.FullName,
		Email:      student.Email,
		EnrolledAt: enrollment.EnrolledAt,
	}, nil
}

// ListEnrolled returns the roster of a course owned by the lecturer.
func (s *CourseService) ListEnrolled(ctx context.Context, courseID, lecturerID string) ([]models.EnrolledStudent, error) {
	if _, err := s.ownedCourse(ctx, courseID, lecturerID); err != nil {
		return nil, err
	}
	students, err := s.repo.ListEnrolled(ctx, courseID)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to list enrolled students")
	}
	return students, nil
}

func (s *CourseService) ownedCourse(ctx context.Context, courseID, lecturerID string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.FromStore(err, "failed to load course")
	}
	if !course.OwnedBy(lecturerID) {
		return nil, appErrors.Clone(appErrors.ErrNotOwner, "course belongs to another lecturer")
	}
	return course, nil
}
