package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

// CourseRepository persists courses and their enrollments.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a course. A taken code yields ErrDuplicate.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO courses (id, name, code, owner_id, created_at) VALUES (:id, :name, :code, :owner_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// FindByID returns a course or sql.ErrNoRows.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, code, owner_id, created_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// ListByOwner returns the courses owned by a lecturer ordered by code.
func (r *CourseRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Course, error) {
	const query = `SELECT id, name, code, owner_id, created_at FROM courses WHERE owner_id = $1 ORDER BY code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, ownerID); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Enroll links a student to a course. A repeated enrollment yields ErrDuplicate.
func (r *CourseRepository) Enroll(ctx context.Context, enrollment *models.CourseEnrollment) error {
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO course_enrollments (course_id, student_id, enrolled_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, enrollment.CourseID, enrollment.StudentID, enrollment.EnrolledAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("enroll student: %w", err)
	}
	return nil
}

// ListEnrolled returns the students enrolled in a course ordered by name.
func (r *CourseRepository) ListEnrolled(ctx context.Context, courseID string) ([]models.EnrolledStudent, error) {
	const query = `SELECT ce.student_id, u.full_name, u.email, ce.enrolled_at
FROM course_enrollments ce
JOIN users u ON u.id = ce.student_id
WHERE ce.course_id = $1
ORDER BY u.full_name`
	var students []models.EnrolledStudent
	if err := r.db.SelectContext(ctx, &students, query, courseID); err != nil {
		if isMalformedID(err) {
			return []models.EnrolledStudent{}, nil
		}
		return nil, fmt.Errorf("list enrolled students: %w", err)
	}
	return students, nil
}
