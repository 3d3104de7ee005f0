package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
	"github.com/noah-isme/qr-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

// courseStore adds the write side of courses to the ledger fake.
type courseStore struct{ *memoryLedger }

func (c courseStore) Create(ctx context.Context, course *models.Course) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.courses {
		if existing.Code == course.Code {
			return repository.ErrDuplicate
		}
	}
	course.ID = c.nextID("course")
	c.courses[course.ID] = *course
	return nil
}

func (c courseStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Course, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Course
	for _, course := range c.courses {
		if course.OwnedBy(ownerID) {
			out = append(out, course)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (c courseStore) Enroll(ctx context.Context, enrollment *models.CourseEnrollment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.enrollments[enrollment.CourseID] {
		if id == enrollment.StudentID {
			return repository.ErrDuplicate
		}
	}
	c.enrollments[enrollment.CourseID] = append(c.enrollments[enrollment.CourseID], enrollment.StudentID)
	return nil
}

func (c courseStore) ListEnrolled(ctx context.Context, courseID string) ([]models.EnrolledStudent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.EnrolledStudent
	for _, id := range c.enrollments[courseID] {
		st := c.students[id]
		out = append(out, models.EnrolledStudent{StudentID: st.ID, FullName: st.FullName, Email: st.Email})
	}
	return out, nil
}

func newCourseFixture() (*memoryLedger, *CourseService) {
	ledger := newMemoryLedger()
	ledger.addStudent("stu-a", "Ada Lovelace")
	svc := NewCourseService(courseStore{ledger}, ledger, nil, nil, clock.NewMock(time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC)))
	return ledger, svc
}

func TestCourseCreateNormalisesCode(t *testing.T) {
	_, svc := newCourseFixture()
	course, err := svc.Create(context.Background(), "lect-1", CreateCourseRequest{Name: " Intro to CS ", Code: " cs101 "})
	require.NoError(t, err)
	assert.Equal(t, "CS101", course.Code)
	assert.Equal(t, "Intro to CS", course.Name)
	assert.Equal(t, "lect-1", course.OwnerID)

	_, err = svc.Create(context.Background(), "lect-2", CreateCourseRequest{Name: "Other", Code: "CS101"})
	requireCode(t, err, appErrors.ErrDuplicateCourse)

	_, err = svc.Create(context.Background(), "lect-1", CreateCourseRequest{Name: "Bad", Code: "1$"})
	requireCode(t, err, appErrors.ErrValidation)

	courses, err := svc.List(context.Background(), "lect-1")
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func TestCourseEnroll(t *testing.T) {
	_, svc := newCourseFixture()
	ctx := context.Background()
	course, err := svc.Create(ctx, "lect-1", CreateCourseRequest{Name: "Intro", Code: "CS101"})
	require.NoError(t, err)

	enrolled, err := svc.Enroll(ctx, course.ID, "lect-1", EnrollStudentRequest{StudentID: "stu-a"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", enrolled.FullName)

	_, err = svc.Enroll(ctx, course.ID, "lect-1", EnrollStudentRequest{StudentID: "stu-a"})
	requireCode(t, err, appErrors.ErrConflict)

	_, err = svc.Enroll(ctx, course.ID, "lect-1", EnrollStudentRequest{StudentID: "ghost"})
	requireCode(t, err, appErrors.ErrUnknownStudent)

	_, err = svc.Enroll(ctx, course.ID, "lect-2", EnrollStudentRequest{StudentID: "stu-a"})
	requireCode(t, err, appErrors.ErrNotOwner)

	roster, err := svc.ListEnrolled(ctx, course.ID, "lect-1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "stu-a", roster[0].StudentID)

	_, err = svc.ListEnrolled(ctx, "missing", "lect-1")
	requireCode(t, err, appErrors.ErrNotFound)
}
