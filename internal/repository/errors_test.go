package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

func malformedUUID(value string) error {
	return &pq.Error{Code: "22P02", Message: fmt.Sprintf("invalid input syntax for type uuid: %q", value)}
}

func TestIsUniqueViolationRequiresSQLState(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(errors.New("duplicate key value violates unique constraint")))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "22P02"}))
	assert.False(t, isUniqueViolation(nil))
}

func TestFindStudentWithMalformedID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("FROM users WHERE id = \\$1 AND role").
		WithArgs("S123", string(models.RoleStudent)).
		WillReturnError(malformedUUID("S123"))

	student, err := repo.FindStudent(context.Background(), "S123")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.Nil(t, student)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionLookupsWithMalformedID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("FROM attendance_sessions WHERE id = \\$1").
		WithArgs("foo").
		WillReturnError(malformedUUID("foo"))
	_, err := repo.FindByID(ctx, "foo")
	require.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("foo").
		WillReturnError(malformedUUID("foo"))
	mock.ExpectRollback()
	_, _, err = repo.Complete(ctx, "foo", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectExec("DELETE FROM attendance_sessions").
		WithArgs("foo").
		WillReturnError(malformedUUID("foo"))
	require.ErrorIs(t, repo.Delete(ctx, "foo"), sql.ErrNoRows)

	mock.ExpectQuery("FROM attendance_sessions s").
		WillReturnError(malformedUUID("cs101"))
	sessions, total, err := repo.List(ctx, models.AttendanceSessionFilter{LecturerID: "3f1c2a4e-8f0b-4e7a-9d55-1f3e2b6c7a10", CourseID: "cs101"})
	require.NoError(t, err)
	assert.Empty(t, sessions)
	assert.Zero(t, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseLookupsWithMalformedID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("FROM courses WHERE id = \\$1").
		WithArgs("cs101").
		WillReturnError(malformedUUID("cs101"))
	_, err := repo.FindByID(context.Background(), "cs101")
	require.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectQuery("FROM course_enrollments ce").
		WithArgs("cs101").
		WillReturnError(malformedUUID("cs101"))
	students, err := repo.ListEnrolled(context.Background(), "cs101")
	require.NoError(t, err)
	assert.Empty(t, students)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsRowsWithMalformedCourseID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStatsRepository(db)

	mock.ExpectQuery("FROM attendance_records ar").
		WillReturnError(malformedUUID("cs101"))

	rows, err := repo.Rows(context.Background(), models.AttendanceStatsFilter{LecturerID: "3f1c2a4e-8f0b-4e7a-9d55-1f3e2b6c7a10", CourseID: "cs101"})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPresentWithMalformedSessionID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRecordRepository(db)

	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnError(malformedUUID("foo"))

	record := models.NewPresentRecord("foo", "3f1c2a4e-8f0b-4e7a-9d55-1f3e2b6c7a10", time.Now())
	err := repo.InsertPresent(context.Background(), &record)
	require.ErrorIs(t, err, ErrSessionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
