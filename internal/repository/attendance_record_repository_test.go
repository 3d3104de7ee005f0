package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

func TestInsertPresent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRecordRepository(db)

	scanned := time.Date(2024, 9, 16, 8, 5, 0, 0, time.UTC)
	record := models.NewPresentRecord("sess-1", "stu-1", scanned)
	mock.ExpectExec("INSERT INTO attendance_records").
		WithArgs(sqlmock.AnyArg(), "sess-1", "stu-1", "present", scanned, scanned).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.InsertPresent(context.Background(), &record))
	assert.NotEmpty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPresentUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRecordRepository(db)

	record := models.NewPresentRecord("sess-1", "stu-1", time.Now().UTC())
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "attendance_records_session_student_key"})

	require.ErrorIs(t, repo.InsertPresent(context.Background(), &record), ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPresentIntoClosedSession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRecordRepository(db)

	record := models.NewPresentRecord("sess-1", "stu-1", time.Now().UTC())
	mock.ExpectExec("INSERT INTO attendance_records").WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.InsertPresent(context.Background(), &record), ErrSessionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBySession(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRecordRepository(db)

	scanned := time.Date(2024, 9, 16, 8, 5, 0, 0, time.UTC)
	mock.ExpectQuery("FROM attendance_records ar").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "student_id", "status", "scan_time", "created_at", "student_name"}).
			AddRow("r1", "sess-1", "stu-1", "present", scanned, scanned, "Ada Lovelace").
			AddRow("r2", "sess-1", "stu-2", "absent", nil, scanned, "Alan Turing"))

	records, err := repo.ListBySession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.RecordStatusPresent, records[0].Status)
	assert.NotNil(t, records[0].ScanTime)
	assert.Nil(t, records[1].ScanTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRecordRepository(db)

	date := time.Date(2024, 9, 16, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("WHERE ar.student_id = \\$1").
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "course_code", "course_name", "week", "session_date", "status", "scan_time"}).
			AddRow("sess-1", "CS101", "Intro", 3, date, "absent", nil))

	rows, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CS101", rows[0].CourseCode)
	assert.Equal(t, models.RecordStatusAbsent, rows[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
