package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

// ErrSessionClosed is returned when a present record targets a session that is no longer active.
var ErrSessionClosed = errors.New("session is not active")

// AttendanceRecordRepository persists the attendance ledger.
type AttendanceRecordRepository struct {
	db *sqlx.DB
}

// NewAttendanceRecordRepository constructs the repository.
func NewAttendanceRecordRepository(db *sqlx.DB) *AttendanceRecordRepository {
	return &AttendanceRecordRepository{db: db}
}

// InsertPresent writes a present record in a single statement. The unique
// (session_id, student_id) index decides duplicates, reported as ErrDuplicate.
// The session row is share-locked so a concurrent completion is observed.
func (r *AttendanceRecordRepository) InsertPresent(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	const query = `INSERT INTO attendance_records (id, session_id, student_id, status, scan_time, created_at)
SELECT $1::uuid, s.id, $3::uuid, $4::text, $5::timestamptz, $6::timestamptz
FROM attendance_sessions s
WHERE s.id = $2 AND s.status = 'active'
FOR SHARE`
	res, err := r.db.ExecContext(ctx, query, record.ID, record.SessionID, record.StudentID, record.Status, record.ScanTime, record.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if isMalformedID(err) {
			return ErrSessionClosed
		}
		return fmt.Errorf("insert attendance record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert attendance record: %w", err)
	}
	if affected == 0 {
		return ErrSessionClosed
	}
	return nil
}

// ListBySession returns the ledger of one session with student names.
func (r *AttendanceRecordRepository) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error) {
	const query = `SELECT ar.id, ar.session_id, ar.student_id, ar.status, ar.scan_time, ar.created_at, u.full_name AS student_name
FROM attendance_records ar
JOIN users u ON u.id = ar.student_id
WHERE ar.session_id = $1
ORDER BY ar.status DESC, u.full_name`
	var records []models.AttendanceRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, sessionID); err != nil {
		if isMalformedID(err) {
			return []models.AttendanceRecordDetail{}, nil
		}
		return nil, fmt.Errorf("list session records: %w", err)
	}
	return records, nil
}

// ListByStudent returns a student's attendance history, newest session first.
func (r *AttendanceRecordRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentAttendanceRow, error) {
	const query = `SELECT ar.session_id, c.code AS course_code, c.name AS course_name, s.week, s.session_date, ar.status, ar.scan_time
FROM attendance_records ar
JOIN attendance_sessions s ON s.id = ar.session_id
JOIN courses c ON c.id = s.course_id
WHERE ar.student_id = $1
ORDER BY s.session_date DESC, s.start_time DESC`
	var rows []models.StudentAttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return rows, nil
}
