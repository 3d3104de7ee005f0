package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

const sessionColumns = `id, course_id, lecturer_id, week, session_date, start_time, status, created_at, completed_at`

// backfillAbsentQuery writes an absent row for every enrolled student without a record.
// Rows that appear concurrently are skipped by the conflict clause.
const backfillAbsentQuery = `INSERT INTO attendance_records (session_id, student_id, status, scan_time, created_at)
SELECT $1::uuid, ce.student_id, 'absent', NULL, $3::timestamptz
FROM course_enrollments ce
WHERE ce.course_id = $2
AND NOT EXISTS (SELECT 1 FROM attendance_records ar WHERE ar.session_id = $1 AND ar.student_id = ce.student_id)
ON CONFLICT (session_id, student_id) DO NOTHING`

// SessionRepository persists attendance sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session. A second session for the same course, week and
// date yields ErrDuplicate.
func (r *SessionRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_sessions (id, course_id, lecturer_id, week, session_date, start_time, status, created_at)
VALUES (:id, :course_id, :lecturer_id, :week, :session_date, :start_time, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create attendance session: %w", err)
	}
	return nil
}

// FindByID returns a session or sql.ErrNoRows.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions WHERE id = $1`
	var session models.AttendanceSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if isNoRows(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find attendance session: %w", err)
	}
	return &session, nil
}

// List returns sessions with course metadata and ledger counts.
func (r *SessionRepository) List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.LecturerID != "" {
		where = append(where, fmt.Sprintf("s.lecturer_id = $%d", len(args)+1))
		args = append(args, filter.LecturerID)
	}
	if filter.CourseID != "" {
		where = append(where, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Week != nil {
		where = append(where, fmt.Sprintf("s.week = $%d", len(args)+1))
		args = append(args, *filter.Week)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT s.id, s.course_id, s.lecturer_id, s.week, s.session_date, s.start_time, s.status, s.created_at, s.completed_at,
c.code AS course_code, c.name AS course_name,
COUNT(ar.id) FILTER (WHERE ar.status = 'present') AS present_count,
COUNT(ar.id) FILTER (WHERE ar.status = 'absent') AS absent_count
FROM attendance_sessions s
JOIN courses c ON c.id = s.course_id
LEFT JOIN attendance_records ar ON ar.session_id = s.id
WHERE %s
GROUP BY s.id, c.code, c.name
ORDER BY s.session_date DESC, s.start_time DESC LIMIT %d OFFSET %d`, whereClause, size, offset)

	var sessions []models.AttendanceSessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		if isMalformedID(err) {
			return []models.AttendanceSessionDetail{}, 0, nil
		}
		return nil, 0, fmt.Errorf("list attendance sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM attendance_sessions s WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance sessions: %w", err)
	}
	return sessions, total, nil
}

// Complete locks the session row, back-fills absent records and moves the
// session to completed in one transaction. It returns the stored session and
// the number of absent rows written. Completing a completed session writes
// nothing and leaves completed_at untouched.
func (r *SessionRepository) Complete(ctx context.Context, id string, completedAt time.Time) (session *models.AttendanceSession, absentCount int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin complete session: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked models.AttendanceSession
	lockQuery := `SELECT ` + sessionColumns + ` FROM attendance_sessions WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &locked, lockQuery, id); err != nil {
		if isNoRows(err) {
			return nil, 0, sql.ErrNoRows
		}
		return nil, 0, fmt.Errorf("lock attendance session: %w", err)
	}

	res, err := tx.ExecContext(ctx, backfillAbsentQuery, locked.ID, locked.CourseID, completedAt)
	if err != nil {
		return nil, 0, fmt.Errorf("backfill absent records: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, 0, fmt.Errorf("backfill absent records: %w", err)
	}

	if locked.IsActive() {
		if err = locked.Complete(completedAt); err != nil {
			return nil, 0, err
		}
		const update = `UPDATE attendance_sessions SET status = $2, completed_at = $3 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, update, locked.ID, locked.Status, completedAt); err != nil {
			return nil, 0, fmt.Errorf("mark session completed: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit complete session: %w", err)
	}
	return &locked, int(inserted), nil
}

// Delete removes a session. Its records are removed by the foreign key cascade.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_sessions WHERE id = $1`, id)
	if err != nil {
		if isMalformedID(err) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("delete attendance session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attendance session: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
