package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

// StatsRepository reads ledger rows for aggregation.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Rows returns every record of the lecturer's sessions matching the filter.
func (r *StatsRepository) Rows(ctx context.Context, filter models.AttendanceStatsFilter) ([]models.AttendanceStatsRow, error) {
	where := []string{fmt.Sprintf("s.lecturer_id = $%d", 1)}
	args := []interface{}{filter.LecturerID}
	if filter.CourseID != "" {
		where = append(where, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Week != nil {
		where = append(where, fmt.Sprintf("s.week = $%d", len(args)+1))
		args = append(args, *filter.Week)
	}

	query := fmt.Sprintf(`SELECT ar.student_id, u.full_name AS student_name, ar.status
FROM attendance_records ar
JOIN attendance_sessions s ON s.id = ar.session_id
JOIN users u ON u.id = ar.student_id
WHERE %s
ORDER BY u.full_name, ar.student_id`, strings.Join(where, " AND "))

	var rows []models.AttendanceStatsRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if isMalformedID(err) {
			return []models.AttendanceStatsRow{}, nil
		}
		return nil, fmt.Errorf("load attendance stats rows: %w", err)
	}
	return rows, nil
}
