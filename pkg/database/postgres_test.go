package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaDeclaresLedgerConstraints(t *testing.T) {
	ddl := Schema()
	for _, want := range []string{
		"attendance_sessions_course_week_date_key",
		"attendance_records_session_student_key",
		"ON DELETE CASCADE",
		"attendance_records_scan_time_check",
	} {
		assert.Contains(t, ddl, want)
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sqlxdb := sqlx.NewDb(db, "sqlmock")

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), sqlxdb))

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	err = Migrate(context.Background(), sqlxdb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply schema")
	require.NoError(t, mock.ExpectationsWereMet())
}
