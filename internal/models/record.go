package models

import "time"

// RecordStatus is a student's attendance outcome for a session.
type RecordStatus string

const (
	RecordStatusPresent RecordStatus = "present"
	RecordStatusAbsent  RecordStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s RecordStatus) Valid() bool {
	return s == RecordStatusPresent || s == RecordStatusAbsent
}

// AttendanceRecord is the single outcome of one student in one session.
// ScanTime is set iff Status is present.
type AttendanceRecord struct {
	ID        string       `db:"id" json:"id"`
	SessionID string       `db:"session_id" json:"session_id"`
	StudentID string       `db:"student_id" json:"student_id"`
	Status    RecordStatus `db:"status" json:"status"`
	ScanTime  *time.Time   `db:"scan_time" json:"scan_time"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// NewPresentRecord builds a record for a successful scan.
func NewPresentRecord(sessionID, studentID string, scannedAt time.Time) AttendanceRecord {
	return AttendanceRecord{
		SessionID: sessionID,
		StudentID: studentID,
		Status:    RecordStatusPresent,
		ScanTime:  &scannedAt,
		CreatedAt: scannedAt,
	}
}

// NewAbsentRecord builds a back-filled record.
func NewAbsentRecord(sessionID, studentID string, now time.Time) AttendanceRecord {
	return AttendanceRecord{
		SessionID: sessionID,
		StudentID: studentID,
		Status:    RecordStatusAbsent,
		CreatedAt: now,
	}
}

// AttendanceRecordDetail extends a record with the student's display name.
type AttendanceRecordDetail struct {
	AttendanceRecord
	StudentName string `db:"student_name" json:"student_name"`
}

// StudentAttendanceRow is one entry of a student's own attendance history.
type StudentAttendanceRow struct {
	SessionID  string       `db:"session_id" json:"session_id"`
	CourseCode string       `db:"course_code" json:"course_code"`
	CourseName string       `db:"course_name" json:"course_name"`
	Week       int          `db:"week" json:"week"`
	Date       time.Time    `db:"session_date" json:"date"`
	Status     RecordStatus `db:"status" json:"status"`
	ScanTime   *time.Time   `db:"scan_time" json:"scan_time"`
}
