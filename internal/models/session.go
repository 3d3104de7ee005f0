package models

import (
	"errors"
	"time"
)

// SessionStatus is the lifecycle state of an attendance session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
)

// ErrSessionNotActive is returned when a transition is attempted from a non-active state.
var ErrSessionNotActive = errors.New("session is not active")

// Valid returns true when the status is a supported value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is reachable from s. The only edge is active -> completed.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return s == SessionStatusActive && next == SessionStatusCompleted
}

// SessionDateLayout is the wire and storage format of a session date.
const SessionDateLayout = "2006-01-02"

// SessionTimeLayout is the wire format of a session start time.
const SessionTimeLayout = "15:04"

// AttendanceSession is one attendance-taking event for a course in a given week.
type AttendanceSession struct {
	ID          string        `db:"id" json:"id"`
	CourseID    string        `db:"course_id" json:"course_id"`
	LecturerID  string        `db:"lecturer_id" json:"lecturer_id"`
	Week        int           `db:"week" json:"week"`
	Date        time.Time     `db:"session_date" json:"date"`
	Time        string        `db:"start_time" json:"time"`
	Status      SessionStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	CompletedAt *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}

// NewAttendanceSession builds a session in its initial state.
func NewAttendanceSession(courseID, lecturerID string, week int, date time.Time, startTime string, now time.Time) AttendanceSession {
	return AttendanceSession{
		CourseID:   courseID,
		LecturerID: lecturerID,
		Week:       week,
		Date:       date,
		Time:       startTime,
		Status:     SessionStatusActive,
		CreatedAt:  now,
	}
}

// IsActive reports whether scans are accepted.
func (s AttendanceSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// OwnedBy reports whether the lecturer owns the session.
func (s AttendanceSession) OwnedBy(lecturerID string) bool {
	return lecturerID != "" && s.LecturerID == lecturerID
}

// Complete is the single transition into the terminal state.
func (s *AttendanceSession) Complete(at time.Time) error {
	if !s.Status.CanTransitionTo(SessionStatusCompleted) {
		return ErrSessionNotActive
	}
	s.Status = SessionStatusCompleted
	s.CompletedAt = &at
	return nil
}

// AttendanceSessionDetail enriches a session with course metadata.
type AttendanceSessionDetail struct {
	AttendanceSession
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseName   string `db:"course_name" json:"course_name"`
	PresentCount int    `db:"present_count" json:"present_count"`
	AbsentCount  int    `db:"absent_count" json:"absent_count"`
}

// AttendanceSessionFilter scopes listing queries.
type AttendanceSessionFilter struct {
	LecturerID string
	CourseID   string
	Week       *int
	Status     *SessionStatus
	Page       int
	PageSize   int
}
