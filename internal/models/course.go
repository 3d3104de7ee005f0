package models

import "time"

// Course is a teaching unit owned by exactly one lecturer.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OwnedBy reports whether the lecturer owns the course.
func (c Course) OwnedBy(lecturerID string) bool {
	return lecturerID != "" && c.OwnerID == lecturerID
}

// CourseEnrollment links a student to a course.
type CourseEnrollment struct {
	CourseID   string    `db:"course_id" json:"course_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrolledStudent is an enrollment joined with the student's identity.
type EnrolledStudent struct {
	StudentID  string    `db:"student_id" json:"student_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}
