package models

// AttendanceStatsFilter scopes statistics to a lecturer's sessions.
type AttendanceStatsFilter struct {
	LecturerID string
	CourseID   string
	Week       *int
}

// AttendanceStatsRow is a raw ledger row used for aggregation.
type AttendanceStatsRow struct {
	StudentID   string       `db:"student_id"`
	StudentName string       `db:"student_name"`
	Status      RecordStatus `db:"status"`
}

// StatsStudent is a list entry in the statistics payload.
type StatsStudent struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
}

// AttendanceStats summarises present/absent outcomes.
type AttendanceStats struct {
	Total        int            `json:"total"`
	PresentCount int            `json:"present_count"`
	AbsentCount  int            `json:"absent_count"`
	Percentage   int            `json:"percentage"`
	PresentList  []StatsStudent `json:"present_list"`
	AbsentList   []StatsStudent `json:"absent_list"`
}
