package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
)

type recordKey struct {
	session string
	student string
}

// memoryLedger mirrors the relational constraints in memory: unique
// (course, week, date) sessions, unique (session, student) records and the
// record cascade on session delete.
type memoryLedger struct {
	mu          sync.Mutex
	seq         int
	courses     map[string]models.Course
	students    map[string]models.StudentIdentity
	enrollments map[string][]string
	sessions    map[string]models.AttendanceSession
	records     map[recordKey]models.AttendanceRecord

	findErr error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		courses:     map[string]models.Course{},
		students:    map[string]models.StudentIdentity{},
		enrollments: map[string][]string{},
		sessions:    map[string]models.AttendanceSession{},
		records:     map[recordKey]models.AttendanceRecord{},
	}
}

func (m *memoryLedger) addCourse(id, code, owner string) {
	m.courses[id] = models.Course{ID: id, Name: code, Code: code, OwnerID: owner}
}

func (m *memoryLedger) addStudent(id, name string, courseIDs ...string) {
	m.students[id] = models.StudentIdentity{ID: id, FullName: name, Email: id + "@example.com"}
	for _, c := range courseIDs {
		m.enrollments[c] = append(m.enrollments[c], id)
	}
}

func (m *memoryLedger) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryLedger) recordCount(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.records {
		if k.session == sessionID {
			n++
		}
	}
	return n
}

func (m *memoryLedger) FindByID(ctx context.Context, id string) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (m *memoryLedger) FindStudent(ctx context.Context, id string) (*models.StudentIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

// sessionStore exposes the session half of the ledger; FindByID collides with courses.
type sessionStore struct{ *memoryLedger }

func (s sessionStore) Create(ctx context.Context, session *models.AttendanceSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.CourseID == session.CourseID && existing.Week == session.Week && existing.Date.Equal(session.Date) {
			return repository.ErrDuplicate
		}
	}
	if session.ID == "" {
		session.ID = s.nextID("sess")
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s sessionStore) FindByID(ctx context.Context, id string) (*models.AttendanceSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &session, nil
}

func (s sessionStore) List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AttendanceSessionDetail
	for _, session := range s.sessions {
		if filter.LecturerID != "" && session.LecturerID != filter.LecturerID {
			continue
		}
		if filter.CourseID != "" && session.CourseID != filter.CourseID {
			continue
		}
		out = append(out, models.AttendanceSessionDetail{AttendanceSession: session, CourseCode: s.courses[session.CourseID].Code})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s sessionStore) Complete(ctx context.Context, id string, completedAt time.Time) (*models.AttendanceSession, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, 0, sql.ErrNoRows
	}
	inserted := 0
	for _, studentID := range s.enrollments[session.CourseID] {
		key := recordKey{session: id, student: studentID}
		if _, exists := s.records[key]; exists {
			continue
		}
		rec := models.NewAbsentRecord(id, studentID, completedAt)
		rec.ID = s.nextID("rec")
		s.records[key] = rec
		inserted++
	}
	if session.IsActive() {
		if err := session.Complete(completedAt); err != nil {
			return nil, 0, err
		}
		s.sessions[id] = session
	}
	return &session, inserted, nil
}

func (s sessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.sessions, id)
	for k := range s.records {
		if k.session == id {
			delete(s.records, k)
		}
	}
	return nil
}

func (m *memoryLedger) InsertPresent(ctx context.Context, record *models.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[record.SessionID]
	if !ok || !session.IsActive() {
		return repository.ErrSessionClosed
	}
	key := recordKey{session: record.SessionID, student: record.StudentID}
	if _, exists := m.records[key]; exists {
		return repository.ErrDuplicate
	}
	record.ID = m.nextID("rec")
	m.records[key] = *record
	return nil
}

func (m *memoryLedger) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AttendanceRecordDetail
	for k, rec := range m.records {
		if k.session == sessionID {
			out = append(out, models.AttendanceRecordDetail{AttendanceRecord: rec, StudentName: m.students[k.student].FullName})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *memoryLedger) ListByStudent(ctx context.Context, studentID string) ([]models.StudentAttendanceRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StudentAttendanceRow
	for k, rec := range m.records {
		if k.student != studentID {
			continue
		}
		session := m.sessions[k.session]
		out = append(out, models.StudentAttendanceRow{
			SessionID:  session.ID,
			CourseCode: m.courses[session.CourseID].Code,
			Week:       session.Week,
			Date:       session.Date,
			Status:     rec.Status,
			ScanTime:   rec.ScanTime,
		})
	}
	return out, nil
}

func (m *memoryLedger) Rows(ctx context.Context, filter models.AttendanceStatsFilter) ([]models.AttendanceStatsRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AttendanceStatsRow
	for k, rec := range m.records {
		session := m.sessions[k.session]
		if session.LecturerID != filter.LecturerID {
			continue
		}
		if filter.CourseID != "" && session.CourseID != filter.CourseID {
			continue
		}
		if filter.Week != nil && session.Week != *filter.Week {
			continue
		}
		out = append(out, models.AttendanceStatsRow{StudentID: k.student, StudentName: m.students[k.student].FullName, Status: rec.Status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}
