package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/repository"
	"github.com/noah-isme/qr-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
	"github.com/noah-isme/qr-attendance-api/pkg/qrpayload"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.AttendanceSession) error
	FindByID(ctx context.Context, id string) (*models.AttendanceSession, error)
	List(ctx context.Context, filter models.AttendanceSessionFilter) ([]models.AttendanceSessionDetail, int, error)
	Complete(ctx context.Context, id string, completedAt time.Time) (*models.AttendanceSession, int, error)
	Delete(ctx context.Context, id string) error
}

type attendanceRecordRepository interface {
	InsertPresent(ctx context.Context, record *models.AttendanceRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRecordDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentAttendanceRow, error)
}

type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type studentLookup interface {
	FindStudent(ctx context.Context, id string) (*models.StudentIdentity, error)
}

type statsInvalidator interface {
	InvalidateStats(ctx context.Context, lecturerID string)
}

// SessionServiceConfig carries the optional collaborators of SessionService.
type SessionServiceConfig struct {
	Clock       clock.Clock
	Metrics     *MetricsService
	Invalidator statsInvalidator
}

// SessionService owns the attendance session lifecycle and mediates scans.
type SessionService struct {
	sessions    sessionRepository
	records     attendanceRecordRepository
	courses     courseLookup
	students    studentLookup
	scans       *qrpayload.Validator
	validator   *validator.Validate
	logger      *zap.Logger
	clock       clock.Clock
	metrics     *MetricsService
	invalidator statsInvalidator
}

// NewSessionService constructs the session service.
func NewSessionService(sessions sessionRepository, records attendanceRecordRepository, courses courseLookup, students studentLookup, scans *qrpayload.Validator, validate *validator.Validate, logger *zap.Logger, cfg SessionServiceConfig) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if scans == nil {
		scans = qrpayload.NewValidator(qrpayload.DefaultFreshnessWindow, cfg.Clock)
	}
	registerAttendanceValidations(validate)
	return &SessionService{
		sessions:    sessions,
		records:     records,
		courses:     courses,
		students:    students,
		scans:       scans,
		validator:   validate,
		logger:      logger,
		clock:       cfg.Clock,
		metrics:     cfg.Metrics,
		invalidator: cfg.Invalidator,
	}
}

// CreateSessionRequest describes a new attendance session.
type CreateSessionRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	Week     int    `json:"week" validate:"required,min=1,max=53"`
	Date     string `json:"date" validate:"required,session_date"`
	Time     string `json:"time" validate:"required,session_time"`
}

// RecordScanRequest carries the raw text read from a student's QR code.
type RecordScanRequest struct {
	Payload string `json:"payload"`
}

// SessionListRequest filters session listings.
type SessionListRequest struct {
	CourseID string
	Week     *int
	Status   *models.SessionStatus
	Page     int
	PageSize int
}

// ScanResult is returned for an accepted scan.
type ScanResult struct {
	SessionID   string    `json:"sessionId"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	ScanTime    time.Time `json:"scanTime"`
}

// CompleteResult is returned when a session is completed.
type CompleteResult struct {
	SessionID   string               `json:"sessionId"`
	Status      models.SessionStatus `json:"status"`
	AbsentCount int                  `json:"absentCount"`
	CompletedAt *time.Time           `json:"completedAt"`
}

// SessionDetail is a session together with its ledger.
type SessionDetail struct {
	Session      *models.AttendanceSession       `json:"session"`
	Records      []models.AttendanceRecordDetail `json:"records"`
	PresentCount int                             `json:"presentCount"`
	AbsentCount  int                             `json:"absentCount"`
}

// Create opens an active session for a course owned by the lecturer.
func (s *SessionService) Create(ctx context.Context, lecturerID string, req CreateSessionRequest) (*models.AttendanceSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.FromStore(err, "failed to load course")
	}
	if !course.OwnedBy(lecturerID) {
		return nil, appErrors.Clone(appErrors.ErrNotOwner, "course belongs to another lecturer")
	}

	date, _ := time.Parse(models.SessionDateLayout, req.Date)
	session := models.NewAttendanceSession(course.ID, lecturerID, req.Week, date, req.Time, s.clock.Now())
	if err := s.sessions.Create(ctx, &session); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateSession, fmt.Sprintf("%s already has a week %d session on %s", course.Code, req.Week, req.Date))
		}
		return nil, appErrors.FromStore(err, "failed to create session")
	}
	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("course_code", course.Code),
		zap.Int("week", session.Week))
	return &session, nil
}

// RecordScan validates a scanned payload and writes a present record.
func (s *SessionService) RecordScan(ctx context.Context, sessionID, lecturerID string, req RecordScanRequest) (*ScanResult, error) {
	now := s.clock.Now()
	result, err := s.recordScan(ctx, sessionID, lecturerID, req.Payload, now)
	if err != nil {
		appErr := appErrors.FromError(err)
		s.metrics.RecordScan(appErr.Code)
		s.logger.Warn("scan rejected",
			zap.String("session_id", sessionID),
			zap.String("code", appErr.Code),
			zap.String("reason", appErr.Message))
		return nil, err
	}
	s.metrics.RecordScan(ScanOutcomeAccepted)
	s.invalidate(ctx, lecturerID)
	return result, nil
}

func (s *SessionService) recordScan(ctx context.Context, sessionID, lecturerID, raw string, now time.Time) (*ScanResult, error) {
	session, err := s.ownedSession(ctx, sessionID, lecturerID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrSessionNotActive, "session is already completed")
	}

	payload, err := qrpayload.Decode(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedPayload.Code, appErrors.ErrMalformedPayload.Status, appErrors.ErrMalformedPayload.Message)
	}
	studentID, err := s.scans.Validate(payload, now)
	if err != nil {
		return nil, s.freshnessError(err, payload, now)
	}

	student, err := s.students.FindStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownStudent, fmt.Sprintf("student %s not found", studentID))
		}
		return nil, appErrors.FromStore(err, "failed to resolve student")
	}

	record := models.NewPresentRecord(session.ID, student.ID, now)
	if err := s.records.InsertPresent(ctx, &record); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrDuplicateScan, fmt.Sprintf("%s is already recorded for this session", student.FullName))
		case errors.Is(err, repository.ErrSessionClosed):
			return nil, appErrors.Clone(appErrors.ErrSessionNotActive, "session was completed before the scan was stored")
		}
		return nil, appErrors.FromStore(err, "failed to store attendance record")
	}

	return &ScanResult{
		SessionID:   session.ID,
		StudentID:   student.ID,
		StudentName: student.FullName,
		ScanTime:    now,
	}, nil
}

func (s *SessionService) freshnessError(err error, payload qrpayload.Payload, now time.Time) error {
	age := qrpayload.Age(payload, now).Truncate(time.Millisecond)
	switch {
	case errors.Is(err, qrpayload.ErrStale):
		return appErrors.Wrap(err, appErrors.ErrStalePayload.Code, appErrors.ErrStalePayload.Status,
			fmt.Sprintf("qr code is %s old, codes expire after %s", age, s.scans.Window()))
	case errors.Is(err, qrpayload.ErrFuture):
		return appErrors.Wrap(err, appErrors.ErrFuturePayload.Code, appErrors.ErrFuturePayload.Status,
			fmt.Sprintf("qr code is issued %s in the future", -age))
	default:
		return appErrors.Wrap(err, appErrors.ErrMalformedPayload.Code, appErrors.ErrMalformedPayload.Status, appErrors.ErrMalformedPayload.Message)
	}
}

// Complete back-fills absences and closes the session. Repeated calls are safe
// and report zero new absences.
func (s *SessionService) Complete(ctx context.Context, sessionID, lecturerID string) (*CompleteResult, error) {
	if _, err := s.ownedSession(ctx, sessionID, lecturerID); err != nil {
		return nil, err
	}

	start := time.Now()
	session, absentCount, err := s.sessions.Complete(ctx, sessionID, s.clock.Now())
	s.metrics.ObserveDBQuery("complete_session", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.FromStore(err, "failed to complete session")
	}

	s.metrics.RecordCompletion(absentCount)
	s.invalidate(ctx, lecturerID)
	s.logger.Info("session completed",
		zap.String("session_id", session.ID),
		zap.Int("absent_count", absentCount))

	return &CompleteResult{
		SessionID:   session.ID,
		Status:      session.Status,
		AbsentCount: absentCount,
		CompletedAt: session.CompletedAt,
	}, nil
}

// Delete removes a session in either state together with its records.
func (s *SessionService) Delete(ctx context.Context, sessionID, lecturerID string) error {
	if _, err := s.ownedSession(ctx, sessionID, lecturerID); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.FromStore(err, "failed to delete session")
	}
	s.invalidate(ctx, lecturerID)
	s.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

// Get returns a session owned by the lecturer with its records.
func (s *SessionService) Get(ctx context.Context, sessionID, lecturerID string) (*SessionDetail, error) {
	session, err := s.ownedSession(ctx, sessionID, lecturerID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to load session records")
	}
	detail := &SessionDetail{Session: session, Records: records}
	for _, r := range records {
		if r.Status == models.RecordStatusPresent {
			detail.PresentCount++
		} else {
			detail.AbsentCount++
		}
	}
	return detail, nil
}

// List returns the lecturer's sessions.
func (s *SessionService) List(ctx context.Context, lecturerID string, req SessionListRequest) ([]models.AttendanceSessionDetail, *models.Pagination, error) {
	filter := models.AttendanceSessionFilter{
		LecturerID: lecturerID,
		CourseID:   req.CourseID,
		Week:       req.Week,
		Status:     req.Status,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.FromStore(err, "failed to list sessions")
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return sessions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// StudentHistory lists a student's own attendance records.
func (s *SessionService) StudentHistory(ctx context.Context, studentID string) ([]models.StudentAttendanceRow, error) {
	rows, err := s.records.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.FromStore(err, "failed to load attendance history")
	}
	return rows, nil
}

func (s *SessionService) ownedSession(ctx context.Context, sessionID, lecturerID string) (*models.AttendanceSession, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.FromStore(err, "failed to load session")
	}
	if !session.OwnedBy(lecturerID) {
		return nil, appErrors.Clone(appErrors.ErrNotOwner, "session belongs to another lecturer")
	}
	return session, nil
}

func (s *SessionService) invalidate(ctx context.Context, lecturerID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateStats(ctx, lecturerID)
	}
}
