package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/qr-attendance-api/pkg/clock"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
	"github.com/noah-isme/qr-attendance-api/pkg/qrpayload"
)

// IssuedPayload is what a student device displays until the next refresh.
type IssuedPayload struct {
	StudentID       string    `json:"studentId"`
	Name            string    `json:"name"`
	IssuedAt        time.Time `json:"issuedAt"`
	Payload         string    `json:"payload"`
	RefreshInterval int64     `json:"refreshInterval"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// PayloadService issues rotating QR payloads for students.
type PayloadService struct {
	students        studentLookup
	codec           *qrpayload.Codec
	window          time.Duration
	refreshInterval time.Duration
	logger          *zap.Logger
}

// NewPayloadService constructs the payload service.
func NewPayloadService(students studentLookup, c clock.Clock, window, refreshInterval time.Duration, logger *zap.Logger) *PayloadService {
	if window <= 0 {
		window = qrpayload.DefaultFreshnessWindow
	}
	if refreshInterval <= 0 {
		refreshInterval = qrpayload.DefaultRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayloadService{
		students:        students,
		codec:           qrpayload.NewCodec(c),
		window:          window,
		refreshInterval: refreshInterval,
		logger:          logger,
	}
}

// Issue encodes a fresh payload for the calling student.
func (s *PayloadService) Issue(ctx context.Context, studentID string) (*IssuedPayload, error) {
	student, err := s.students.FindStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnknownStudent, "student account not found")
		}
		return nil, appErrors.FromStore(err, "failed to resolve student")
	}
	payload := s.codec.Issue(student.ID, student.FullName)
	text, err := payload.Marshal()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode payload")
	}
	return &IssuedPayload{
		StudentID:       student.ID,
		Name:            student.FullName,
		IssuedAt:        payload.IssuedAt,
		Payload:         string(text),
		RefreshInterval: s.refreshInterval.Milliseconds(),
		ExpiresAt:       payload.IssuedAt.Add(s.window),
	}, nil
}

// IssuePNG renders a fresh payload as a QR image.
func (s *PayloadService) IssuePNG(ctx context.Context, studentID string, size int) ([]byte, *IssuedPayload, error) {
	issued, err := s.Issue(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	png, err := qrpayload.RenderPNG(qrpayload.Encode(issued.StudentID, issued.Name, issued.IssuedAt), size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render qr code")
	}
	return png, issued, nil
}
