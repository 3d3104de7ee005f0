package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qr-attendance-api/internal/models"
	"github.com/noah-isme/qr-attendance-api/internal/service"
	appErrors "github.com/noah-isme/qr-attendance-api/pkg/errors"
)

type payloadServiceMock struct {
	studentID string
	err       error
}

func (m *payloadServiceMock) Issue(ctx context.Context, studentID string) (*service.IssuedPayload, error) {
	m.studentID = studentID
	if m.err != nil {
		return nil, m.err
	}
	return &service.IssuedPayload{StudentID: studentID, Name: "Ada", IssuedAt: time.Now(), Payload: "{}", RefreshInterval: 5000}, nil
}

func (m *payloadServiceMock) IssuePNG(ctx context.Context, studentID string, size int) ([]byte, *service.IssuedPayload, error) {
	issued, err := m.Issue(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	return []byte("\x89PNG"), issued, nil
}

func TestPayloadHandlerIssue(t *testing.T) {
	mockSvc := &payloadServiceMock{}
	h := NewPayloadHandler(mockSvc)
	c, w := newTestContext(http.MethodGet, "/payload", nil, "stu-a", models.RoleStudent)
	h.Issue(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-a", mockSvc.studentID)
	assert.Contains(t, w.Body.String(), `"refreshInterval":5000`)
}

func TestPayloadHandlerQRCode(t *testing.T) {
	h := NewPayloadHandler(&payloadServiceMock{})
	c, w := newTestContext(http.MethodGet, "/payload/qr.png?size=300", nil, "stu-a", models.RoleStudent)
	h.QRCode(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "5000", w.Header().Get("X-Payload-Refresh-Interval"))

	h = NewPayloadHandler(&payloadServiceMock{err: appErrors.ErrUnknownStudent})
	c, w = newTestContext(http.MethodGet, "/payload/qr.png", nil, "stu-x", models.RoleStudent)
	h.QRCode(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
