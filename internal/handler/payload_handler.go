package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qr-attendance-api/internal/service"
	"github.com/noah-isme/qr-attendance-api/pkg/response"
)

type payloadService interface {
	Issue(ctx context.Context, studentID string) (*service.IssuedPayload, error)
	IssuePNG(ctx context.Context, studentID string, size int) ([]byte, *service.IssuedPayload, error)
}

// PayloadHandler serves the rotating QR payload to students.
type PayloadHandler struct {
	service payloadService
}

// NewPayloadHandler constructs the handler.
func NewPayloadHandler(svc payloadService) *PayloadHandler {
	return &PayloadHandler{service: svc}
}

// Issue godoc
// @Summary Issue a QR payload
// @Description Returns a freshly stamped payload for the calling student. Devices poll at refreshInterval milliseconds.
// @Tags Payload
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payload [get]
func (h *PayloadHandler) Issue(c *gin.Context) {
	studentID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	issued, err := h.service.Issue(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, issued, nil)
}

// QRCode godoc
// @Summary Issue a QR payload as PNG
// @Tags Payload
// @Produce png
// @Param size query int false "Image edge in pixels (128-1024)"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /payload/qr.png [get]
func (h *PayloadHandler) QRCode(c *gin.Context) {
	studentID, err := callerID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	png, issued, err := h.service.IssuePNG(c.Request.Context(), studentID, intQuery(c, "size", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("X-Payload-Issued-At", issued.IssuedAt.Format(time.RFC3339Nano))
	c.Header("X-Payload-Refresh-Interval", strconv.FormatInt(issued.RefreshInterval, 10))
	response.Binary(c, "image/png", "", png)
}
