package qrpayload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/qr-attendance-api/pkg/clock"
)

// TimestampLayout is the wire format of issuedAt. It keeps nanoseconds so a
// round trip never shifts the freshness computation.
const TimestampLayout = time.RFC3339Nano

// ErrMalformed is returned when raw text is not a structurally valid payload.
var ErrMalformed = errors.New("malformed payload")

// Payload is the rotating identity blob presented by a student device.
type Payload struct {
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	IssuedAt    time.Time `json:"issuedAt"`
}

type wirePayload struct {
	StudentID   *string `json:"studentId"`
	StudentName *string `json:"studentName"`
	IssuedAt    *string `json:"issuedAt"`
}

// Encode builds a payload issued at now.
func Encode(studentID, studentName string, now time.Time) Payload {
	return Payload{StudentID: studentID, StudentName: studentName, IssuedAt: now.UTC()}
}

// Marshal renders the payload as the JSON text embedded in the QR code.
func (p Payload) Marshal() ([]byte, error) {
	if p.StudentID == "" || p.StudentName == "" || p.IssuedAt.IsZero() {
		return nil, fmt.Errorf("marshal payload: %w", ErrMalformed)
	}
	issued := p.IssuedAt.UTC().Format(TimestampLayout)
	return json.Marshal(wirePayload{StudentID: &p.StudentID, StudentName: &p.StudentName, IssuedAt: &issued})
}

// String returns the payload text or an empty string when it cannot be encoded.
func (p Payload) String() string {
	raw, err := p.Marshal()
	if err != nil {
		return ""
	}
	return string(raw)
}

// Decode parses raw QR text. Freshness is not checked here.
func Decode(raw string) (Payload, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Payload{}, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	var wire wirePayload
	if err := dec.Decode(&wire); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return Payload{}, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	if wire.StudentID == nil || strings.TrimSpace(*wire.StudentID) == "" {
		return Payload{}, fmt.Errorf("%w: studentId missing", ErrMalformed)
	}
	if wire.StudentName == nil || strings.TrimSpace(*wire.StudentName) == "" {
		return Payload{}, fmt.Errorf("%w: studentName missing", ErrMalformed)
	}
	if wire.IssuedAt == nil || *wire.IssuedAt == "" {
		return Payload{}, fmt.Errorf("%w: issuedAt missing", ErrMalformed)
	}
	issued, err := time.Parse(TimestampLayout, *wire.IssuedAt)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: issuedAt: %v", ErrMalformed, err)
	}
	return Payload{
		StudentID:   strings.TrimSpace(*wire.StudentID),
		StudentName: *wire.StudentName,
		IssuedAt:    issued.UTC(),
	}, nil
}

// Codec issues payloads from an injected clock.
type Codec struct {
	clock clock.Clock
}

// NewCodec constructs a codec. A nil clock falls back to the system clock.
func NewCodec(c clock.Clock) *Codec {
	if c == nil {
		c = clock.System{}
	}
	return &Codec{clock: c}
}

// Issue encodes a fresh payload for the student.
func (c *Codec) Issue(studentID, studentName string) Payload {
	return Encode(studentID, studentName, c.clock.Now())
}

// Decode parses raw text, see Decode.
func (c *Codec) Decode(raw string) (Payload, error) {
	return Decode(raw)
}
