package qrpayload

import (
	"errors"
	"time"

	"github.com/noah-isme/qr-attendance-api/pkg/clock"
)

// DefaultFreshnessWindow is the maximum accepted payload age (inclusive).
const DefaultFreshnessWindow = 30 * time.Second

// DefaultRefreshInterval is how often student devices rotate the payload.
const DefaultRefreshInterval = 5 * time.Second

var (
	// ErrStale is returned when the payload is older than the freshness window.
	ErrStale = errors.New("payload expired")
	// ErrFuture is returned when the payload was issued after the validating instant.
	ErrFuture = errors.New("payload issued in the future")
)

// Validate checks the payload age against now using the default window and
// returns the embedded student id.
func Validate(p Payload, now time.Time) (string, error) {
	return validate(p, now, DefaultFreshnessWindow)
}

func validate(p Payload, now time.Time, window time.Duration) (string, error) {
	if p.StudentID == "" || p.IssuedAt.IsZero() {
		return "", ErrMalformed
	}
	age := now.Sub(p.IssuedAt)
	if age < 0 {
		return "", ErrFuture
	}
	if age > window {
		return "", ErrStale
	}
	return p.StudentID, nil
}

// Validator applies a configurable freshness window.
type Validator struct {
	window time.Duration
	clock  clock.Clock
}

// NewValidator builds a validator. Non-positive windows use DefaultFreshnessWindow.
func NewValidator(window time.Duration, c clock.Clock) *Validator {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	if c == nil {
		c = clock.System{}
	}
	return &Validator{window: window, clock: c}
}

// Window reports the configured freshness window.
func (v *Validator) Window() time.Duration {
	return v.window
}

// Validate checks the payload against an explicit instant.
func (v *Validator) Validate(p Payload, now time.Time) (string, error) {
	return validate(p, now, v.window)
}

// ValidateNow checks the payload against the validator's clock.
func (v *Validator) ValidateNow(p Payload) (string, error) {
	return validate(p, v.clock.Now(), v.window)
}

// Age returns now minus issuedAt, negative for future payloads.
func Age(p Payload, now time.Time) time.Duration {
	return now.Sub(p.IssuedAt)
}
