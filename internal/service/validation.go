package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/qr-attendance-api/internal/models"
)

var courseCodePattern = regexp.MustCompile(`^[A-Z][A-Z0-9-]{1,15}$`)

// registerAttendanceValidations installs the custom tags used by course and session payloads.
func registerAttendanceValidations(v *validator.Validate) {
	_ = v.RegisterValidation("session_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.SessionDateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("session_time", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.SessionTimeLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("course_code", func(fl validator.FieldLevel) bool {
		return courseCodePattern.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	})
}

func normalizeCourseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
