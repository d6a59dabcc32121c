package event

import (
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/apperror"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/event/entity"
)

// Form keys accepted for event create and update.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldStartDate   = "startDate"
	FieldEndDate     = "endDate"
	FieldLocation    = "location"
	FieldImage       = "image"
	FieldUserID      = "userId"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseFields validates a create payload. Every missing or malformed field is
// reported in one ValidationError.
func ParseFields(raw map[string]string, image string) (entity.Fields, error) {
	var (
		f    entity.Fields
		errs []apperror.FieldError
	)
	required := func(key string) string {
		v := strings.TrimSpace(raw[key])
		if v == "" {
			errs = append(errs, apperror.FieldError{Field: key, Message: key + " is required"})
		}
		return v
	}
	date := func(key string) time.Time {
		v := required(key)
		if v == "" {
			return time.Time{}
		}
		t, err := parseDate(v)
		if err != nil {
			errs = append(errs, apperror.FieldError{Field: key, Message: "invalid date"})
		}
		return t
	}

	f.Name = required(FieldName)
	f.Description = required(FieldDescription)
	f.StartDate = date(FieldStartDate)
	f.EndDate = date(FieldEndDate)
	f.Location = required(FieldLocation)
	if strings.TrimSpace(image) == "" {
		errs = append(errs, apperror.FieldError{Field: FieldImage, Message: "image is required"})
	}
	if !f.StartDate.IsZero() && !f.EndDate.IsZero() && f.EndDate.Before(f.StartDate) {
		errs = append(errs, apperror.FieldError{Field: FieldEndDate, Message: "endDate is before startDate"})
	}
	return f, apperror.Validation(errs...)
}

// buildPatch keeps only recognized, non-blank text fields. The image is
// never read from raw.
func buildPatch(raw map[string]string) (entity.Patch, error) {
	var (
		p    entity.Patch
		errs []apperror.FieldError
	)
	text := func(key string) *string {
		v := strings.TrimSpace(raw[key])
		if v == "" {
			return nil
		}
		return &v
	}
	date := func(key string) *time.Time {
		v := text(key)
		if v == nil {
			return nil
		}
		t, err := parseDate(*v)
		if err != nil {
			errs = append(errs, apperror.FieldError{Field: key, Message: "invalid date"})
			return nil
		}
		return &t
	}

	p.Name = text(FieldName)
	p.Description = text(FieldDescription)
	p.StartDate = date(FieldStartDate)
	p.EndDate = date(FieldEndDate)
	p.Location = text(FieldLocation)
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		errs = append(errs, apperror.FieldError{Field: FieldEndDate, Message: "endDate is before startDate"})
	}
	return p, apperror.Validation(errs...)
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
