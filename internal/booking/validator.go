// Package booking validates booking submissions and turns accepted ones into
// notification messages.
package booking

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bookinggate/internal/models"

	"github.com/go-playground/validator/v10"
)

// Business hours, in minutes after midnight, both inclusive.
const (
	OpeningMinute = 8 * 60
	ClosingMinute = 22 * 60
)

var (
	phonePattern = regexp.MustCompile(`^(\+39|0039|39)?[\s\-]?[0-9]{2,3}[\s\-]?[0-9]{6,8}$`)
	namePattern  = regexp.MustCompile(`^[\p{L}\s'’-]+$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern  = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
	phoneSpacing = regexp.MustCompile(`[\s\-]`)
)

const dateLayout = "2006-01-02"

// Issues maps a field name to the first problem found with it.
type Issues map[string]string

// Add records msg for field unless the field already has an issue.
func (i Issues) Add(field, msg string) {
	if _, exists := i[field]; !exists {
		i[field] = msg
	}
}

// form is the shape the submission must take before normalization.
type form struct {
	Name    string `json:"name" validate:"required,min=2,max=50,person_name"`
	Email   string `json:"email" validate:"required,max=254,email"`
	Phone   string `json:"phone" validate:"required,min=6,max=20,italian_phone"`
	Vehicle string `json:"vehicle" validate:"vehicle"`
	Service string `json:"service" validate:"service"`
	Date    string `json:"date" validate:"required,iso_date,future_date"`
	Time    string `json:"time" validate:"required,clock_time,business_hours"`
	Notes   string `json:"notes" validate:"max=500"`
	Website string `json:"website"`
}

var formFields = []string{"name", "email", "phone", "vehicle", "service", "date", "time", "notes", "website"}

// messages holds the customer-facing message per field and failed rule.
var messages = map[string]map[string]string{
	"name": {
		"required":    "Nome troppo corto (minimo 2 caratteri)",
		"min":         "Nome troppo corto (minimo 2 caratteri)",
		"max":         "Nome troppo lungo (massimo 50 caratteri)",
		"person_name": "Nome contiene caratteri non validi",
	},
	"email": {
		"required": "Email non valida",
		"email":    "Email non valida",
		"max":      "Email troppo lunga",
	},
	"phone": {
		"required":      "Telefono troppo corto",
		"min":           "Telefono troppo corto",
		"max":           "Telefono troppo lungo",
		"italian_phone": "Formato telefono non valido (es: +39 123 456789)",
	},
	"vehicle": {
		"vehicle": "Seleziona un tipo di veicolo valido",
	},
	"service": {
		"service": "Seleziona un servizio valido",
	},
	"date": {
		"required":    "Data richiesta",
		"iso_date":    "Formato data non valido (YYYY-MM-DD)",
		"future_date": "La data deve essere oggi o nel futuro",
	},
	"time": {
		"required":       "Ora richiesta",
		"clock_time":     "Formato ora non valido (HH:MM)",
		"business_hours": "Orario non disponibile (08:00-22:00)",
	},
	"notes": {
		"max": "Note troppo lunghe (massimo 500 caratteri)",
	},
}

const (
	bodyMessage    = "Il corpo della richiesta deve essere un oggetto JSON"
	typeMessage    = "Valore non valido: atteso testo"
	genericMessage = "Valore non valido"
)

// Validator checks raw booking submissions. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// Option customizes a Validator.
type Option func(*Validator)

// WithClock replaces time.Now. The date floor is local midnight of the
// returned time, in its location.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator builds a Validator with the booking rules registered.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return name
	})

	rules := map[string]validator.Func{
		"person_name":    validPersonName,
		"italian_phone":  validPhone,
		"iso_date":       validISODate,
		"future_date":    v.validFutureDate,
		"clock_time":     validClockTime,
		"business_hours": validBusinessHours,
		"vehicle":        validVehicle,
		"service":        validService,
	}
	for tag, fn := range rules {
		// Registration only fails for an empty tag or nil func.
		_ = v.validate.RegisterValidation(tag, fn)
	}

	return v
}

// Validate checks a decoded JSON value and returns the normalized booking.
// Expected failures are reported as Issues, never as errors; the booking is
// nil whenever issues is non-empty.
func (v *Validator) Validate(raw any) (*models.BookingRequest, Issues) {
	issues := Issues{}

	obj, ok := raw.(map[string]any)
	if !ok {
		issues.Add("body", bodyMessage)
		return nil, issues
	}

	values := make(map[string]string, len(formFields))
	for _, field := range formFields {
		val, present := obj[field]
		if !present || val == nil {
			continue
		}
		s, isString := val.(string)
		if !isString {
			issues.Add(field, typeMessage)
			continue
		}
		values[field] = s
	}

	f := form{
		Name:    strings.TrimSpace(values["name"]),
		Email:   strings.TrimSpace(values["email"]),
		Phone:   values["phone"],
		Vehicle: values["vehicle"],
		Service: values["service"],
		Date:    values["date"],
		Time:    values["time"],
		Notes:   strings.TrimSpace(values["notes"]),
		Website: values["website"],
	}

	if err := v.validate.Struct(f); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			issues.Add("body", bodyMessage)
			return nil, issues
		}
		for _, fe := range fieldErrs {
			issues.Add(fe.Field(), messageFor(fe.Field(), fe.Tag()))
		}
	}

	if len(issues) > 0 {
		return nil, issues
	}

	return &models.BookingRequest{
		Name:    f.Name,
		Email:   strings.ToLower(f.Email),
		Phone:   phoneSpacing.ReplaceAllString(f.Phone, ""),
		Vehicle: models.Vehicle(f.Vehicle),
		Service: models.Service(f.Service),
		Date:    f.Date,
		Time:    f.Time,
		Notes:   f.Notes,
		Website: f.Website,
	}, nil
}

func messageFor(field, tag string) string {
	if msg, ok := messages[field][tag]; ok {
		return msg
	}
	return genericMessage
}

func validPersonName(fl validator.FieldLevel) bool {
	return namePattern.MatchString(fl.Field().String())
}

func validPhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

func validISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !datePattern.MatchString(s) {
		return false
	}
	// Rejects impossible dates such as 2026-02-30.
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func (v *Validator) validFutureDate(fl validator.FieldLevel) bool {
	now := v.now()
	day, err := time.ParseInLocation(dateLayout, fl.Field().String(), now.Location())
	if err != nil {
		return false
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return !day.Before(today)
}

func validClockTime(fl validator.FieldLevel) bool {
	return timePattern.MatchString(fl.Field().String())
}

func validBusinessHours(fl validator.FieldLevel) bool {
	minute, ok := minuteOfDay(fl.Field().String())
	return ok && minute >= OpeningMinute && minute <= ClosingMinute
}

// minuteOfDay converts "H:MM" or "HH:MM" into minutes after midnight.
func minuteOfDay(s string) (int, bool) {
	h, m, found := strings.Cut(s, ":")
	if !found {
		return 0, false
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return hours*60 + minutes, true
}

func validVehicle(fl validator.FieldLevel) bool {
	return models.Vehicle(fl.Field().String()).Valid()
}

func validService(fl validator.FieldLevel) bool {
	return models.Service(fl.Field().String()).Valid()
}
