package services

import (
	"html"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/eventsignup/internal/server/models"
	"github.com/microcosm-cc/bluemonday"
)

// Form field names, as used by the sign-up form and in FieldError.Field.
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldAddress   = "address"
	FieldCity      = "city"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldAge       = "age"
	FieldHeight    = "height_cm"
	FieldWeight    = "weight_kg"
)

const maxEmailLen = 255

var (
	stripPolicy = bluemonday.StrictPolicy()

	phonePattern  = regexp.MustCompile(`^\+?[\d\s\-().]{7,20}$`)
	decimalNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	// no leading zeros
	integerNumber = regexp.MustCompile(`^[+-]?(0|[1-9]\d*)$`)
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every rule the input broke, in form order, and
// carries the sanitized input so the form can be shown again.
type ValidationError struct {
	Fields []FieldError
	Input  models.ParticipantInput
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Messages returns the field messages in order.
func (e *ValidationError) Messages() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Message
	}
	return out
}

// sanitize trims the value and drops any markup, keeping the text. Entities
// typed by the user stay literal: '&' is escaped before the policy decodes
// it, and only the escaping the policy adds is undone.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

// SanitizeInput applies sanitize to every field.
func SanitizeInput(in models.ParticipantInput) models.ParticipantInput {
	return models.ParticipantInput{
		FirstName: sanitize(in.FirstName),
		LastName:  sanitize(in.LastName),
		Address:   sanitize(in.Address),
		City:      sanitize(in.City),
		Email:     sanitize(in.Email),
		Phone:     sanitize(in.Phone),
		Age:       sanitize(in.Age),
		HeightCm:  sanitize(in.HeightCm),
		WeightKg:  sanitize(in.WeightKg),
	}
}

// ValidateParticipant checks already sanitized input. It returns the
// participant to store, or a *ValidationError with every violation.
func ValidateParticipant(in models.ParticipantInput) (*models.Participant, error) {
	var errs []FieldError
	fail := func(field, msg string) {
		errs = append(errs, FieldError{Field: field, Message: msg})
	}

	if !runeLenBetween(in.FirstName, 2, 100) {
		fail(FieldFirstName, "first name must be between 2 and 100 characters")
	}
	if !runeLenBetween(in.LastName, 2, 100) {
		fail(FieldLastName, "last name must be between 2 and 100 characters")
	}
	if !runeLenBetween(in.Address, 5, 255) {
		fail(FieldAddress, "address must be between 5 and 255 characters")
	}
	if !runeLenBetween(in.City, 2, 100) {
		fail(FieldCity, "city must be between 2 and 100 characters")
	}
	if !validEmail(in.Email) {
		fail(FieldEmail, "please enter a valid e-mail address")
	}
	if !phonePattern.MatchString(in.Phone) {
		fail(FieldPhone, "please enter a valid phone number (7-20 characters: digits, spaces, +, -, parentheses)")
	}

	age, ok := intBetween(in.Age, 5, 120)
	if !ok {
		fail(FieldAge, "age must be a number between 5 and 120")
	}
	height, ok := intBetween(in.HeightCm, 50, 250)
	if !ok {
		fail(FieldHeight, "height must be a number between 50 and 250 cm")
	}
	weight, ok := parseWeight(in.WeightKg)
	if !ok {
		fail(FieldWeight, "weight must be a number between 20 and 500 kg")
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs, Input: in}
	}

	return &models.Participant{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Address:   in.Address,
		City:      in.City,
		Email:     in.Email,
		Phone:     in.Phone,
		Age:       age,
		HeightCm:  height,
		WeightKg:  weight,
	}, nil
}

func runeLenBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

// validEmail accepts a bare addr-spec: no display name, no brackets and
// no whitespace anywhere.
func validEmail(s string) bool {
	if s == "" || len(s) > maxEmailLen || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	if addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	// ParseAddress allows dotless domains like "a@b"
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func intBetween(s string, lo, hi int) (int, bool) {
	if !integerNumber.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

// parseWeight accepts a decimal comma, checks 20-500 on the raw value and
// rounds to one fractional digit.
func parseWeight(s string) (float64, bool) {
	s = strings.Replace(s, ",", ".", 1)
	if !decimalNumber.MatchString(s) {
		return 0, false
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) || w < 20 || w > 500 {
		return 0, false
	}
	return math.Round(w*10) / 10, true
}
