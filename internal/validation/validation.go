// Package validation applies the form field rules shared with the browser forms.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const incidentDateLayout = "2006-01-02"

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors aggregates field errors in rule order.
type Errors []FieldError

func (errs Errors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, fieldError := range errs {
		parts = append(parts, fieldError.Field+": "+fieldError.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Rule constrains a single string field. Empty values skip every check except Required.
type Rule struct {
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Custom    func(value string, now time.Time) bool
}

var (
	namePattern      = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	lettersPattern   = regexp.MustCompile(`^[a-zA-Z]+$`)
	emailPattern     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	tenDigitsPattern = regexp.MustCompile(`^\d{10}$`)
)

// Rules is the field rule table keyed by JSON field name.
var Rules = map[string]Rule{
	"name":         {Required: true, MinLength: 2, MaxLength: 50, Pattern: namePattern},
	"firstName":    {Required: true, MinLength: 2, MaxLength: 25, Pattern: lettersPattern},
	"lastName":     {Required: true, MinLength: 2, MaxLength: 25, Pattern: lettersPattern},
	"email":        {Required: true, Pattern: emailPattern},
	"phone":        {Pattern: tenDigitsPattern},
	"subject":      {Required: true},
	"incidentType": {Required: true},
	"incidentDate": {Custom: notInFuture},
	"description":  {Required: true, MinLength: 10, MaxLength: 2000},
	"message":      {Required: true, MinLength: 10, MaxLength: 1000},
}

var displayNames = map[string]string{
	"name":         "Name",
	"firstName":    "First Name",
	"lastName":     "Last Name",
	"email":        "Email Address",
	"phone":        "Phone Number",
	"subject":      "Subject",
	"incidentType": "Incident Type",
	"incidentDate": "Incident Date",
	"description":  "Description",
	"message":      "Message",
}

var patternMessages = map[string]string{
	"name":      "Name should only contain letters and spaces",
	"firstName": "First name should only contain letters",
	"lastName":  "Last name should only contain letters",
	"email":     "Please enter a valid email address",
	"phone":     "Please enter a valid 10-digit phone number",
}

var customMessages = map[string]string{
	"incidentDate": "Incident date cannot be in the future",
}

// Field is a name/value pair handed to Validate.
type Field struct {
	Name  string
	Value string
}

// Validator checks fields against Rules using an injectable clock.
type Validator struct {
	now func() time.Time
}

// NewValidator returns a Validator. A nil clock uses time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate returns nil when every field passes, otherwise Errors in the order given.
func (validator *Validator) Validate(fields ...Field) error {
	var errs Errors
	for _, candidate := range fields {
		rule, known := Rules[candidate.Name]
		if !known {
			continue
		}
		if message := validator.checkField(candidate.Name, candidate.Value, rule); message != "" {
			errs = append(errs, FieldError{Field: candidate.Name, Message: message})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (validator *Validator) checkField(fieldName string, value string, rule Rule) string {
	if strings.TrimSpace(value) == "" {
		if rule.Required {
			return fmt.Sprintf("%s is required", displayName(fieldName))
		}
		return ""
	}

	length := utf8.RuneCountInString(value)
	if rule.MinLength > 0 && length < rule.MinLength {
		return fmt.Sprintf("%s must be at least %d characters", displayName(fieldName), rule.MinLength)
	}
	if rule.MaxLength > 0 && length > rule.MaxLength {
		return fmt.Sprintf("%s must not exceed %d characters", displayName(fieldName), rule.MaxLength)
	}
	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		if message, found := patternMessages[fieldName]; found {
			return message
		}
		return "Invalid format"
	}
	if rule.Custom != nil && !rule.Custom(value, validator.now()) {
		if message, found := customMessages[fieldName]; found {
			return message
		}
		return "Invalid value"
	}
	return ""
}

func displayName(fieldName string) string {
	if name, found := displayNames[fieldName]; found {
		return name
	}
	return fieldName
}

// notInFuture accepts a calendar date that is today or earlier in now's location.
func notInFuture(value string, now time.Time) bool {
	parsed, err := time.ParseInLocation(incidentDateLayout, value, now.Location())
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return !parsed.After(today)
}

// Invalid builds a single-field Errors value for checks outside the rule table.
func Invalid(fieldName string, message string) Errors {
	return Errors{{Field: fieldName, Message: message}}
}
