// Package model defines the contact and incident report payloads accepted by the site forms.
package model

import "strings"

// SubmissionKind distinguishes the two public forms.
type SubmissionKind string

const (
	SubmissionContact SubmissionKind = "contact"
	SubmissionReport  SubmissionKind = "report"
)

// Priority of a contact inquiry.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// PreferredContact is the channel a visitor wants to be reached on.
type PreferredContact string

const (
	PreferredContactEmail  PreferredContact = "email"
	PreferredContactPhone  PreferredContact = "phone"
	PreferredContactEither PreferredContact = "either"
)

// IncidentType enumerates the categories offered by the report form.
type IncidentType string

const (
	IncidentOnlineFraud   IncidentType = "online-fraud"
	IncidentBankingFraud  IncidentType = "banking-fraud"
	IncidentIdentityTheft IncidentType = "identity-theft"
	IncidentPhishing      IncidentType = "phishing"
	IncidentRansomware    IncidentType = "ransomware"
	IncidentOther         IncidentType = "other"
)

var incidentTypeLabels = map[IncidentType]string{
	IncidentOnlineFraud:   "Online Fraud",
	IncidentBankingFraud:  "Banking Fraud",
	IncidentIdentityTheft: "Identity Theft",
	IncidentPhishing:      "Phishing",
	IncidentRansomware:    "Ransomware",
	IncidentOther:         "Other",
}

// Valid reports whether the priority is one of the known values.
func (priority Priority) Valid() bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Valid reports whether the channel is one of the known values.
func (preferred PreferredContact) Valid() bool {
	switch preferred {
	case PreferredContactEmail, PreferredContactPhone, PreferredContactEither:
		return true
	}
	return false
}

// Valid reports whether the incident type is offered by the report form.
func (incidentType IncidentType) Valid() bool {
	_, known := incidentTypeLabels[incidentType]
	return known
}

// Label returns the human-readable name, falling back to the raw value.
func (incidentType IncidentType) Label() string {
	if label, known := incidentTypeLabels[incidentType]; known {
		return label
	}
	return string(incidentType)
}

// IncidentTypes lists the report form options in display order.
func IncidentTypes() []IncidentType {
	return []IncidentType{
		IncidentOnlineFraud,
		IncidentBankingFraud,
		IncidentIdentityTheft,
		IncidentPhishing,
		IncidentRansomware,
		IncidentOther,
	}
}

// ContactSubmission is the payload of POST /api/contact.
type ContactSubmission struct {
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone,omitempty"`
	Subject          string           `json:"subject"`
	Message          string           `json:"message"`
	Company          string           `json:"company,omitempty"`
	Priority         Priority         `json:"priority,omitempty"`
	PreferredContact PreferredContact `json:"preferredContact,omitempty"`
}

// Normalize trims surrounding whitespace and applies enum defaults.
func (submission *ContactSubmission) Normalize() {
	submission.Name = strings.TrimSpace(submission.Name)
	submission.Email = strings.TrimSpace(submission.Email)
	submission.Phone = strings.TrimSpace(submission.Phone)
	submission.Subject = strings.TrimSpace(submission.Subject)
	submission.Company = strings.TrimSpace(submission.Company)
	if strings.TrimSpace(submission.Message) == "" {
		submission.Message = ""
	}
	submission.Priority = Priority(strings.ToLower(strings.TrimSpace(string(submission.Priority))))
	if submission.Priority == "" {
		submission.Priority = PriorityMedium
	}
	submission.PreferredContact = PreferredContact(strings.ToLower(strings.TrimSpace(string(submission.PreferredContact))))
	if submission.PreferredContact == "" {
		submission.PreferredContact = PreferredContactEmail
	}
}

// MissingFields returns the JSON names of empty required fields.
func (submission ContactSubmission) MissingFields() []string {
	return missing(
		field{"name", submission.Name},
		field{"email", submission.Email},
		field{"subject", submission.Subject},
		field{"message", submission.Message},
	)
}

// Document is one base64-encoded upload attached to an incident report.
type Document struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"contentType,omitempty"`
}

// ReportSubmission is the payload of POST /api/submit-report.
type ReportSubmission struct {
	FirstName    string       `json:"firstName"`
	LastName     string       `json:"lastName"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	IncidentType IncidentType `json:"incidentType"`
	IncidentDate string       `json:"incidentDate"`
	Description  string       `json:"description"`
	Documents    []Document   `json:"documents,omitempty"`
}

// Normalize trims surrounding whitespace on scalar fields.
func (submission *ReportSubmission) Normalize() {
	submission.FirstName = strings.TrimSpace(submission.FirstName)
	submission.LastName = strings.TrimSpace(submission.LastName)
	submission.Email = strings.TrimSpace(submission.Email)
	submission.Phone = strings.TrimSpace(submission.Phone)
	submission.IncidentType = IncidentType(strings.ToLower(strings.TrimSpace(string(submission.IncidentType))))
	submission.IncidentDate = strings.TrimSpace(submission.IncidentDate)
	if strings.TrimSpace(submission.Description) == "" {
		submission.Description = ""
	}
}

// MissingFields returns the JSON names of empty required fields.
func (submission ReportSubmission) MissingFields() []string {
	return missing(
		field{"firstName", submission.FirstName},
		field{"lastName", submission.LastName},
		field{"email", submission.Email},
		field{"incidentType", string(submission.IncidentType)},
		field{"description", submission.Description},
	)
}

// FullName joins first and last name.
func (submission ReportSubmission) FullName() string {
	return strings.TrimSpace(submission.FirstName + " " + submission.LastName)
}

type field struct {
	name  string
	value string
}

func missing(fields ...field) []string {
	var names []string
	for _, candidate := range fields {
		if strings.TrimSpace(candidate.value) == "" {
			names = append(names, candidate.name)
		}
	}
	return names
}
