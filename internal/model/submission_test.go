package model

import (
	"reflect"
	"testing"
)

func TestContactSubmissionMissingFields(t *testing.T) {
	t.Helper()

	testCases := []struct {
		name       string
		submission ContactSubmission
		expected   []string
	}{
		{
			name: "Complete",
			submission: ContactSubmission{
				Name: "Jane Doe", Email: "jane@example.com", Subject: "Help", Message: "Lost money online",
			},
			expected: nil,
		},
		{
			name:       "AllMissing",
			submission: ContactSubmission{Phone: "5551234567"},
			expected:   []string{"name", "email", "subject", "message"},
		},
		{
			name: "WhitespaceCountsAsMissing",
			submission: ContactSubmission{
				Name: "Jane Doe", Email: "jane@example.com", Subject: "   ", Message: "\n\t",
			},
			expected: []string{"subject", "message"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Helper()
			if got := testCase.submission.MissingFields(); !reflect.DeepEqual(got, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, got)
			}
		})
	}
}

func TestContactSubmissionNormalizeAppliesDefaults(t *testing.T) {
	t.Helper()

	submission := ContactSubmission{
		Name:     "  Jane Doe ",
		Email:    " jane@example.com",
		Subject:  " Help ",
		Message:  "Line one\nLine two",
		Priority: " HIGH ",
	}
	submission.Normalize()

	if submission.Name != "Jane Doe" || submission.Email != "jane@example.com" || submission.Subject != "Help" {
		t.Fatalf("expected trimmed fields, got %+v", submission)
	}
	if submission.Message != "Line one\nLine two" {
		t.Fatalf("message body must be preserved, got %q", submission.Message)
	}
	if submission.Priority != PriorityHigh {
		t.Fatalf("expected high priority, got %q", submission.Priority)
	}
	if submission.PreferredContact != PreferredContactEmail {
		t.Fatalf("expected default preferred contact, got %q", submission.PreferredContact)
	}
}

func TestReportSubmissionMissingFields(t *testing.T) {
	t.Helper()

	submission := ReportSubmission{
		FirstName:    "Jane",
		Email:        "jane@example.com",
		IncidentType: IncidentPhishing,
	}
	expected := []string{"lastName", "description"}
	if got := submission.MissingFields(); !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestIncidentTypeLabels(t *testing.T) {
	t.Helper()

	for _, incidentType := range IncidentTypes() {
		if !incidentType.Valid() {
			t.Fatalf("expected %q to be valid", incidentType)
		}
		if incidentType.Label() == string(incidentType) {
			t.Fatalf("expected a display label for %q", incidentType)
		}
	}
	unknown := IncidentType("carrier-pigeon")
	if unknown.Valid() {
		t.Fatalf("unexpected valid incident type")
	}
	if unknown.Label() != "carrier-pigeon" {
		t.Fatalf("expected raw value as label, got %q", unknown.Label())
	}
}

func TestEnumValidity(t *testing.T) {
	t.Helper()

	if !PriorityCritical.Valid() || Priority("urgent").Valid() {
		t.Fatalf("priority validity mismatch")
	}
	if !PreferredContactEither.Valid() || PreferredContact("fax").Valid() {
		t.Fatalf("preferred contact validity mismatch")
	}
}
