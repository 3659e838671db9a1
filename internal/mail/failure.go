package mail

import (
	"errors"
	"fmt"
	"strings"
)

// FailureKind classifies provider failures so callers never inspect provider text.
type FailureKind string

const (
	FailureUnauthorized        FailureKind = "unauthorized"
	FailureDomainUnverified    FailureKind = "domain_unverified"
	FailureRecipientRestricted FailureKind = "recipient_restricted"
	FailureUnknown             FailureKind = "unknown"
)

// DeliveryError is returned by every Sender when a message was not accepted.
type DeliveryError struct {
	Kind     FailureKind
	Provider string
	Err      error
}

func (deliveryError *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed (%s): %v", deliveryError.Provider, deliveryError.Kind, deliveryError.Err)
}

func (deliveryError *DeliveryError) Unwrap() error {
	return deliveryError.Err
}

// KindOf extracts the failure kind from err, defaulting to FailureUnknown.
func KindOf(err error) FailureKind {
	var deliveryError *DeliveryError
	if errors.As(err, &deliveryError) {
		return deliveryError.Kind
	}
	return FailureUnknown
}

func newDeliveryError(provider string, kind FailureKind, err error) *DeliveryError {
	return &DeliveryError{Kind: kind, Provider: provider, Err: err}
}

var (
	restrictedRecipientMarkers = []string{
		"trial accounts can only send emails to the administrator",
		"authorized recipients",
		"sandbox",
		"free accounts are for test purposes only",
	}
	unauthorizedMarkers = []string{
		"unauthorized",
		"api key",
		"authentication failed",
		"invalid credentials",
		"forbidden",
	}
	domainMarkers = []string{
		"domain",
		"sender address rejected",
		"unverified sender",
	}
)

// classifyText maps provider response text onto a FailureKind. Restricted-recipient markers are
// checked first because sandbox responses also mention the sending domain.
func classifyText(text string) FailureKind {
	normalized := strings.ToLower(text)
	switch {
	case containsAny(normalized, restrictedRecipientMarkers):
		return FailureRecipientRestricted
	case containsAny(normalized, unauthorizedMarkers):
		return FailureUnauthorized
	case containsAny(normalized, domainMarkers):
		return FailureDomainUnverified
	default:
		return FailureUnknown
	}
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
