// Package service turns validated form submissions into a single outbound email.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tyemirov/cyberhelp/internal/config"
	"github.com/tyemirov/cyberhelp/internal/journal"
	"github.com/tyemirov/cyberhelp/internal/mail"
	"github.com/tyemirov/cyberhelp/internal/model"
	"github.com/tyemirov/cyberhelp/internal/site"
	"github.com/tyemirov/cyberhelp/internal/validation"
)

var (
	ErrMissingFields        = errors.New("missing required fields")
	ErrServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidPayload       = errors.New("invalid request payload")
)

// Recorder stores delivery metadata. Implemented by *journal.Store.
type Recorder interface {
	Record(ctx context.Context, delivery journal.Delivery) error
}

// Receipt identifies an accepted submission.
type Receipt struct {
	ReferenceID string
}

type SubmissionService struct {
	sender       mail.Sender
	recorder     Recorder
	logger       *slog.Logger
	validator    *validation.Validator
	from         mail.Address
	recipient    string
	provider     string
	configured   bool
	timeout      time.Duration
	now          func() time.Time
	newReference func() string
}

// NewSubmissionService wires a sender to the addresses from cfg and siteConfig. recorder may be nil.
func NewSubmissionService(sender mail.Sender, recorder Recorder, cfg config.Config, siteConfig site.Config, logger *slog.Logger) *SubmissionService {
	return &SubmissionService{
		sender:       sender,
		recorder:     recorder,
		logger:       logger,
		validator:    validation.NewValidator(time.Now),
		from:         mail.Address{Email: cfg.MailFromEmail, Name: cfg.MailFromName},
		recipient:    siteConfig.NotificationAddress(cfg.NotificationEmail),
		provider:     cfg.MailProvider,
		configured:   cfg.MailCredentialsPresent(),
		timeout:      time.Duration(cfg.MailTimeoutSec) * time.Second,
		now:          time.Now,
		newReference: uuid.NewString,
	}
}

// Configured reports whether submissions can be delivered at all.
func (submissionService *SubmissionService) Configured() bool {
	return submissionService.configured &&
		strings.TrimSpace(submissionService.from.Email) != "" &&
		strings.TrimSpace(submissionService.recipient) != ""
}

// SubmitContact validates and delivers a contact inquiry.
func (submissionService *SubmissionService) SubmitContact(ctx context.Context, submission model.ContactSubmission) (Receipt, error) {
	submission.Normalize()
	if missingFields := submission.MissingFields(); len(missingFields) > 0 {
		return Receipt{}, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missingFields, ", "))
	}

	validationErr := submissionService.validator.Validate(
		validation.Field{Name: "name", Value: submission.Name},
		validation.Field{Name: "email", Value: submission.Email},
		validation.Field{Name: "phone", Value: submission.Phone},
		validation.Field{Name: "subject", Value: submission.Subject},
		validation.Field{Name: "message", Value: submission.Message},
	)
	fieldErrors := collectFieldErrors(validationErr)
	if !submission.Priority.Valid() {
		fieldErrors = append(fieldErrors, validation.FieldError{Field: "priority", Message: "Please select a valid priority"})
	}
	if !submission.PreferredContact.Valid() {
		fieldErrors = append(fieldErrors, validation.FieldError{Field: "preferredContact", Message: "Please select a valid contact method"})
	}
	if len(fieldErrors) > 0 {
		return Receipt{}, fieldErrors
	}

	if !submissionService.Configured() {
		submissionService.logger.Error("contact_rejected_unconfigured", "provider", submissionService.provider)
		return Receipt{}, ErrServiceNotConfigured
	}

	referenceID := submissionService.newReference()
	body, composeErr := composeContact(submission, referenceID, submissionService.now())
	if composeErr != nil {
		return Receipt{}, fmt.Errorf("compose contact email: %w", composeErr)
	}

	message := submissionService.message(submission.Email, body, nil)
	if err := submissionService.deliver(ctx, model.SubmissionContact, referenceID, message); err != nil {
		return Receipt{}, err
	}
	return Receipt{ReferenceID: referenceID}, nil
}

// SubmitReport validates and delivers an incident report with its documents.
func (submissionService *SubmissionService) SubmitReport(ctx context.Context, submission model.ReportSubmission) (Receipt, error) {
	submission.Normalize()
	if missingFields := submission.MissingFields(); len(missingFields) > 0 {
		return Receipt{}, fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missingFields, ", "))
	}

	validationErr := submissionService.validator.Validate(
		validation.Field{Name: "firstName", Value: submission.FirstName},
		validation.Field{Name: "lastName", Value: submission.LastName},
		validation.Field{Name: "email", Value: submission.Email},
		validation.Field{Name: "phone", Value: submission.Phone},
		validation.Field{Name: "incidentType", Value: string(submission.IncidentType)},
		validation.Field{Name: "incidentDate", Value: submission.IncidentDate},
		validation.Field{Name: "description", Value: submission.Description},
	)
	fieldErrors := collectFieldErrors(validationErr)
	if !submission.IncidentType.Valid() {
		fieldErrors = append(fieldErrors, validation.FieldError{Field: "incidentType", Message: "Please select a valid incident type"})
	}
	if len(fieldErrors) > 0 {
		return Receipt{}, fieldErrors
	}

	attachments, documentsErr := decodeDocuments(submission.Documents)
	if documentsErr != nil {
		return Receipt{}, documentsErr
	}

	if !submissionService.Configured() {
		submissionService.logger.Error("report_rejected_unconfigured", "provider", submissionService.provider)
		return Receipt{}, ErrServiceNotConfigured
	}

	referenceID := submissionService.newReference()
	body, composeErr := composeReport(submission, len(attachments), referenceID, submissionService.now())
	if composeErr != nil {
		return Receipt{}, fmt.Errorf("compose report email: %w", composeErr)
	}

	message := submissionService.message(submission.Email, body, attachments)
	if err := submissionService.deliver(ctx, model.SubmissionReport, referenceID, message); err != nil {
		return Receipt{}, err
	}
	return Receipt{ReferenceID: referenceID}, nil
}

func (submissionService *SubmissionService) message(replyTo string, body composedBody, attachments []mail.Attachment) mail.Message {
	return mail.Message{
		To:          mail.Address{Email: submissionService.recipient},
		From:        submissionService.from,
		ReplyTo:     replyTo,
		Subject:     body.Subject,
		HTMLBody:    body.HTML,
		TextBody:    body.Text,
		Attachments: attachments,
	}
}

// deliver makes exactly one send attempt and journals the outcome.
func (submissionService *SubmissionService) deliver(ctx context.Context, kind model.SubmissionKind, referenceID string, message mail.Message) error {
	sendCtx := ctx
	if submissionService.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, submissionService.timeout)
		defer cancel()
	}

	sendErr := submissionService.sender.Send(sendCtx, message)

	delivery := journal.Delivery{
		ReferenceID: referenceID,
		Kind:        string(kind),
		Status:      journal.StatusSent,
		Provider:    submissionService.provider,
		Attachments: len(message.Attachments),
		CreatedAt:   submissionService.now().UTC(),
	}
	if sendErr != nil {
		delivery.Status = journal.StatusFailed
		delivery.FailureKind = string(mail.KindOf(sendErr))
		submissionService.logger.Error("submission_delivery_failed",
			"kind", kind,
			"reference_id", referenceID,
			"failure_kind", delivery.FailureKind,
			"error", sendErr,
		)
	} else {
		submissionService.logger.Info("submission_delivered", "kind", kind, "reference_id", referenceID, "attachments", delivery.Attachments)
	}

	if submissionService.recorder != nil {
		if recordErr := submissionService.recorder.Record(context.WithoutCancel(ctx), delivery); recordErr != nil {
			submissionService.logger.Warn("journal_record_failed", "reference_id", referenceID, "error", recordErr)
		}
	}
	return sendErr
}

func collectFieldErrors(err error) validation.Errors {
	var fieldErrors validation.Errors
	if errors.As(err, &fieldErrors) {
		return fieldErrors
	}
	return nil
}
