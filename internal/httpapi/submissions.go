package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/cyberhelp/internal/mail"
	"github.com/tyemirov/cyberhelp/internal/model"
	"github.com/tyemirov/cyberhelp/internal/service"
	"github.com/tyemirov/cyberhelp/internal/validation"
)

const (
	messageMissingFields      = "Missing required fields"
	messageInvalidPayload     = "Invalid request payload"
	messageInvalidSubmission  = "Invalid submission"
	messageNotConfigured      = "Email service not configured"
	messageAuthFailed         = "Email service authentication failed."
	messageDomainIssue        = "Email service configuration issue. Please contact us directly."
	messageTrialSuffix        = " due to trial limitations. Please contact us directly."
	messagePayloadTooLarge    = "Request too large"
	messageTooManySubmissions = "Too many submissions. Please try again later."
	messageContactAccepted    = "Message sent successfully. We will get back to you within 24 hours."
	messageReportAccepted     = "Report submitted successfully. We will review it and contact you within 24-48 hours."
)

// route carries the per-endpoint response wording and status codes.
type route struct {
	name            string
	missingStatus   int
	successMessage  string
	failureMessage  string
	restrictedLabel string
}

var (
	contactRoute = route{
		name:            "contact",
		missingStatus:   http.StatusBadRequest,
		successMessage:  messageContactAccepted,
		failureMessage:  "Failed to send message",
		restrictedLabel: "Message could not be sent",
	}
	reportRoute = route{
		name:            "report",
		missingStatus:   http.StatusInternalServerError,
		successMessage:  messageReportAccepted,
		failureMessage:  "Failed to submit report",
		restrictedLabel: "Report could not be submitted",
	}
)

type submissionResponse struct {
	Success     bool                    `json:"success"`
	Message     string                  `json:"message"`
	ReferenceID string                  `json:"referenceId,omitempty"`
	Errors      []validation.FieldError `json:"errors,omitempty"`
}

type submissionHandler struct {
	service SubmissionService
	logger  *slog.Logger
}

func newSubmissionHandler(svc SubmissionService, logger *slog.Logger) *submissionHandler {
	return &submissionHandler{service: svc, logger: logger}
}

func (handler *submissionHandler) submitContact(contextGin *gin.Context) {
	var submission model.ContactSubmission
	if err := decodeJSON(contextGin.Request.Body, &submission); err != nil {
		handler.writeError(contextGin, contactRoute, err)
		return
	}
	receipt, err := handler.service.SubmitContact(contextGin.Request.Context(), submission)
	if err != nil {
		handler.writeError(contextGin, contactRoute, err)
		return
	}
	contextGin.JSON(http.StatusOK, submissionResponse{Success: true, Message: contactRoute.successMessage, ReferenceID: receipt.ReferenceID})
}

func (handler *submissionHandler) submitReport(contextGin *gin.Context) {
	var submission model.ReportSubmission
	if err := decodeJSON(contextGin.Request.Body, &submission); err != nil {
		handler.writeError(contextGin, reportRoute, err)
		return
	}
	receipt, err := handler.service.SubmitReport(contextGin.Request.Context(), submission)
	if err != nil {
		handler.writeError(contextGin, reportRoute, err)
		return
	}
	contextGin.JSON(http.StatusOK, submissionResponse{Success: true, Message: reportRoute.successMessage, ReferenceID: receipt.ReferenceID})
}

// decodeJSON reads one JSON object. Oversized bodies surface as *http.MaxBytesError.
func decodeJSON(body io.Reader, destination any) error {
	if err := json.NewDecoder(body).Decode(destination); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return errors.Join(service.ErrInvalidPayload, err)
	}
	return nil
}

func (handler *submissionHandler) writeError(contextGin *gin.Context, endpoint route, err error) {
	var fieldErrors validation.Errors
	var maxBytesErr *http.MaxBytesError
	var deliveryErr *mail.DeliveryError

	switch {
	case errors.As(err, &maxBytesErr):
		contextGin.JSON(http.StatusRequestEntityTooLarge, submissionResponse{Message: messagePayloadTooLarge})
	case errors.Is(err, service.ErrInvalidPayload):
		contextGin.JSON(http.StatusBadRequest, submissionResponse{Message: messageInvalidPayload})
	case errors.Is(err, service.ErrMissingFields):
		contextGin.JSON(endpoint.missingStatus, submissionResponse{Message: messageMissingFields})
	case errors.As(err, &fieldErrors):
		contextGin.JSON(http.StatusBadRequest, submissionResponse{Message: messageInvalidSubmission, Errors: fieldErrors})
	case errors.Is(err, service.ErrServiceNotConfigured):
		contextGin.JSON(http.StatusInternalServerError, submissionResponse{Message: messageNotConfigured})
	case errors.As(err, &deliveryErr):
		contextGin.JSON(http.StatusInternalServerError, submissionResponse{Message: deliveryFailureMessage(endpoint, deliveryErr.Kind)})
	default:
		handler.logger.Error("http_handler_error", "route", endpoint.name, "error", err)
		contextGin.JSON(http.StatusInternalServerError, submissionResponse{Message: endpoint.failureMessage})
	}
}

func deliveryFailureMessage(endpoint route, kind mail.FailureKind) string {
	switch kind {
	case mail.FailureUnauthorized:
		return messageAuthFailed
	case mail.FailureDomainUnverified:
		return messageDomainIssue
	case mail.FailureRecipientRestricted:
		return endpoint.restrictedLabel + messageTrialSuffix
	default:
		return endpoint.failureMessage
	}
}
