package service

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/tyemirov/cyberhelp/internal/model"
)

const (
	contactSubjectPrefix = "New Contact Form Submission: "
	reportSubjectPrefix  = "New Report Received on Cyber Helpdesk: "
	notProvided          = "Not provided"
	timestampLayout      = "2006-01-02 15:04:05 MST"
)

var templateFunctions = map[string]any{
	"orDefault": func(value string) string {
		if strings.TrimSpace(value) == "" {
			return notProvided
		}
		return value
	},
}

// breaks escapes value and turns newlines into <br> elements.
func breaks(value string) htmltemplate.HTML {
	normalized := strings.ReplaceAll(value, "\r\n", "\n")
	return htmltemplate.HTML(strings.ReplaceAll(htmltemplate.HTMLEscapeString(normalized), "\n", "<br>"))
}

var contactHTMLTemplate = htmltemplate.Must(htmltemplate.New("contact_html").
	Funcs(htmltemplate.FuncMap(templateFunctions)).
	Funcs(htmltemplate.FuncMap{"breaks": breaks}).
	Parse(`<h2>New Contact Form Submission</h2>
<h3>Contact Details:</h3>
<p><strong>Name:</strong> {{.Submission.Name}}</p>
<p><strong>Email:</strong> {{.Submission.Email}}</p>
<p><strong>Phone:</strong> {{orDefault .Submission.Phone}}</p>
<p><strong>Company:</strong> {{orDefault .Submission.Company}}</p>
<p><strong>Subject:</strong> {{.Submission.Subject}}</p>
<p><strong>Priority:</strong> {{.Submission.Priority}}</p>
<p><strong>Preferred Contact:</strong> {{.Submission.PreferredContact}}</p>
<h3>Message:</h3>
<p>{{breaks .Submission.Message}}</p>
<hr>
<p><small>This message was submitted through the CyberHelp Desk contact form at {{.Timestamp}}. Reference: {{.ReferenceID}}</small></p>
`))

var contactTextTemplate = texttemplate.Must(texttemplate.New("contact_text").
	Funcs(texttemplate.FuncMap(templateFunctions)).
	Parse(`New Contact Form Submission

Name: {{.Submission.Name}}
Email: {{.Submission.Email}}
Phone: {{orDefault .Submission.Phone}}
Company: {{orDefault .Submission.Company}}
Subject: {{.Submission.Subject}}
Priority: {{.Submission.Priority}}
Preferred Contact: {{.Submission.PreferredContact}}

Message:
{{.Submission.Message}}

Submitted at {{.Timestamp}}. Reference: {{.ReferenceID}}
`))

var reportHTMLTemplate = htmltemplate.Must(htmltemplate.New("report_html").
	Funcs(htmltemplate.FuncMap(templateFunctions)).
	Funcs(htmltemplate.FuncMap{"breaks": breaks}).
	Parse(`<h2>New Cyber Crime Report Submission</h2>
<h3>Personal Information:</h3>
<p><strong>Name:</strong> {{.Submission.FullName}}</p>
<p><strong>Email:</strong> {{.Submission.Email}}</p>
<p><strong>Phone:</strong> {{orDefault .Submission.Phone}}</p>
<h3>Incident Details:</h3>
<p><strong>Type:</strong> {{.IncidentLabel}}</p>
<p><strong>Date:</strong> {{orDefault .Submission.IncidentDate}}</p>
<p><strong>Description:</strong></p>
<p>{{breaks .Submission.Description}}</p>
<h3>Additional Information:</h3>
<p><strong>Documents Uploaded:</strong> {{.DocumentCount}} files</p>
<hr>
<p><small>This report was submitted through the CyberHelp Desk website at {{.Timestamp}}. Reference: {{.ReferenceID}}</small></p>
`))

var reportTextTemplate = texttemplate.Must(texttemplate.New("report_text").
	Funcs(texttemplate.FuncMap(templateFunctions)).
	Parse(`New Cyber Crime Report Submission

Name: {{.Submission.FullName}}
Email: {{.Submission.Email}}
Phone: {{orDefault .Submission.Phone}}

Type: {{.IncidentLabel}}
Date: {{orDefault .Submission.IncidentDate}}
Description:
{{.Submission.Description}}

Documents Uploaded: {{.DocumentCount}} files

Submitted at {{.Timestamp}}. Reference: {{.ReferenceID}}
`))

type contactView struct {
	Submission  model.ContactSubmission
	ReferenceID string
	Timestamp   string
}

type reportView struct {
	Submission    model.ReportSubmission
	IncidentLabel string
	DocumentCount int
	ReferenceID   string
	Timestamp     string
}

type composedBody struct {
	Subject string
	HTML    string
	Text    string
}

func composeContact(submission model.ContactSubmission, referenceID string, submittedAt time.Time) (composedBody, error) {
	view := contactView{Submission: submission, ReferenceID: referenceID, Timestamp: submittedAt.Format(timestampLayout)}
	var htmlBuffer, textBuffer bytes.Buffer
	if err := contactHTMLTemplate.Execute(&htmlBuffer, view); err != nil {
		return composedBody{}, err
	}
	if err := contactTextTemplate.Execute(&textBuffer, view); err != nil {
		return composedBody{}, err
	}
	return composedBody{
		Subject: contactSubjectPrefix + submission.Subject,
		HTML:    htmlBuffer.String(),
		Text:    textBuffer.String(),
	}, nil
}

func composeReport(submission model.ReportSubmission, documentCount int, referenceID string, submittedAt time.Time) (composedBody, error) {
	view := reportView{
		Submission:    submission,
		IncidentLabel: submission.IncidentType.Label(),
		DocumentCount: documentCount,
		ReferenceID:   referenceID,
		Timestamp:     submittedAt.Format(timestampLayout),
	}
	var htmlBuffer, textBuffer bytes.Buffer
	if err := reportHTMLTemplate.Execute(&htmlBuffer, view); err != nil {
		return composedBody{}, err
	}
	if err := reportTextTemplate.Execute(&textBuffer, view); err != nil {
		return composedBody{}, err
	}
	return composedBody{
		Subject: reportSubjectPrefix + view.IncidentLabel,
		HTML:    htmlBuffer.String(),
		Text:    textBuffer.String(),
	}, nil
}
