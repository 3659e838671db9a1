package service

import (
	"encoding/base64"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/tyemirov/cyberhelp/internal/mail"
	"github.com/tyemirov/cyberhelp/internal/model"
	"github.com/tyemirov/cyberhelp/internal/validation"
)

const (
	maxDocumentCount           = 10
	maxDocumentSizeBytes       = 10 * 1024 * 1024 // 10 MiB per file
	maxTotalDocumentSizeBytes  = 25 * 1024 * 1024 // 25 MiB aggregate cap
	defaultDocumentContentType = "application/octet-stream"
	documentsField             = "documents"
)

var allowedDocumentExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// decodeDocuments turns uploaded documents into mail attachments. Any violation is reported as a
// validation error on the documents field.
func decodeDocuments(documents []model.Document) ([]mail.Attachment, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	if len(documents) > maxDocumentCount {
		return nil, validation.Invalid(documentsField, fmt.Sprintf("You can upload at most %d files", maxDocumentCount))
	}

	totalSize := 0
	attachments := make([]mail.Attachment, 0, len(documents))
	for index, document := range documents {
		filename := strings.TrimSpace(filepath.Base(strings.ReplaceAll(document.Filename, "\\", "/")))
		if filename == "" || filename == "." || filename == "/" {
			return nil, validation.Invalid(documentsField, fmt.Sprintf("File %d is missing a filename", index+1))
		}
		extension := strings.ToLower(filepath.Ext(filename))
		if _, allowed := allowedDocumentExtensions[extension]; !allowed {
			return nil, validation.Invalid(documentsField, fmt.Sprintf("%s has an unsupported file type", filename))
		}

		data, decodeErr := decodeBase64Content(document.Content)
		if decodeErr != nil {
			return nil, validation.Invalid(documentsField, fmt.Sprintf("%s could not be decoded", filename))
		}
		if len(data) == 0 {
			return nil, validation.Invalid(documentsField, fmt.Sprintf("%s is empty", filename))
		}
		if len(data) > maxDocumentSizeBytes {
			return nil, validation.Invalid(documentsField, fmt.Sprintf("%s is larger than 10MB", filename))
		}
		totalSize += len(data)

		attachments = append(attachments, mail.Attachment{
			Filename:    filename,
			ContentType: documentContentType(document.ContentType, extension),
			Data:        data,
		})
	}

	if totalSize > maxTotalDocumentSizeBytes {
		return nil, validation.Invalid(documentsField, "Uploaded files exceed the 25MB total limit")
	}
	return attachments, nil
}

// decodeBase64Content accepts raw base64 or a data URL.
func decodeBase64Content(content string) ([]byte, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "data:") {
		if separator := strings.Index(trimmed, ","); separator >= 0 {
			trimmed = trimmed[separator+1:]
		}
	}
	trimmed = strings.Join(strings.Fields(trimmed), "")
	if data, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(trimmed, "="))
}

// documentContentType keeps only the bare media type of a declared value. Parameters and anything
// that does not parse as type/subtype are dropped in favour of the extension's type.
func documentContentType(declared string, extension string) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && strings.Count(mediaType, "/") == 1 {
		return mediaType
	}
	if known, found := allowedDocumentExtensions[extension]; found {
		return known
	}
	if guessed := mime.TypeByExtension(extension); guessed != "" {
		return guessed
	}
	return defaultDocumentContentType
}
