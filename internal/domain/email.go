package domain

import "context"

// Mailer delivers one message to every recipient in to.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// ImportSummaryEmailData holds data for the import summary email.
type ImportSummaryEmailData struct {
	To     []string
	Result *ImportResult
	// Failure is set when the run aborted; Result then holds the counts reached before the error.
	Failure string
}

// ReportService sends run reports to the people operating the importer.
type ReportService interface {
	SendImportSummary(ctx context.Context, data *ImportSummaryEmailData) error
}
