package services

import (
	"context"
	"fmt"
	"log/slog"

	"attendanceingest/internal/domain"
)

const importSummaryTemplate = "import_summary"

type reportService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewReportService returns a ReportService that uses the given Mailer and template renderer.
func NewReportService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.ReportService {
	return &reportService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendImportSummary mails the outcome of an import run using the "import_summary" template.
// Without recipients it does nothing.
func (s *reportService) SendImportSummary(ctx context.Context, data *domain.ImportSummaryEmailData) error {
	if data == nil || data.Result == nil {
		return fmt.Errorf("import summary data is nil")
	}
	if len(data.To) == 0 {
		return nil
	}
	subject, htmlBody, textBody, err := s.renderer.Render(importSummaryTemplate, data)
	if err != nil {
		return fmt.Errorf("render import summary: %w", err)
	}
	if err := s.mailer.Send(ctx, data.To, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send import summary: %w", err)
	}
	s.logger.Info("import summary sent", "run_id", data.Result.RunID.String(), "recipients", len(data.To))
	return nil
}
