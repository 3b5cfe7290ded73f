package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/careerplatform/admissions-api/internal/models"
	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
	"github.com/careerplatform/admissions-api/pkg/export"
)

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries the rendered document and response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders an institution's application list for download.
type ExportService struct {
	admissions *AdmissionService
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(admissions *AdmissionService, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{admissions: admissions, csv: csv, pdf: pdf, logger: logger}
}

// Applications renders the applications visible to the actor in the
// requested format. Scope enforcement is delegated to the admission
// service's listing.
func (s *ExportService) Applications(ctx context.Context, actor *models.JWTClaims, filter models.ApplicationFilter, format ExportFormat) (*ExportResult, error) {
	filter.Page = 1
	filter.PageSize = 1000
	applications, _, err := s.admissions.List(ctx, actor, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Course", "Status", "Applied", "Decided"},
		Rows:    make([]map[string]string, 0, len(applications)),
	}
	for _, app := range applications {
		decided := ""
		if app.DecidedAt != nil {
			decided = app.DecidedAt.Format(time.RFC3339)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student": app.StudentName,
			"Email":   app.StudentEmail,
			"Course":  app.CourseName,
			"Status":  string(app.Status),
			"Applied": app.CreatedAt.Format(time.RFC3339),
			"Decided": decided,
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	switch strings.ToLower(string(format)) {
	case string(ExportFormatCSV):
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: fmt.Sprintf("applications-%s.csv", stamp)}, nil
	case string(ExportFormatPDF):
		content, err := s.pdf.Render(dataset, "Student Applications")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: fmt.Sprintf("applications-%s.pdf", stamp)}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
