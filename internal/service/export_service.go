package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/campusnotes/notes-api/internal/dto"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
	"github.com/campusnotes/notes-api/pkg/export"
)

type catalogRepository interface {
	ListCatalog(ctx context.Context) ([]dto.NoteRow, error)
}

// Export formats supported by the catalog export endpoint.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportResult bundles the rendered document with its response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders the note catalog for administrative reporting.
type ExportService struct {
	repo   catalogRepository
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService creates a new export service.
func NewExportService(repo catalogRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// ExportCatalog renders every note's metadata in the requested format.
func (s *ExportService) ExportCatalog(ctx context.Context, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	rows, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note catalog")
	}

	dataset := catalogDataset(rows)

	switch format {
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, "Notes Catalog")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: "notes-catalog.pdf"}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: "notes-catalog.csv"}, nil
	}
}

func catalogDataset(rows []dto.NoteRow) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Title", "Subject", "Branch", "Semester", "Uploaded By", "Uploaded At"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, []string{
			row.Title,
			row.SubjectName,
			row.BranchCode,
			strconv.Itoa(row.Semester),
			row.UploaderName,
			row.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return dataset
}
