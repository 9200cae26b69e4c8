package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusnotes/notes-api/internal/dto"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
)

type catalogStub struct {
	rows []dto.NoteRow
}

func (s *catalogStub) ListCatalog(ctx context.Context) ([]dto.NoteRow, error) {
	return s.rows, nil
}

func newCatalogRows() []dto.NoteRow {
	return []dto.NoteRow{
		{Title: "Unit 1", SubjectName: "Signals", BranchCode: "ECE", Semester: 3, UploaderName: "Dr. Rao", CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		{Title: "Unit 2", SubjectName: "Signals", BranchCode: "ECE", Semester: 3, UploaderName: "Dr. Rao", CreatedAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)},
	}
}

func TestExportServiceCatalogCSV(t *testing.T) {
	svc := NewExportService(&catalogStub{rows: newCatalogRows()}, zap.NewNop())

	result, err := svc.ExportCatalog(context.Background(), "csv")
	require.NoError(t, err)
	require.Equal(t, "text/csv", result.ContentType)
	require.Equal(t, "notes-catalog.csv", result.Filename)

	content := string(result.Content)
	require.True(t, strings.HasPrefix(content, "Title,Subject,Branch,Semester"))
	require.Contains(t, content, "Unit 1,Signals,ECE,3,Dr. Rao")
}

func TestExportServiceCatalogPDF(t *testing.T) {
	svc := NewExportService(&catalogStub{rows: newCatalogRows()}, zap.NewNop())

	result, err := svc.ExportCatalog(context.Background(), "pdf")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", result.ContentType)
	require.True(t, bytes.HasPrefix(result.Content, []byte("%PDF")))
}

func TestExportServiceDefaultsToCSV(t *testing.T) {
	svc := NewExportService(&catalogStub{}, zap.NewNop())

	result, err := svc.ExportCatalog(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "text/csv", result.ContentType)
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&catalogStub{}, zap.NewNop())

	_, err := svc.ExportCatalog(context.Background(), "xlsx")
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
