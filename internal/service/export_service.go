package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"

	"github.com/noah-isme/guardian-portal-api/internal/dto"
	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
)

type delinquencyProvider interface {
	Stats(ctx context.Context, tenant models.Tenant) (*dto.GuardianStats, bool, error)
	Delinquents(ctx context.Context, tenant models.Tenant) ([]models.Guardian, error)
}

// ExportService renders financial summaries as downloadable documents.
type ExportService struct {
	guardians delinquencyProvider
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an export service.
func NewExportService(guardians delinquencyProvider, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{guardians: guardians, logger: logger, now: time.Now}
}

// DelinquencyReport renders the tenant's delinquency summary and the
// list of guardians with open invoices as a PDF.
func (s *ExportService) DelinquencyReport(ctx context.Context, tenant models.Tenant) ([]byte, error) {
	stats, _, err := s.guardians.Stats(ctx, tenant)
	if err != nil {
		return nil, err
	}
	delinquents, err := s.guardians.Delinquents(ctx, tenant)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Delinquency Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Delinquency Report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Generated %s", s.now().UTC().Format("2006-01-02 15:04 MST")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	summary := [][2]string{
		{"Guardians", fmt.Sprintf("%d", stats.TotalGuardians)},
		{"Students", fmt.Sprintf("%d", stats.TotalStudents)},
		{"Delinquent guardians", fmt.Sprintf("%d (%.2f%%)", stats.Financial.DelinquentGuardians, stats.Financial.DelinquencyRate)},
		{"Open invoices", fmt.Sprintf("%d", stats.Financial.OpenInvoices)},
		{"Total pending value", fmt.Sprintf("%.2f", stats.Financial.TotalPendingValue)},
	}
	for _, row := range summary {
		pdf.Cell(60, 6, row[0])
		pdf.Cell(0, 6, row[1])
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Guardians with open invoices")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.Cell(70, 6, "Name")
	pdf.Cell(50, 6, "Phone")
	pdf.Cell(25, 6, "Open")
	pdf.Cell(0, 6, "Pending")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 9)
	for _, guardian := range delinquents {
		pdf.Cell(70, 6, guardian.Name)
		pdf.Cell(50, 6, guardian.Phone)
		pdf.Cell(25, 6, fmt.Sprintf("%d", guardian.Situation.OpenInvoiceCount))
		pdf.Cell(0, 6, fmt.Sprintf("%.2f", guardian.Situation.OpenInvoiceTotal))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error("delinquency report render failed", zap.String("tenant_id", tenant.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return buf.Bytes(), nil
}
