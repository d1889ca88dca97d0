package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/core/ports"
)

// Service produces XLSX workbooks for the review operations team.
type Service struct {
	results ports.ResultRepository
	docs    ports.DocumentRepository
	logger  *slog.Logger
}

func NewService(results ports.ResultRepository, docs ports.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{results: results, docs: docs, logger: logger}
}

// ManualReviewXLSX returns a workbook listing assessments flagged for manual
// review, highest fraud score first.
func (s *Service) ManualReviewXLSX(ctx context.Context, limit int) ([]byte, error) {
	start := time.Now()

	assessments, err := s.results.ListManualReview(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query manual review assessments: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Manual Review"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	defaultIndex, _ := f.GetSheetIndex("Sheet1")
	if defaultIndex != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Document ID",
		"Submission ID",
		"Category",
		"Filename",
		"Fraud Score",
		"Risk Tier",
		"Tampering",
		"Top Issues",
		"Review Notes",
		"Assessed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, a := range assessments {
		submissionID, category, filename := "", "", ""
		if doc, err := s.docs.GetByID(ctx, a.DocumentID); err == nil {
			submissionID = doc.SubmissionID
			category = string(doc.Category)
			filename = doc.Filename
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, a.DocumentID)
		write(2, submissionID)
		write(3, category)
		write(4, filename)
		write(5, a.FraudScore)
		write(6, string(a.RiskTier))
		write(7, a.TamperingDetected)
		write(8, truncate(topIssues(a.Issues), 140))
		write(9, truncate(a.ReviewNotes, 200))
		write(10, a.CreatedAt.UTC().Format(time.RFC3339))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "B", 38)
	_ = f.SetColWidth(sheet, "C", "D", 28)
	_ = f.SetColWidth(sheet, "E", "G", 12)
	_ = f.SetColWidth(sheet, "H", "I", 60)
	_ = f.SetColWidth(sheet, "J", "J", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(assessments),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func topIssues(issues []domain.FraudIssue) string {
	parts := make([]string, 0, 3)
	for _, issue := range issues {
		parts = append(parts, fmt.Sprintf("%s (%s)", issue.Description, issue.Severity))
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
