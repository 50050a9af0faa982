package expense

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/frahmantamala/expense-tracker/internal"
)

const exportSheet = "Expenses"

var exportHeaders = []string{"Date", "Category", "Description", "Amount", "Added"}

// Export writes the scope's expenses as an xlsx workbook, newest date first
// as the repository orders them.
func (s *Service) Export(ctx context.Context, scope internal.Scope, w io.Writer) error {
	rows, err := s.repo.List(ctx, scope, ListFilter{})
	if err != nil {
		s.logger.Error("failed to list expenses for export", "error", err)
		return internal.NewInternalError("failed to list expenses", err)
	}

	names := make(map[string]string)
	if s.categories != nil {
		categories, err := s.categories.List(ctx, scope)
		if err != nil {
			s.logger.Error("failed to list categories for export", "error", err)
			return internal.NewInternalError("failed to list categories", err)
		}
		for _, c := range categories {
			names[c.ID] = c.Name
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return internal.NewInternalError("failed to create sheet", err)
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	for idx, e := range rows {
		row := idx + 2
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("A%d", row), e.Date)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("B%d", row), names[e.CategoryID])
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("C%d", row), e.Description)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("D%d", row), e.Amount)
		_ = f.SetCellValue(exportSheet, fmt.Sprintf("E%d", row), e.Added.UTC().Format("2006-01-02 15:04:05"))
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 12)
	_ = f.SetColWidth(exportSheet, "B", "B", 18)
	_ = f.SetColWidth(exportSheet, "C", "C", 40)
	_ = f.SetColWidth(exportSheet, "D", "D", 12)
	_ = f.SetColWidth(exportSheet, "E", "E", 20)

	if err := f.Write(w); err != nil {
		return internal.NewInternalError("failed to write workbook", err)
	}
	s.logger.Info("expenses exported", "count", len(rows))
	return nil
}
