package reconcile

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportHistoryRows formats update log entries into CSV-ready strings.
func ExportHistoryRows(entries []UpdateLogEntry) [][]string {
	out := make([][]string, 0, len(entries)+1)
	header := []string{"Timestamp", "Project", "Impact", "Margin Delta", "Categories", "Costs Before", "Costs After", "Margin % After"}
	out = append(out, header)
	for _, entry := range entries {
		out = append(out, []string{
			entry.Timestamp.Format(time.RFC3339),
			entry.ProjectID,
			string(entry.ImpactLevel),
			fmt.Sprintf("%.2f", entry.MarginDelta),
			fmt.Sprintf("%d", entry.UpdatedCategories),
			fmt.Sprintf("%.2f", entry.BeforeMetrics.TotalCosts),
			fmt.Sprintf("%.2f", entry.AfterMetrics.TotalCosts),
			fmt.Sprintf("%.2f", entry.AfterMetrics.MarginPct),
		})
	}
	return out
}

// ExportHistoryWorkbook renders the update log as an Excel workbook.
func ExportHistoryWorkbook(planID string, entries []UpdateLogEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Update History"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	rows := ExportHistoryRows(entries)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellValue(sheet, "J1", fmt.Sprintf("Plan %s", planID)); err != nil {
		return nil, err
	}
	return f, nil
}
