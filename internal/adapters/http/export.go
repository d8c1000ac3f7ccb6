package httpadapter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

// BuildReportWorkbook renders a composed report as an XLSX audit document:
// a summary sheet, deduplicated standards, priority actions, and the per-room
// breakdown. The caller owns Close.
func BuildReportWorkbook(report *domain.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := writeSummarySheet(f, report); err != nil {
		return nil, err
	}
	if err := writeStandardsSheet(f, report.Standards); err != nil {
		return nil, err
	}
	if err := writeActionsSheet(f, report.PriorityActions); err != nil {
		return nil, err
	}
	if err := writeRoomsSheet(f, report.Rooms); err != nil {
		return nil, err
	}

	// Replace the default sheet with Summary as the first tab.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	index, err := f.GetSheetIndex("Summary")
	if err != nil {
		return nil, fmt.Errorf("locate summary sheet: %w", err)
	}
	f.SetActiveSheet(index)
	return f, nil
}

func writeSummarySheet(f *excelize.File, report *domain.Report) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	scopes := make([]string, len(report.Scope))
	for i, s := range report.Scope {
		scopes[i] = string(s)
	}

	rows := [][]any{
		{"HSE Compliance Audit Report"},
		{},
		{"Company", report.CompanyName},
		{"Site", report.SiteName},
		{"Inspector", report.InspectorName},
		{"Date", report.InspectionDate},
		{"Location", report.GeoLocation},
		{"Scope", strings.Join(scopes, ", ")},
		{},
		{"Overall Score", report.AverageScore},
		{"Rooms Inspected", len(report.Rooms)},
		{"Rooms With Failures", report.FailedRooms},
	}
	if err := writeRows(f, sheet, rows, 1); err != nil {
		return err
	}

	if len(report.CategorySummary) > 0 {
		start := len(rows) + 2
		catRows := [][]any{{"Category", "Mean Score", "Captures", "Issues"}}
		for _, cat := range report.CategorySummary {
			catRows = append(catRows, []any{cat.Category, cat.MeanScore, cat.Captures, cat.IssueCount})
		}
		if err := writeRows(f, sheet, catRows, start); err != nil {
			return err
		}
	}
	return nil
}

func writeStandardsSheet(f *excelize.File, standards []domain.Standard) error {
	const sheet = "Standards"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	rows := [][]any{{"Standard", "Description"}}
	for _, std := range standards {
		rows = append(rows, []any{std.StandardID, std.Description})
	}
	return writeRows(f, sheet, rows, 1)
}

func writeActionsSheet(f *excelize.File, actions []domain.PriorityAction) error {
	const sheet = "Priority Actions"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	rows := [][]any{{"Room", "Issue", "Type", "Risk", "Recommendation"}}
	for _, action := range actions {
		rows = append(rows, []any{
			action.RoomName,
			action.Finding.Issue,
			string(action.Finding.Type),
			string(action.Finding.Risk),
			action.Finding.Recommendation,
		})
	}
	return writeRows(f, sheet, rows, 1)
}

func writeRoomsSheet(f *excelize.File, rooms []domain.RoomSummary) error {
	const sheet = "Rooms"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	rows := [][]any{{"Room", "Department", "Status", "Mean Score", "Captures", "Failed", "Pending", "Evacuation Plan"}}
	for _, room := range rooms {
		plan := "no"
		if room.HasPlan {
			plan = "yes"
		}
		rows = append(rows, []any{
			room.Name, room.Department, string(room.Status),
			room.MeanScore, room.Captures, room.FailedCount, room.PendingCount, plan,
		})
	}
	return writeRows(f, sheet, rows, 1)
}

func writeRows(f *excelize.File, sheet string, rows [][]any, startRow int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d on %s: %w", startRow+i, sheet, err)
		}
	}
	return nil
}
