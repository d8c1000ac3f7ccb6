package httpadapter

import (
	"testing"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

func sampleReport() *domain.Report {
	return &domain.Report{
		InspectionID:   "insp-1",
		CompanyName:    "Acme",
		SiteName:       "Plant 1",
		InspectorName:  "J. Doe",
		InspectionDate: "2026-08-31",
		Scope:          []domain.Scope{domain.ScopeOHS, domain.ScopeFacility},
		AverageScore:   74.5,
		Standards: []domain.Standard{
			{StandardID: "ISO 45001", Description: "Occupational health and safety"},
		},
		CategorySummary: []domain.CategoryStat{
			{Category: "Electrical", MeanScore: 62, Captures: 3, IssueCount: 2},
		},
		PriorityActions: []domain.PriorityAction{
			{RoomName: "Workshop", Finding: domain.Finding{
				Issue: "no machine guard", Type: domain.FindingSafetyHazard, Risk: domain.RiskHigh,
				Recommendation: "Install fixed guard",
			}},
		},
		Rooms: []domain.RoomSummary{
			{RoomID: "r1", Name: "Workshop", Department: "Production",
				Status: domain.RoomStatusAnalyzed, MeanScore: 74.5, Captures: 2, HasPlan: true},
		},
		FailedRooms: 0,
	}
}

func TestBuildReportWorkbookLaysOutSheets(t *testing.T) {
	f, err := BuildReportWorkbook(sampleReport())
	if err != nil {
		t.Fatalf("BuildReportWorkbook() error = %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"Summary", "Standards", "Priority Actions", "Rooms"}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for _, name := range want {
		if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
			t.Fatalf("missing sheet %q (idx=%d err=%v)", name, idx, err)
		}
	}

	if title, _ := f.GetCellValue("Summary", "A1"); title != "HSE Compliance Audit Report" {
		t.Fatalf("unexpected title: %q", title)
	}
	if company, _ := f.GetCellValue("Summary", "B3"); company != "Acme" {
		t.Fatalf("unexpected company cell: %q", company)
	}
	if std, _ := f.GetCellValue("Standards", "A2"); std != "ISO 45001" {
		t.Fatalf("unexpected standard cell: %q", std)
	}
	if issue, _ := f.GetCellValue("Priority Actions", "B2"); issue != "no machine guard" {
		t.Fatalf("unexpected action cell: %q", issue)
	}
	if plan, _ := f.GetCellValue("Rooms", "H2"); plan != "yes" {
		t.Fatalf("unexpected plan cell: %q", plan)
	}
}

func TestBuildReportWorkbookWithoutCategorySummary(t *testing.T) {
	report := sampleReport()
	report.CategorySummary = nil

	f, err := BuildReportWorkbook(report)
	if err != nil {
		t.Fatalf("BuildReportWorkbook() error = %v", err)
	}
	defer f.Close()

	// Row 14 holds the category header when a summary is present.
	if header, _ := f.GetCellValue("Summary", "A14"); header != "" {
		t.Fatalf("expected no category table, found %q", header)
	}
}
