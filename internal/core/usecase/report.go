package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/complyguard/inspection-server/internal/core/domain"
	"github.com/complyguard/inspection-server/internal/core/ports"
)

const maxPriorityActions = 5

// ReportComposer derives report projections from the room collection. Pure
// read side: nothing here mutates inspection state.
type ReportComposer struct {
	repo ports.InspectionRepository
}

func NewReportComposer(repo ports.InspectionRepository) *ReportComposer {
	return &ReportComposer{repo: repo}
}

func (rc *ReportComposer) Compose(ctx context.Context, userID, inspectionID string) (*domain.Report, error) {
	insp, err := rc.repo.GetByID(ctx, userID, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("load inspection: %w", err)
	}
	report := ComposeReport(insp)
	return &report, nil
}

// ComposeReport builds the full projection for one inspection.
func ComposeReport(insp *domain.Inspection) domain.Report {
	report := domain.Report{
		InspectionID:    insp.ID,
		CompanyName:     insp.CompanyName,
		SiteName:        insp.SiteName,
		InspectorName:   insp.InspectorName,
		InspectionDate:  insp.InspectionDate,
		GeoLocation:     insp.GeoLocation,
		Scope:           insp.Scope,
		AverageScore:    AverageScore(insp.Rooms),
		Standards:       DedupStandards(insp.Rooms),
		PriorityActions: PriorityActions(insp.Rooms),
	}
	if domain.HasScope(insp.Scope, domain.ScopeFacility) {
		report.CategorySummary = CategorySummary(insp.Rooms)
	}
	for _, room := range insp.Rooms {
		summary := summarizeRoom(room)
		if summary.FailedCount > 0 {
			report.FailedRooms++
		}
		report.Rooms = append(report.Rooms, summary)
	}
	return report
}

// AverageScore is the mean over captures that have an analysis. Errored and
// pending captures are ignored; with zero qualifying captures it is 0.
func AverageScore(rooms []domain.Room) float64 {
	var sum float64
	var count int
	for _, room := range rooms {
		for _, c := range room.Captures {
			if c.Analysis == nil {
				continue
			}
			sum += c.Analysis.Score
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return math.Round(sum/float64(count)*10) / 10
}

// DedupStandards collapses all relevant standards across the inspection,
// last write wins per standard ID, preserving first-seen order.
func DedupStandards(rooms []domain.Room) []domain.Standard {
	var order []string
	byID := make(map[string]domain.Standard)
	for _, room := range rooms {
		for _, c := range room.Captures {
			if c.Analysis == nil {
				continue
			}
			for _, std := range c.Analysis.RelevantStandards {
				if _, seen := byID[std.StandardID]; !seen {
					order = append(order, std.StandardID)
				}
				byID[std.StandardID] = std
			}
		}
	}
	out := make([]domain.Standard, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// CategorySummary groups analyzed captures by category (default "General"),
// with per-bucket mean score and count of findings that are not in good
// condition. Facility-scope reports only.
func CategorySummary(rooms []domain.Room) []domain.CategoryStat {
	type bucket struct {
		scoreSum float64
		count    int
		issues   int
	}
	var order []string
	buckets := make(map[string]*bucket)
	for _, room := range rooms {
		for _, c := range room.Captures {
			if c.Analysis == nil {
				continue
			}
			cat := c.Analysis.Category
			if cat == "" {
				cat = "General"
			}
			b, ok := buckets[cat]
			if !ok {
				b = &bucket{}
				buckets[cat] = b
				order = append(order, cat)
			}
			b.scoreSum += c.Analysis.Score
			b.count++
			for _, f := range c.Analysis.DetailedFindings {
				if f.Type != domain.FindingGoodCondition {
					b.issues++
				}
			}
		}
	}
	out := make([]domain.CategoryStat, 0, len(order))
	for _, cat := range order {
		b := buckets[cat]
		out = append(out, domain.CategoryStat{
			Category:   cat,
			MeanScore:  math.Round(b.scoreSum/float64(b.count)*10) / 10,
			Captures:   b.count,
			IssueCount: b.issues,
		})
	}
	return out
}

// PriorityActions collects findings with high risk or safety-hazard type, in
// encounter order (room, capture, finding), truncated to the first five. No
// severity sort beyond the filter.
func PriorityActions(rooms []domain.Room) []domain.PriorityAction {
	var out []domain.PriorityAction
	for _, room := range rooms {
		for _, c := range room.Captures {
			if c.Analysis == nil {
				continue
			}
			for _, f := range c.Analysis.DetailedFindings {
				if f.Risk != domain.RiskHigh && f.Type != domain.FindingSafetyHazard {
					continue
				}
				out = append(out, domain.PriorityAction{RoomName: room.Name, Finding: f})
				if len(out) == maxPriorityActions {
					return out
				}
			}
		}
	}
	return out
}

func summarizeRoom(room domain.Room) domain.RoomSummary {
	summary := domain.RoomSummary{
		RoomID:     room.ID,
		Name:       room.Name,
		Department: room.Department,
		Status:     room.Status,
		Captures:   len(room.Captures),
		HasPlan:    room.EvacuationPlan != "",
	}
	var sum float64
	var analyzed int
	for _, c := range room.Captures {
		switch {
		case c.Analysis != nil:
			sum += c.Analysis.Score
			analyzed++
		case c.Failed():
			summary.FailedCount++
		default:
			summary.PendingCount++
		}
	}
	if analyzed > 0 {
		summary.MeanScore = math.Round(sum/float64(analyzed)*10) / 10
	}
	return summary
}
