package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/complyguard/inspection-server/internal/core/domain"
	"github.com/complyguard/inspection-server/internal/core/ports"
)

// RoomAnalyzer runs one analysis pass over a room: optional evacuation plan
// generation, then a bounded fan-out over captures that still need work.
type RoomAnalyzer struct {
	vision ports.VisionAnalyzer
	// sem caps in-flight vision calls across ALL rooms, not per room:
	// the batch path analyzes rooms in parallel and every capture
	// goroutine must contend for the same slots.
	sem    chan struct{}
	logger *slog.Logger
}

func NewRoomAnalyzer(vision ports.VisionAnalyzer, maxConcurrent int, logger *slog.Logger) *RoomAnalyzer {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomAnalyzer{
		vision: vision,
		sem:    make(chan struct{}, maxConcurrent),
		logger: logger,
	}
}

// AnalyzeRoom returns the analyzed copy of room. Captures that already carry
// an analysis pass through untouched; pending and errored captures are sent
// to the vision model. A per-capture failure becomes that capture's error
// message and never fails the room. The returned room is always "analyzed":
// status records that processing was attempted, not that it fully succeeded.
func (ra *RoomAnalyzer) AnalyzeRoom(ctx context.Context, room domain.Room, scopes []domain.Scope, geoLocation string) domain.Room {
	ra.logger.Info("room_analysis_started",
		"room_id", room.ID,
		"room_name", room.Name,
		"captures", len(room.Captures),
	)

	if room.PlanRequested && room.EvacuationPlan == "" && len(room.Captures) > 0 {
		plan := ra.vision.GeneratePlanImage(ctx, room.Captures[0].OriginalImage)
		room.EvacuationPlan = plan.Image
		if !plan.Generated {
			ra.logger.Warn("plan_generation_fell_back", "room_id", room.ID)
		}
	}

	updated := make([]domain.Capture, len(room.Captures))
	var wg sync.WaitGroup

	for i, capture := range room.Captures {
		if capture.Analysis != nil {
			updated[i] = capture
			continue
		}

		wg.Add(1)
		go func(i int, capture domain.Capture) {
			defer wg.Done()
			ra.sem <- struct{}{}
			defer func() { <-ra.sem }()
			updated[i] = ra.analyzeCapture(ctx, capture, scopes, room, geoLocation)
		}(i, capture)
	}
	wg.Wait()

	failures := 0
	for _, c := range updated {
		if c.Failed() {
			failures++
		}
	}
	if failures > 0 {
		ra.logger.Warn("room_analysis_completed_with_errors",
			"room_id", room.ID, "failed", failures, "total", len(updated))
	} else {
		ra.logger.Info("room_analysis_completed", "room_id", room.ID)
	}

	room.Captures = updated
	room.Status = domain.RoomStatusAnalyzed
	return room
}

func (ra *RoomAnalyzer) analyzeCapture(ctx context.Context, capture domain.Capture, scopes []domain.Scope, room domain.Room, geoLocation string) domain.Capture {
	analysis, err := ra.vision.AnalyzeImage(ctx, ports.AnalysisRequest{
		Image:       capture.OriginalImage,
		Scopes:      scopes,
		RoomName:    room.Name,
		Department:  room.Department,
		GeoLocation: geoLocation,
	})
	if err != nil {
		ra.logger.Warn("capture_analysis_failed", "capture_id", capture.ID, "error", err)
		capture.Analysis = nil
		capture.Error = ClassifyAnalysisError(err)
		return capture
	}

	overlay, overlayErr := ra.vision.GenerateOverlay(ctx, capture.OriginalImage, scopes)
	if overlayErr != nil {
		// The overlay is decorative; keep the original image rather than
		// failing a capture whose analysis succeeded.
		overlay = capture.OriginalImage
	}

	capture.Analysis = analysis
	capture.OverlayImage = overlay
	capture.Error = ""
	return capture
}
