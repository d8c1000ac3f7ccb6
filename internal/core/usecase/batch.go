package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/complyguard/inspection-server/internal/core/domain"
	"github.com/complyguard/inspection-server/internal/core/ports"
	"github.com/complyguard/inspection-server/internal/core/workflow"
)

// BatchAnalyzeUseCase runs one pass over every room of an inspection that has
// not yet been successfully analyzed, fans the rooms out concurrently, merges
// the results back keyed by room ID, and persists the merged tree.
type BatchAnalyzeUseCase struct {
	repo     ports.InspectionRepository
	analyzer *RoomAnalyzer
	logger   *slog.Logger
}

func NewBatchAnalyzeUseCase(repo ports.InspectionRepository, analyzer *RoomAnalyzer, logger *slog.Logger) *BatchAnalyzeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchAnalyzeUseCase{
		repo:     repo,
		analyzer: analyzer,
		logger:   logger,
	}
}

// RunBatch selects rooms that are pending or carry errored captures, analyzes
// them, and writes the merged inspection back. Per-capture failures stay
// inline on captures; only orchestration-level errors fail the batch, and
// already-merged partial results are left intact by construction (merge
// happens once, after all rooms resolve).
func (uc *BatchAnalyzeUseCase) RunBatch(ctx context.Context, inspectionID string) (*domain.Inspection, error) {
	insp, err := uc.repo.GetByID(ctx, "", inspectionID)
	if err != nil {
		return nil, fmt.Errorf("load inspection: %w", err)
	}

	var selected []domain.Room
	for _, room := range insp.Rooms {
		if room.NeedsAnalysis() {
			selected = append(selected, room)
		}
	}
	if len(selected) == 0 {
		return insp, nil
	}

	uc.logger.Info("batch_analysis_started",
		"inspection_id", inspectionID, "rooms", len(selected))

	analyzed := make([]domain.Room, len(selected))
	var wg sync.WaitGroup
	for i, room := range selected {
		wg.Add(1)
		go func(i int, room domain.Room) {
			defer wg.Done()
			analyzed[i] = uc.analyzer.AnalyzeRoom(ctx, room, insp.Scope, insp.GeoLocation)
		}(i, room)
	}
	wg.Wait()

	// Reload before merging so rooms deleted while the batch ran are not
	// resurrected; the keyed merge discards results for unknown IDs.
	current, err := uc.repo.GetByID(ctx, "", inspectionID)
	if err != nil {
		return nil, fmt.Errorf("reload inspection: %w", err)
	}
	session := workflow.Session{Rooms: current.Rooms}
	session = session.MergeAnalyzedRooms(analyzed)
	current.Rooms = session.Rooms

	if err := uc.repo.SaveRooms(ctx, inspectionID, current.Rooms); err != nil {
		return nil, fmt.Errorf("save analyzed rooms: %w", err)
	}

	score := AverageScore(current.Rooms)
	status := domain.InspectionStatusInProgress
	if err := uc.repo.UpdateOverallScore(ctx, inspectionID, score, status); err != nil {
		return nil, fmt.Errorf("update overall score: %w", err)
	}
	current.OverallScore = score
	current.Status = status

	uc.logger.Info("batch_analysis_completed",
		"inspection_id", inspectionID, "rooms", len(selected), "overall_score", score)
	return current, nil
}
