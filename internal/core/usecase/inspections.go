package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/complyguard/inspection-server/internal/core/domain"
	"github.com/complyguard/inspection-server/internal/core/ports"
)

// InspectionUseCase owns the persisted session lifecycle: CRUD, room
// mutations, ad-hoc consultations, and dispatching batch analysis to the
// worker.
type InspectionUseCase struct {
	repo   ports.InspectionRepository
	queue  ports.MessageQueue
	vision ports.VisionAnalyzer
	images ports.ImageStore
	logger *slog.Logger
}

func NewInspectionUseCase(
	repo ports.InspectionRepository,
	queue ports.MessageQueue,
	vision ports.VisionAnalyzer,
	images ports.ImageStore,
	logger *slog.Logger,
) *InspectionUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &InspectionUseCase{
		repo:   repo,
		queue:  queue,
		vision: vision,
		images: images,
		logger: logger,
	}
}

func (uc *InspectionUseCase) Create(ctx context.Context, insp *domain.Inspection) (*domain.Inspection, error) {
	if err := validateInspection(insp); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	insp.ID = uuid.NewString()
	insp.Status = domain.InspectionStatusDraft
	insp.CreatedAt = now
	insp.UpdatedAt = now
	if insp.InspectionDate == "" {
		insp.InspectionDate = now.Format("2006-01-02")
	}
	if insp.Rooms == nil {
		insp.Rooms = []domain.Room{}
	}

	if err := uc.repo.Create(ctx, insp); err != nil {
		return nil, fmt.Errorf("create inspection: %w", err)
	}
	return insp, nil
}

func (uc *InspectionUseCase) Update(ctx context.Context, userID string, insp *domain.Inspection) (*domain.Inspection, error) {
	existing, err := uc.repo.GetByID(ctx, userID, insp.ID)
	if err != nil {
		return nil, err
	}
	if err := validateInspection(insp); err != nil {
		return nil, err
	}

	existing.CompanyName = insp.CompanyName
	existing.SiteName = insp.SiteName
	existing.InspectorName = insp.InspectorName
	existing.InspectionDate = insp.InspectionDate
	existing.GeoLocation = insp.GeoLocation
	existing.CompanyLogo = insp.CompanyLogo
	existing.Scope = insp.Scope
	if insp.Status != "" {
		existing.Status = insp.Status
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update inspection: %w", err)
	}
	return existing, nil
}

func (uc *InspectionUseCase) Delete(ctx context.Context, userID, id string) error {
	return uc.repo.Delete(ctx, userID, id)
}

func (uc *InspectionUseCase) Get(ctx context.Context, userID, id string) (*domain.Inspection, error) {
	return uc.repo.GetByID(ctx, userID, id)
}

func (uc *InspectionUseCase) List(ctx context.Context, userID string) ([]domain.Inspection, error) {
	return uc.repo.ListByUser(ctx, userID)
}

// AddRoom commits a staged room into the inspection tree.
func (uc *InspectionUseCase) AddRoom(ctx context.Context, userID, inspectionID string, room domain.Room) (*domain.Inspection, error) {
	insp, err := uc.repo.GetByID(ctx, userID, inspectionID)
	if err != nil {
		return nil, err
	}
	if len(room.Captures) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "add room", errors.New("no captures"))
	}
	if strings.TrimSpace(room.Name) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "add room", errors.New("room name is required"))
	}

	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	for i := range room.Captures {
		if room.Captures[i].ID == "" {
			room.Captures[i].ID = uuid.NewString()
		}
	}
	if room.Department == "" {
		room.Department = "General"
	}
	if room.CustomChecks == nil {
		room.CustomChecks = []domain.CustomCheck{}
	}
	room.CreatedAt = time.Now().UTC()
	room.Status = domain.RoomStatusPending

	insp.Rooms = append(insp.Rooms, room)
	if err := uc.repo.SaveRooms(ctx, inspectionID, insp.Rooms); err != nil {
		return nil, fmt.Errorf("save rooms: %w", err)
	}

	// Best-effort archive of the raw images; the database row stays the
	// source of truth.
	if uc.images != nil {
		for _, c := range room.Captures {
			if err := uc.images.SaveDataURI(ctx, c.ID, c.OriginalImage); err != nil {
				uc.logger.Warn("capture_archive_failed", "capture_id", c.ID, "error", err)
			}
		}
	}
	return insp, nil
}

// DeleteRoom removes one room; captures go with it.
func (uc *InspectionUseCase) DeleteRoom(ctx context.Context, userID, inspectionID, roomID string) (*domain.Inspection, error) {
	insp, err := uc.repo.GetByID(ctx, userID, inspectionID)
	if err != nil {
		return nil, err
	}

	rooms := make([]domain.Room, 0, len(insp.Rooms))
	found := false
	for _, r := range insp.Rooms {
		if r.ID == roomID {
			found = true
			continue
		}
		rooms = append(rooms, r)
	}
	if !found {
		return nil, domain.WrapError(domain.ErrNotFound, "delete room", fmt.Errorf("room %s", roomID))
	}

	insp.Rooms = rooms
	if err := uc.repo.SaveRooms(ctx, inspectionID, rooms); err != nil {
		return nil, fmt.Errorf("save rooms: %w", err)
	}
	return insp, nil
}

// RunCustomCheck consults the vision model about one room's images against a
// user-supplied standard and records the verdict on the room.
func (uc *InspectionUseCase) RunCustomCheck(ctx context.Context, userID, inspectionID, roomID, query string) (domain.CustomCheck, error) {
	if strings.TrimSpace(query) == "" {
		return domain.CustomCheck{}, domain.WrapError(domain.ErrInvalidInput, "custom check",
			errors.New("query is required"))
	}

	insp, err := uc.repo.GetByID(ctx, userID, inspectionID)
	if err != nil {
		return domain.CustomCheck{}, err
	}

	roomIdx := -1
	for i := range insp.Rooms {
		if insp.Rooms[i].ID == roomID {
			roomIdx = i
			break
		}
	}
	if roomIdx < 0 {
		return domain.CustomCheck{}, domain.WrapError(domain.ErrNotFound, "custom check",
			fmt.Errorf("room %s", roomID))
	}
	room := &insp.Rooms[roomIdx]
	if len(room.Captures) == 0 {
		return domain.CustomCheck{}, domain.WrapError(domain.ErrInvalidInput, "custom check",
			errors.New("room has no captures"))
	}

	images := make([]string, 0, len(room.Captures))
	for _, c := range room.Captures {
		images = append(images, c.OriginalImage)
	}

	verdict, err := uc.vision.RunCustomCheck(ctx, images, query, insp.GeoLocation)
	if err != nil {
		return domain.CustomCheck{}, fmt.Errorf("run custom check: %w", err)
	}

	check := domain.CustomCheck{
		ID:        uuid.NewString(),
		Query:     query,
		Result:    verdict,
		CreatedAt: time.Now().UTC(),
	}
	room.CustomChecks = append(room.CustomChecks, check)
	if err := uc.repo.SaveRooms(ctx, inspectionID, insp.Rooms); err != nil {
		return domain.CustomCheck{}, fmt.Errorf("save rooms: %w", err)
	}
	return check, nil
}

// RequestPlan generates an evacuation plan for one room on demand, outside the
// batch path. The first capture is the reference image; generation never
// errors, it degrades to the reference image with Generated=false.
func (uc *InspectionUseCase) RequestPlan(ctx context.Context, userID, inspectionID, roomID string) (*domain.Inspection, bool, error) {
	insp, err := uc.repo.GetByID(ctx, userID, inspectionID)
	if err != nil {
		return nil, false, err
	}

	roomIdx := -1
	for i := range insp.Rooms {
		if insp.Rooms[i].ID == roomID {
			roomIdx = i
			break
		}
	}
	if roomIdx < 0 {
		return nil, false, domain.WrapError(domain.ErrNotFound, "request plan",
			fmt.Errorf("room %s", roomID))
	}
	room := &insp.Rooms[roomIdx]
	if len(room.Captures) == 0 {
		return nil, false, domain.WrapError(domain.ErrInvalidInput, "request plan",
			errors.New("room has no captures"))
	}

	plan := uc.vision.GeneratePlanImage(ctx, room.Captures[0].OriginalImage)
	if !plan.Generated {
		uc.logger.Warn("plan_generation_fell_back", "room_id", roomID)
	}
	room.EvacuationPlan = plan.Image
	room.PlanRequested = true

	if err := uc.repo.SaveRooms(ctx, inspectionID, insp.Rooms); err != nil {
		return nil, false, fmt.Errorf("save rooms: %w", err)
	}
	return insp, plan.Generated, nil
}

// RequestAnalysis enqueues a batch pass for the worker. Re-posting is the
// user-driven retry: the worker re-selects only pending or errored work.
func (uc *InspectionUseCase) RequestAnalysis(ctx context.Context, userID, inspectionID string) error {
	insp, err := uc.repo.GetByID(ctx, userID, inspectionID)
	if err != nil {
		return err
	}

	pending := 0
	for _, room := range insp.Rooms {
		if room.NeedsAnalysis() {
			pending++
		}
	}
	if pending == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "request analysis",
			errors.New("no rooms awaiting analysis"))
	}

	if err := uc.queue.PublishAnalyzeRequested(ctx, inspectionID); err != nil {
		return fmt.Errorf("publish analyze request: %w", err)
	}
	return nil
}

func validateInspection(insp *domain.Inspection) error {
	if strings.TrimSpace(insp.CompanyName) == "" ||
		strings.TrimSpace(insp.SiteName) == "" ||
		strings.TrimSpace(insp.InspectorName) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate inspection",
			errors.New("company, site and inspector names are required"))
	}
	if len(insp.Scope) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "validate inspection",
			errors.New("at least one scope is required"))
	}
	if len(insp.Scope) > domain.MaxActiveScopes {
		return domain.WrapError(domain.ErrInvalidInput, "validate inspection",
			fmt.Errorf("at most %d scopes may be combined", domain.MaxActiveScopes))
	}
	for _, s := range insp.Scope {
		if !domain.ValidScope(s) {
			return domain.WrapError(domain.ErrInvalidInput, "validate inspection",
				fmt.Errorf("unknown scope %q", s))
		}
	}
	return nil
}
