package ports

import (
	"context"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

// InspectionService is the inbound contract for session CRUD and dispatch.
type InspectionService interface {
	Create(ctx context.Context, insp *domain.Inspection) (*domain.Inspection, error)
	Update(ctx context.Context, userID string, insp *domain.Inspection) (*domain.Inspection, error)
	Delete(ctx context.Context, userID, id string) error
	Get(ctx context.Context, userID, id string) (*domain.Inspection, error)
	List(ctx context.Context, userID string) ([]domain.Inspection, error)
	AddRoom(ctx context.Context, userID, inspectionID string, room domain.Room) (*domain.Inspection, error)
	DeleteRoom(ctx context.Context, userID, inspectionID, roomID string) (*domain.Inspection, error)
	RequestAnalysis(ctx context.Context, userID, inspectionID string) error
}

// BatchRunner is the inbound contract for asynchronous batch analysis.
type BatchRunner interface {
	RunBatch(ctx context.Context, inspectionID string) (*domain.Inspection, error)
}

// ReportService composes read-side report projections.
type ReportService interface {
	Compose(ctx context.Context, userID, inspectionID string) (*domain.Report, error)
}
