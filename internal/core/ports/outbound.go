package ports

import (
	"context"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

// InspectionRepository persists inspection sessions and their room trees.
type InspectionRepository interface {
	Create(ctx context.Context, insp *domain.Inspection) error
	Update(ctx context.Context, insp *domain.Inspection) error
	Delete(ctx context.Context, userID, id string) error
	GetByID(ctx context.Context, userID, id string) (*domain.Inspection, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Inspection, error)
	SaveRooms(ctx context.Context, inspectionID string, rooms []domain.Room) error
	UpdateOverallScore(ctx context.Context, inspectionID string, score float64, status domain.InspectionStatus) error
}

// UserRepository persists identity records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// MessageQueue publishes/consumes batch-analysis requests.
type MessageQueue interface {
	PublishAnalyzeRequested(ctx context.Context, inspectionID string) error
	SubscribeAnalyzeRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// PlanResult distinguishes a generated evacuation plan from the reference
// image fallback used when generation fails.
type PlanResult struct {
	Image     string
	Generated bool
}

// VisionAnalyzer is the external AI vision model.
type VisionAnalyzer interface {
	AnalyzeImage(ctx context.Context, req AnalysisRequest) (*domain.AnalysisResult, error)
	GenerateOverlay(ctx context.Context, image string, scopes []domain.Scope) (string, error)
	GeneratePlanImage(ctx context.Context, referenceImage string) PlanResult
	GeneratePlanText(ctx context.Context, req PlanRequest) (string, error)
	RunCustomCheck(ctx context.Context, images []string, query, geoLocation string) (string, error)
}

// AnalysisRequest carries one capture plus its scope context.
type AnalysisRequest struct {
	Image        string
	Scopes       []domain.Scope
	RoomName     string
	Department   string
	GeoLocation  string
	CustomPrompt string
}

// PlanRequest parameterizes the text evacuation plan.
type PlanRequest struct {
	RoomName   string
	Department string
	Scopes     []domain.Scope
	Findings   []domain.Finding
	Hazards    []string
}

// ImageStore persists decoded capture images outside the database.
type ImageStore interface {
	SaveDataURI(ctx context.Context, key, dataURI string) error
	LoadDataURI(ctx context.Context, key string) (string, error)
}
