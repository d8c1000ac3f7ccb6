// Package memory backs demo mode: same repository contracts as postgres,
// state lives for the lifetime of the process.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

type InspectionRepository struct {
	mu          sync.RWMutex
	inspections map[string]domain.Inspection
}

func NewInspectionRepository() *InspectionRepository {
	return &InspectionRepository{inspections: make(map[string]domain.Inspection)}
}

func (r *InspectionRepository) Create(_ context.Context, insp *domain.Inspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.inspections[insp.ID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create inspection",
			fmt.Errorf("duplicate id %s", insp.ID))
	}
	r.inspections[insp.ID] = cloneInspection(*insp)
	return nil
}

func (r *InspectionRepository) Update(_ context.Context, insp *domain.Inspection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.inspections[insp.ID]
	if !ok {
		return notFound("update inspection", insp.ID)
	}
	updated := cloneInspection(*insp)
	updated.Rooms = existing.Rooms
	r.inspections[insp.ID] = updated
	return nil
}

func (r *InspectionRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	insp, ok := r.inspections[id]
	if !ok || (userID != "" && insp.UserID != userID) {
		return notFound("delete inspection", id)
	}
	delete(r.inspections, id)
	return nil
}

func (r *InspectionRepository) GetByID(_ context.Context, userID, id string) (*domain.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	insp, ok := r.inspections[id]
	if !ok || (userID != "" && insp.UserID != userID) {
		return nil, notFound("get inspection", id)
	}
	out := cloneInspection(insp)
	return &out, nil
}

func (r *InspectionRepository) ListByUser(_ context.Context, userID string) ([]domain.Inspection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Inspection{}
	for _, insp := range r.inspections {
		if insp.UserID != userID {
			continue
		}
		clone := cloneInspection(insp)
		clone.Rooms = []domain.Room{}
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *InspectionRepository) SaveRooms(_ context.Context, inspectionID string, rooms []domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	insp, ok := r.inspections[inspectionID]
	if !ok {
		return notFound("save rooms", inspectionID)
	}
	insp.Rooms = cloneRooms(rooms)
	r.inspections[inspectionID] = insp
	return nil
}

func (r *InspectionRepository) UpdateOverallScore(_ context.Context, inspectionID string, score float64, status domain.InspectionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	insp, ok := r.inspections[inspectionID]
	if !ok {
		return notFound("update overall score", inspectionID)
	}
	insp.OverallScore = score
	insp.Status = status
	r.inspections[inspectionID] = insp
	return nil
}

type UserRepository struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byEmail: make(map[string]domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(user.Email)
	if _, exists := r.byEmail[email]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create user",
			fmt.Errorf("email already registered"))
	}
	stored := *user
	stored.Email = email
	r.byEmail[email] = stored
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get user", fmt.Errorf("email %s", email))
	}
	out := user
	return &out, nil
}

func notFound(operation, id string) error {
	return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("inspection %s", id))
}

func cloneInspection(insp domain.Inspection) domain.Inspection {
	out := insp
	out.Scope = append([]domain.Scope(nil), insp.Scope...)
	out.Rooms = cloneRooms(insp.Rooms)
	return out
}

func cloneRooms(rooms []domain.Room) []domain.Room {
	out := make([]domain.Room, len(rooms))
	for i, room := range rooms {
		clone := room
		clone.Captures = make([]domain.Capture, len(room.Captures))
		for j, capture := range room.Captures {
			c := capture
			if capture.Analysis != nil {
				a := *capture.Analysis
				c.Analysis = &a
			}
			clone.Captures[j] = c
		}
		clone.CustomChecks = append([]domain.CustomCheck(nil), room.CustomChecks...)
		out[i] = clone
	}
	return out
}
