// Package workflow holds the inspection session state container. All
// transitions are pure: they take a Session by value and return the next
// Session, so a single owner (HTTP handler or worker) can apply them and
// replace the whole structure atomically.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

type View string

const (
	ViewSetup      View = "setup"
	ViewDashboard  View = "dashboard"
	ViewStaging    View = "staging"
	ViewRoomDetail View = "room-detail"
	ViewReport     View = "report"
)

type LogType string

const (
	LogInfo    LogType = "info"
	LogAI      LogType = "ai"
	LogError   LogType = "error"
	LogSuccess LogType = "success"
)

// LogEntry is one line of the append-only activity log, newest first.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Type      LogType   `json:"type"`
}

// Session is the root aggregate of one inspection run.
type Session struct {
	View View `json:"view"`

	Scope          []domain.Scope `json:"scope"`
	CompanyName    string         `json:"company_name"`
	SiteName       string         `json:"site_name"`
	InspectorName  string         `json:"inspector_name"`
	CompanyLogo    string         `json:"company_logo,omitempty"`
	InspectionDate string         `json:"inspection_date"`
	GeoLocation    string         `json:"geo_location"`

	Rooms        []domain.Room `json:"rooms"`
	ActiveRoomID string        `json:"active_room_id,omitempty"`

	StagingImages        []string `json:"staging_images"`
	StagingRoomName      string   `json:"staging_room_name"`
	StagingDepartment    string   `json:"staging_department"`
	StagingPlanRequested bool     `json:"staging_plan_requested"`

	Loading        bool   `json:"loading"`
	LoadingMessage string `json:"loading_message"`

	Logs []LogEntry `json:"logs"`
}

// NewSession starts at the setup view with today's date.
func NewSession() Session {
	return Session{
		View:           ViewSetup,
		InspectionDate: time.Now().UTC().Format("2006-01-02"),
	}
}

// AppendLog prepends an entry; the log is newest-first and append-only.
func (s Session) AppendLog(action, details string, typ LogType) Session {
	entry := LogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Details:   details,
		Type:      typ,
	}
	s.Logs = append([]LogEntry{entry}, s.Logs...)
	return s
}

// ToggleScope adds or removes one scope. Adding past the cap is a no-op and
// leaves the set unchanged.
func (s Session) ToggleScope(scope domain.Scope) Session {
	if !domain.ValidScope(scope) {
		return s
	}
	for i, existing := range s.Scope {
		if existing == scope {
			s.Scope = append(append([]domain.Scope{}, s.Scope[:i]...), s.Scope[i+1:]...)
			return s
		}
	}
	if len(s.Scope) >= domain.MaxActiveScopes {
		return s
	}
	s.Scope = append(append([]domain.Scope{}, s.Scope...), scope)
	return s
}

// StartSession validates required identity fields and moves to the dashboard.
func (s Session) StartSession() (Session, error) {
	if strings.TrimSpace(s.CompanyName) == "" ||
		strings.TrimSpace(s.SiteName) == "" ||
		strings.TrimSpace(s.InspectorName) == "" {
		return s, domain.WrapError(domain.ErrInvalidInput, "start session",
			errors.New("company, site and inspector names are required"))
	}
	if len(s.Scope) == 0 {
		return s, domain.WrapError(domain.ErrInvalidInput, "start session",
			errors.New("at least one inspection scope is required"))
	}
	s = s.AppendLog("Session Initialized",
		fmt.Sprintf("Inspector: %s, Site: %s, Scope: %s", s.InspectorName, s.SiteName, joinScopes(s.Scope)),
		LogInfo)
	s.View = ViewDashboard
	return s, nil
}

// StageFiles appends encoded images to the staging buffer and switches to the
// staging view. A default area name is proposed when none is set.
func (s Session) StageFiles(dataURIs []string) Session {
	if len(dataURIs) == 0 {
		return s
	}
	s.StagingImages = append(append([]string{}, s.StagingImages...), dataURIs...)
	if s.StagingRoomName == "" {
		s.StagingRoomName = fmt.Sprintf("Area %d", len(s.Rooms)+1)
	}
	s.View = ViewStaging
	return s
}

// RemoveStaged drops one buffered image before commit.
func (s Session) RemoveStaged(index int) Session {
	if index < 0 || index >= len(s.StagingImages) {
		return s
	}
	images := append([]string{}, s.StagingImages[:index]...)
	s.StagingImages = append(images, s.StagingImages[index+1:]...)
	return s
}

// CommitStaging turns the staging buffer into a pending room.
func (s Session) CommitStaging(name, department string, planRequested bool) (Session, error) {
	if len(s.StagingImages) == 0 {
		return s, domain.WrapError(domain.ErrInvalidInput, "commit staging",
			errors.New("no staged images"))
	}
	if strings.TrimSpace(name) == "" {
		return s, domain.WrapError(domain.ErrInvalidInput, "commit staging",
			errors.New("area name is required"))
	}
	if department == "" {
		department = "General"
	}

	captures := make([]domain.Capture, 0, len(s.StagingImages))
	for _, img := range s.StagingImages {
		captures = append(captures, domain.Capture{
			ID:            uuid.NewString(),
			OriginalImage: img,
		})
	}
	room := domain.Room{
		ID:            uuid.NewString(),
		Name:          name,
		Department:    department,
		Captures:      captures,
		PlanRequested: planRequested,
		CustomChecks:  []domain.CustomCheck{},
		CreatedAt:     time.Now().UTC(),
		Status:        domain.RoomStatusPending,
	}

	s.Rooms = append(append([]domain.Room{}, s.Rooms...), room)
	s.StagingImages = nil
	s.StagingRoomName = ""
	s.StagingDepartment = ""
	s.StagingPlanRequested = false
	s.View = ViewDashboard
	s = s.AppendLog("Area Added",
		fmt.Sprintf("Added %q with %d images. Plan requested: %t", room.Name, len(captures), planRequested),
		LogInfo)
	return s, nil
}

// DeleteRoom removes a room; deleting the active room clears the active
// reference and returns to the dashboard.
func (s Session) DeleteRoom(id string) Session {
	rooms := make([]domain.Room, 0, len(s.Rooms))
	var removed *domain.Room
	for _, r := range s.Rooms {
		if r.ID == id {
			rr := r
			removed = &rr
			continue
		}
		rooms = append(rooms, r)
	}
	if removed == nil {
		return s
	}
	s.Rooms = rooms
	if s.ActiveRoomID == id {
		s.ActiveRoomID = ""
		s.View = ViewDashboard
	}
	return s.AppendLog("Area Removed", fmt.Sprintf("Removed %q", removed.Name), LogInfo)
}

// OpenRoom makes a room active and shows its detail view.
func (s Session) OpenRoom(id string) (Session, error) {
	if _, ok := s.Room(id); !ok {
		return s, domain.WrapError(domain.ErrNotFound, "open room", fmt.Errorf("room %s", id))
	}
	s.ActiveRoomID = id
	s.View = ViewRoomDetail
	return s, nil
}

// SetView navigates; entering the report view is logged.
func (s Session) SetView(v View) Session {
	if v == ViewReport {
		s = s.AppendLog("Report Generated",
			fmt.Sprintf("Viewing report for %d areas. Scope: %s", len(s.Rooms), joinScopes(s.Scope)),
			LogInfo)
	}
	s.View = v
	return s
}

// MergeAnalyzedRooms replaces rooms keyed by ID. Results for rooms that no
// longer exist (deleted mid-flight) are discarded, so a stale analysis can
// never resurrect a deleted room.
func (s Session) MergeAnalyzedRooms(analyzed []domain.Room) Session {
	byID := make(map[string]domain.Room, len(analyzed))
	for _, r := range analyzed {
		byID[r.ID] = r
	}
	rooms := make([]domain.Room, 0, len(s.Rooms))
	for _, r := range s.Rooms {
		if merged, ok := byID[r.ID]; ok {
			rooms = append(rooms, merged)
			continue
		}
		rooms = append(rooms, r)
	}
	s.Rooms = rooms
	return s
}

// Room looks up a room by ID.
func (s Session) Room(id string) (domain.Room, bool) {
	for _, r := range s.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Room{}, false
}

// SetIdentity fills the session header fields captured on the setup view.
func (s Session) SetIdentity(company, site, inspector string) Session {
	s.CompanyName = company
	s.SiteName = site
	s.InspectorName = inspector
	return s
}

// SetLogo stores the company logo data URI; empty clears it.
func (s Session) SetLogo(dataURI string) Session {
	s.CompanyLogo = dataURI
	return s
}

// SetGeoLocation records the detected or user-entered site location.
func (s Session) SetGeoLocation(location string) Session {
	s.GeoLocation = location
	return s
}

// SetLoading flips the busy flag shown while long operations run.
func (s Session) SetLoading(loading bool, message string) Session {
	s.Loading = loading
	s.LoadingMessage = message
	return s
}

func joinScopes(scopes []domain.Scope) string {
	parts := make([]string, 0, len(scopes))
	for _, sc := range scopes {
		parts = append(parts, string(sc))
	}
	return strings.Join(parts, ", ")
}
