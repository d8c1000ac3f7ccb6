package domain

import "time"

type RoomStatus string

const (
	RoomStatusPending  RoomStatus = "pending"
	RoomStatusAnalyzed RoomStatus = "analyzed"
)

type InspectionStatus string

const (
	InspectionStatusDraft      InspectionStatus = "draft"
	InspectionStatusInProgress InspectionStatus = "in_progress"
	InspectionStatusCompleted  InspectionStatus = "completed"
)

type FindingType string

const (
	FindingGoodCondition FindingType = "Good condition"
	FindingMinorIssue    FindingType = "Minor issue"
	FindingMajorDefect   FindingType = "Major defect"
	FindingSafetyHazard  FindingType = "Safety hazard"
	FindingComplianceGap FindingType = "Compliance gap"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
	RiskNone   RiskLevel = "None"
)

// Standard is one applicable regulation or code reference.
type Standard struct {
	StandardID  string `json:"standardId"`
	Description string `json:"description"`
}

// RemediationItem is one physical item needed to fix a detected hazard.
type RemediationItem struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity"`
	Reason   string `json:"reason"`
}

// Finding is one detailed observation within an analysis.
type Finding struct {
	Issue          string      `json:"issue"`
	Type           FindingType `json:"type"`
	Risk           RiskLevel   `json:"risk"`
	Recommendation string      `json:"recommendation"`
}

// AnalysisResult is the structured finding-set the vision model returns for
// one capture. Immutable once attached.
type AnalysisResult struct {
	Score             float64           `json:"score"`
	Hazards           []string          `json:"hazards"`
	ZoningIssues      string            `json:"zoningIssues"`
	Summary           string            `json:"summary"`
	RelevantStandards []Standard        `json:"relevantStandards"`
	MissingDocuments  []string          `json:"missingDocuments"`
	RecommendedItems  []RemediationItem `json:"recommendedItems"`
	Category          string            `json:"category,omitempty"`
	DetailedFindings  []Finding         `json:"detailedFindings,omitempty"`
	RiskLevel         RiskLevel         `json:"riskLevel,omitempty"`
}

// ClampScore forces the score into [0,100].
func (a *AnalysisResult) ClampScore() {
	if a.Score < 0 {
		a.Score = 0
	}
	if a.Score > 100 {
		a.Score = 100
	}
}

// Capture is one photographed viewpoint. At most one of Analysis and Error is
// set; neither means the capture is still pending.
type Capture struct {
	ID            string          `json:"id"`
	OriginalImage string          `json:"originalImage"`
	OverlayImage  string          `json:"overlayImage,omitempty"`
	Analysis      *AnalysisResult `json:"analysis,omitempty"`
	Error         string          `json:"error,omitempty"`
}

func (c Capture) Pending() bool {
	return c.Analysis == nil && c.Error == ""
}

func (c Capture) Failed() bool {
	return c.Analysis == nil && c.Error != ""
}

// CustomCheck is an ad-hoc consultation of the room's images against a
// user-supplied standard or requirement.
type CustomCheck struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Result    string    `json:"result"`
	CreatedAt time.Time `json:"createdAt"`
}

// Room is a named inspection area grouping one or more captures.
//
// Status is "analyzed" once an analysis pass has been attempted, even if some
// captures still carry errors; errored captures are retried on the next pass.
type Room struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Department     string        `json:"department"`
	Captures       []Capture     `json:"captures"`
	EvacuationPlan string        `json:"evacuationPlan,omitempty"`
	PlanRequested  bool          `json:"planRequested"`
	CustomChecks   []CustomCheck `json:"customChecks"`
	CreatedAt      time.Time     `json:"createdAt"`
	Status         RoomStatus    `json:"status"`
}

// NeedsAnalysis reports whether a batch pass should pick this room up: it is
// still pending, or at least one capture errored last time.
func (r Room) NeedsAnalysis() bool {
	if r.Status == RoomStatusPending {
		return true
	}
	for _, c := range r.Captures {
		if c.Failed() {
			return true
		}
	}
	return false
}

// Inspection is the persisted session row, keyed by owning user.
type Inspection struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	CompanyName    string           `json:"company_name"`
	SiteName       string           `json:"site_name"`
	InspectorName  string           `json:"inspector_name"`
	InspectionDate string           `json:"inspection_date"`
	GeoLocation    string           `json:"geo_location,omitempty"`
	CompanyLogo    string           `json:"company_logo,omitempty"`
	Scope          []Scope          `json:"scope"`
	Status         InspectionStatus `json:"status"`
	OverallScore   float64          `json:"overall_score"`
	Rooms          []Room           `json:"rooms"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleInspector UserRole = "inspector"
	RoleViewer    UserRole = "viewer"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	Organization string    `json:"organization,omitempty"`
	Role         UserRole  `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
