package domain

// CategoryStat is one bucket of the facility-scope category summary.
type CategoryStat struct {
	Category   string  `json:"category"`
	MeanScore  float64 `json:"mean_score"`
	Captures   int     `json:"captures"`
	IssueCount int     `json:"issue_count"`
}

// PriorityAction is one high-severity finding with its location context.
type PriorityAction struct {
	RoomName string  `json:"room_name"`
	Finding  Finding `json:"finding"`
}

// RoomSummary is the per-room line of the report.
type RoomSummary struct {
	RoomID       string     `json:"room_id"`
	Name         string     `json:"name"`
	Department   string     `json:"department"`
	Status       RoomStatus `json:"status"`
	MeanScore    float64    `json:"mean_score"`
	Captures     int        `json:"captures"`
	FailedCount  int        `json:"failed_count"`
	PendingCount int        `json:"pending_count"`
	HasPlan      bool       `json:"has_plan"`
}

// Report is the composed read-side projection of one inspection. It carries
// no state of its own; every field derives from the room collection.
type Report struct {
	InspectionID    string           `json:"inspection_id"`
	CompanyName     string           `json:"company_name"`
	SiteName        string           `json:"site_name"`
	InspectorName   string           `json:"inspector_name"`
	InspectionDate  string           `json:"inspection_date"`
	GeoLocation     string           `json:"geo_location,omitempty"`
	Scope           []Scope          `json:"scope"`
	AverageScore    float64          `json:"average_score"`
	Standards       []Standard       `json:"standards"`
	CategorySummary []CategoryStat   `json:"category_summary,omitempty"`
	PriorityActions []PriorityAction `json:"priority_actions"`
	Rooms           []RoomSummary    `json:"rooms"`
	FailedRooms     int              `json:"failed_rooms"`
}
