package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/complyguard/inspection-server/internal/core/domain"
	"github.com/complyguard/inspection-server/internal/core/ports"
	"github.com/complyguard/inspection-server/internal/core/usecase"
)

type analyzeRequest struct {
	Image        string         `json:"image"`
	Scopes       []domain.Scope `json:"scope"`
	RoomName     string         `json:"roomName"`
	Department   string         `json:"department"`
	GeoLocation  string         `json:"geoLocation"`
	CustomPrompt string         `json:"customPrompt"`
}

// analyze runs one capture through the vision model synchronously. The bulk
// path goes through the worker; this endpoint serves single-shot re-analysis.
func (rt *Router) analyze(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Validator != nil {
		if err := rt.deps.Validator.ValidateRequest(r); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Image == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image is required"})
		return
	}
	if len(req.Scopes) == 0 || len(req.Scopes) > domain.MaxActiveScopes {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "between 1 and 2 scopes are required"})
		return
	}

	start := time.Now()
	result, err := rt.deps.Vision.AnalyzeImage(r.Context(), ports.AnalysisRequest{
		Image:        req.Image,
		Scopes:       req.Scopes,
		RoomName:     req.RoomName,
		Department:   req.Department,
		GeoLocation:  req.GeoLocation,
		CustomPrompt: req.CustomPrompt,
	})
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordAnalysis(rt.deps.Service, "analyze", time.Since(start), err)
	}
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"error":   usecase.ClassifyAnalysisError(err),
		})
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordCaptureScore(rt.deps.Service, result.Score)
	}

	// Overlay is best-effort on the sync path too; a failure hands the
	// submitted image back so the client always has something to render.
	overlay, overlayErr := rt.deps.Vision.GenerateOverlay(r.Context(), req.Image, req.Scopes)
	if overlayErr != nil {
		overlay = req.Image
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"analysis":     result,
		"overlayImage": overlay,
	})
}

type evacuationPlanRequest struct {
	Mode       string           `json:"mode"`
	Image      string           `json:"image"`
	RoomName   string           `json:"roomName"`
	Department string           `json:"department"`
	Scopes     []domain.Scope   `json:"scope"`
	Findings   []domain.Finding `json:"findings"`
	Hazards    []string         `json:"hazards"`
}

func (rt *Router) evacuationPlan(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Validator != nil {
		if err := rt.deps.Validator.ValidateRequest(r); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	var req evacuationPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	switch req.Mode {
	case "text":
		plan, err := rt.deps.Vision.GeneratePlanText(r.Context(), ports.PlanRequest{
			RoomName:   req.RoomName,
			Department: req.Department,
			Scopes:     req.Scopes,
			Findings:   req.Findings,
			Hazards:    req.Hazards,
		})
		if rt.deps.Metrics != nil {
			rt.deps.Metrics.RecordAnalysis(rt.deps.Service, "evacuation_plan", time.Since(start), err)
		}
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"success": false,
				"error":   usecase.ClassifyAnalysisError(err),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"evacuationPlan": plan,
			"generated":      true,
		})

	case "", "image":
		if req.Image == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "image is required for an image plan"})
			return
		}
		plan := rt.deps.Vision.GeneratePlanImage(r.Context(), req.Image)
		if rt.deps.Metrics != nil {
			rt.deps.Metrics.RecordAnalysis(rt.deps.Service, "evacuation_plan", time.Since(start), nil)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":        true,
			"evacuationPlan": plan.Image,
			"generated":      plan.Generated,
		})

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "mode must be \"image\" or \"text\""})
	}
}

// requestRoomPlan generates and persists an evacuation plan for a stored room.
func (rt *Router) requestRoomPlan(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	start := time.Now()
	insp, generated, err := rt.deps.Inspections.RequestPlan(
		r.Context(), claims.UserID, r.PathValue("id"), r.PathValue("roomID"))
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordAnalysis(rt.deps.Service, "room_plan", time.Since(start), err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"generated":  generated,
		"inspection": insp,
	})
}

type customCheckRequest struct {
	Query string `json:"query"`
}

// runCustomCheck consults the vision model about one room's images against a
// user-supplied requirement and records the verdict on the room.
func (rt *Router) runCustomCheck(w http.ResponseWriter, r *http.Request) {
	var req customCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	claims := claimsFromContext(r.Context())
	start := time.Now()
	check, err := rt.deps.Inspections.RunCustomCheck(
		r.Context(), claims.UserID, r.PathValue("id"), r.PathValue("roomID"), req.Query)
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordAnalysis(rt.deps.Service, "custom_check", time.Since(start), err)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}
