package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/complyguard/inspection-server/internal/core/domain"
)

type inspectionRequest struct {
	CompanyName    string         `json:"companyName"`
	SiteName       string         `json:"siteName"`
	InspectorName  string         `json:"inspectorName"`
	InspectionDate string         `json:"inspectionDate"`
	GeoLocation    string         `json:"geoLocation"`
	CompanyLogo    string         `json:"companyLogo"`
	Scope          []domain.Scope `json:"scope"`
}

func (rt *Router) createInspection(w http.ResponseWriter, r *http.Request) {
	var req inspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	claims := claimsFromContext(r.Context())
	insp, err := rt.deps.Inspections.Create(r.Context(), &domain.Inspection{
		UserID:         claims.UserID,
		CompanyName:    req.CompanyName,
		SiteName:       req.SiteName,
		InspectorName:  req.InspectorName,
		InspectionDate: req.InspectionDate,
		GeoLocation:    req.GeoLocation,
		CompanyLogo:    req.CompanyLogo,
		Scope:          req.Scope,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, insp)
}

func (rt *Router) listInspections(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	inspections, err := rt.deps.Inspections.List(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inspections)
}

func (rt *Router) getInspection(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	insp, err := rt.deps.Inspections.Get(r.Context(), claims.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insp)
}

func (rt *Router) updateInspection(w http.ResponseWriter, r *http.Request) {
	var req inspectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	claims := claimsFromContext(r.Context())
	insp, err := rt.deps.Inspections.Update(r.Context(), claims.UserID, &domain.Inspection{
		ID:             r.PathValue("id"),
		CompanyName:    req.CompanyName,
		SiteName:       req.SiteName,
		InspectorName:  req.InspectorName,
		InspectionDate: req.InspectionDate,
		GeoLocation:    req.GeoLocation,
		CompanyLogo:    req.CompanyLogo,
		Scope:          req.Scope,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insp)
}

func (rt *Router) deleteInspection(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if err := rt.deps.Inspections.Delete(r.Context(), claims.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addRoomRequest struct {
	Name          string   `json:"name"`
	Department    string   `json:"department"`
	PlanRequested bool     `json:"planRequested"`
	Images        []string `json:"images"`
}

func (rt *Router) addRoom(w http.ResponseWriter, r *http.Request) {
	var req addRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	captures := make([]domain.Capture, 0, len(req.Images))
	for _, img := range req.Images {
		captures = append(captures, domain.Capture{OriginalImage: img})
	}

	claims := claimsFromContext(r.Context())
	insp, err := rt.deps.Inspections.AddRoom(r.Context(), claims.UserID, r.PathValue("id"), domain.Room{
		Name:          req.Name,
		Department:    req.Department,
		PlanRequested: req.PlanRequested,
		Captures:      captures,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, insp)
}

func (rt *Router) deleteRoom(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	insp, err := rt.deps.Inspections.DeleteRoom(r.Context(), claims.UserID, r.PathValue("id"), r.PathValue("roomID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insp)
}

func (rt *Router) requestAnalysis(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if err := rt.deps.Inspections.RequestAnalysis(r.Context(), claims.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
