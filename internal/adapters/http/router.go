package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/complyguard/inspection-server/internal/auth"
	"github.com/complyguard/inspection-server/internal/core/ports"
	"github.com/complyguard/inspection-server/internal/core/usecase"
	"github.com/complyguard/inspection-server/internal/observability/metrics"
)

const version = "1.0.0"

// Deps wires the api surface. DBPing may be nil (demo mode); the health
// endpoint then reports the database as unavailable.
type Deps struct {
	Logger      *slog.Logger
	Service     string
	Inspections *usecase.InspectionUseCase
	Reports     ports.ReportService
	Vision      ports.VisionAnalyzer
	Users       ports.UserRepository
	Tokens      *auth.JWTManager
	Metrics     *metrics.HTTPServerMetrics
	Validator   *RequestValidator
	DBPing      func(context.Context) error

	VisionConfigured bool
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxInFlight      int
}

type Router struct {
	deps Deps
}

func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Router{deps: deps}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	mux.HandleFunc("POST /v1/auth/signup", rt.signup)
	mux.HandleFunc("POST /v1/auth/signin", rt.signin)
	mux.HandleFunc("POST /v1/auth/signout", rt.signout)

	// AI endpoints carry the per-client rate limit; everything else only
	// pays for the backpressure gate.
	mux.Handle("POST /v1/analyze", rt.rateLimited(rt.authenticated(rt.analyze)))
	mux.Handle("POST /v1/evacuation-plan", rt.rateLimited(rt.authenticated(rt.evacuationPlan)))

	mux.Handle("POST /v1/inspections", rt.authenticated(rt.createInspection))
	mux.Handle("GET /v1/inspections", rt.authenticated(rt.listInspections))
	mux.Handle("GET /v1/inspections/{id}", rt.authenticated(rt.getInspection))
	mux.Handle("PUT /v1/inspections/{id}", rt.authenticated(rt.updateInspection))
	mux.Handle("DELETE /v1/inspections/{id}", rt.authenticated(rt.deleteInspection))
	mux.Handle("POST /v1/inspections/{id}/rooms", rt.authenticated(rt.addRoom))
	mux.Handle("DELETE /v1/inspections/{id}/rooms/{roomID}", rt.authenticated(rt.deleteRoom))
	mux.Handle("POST /v1/inspections/{id}/rooms/{roomID}/checks", rt.rateLimited(rt.authenticated(rt.runCustomCheck)))
	mux.Handle("POST /v1/inspections/{id}/rooms/{roomID}/plan", rt.rateLimited(rt.authenticated(rt.requestRoomPlan)))
	mux.Handle("POST /v1/inspections/{id}/analyze", rt.authenticated(rt.requestAnalysis))
	mux.Handle("GET /v1/inspections/{id}/report", rt.authenticated(rt.getReport))
	mux.Handle("GET /v1/inspections/{id}/report/export", rt.authenticated(rt.exportReport))

	var handler http.Handler = mux
	if rt.deps.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.deps.MaxInFlight, 50*time.Millisecond)
	}
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(rt.deps.Service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	dbOK := false
	if rt.deps.DBPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbOK = rt.deps.DBPing(ctx) == nil
	}

	status := "ok"
	if !rt.deps.VisionConfigured || (rt.deps.DBPing != nil && !dbOK) {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version,
		"services": map[string]bool{
			"gemini":   rt.deps.VisionConfigured,
			"database": dbOK,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
