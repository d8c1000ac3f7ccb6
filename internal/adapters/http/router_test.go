package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/complyguard/inspection-server/internal/auth"
	"github.com/complyguard/inspection-server/internal/core/domain"
	"github.com/complyguard/inspection-server/internal/core/ports"
	"github.com/complyguard/inspection-server/internal/core/usecase"
	"github.com/complyguard/inspection-server/internal/infrastructure/repository/memory"
)

type visionStub struct {
	analysis    *domain.AnalysisResult
	analyzeErr  error
	overlayErr  error
	entered     chan struct{}
	release     chan struct{}
	planText    string
	planImage   ports.PlanResult
	lastPlanReq ports.PlanRequest
	verdict     string
}

func (f *visionStub) AnalyzeImage(context.Context, ports.AnalysisRequest) (*domain.AnalysisResult, error) {
	if f.entered != nil {
		close(f.entered)
		<-f.release
	}
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	if f.analysis != nil {
		copyResult := *f.analysis
		return &copyResult, nil
	}
	return &domain.AnalysisResult{Score: 80}, nil
}

func (f *visionStub) GenerateOverlay(_ context.Context, image string, _ []domain.Scope) (string, error) {
	if f.overlayErr != nil {
		return "", f.overlayErr
	}
	return "overlay:" + image, nil
}

func (f *visionStub) GeneratePlanImage(context.Context, string) ports.PlanResult { return f.planImage }

func (f *visionStub) GeneratePlanText(_ context.Context, req ports.PlanRequest) (string, error) {
	f.lastPlanReq = req
	return f.planText, nil
}

func (f *visionStub) RunCustomCheck(context.Context, []string, string, string) (string, error) {
	return f.verdict, nil
}

type queueStub struct {
	published []string
}

func (f *queueStub) PublishAnalyzeRequested(_ context.Context, inspectionID string) error {
	f.published = append(f.published, inspectionID)
	return nil
}

func (f *queueStub) SubscribeAnalyzeRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

type testEnv struct {
	deps  Deps
	queue *queueStub
	users *memory.UserRepository
}

func newTestEnv(vision ports.VisionAnalyzer) *testEnv {
	repo := memory.NewInspectionRepository()
	users := memory.NewUserRepository()
	queue := &queueStub{}
	tokens := auth.NewJWTManager("test-secret", time.Hour, true)

	return &testEnv{
		queue: queue,
		users: users,
		deps: Deps{
			Service:     "inspection-api-test",
			Inspections: usecase.NewInspectionUseCase(repo, queue, vision, nil, nil),
			Reports:     usecase.NewReportComposer(repo),
			Vision:      vision,
			Users:       users,
			Tokens:      tokens,

			VisionConfigured: true,
		},
	}
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAuthenticatedEndpointsReject(t *testing.T) {
	env := newTestEnv(&visionStub{})
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/v1/inspections", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/inspections", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestSignupAndSignin(t *testing.T) {
	env := newTestEnv(&visionStub{})
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email":    "Inspector@Example.com",
		"password": "s3curepass",
		"fullName": "J. Doe",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup = %d, body %s", rec.Code, rec.Body.String())
	}
	var session sessionResponse
	decodeBody(t, rec, &session)
	if session.Token == "" || session.User.Email != "inspector@example.com" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.User.Role != domain.RoleInspector {
		t.Fatalf("expected inspector role, got %s", session.User.Role)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/auth/signin", "", map[string]string{
		"email":    "inspector@example.com",
		"password": "s3curepass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/auth/signin", "", map[string]string{
		"email":    "inspector@example.com",
		"password": "wrongpass1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/auth/signin", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "s3curepass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", rec.Code)
	}
}

func TestSignupRejectsWeakInput(t *testing.T) {
	env := newTestEnv(&visionStub{})
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email":    "no-at-sign",
		"password": "s3curepass",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"email":    "a@b.com",
		"password": "short1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d", rec.Code)
	}
}

func TestInspectionLifecycle(t *testing.T) {
	env := newTestEnv(&visionStub{verdict: "Compliant."})
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/inspections", auth.DemoToken, map[string]any{
		"companyName":   "Acme",
		"siteName":      "Plant 1",
		"inspectorName": "J. Doe",
		"scope":         []string{"OHS", "Fire"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, body %s", rec.Code, rec.Body.String())
	}
	var insp domain.Inspection
	decodeBody(t, rec, &insp)
	if insp.ID == "" || insp.Status != domain.InspectionStatusDraft {
		t.Fatalf("unexpected inspection: %+v", insp)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/inspections/"+insp.ID+"/rooms", auth.DemoToken, map[string]any{
		"name":   "Warehouse",
		"images": []string{"data:image/jpeg;base64,AAA"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add room = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &insp)
	if len(insp.Rooms) != 1 || insp.Rooms[0].Status != domain.RoomStatusPending {
		t.Fatalf("unexpected rooms: %+v", insp.Rooms)
	}
	roomID := insp.Rooms[0].ID

	rec = doJSON(t, handler, http.MethodPost, "/v1/inspections/"+insp.ID+"/analyze", auth.DemoToken, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("request analysis = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(env.queue.published) != 1 || env.queue.published[0] != insp.ID {
		t.Fatalf("expected analyze request published, got %v", env.queue.published)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/inspections/"+insp.ID+"/rooms/"+roomID+"/checks", auth.DemoToken,
		map[string]string{"query": "Check extinguisher service tags"})
	if rec.Code != http.StatusOK {
		t.Fatalf("custom check = %d, body %s", rec.Code, rec.Body.String())
	}
	var check domain.CustomCheck
	decodeBody(t, rec, &check)
	if check.Result != "Compliant." {
		t.Fatalf("unexpected check: %+v", check)
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/inspections/"+insp.ID+"/report", auth.DemoToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report = %d, body %s", rec.Code, rec.Body.String())
	}
	var report domain.Report
	decodeBody(t, rec, &report)
	if report.InspectionID != insp.ID || len(report.Rooms) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/v1/inspections/"+insp.ID+"/rooms/"+roomID, auth.DemoToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete room = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodDelete, "/v1/inspections/"+insp.ID, auth.DemoToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete inspection = %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodGet, "/v1/inspections/"+insp.ID, auth.DemoToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	env := newTestEnv(&visionStub{})
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/analyze", auth.DemoToken, map[string]any{
		"scope": []string{"OHS"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without image, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/analyze", auth.DemoToken, map[string]any{
		"image": "data:image/jpeg;base64,AAA",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without scope, got %d", rec.Code)
	}

	// The field is "scope"; a request using another key carries no scopes.
	rec = doJSON(t, handler, http.MethodPost, "/v1/analyze", auth.DemoToken, map[string]any{
		"image":  "data:image/jpeg;base64,AAA",
		"scopes": []string{"OHS"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for misnamed scope field, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/analyze", auth.DemoToken, map[string]any{
		"image": "data:image/jpeg;base64,AAA",
		"scope": []string{"OHS", "Fire", "GMP"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for 3 scopes, got %d", rec.Code)
	}
}

func TestAnalyzeReturnsResult(t *testing.T) {
	env := newTestEnv(&visionStub{analysis: &domain.AnalysisResult{Score: 67, Summary: "cluttered aisle"}})
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/analyze", auth.DemoToken, map[string]any{
		"image": "data:image/jpeg;base64,AAA",
		"scope": []string{"OHS"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success      bool                  `json:"success"`
		Analysis     domain.AnalysisResult `json:"analysis"`
		OverlayImage string                `json:"overlayImage"`
	}
	decodeBody(t, rec, &body)
	if !body.Success || body.Analysis.Score != 67 || body.Analysis.Summary != "cluttered aisle" {
		t.Fatalf("unexpected response: %+v", body)
	}
	if body.OverlayImage == "" {
		t.Fatalf("expected overlay image in response")
	}
}

func TestAnalyzeClassifiesUpstreamFailure(t *testing.T) {
	env := newTestEnv(&visionStub{analyzeErr: errors.New("gemini analyze_image: status 429 Too Many Requests")})
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/analyze", auth.DemoToken, map[string]any{
		"image": "data:image/jpeg;base64,AAA",
		"scope": []string{"OHS"},
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["success"] != false || body["error"] != usecase.MsgRateLimited {
		t.Fatalf("expected classified failure envelope, got %v", body)
	}
}

func TestAnalyzeKeepsOriginalImageOnOverlayFailure(t *testing.T) {
	env := newTestEnv(&visionStub{overlayErr: errors.New("overlay response carried no image part")})
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/analyze", auth.DemoToken, map[string]any{
		"image": "data:image/jpeg;base64,AAA",
		"scope": []string{"OHS"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success      bool   `json:"success"`
		OverlayImage string `json:"overlayImage"`
	}
	decodeBody(t, rec, &body)
	if !body.Success {
		t.Fatalf("analysis must survive an overlay failure")
	}
	if body.OverlayImage != "data:image/jpeg;base64,AAA" {
		t.Fatalf("expected submitted image as overlay fallback, got %q", body.OverlayImage)
	}
}

func TestEvacuationPlanModes(t *testing.T) {
	env := newTestEnv(&visionStub{
		planText:  "1. Exit via north door.",
		planImage: ports.PlanResult{Image: "plan-img", Generated: true},
	})
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/evacuation-plan", auth.DemoToken, map[string]any{
		"mode":     "text",
		"roomName": "Warehouse",
		"scope":    []string{"Fire"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("text plan = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["evacuationPlan"] != "1. Exit via north door." || body["generated"] != true {
		t.Fatalf("unexpected text plan: %v", body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/evacuation-plan", auth.DemoToken, map[string]any{
		"image": "data:image/jpeg;base64,AAA",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("image plan = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &body)
	if body["evacuationPlan"] != "plan-img" || body["generated"] != true {
		t.Fatalf("unexpected image plan: %v", body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/evacuation-plan", auth.DemoToken, map[string]any{
		"mode": "image",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for image mode without image, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/evacuation-plan", auth.DemoToken, map[string]any{
		"mode": "hologram",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown mode, got %d", rec.Code)
	}
}

func TestEvacuationPlanForwardsFindings(t *testing.T) {
	vision := &visionStub{planText: "1. Exit via north door."}
	env := newTestEnv(vision)
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/evacuation-plan", auth.DemoToken, map[string]any{
		"mode":     "text",
		"roomName": "Warehouse",
		"scope":    []string{"Fire"},
		"hazards":  []string{"blocked exit"},
		"findings": []map[string]string{{
			"issue":          "Fire door wedged open",
			"type":           "Safety hazard",
			"risk":           "High",
			"recommendation": "Remove wedge and fit a self-closer",
		}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("text plan = %d, body %s", rec.Code, rec.Body.String())
	}
	req := vision.lastPlanReq
	if len(req.Findings) != 1 || req.Findings[0].Issue != "Fire door wedged open" {
		t.Fatalf("expected findings forwarded to the model, got %+v", req.Findings)
	}
	if req.Findings[0].Type != domain.FindingSafetyHazard || req.Findings[0].Risk != domain.RiskHigh {
		t.Fatalf("expected typed finding, got %+v", req.Findings[0])
	}
	if len(req.Hazards) != 1 || req.Hazards[0] != "blocked exit" {
		t.Fatalf("expected hazards forwarded, got %+v", req.Hazards)
	}
}

func TestRoomPlanEndpointPersistsPlan(t *testing.T) {
	env := newTestEnv(&visionStub{planImage: ports.PlanResult{Image: "plan-img", Generated: true}})
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/v1/inspections", auth.DemoToken, map[string]any{
		"companyName":   "Acme",
		"siteName":      "Plant 1",
		"inspectorName": "J. Doe",
		"scope":         []string{"Fire"},
	})
	var insp domain.Inspection
	decodeBody(t, rec, &insp)

	rec = doJSON(t, handler, http.MethodPost, "/v1/inspections/"+insp.ID+"/rooms", auth.DemoToken, map[string]any{
		"name":   "Boiler Room",
		"images": []string{"data:image/jpeg;base64,AAA"},
	})
	decodeBody(t, rec, &insp)
	roomID := insp.Rooms[0].ID

	rec = doJSON(t, handler, http.MethodPost, "/v1/inspections/"+insp.ID+"/rooms/"+roomID+"/plan", auth.DemoToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("room plan = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Success    bool              `json:"success"`
		Generated  bool              `json:"generated"`
		Inspection domain.Inspection `json:"inspection"`
	}
	decodeBody(t, rec, &body)
	if !body.Success || !body.Generated {
		t.Fatalf("unexpected plan response: %+v", body)
	}
	if body.Inspection.Rooms[0].EvacuationPlan != "plan-img" {
		t.Fatalf("expected plan persisted on room, got %q", body.Inspection.Rooms[0].EvacuationPlan)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	env := newTestEnv(&visionStub{})
	env.deps.RateLimitRPS = 0.0001
	env.deps.RateLimitBurst = 1
	handler := NewRouter(env.deps).Handler()

	payload := map[string]any{"image": "data:image/jpeg;base64,AAA", "scope": []string{"OHS"}}
	rec := doJSON(t, handler, http.MethodPost, "/v1/analyze", auth.DemoToken, payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/v1/analyze", auth.DemoToken, payload)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After header, got %q", rec.Header().Get("Retry-After"))
	}

	// Non-AI endpoints stay reachable for the same client.
	rec = doJSON(t, handler, http.MethodGet, "/v1/inspections", auth.DemoToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected list to bypass the AI limiter, got %d", rec.Code)
	}
}

func TestBackpressureReturns503(t *testing.T) {
	vision := &visionStub{entered: make(chan struct{}), release: make(chan struct{})}
	env := newTestEnv(vision)
	env.deps.MaxInFlight = 1
	handler := NewRouter(env.deps).Handler()

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- doJSON(t, handler, http.MethodPost, "/v1/analyze", auth.DemoToken, map[string]any{
			"image": "data:image/jpeg;base64,AAA",
			"scope": []string{"OHS"},
		})
	}()
	<-vision.entered

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 at capacity, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "capacity") {
		t.Fatalf("unexpected 503 body: %s", rec.Body.String())
	}

	close(vision.release)
	first := <-done
	if first.Code != http.StatusOK {
		t.Fatalf("blocked request should complete, got %d", first.Code)
	}
}

func TestHealthzReportsDependencyState(t *testing.T) {
	env := newTestEnv(&visionStub{})
	env.deps.VisionConfigured = false
	env.deps.DBPing = func(context.Context) error { return errors.New("down") }
	handler := NewRouter(env.deps).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	var body struct {
		Status   string          `json:"status"`
		Version  string          `json:"version"`
		Services map[string]bool `json:"services"`
	}
	decodeBody(t, rec, &body)
	if body.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", body.Status)
	}
	if body.Services["gemini"] || body.Services["database"] {
		t.Fatalf("expected both services down, got %v", body.Services)
	}

	env.deps.VisionConfigured = true
	env.deps.DBPing = func(context.Context) error { return nil }
	handler = NewRouter(env.deps).Handler()
	rec = doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	decodeBody(t, rec, &body)
	if body.Status != "ok" || body.Version != version {
		t.Fatalf("expected ok with version, got %+v", body)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	env := newTestEnv(&visionStub{})
	handler := NewRouter(env.deps).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("expected inbound request id echoed, got %q", rec.Header().Get("X-Request-Id"))
	}
}
