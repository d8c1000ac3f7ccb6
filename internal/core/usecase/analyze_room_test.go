package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/complyguard/inspection-server/internal/core/domain"
	"github.com/complyguard/inspection-server/internal/core/ports"
)

type visionFake struct {
	mu sync.Mutex

	analysis    *domain.AnalysisResult
	analyzeErrs map[string]error
	overlayErr  error
	planImage   ports.PlanResult
	planText    string
	verdict     string
	verdictErr  error

	analyzeCalls  int32
	overlayCalls  int32
	planCalls     int32
	verdictCalls  int32
	inFlight      int32
	maxInFlight   int32
	analyzeDelay  time.Duration
	lastScopes    []domain.Scope
	lastGeo       string
	verdictImages []string
}

func (f *visionFake) AnalyzeImage(_ context.Context, req ports.AnalysisRequest) (*domain.AnalysisResult, error) {
	atomic.AddInt32(&f.analyzeCalls, 1)
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		prev := atomic.LoadInt32(&f.maxInFlight)
		if cur <= prev || atomic.CompareAndSwapInt32(&f.maxInFlight, prev, cur) {
			break
		}
	}
	if f.analyzeDelay > 0 {
		time.Sleep(f.analyzeDelay)
	}

	f.mu.Lock()
	f.lastScopes = req.Scopes
	f.lastGeo = req.GeoLocation
	err := f.analyzeErrs[req.Image]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if f.analysis != nil {
		copyResult := *f.analysis
		return &copyResult, nil
	}
	return &domain.AnalysisResult{Score: 90}, nil
}

func (f *visionFake) GenerateOverlay(_ context.Context, image string, _ []domain.Scope) (string, error) {
	atomic.AddInt32(&f.overlayCalls, 1)
	if f.overlayErr != nil {
		return "", f.overlayErr
	}
	return "overlay:" + image, nil
}

func (f *visionFake) GeneratePlanImage(context.Context, string) ports.PlanResult {
	atomic.AddInt32(&f.planCalls, 1)
	return f.planImage
}

func (f *visionFake) GeneratePlanText(context.Context, ports.PlanRequest) (string, error) {
	return f.planText, nil
}

func (f *visionFake) RunCustomCheck(_ context.Context, images []string, _, _ string) (string, error) {
	atomic.AddInt32(&f.verdictCalls, 1)
	f.mu.Lock()
	f.verdictImages = images
	f.mu.Unlock()
	if f.verdictErr != nil {
		return "", f.verdictErr
	}
	return f.verdict, nil
}

func pendingRoom(id string, images ...string) domain.Room {
	captures := make([]domain.Capture, 0, len(images))
	for i, img := range images {
		captures = append(captures, domain.Capture{ID: id + "-c" + string(rune('0'+i)), OriginalImage: img})
	}
	return domain.Room{ID: id, Name: "Room " + id, Department: "General", Captures: captures, Status: domain.RoomStatusPending}
}

func TestAnalyzeRoomAttachesAnalysisAndOverlay(t *testing.T) {
	vision := &visionFake{analysis: &domain.AnalysisResult{Score: 85, Summary: "ok"}}
	ra := NewRoomAnalyzer(vision, 2, nil)

	room := ra.AnalyzeRoom(context.Background(), pendingRoom("r1", "img-a"), []domain.Scope{domain.ScopeOHS}, "Berlin, DE")

	if room.Status != domain.RoomStatusAnalyzed {
		t.Fatalf("expected analyzed status, got %s", room.Status)
	}
	c := room.Captures[0]
	if c.Analysis == nil || c.Analysis.Score != 85 {
		t.Fatalf("expected analysis attached, got %+v", c.Analysis)
	}
	if c.OverlayImage != "overlay:img-a" {
		t.Fatalf("expected overlay image, got %q", c.OverlayImage)
	}
	if vision.lastGeo != "Berlin, DE" {
		t.Fatalf("expected geo location forwarded, got %q", vision.lastGeo)
	}
}

func TestAnalyzeRoomSkipsAlreadyAnalyzedCaptures(t *testing.T) {
	vision := &visionFake{}
	ra := NewRoomAnalyzer(vision, 2, nil)

	room := pendingRoom("r1", "img-a", "img-b")
	room.Captures[0].Analysis = &domain.AnalysisResult{Score: 70}

	out := ra.AnalyzeRoom(context.Background(), room, []domain.Scope{domain.ScopeFire}, "")

	if got := atomic.LoadInt32(&vision.analyzeCalls); got != 1 {
		t.Fatalf("expected 1 analyze call, got %d", got)
	}
	if out.Captures[0].Analysis.Score != 70 {
		t.Fatalf("expected existing analysis preserved, got %+v", out.Captures[0].Analysis)
	}
	if out.Captures[1].Analysis == nil {
		t.Fatalf("expected pending capture analyzed")
	}
}

func TestAnalyzeRoomCaptureFailureStaysOnCapture(t *testing.T) {
	vision := &visionFake{analyzeErrs: map[string]error{
		"img-b": errors.New("gemini analyze_image: status 429"),
	}}
	ra := NewRoomAnalyzer(vision, 2, nil)

	out := ra.AnalyzeRoom(context.Background(), pendingRoom("r1", "img-a", "img-b"), []domain.Scope{domain.ScopeOHS}, "")

	if out.Status != domain.RoomStatusAnalyzed {
		t.Fatalf("room must still count as analyzed, got %s", out.Status)
	}
	if out.Captures[0].Analysis == nil || out.Captures[0].Error != "" {
		t.Fatalf("expected first capture to succeed, got %+v", out.Captures[0])
	}
	failed := out.Captures[1]
	if failed.Analysis != nil {
		t.Fatalf("failed capture must not carry analysis")
	}
	if failed.Error != MsgRateLimited {
		t.Fatalf("expected classified message %q, got %q", MsgRateLimited, failed.Error)
	}
	if !failed.Failed() {
		t.Fatalf("expected capture to report Failed()")
	}
}

func TestAnalyzeRoomKeepsOriginalOnOverlayFailure(t *testing.T) {
	vision := &visionFake{overlayErr: errors.New("no image part")}
	ra := NewRoomAnalyzer(vision, 2, nil)

	out := ra.AnalyzeRoom(context.Background(), pendingRoom("r1", "img-a"), []domain.Scope{domain.ScopeOHS}, "")

	c := out.Captures[0]
	if c.Analysis == nil {
		t.Fatalf("analysis must survive overlay failure")
	}
	if c.OverlayImage != "img-a" {
		t.Fatalf("expected original image kept as overlay, got %q", c.OverlayImage)
	}
}

func TestAnalyzeRoomBoundsConcurrency(t *testing.T) {
	vision := &visionFake{analyzeDelay: 20 * time.Millisecond}
	ra := NewRoomAnalyzer(vision, 2, nil)

	room := pendingRoom("r1", "a", "b", "c", "d", "e", "f")
	ra.AnalyzeRoom(context.Background(), room, []domain.Scope{domain.ScopeOHS}, "")

	if got := atomic.LoadInt32(&vision.maxInFlight); got > 2 {
		t.Fatalf("expected at most 2 concurrent analyses, observed %d", got)
	}
	if got := atomic.LoadInt32(&vision.analyzeCalls); got != 6 {
		t.Fatalf("expected 6 analyze calls, got %d", got)
	}
}

func TestAnalyzeRoomGeneratesPlanOnce(t *testing.T) {
	vision := &visionFake{planImage: ports.PlanResult{Image: "plan-img", Generated: true}}
	ra := NewRoomAnalyzer(vision, 2, nil)

	room := pendingRoom("r1", "img-a")
	room.PlanRequested = true

	out := ra.AnalyzeRoom(context.Background(), room, []domain.Scope{domain.ScopeFire}, "")
	if out.EvacuationPlan != "plan-img" {
		t.Fatalf("expected plan attached, got %q", out.EvacuationPlan)
	}

	// Re-running a room that already has a plan must not regenerate it.
	out.Captures[0].Analysis = nil
	out = ra.AnalyzeRoom(context.Background(), out, []domain.Scope{domain.ScopeFire}, "")
	if got := atomic.LoadInt32(&vision.planCalls); got != 1 {
		t.Fatalf("expected a single plan generation, got %d", got)
	}
	if out.EvacuationPlan != "plan-img" {
		t.Fatalf("expected plan preserved, got %q", out.EvacuationPlan)
	}
}

func TestAnalyzeRoomPlanFallbackStillAttached(t *testing.T) {
	vision := &visionFake{planImage: ports.PlanResult{Image: "img-a", Generated: false}}
	ra := NewRoomAnalyzer(vision, 2, nil)

	room := pendingRoom("r1", "img-a")
	room.PlanRequested = true

	out := ra.AnalyzeRoom(context.Background(), room, []domain.Scope{domain.ScopeFire}, "")
	if out.EvacuationPlan != "img-a" {
		t.Fatalf("expected reference image fallback, got %q", out.EvacuationPlan)
	}
}
