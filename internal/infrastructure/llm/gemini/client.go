package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/complyguard/inspection-server/internal/core/domain"
	"github.com/complyguard/inspection-server/internal/core/ports"
	"github.com/complyguard/inspection-server/internal/infrastructure/resilience"
)

// Client talks to the Gemini generateContent API. It implements
// ports.VisionAnalyzer: structured capture analysis on the text model,
// overlays and evacuation plan maps on the image model.
type Client struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	httpClient *http.Client
	exec       *resilience.Executor
	logger     *slog.Logger
}

func New(baseURL, apiKey, textModel, imageModel string, exec *resilience.Executor, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		textModel:  textModel,
		imageModel: imageModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		exec:       exec,
		logger:     logger,
	}
}

func (c *Client) AnalyzeImage(ctx context.Context, req ports.AnalysisRequest) (*domain.AnalysisResult, error) {
	mime, payload, err := splitDataURI(req.Image)
	if err != nil {
		return nil, fmt.Errorf("analyze image: %w", err)
	}

	prompt := buildAnalysisPrompt(req.Scopes, req.GeoLocation)
	if strings.TrimSpace(req.CustomPrompt) != "" {
		prompt += "\nAdditional inspector instructions: " + req.CustomPrompt + "\n"
	}

	genReq := generateRequest{
		Contents: []content{{Parts: []part{
			{InlineData: &inlineData{MimeType: mime, Data: payload}},
			{Text: prompt},
		}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   analysisResponseSchema,
		},
	}

	var resp *generateResponse
	err = c.exec.Run(ctx, "analyze_image", classifyGeminiError, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.generate(ctx, c.textModel, genReq, "analyze")
		return callErr
	})
	if err != nil {
		return nil, err
	}

	text := resp.firstText()
	if text == "" {
		return nil, fmt.Errorf("empty response from AI model")
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &result); err != nil {
		return nil, fmt.Errorf("parse analysis json: %w", err)
	}
	result.ClampScore()
	if result.Hazards == nil {
		result.Hazards = []string{}
	}
	if result.RelevantStandards == nil {
		result.RelevantStandards = []domain.Standard{}
	}
	if result.MissingDocuments == nil {
		result.MissingDocuments = []string{}
	}
	if result.RecommendedItems == nil {
		result.RecommendedItems = []domain.RemediationItem{}
	}
	return &result, nil
}

func (c *Client) GenerateOverlay(ctx context.Context, image string, scopes []domain.Scope) (string, error) {
	mime, payload, err := splitDataURI(image)
	if err != nil {
		return "", fmt.Errorf("generate overlay: %w", err)
	}

	genReq := generateRequest{
		Contents: []content{{Parts: []part{
			{InlineData: &inlineData{MimeType: mime, Data: payload}},
			{Text: buildOverlayPrompt(scopes)},
		}}},
	}

	var resp *generateResponse
	err = c.exec.Run(ctx, "generate_overlay", classifyGeminiError, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.generate(ctx, c.imageModel, genReq, "overlay")
		return callErr
	})
	if err != nil {
		return "", err
	}
	if img := resp.firstImage(); img != "" {
		return img, nil
	}
	return "", fmt.Errorf("overlay response carried no image part")
}

// GeneratePlanImage never fails: when the image model cannot produce a floor
// map, the reference image itself is returned with Generated false so callers
// can log the fallback.
func (c *Client) GeneratePlanImage(ctx context.Context, referenceImage string) ports.PlanResult {
	mime, payload, err := splitDataURI(referenceImage)
	if err != nil {
		c.logger.Warn("plan_reference_image_invalid", "error", err)
		return ports.PlanResult{Image: referenceImage, Generated: false}
	}

	genReq := generateRequest{
		Contents: []content{{Parts: []part{
			{InlineData: &inlineData{MimeType: mime, Data: payload}},
			{Text: planImagePrompt},
		}}},
	}

	var resp *generateResponse
	err = c.exec.Run(ctx, "generate_plan_image", classifyGeminiError, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.generate(ctx, c.imageModel, genReq, "evacuation plan")
		return callErr
	})
	if err != nil {
		c.logger.Warn("plan_generation_failed", "error", err)
		return ports.PlanResult{Image: referenceImage, Generated: false}
	}
	if img := resp.firstImage(); img != "" {
		return ports.PlanResult{Image: img, Generated: true}
	}
	return ports.PlanResult{Image: referenceImage, Generated: false}
}

func (c *Client) GeneratePlanText(ctx context.Context, req ports.PlanRequest) (string, error) {
	genReq := generateRequest{
		Contents: []content{{Parts: []part{
			{Text: buildPlanTextPrompt(req)},
		}}},
	}

	var resp *generateResponse
	err := c.exec.Run(ctx, "generate_plan_text", classifyGeminiError, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.generate(ctx, c.textModel, genReq, "evacuation plan text")
		return callErr
	})
	if err != nil {
		return "", err
	}
	text := resp.firstText()
	if text == "" {
		return "", fmt.Errorf("empty response from AI model")
	}
	return text, nil
}

func (c *Client) RunCustomCheck(ctx context.Context, images []string, query, geoLocation string) (string, error) {
	parts := make([]part, 0, len(images)+1)
	for _, img := range images {
		mime, payload, err := splitDataURI(img)
		if err != nil {
			return "", fmt.Errorf("custom check: %w", err)
		}
		parts = append(parts, part{InlineData: &inlineData{MimeType: mime, Data: payload}})
	}
	parts = append(parts, part{Text: buildCustomCheckPrompt(query, geoLocation)})

	genReq := generateRequest{Contents: []content{{Parts: parts}}}

	var resp *generateResponse
	err := c.exec.Run(ctx, "custom_check", classifyGeminiError, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.generate(ctx, c.textModel, genReq, "custom check")
		return callErr
	})
	if err != nil {
		return "", err
	}
	text := resp.firstText()
	if text == "" {
		return "", fmt.Errorf("empty response from AI model")
	}
	return text, nil
}

// splitDataURI separates a "data:<mime>;base64,<payload>" URI. A bare base64
// string is accepted as image/jpeg.
func splitDataURI(uri string) (mime, payload string, err error) {
	if uri == "" {
		return "", "", fmt.Errorf("empty image")
	}
	if !strings.HasPrefix(uri, "data:") {
		return "image/jpeg", uri, nil
	}
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", "", fmt.Errorf("malformed data uri")
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data uri: no payload")
	}
	mime = strings.TrimSuffix(meta, ";base64")
	if mime == "" {
		mime = "image/jpeg"
	}
	return mime, data, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
