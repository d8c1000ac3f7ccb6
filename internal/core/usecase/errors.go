package usecase

import "strings"

// User-facing messages for the recoverable analysis failure classes.
const (
	MsgRateLimited    = "Service is busy (rate limit). Retry shortly."
	MsgUnavailable    = "AI service temporarily unavailable. Retry."
	MsgSafetyFiltered = "Image flagged by content-safety filters; cannot process."
)

// ClassifyAnalysisError maps a raw transport error onto the message stored on
// the failed capture. Substring match in priority order; first match wins.
func ClassifyAnalysisError(err error) string {
	if err == nil {
		return ""
	}
	raw := err.Error()
	switch {
	case strings.Contains(raw, "429"):
		return MsgRateLimited
	case strings.Contains(raw, "503"), strings.Contains(raw, "500"):
		return MsgUnavailable
	case strings.Contains(raw, "Safety"):
		return MsgSafetyFiltered
	default:
		return "Analysis Error: " + raw
	}
}
