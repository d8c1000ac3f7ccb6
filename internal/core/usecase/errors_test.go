package usecase

import (
	"errors"
	"testing"
)

func TestClassifyAnalysisError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"rate limited", errors.New("gemini analyze_image: status 429 Too Many Requests"), MsgRateLimited},
		{"unavailable 503", errors.New("gemini analyze_image: status 503"), MsgUnavailable},
		{"unavailable 500", errors.New("gemini analyze_image: status 500 internal"), MsgUnavailable},
		{"safety filtered", errors.New("gemini analyze_image blocked: Safety filter (SAFETY)"), MsgSafetyFiltered},
		{"fallthrough", errors.New("connection reset"), "Analysis Error: connection reset"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyAnalysisError(tc.err); got != tc.want {
				t.Fatalf("ClassifyAnalysisError() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClassifyAnalysisErrorNil(t *testing.T) {
	if got := ClassifyAnalysisError(nil); got != "" {
		t.Fatalf("expected empty message for nil error, got %q", got)
	}
}

func TestClassifyAnalysisErrorRateLimitWinsOverSafety(t *testing.T) {
	err := errors.New("status 429: Safety quota")
	if got := ClassifyAnalysisError(err); got != MsgRateLimited {
		t.Fatalf("expected rate-limit message to take priority, got %q", got)
	}
}
