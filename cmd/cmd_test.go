package cmd

import (
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/interview"
)

func TestSkipRejected(t *testing.T) {
	responses := []*interview.Response{
		interview.NewResponse("data/videos/a.webm", "t"),
		interview.NewResponse("data/videos/b.webm", "t"),
		interview.NewResponse("data/videos/c.webm", "t"),
	}
	rejected := func(id string) (bool, error) { return id == "b", nil }

	kept := skipRejected(responses, rejected, zap.NewNop())
	if len(kept) != 2 || kept[0].MediaPath != "data/videos/a.webm" || kept[1].MediaPath != "data/videos/c.webm" {
		t.Fatalf("unexpected responses: %+v", kept)
	}
}

func TestEnvName(t *testing.T) {
	if got := envName("ai.gemini.api-key"); got != "INTERVIEW_JUDGE_AI_GEMINI_API_KEY" {
		t.Fatalf("unexpected env name: %s", got)
	}
}

func TestNewBackendsRejectsUnknownProvider(t *testing.T) {
	if _, err := newBackends(t.Context(), AIConfig{Provider: "unknown"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
