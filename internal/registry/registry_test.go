package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openRegistry(t *testing.T) *Registry {
	t.Helper()

	r, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "registry.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestTasks(t *testing.T) {
	ctx := context.Background()
	r := openRegistry(t)

	if _, err := r.Task(ctx, "intro"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}

	if err := r.UpsertTask(ctx, "intro", "Introduce yourself."); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := r.UpsertTask(ctx, "intro", "Tell us about yourself."); err != nil {
		t.Fatalf("update: %v", err)
	}

	task, err := r.Task(ctx, "intro")
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if task.Text != "Tell us about yourself." {
		t.Fatalf("expected updated text, got %q", task.Text)
	}

	if err := r.UpsertTask(ctx, " ", "text"); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestSubmissions(t *testing.T) {
	ctx := context.Background()
	r := openRegistry(t)
	base := time.Unix(1700000000, 0)

	_ = r.UpsertTask(ctx, "intro", "Introduce yourself.")
	_ = r.UpsertTask(ctx, "design", "Design a cache.")

	subs := []Submission{
		{CandidateID: "b", TaskID: "design", RecruitmentID: "r1", MediaPath: "data/videos/b.webm", CreatedAt: base.Add(time.Minute)},
		{CandidateID: "a", TaskID: "intro", RecruitmentID: "r1", MediaPath: "data/videos/a.webm", CreatedAt: base},
		{CandidateID: "c", TaskID: "intro", RecruitmentID: "r2", MediaPath: "data/videos/c.webm", CreatedAt: base},
	}
	for _, s := range subs {
		if _, err := r.AddSubmission(ctx, s); err != nil {
			t.Fatalf("add %s: %v", s.CandidateID, err)
		}
	}

	if _, err := r.AddSubmission(ctx, Submission{CandidateID: "d", TaskID: "unknown", MediaPath: "x.webm"}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}

	got, err := r.Submissions(ctx, "r1")
	if err != nil {
		t.Fatalf("submissions: %v", err)
	}
	if len(got) != 2 || got[0].CandidateID != "a" || got[1].CandidateID != "b" {
		t.Fatalf("unexpected submissions: %+v", got)
	}
	if !got[0].CreatedAt.Equal(base) {
		t.Fatalf("created_at must round trip, got %v", got[0].CreatedAt)
	}

	all, err := r.Submissions(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all submissions, got %d %v", len(all), err)
	}

	responses, err := r.Responses(ctx, "r1")
	if err != nil {
		t.Fatalf("responses: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	if responses[0].MediaPath != "data/videos/a.webm" || responses[0].Task.Text != "Introduce yourself." {
		t.Fatalf("unexpected first response: %+v", responses[0])
	}
	if responses[1].Task.Text != "Design a cache." {
		t.Fatalf("unexpected second response: %+v", responses[1])
	}
}

func TestAddSubmissionDefaultsCreatedAt(t *testing.T) {
	ctx := context.Background()
	r := openRegistry(t)
	fixed := time.Unix(1800000000, 0)
	r.now = func() time.Time { return fixed }

	_ = r.UpsertTask(ctx, "intro", "Introduce yourself.")
	s, err := r.AddSubmission(ctx, Submission{CandidateID: "a", TaskID: "intro", MediaPath: "a.webm"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !s.CreatedAt.Equal(fixed) {
		t.Fatalf("expected default timestamp, got %v", s.CreatedAt)
	}

	if _, err := r.AddSubmission(ctx, Submission{CandidateID: "a", TaskID: "intro", MediaPath: "a.webm"}); err == nil {
		t.Fatal("duplicate candidate id must be rejected")
	}
}
