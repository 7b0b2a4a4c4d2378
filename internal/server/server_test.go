package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/interview"
	"github.com/spigell/interview-judge/internal/pool"
	"github.com/spigell/interview-judge/internal/registry"
)

type stubStates struct {
	states map[string]pool.State
	byID   map[string]*interview.Assessment
}

func (s *stubStates) State(id string) (pool.State, *interview.Assessment, error) {
	state, ok := s.states[id]
	if !ok {
		return "", nil, pool.ErrUnknownCandidate
	}
	return state, s.byID[id], nil
}

type fixture struct {
	server   *Server
	media    afero.Fs
	registry *registry.Registry
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	ctx := context.Background()
	reg, err := registry.Open(ctx, filepath.Join(t.TempDir(), "registry.db"), nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	if err := reg.UpsertTask(ctx, "intro", "Introduce yourself."); err != nil {
		t.Fatalf("task: %v", err)
	}

	verdict := interview.Assessment{CandidateID: "done", Task: "Introduce yourself.", Verdict: "Hire."}
	states := &stubStates{
		states: map[string]pool.State{"fresh": pool.StateRaw, "done": pool.StateSummarized},
		byID:   map[string]*interview.Assessment{"done": &verdict},
	}

	media := afero.NewMemMapFs()
	s, err := New(cfg, Deps{
		Media:      media,
		MediaDir:   "data/videos",
		Registry:   reg,
		Candidates: states,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	s.newID = func() string { return "0b7e4c1e-uuid" }

	return &fixture{server: s, media: media, registry: reg}
}

func uploadRequest(t *testing.T, method string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("media", filename)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	req := httptest.NewRequest(method, "/candidate/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func TestUpload(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			f := newFixture(t, Config{})
			req := uploadRequest(t, method,
				map[string]string{"task_id": "intro", "recruitment_id": "r1"},
				"Answer.WEBM", []byte("webm-bytes"))

			resp, err := f.server.App().Test(req, -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != http.StatusCreated {
				t.Fatalf("expected 201, got %d", resp.StatusCode)
			}

			var got uploadResponse
			decode(t, resp, &got)
			if got != (uploadResponse{CandidateID: "0b7e4c1e-uuid", TaskID: "intro", RecruitmentID: "r1"}) {
				t.Fatalf("unexpected response: %+v", got)
			}

			data, err := afero.ReadFile(f.media, "data/videos/0b7e4c1e-uuid.webm")
			if err != nil || string(data) != "webm-bytes" {
				t.Fatalf("media must be stored, got %q %v", data, err)
			}

			responses, err := f.registry.Responses(context.Background(), "r1")
			if err != nil || len(responses) != 1 {
				t.Fatalf("expected one registered response, got %d %v", len(responses), err)
			}
			if responses[0].Task.Text != "Introduce yourself." {
				t.Fatalf("unexpected registered task: %+v", responses[0])
			}
		})
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		content  []byte
		status   int
	}{
		{
			name:     "missing recruitment",
			fields:   map[string]string{"task_id": "intro"},
			filename: "a.webm", content: []byte("x"),
			status: http.StatusBadRequest,
		},
		{
			name:   "missing media",
			fields: map[string]string{"task_id": "intro", "recruitment_id": "r1"},
			status: http.StatusBadRequest,
		},
		{
			name:     "unsupported extension",
			fields:   map[string]string{"task_id": "intro", "recruitment_id": "r1"},
			filename: "cv.pdf", content: []byte("x"),
			status: http.StatusBadRequest,
		},
		{
			name:     "unknown task",
			fields:   map[string]string{"task_id": "nope", "recruitment_id": "r1"},
			filename: "a.webm", content: []byte("x"),
			status: http.StatusNotFound,
		},
		{
			name:     "too large",
			fields:   map[string]string{"task_id": "intro", "recruitment_id": "r1"},
			filename: "a.webm", content: bytes.Repeat([]byte("x"), 1<<20+1),
			status: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{MaxUploadMB: 1})

			resp, err := f.server.App().Test(uploadRequest(t, http.MethodPost, tt.fields, tt.filename, tt.content), -1)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}

			var body map[string]string
			decode(t, resp, &body)
			if body["error"] == "" {
				t.Fatalf("expected error message, got %v", body)
			}

			ids, _ := afero.ReadDir(f.media, "data/videos")
			if len(ids) != 0 {
				t.Fatalf("nothing must be stored on failure, found %d files", len(ids))
			}
		})
	}
}

func TestCandidate(t *testing.T) {
	f := newFixture(t, Config{})

	resp, err := f.server.App().Test(httptest.NewRequest(http.MethodGet, "/candidate/done", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got struct {
		CandidateID string         `json:"candidate_id"`
		State       string         `json:"state"`
		Assessment  map[string]any `json:"assessment"`
	}
	decode(t, resp, &got)
	if got.CandidateID != "done" || got.State != "summarized" || got.Assessment["assessment"] != "Hire." {
		t.Fatalf("unexpected candidate: %+v", got)
	}

	resp, _ = f.server.App().Test(httptest.NewRequest(http.MethodGet, "/candidate/fresh", nil), -1)
	var raw map[string]any
	decode(t, resp, &raw)
	if raw["state"] != "raw" {
		t.Fatalf("expected raw state, got %v", raw)
	}
	if _, ok := raw["assessment"]; ok {
		t.Fatalf("raw candidates carry no assessment: %v", raw)
	}

	resp, _ = f.server.App().Test(httptest.NewRequest(http.MethodGet, "/candidate/ghost", nil), -1)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealthcheck(t *testing.T) {
	f := newFixture(t, Config{})

	resp, err := f.server.App().Test(httptest.NewRequest(http.MethodGet, "/livez", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
