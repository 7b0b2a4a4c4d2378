package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestGenerateContent(t *testing.T) {
	var received struct {
		Model    string              `json:"model"`
		Messages []map[string]string `json:"messages"`
	}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  good  "}}]}`)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, APIKey: "secret", Model: "zephyr"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := client.GenerateContent(context.Background(), "be brief", "judge this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "good" {
		t.Fatalf("unexpected output: %q", out)
	}
	if auth != "Bearer secret" {
		t.Fatalf("unexpected authorization header: %q", auth)
	}
	if received.Model != "zephyr" {
		t.Fatalf("unexpected model: %q", received.Model)
	}
	if len(received.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(received.Messages))
	}
	if received.Messages[0]["role"] != "system" || received.Messages[0]["content"] != "be brief" {
		t.Fatalf("unexpected system message: %+v", received.Messages[0])
	}
	if received.Messages[1]["role"] != "user" || received.Messages[1]["content"] != "judge this" {
		t.Fatalf("unexpected user message: %+v", received.Messages[1])
	}
}

func TestGenerateContentWithModelOverride(t *testing.T) {
	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		model, _ = body["model"].(string)
		io.WriteString(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer srv.Close()

	base, err := New(Config{BaseURL: srv.URL, Model: "basic"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	master := base.WithModel("master")
	if _, err := master.GenerateContent(context.Background(), "", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if model != "master" {
		t.Fatalf("expected master model, got %q", model)
	}
	if base.Model() != "basic" {
		t.Fatalf("base client must keep its model, got %q", base.Model())
	}
}

func TestGenerateContentErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "api error",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"rate limited"}}`,
			wantErr: "rate limited",
		},
		{
			name:    "empty choices",
			status:  http.StatusOK,
			body:    `{"choices":[]}`,
			wantErr: "empty response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client, err := New(Config{BaseURL: srv.URL, Model: "m"}, zap.NewNop())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			_, err = client.GenerateContent(context.Background(), "", "hello")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTranscribe(t *testing.T) {
	var fileName, model, payload string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		model = r.FormValue("model")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			fileName = header.Filename
			data, _ := io.ReadAll(file)
			payload = string(data)
		}
		io.WriteString(w, `{"text":" I built three open-source tools. "}`)
	}))
	defer srv.Close()

	client, err := New(Config{BaseURL: srv.URL, Model: "m", TranscriptionModel: "whisper-large"}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text, err := client.Transcribe(context.Background(), "data/videos/cand1.webm", []byte("media-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if text != "I built three open-source tools." {
		t.Fatalf("unexpected transcript: %q", text)
	}
	if fileName != "cand1.webm" {
		t.Fatalf("unexpected file name: %q", fileName)
	}
	if model != "whisper-large" {
		t.Fatalf("unexpected model: %q", model)
	}
	if payload != "media-bytes" {
		t.Fatalf("unexpected payload: %q", payload)
	}
}

func TestNewRequiresModel(t *testing.T) {
	if _, err := New(Config{BaseURL: "http://localhost"}, nil); err == nil {
		t.Fatal("expected error without model")
	}
}
