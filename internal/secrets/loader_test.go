package secrets

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestLoadFS(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/run/secrets/gemini", []byte("  file-key\n"), 0o600)
	_ = afero.WriteFile(fs, "/run/secrets/empty", []byte("\n"), 0o600)

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins over value", src: Source{Name: "gemini api key", Value: "inline", File: "/run/secrets/gemini"}, want: "file-key"},
		{name: "inline value", src: Source{Value: "  inline  "}, want: "inline"},
		{name: "optional and missing", src: Source{Optional: true}, want: ""},
		{name: "missing file", src: Source{Name: "gemini api key", File: "/nope"}, wantErr: `reading gemini api key from file "/nope"`},
		{name: "empty file", src: Source{Name: "key", File: "/run/secrets/empty", Optional: true}, wantErr: "is empty"},
		{name: "required and missing", src: Source{Name: "openai api key"}, wantErr: "openai api key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := LoadFS(fs, tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}

	if _, err := LoadFS(fs, Source{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
