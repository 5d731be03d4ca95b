package utils

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeBinary(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

func TestPreflightPasses(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "output")
	results, err := Preflight(context.Background(), PreflightConfig{
		FFmpegBinary:  fakeBinary(t, "ffmpeg"),
		FFprobeBinary: fakeBinary(t, "ffprobe"),
		OutputDir:     outputDir,
		Transcriber:   TranscriberConfig{APIKey: "sk-test"},
	})
	if err != nil {
		t.Fatalf("Preflight returned error: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %s failed: %s", r.Name, r.Detail)
		}
	}
	if info, err := os.Stat(outputDir); err != nil || !info.IsDir() {
		t.Errorf("expected the output directory to be created: %v", err)
	}
}

func TestPreflightReportsFirstFailure(t *testing.T) {
	tests := []struct {
		name      string
		cfg       PreflightConfig
		wantCheck string
	}{
		{
			name: "missing ffmpeg",
			cfg: PreflightConfig{
				FFmpegBinary:  "definitely-not-ffmpeg-binary",
				FFprobeBinary: fakeBinary(t, "ffprobe"),
				OutputDir:     t.TempDir(),
				Transcriber:   TranscriberConfig{APIKey: "sk-test"},
			},
			wantCheck: "ffmpeg",
		},
		{
			name: "missing key",
			cfg: PreflightConfig{
				FFmpegBinary:  fakeBinary(t, "ffmpeg"),
				FFprobeBinary: fakeBinary(t, "ffprobe"),
				OutputDir:     t.TempDir(),
				Transcriber:   TranscriberConfig{APIKey: "  "},
				VerifyKey:     true,
			},
			wantCheck: "OPENAI_API_KEY",
		},
		{
			name: "output is a file",
			cfg: PreflightConfig{
				FFmpegBinary:  fakeBinary(t, "ffmpeg"),
				FFprobeBinary: fakeBinary(t, "ffprobe"),
				OutputDir:     fakeBinary(t, "not-a-dir"),
				Transcriber:   TranscriberConfig{APIKey: "sk-test"},
			},
			wantCheck: "output directory",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := Preflight(context.Background(), tt.cfg)
			if !errors.Is(err, ErrPrecondition) {
				t.Fatalf("expected ErrPrecondition, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantCheck) {
				t.Errorf("error %q does not mention %q", err, tt.wantCheck)
			}
			if len(results) != 4 {
				t.Errorf("expected every check to run, got %d results", len(results))
			}
		})
	}
}

func TestPreflightVerifiesKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error": {"message": "Incorrect API key provided"}}`)
	}))
	defer server.Close()

	results, err := Preflight(context.Background(), PreflightConfig{
		FFmpegBinary:  fakeBinary(t, "ffmpeg"),
		FFprobeBinary: fakeBinary(t, "ffprobe"),
		OutputDir:     t.TempDir(),
		Transcriber:   TranscriberConfig{APIKey: "sk-bad", BaseURL: server.URL},
		VerifyKey:     true,
	})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	if len(results) != 5 || results[4].Name != "api key" || results[4].Passed {
		t.Fatalf("expected a failed api key check, got %+v", results)
	}
}

func TestCheckOutputDirectoryRequiresPath(t *testing.T) {
	if r := CheckOutputDirectory(" "); r.Passed {
		t.Fatal("expected an empty output directory to fail")
	}
}
