package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HugeFrog24/diarize-transcriber/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("TRANSCRIBER_LANGUAGE", "")
	return home
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "  sk-env  ")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1/")
	t.Setenv("TRANSCRIBER_LANGUAGE", "IT")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(home, ".config", "diarize-transcriber", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}

	wantSources, _ := filepath.Abs("sources")
	if cfg.Paths.SourcesDir != wantSources {
		t.Fatalf("unexpected sources dir: got %q want %q", cfg.Paths.SourcesDir, wantSources)
	}
	wantOutput, _ := filepath.Abs("output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if want := filepath.Join(home, ".cache", "diarize-transcriber", "chunks.db"); cfg.Cache.Path != want {
		t.Fatalf("unexpected cache path: %q", cfg.Cache.Path)
	}
	if cfg.Cache.Enabled {
		t.Fatal("expected cache disabled by default")
	}
	if cfg.OpenAI.APIKey != "sk-env" {
		t.Fatalf("expected trimmed key from env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.BaseURL != "https://proxy.example.com/v1" {
		t.Fatalf("unexpected base url: %q", cfg.OpenAI.BaseURL)
	}
	if cfg.OpenAI.Language != "it" {
		t.Fatalf("expected lowercased language from env, got %q", cfg.OpenAI.Language)
	}
	if cfg.OpenAI.Provider != "openai-diarize" {
		t.Fatalf("unexpected provider: %q", cfg.OpenAI.Provider)
	}
	if cfg.RequestTimeout() != 10*time.Minute {
		t.Fatalf("unexpected request timeout: %v", cfg.RequestTimeout())
	}
	if cfg.Chunking != config.Default().Chunking {
		t.Fatalf("unexpected chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Tools.FFmpeg != "ffmpeg" || cfg.Tools.FFprobe != "ffprobe" {
		t.Fatalf("unexpected tools: %+v", cfg.Tools)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadReadsFileAndPrefersItOverEnv(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	path := writeConfig(t, `
[paths]
sources_dir = "~/recordings"
output_dir = "~/transcripts"
temp_dir = "~/scratch"
keep_temp = true

[openai]
api_key = "sk-file"
provider = " Whisper "
language = "en"
timeout_seconds = 0

[chunking]
max_seconds = 600
target_seconds = 500
min_fraction = 0.05
workers = 4

[cache]
enabled = true
path = "~/cache.db"

[logging]
format = "JSON"
level = "debug"
`)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected the explicit path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.SourcesDir != filepath.Join(home, "recordings") {
		t.Fatalf("unexpected sources dir: %q", cfg.Paths.SourcesDir)
	}
	if cfg.Paths.TempDir != filepath.Join(home, "scratch") || !cfg.Paths.KeepTemp {
		t.Fatalf("unexpected temp settings: %+v", cfg.Paths)
	}
	if cfg.OpenAI.APIKey != "sk-file" {
		t.Fatalf("expected the file key to win over env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Provider != "whisper" {
		t.Fatalf("expected normalised provider, got %q", cfg.OpenAI.Provider)
	}
	if cfg.RequestTimeout() != 0 {
		t.Fatalf("expected an unbounded timeout, got %v", cfg.RequestTimeout())
	}
	want := config.Chunking{MaxSeconds: 600, TargetSeconds: 500, MinFraction: 0.05, Workers: 4}
	if cfg.Chunking != want {
		t.Fatalf("unexpected chunking: %+v", cfg.Chunking)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Path != filepath.Join(home, "cache.db") {
		t.Fatalf("unexpected cache: %+v", cfg.Cache)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadPrefersHomeConfig(t *testing.T) {
	home := isolateEnv(t)
	dir := filepath.Join(home, ".config", "diarize-transcriber")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[chunking]\nworkers = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || cfg.Chunking.Workers != 3 {
		t.Fatalf("expected the home config to load, exists=%v workers=%d", exists, cfg.Chunking.Workers)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "[openai]\norganisation = \"acme\"\n", "parse config"},
		{"malformed toml", "[chunking\n", "parse config"},
		{"target above max", "[chunking]\nmax_seconds = 100\ntarget_seconds = 200\n", "chunking.target_seconds"},
		{"zero max", "[chunking]\nmax_seconds = 0\n", "chunking.max_seconds"},
		{"fraction of one", "[chunking]\nmin_fraction = 1.0\n", "chunking.min_fraction"},
		{"zero fraction", "[chunking]\nmin_fraction = 0\n", "chunking.min_fraction"},
		{"no workers", "[chunking]\nworkers = 0\n", "chunking.workers"},
		{"unknown provider", "[openai]\nprovider = \"carrier-pigeon\"\n", "openai.provider"},
		{"negative timeout", "[openai]\ntimeout_seconds = -1\n", "openai.timeout_seconds"},
		{"unknown log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"unknown log level", "[logging]\nlevel = \"trace\"\n", "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			_, _, _, err := config.Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	isolateEnv(t)
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected a missing file error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists || cfg.Chunking != config.Default().Chunking {
		t.Fatalf("sample config drifted from defaults: %+v", cfg.Chunking)
	}

	if err := os.WriteFile(path, []byte("# edited\n"), 0o644); err != nil {
		t.Fatalf("edit config: %v", err)
	}
	err = config.CreateSample(path, false)
	if err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected an overwrite hint, got %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "# edited\n" {
		t.Fatal("existing config was modified without overwrite")
	}

	if err := config.CreateSample(path, true); err != nil {
		t.Fatalf("CreateSample with overwrite returned error: %v", err)
	}
	if data, _ := os.ReadFile(path); !strings.Contains(string(data), "[chunking]") {
		t.Fatal("expected the sample to replace the edited file")
	}
}

func TestOutputPath(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = "/data/output"

	tests := map[string]string{
		"/data/sources/meeting.mp4":  "/data/output/meeting.txt",
		"interview.final.mp3":        "/data/output/interview.final.txt",
		"/data/sources/no-extension": "/data/output/no-extension.txt",
	}
	for source, want := range tests {
		if got := cfg.OutputPath(source); got != want {
			t.Errorf("OutputPath(%q) = %q, want %q", source, got, want)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home := isolateEnv(t)
	got, err := config.ExpandPath("~/a/../b")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "b") {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if got, _ := config.ExpandPath(""); got != "" {
		t.Fatalf("expected empty path to stay empty, got %q", got)
	}
}
