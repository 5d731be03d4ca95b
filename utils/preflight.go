package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// CheckResult reports the outcome of a single preflight check.
type CheckResult struct {
	Name   string
	Passed bool
	Detail string
}

// PreflightConfig lists what a run needs before any work starts.
type PreflightConfig struct {
	FFmpegBinary  string
	FFprobeBinary string
	OutputDir     string
	Transcriber   TranscriberConfig
	// VerifyKey checks the credential against the models endpoint.
	VerifyKey bool
}

// Preflight runs every check and returns the results plus an ErrPrecondition error naming the
// first failure.
func Preflight(ctx context.Context, cfg PreflightConfig) ([]CheckResult, error) {
	results := []CheckResult{
		CheckBinary("ffmpeg", defaultString(cfg.FFmpegBinary, "ffmpeg")),
		CheckBinary("ffprobe", defaultString(cfg.FFprobeBinary, "ffprobe")),
		CheckCredential(cfg.Transcriber.APIKey),
		CheckOutputDirectory(cfg.OutputDir),
	}
	if cfg.VerifyKey && results[2].Passed {
		results = append(results, CheckAPIKey(ctx, cfg.Transcriber))
	}

	for _, r := range results {
		if !r.Passed {
			return results, Wrap(ErrPrecondition, r.Name, r.Detail, nil)
		}
	}
	return results, nil
}

func CheckBinary(name, binary string) CheckResult {
	path, err := exec.LookPath(binary)
	if err != nil {
		return CheckResult{Name: name, Detail: fmt.Sprintf("%s not found on PATH", binary)}
	}
	return CheckResult{Name: name, Passed: true, Detail: path}
}

func CheckCredential(apiKey string) CheckResult {
	const name = "credentials"
	if strings.TrimSpace(apiKey) == "" {
		return CheckResult{Name: name, Detail: "OPENAI_API_KEY environment variable is not set"}
	}
	return CheckResult{Name: name, Passed: true, Detail: "api key present"}
}

// CheckOutputDirectory creates dir if needed and verifies it is writable.
func CheckOutputDirectory(dir string) CheckResult {
	const name = "output directory"
	if strings.TrimSpace(dir) == "" {
		return CheckResult{Name: name, Detail: "output directory is not configured"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return CheckResult{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return CheckResult{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", dir, err)}
	}
	if !info.IsDir() {
		return CheckResult{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", dir)}
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return CheckResult{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", dir, err)}
	}
	return CheckResult{Name: name, Passed: true, Detail: fmt.Sprintf("%s (write ok)", dir)}
}

// CheckAPIKey makes a single models request with a short timeout.
func CheckAPIKey(ctx context.Context, cfg TranscriberConfig) CheckResult {
	const name = "api key"
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := VerifyCredential(checkCtx, cfg); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return CheckResult{Name: name, Detail: "verification timed out"}
		}
		return CheckResult{Name: name, Detail: err.Error()}
	}
	return CheckResult{Name: name, Passed: true, Detail: "accepted by models endpoint"}
}

func defaultString(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
