package config

import (
	"errors"
	"fmt"
	"math"
)

var knownProviders = map[string]bool{
	"openai-diarize": true,
	"whisper":        true,
}

// Validate ensures the configuration is usable. Credentials are checked by preflight, not here,
// so commands that never call the provider work without a key.
func (c *Config) Validate() error {
	if err := c.validateChunking(); err != nil {
		return err
	}
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateChunking() error {
	ch := c.Chunking
	switch {
	case ch.MaxSeconds <= 0 || math.IsNaN(ch.MaxSeconds):
		return errors.New("chunking.max_seconds must be positive")
	case ch.TargetSeconds <= 0 || math.IsNaN(ch.TargetSeconds):
		return errors.New("chunking.target_seconds must be positive")
	case ch.TargetSeconds > ch.MaxSeconds:
		return fmt.Errorf("chunking.target_seconds (%v) must not exceed chunking.max_seconds (%v)", ch.TargetSeconds, ch.MaxSeconds)
	case ch.MinFraction <= 0 || ch.MinFraction >= 1 || math.IsNaN(ch.MinFraction):
		return errors.New("chunking.min_fraction must be in (0, 1)")
	case ch.Workers < 1:
		return errors.New("chunking.workers must be at least 1")
	}
	return nil
}

func (c *Config) validateOpenAI() error {
	if !knownProviders[c.OpenAI.Provider] {
		return fmt.Errorf("openai.provider %q is not supported (use openai-diarize or whisper)", c.OpenAI.Provider)
	}
	if c.OpenAI.TimeoutSeconds < 0 {
		return errors.New("openai.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}
