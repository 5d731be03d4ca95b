package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DiarizeModel = "gpt-4o-transcribe-diarize"

	ProviderOpenAIDiarize = "openai-diarize"
	ProviderWhisper       = "whisper"
)

// TranscriberConfig scopes provider credentials and request policy to one pipeline run.
type TranscriberConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	// Timeout bounds each request; zero leaves it to the caller's context.
	Timeout    time.Duration
	HTTPClient openai.HTTPDoer
}

func (c TranscriberConfig) clientConfig() openai.ClientConfig {
	cc := openai.DefaultConfig(c.APIKey)
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		cc.BaseURL = strings.TrimRight(base, "/")
	}
	if c.HTTPClient != nil {
		cc.HTTPClient = c.HTTPClient
	}
	return cc
}

func (c TranscriberConfig) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// NewTranscriber builds the transcription client for provider.
func NewTranscriber(provider string, cfg TranscriberConfig) (AudioTranscriber, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, Wrap(ErrPrecondition, "credentials", "OPENAI_API_KEY environment variable is not set", nil)
	}
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderOpenAIDiarize:
		return NewOpenAIDiarizer(cfg), nil
	case ProviderWhisper:
		return NewWhisperTranscriber(cfg), nil
	default:
		return nil, Wrap(ErrPrecondition, "provider", fmt.Sprintf("unknown provider %q", provider), nil)
	}
}

// WhisperTranscriber uses the plain transcription endpoint. Segments carry no speaker label.
type WhisperTranscriber struct {
	cfg    TranscriberConfig
	client *openai.Client
}

func NewWhisperTranscriber(cfg TranscriberConfig) *WhisperTranscriber {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	return &WhisperTranscriber{cfg: cfg, client: openai.NewClientWithConfig(cfg.clientConfig())}
}

func (w *WhisperTranscriber) Model() string {
	return w.cfg.Model
}

func (w *WhisperTranscriber) TranscribeAudio(ctx context.Context, audioFile string) ([]Segment, error) {
	ctx, cancel := w.cfg.withTimeout(ctx)
	defer cancel()

	req := openai.AudioRequest{
		Model:    w.cfg.Model,
		FilePath: audioFile,
		Language: w.cfg.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Segments) == 0 {
		return fallbackSegment(resp.Text, resp.Duration), nil
	}
	segments := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, Segment{Start: s.Start, End: s.End, Text: CleanText(s.Text)})
	}
	return segments, nil
}

// fallbackSegment wraps a segment-less response in a single segment spanning the chunk.
func fallbackSegment(text string, duration float64) []Segment {
	text = CleanText(text)
	if text == "" {
		return nil
	}
	return []Segment{{Start: 0, End: duration, Text: text}}
}

// VerifyCredential checks the API key against the models endpoint.
func VerifyCredential(ctx context.Context, cfg TranscriberConfig) error {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Wrap(ErrPrecondition, "credentials", "OPENAI_API_KEY environment variable is not set", nil)
	}
	client := openai.NewClientWithConfig(cfg.clientConfig())
	if _, err := client.ListModels(ctx); err != nil {
		classified := classifyOpenAIError(err)
		if errors.Is(classified, ErrPrecondition) {
			return classified
		}
		return Wrap(ErrPrecondition, "credentials", "verify api key", err)
	}
	return nil
}

// classifyOpenAIError maps provider failures onto the pipeline's error markers.
func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return classifyStatus(status, err)
}

func classifyStatus(status int, err error) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Wrap(ErrPrecondition, "openai", "authentication failed", err)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return Wrap(ErrUnsupportedAudio, "openai", "audio rejected", err)
	case http.StatusTooManyRequests:
		return Wrap(ErrTranscription, "openai", "quota or rate limit exceeded", err)
	default:
		return Wrap(ErrTranscription, "openai", "request failed", err)
	}
}
