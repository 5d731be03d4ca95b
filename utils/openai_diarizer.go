package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
)

// OpenAIDiarizer calls the transcription endpoint with the diarized_json response format,
// which the go-openai request builder cannot express.
type OpenAIDiarizer struct {
	cfg    TranscriberConfig
	client openai.ClientConfig
}

type diarizedResponse struct {
	Text     string            `json:"text"`
	Duration *decimal.Decimal  `json:"duration,omitempty"`
	Segments []diarizedSegment `json:"segments"`
}

type diarizedSegment struct {
	ID      string          `json:"id"`
	Start   decimal.Decimal `json:"start"`
	End     decimal.Decimal `json:"end"`
	Speaker string          `json:"speaker"`
	Text    string          `json:"text"`
}

func NewOpenAIDiarizer(cfg TranscriberConfig) *OpenAIDiarizer {
	if cfg.Model == "" {
		cfg.Model = DiarizeModel
	}
	return &OpenAIDiarizer{cfg: cfg, client: cfg.clientConfig()}
}

func (d *OpenAIDiarizer) Model() string {
	return d.cfg.Model
}

func (d *OpenAIDiarizer) TranscribeAudio(ctx context.Context, audioFile string) ([]Segment, error) {
	ctx, cancel := d.cfg.withTimeout(ctx)
	defer cancel()

	body, contentType, err := d.buildForm(audioFile)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.client.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, Wrap(ErrTranscription, "openai", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if d.client.OrgID != "" {
		req.Header.Set("OpenAI-Organization", d.client.OrgID)
	}

	resp, err := d.client.HTTPClient.Do(req)
	if err != nil {
		return nil, Wrap(ErrTranscription, "openai", "send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		return nil, classifyOpenAIError(decodeErrorResponse(resp))
	}

	var dr diarizedResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, Wrap(ErrTranscription, "openai", "decode diarized response", err)
	}
	return dr.toSegments(), nil
}

func (d *OpenAIDiarizer) buildForm(audioFile string) (io.Reader, string, error) {
	f, err := os.Open(audioFile)
	if err != nil {
		return nil, "", Wrap(ErrTranscription, "openai", "open chunk", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := [][2]string{
		{"model", d.cfg.Model},
		{"response_format", "diarized_json"},
		{"chunking_strategy", "auto"},
	}
	if d.cfg.Language != "" {
		fields = append(fields, [2]string{"language", d.cfg.Language})
	}
	for _, field := range fields {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return nil, "", Wrap(ErrTranscription, "openai", "write form field "+field[0], err)
		}
	}

	fw, err := mw.CreateFormFile("file", filepath.Base(audioFile))
	if err != nil {
		return nil, "", Wrap(ErrTranscription, "openai", "create form file", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", Wrap(ErrTranscription, "openai", "copy chunk", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", Wrap(ErrTranscription, "openai", "close form", err)
	}
	return &body, mw.FormDataContentType(), nil
}

// decodeErrorResponse mirrors go-openai's handling of non-2xx responses.
func decodeErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &openai.RequestError{HTTPStatus: resp.Status, HTTPStatusCode: resp.StatusCode, Err: err}
	}
	var errRes openai.ErrorResponse
	if err := json.Unmarshal(body, &errRes); err != nil || errRes.Error == nil {
		if err == nil {
			err = fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return &openai.RequestError{HTTPStatus: resp.Status, HTTPStatusCode: resp.StatusCode, Err: err, Body: body}
	}
	errRes.Error.HTTPStatus = resp.Status
	errRes.Error.HTTPStatusCode = resp.StatusCode
	return errRes.Error
}

func (r diarizedResponse) toSegments() []Segment {
	if len(r.Segments) == 0 {
		duration := 0.0
		if r.Duration != nil {
			duration = r.Duration.InexactFloat64()
		}
		return fallbackSegment(r.Text, duration)
	}
	segments := make([]Segment, 0, len(r.Segments))
	for _, s := range r.Segments {
		segments = append(segments, Segment{
			Start:   s.Start.InexactFloat64(),
			End:     s.End.InexactFloat64(),
			Speaker: s.Speaker,
			Text:    CleanText(s.Text),
		})
	}
	return segments
}
