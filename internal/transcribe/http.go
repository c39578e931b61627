package transcribe

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
	"time"
)

// HTTPProvider calls an OpenAI-compatible /v1/audio/transcriptions
// endpoint, the same shape whisper.cpp servers, speaches, and hosted
// Whisper deployments all expose.
type HTTPProvider struct {
	url      string
	model    string
	language string
	client   *http.Client
}

// NewHTTPProvider returns a provider that posts audio to url. model and
// language are sent as multipart form fields when non-empty.
func NewHTTPProvider(url, model, language string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		url:      url,
		model:    model,
		language: language,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Name() string { return "http" }

type httpResponse struct {
	Text string `json:"text"`
}

// Transcribe posts the audio file at path to the configured endpoint and
// returns the transcript text.
func (p *HTTPProvider) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}

	if p.model != "" {
		w.WriteField("model", p.model)
	}
	if p.language != "" {
		w.WriteField("language", p.language)
	}
	w.WriteField("response_format", "json")
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result httpResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.Text, nil
}
