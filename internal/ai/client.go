// Package ai implements the thin client used to transcribe captures and
// summarize entries through the OpenAI inference API.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultEndpoint is the OpenAI API base URL.
	DefaultEndpoint = "https://api.openai.com/v1"
	// TranscriptionModel converts audio captures to text.
	TranscriptionModel = "gpt-4o-mini-transcribe"
	// SummaryModel produces the entry synopsis.
	SummaryModel = "gpt-4o-mini"
)

// summaryPrompt caps the synopsis at ~16 words with a positive framing.
const summaryPrompt = "Summarize this personal reflection in <= 16 words, positive and legacy-friendly:\n\n%s"

type (
	// A Client can interacts with the inference API.
	// Every call is attempted exactly once, callers decide whether a
	// failure is fatal.
	Client interface {
		// Transcribe converts the given audio blob to text.
		Transcribe(ctx context.Context, filename, contentType string, blob io.Reader) (string, error)
		// Summarize produces a short synopsis of the given content.
		Summarize(ctx context.Context, content string) (string, error)
	}

	client struct {
		endpoint string
		apikey   string
		http     *http.Client
	}
)

// New returns a Client against the given endpoint.
// An empty endpoint falls back on DefaultEndpoint.
func New(endpoint, apikey string) Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apikey:   apikey,
		http: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Transcribe converts the given audio blob to text.
func (c *client) Transcribe(ctx context.Context, filename, contentType string, blob io.Reader) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := form.WriteField("model", TranscriptionModel); err != nil {
		return "", errors.Wrap(err, "could not write model field")
	}

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", errors.Wrap(err, "could not create file part")
	}
	if _, err := io.Copy(part, blob); err != nil {
		return "", errors.Wrap(err, "could not copy blob")
	}
	if err := form.Close(); err != nil {
		return "", errors.Wrap(err, "could not finalize form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/audio/transcriptions", &body)
	if err != nil {
		return "", errors.Wrap(err, "could not build transcription request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apikey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	var payload struct {
		Text string `json:"text"`
	}
	if err := c.do(req, &payload); err != nil {
		return "", errors.Wrap(err, "transcription")
	}
	return strings.TrimSpace(payload.Text), nil
}

// Summarize produces a short synopsis of the given content.
func (c *client) Summarize(ctx context.Context, content string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"model": SummaryModel,
		"messages": []map[string]string{
			{"role": "user", "content": fmt.Sprintf(summaryPrompt, content)},
		},
		"temperature": 0.6,
	})
	if err != nil {
		return "", errors.Wrap(err, "could not marshal completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "could not build completion request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apikey)
	req.Header.Set("Content-Type", "application/json")

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.do(req, &completion); err != nil {
		return "", errors.Wrap(err, "summarization")
	}

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func (c *client) do(req *http.Request, payload any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "could not reach inference API")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return errors.Errorf("inference API responded %d: %s", res.StatusCode, message)
	}

	return errors.Wrap(json.NewDecoder(res.Body).Decode(payload), "could not parse inference API response")
}
