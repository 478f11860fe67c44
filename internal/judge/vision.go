package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// VisionModel answers a text prompt about a base64 PNG image.
type VisionModel interface {
	Describe(ctx context.Context, prompt, imageBase64 string) (string, error)
}

// defaultCallTimeout bounds one judgment round trip.
const defaultCallTimeout = 30 * time.Second

type OpenAIVision struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewOpenAIVision calls the chat completions API. A non-positive timeout
// means 30 seconds.
func NewOpenAIVision(apiKey, model, baseURL string, timeout time.Duration) *OpenAIVision {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &OpenAIVision{
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

type visionRequest struct {
	Model       string          `json:"model"`
	Messages    []visionMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type visionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (o *OpenAIVision) Describe(ctx context.Context, prompt, imageBase64 string) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("%w: OpenAI API key is not configured", ErrUpstream)
	}
	reqBody := visionRequest{
		Model: o.model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/png;base64," + imageBase64}},
			},
		}},
		Temperature: 0.7,
		MaxTokens:   100,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.New("failed to build OpenAI request")
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", errors.New("failed to build OpenAI request")
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to reach OpenAI", ErrUpstream)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read OpenAI response", ErrUpstream)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: OpenAI request failed (%d)", ErrUpstream, resp.StatusCode)
	}

	var parsed visionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to parse OpenAI response", ErrUpstream)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", fmt.Errorf("%w: OpenAI error: %s", ErrUpstream, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: OpenAI returned no choices", ErrUpstream)
	}
	return parsed.Choices[0].Message.Content, nil
}
