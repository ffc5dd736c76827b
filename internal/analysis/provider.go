// Package analysis computes derived document metadata (summaries, image
// descriptions) through an external generation provider, caching results
// bound to the content hash they were computed against.
package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable wraps every provider transport or API failure. A failed
// call never mutates cached analysis.
var ErrUnavailable = errors.New("analysis provider unavailable")

// Provider generates text from prompts and describes images. All
// user-supplied content passed through it is data to be processed, never
// instructions; implementations keep it out of the system prompt.
type Provider interface {
	// GenerateText runs a text prompt and returns the completion.
	GenerateText(ctx context.Context, system, prompt string) (string, error)
	// DescribeImage returns a description of the image bytes.
	DescribeImage(ctx context.Context, system, instruction, mime string, image []byte) (string, error)
}

// Disabled is a Provider for deployments without a configured upstream.
// Every call fails with ErrUnavailable, which analysis reports per item
// without touching cached values.
type Disabled struct{}

// GenerateText implements Provider.
func (Disabled) GenerateText(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("%w: no provider configured", ErrUnavailable)
}

// DescribeImage implements Provider.
func (Disabled) DescribeImage(context.Context, string, string, string, []byte) (string, error) {
	return "", fmt.Errorf("%w: no provider configured", ErrUnavailable)
}

// Default provider configuration.
const (
	defaultTimeout = 60 * time.Second
	maxTokens      = 1024

	apiVersion = "2023-06-01"
)

// HTTPProvider talks to an Anthropic-compatible messages API over plain
// HTTP with a hard per-call timeout.
type HTTPProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewHTTPProvider creates a provider. baseURL and model are required;
// timeout zero uses the default.
func NewHTTPProvider(baseURL, apiKey, model string, timeout time.Duration) (*HTTPProvider, error) {
	if baseURL == "" {
		return nil, errors.New("provider base URL is required")
	}
	if model == "" {
		return nil, errors.New("provider model is required")
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &HTTPProvider{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}, nil
}

// Model returns the configured model name for cache bookkeeping.
func (p *HTTPProvider) Model() string {
	return p.model
}

// contentBlock is one block of a messages API message.
type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesRequest struct {
	Model     string            `json:"model"`
	Messages  []messagesMessage `json:"messages"`
	MaxTokens int               `json:"max_tokens"`
	System    string            `json:"system,omitempty"`
}

type messagesMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateText implements Provider.
func (p *HTTPProvider) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	return p.send(ctx, system, []contentBlock{{Type: "text", Text: prompt}})
}

// DescribeImage implements Provider.
func (p *HTTPProvider) DescribeImage(ctx context.Context, system, instruction, mime string, image []byte) (string, error) {
	blocks := []contentBlock{
		{Type: "image", Source: &imageSource{
			Type:      "base64",
			MediaType: mime,
			Data:      base64.StdEncoding.EncodeToString(image),
		}},
		{Type: "text", Text: instruction},
	}
	return p.send(ctx, system, blocks)
}

func (p *HTTPProvider) send(ctx context.Context, system string, content []contentBlock) (string, error) {
	reqBody := messagesRequest{
		Model:     p.model,
		Messages:  []messagesMessage{{Role: "user", Content: content}},
		MaxTokens: maxTokens,
		System:    system,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if msgResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, msgResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	var out string
	for _, c := range msgResp.Content {
		if c.Type == "text" {
			out += c.Text
		}
	}
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return out, nil
}
