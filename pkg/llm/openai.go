package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIConfig configures an OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // defaults to the hosted endpoint
	Model   string
	Timeout time.Duration
}

// OpenAI talks to an OpenAI-compatible /chat/completions endpoint.
type OpenAI struct {
	cfg   OpenAIConfig
	http  *http.Client
	guard guard
}

// NewOpenAI builds the client. A missing API key is allowed here; the
// first Complete call reports ErrUnavailable so the caller's fallback
// path engages instead of a construction failure.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &OpenAI{cfg: cfg, http: newHTTPClient(cfg.Timeout), guard: newGuard()}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Client.
func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: no API key", ErrUnavailable)
	}

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	var messages []openAIMessage
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.User})

	body, err := json.Marshal(openAIRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	var text string
	err = c.guard.do(ctx, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return fmt.Errorf("llm: openai request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("llm: openai status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		}

		var out openAIResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("llm: openai decode: %w", err)
		}
		if out.Error != nil {
			return fmt.Errorf("llm: openai: %s", out.Error.Message)
		}
		if len(out.Choices) == 0 {
			return fmt.Errorf("llm: openai: empty choices")
		}
		text = out.Choices[0].Message.Content
		return nil
	})
	return text, err
}
