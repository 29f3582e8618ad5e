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

// OllamaConfig configures a local Ollama chat client.
type OllamaConfig struct {
	BaseURL string // e.g. http://localhost:11434
	Model   string
	Timeout time.Duration
}

// Ollama talks to Ollama's /api/chat endpoint with streaming disabled.
type Ollama struct {
	cfg   OllamaConfig
	http  *http.Client
	guard guard
}

// NewOllama builds the client.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1:8b"
	}
	return &Ollama{cfg: cfg, http: newHTTPClient(cfg.Timeout), guard: newGuard()}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message openAIMessage `json:"message"`
	Error   string        `json:"error"`
}

// Complete implements Client.
func (c *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	var messages []openAIMessage
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.User})

	opts := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options:  opts,
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	var text string
	err = c.guard.do(ctx, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return fmt.Errorf("llm: ollama request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("llm: ollama status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		}

		var out ollamaChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("llm: ollama decode: %w", err)
		}
		if out.Error != "" {
			return fmt.Errorf("llm: ollama: %s", out.Error)
		}
		text = out.Message.Content
		return nil
	})
	return text, err
}
