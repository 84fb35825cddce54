// Package provider holds the advisory sources: the OpenAI-compatible chat
// client and advisors built on it, the fear and greed index, and a rule-based
// technical advisor.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"quorum/internal/logger"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.openai.com/v1"

type ChatConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	MaxRetries   int
	ExtraHeaders map[string]string
}

// ChatRequest is one system+user exchange.
type ChatRequest struct {
	System     string
	User       string
	ExpectJSON bool
}

// ChatClient posts to {base}/chat/completions with bounded retries on 429
// and 5xx answers.
type ChatClient struct {
	cfg    ChatConfig
	client *resty.Client
}

func NewChatClient(cfg ChatConfig) *ChatClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	client := resty.New().
		SetBaseURL(completionsBase(cfg.BaseURL)).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(800 * time.Millisecond).
		SetRetryMaxWaitTime(8 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return false
			}
			code := r.StatusCode()
			return code == http.StatusTooManyRequests || code >= 500
		}).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	for k, v := range cfg.ExtraHeaders {
		client.SetHeader(k, v)
	}
	return &ChatClient{cfg: cfg, client: client}
}

func (c *ChatClient) Model() string { return c.cfg.Model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatBody struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete returns the content of the first choice.
func (c *ChatClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})
	body := chatBody{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}
	if req.ExpectJSON {
		body.ResponseFormat = map[string]any{"type": "json_object"}
	}

	var out chatResponse
	var apiErr chatError
	logger.Debugf("chat request model=%s url=%s/chat/completions", c.cfg.Model, c.client.BaseURL)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion %s: %w", c.cfg.Model, err)
	}
	if resp.IsError() {
		msg := strings.TrimSpace(apiErr.Error.Message)
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("chat completion %s: status=%d: %s", c.cfg.Model, resp.StatusCode(), msg)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion %s: empty choices", c.cfg.Model)
	}
	return out.Choices[0].Message.Content, nil
}

// completionsBase trims a pasted "/chat/completions" suffix so the path is
// appended exactly once.
func completionsBase(raw string) string {
	url := strings.TrimRight(strings.TrimSpace(raw), "/")
	if url == "" {
		url = defaultBaseURL
	}
	return strings.TrimRight(strings.TrimSuffix(url, "/chat/completions"), "/")
}
