package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"budget-backend/internal/llm"
	"budget-backend/internal/shared/telemetry"
)

const (
	defaultAPIURL = "https://api.openai.com/v1/chat/completions"
)

// Options tunes timeouts and limits for the client.
type Options struct {
	TextTimeout      time.Duration
	DocumentTimeout  time.Duration
	MaxDocumentBytes int64
	APIURL           string
	HTTPClient       *http.Client
}

// Client implements llm.Client using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	apiURL     string
	opts       Options
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model string, opts Options) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if opts.TextTimeout <= 0 {
		opts.TextTimeout = 120 * time.Second
	}
	if opts.DocumentTimeout < opts.TextTimeout {
		opts.DocumentTimeout = 300 * time.Second
	}
	apiURL := strings.TrimSpace(opts.APIURL)
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		// Per-request deadlines come from the context; this is only an upper bound.
		httpClient = &http.Client{Timeout: opts.DocumentTimeout + 10*time.Second}
	}
	return &Client{
		apiKey:     apiKey,
		model:      model,
		apiURL:     apiURL,
		opts:       opts,
		httpClient: httpClient,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *filePart `json:"file,omitempty"`
}

type filePart struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []chatMessage   `json:"messages"`
	Temperature         *float64        `json:"temperature,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends one chat completion request and returns the raw message content.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := llm.CheckDocumentSize(req.Document, c.opts.MaxDocumentBytes); err != nil {
		return "", err
	}

	timeout := c.opts.TextTimeout
	if req.HasDocument() {
		timeout = c.opts.DocumentTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("openai request timeout after %s: %w", timeout, err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("openai request timeout after %s: %w", timeout, err)
		}
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 300 {
			return "", fmt.Errorf("openai http status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai http status %d: %s (%s)", resp.StatusCode, parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai http status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai response empty content")
	}
	c.logUsage(parsed, req.HasDocument(), time.Since(start))
	return content, nil
}

func (c *Client) buildRequest(req llm.Request) chatRequest {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	if req.HasDocument() {
		parts := []contentPart{{Type: "text", Text: req.Prompt}}
		parts = append(parts, contentPart{
			Type: "file",
			File: &filePart{
				Filename: req.Document.Name,
				FileData: dataURL(req.Document),
			},
		})
		messages = append(messages, chatMessage{Role: "user", Content: parts})
	} else {
		messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	}

	out := chatRequest{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: req.MaxOutputTokens,
	}
	if req.JSONOutput {
		out.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	if !isGPT5(c.model) {
		temp := req.Temperature
		out.Temperature = &temp
	}
	return out
}

func dataURL(doc *llm.Document) string {
	mime := strings.TrimSpace(doc.MimeType)
	if mime == "" {
		mime = "application/pdf"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(doc.Data)
}

func (c *Client) logUsage(resp chatResponse, document bool, elapsed time.Duration) {
	fields := map[string]any{
		"model":      c.model,
		"document":   document,
		"durationMs": elapsed.Milliseconds(),
	}
	if len(resp.Choices) > 0 {
		fields["finishReason"] = resp.Choices[0].FinishReason
	}
	if resp.Usage != nil {
		fields["promptTokens"] = resp.Usage.PromptTokens
		fields["completionTokens"] = resp.Usage.CompletionTokens
		fields["totalTokens"] = resp.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Client = (*Client)(nil)
