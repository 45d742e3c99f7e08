package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the default OpenAI-compatible API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the default chat model.
	DefaultModel = "gpt-4o"

	// defaultMaxRetries bounds retries on rate limits and server errors.
	defaultMaxRetries = 3
)

// OpenAIClient implements the Client interface against an OpenAI-compatible
// chat completions API.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

// OpenAIOption is a functional option for configuring OpenAIClient.
type OpenAIOption func(*OpenAIClient)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithModel sets the default model for the client.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(c *OpenAIClient) {
		c.httpClient = client
	}
}

// NewOpenAIClient creates a chat client with the given API key and options.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key must not be empty")
	}

	c := &OpenAIClient{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		model:   DefaultModel,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Tools       []requestTool `json:"tools,omitempty"`
	ToolChoice  *toolChoice   `json:"tool_choice,omitempty"`
}

type requestTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type toolChoice struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// chatResponse is the response body from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the messages and returns the generated text.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	req := chatRequest{
		Model:       c.resolveModel(opts),
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// CompleteTool sends the messages with a forced tool call and returns the
// call's raw JSON arguments.
func (c *OpenAIClient) CompleteTool(ctx context.Context, messages []Message, tool Tool, opts CompleteOptions) (json.RawMessage, error) {
	choice := &toolChoice{Type: "function"}
	choice.Function.Name = tool.Name

	req := chatRequest{
		Model:       c.resolveModel(opts),
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Tools: []requestTool{{
			Type: "function",
			Function: toolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}},
		ToolChoice: choice,
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return nil, fmt.Errorf("no tool call returned")
	}

	return json.RawMessage(calls[0].Function.Arguments), nil
}

func (c *OpenAIClient) resolveModel(opts CompleteOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	return c.model
}

// send executes the request with bounded retries on rate limits and server
// errors.
func (c *OpenAIClient) send(ctx context.Context, reqBody chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("executing request: %w", err)
			if attempt < c.maxRetries {
				if err := sleepBackoff(ctx, attempt); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("chat API error (status %d): %s", resp.StatusCode, string(respBody))
			if attempt < c.maxRetries {
				if err := sleepBackoff(ctx, attempt); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("chat API error (status %d): %s", resp.StatusCode, string(respBody))
		}

		var result chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		resp.Body.Close()

		return &result, nil
	}

	return nil, lastErr
}

// sleepBackoff waits before the next retry attempt, honoring cancellation.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<attempt) * 500 * time.Millisecond
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// Ensure OpenAIClient implements Client interface.
var _ Client = (*OpenAIClient)(nil)
