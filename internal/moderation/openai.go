package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAIClient implements PolicyClassifier and ChatClassifier against the
// OpenAI wire format. It works with any endpoint speaking that format
// (OpenAI, Azure OpenAI, OpenRouter, vLLM, and so on) via the base URL.
//
// No timeout is set on the HTTP client: classifier calls are bounded by the
// caller's request context and the server's own request deadline.
type OpenAIClient struct {
	httpClient      *http.Client
	baseURL         string
	apiKey          string
	moderationModel string
	chatModel       string
}

// OpenAIOption configures an OpenAIClient
type OpenAIOption func(*OpenAIClient)

// WithBaseURL points the client at an alternate OpenAI-compatible endpoint
func WithBaseURL(baseURL string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithChatModel overrides the chat model used for classification prompts
func WithChatModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.chatModel = model
	}
}

// WithModerationModel overrides the moderation model
func WithModerationModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.moderationModel = model
	}
}

// WithHTTPClient substitutes the HTTP client (used by tests)
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(c *OpenAIClient) {
		c.httpClient = client
	}
}

// NewOpenAIClient creates a classifier client for the OpenAI API
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		httpClient:      &http.Client{},
		baseURL:         "https://api.openai.com/v1",
		apiKey:          apiKey,
		moderationModel: "omni-moderation-latest",
		chatModel:       "gpt-4o-mini",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	_ PolicyClassifier = (*OpenAIClient)(nil)
	_ ChatClassifier   = (*OpenAIClient)(nil)
)

// ClassifyText submits text to the moderations endpoint and returns the
// flagged verdict from the first result.
func (c *OpenAIClient) ClassifyText(ctx context.Context, text string) (Verdict, error) {
	reqBody := moderationRequest{
		Model: c.moderationModel,
		Input: text,
	}

	raw, err := c.post(ctx, "/moderations", reqBody)
	if err != nil {
		return Verdict{}, err
	}

	var resp moderationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Verdict{}, fmt.Errorf("moderation: parsing response: %w", err)
	}
	if len(resp.Results) == 0 {
		return Verdict{}, fmt.Errorf("moderation: response contained no results")
	}

	return Verdict{
		Flagged: resp.Results[0].Flagged,
		Raw:     string(raw),
	}, nil
}

// Answer sends a classification prompt to the chat completions endpoint and
// returns the model's text answer.
func (c *OpenAIClient) Answer(ctx context.Context, prompt Prompt) (string, error) {
	reqBody := chatRequest{
		Model:       c.chatModel,
		MaxTokens:   10,
		Temperature: 0,
	}

	if prompt.System != "" {
		reqBody.Messages = append(reqBody.Messages, chatMessage{
			Role:    "system",
			Content: textContent(prompt.System),
		})
	}

	// The content field is polymorphic: a JSON string for text-only
	// messages, an array of content parts when an image is attached.
	if prompt.ImageURL != "" {
		parts := []contentPart{}
		if prompt.Text != "" {
			parts = append(parts, contentPart{Type: "text", Text: prompt.Text})
		}
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURLPart{URL: prompt.ImageURL},
		})
		data, err := json.Marshal(parts)
		if err != nil {
			return "", fmt.Errorf("moderation: encoding content parts: %w", err)
		}
		reqBody.Messages = append(reqBody.Messages, chatMessage{
			Role:    "user",
			Content: data,
		})
	} else {
		reqBody.Messages = append(reqBody.Messages, chatMessage{
			Role:    "user",
			Content: textContent(prompt.Text),
		})
	}

	raw, err := c.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("moderation: parsing chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("moderation: chat response contained no choices")
	}

	var answer string
	if err := json.Unmarshal(resp.Choices[0].Message.Content, &answer); err != nil {
		return "", fmt.Errorf("moderation: chat content was not a string: %w", err)
	}

	return answer, nil
}

// post sends a JSON request and returns the raw response body, mapping
// non-2xx statuses to errors that include the API's error message.
func (c *OpenAIClient) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("moderation: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("moderation: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("moderation: calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("moderation: reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("moderation: %s returned %d: %s", path, resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("moderation: %s returned %d", path, resp.StatusCode)
	}

	return raw, nil
}

// --- OpenAI wire types ---

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		Categories     map[string]bool    `json:"categories"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// chatMessage's Content is json.RawMessage because the field is polymorphic:
// a JSON string for plain text, an array of content parts for multimodal.
type chatMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// textContent serializes a text string for the polymorphic content field
func textContent(text string) json.RawMessage {
	data, _ := json.Marshal(text)
	return data
}
