package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTextSendsModerationRequest(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"flagged":true,"categories":{"hate":true}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("sk-test", WithBaseURL(server.URL))
	verdict, err := client.ClassifyText(context.Background(), "some text")

	require.NoError(t, err)
	assert.True(t, verdict.Flagged)
	assert.NotEmpty(t, verdict.Raw)
	assert.Equal(t, "/moderations", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "omni-moderation-latest", gotBody["model"])
	assert.Equal(t, "some text", gotBody["input"])
}

func TestClassifyTextEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("sk-test", WithBaseURL(server.URL))
	_, err := client.ClassifyText(context.Background(), "text")
	assert.Error(t, err)
}

func TestAnswerTextOnlyPrompt(t *testing.T) {
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"NO"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("sk-test", WithBaseURL(server.URL), WithChatModel("gpt-4o"))
	answer, err := client.Answer(context.Background(), Prompt{
		System: "You are a moderator.",
		Text:   "check this",
	})

	require.NoError(t, err)
	assert.Equal(t, "NO", answer)
	assert.Equal(t, "gpt-4o", gotBody.Model)
	assert.Equal(t, 10, gotBody.MaxTokens)
	assert.Zero(t, gotBody.Temperature)

	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	// Text-only content is a plain JSON string
	var userText string
	require.NoError(t, json.Unmarshal(gotBody.Messages[1].Content, &userText))
	assert.Equal(t, "check this", userText)
}

func TestAnswerImagePromptUsesContentParts(t *testing.T) {
	var gotBody chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"YES"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("sk-test", WithBaseURL(server.URL))
	answer, err := client.Answer(context.Background(), Prompt{
		System:   "You judge images.",
		Text:     "Is this appropriate?",
		ImageURL: "https://storage.example/signed",
	})

	require.NoError(t, err)
	assert.Equal(t, "YES", answer)

	require.Len(t, gotBody.Messages, 2)
	var parts []contentPart
	require.NoError(t, json.Unmarshal(gotBody.Messages[1].Content, &parts))
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "image_url", parts[1].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "https://storage.example/signed", parts[1].ImageURL.URL)
}

func TestPostSurfacesAPIErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"Rate limit reached"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("sk-test", WithBaseURL(server.URL))
	_, err := client.ClassifyText(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestAnswerEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("sk-test", WithBaseURL(server.URL))
	_, err := client.Answer(context.Background(), Prompt{Text: "hello"})
	assert.Error(t, err)
}
