// ABOUTME: Tests for the completion client against a stub HTTP endpoint

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/parley-gateway/internal/conversation"
)

type stubRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func stubServer(t *testing.T, status int, reply string, capture *stubRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error": {"message": "boom"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "cmpl-1",
			"model": "test-model",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 7},
		})
	}))
}

func testClient(baseURL string) *Client {
	return NewClient(Config{BaseURL: baseURL, APIKey: "test", Model: "test-model"}, nil)
}

func TestCompleteSuccess(t *testing.T) {
	var captured stubRequest
	srv := stubServer(t, http.StatusOK, "Hello there", &captured)
	defer srv.Close()

	client := testClient(srv.URL + "/v1")
	result, err := client.Complete(context.Background(), []conversation.Entry{
		{Role: "user", Content: "Hi"},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "Hello there", result.Content)
	assert.Equal(t, "test-model", result.Model)
	assert.Equal(t, 12, result.PromptTokens)
	assert.Equal(t, 7, result.CompletionTokens)

	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "Hi", captured.Messages[1].Content)
}

func TestCompleteFlagInstruction(t *testing.T) {
	var captured stubRequest
	srv := stubServer(t, http.StatusOK, "ok", &captured)
	defer srv.Close()

	client := testClient(srv.URL + "/v1")
	_, err := client.Complete(context.Background(), []conversation.Entry{
		{Role: "user", Content: "make a report"},
	}, "pdf")
	require.NoError(t, err)

	require.NotEmpty(t, captured.Messages)
	assert.Contains(t, captured.Messages[0].Content, "PDF document")
}

func TestCompleteUpstreamFailure(t *testing.T) {
	srv := stubServer(t, http.StatusInternalServerError, "", nil)
	defer srv.Close()

	client := testClient(srv.URL + "/v1")
	_, err := client.Complete(context.Background(), nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestSummarize(t *testing.T) {
	var captured stubRequest
	srv := stubServer(t, http.StatusOK, "They agreed to ship Friday.", &captured)
	defer srv.Close()

	client := testClient(srv.URL + "/v1")
	summary, err := client.Summarize(context.Background(), "long conversation text")
	require.NoError(t, err)

	assert.Equal(t, "They agreed to ship Friday.", summary)
	require.Len(t, captured.Messages, 2)
	assert.Contains(t, captured.Messages[0].Content, "Summarize")
}

func TestSystemInstructionTable(t *testing.T) {
	assert.Contains(t, systemInstruction("excel"), "spreadsheet")
	assert.Contains(t, systemInstruction("checklist"), "checklist")
	assert.Contains(t, systemInstruction("powerpoint"), "slide")
	assert.Contains(t, systemInstruction("word"), "Word document")
	// Unknown flags get the plain conversational prompt.
	assert.Equal(t, systemInstruction(""), systemInstruction("something-else"))
}
