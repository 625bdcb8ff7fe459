package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meysamhadeli/dafc/providers/models"
	ollama_models "github.com/meysamhadeli/dafc/providers/ollama/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(stream <-chan models.StreamResponse) (string, bool, error) {
	var content strings.Builder
	done := false
	for response := range stream {
		if response.Err != nil {
			return content.String(), done, response.Err
		}
		if response.Done {
			done = true
			continue
		}
		content.WriteString(response.Content)
	}
	return content.String(), done, nil
}

func TestChatCompletionRequest_StreamsUntilDone(t *testing.T) {
	var request ollama_models.OllamaChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&request)
		_, _ = fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hi"},"done":false}`)
		_, _ = fmt.Fprintln(w, `{"message":{"role":"assistant","content":" there"},"done":false}`)
		_, _ = fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true,"prompt_eval_count":12,"eval_count":3}`)
	}))
	defer server.Close()

	provider := NewOllamaChatProvider(&OllamaConfig{BaseURL: server.URL + "/api", Model: "llama3", Temperature: 0.3})
	content, done, err := collect(provider.ChatCompletionRequest(context.Background(), "hello", "system rules"))

	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "Hi there", content)

	assert.Equal(t, "llama3", request.Model)
	assert.True(t, request.Stream)
	require.NotNil(t, request.Options)
	assert.InDelta(t, 0.3, request.Options.Temperature, 0.0001)
	require.Len(t, request.Messages, 2)
	assert.Equal(t, "system", request.Messages[0].Role)
	assert.Equal(t, "user", request.Messages[1].Role)
}

func TestChatCompletionRequest_OmitsEmptySystemPrompt(t *testing.T) {
	var request ollama_models.OllamaChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&request)
		_, _ = fmt.Fprintln(w, `{"message":{"content":"x"},"done":true}`)
	}))
	defer server.Close()

	provider := NewOllamaChatProvider(&OllamaConfig{BaseURL: server.URL, Model: "m"})
	_, _, err := collect(provider.ChatCompletionRequest(context.Background(), "hello", ""))

	require.NoError(t, err)
	require.Len(t, request.Messages, 1)
	assert.Equal(t, "user", request.Messages[0].Role)
	assert.Nil(t, request.Options)
}

func TestChatCompletionRequest_ReturnsAPIErrorOnFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprint(w, `{"error":"model 'm' not found"}`)
	}))
	defer server.Close()

	provider := NewOllamaChatProvider(&OllamaConfig{BaseURL: server.URL, Model: "m"})
	_, done, err := collect(provider.ChatCompletionRequest(context.Background(), "hello", ""))

	assert.False(t, done)
	var apiErr *models.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "model 'm' not found", apiErr.Message)
}

func TestChatCompletionRequest_TruncatedStreamIsUnexpectedEOF(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, `{"message":{"content":"partial"},"done":false}`)
	}))
	defer server.Close()

	provider := NewOllamaChatProvider(&OllamaConfig{BaseURL: server.URL, Model: "m"})
	content, done, err := collect(provider.ChatCompletionRequest(context.Background(), "hello", ""))

	assert.Equal(t, "partial", content)
	assert.False(t, done)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestChatCompletionRequest_MalformedChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, `not json`)
	}))
	defer server.Close()

	provider := NewOllamaChatProvider(&OllamaConfig{BaseURL: server.URL, Model: "m"})
	_, _, err := collect(provider.ChatCompletionRequest(context.Background(), "hello", ""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "error unmarshalling chunk")
}
