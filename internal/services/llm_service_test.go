package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triagedesk/backend/internal/config"
)

func TestGenerateCallsOllamaAndTracksCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req OllamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.False(t, req.Stream)
		_ = json.NewEncoder(w).Encode(OllamaGenerateResponse{Model: req.Model, Response: "restart the pool", Done: true})
	}))
	defer srv.Close()

	llm := NewLLMService(config.LLMConfig{URL: srv.URL + "/", Model: "test-model"})
	out, err := llm.Generate(withTicketID(context.Background(), 8), "why?")
	require.NoError(t, err)
	assert.Equal(t, "restart the pool", out)

	calls := llm.GetAPICalls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.StatusOK, calls[0].Status)
	assert.Equal(t, "assistant_reply", calls[0].CallType)
	require.NotNil(t, calls[0].TicketID)
	assert.Equal(t, uint(8), *calls[0].TicketID)

	llm.ClearAPICalls()
	assert.Empty(t, llm.GetAPICalls())
}

func TestGenerateReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	llm := NewLLMService(config.LLMConfig{URL: srv.URL})
	_, err := llm.Generate(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	calls := llm.GetAPICalls()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].TicketID)
	assert.Contains(t, calls[0].Error, "model not loaded")
}

func TestTrackedCallsAreCapped(t *testing.T) {
	llm := NewLLMService(config.LLMConfig{})
	for i := 0; i < maxTrackedCalls+5; i++ {
		llm.trackAPICall(nil, "test", nil, 200, 0, "", "")
	}
	assert.Len(t, llm.GetAPICalls(), maxTrackedCalls)
}

func TestHealthAndModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3"},{"name":"mistral"}]}`))
	}))
	defer srv.Close()

	llm := NewLLMService(config.LLMConfig{URL: srv.URL})
	require.NoError(t, llm.CheckLLMHealth(context.Background()))
	models, err := llm.GetAvailableModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3", "mistral"}, models)
	assert.Equal(t, "llama3", llm.Model())
}

func TestExtractErrorPattern(t *testing.T) {
	tests := []struct {
		message string
		pattern string
	}{
		{"Database connection timeout", "Connection Timeout"},
		{"Authentication failed", "Authentication Error"},
		{"DB query failed", "Database Error"},
		{"Permission denied", "Permission/Access Error"},
		{"Resource not found", "Resource Not Found"},
		{"Request timeout", "Timeout Error"},
		{"Out of memory", "Memory Error"},
		{"Unknown error occurred", "General Error"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.pattern, extractErrorPattern(tt.message))
		})
	}
}
