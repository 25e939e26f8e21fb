package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triagedesk/backend/internal/apperrors"
)

func validCommand() AgentCommand {
	return AgentCommand{
		Command:   "start",
		ServerURL: "https://desk.example/api/v1/logs/ingest",
		NodeID:    "node-7",
		LogFile:   "/var/log/app.log",
	}
}

func TestStartForwardingPassesReplyThrough(t *testing.T) {
	var received AgentCommand
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"forwarding","pid":4242,"extra":{"k":"v"}}`))
	}))
	defer srv.Close()

	reply, err := NewAgentClient(0).StartForwarding(context.Background(), srv.URL+"/control", validCommand())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"forwarding","pid":4242,"extra":{"k":"v"}}`, string(reply))
	assert.Equal(t, validCommand(), received)
}

func TestStartForwardingNon2xxIsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewAgentClient(0).StartForwarding(context.Background(), srv.URL, validCommand())
	require.Error(t, err)
	assert.True(t, apperrors.IsBackend(err))
	assert.Equal(t, http.StatusBadGateway, apperrors.StatusCode(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestStartForwardingRejectsNonJSONReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := NewAgentClient(0).StartForwarding(context.Background(), srv.URL, validCommand())
	assert.True(t, apperrors.IsBackend(err))
}

func TestStartForwardingValidatesInput(t *testing.T) {
	client := NewAgentClient(0)
	ctx := context.Background()

	_, err := client.StartForwarding(ctx, "not a url", validCommand())
	assert.True(t, apperrors.IsValidation(err))

	_, err = client.StartForwarding(ctx, "ftp://host/x", validCommand())
	assert.True(t, apperrors.IsValidation(err))

	cmd := validCommand()
	cmd.NodeID = ""
	_, err = client.StartForwarding(ctx, "http://127.0.0.1:1/", cmd)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "node_id is required", apperrors.PublicMessage(err))
}

func TestStartForwardingUnreachableAgent(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewAgentClient(0).StartForwarding(context.Background(), url, validCommand())
	assert.True(t, apperrors.IsBackend(err))
}
