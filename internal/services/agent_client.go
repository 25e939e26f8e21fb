package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
)

// AgentCommand instructs a host agent to start forwarding a log file
type AgentCommand struct {
	Command   string `json:"command" validate:"required"`
	ServerURL string `json:"server_url" validate:"required,url"`
	NodeID    string `json:"node_id" validate:"required"`
	LogFile   string `json:"log_file" validate:"required"`
}

// AgentClient drives the HTTP control endpoint of host agents
type AgentClient struct {
	client *http.Client
}

func NewAgentClient(timeout time.Duration) *AgentClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AgentClient{client: &http.Client{Timeout: timeout}}
}

// StartForwarding posts cmd to the agent and returns its JSON reply as is
func (a *AgentClient) StartForwarding(ctx context.Context, agentURL string, cmd AgentCommand) (json.RawMessage, error) {
	agentURL = strings.TrimSpace(agentURL)
	parsed, err := url.ParseRequestURI(agentURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, apperrors.NewValidationError("agent_url is invalid")
	}
	if cmd.Command == "" {
		cmd.Command = "start"
	}
	if err := validateStruct(cmd); err != nil {
		return nil, err
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, apperrors.NewBackendError("encode agent command", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agentURL, bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewBackendError("build agent request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log := logger.WithComponent("agent").WithFields(map[string]interface{}{
		"agent_url": agentURL,
		"node_id":   cmd.NodeID,
	})

	resp, err := a.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("Agent unreachable")
		return nil, apperrors.NewUpstreamError("contact agent", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.NewUpstreamError("read agent reply", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Warn("Agent rejected command")
		return nil, apperrors.NewUpstreamError("agent command", fmt.Errorf("agent returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	if !json.Valid(raw) {
		return nil, apperrors.NewUpstreamError("agent reply", fmt.Errorf("agent returned non-JSON body"))
	}

	log.Info("Agent started forwarding")
	return json.RawMessage(raw), nil
}
