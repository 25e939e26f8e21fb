package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/triagedesk/backend/internal/config"
	"github.com/triagedesk/backend/internal/logger"
)

// TextGenerator produces free text for a prompt
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LLMService talks to an Ollama server and keeps a short history of calls
type LLMService struct {
	baseURL   string
	llmModel  string
	client    *http.Client
	apiCalls  []LLMAPICall
	callMutex sync.RWMutex
}

type OllamaGenerateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type OllamaGenerateResponse struct {
	Model     string `json:"model"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"created_at"`
}

type OllamaModelsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// LLMAPICall is one tracked request to the model server
type LLMAPICall struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Endpoint  string                 `json:"endpoint"`
	Model     string                 `json:"model"`
	TicketID  *uint                  `json:"ticketId,omitempty"`
	CallType  string                 `json:"callType"`
	Payload   map[string]interface{} `json:"payload"`
	Status    int                    `json:"status"`
	Duration  time.Duration          `json:"duration"`
	Response  string                 `json:"response"`
	Error     string                 `json:"error,omitempty"`
}

const maxTrackedCalls = 100

func NewLLMService(cfg config.LLMConfig) *LLMService {
	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &LLMService{
		baseURL:  strings.TrimRight(baseURL, "/"),
		llmModel: model,
		client:   &http.Client{Timeout: timeout},
		apiCalls: make([]LLMAPICall, 0),
	}
}

// GetAPICalls returns a copy of the tracked calls, oldest first
func (ls *LLMService) GetAPICalls() []LLMAPICall {
	ls.callMutex.RLock()
	defer ls.callMutex.RUnlock()

	calls := make([]LLMAPICall, len(ls.apiCalls))
	copy(calls, ls.apiCalls)
	return calls
}

func (ls *LLMService) ClearAPICalls() {
	ls.callMutex.Lock()
	defer ls.callMutex.Unlock()
	ls.apiCalls = make([]LLMAPICall, 0)
}

func (ls *LLMService) addAPICall(call LLMAPICall) {
	ls.callMutex.Lock()
	defer ls.callMutex.Unlock()

	if len(ls.apiCalls) >= maxTrackedCalls {
		ls.apiCalls = ls.apiCalls[1:]
	}
	ls.apiCalls = append(ls.apiCalls, call)
}

func (ls *LLMService) trackAPICall(ticketID *uint, callType string, payload map[string]interface{}, status int, duration time.Duration, response string, err string) {
	ls.addAPICall(LLMAPICall{
		ID:        fmt.Sprintf("llm_%d", time.Now().UnixNano()),
		Timestamp: time.Now(),
		Endpoint:  "/api/generate",
		Model:     ls.llmModel,
		TicketID:  ticketID,
		CallType:  callType,
		Payload:   payload,
		Status:    status,
		Duration:  duration,
		Response:  response,
		Error:     err,
	})
}

// Generate implements TextGenerator
func (ls *LLMService) Generate(ctx context.Context, prompt string) (string, error) {
	return ls.generate(ctx, prompt, ticketIDFromContext(ctx), "assistant_reply")
}

func (ls *LLMService) generate(ctx context.Context, prompt string, ticketID *uint, callType string) (string, error) {
	startTime := time.Now()
	log := logger.WithComponent("llm").WithField("call_type", callType)

	request := OllamaGenerateRequest{
		Model:  ls.llmModel,
		Prompt: prompt,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": 0.2,
			"top_p":       0.8,
		},
	}
	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	payload := map[string]interface{}{"prompt_length": len(prompt)}
	url := ls.baseURL + "/api/generate"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ls.client.Do(req)
	elapsed := time.Since(startTime)
	if err != nil {
		log.WithError(err).WithField("elapsed", elapsed).Warn("LLM request failed")
		ls.trackAPICall(ticketID, callType, payload, 0, elapsed, "", fmt.Sprintf("HTTP request failed: %v", err))
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	log.WithFields(map[string]interface{}{"elapsed": elapsed, "status": resp.StatusCode}).Debug("LLM request completed")

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("Ollama API returned status %d, body: %s", resp.StatusCode, string(body))
		ls.trackAPICall(ticketID, callType, payload, resp.StatusCode, elapsed, "", msg)
		return "", fmt.Errorf("%s", msg)
	}

	var ollamaResp OllamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		ls.trackAPICall(ticketID, callType, payload, resp.StatusCode, elapsed, "", fmt.Sprintf("failed to decode Ollama response: %v", err))
		return "", fmt.Errorf("failed to decode Ollama response: %w", err)
	}

	ls.trackAPICall(ticketID, callType, payload, resp.StatusCode, elapsed, ollamaResp.Response, "")
	return ollamaResp.Response, nil
}

// CheckLLMHealth verifies the model server answers
func (ls *LLMService) CheckLLMHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ls.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := ls.client.Do(req)
	if err != nil {
		return fmt.Errorf("LLM service not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("LLM service returned status %d", resp.StatusCode)
	}
	return nil
}

// GetAvailableModels lists the models installed on the server
func (ls *LLMService) GetAvailableModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ls.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := ls.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get models: status %d", resp.StatusCode)
	}

	var modelsResp OllamaModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, err
	}

	modelNames := make([]string, 0, len(modelsResp.Models))
	for _, model := range modelsResp.Models {
		modelNames = append(modelNames, model.Name)
	}
	return modelNames, nil
}

func (ls *LLMService) Model() string {
	return ls.llmModel
}

type ticketIDKey struct{}

// withTicketID tags ctx so tracked LLM calls name the ticket they served
func withTicketID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, ticketIDKey{}, id)
}

func ticketIDFromContext(ctx context.Context) *uint {
	if id, ok := ctx.Value(ticketIDKey{}).(uint); ok {
		return &id
	}
	return nil
}

// extractErrorPattern names the broad class of failure a log message
// describes
func extractErrorPattern(message string) string {
	message = strings.ToLower(message)

	if strings.Contains(message, "connection") && strings.Contains(message, "timeout") {
		return "Connection Timeout"
	}
	if strings.Contains(message, "authentication") || strings.Contains(message, "auth") {
		return "Authentication Error"
	}
	if strings.Contains(message, "database") || strings.Contains(message, "db") {
		return "Database Error"
	}
	if strings.Contains(message, "permission") || strings.Contains(message, "access") {
		return "Permission/Access Error"
	}
	if strings.Contains(message, "not found") || strings.Contains(message, "404") {
		return "Resource Not Found"
	}
	if strings.Contains(message, "timeout") {
		return "Timeout Error"
	}
	if strings.Contains(message, "memory") || strings.Contains(message, "oom") {
		return "Memory Error"
	}
	return "General Error"
}
