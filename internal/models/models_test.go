package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  Role
		ok    bool
	}{
		{"admin", RoleAdmin, true},
		{"ENGINEER", RoleEngineer, true},
		{"support", RoleSupport, true},
		{"viewer", RoleSupport, true},
		{" Viewer ", RoleSupport, true},
		{"manager", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseRole(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestParseStatusAcceptsAllSixStates(t *testing.T) {
	for _, s := range []string{"open", "in-progress", "in-queue", "resolved", "closed", "reopened"} {
		got, ok := ParseStatus(s)
		assert.True(t, ok, s)
		assert.Equal(t, TicketStatus(s), got)
	}

	_, ok := ParseStatus("cancelled")
	assert.False(t, ok)
}

func TestParsePriority(t *testing.T) {
	p, ok := ParsePriority("Critical")
	assert.True(t, ok)
	assert.Equal(t, PriorityCritical, p)

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LogLevelDebug,
		"INFO":  LogLevelInfo,
		"warn":  LogLevelWarning,
		"fatal": LogLevelError,
		"error": LogLevelError,
	}
	for input, want := range tests {
		got, ok := ParseLogLevel(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}

	_, ok := ParseLogLevel("trace")
	assert.False(t, ok)
}

func TestChatMessageJSONAuthor(t *testing.T) {
	userID := uint(42)
	userMsg := ChatMessage{ID: 1, TicketID: 3, UserID: &userID, Type: MessageTypeUser, Message: "looking"}
	aiMsg := ChatMessage{ID: 2, TicketID: 3, Type: MessageTypeAI, Message: "Try restarting the pool"}

	var decoded map[string]interface{}

	raw, err := json.Marshal(userMsg)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "42", decoded["user_id"])
	assert.Equal(t, "user", decoded["type"])

	raw, err = json.Marshal(aiMsg)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, AssistantUserID, decoded["user_id"])
	assert.Equal(t, "ai", decoded["type"])
}

func TestTicketHasAssignee(t *testing.T) {
	ticket := Ticket{Assignees: []uint{1, 5, 9}}
	assert.True(t, ticket.HasAssignee(5))
	assert.False(t, ticket.HasAssignee(2))
}
