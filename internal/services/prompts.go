package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/triagedesk/backend/internal/models"
)

const (
	// ASSISTANT_CHAT_PROMPT answers a question posted in a ticket's chat
	ASSISTANT_CHAT_PROMPT = `You are an experienced Site Reliability Engineer helping a support team triage an incident ticket.

INSTRUCTIONS:
- Answer the latest question directly and concisely
- Ground every claim in the ticket details and conversation below
- Prefer concrete next steps (commands, files, dashboards) over general advice
- Use short Markdown: bullet lists and inline code are fine, no headings
- If the details are insufficient, say what information is missing

TICKET:
Status: %s
Priority: %s
Severity: %s
Application: %s
System: %s
Log path: %s
Reported at: %s
Log line:
%s

CONVERSATION SO FAR:
%s

LATEST QUESTION:
%s`

	// maxPromptHistory bounds how many earlier messages go into a prompt
	maxPromptHistory = 20
)

func buildAssistantPrompt(ticket *models.Ticket, history []models.ChatMessage, question string) string {
	var convo strings.Builder
	if len(history) > maxPromptHistory {
		history = history[len(history)-maxPromptHistory:]
	}
	for _, m := range history {
		who := "User " + m.Author()
		if m.Type == models.MessageTypeAI {
			who = "Assistant"
		}
		fmt.Fprintf(&convo, "%s: %s\n", who, m.Message)
	}
	if convo.Len() == 0 {
		convo.WriteString("(no earlier messages)\n")
	}

	return fmt.Sprintf(ASSISTANT_CHAT_PROMPT,
		ticket.Status,
		ticket.Priority,
		orUnknown(ticket.Severity),
		orUnknown(ticket.Application),
		ticket.SystemIP,
		orUnknown(ticket.LogPath),
		ticket.Timestamp.Format(time.RFC3339),
		ticket.LogLine,
		convo.String(),
		question,
	)
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "unknown"
	}
	return *s
}
