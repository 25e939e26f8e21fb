package models

import (
	"encoding/json"
	"strconv"
	"time"
)

type MessageType string

const (
	MessageTypeUser MessageType = "user"
	MessageTypeAI   MessageType = "ai"
)

// AssistantUserID is the user_id the assistant's messages carry on the wire
const AssistantUserID = "ai"

// ChatMessage is one entry of a ticket's thread. Messages are immutable once
// stored. UserID is nil for assistant replies.
type ChatMessage struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	TicketID    uint        `json:"ticket_id" gorm:"not null;index:idx_chat_ticket_created,priority:1"`
	Ticket      *Ticket     `json:"-" gorm:"foreignKey:TicketID"`
	UserID      *uint       `json:"-"`
	Type        MessageType `json:"type" gorm:"not null;default:'user'"`
	Message     string      `json:"message" gorm:"type:text;not null"`
	MessageHTML string      `json:"message_html,omitempty" gorm:"type:text"`
	CreatedAt   time.Time   `json:"created_at" gorm:"index:idx_chat_ticket_created,priority:2"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Author returns the wire form of the author: the profile id, or "ai"
func (m ChatMessage) Author() string {
	if m.Type == MessageTypeAI || m.UserID == nil {
		return AssistantUserID
	}
	return strconv.FormatUint(uint64(*m.UserID), 10)
}

func (m ChatMessage) MarshalJSON() ([]byte, error) {
	type alias ChatMessage
	return json.Marshal(struct {
		alias
		UserID string `json:"user_id"`
	}{
		alias:  alias(m),
		UserID: m.Author(),
	})
}
