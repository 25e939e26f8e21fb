package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TicketStatus string
type TicketPriority string

const (
	StatusOpen       TicketStatus = "open"
	StatusInProgress TicketStatus = "in-progress"
	StatusInQueue    TicketStatus = "in-queue"
	StatusResolved   TicketStatus = "resolved"
	StatusClosed     TicketStatus = "closed"
	StatusReopened   TicketStatus = "reopened"
)

const (
	PriorityLow      TicketPriority = "low"
	PriorityMedium   TicketPriority = "medium"
	PriorityHigh     TicketPriority = "high"
	PriorityCritical TicketPriority = "critical"
)

// ParseStatus accepts any of the six lifecycle states. There is no
// transition table: every state may be set from every other state.
func ParseStatus(s string) (TicketStatus, bool) {
	switch st := TicketStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusOpen, StatusInProgress, StatusInQueue, StatusResolved, StatusClosed, StatusReopened:
		return st, true
	default:
		return "", false
	}
}

func ParsePriority(s string) (TicketPriority, bool) {
	switch p := TicketPriority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, true
	default:
		return "", false
	}
}

type Ticket struct {
	ID          uint                      `json:"id" gorm:"primaryKey"`
	Status      TicketStatus              `json:"status" gorm:"not null;index;default:'open'"`
	Priority    TicketPriority            `json:"priority" gorm:"not null;default:'medium'"`
	Severity    *string                   `json:"severity"`
	Description *string                   `json:"description" gorm:"type:text"`
	Assignees   datatypes.JSONSlice[uint] `json:"assignees"`
	Application *string                   `json:"application"`
	SystemIP    string                    `json:"system_ip" gorm:"not null"`
	LogPath     *string                   `json:"log_path"`
	LogLine     string                    `json:"log_line" gorm:"type:text;not null"`
	Timestamp   time.Time                 `json:"timestamp"`
	LogID       *uint                     `json:"log_id" gorm:"index"`
	Log         *LogEntry                 `json:"log,omitempty" gorm:"foreignKey:LogID"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	DeletedAt   gorm.DeletedAt            `json:"-" gorm:"index"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// HasAssignee reports whether profileID is one of the ticket's owners
func (t *Ticket) HasAssignee(profileID uint) bool {
	for _, id := range t.Assignees {
		if id == profileID {
			return true
		}
	}
	return false
}
