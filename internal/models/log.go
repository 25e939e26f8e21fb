package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// ParseLogLevel maps common spellings onto the four stored levels
func ParseLogLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, true
	case "info":
		return LogLevelInfo, true
	case "warning", "warn":
		return LogLevelWarning, true
	case "error", "err", "fatal":
		return LogLevelError, true
	default:
		return "", false
	}
}

// LogEntry is an append-only log line. A ticket may point at one entry as
// its origin.
type LogEntry struct {
	ID        uint              `json:"id" gorm:"primaryKey"`
	Level     LogLevel          `json:"level" gorm:"not null;index"`
	Source    string            `json:"source" gorm:"not null;index"`
	Message   string            `json:"message" gorm:"type:text;not null"`
	Metadata  datatypes.JSONMap `json:"metadata"`
	Timestamp time.Time         `json:"timestamp" gorm:"index"`
	CreatedAt time.Time         `json:"created_at"`
}

func (LogEntry) TableName() string {
	return "logs"
}
