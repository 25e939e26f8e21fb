package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/models"
	"github.com/triagedesk/backend/internal/realtime"
	"gorm.io/gorm"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 500
)

// LogIngestRequest is one log line pushed by an agent or service
type LogIngestRequest struct {
	Level       string                 `json:"level" validate:"required"`
	Source      string                 `json:"source" validate:"required"`
	Message     string                 `json:"message" validate:"required"`
	Metadata    map[string]interface{} `json:"metadata"`
	Timestamp   *time.Time             `json:"timestamp"`
	SystemIP    string                 `json:"system_ip"`
	LogPath     *string                `json:"log_path"`
	Application *string                `json:"application"`
	Severity    *string                `json:"severity"`
}

// IngestResult reports the stored entry and, for error lines, the ticket
// opened from it. IntakeError is set when the ticket could not be opened;
// the entry is stored either way.
type IngestResult struct {
	Log         *models.LogEntry `json:"log"`
	Ticket      *models.Ticket   `json:"ticket,omitempty"`
	IntakeError error            `json:"-"`
}

type LogFilter struct {
	Level  string
	Source string
	Limit  int
}

type LogService struct {
	db        *gorm.DB
	intake    *IntakeService
	publisher realtime.Publisher
}

func NewLogService(db *gorm.DB, intake *IntakeService, publisher realtime.Publisher) *LogService {
	return &LogService{db: db, intake: intake, publisher: publisher}
}

// Ingest stores the line and opens a ticket for error lines that name the
// system they came from
func (s *LogService) Ingest(ctx context.Context, req LogIngestRequest) (*IngestResult, error) {
	req.Level = strings.TrimSpace(req.Level)
	req.Source = strings.TrimSpace(req.Source)
	req.Message = strings.TrimSpace(req.Message)
	req.SystemIP = strings.TrimSpace(req.SystemIP)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	level, ok := models.ParseLogLevel(req.Level)
	if !ok {
		return nil, apperrors.NewValidationError("level is invalid")
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		ts = req.Timestamp.UTC()
	}
	entry := &models.LogEntry{
		Level:     level,
		Source:    req.Source,
		Message:   req.Message,
		Metadata:  req.Metadata,
		Timestamp: ts,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, apperrors.NewBackendError("insert log", err)
	}
	publishEvent(ctx, s.publisher, realtime.TableLogs, realtime.EventInsert, 0, entry)

	result := &IngestResult{Log: entry}
	if level != models.LogLevelError || req.SystemIP == "" || s.intake == nil {
		return result, nil
	}

	application := req.Application
	if application == nil {
		application = &req.Source
	}
	ticket, err := s.intake.Intake(ctx, IntakeRequest{
		Timestamp:   ts,
		SystemIP:    req.SystemIP,
		LogLine:     req.Message,
		LogPath:     req.LogPath,
		Application: application,
		Severity:    req.Severity,
		LogID:       &entry.ID,
	})
	if err != nil {
		logger.WithError(err, "logs").WithField("log_id", entry.ID).Warn("Error log stored but no ticket opened")
		result.IntakeError = err
		return result, nil
	}
	result.Ticket = ticket
	return result, nil
}

// Recent returns the newest entries matching filter
func (s *LogService) Recent(ctx context.Context, filter LogFilter) ([]models.LogEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}
	if limit > maxLogLimit {
		limit = maxLogLimit
	}

	query := s.db.WithContext(ctx).Model(&models.LogEntry{})
	if filter.Level != "" {
		level, ok := models.ParseLogLevel(filter.Level)
		if !ok {
			return nil, apperrors.NewValidationError("level is invalid")
		}
		query = query.Where("level = ?", level)
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}

	entries := make([]models.LogEntry, 0)
	if err := query.Order("timestamp desc").Order("id desc").Limit(limit).Find(&entries).Error; err != nil {
		return nil, apperrors.NewBackendError("list logs", err)
	}
	return entries, nil
}

func (s *LogService) Get(ctx context.Context, id uint) (*models.LogEntry, error) {
	var entry models.LogEntry
	if err := s.db.WithContext(ctx).First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("Log not found")
		}
		return nil, apperrors.NewBackendError("load log", err)
	}
	return &entry, nil
}
