package services

import (
	"context"
	"strings"
	"time"

	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/models"
	"github.com/triagedesk/backend/internal/realtime"
	"gorm.io/gorm"
)

// IntakeRequest carries an error report from a monitored system or a person
type IntakeRequest struct {
	Timestamp   time.Time `json:"timestamp" validate:"required"`
	SystemIP    string    `json:"system_ip" validate:"required"`
	LogLine     string    `json:"log_line" validate:"required"`
	LogPath     *string   `json:"log_path"`
	Application *string   `json:"application"`
	Severity    *string   `json:"severity"`
	Priority    string    `json:"priority"`
	Description *string   `json:"description"`
	LogID       *uint     `json:"log_id"`
}

func (r *IntakeRequest) normalize() {
	r.SystemIP = strings.TrimSpace(r.SystemIP)
	r.LogLine = strings.TrimSpace(r.LogLine)
	r.Priority = strings.TrimSpace(r.Priority)
	r.LogPath = trimPtr(r.LogPath)
	r.Application = trimPtr(r.Application)
	r.Severity = trimPtr(r.Severity)
	r.Description = trimPtr(r.Description)
}

// TicketNotifier is told about ticket events that may warrant an email
type TicketNotifier interface {
	TicketAssigned(ctx context.Context, ticket *models.Ticket)
	TicketStatusChanged(ctx context.Context, ticket *models.Ticket, previous models.TicketStatus)
}

// IntakeService turns error reports into tickets owned by one member of each
// role pool, chosen round-robin.
type IntakeService struct {
	db        *gorm.DB
	directory *ProfileDirectory
	cursors   CursorStore
	publisher realtime.Publisher
	notifier  TicketNotifier
}

func NewIntakeService(db *gorm.DB, directory *ProfileDirectory, cursors CursorStore, publisher realtime.Publisher, notifier TicketNotifier) *IntakeService {
	return &IntakeService{
		db:        db,
		directory: directory,
		cursors:   cursors,
		publisher: publisher,
		notifier:  notifier,
	}
}

// Intake validates req, picks the next admin, engineer and support member and
// stores an open ticket naming them. When any pool is empty no ticket is
// created and no cursor moves.
func (s *IntakeService) Intake(ctx context.Context, req IntakeRequest) (*models.Ticket, error) {
	req.normalize()
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	priority := models.PriorityMedium
	if req.Priority != "" {
		p, ok := models.ParsePriority(req.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("priority is invalid")
		}
		priority = p
	}

	log := logger.WithComponent("intake").WithField("system_ip", req.SystemIP)

	pools, err := s.directory.Pools(ctx)
	if err != nil {
		return nil, err
	}
	var empty []string
	for _, role := range models.AssignmentRoles {
		if len(pools[role]) == 0 {
			empty = append(empty, string(role))
		}
	}
	if len(empty) > 0 {
		log.WithField("empty_roles", empty).Warn("Cannot assign ticket, role pool empty")
		return nil, apperrors.NewInsufficientUsersError(empty...)
	}

	ticket := &models.Ticket{
		Status:      models.StatusOpen,
		Priority:    priority,
		Severity:    req.Severity,
		Description: req.Description,
		Application: req.Application,
		SystemIP:    req.SystemIP,
		LogPath:     req.LogPath,
		LogLine:     req.LogLine,
		Timestamp:   req.Timestamp.UTC(),
		LogID:       req.LogID,
	}

	cursorsAdvanced := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cursors := s.cursors
		if txStore, ok := cursors.(TxCursorStore); ok {
			cursors = txStore.WithTx(tx)
		}

		assignees := make([]uint, 0, len(models.AssignmentRoles))
		for _, role := range models.AssignmentRoles {
			pool := pools[role]
			idx, err := cursors.Advance(ctx, role, len(pool))
			if err != nil {
				if _, ok := apperrors.As(err); ok {
					return err
				}
				return apperrors.NewBackendError("advance "+string(role)+" tracker", err)
			}
			cursorsAdvanced = true
			assignees = append(assignees, pool[idx].ID)
		}
		ticket.Assignees = assignees

		if err := tx.Create(ticket).Error; err != nil {
			return apperrors.NewBackendError("insert ticket", err)
		}
		return nil
	})
	if err != nil {
		if _, transactional := s.cursors.(TxCursorStore); cursorsAdvanced && !transactional {
			log.WithError(err).Warn("Ticket not stored after cursors advanced; those members are skipped this round")
		}
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.NewBackendError("commit ticket", err)
		}
		log.WithError(err).Error("Ticket intake failed")
		return nil, err
	}

	logger.WithTicket(ticket.ID, "intake").WithField("assignees", []uint(ticket.Assignees)).Info("Ticket created")

	publishEvent(ctx, s.publisher, realtime.TableTickets, realtime.EventInsert, ticket.ID, ticket)
	if s.notifier != nil {
		s.notifier.TicketAssigned(ctx, ticket)
	}
	return ticket, nil
}
