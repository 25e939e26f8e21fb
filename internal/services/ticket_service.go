package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/models"
	"github.com/triagedesk/backend/internal/realtime"
	"gorm.io/gorm"
)

// assigneeScanBatch is the page size used when filtering by assignee outside postgres
var assigneeScanBatch = 100

// TicketFilter narrows a ticket listing. Zero values match everything.
type TicketFilter struct {
	Status     string
	Priority   string
	AssigneeID uint
	Limit      int
}

// TicketPatch lists the mutable ticket fields; nil fields are left alone
type TicketPatch struct {
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Severity    *string `json:"severity"`
	Description *string `json:"description"`
}

type TicketService struct {
	db        *gorm.DB
	intake    *IntakeService
	publisher realtime.Publisher
	notifier  TicketNotifier
}

func NewTicketService(db *gorm.DB, intake *IntakeService, publisher realtime.Publisher, notifier TicketNotifier) *TicketService {
	return &TicketService{db: db, intake: intake, publisher: publisher, notifier: notifier}
}

func (s *TicketService) Get(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.db.WithContext(ctx).Preload("Log").First(&ticket, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("Ticket not found")
		}
		return nil, apperrors.NewBackendError("load ticket", err)
	}
	return &ticket, nil
}

// List returns tickets newest first
func (s *TicketService) List(ctx context.Context, filter TicketFilter) ([]models.Ticket, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	query := s.db.WithContext(ctx).Model(&models.Ticket{})
	if filter.Status != "" {
		status, ok := models.ParseStatus(filter.Status)
		if !ok {
			return nil, apperrors.NewValidationError("status is invalid")
		}
		query = query.Where("status = ?", status)
	}
	if filter.Priority != "" {
		priority, ok := models.ParsePriority(filter.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("priority is invalid")
		}
		query = query.Where("priority = ?", priority)
	}
	query = query.Order("created_at desc").Order("id desc")

	var tickets []models.Ticket
	if filter.AssigneeID == 0 {
		if err := query.Limit(filter.Limit).Find(&tickets).Error; err != nil {
			return nil, apperrors.NewBackendError("list tickets", err)
		}
		return tickets, nil
	}

	if s.db.Dialector.Name() == "postgres" {
		query = query.Where("assignees::jsonb @> ?", fmt.Sprintf("[%d]", filter.AssigneeID))
		if err := query.Limit(filter.Limit).Find(&tickets).Error; err != nil {
			return nil, apperrors.NewBackendError("list tickets", err)
		}
		return tickets, nil
	}

	// other drivers have no portable JSON containment, so rows are scanned in
	// pages until the limit is filled
	for offset := 0; len(tickets) < filter.Limit; offset += assigneeScanBatch {
		var page []models.Ticket
		if err := query.Session(&gorm.Session{}).Offset(offset).Limit(assigneeScanBatch).Find(&page).Error; err != nil {
			return nil, apperrors.NewBackendError("list tickets", err)
		}
		for _, t := range page {
			if t.HasAssignee(filter.AssigneeID) {
				tickets = append(tickets, t)
				if len(tickets) == filter.Limit {
					break
				}
			}
		}
		if len(page) < assigneeScanBatch {
			break
		}
	}
	return tickets, nil
}

// Create files a ticket by hand through the same intake path as log reports
func (s *TicketService) Create(ctx context.Context, req IntakeRequest) (*models.Ticket, error) {
	return s.intake.Intake(ctx, req)
}

// Update applies patch. Any status may follow any other.
func (s *TicketService) Update(ctx context.Context, id uint, patch TicketPatch) (*models.Ticket, error) {
	if patch.Status == nil && patch.Priority == nil && patch.Severity == nil && patch.Description == nil {
		return nil, apperrors.NewValidationError("No fields to update")
	}

	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := ticket.Status

	updates := map[string]interface{}{}
	if patch.Status != nil {
		status, ok := models.ParseStatus(*patch.Status)
		if !ok {
			return nil, apperrors.NewValidationError("status is invalid")
		}
		updates["status"] = status
	}
	if patch.Priority != nil {
		priority, ok := models.ParsePriority(*patch.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("priority is invalid")
		}
		updates["priority"] = priority
	}
	if patch.Severity != nil {
		updates["severity"] = trimPtr(patch.Severity)
	}
	if patch.Description != nil {
		updates["description"] = trimPtr(patch.Description)
	}

	if err := s.db.WithContext(ctx).Model(&models.Ticket{ID: id}).Updates(updates).Error; err != nil {
		return nil, apperrors.NewBackendError("update ticket", err)
	}

	ticket, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.WithTicket(id, "tickets").WithField("fields", len(updates)).Info("Ticket updated")
	publishEvent(ctx, s.publisher, realtime.TableTickets, realtime.EventUpdate, id, ticket)
	if ticket.Status != previous && s.notifier != nil {
		s.notifier.TicketStatusChanged(ctx, ticket, previous)
	}
	return ticket, nil
}

// SetStatus is Update with only the status field
func (s *TicketService) SetStatus(ctx context.Context, id uint, status string) (*models.Ticket, error) {
	return s.Update(ctx, id, TicketPatch{Status: &status})
}
