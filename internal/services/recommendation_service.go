package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/models"
	"github.com/triagedesk/backend/internal/realtime"
	"gorm.io/gorm"
)

const (
	defaultSearchURL = "https://duckduckgo.com/?q="
	maxExcerptLength = 120
)

// RecommendationService produces fixed next-step suggestions for a ticket.
// Each call adds a fresh batch; earlier batches are kept.
type RecommendationService struct {
	db        *gorm.DB
	tickets   *TicketService
	publisher realtime.Publisher
	searchURL string
}

func NewRecommendationService(db *gorm.DB, tickets *TicketService, publisher realtime.Publisher, searchURL string) *RecommendationService {
	if searchURL == "" {
		searchURL = defaultSearchURL
	}
	return &RecommendationService{db: db, tickets: tickets, publisher: publisher, searchURL: searchURL}
}

// Generate stores three recommendations derived from the ticket and its
// origin log entry, all in one transaction.
func (s *RecommendationService) Generate(ctx context.Context, ticketID uint) ([]models.Recommendation, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	batch := buildRecommendations(ticket, s.searchURL)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&batch).Error
	})
	if err != nil {
		return nil, apperrors.NewBackendError("insert recommendations", err)
	}

	logger.WithTicket(ticketID, "recommendations").WithField("count", len(batch)).Info("Recommendations generated")
	for i := range batch {
		publishEvent(ctx, s.publisher, realtime.TableRecommendations, realtime.EventInsert, ticketID, batch[i])
	}
	return batch, nil
}

// List returns every stored recommendation for the ticket, oldest first
func (s *RecommendationService) List(ctx context.Context, ticketID uint) ([]models.Recommendation, error) {
	if _, err := s.tickets.Get(ctx, ticketID); err != nil {
		return nil, err
	}
	recs := make([]models.Recommendation, 0)
	if err := s.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("created_at asc").Order("id asc").Find(&recs).Error; err != nil {
		return nil, apperrors.NewBackendError("list recommendations", err)
	}
	return recs, nil
}

func buildRecommendations(ticket *models.Ticket, searchURL string) []models.Recommendation {
	app := "the application"
	if ticket.Application != nil {
		app = *ticket.Application
	}
	logPath := "the service log"
	if ticket.LogPath != nil {
		logPath = *ticket.LogPath
	}
	source := app
	message := ticket.LogLine
	if ticket.Log != nil {
		source = ticket.Log.Source
		message = ticket.Log.Message
	}
	excerpt := excerptOf(message)
	pattern := extractErrorPattern(message)

	inspect := fmt.Sprintf("Review %s on %s around %s. The triggering line was: %s",
		logPath, ticket.SystemIP, ticket.Timestamp.UTC().Format(time.RFC3339), excerpt)
	search := fmt.Sprintf("Look up known causes and fixes for this %s: %s", strings.ToLower(pattern), excerpt)
	changes := fmt.Sprintf("Compare deployments and configuration changes to %s made before %s, and roll back the most recent one if it lines up.",
		source, ticket.Timestamp.UTC().Format(time.RFC3339))
	searchLink := searchURL + url.QueryEscape(excerpt)

	return []models.Recommendation{
		{
			TicketID:    ticket.ID,
			Title:       fmt.Sprintf("Inspect %s logs on %s", app, ticket.SystemIP),
			Description: &inspect,
		},
		{
			TicketID:    ticket.ID,
			Title:       "Search for similar " + pattern + " reports",
			Description: &search,
			URL:         &searchLink,
		},
		{
			TicketID:    ticket.ID,
			Title:       "Check recent changes to " + source,
			Description: &changes,
		},
	}
}

func excerptOf(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxExcerptLength {
		return s
	}
	return strings.TrimSpace(string(runes[:maxExcerptLength])) + "..."
}
