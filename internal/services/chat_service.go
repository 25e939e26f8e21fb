package services

import (
	"bytes"
	"context"
	"html"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/models"
	"github.com/triagedesk/backend/internal/realtime"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gorm.io/gorm"
)

const (
	defaultThreadPageSize = 100
	defaultReplyTimeout   = 2 * time.Minute
	maxMessageLength      = 10000
)

// ChatService stores and reads ticket conversations and produces assistant
// replies in the background.
type ChatService struct {
	db        *gorm.DB
	tickets   *TicketService
	publisher realtime.Publisher
	generator TextGenerator

	pageSize     int
	replyTimeout time.Duration

	rich     *bluemonday.Policy
	markdown goldmark.Markdown

	pending sync.WaitGroup
}

type ChatOption func(*ChatService)

// WithThreadPageSize sets how many messages Thread fetches per query
func WithThreadPageSize(n int) ChatOption {
	return func(s *ChatService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithReplyTimeout(d time.Duration) ChatOption {
	return func(s *ChatService) {
		if d > 0 {
			s.replyTimeout = d
		}
	}
}

// NewChatService builds the service. generator may be nil, in which case
// questions for the assistant are stored without a reply.
func NewChatService(db *gorm.DB, tickets *TicketService, publisher realtime.Publisher, generator TextGenerator, opts ...ChatOption) *ChatService {
	s := &ChatService{
		db:           db,
		tickets:      tickets,
		publisher:    publisher,
		generator:    generator,
		pageSize:     defaultThreadPageSize,
		replyTimeout: defaultReplyTimeout,
		rich:         bluemonday.UGCPolicy(),
		markdown:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostMessage appends a user's message to the ticket's thread
func (s *ChatService) PostMessage(ctx context.Context, ticketID, userID uint, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("message is required")
	}
	if len(text) > maxMessageLength {
		return nil, apperrors.NewValidationError("message is too long")
	}
	if _, err := s.tickets.Get(ctx, ticketID); err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		TicketID:    ticketID,
		UserID:      &userID,
		Type:        models.MessageTypeUser,
		Message:     text,
		MessageHTML: renderPlain(text),
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, apperrors.NewBackendError("insert chat message", err)
	}

	logger.WithTicket(ticketID, "chat").WithField("user_id", userID).Debug("Chat message stored")
	publishEvent(ctx, s.publisher, realtime.TableChatMessages, realtime.EventInsert, ticketID, msg)
	return msg, nil
}

// renderPlain escapes user text for display. Message keeps the text as typed,
// stack traces and generics included.
func renderPlain(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

// Thread yields a ticket's messages oldest first. Rows are read in pages
// keyed on (created_at, id) so long threads are never held in memory at
// once. Each iteration re-reads the store from the beginning.
func (s *ChatService) Thread(ctx context.Context, ticketID uint) iter.Seq2[models.ChatMessage, error] {
	return func(yield func(models.ChatMessage, error) bool) {
		var (
			after   *models.ChatMessage
			page    []models.ChatMessage
			hasMore = true
		)
		for hasMore {
			page = page[:0]
			query := s.db.WithContext(ctx).Where("ticket_id = ?", ticketID)
			if after != nil {
				query = query.Where("created_at > ? OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
			}
			if err := query.Order("created_at asc").Order("id asc").Limit(s.pageSize).Find(&page).Error; err != nil {
				yield(models.ChatMessage{}, apperrors.NewBackendError("load chat messages", err))
				return
			}
			for _, m := range page {
				if !yield(m, nil) {
					return
				}
			}
			hasMore = len(page) == s.pageSize
			if hasMore {
				last := page[len(page)-1]
				after = &last
			}
		}
	}
}

// Messages collects the whole thread of an existing ticket
func (s *ChatService) Messages(ctx context.Context, ticketID uint) ([]models.ChatMessage, error) {
	if _, err := s.tickets.Get(ctx, ticketID); err != nil {
		return nil, err
	}
	messages := make([]models.ChatMessage, 0)
	for m, err := range s.Thread(ctx, ticketID) {
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// AskAssistant stores the question like any message and schedules an
// assistant reply. The reply arrives later as its own message; failures to
// produce one are logged and leave the thread unchanged.
func (s *ChatService) AskAssistant(ctx context.Context, ticketID, userID uint, question string) (*models.ChatMessage, error) {
	msg, err := s.PostMessage(ctx, ticketID, userID, question)
	if err != nil {
		return nil, err
	}
	if s.generator == nil {
		logger.WithTicket(ticketID, "assistant").Warn("No assistant configured, question left unanswered")
		return msg, nil
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.reply(ticketID, msg.ID, msg.Message)
	}()
	return msg, nil
}

func (s *ChatService) reply(ticketID, questionID uint, question string) {
	log := logger.WithTicket(ticketID, "assistant")
	ctx, cancel := context.WithTimeout(withTicketID(context.Background(), ticketID), s.replyTimeout)
	defer cancel()

	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		log.WithError(err).Warn("Ticket unavailable for assistant reply")
		return
	}

	var history []models.ChatMessage
	for m, err := range s.Thread(ctx, ticketID) {
		if err != nil {
			log.WithError(err).Warn("Could not load thread for assistant reply")
			return
		}
		// the question goes in the prompt on its own
		if m.ID == questionID {
			continue
		}
		history = append(history, m)
	}

	answer, err := s.generator.Generate(ctx, buildAssistantPrompt(ticket, history, question))
	if err != nil {
		log.WithError(err).Error("Assistant reply failed")
		return
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		log.Warn("Assistant returned an empty reply")
		return
	}

	reply := &models.ChatMessage{
		TicketID:    ticketID,
		Type:        models.MessageTypeAI,
		Message:     answer,
		MessageHTML: s.renderMarkdown(answer),
	}
	if err := s.db.WithContext(ctx).Create(reply).Error; err != nil {
		log.WithError(err).Error("Failed to store assistant reply")
		return
	}
	log.WithField("message_id", reply.ID).Info("Assistant replied")
	publishEvent(ctx, s.publisher, realtime.TableChatMessages, realtime.EventInsert, ticketID, reply)
}

// renderMarkdown converts model output to HTML safe to embed in a page
func (s *ChatService) renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		return html.EscapeString(text)
	}
	return s.rich.Sanitize(buf.String())
}

// Wait blocks until every scheduled assistant reply has finished
func (s *ChatService) Wait() {
	s.pending.Wait()
}
