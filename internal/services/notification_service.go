package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/config"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/models"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Mailer delivers one email
type Mailer interface {
	Send(to, subject, htmlBody, plainBody string) error
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		from:   cfg.FromAddress,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (m *SMTPMailer) Send(to, subject, htmlBody, plainBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plainBody)
	msg.AddAlternative("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// NoopMailer logs instead of sending; used when SMTP is not configured
type NoopMailer struct{}

func (NoopMailer) Send(to, subject, _, _ string) error {
	logger.Debug("Email suppressed, SMTP disabled", map[string]interface{}{
		"to":      to,
		"subject": subject,
	})
	return nil
}

// NotificationSettingsPatch changes individual preferences; nil leaves a
// preference as it is
type NotificationSettingsPatch struct {
	EmailOnAssignment   *bool `json:"email_on_assignment"`
	EmailOnStatusChange *bool `json:"email_on_status_change"`
	EmailOnChat         *bool `json:"email_on_chat"`
}

// NotificationService stores email preferences and emails ticket assignees.
// Delivery happens on background goroutines; failures are only logged.
type NotificationService struct {
	db      *gorm.DB
	mailer  Mailer
	baseURL string
	wg      sync.WaitGroup
}

func NewNotificationService(db *gorm.DB, mailer Mailer, baseURL string) *NotificationService {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &NotificationService{db: db, mailer: mailer, baseURL: strings.TrimRight(baseURL, "/")}
}

// GetSettings returns the stored preferences or the defaults
func (s *NotificationService) GetSettings(ctx context.Context, profileID uint) (*models.NotificationSetting, error) {
	var setting models.NotificationSetting
	err := s.db.WithContext(ctx).Where("profile_id = ?", profileID).Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		setting = models.DefaultNotificationSetting(profileID)
		return &setting, nil
	}
	if err != nil {
		return nil, apperrors.NewBackendError("load notification settings", err)
	}
	return &setting, nil
}

func (s *NotificationService) UpdateSettings(ctx context.Context, profileID uint, patch NotificationSettingsPatch) (*models.NotificationSetting, error) {
	setting, err := s.GetSettings(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if patch.EmailOnAssignment != nil {
		setting.EmailOnAssignment = *patch.EmailOnAssignment
	}
	if patch.EmailOnStatusChange != nil {
		setting.EmailOnStatusChange = *patch.EmailOnStatusChange
	}
	if patch.EmailOnChat != nil {
		setting.EmailOnChat = *patch.EmailOnChat
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email_on_assignment", "email_on_status_change", "email_on_chat", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return nil, apperrors.NewBackendError("save notification settings", err)
	}
	return setting, nil
}

type recipient struct {
	email string
}

// recipients resolves the assignees whose preferences pass want
func (s *NotificationService) recipients(ctx context.Context, ids []uint, want func(models.NotificationSetting) bool) ([]recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&profiles).Error; err != nil {
		return nil, err
	}
	var stored []models.NotificationSetting
	if err := s.db.WithContext(ctx).Where("profile_id IN ?", ids).Find(&stored).Error; err != nil {
		return nil, err
	}
	byProfile := make(map[uint]models.NotificationSetting, len(stored))
	for _, st := range stored {
		byProfile[st.ProfileID] = st
	}

	out := make([]recipient, 0, len(profiles))
	for _, p := range profiles {
		setting, ok := byProfile[p.ID]
		if !ok {
			setting = models.DefaultNotificationSetting(p.ID)
		}
		if want(setting) {
			out = append(out, recipient{email: p.Email})
		}
	}
	return out, nil
}

func (s *NotificationService) ticketLink(id uint) string {
	return fmt.Sprintf("%s/tickets/%d", s.baseURL, id)
}

// TicketAssigned emails every assignee who wants assignment mail
func (s *NotificationService) TicketAssigned(ctx context.Context, ticket *models.Ticket) {
	to, err := s.recipients(ctx, ticket.Assignees, func(st models.NotificationSetting) bool { return st.EmailOnAssignment })
	if err != nil {
		logger.WithError(err, "notifications").WithField("ticket_id", ticket.ID).Warn("Could not resolve assignment recipients")
		return
	}
	subject := fmt.Sprintf("[Ticket #%d] New %s priority ticket assigned to you", ticket.ID, ticket.Priority)
	plain := fmt.Sprintf("A new ticket from %s was assigned to you.\n\n%s\n\nOpen it: %s\n",
		ticket.SystemIP, ticket.LogLine, s.ticketLink(ticket.ID))
	htmlBody := fmt.Sprintf(`<html><body><h2>Ticket #%d assigned to you</h2><p>From <b>%s</b></p><pre>%s</pre><p><a href="%s">Open ticket</a></p></body></html>`,
		ticket.ID, html.EscapeString(ticket.SystemIP), html.EscapeString(ticket.LogLine), s.ticketLink(ticket.ID))
	s.deliver(ticket.ID, to, subject, htmlBody, plain)
}

// TicketStatusChanged emails assignees who want status mail
func (s *NotificationService) TicketStatusChanged(ctx context.Context, ticket *models.Ticket, previous models.TicketStatus) {
	to, err := s.recipients(ctx, ticket.Assignees, func(st models.NotificationSetting) bool { return st.EmailOnStatusChange })
	if err != nil {
		logger.WithError(err, "notifications").WithField("ticket_id", ticket.ID).Warn("Could not resolve status recipients")
		return
	}
	subject := fmt.Sprintf("[Ticket #%d] Status changed to %s", ticket.ID, ticket.Status)
	plain := fmt.Sprintf("Ticket #%d moved from %s to %s.\n\nOpen it: %s\n", ticket.ID, previous, ticket.Status, s.ticketLink(ticket.ID))
	htmlBody := fmt.Sprintf(`<html><body><p>Ticket #%d moved from <b>%s</b> to <b>%s</b>.</p><p><a href="%s">Open ticket</a></p></body></html>`,
		ticket.ID, previous, ticket.Status, s.ticketLink(ticket.ID))
	s.deliver(ticket.ID, to, subject, htmlBody, plain)
}

func (s *NotificationService) deliver(ticketID uint, to []recipient, subject, htmlBody, plain string) {
	if len(to) == 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, r := range to {
			if err := s.mailer.Send(r.email, subject, htmlBody, plain); err != nil {
				logger.WithError(err, "notifications").WithFields(map[string]interface{}{
					"ticket_id": ticketID,
					"to":        r.email,
				}).Warn("Notification email failed")
			}
		}
	}()
}

// Wait blocks until queued emails are handed to the mailer
func (s *NotificationService) Wait() {
	s.wg.Wait()
}
