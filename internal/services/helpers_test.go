package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/triagedesk/backend/internal/config"
	"github.com/triagedesk/backend/internal/db"
	"github.com/triagedesk/backend/internal/models"
	"github.com/triagedesk/backend/internal/realtime"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.Connect(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database))
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return database
}

// seedProfiles creates one profile per name; the name prefix picks the role
// (A admin, E engineer, S support, V viewer)
func seedProfiles(t *testing.T, database *gorm.DB, names ...string) map[string]uint {
	t.Helper()
	ids := make(map[string]uint, len(names))
	for _, name := range names {
		var role models.Role
		switch name[0] {
		case 'A':
			role = models.RoleAdmin
		case 'E':
			role = models.RoleEngineer
		case 'S':
			role = models.RoleSupport
		case 'V':
			role = "viewer"
		default:
			t.Fatalf("no role for %q", name)
		}
		p := models.Profile{
			Email:    strings.ToLower(name) + "@example.com",
			Password: "x",
			FullName: name,
			Role:     role,
		}
		require.NoError(t, database.Create(&p).Error)
		ids[name] = p.ID
	}
	return ids
}

func sampleIntake() IntakeRequest {
	return IntakeRequest{
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		SystemIP:  "10.0.0.5",
		LogLine:   "ERROR database connection timeout after 30s",
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, fmt.Sprintf("%s:%s", e.Table, e.Type))
	}
	return out
}

type recordingNotifier struct {
	mu       sync.Mutex
	assigned []uint
	changed  []string
}

func (n *recordingNotifier) TicketAssigned(_ context.Context, ticket *models.Ticket) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned = append(n.assigned, ticket.ID)
}

func (n *recordingNotifier) TicketStatusChanged(_ context.Context, ticket *models.Ticket, previous models.TicketStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, fmt.Sprintf("%s->%s", previous, ticket.Status))
}

type fixture struct {
	db        *gorm.DB
	directory *ProfileDirectory
	intake    *IntakeService
	tickets   *TicketService
	publisher *recordingPublisher
	notifier  *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := newTestDB(t)
	pub := &recordingPublisher{}
	notifier := &recordingNotifier{}
	directory := NewProfileDirectory(database)
	intake := NewIntakeService(database, directory, NewGormCursorStore(database), pub, notifier)
	return &fixture{
		db:        database,
		directory: directory,
		intake:    intake,
		tickets:   NewTicketService(database, intake, pub, notifier),
		publisher: pub,
		notifier:  notifier,
	}
}

func (f *fixture) openTicket(t *testing.T) *models.Ticket {
	t.Helper()
	ticket, err := f.intake.Intake(context.Background(), sampleIntake())
	require.NoError(t, err)
	return ticket
}
