package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/models"
)

func TestIngestInfoLogOpensNoTicket(t *testing.T) {
	f := newFixture(t)
	seedProfiles(t, f.db, "A1", "E1", "S1")
	logs := NewLogService(f.db, f.intake, f.publisher)

	res, err := logs.Ingest(context.Background(), LogIngestRequest{
		Level:    "INFO",
		Source:   "checkout",
		Message:  "order placed",
		Metadata: map[string]interface{}{"order": "A-1"},
		SystemIP: "10.0.0.9",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LogLevelInfo, res.Log.Level)
	assert.Nil(t, res.Ticket)
	assert.NoError(t, res.IntakeError)
	assert.Equal(t, []string{"logs:INSERT"}, f.publisher.tables())
}

func TestIngestErrorLogOpensTicket(t *testing.T) {
	f := newFixture(t)
	ids := seedProfiles(t, f.db, "A1", "E1", "S1")
	logs := NewLogService(f.db, f.intake, f.publisher)
	ts := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)

	res, err := logs.Ingest(context.Background(), LogIngestRequest{
		Level:     "fatal",
		Source:    "checkout",
		Message:   "payment gateway timeout",
		Timestamp: &ts,
		SystemIP:  "10.0.0.9",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Ticket)
	assert.Equal(t, models.LogLevelError, res.Log.Level)
	require.NotNil(t, res.Ticket.LogID)
	assert.Equal(t, res.Log.ID, *res.Ticket.LogID)
	assert.Equal(t, "checkout", *res.Ticket.Application)
	assert.Equal(t, []uint{ids["A1"], ids["E1"], ids["S1"]}, []uint(res.Ticket.Assignees))
	assert.Equal(t, []string{"logs:INSERT", "tickets:INSERT"}, f.publisher.tables())

	stored, err := f.tickets.Get(context.Background(), res.Ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Log)
	assert.Equal(t, "payment gateway timeout", stored.Log.Message)
}

func TestIngestKeepsLogWhenIntakeFails(t *testing.T) {
	f := newFixture(t)
	seedProfiles(t, f.db, "A1")
	logs := NewLogService(f.db, f.intake, f.publisher)

	res, err := logs.Ingest(context.Background(), LogIngestRequest{
		Level:    "error",
		Source:   "checkout",
		Message:  "boom",
		SystemIP: "10.0.0.9",
	})
	require.NoError(t, err)
	assert.NotZero(t, res.Log.ID)
	assert.Nil(t, res.Ticket)
	assert.True(t, apperrors.IsInsufficientUsers(res.IntakeError))

	var count int64
	require.NoError(t, f.db.Model(&models.LogEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngestValidation(t *testing.T) {
	f := newFixture(t)
	logs := NewLogService(f.db, f.intake, f.publisher)

	tests := []struct {
		name string
		req  LogIngestRequest
		msg  string
	}{
		{"no level", LogIngestRequest{Source: "a", Message: "b"}, "level is required"},
		{"bad level", LogIngestRequest{Level: "loud", Source: "a", Message: "b"}, "level is invalid"},
		{"no source", LogIngestRequest{Level: "info", Message: "b"}, "source is required"},
		{"blank message", LogIngestRequest{Level: "info", Source: "a", Message: "  "}, "message is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := logs.Ingest(context.Background(), tt.req)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.msg, apperrors.PublicMessage(err))
		})
	}
}

func TestRecentLogs(t *testing.T) {
	f := newFixture(t)
	logs := NewLogService(f.db, nil, nil)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		level := "info"
		if i%2 == 1 {
			level = "warning"
		}
		_, err := logs.Ingest(ctx, LogIngestRequest{Level: level, Source: "svc", Message: fmt.Sprintf("line %d", i), Timestamp: &ts})
		require.NoError(t, err)
	}

	recent, err := logs.Recent(ctx, LogFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "line 5", recent[0].Message)
	assert.Equal(t, "line 3", recent[2].Message)

	warnings, err := logs.Recent(ctx, LogFilter{Level: "warn"})
	require.NoError(t, err)
	assert.Len(t, warnings, 3)

	none, err := logs.Recent(ctx, LogFilter{Source: "other"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = logs.Recent(ctx, LogFilter{Level: "nope"})
	assert.True(t, apperrors.IsValidation(err))

	entry, err := logs.Get(ctx, recent[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "line 5", entry.Message)
	_, err = logs.Get(ctx, 999)
	assert.True(t, apperrors.IsNotFound(err))
}
