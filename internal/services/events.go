package services

import (
	"context"

	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/realtime"
)

// publishEvent hands a change event to the feed. Feed failures never fail the
// write that produced them.
func publishEvent(ctx context.Context, pub realtime.Publisher, table string, typ realtime.EventType, ticketID uint, record any) {
	if pub == nil {
		return
	}
	evt, err := realtime.NewEvent(table, typ, ticketID, record)
	if err != nil {
		logger.WithError(err, "realtime").Warn("Failed to encode change event")
		return
	}
	if err := pub.Publish(ctx, evt); err != nil {
		logger.WithError(err, "realtime").WithField("table", table).Warn("Failed to publish change event")
	}
}
