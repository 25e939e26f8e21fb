package controllers

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/realtime"
)

const (
	streamBuffer    = 32
	streamHeartbeat = 25 * time.Second
)

// EventSource hands out live event subscriptions
type EventSource interface {
	Stream(ctx context.Context, table string, filter realtime.Filter, buffer int) <-chan realtime.Event
}

// streamEvents relays events on table as server-sent events until the client
// goes away. Events are named after their type (INSERT, UPDATE).
func streamEvents(c *gin.Context, source EventSource, table string, filter realtime.Filter) {
	ctx := c.Request.Context()
	events := source.Stream(ctx, table, filter, streamBuffer)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.SSEvent("ready", gin.H{"table": table})
	c.Writer.Flush()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case evt := <-events:
			c.SSEvent(string(evt.Type), evt)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
