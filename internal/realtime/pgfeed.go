package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/triagedesk/backend/internal/logger"
	"gorm.io/gorm"
)

// postgres rejects NOTIFY payloads of 8000 bytes or more
const maxNotifyPayload = 7900

// PGFeed carries events between server instances over LISTEN/NOTIFY.
// Publish sends through the database; Listen feeds received events into a
// local Hub.
type PGFeed struct {
	db      *gorm.DB
	dsn     string
	channel string
}

func NewPGFeed(db *gorm.DB, dsn, channel string) *PGFeed {
	return &PGFeed{db: db, dsn: dsn, channel: channel}
}

func (f *PGFeed) Publish(ctx context.Context, evt Event) error {
	payload, err := encodeNotifyPayload(evt)
	if err != nil {
		return err
	}
	if err := f.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", f.channel, payload).Error; err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// encodeNotifyPayload drops the record body of events too large for NOTIFY;
// subscribers then refetch by ticket id.
func encodeNotifyPayload(evt Event) (string, error) {
	raw, err := json.Marshal(evt)
	if err != nil {
		return "", err
	}
	if len(raw) <= maxNotifyPayload {
		return string(raw), nil
	}
	evt.Record = nil
	raw, err = json.Marshal(evt)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Listen blocks until ctx is done, forwarding notifications to sink
func (f *PGFeed) Listen(ctx context.Context, sink Publisher) error {
	log := logger.WithComponent("pg_feed")
	listener := pq.NewListener(f.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithField("event", ev).WithError(err).Warn("Listener connection problem")
		}
	})
	defer listener.Close()

	if err := listener.Listen(f.channel); err != nil {
		return fmt.Errorf("listen %s: %w", f.channel, err)
	}
	log.WithField("channel", f.channel).Info("Listening for change events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil after a reconnect
			if n == nil {
				continue
			}
			var evt Event
			if err := json.Unmarshal([]byte(n.Extra), &evt); err != nil {
				log.WithError(err).Warn("Dropping malformed notification")
				continue
			}
			if err := sink.Publish(ctx, evt); err != nil {
				log.WithError(err).Warn("Failed to forward notification")
			}
		case <-time.After(90 * time.Second):
			go func() {
				if err := listener.Ping(); err != nil {
					log.WithError(err).Warn("Listener ping failed")
				}
			}()
		}
	}
}
