package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/triagedesk/backend/internal/logger"
)

const (
	kafkaQueueSize    = 1024
	kafkaMaxBatch     = 100
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaWriteTimeout = 10 * time.Second
)

var errKafkaQueueFull = errors.New("kafka export queue is full")

// KafkaSink exports events to a topic, keyed by table so each table's events
// stay on one partition. Publish only queues the event; a background loop
// writes queued events in batches and logs delivery failures.
type KafkaSink struct {
	writer *kafka.Writer
	queue  chan kafka.Message

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	k := &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: kafkaBatchTimeout,
			RequiredAcks: kafka.RequireOne,
			MaxAttempts:  3,
		},
		queue: make(chan kafka.Message, kafkaQueueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go k.run()
	return k
}

func (k *KafkaSink) Publish(ctx context.Context, evt Event) error {
	msg, err := eventMessage(evt)
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case k.queue <- msg:
		return nil
	default:
		return errKafkaQueueFull
	}
}

// Close flushes what is already queued and shuts the writer down
func (k *KafkaSink) Close() error {
	k.closeOnce.Do(func() { close(k.stop) })
	<-k.done
	return k.writer.Close()
}

func (k *KafkaSink) run() {
	defer close(k.done)
	for {
		select {
		case msg := <-k.queue:
			k.write(k.batch(msg))
		case <-k.stop:
			for {
				select {
				case msg := <-k.queue:
					k.write(k.batch(msg))
				default:
					return
				}
			}
		}
	}
}

// batch collects whatever else is already queued behind first
func (k *KafkaSink) batch(first kafka.Message) []kafka.Message {
	msgs := []kafka.Message{first}
	for len(msgs) < kafkaMaxBatch {
		select {
		case msg := <-k.queue:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
	return msgs
}

func (k *KafkaSink) write(msgs []kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		logger.WithError(err, "kafka").WithField("count", len(msgs)).Warn("Event export failed")
	}
}

func eventMessage(evt Event) (kafka.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(evt.Table),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Type)},
		},
	}, nil
}
