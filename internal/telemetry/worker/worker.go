// Package worker forwards telemetry events from Kafka to Loki.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// pushTimeout bounds one Loki push.
const pushTimeout = 10 * time.Second

// Reader is the consuming side of a Kafka topic (*kafka.Reader).
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Pusher ships one raw event (*loki.Client).
type Pusher interface {
	PushEventJSON(ctx context.Context, rawJSON []byte) error
}

// NewKafkaReader returns a consumer-group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
}

// Run reads messages until ctx is done and pushes each to p. Read and push failures are
// logged; a failed push drops the event. Returns the number of events pushed.
func Run(ctx context.Context, r Reader, p Pusher) int {
	pushed := 0
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return pushed
			}
			log.Printf("worker: kafka read error: %v", err)
			select {
			case <-ctx.Done():
				return pushed
			case <-time.After(time.Second):
			}
			continue
		}

		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		if err := p.PushEventJSON(pushCtx, msg.Value); err != nil {
			log.Printf("worker: loki push failed: %v", err)
		} else {
			pushed++
		}
		cancel()
	}
}
