// Package outbox relays committed ledger events from the outbox table to the
// event stream. Delivery is at least once: an event is marked published only
// after the broker acknowledged it, so a crash between the two re-sends it.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"ahorro/internal/thrift/models"
	"ahorro/internal/thrift/store"
	"ahorro/pkg/platform/circuit"
)

const (
	DefaultTopic        = "ahorro.ledger-events"
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Relay struct {
	reader   store.OutboxReader
	producer Producer
	topic    string
	batch    int
	interval time.Duration
	logger   *slog.Logger
	onSent   func(n int)
	breaker  *circuit.Breaker
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithTopic(topic string) Option {
	return func(r *Relay) {
		if topic != "" {
			r.topic = topic
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

// WithPublishedHook is called with the number of events acknowledged per flush.
func WithPublishedHook(fn func(n int)) Option {
	return func(r *Relay) {
		r.onSent = fn
	}
}

// WithBreaker replaces the broker circuit breaker consulted by Run.
func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Relay) {
		if b != nil {
			r.breaker = b
		}
	}
}

func New(reader store.OutboxReader, producer Producer, opts ...Option) *Relay {
	r := &Relay{
		reader:   reader,
		producer: producer,
		topic:    DefaultTopic,
		batch:    defaultBatchSize,
		interval: defaultPollInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New("outbox-broker", circuit.WithFailureThreshold(3), circuit.WithCooldown(10*r.interval))
	}
	return r
}

// Run flushes the outbox every poll interval until ctx is cancelled. After
// repeated failures the breaker opens and flushes are reduced to one probe
// per cooldown.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	if !r.breaker.Allow() {
		return
	}
	if _, err := r.Flush(ctx); err != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.ErrorContext(ctx, "outbox relay paused: broker unavailable", "error", err)
			return
		}
		r.logger.WarnContext(ctx, "outbox flush failed", "error", err)
		return
	}
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "outbox relay resumed")
	}
}

// Flush publishes pending events until the outbox is drained or a batch
// fails. It returns how many events were acknowledged.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		events, err := r.reader.Pending(ctx, r.batch)
		if err != nil {
			return total, fmt.Errorf("read outbox: %w", err)
		}
		if len(events) == 0 {
			return total, nil
		}

		sent, sendErr := r.publish(ctx, events)
		if len(sent) > 0 {
			if err := r.reader.MarkPublished(ctx, sent, time.Now()); err != nil {
				return total, fmt.Errorf("mark published: %w", err)
			}
			total += len(sent)
			if r.onSent != nil {
				r.onSent(len(sent))
			}
		}
		if sendErr != nil {
			return total, sendErr
		}
		if len(events) < r.batch {
			return total, nil
		}
	}
}

func (r *Relay) publish(ctx context.Context, events []models.Event) ([]uuid.UUID, error) {
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		rec, err := r.record(e)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	results := r.producer.ProduceSync(ctx, records...)
	sent := make([]uuid.UUID, 0, len(results))
	var firstErr error
	for i, res := range results {
		if res.Err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("produce event %s: %w", events[i].ID, res.Err)
			}
			continue
		}
		sent = append(sent, events[i].ID)
	}
	return sent, firstErr
}

func (r *Relay) record(e models.Event) (*kgo.Record, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	return &kgo.Record{
		Topic: r.topic,
		Key:   []byte(e.Group.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_kind", Value: []byte(e.Kind)},
			{Key: "event_id", Value: []byte(e.ID.String())},
		},
		Timestamp: e.OccurredAt,
	}, nil
}
