// Package outbox persists and delivers domain events to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
)

// Message is one pending row from the outbox table.
type Message struct {
	EventID       int64
	AggregateType string
	AggregateID   string
	EventType     string
	Topic         string
	PartitionKey  string
	Payload       json.RawMessage
}

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Dispatcher polls the outbox table and publishes pending rows to Kafka.
// Rows are claimed with FOR UPDATE SKIP LOCKED so multiple instances can
// run side by side without double-delivering within a tick.
type Dispatcher struct {
	pool         *pgxpool.Pool
	producer     messageWriter
	pollInterval time.Duration
	batchSize    int
	stopped      chan struct{}
}

// NewDispatcher constructs a Dispatcher over pool and producer.
func NewDispatcher(pool *pgxpool.Pool, producer messageWriter, pollInterval time.Duration, batchSize int) *Dispatcher {
	return &Dispatcher{
		pool:         pool,
		producer:     producer,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		stopped:      make(chan struct{}),
	}
}

// Start runs the polling loop until ctx is cancelled. Call it in a
// goroutine and use Wait to block on shutdown.
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.stopped)

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("outbox dispatcher error: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until the polling loop has exited.
func (d *Dispatcher) Wait() {
	<-d.stopped
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	start := time.Now()

	pending, err := d.fetchAndClaim(ctx)
	if err != nil || len(pending) == 0 {
		return err
	}
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	if err := d.deliver(ctx, pending); err != nil {
		// Rows stay unpublished so the next tick retries them.
		failedCounter.Add(float64(len(pending)))
		return err
	}
	deliveredCounter.Add(float64(len(pending)))

	return d.markPublished(ctx, pending)
}

const claimQuery = `
	SELECT event_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload
	FROM outbox
	WHERE published_at IS NULL
	ORDER BY event_id
	LIMIT $1
	FOR UPDATE SKIP LOCKED`

func (d *Dispatcher) fetchAndClaim(ctx context.Context) (pending []Message, err error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	rows, err := tx.Query(ctx, claimQuery, d.batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.EventID, &msg.AggregateType, &msg.AggregateID,
			&msg.EventType, &msg.Topic, &msg.PartitionKey, &msg.Payload); err != nil {
			return nil, err
		}
		pending = append(pending, msg)
		ids = append(ids, msg.EventID)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		tx.Rollback(ctx)
		return nil, nil
	}

	if _, err = tx.Exec(ctx, `UPDATE outbox SET claimed_at = NOW() WHERE event_id = ANY($1)`, ids); err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return pending, nil
}

func (d *Dispatcher) deliver(ctx context.Context, pending []Message) error {
	perTopic := make(map[string][]kafka.Message)
	now := time.Now().UTC()

	for _, msg := range pending {
		perTopic[msg.Topic] = append(perTopic[msg.Topic], kafka.Message{
			Key:   []byte(msg.PartitionKey),
			Value: []byte(msg.Payload),
			Time:  now,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(msg.EventType)},
			},
		})
	}

	for topic, batch := range perTopic {
		if err := d.producer.WriteMessages(ctx, topic, batch...); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) markPublished(ctx context.Context, pending []Message) error {
	ids := make([]int64, len(pending))
	for i, msg := range pending {
		ids[i] = msg.EventID
	}
	_, err := d.pool.Exec(ctx, `UPDATE outbox SET published_at = NOW() WHERE event_id = ANY($1)`, ids)
	return err
}
