// Package consumer reads activity events from Kafka and feeds them to
// downstream handlers.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader is the subset of kafka.Reader the processor depends on.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler consumes decoded events.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is a decoded Kafka record as produced by the outbox dispatcher.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	EventType string
	Payload   json.RawMessage
}

// Processor drives a fetch/decode/handle/commit loop for one reader.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *log.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger replaces the default logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor builds a processor over reader, dispatching to handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until ctx is cancelled, processing one message at a time.
// Offsets are committed only after the handler succeeds, except for
// records that fail to decode; those are committed immediately so a
// poison pill cannot stall the partition.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.step(ctx); err != nil {
			return err
		}
	}
}

func (p *Processor) step(ctx context.Context) error {
	raw, err := p.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		p.logger.Printf("fetch error: %v", err)
		return nil
	}

	event, err := decode(raw)
	if err != nil {
		p.logger.Printf("skipping undecodable record (topic=%s, partition=%d, offset=%d): %v",
			raw.Topic, raw.Partition, raw.Offset, err)
		recordDecodeError(raw.Topic)
		p.commit(ctx, raw)
		return nil
	}

	if err := p.handler.Handle(ctx, event); err != nil {
		p.logger.Printf("handler error (event_type=%s): %v", event.EventType, err)
		recordHandlerError(event)
		return nil
	}

	if p.commit(ctx, raw) {
		recordProcessed(event)
	}
	return nil
}

func (p *Processor) commit(ctx context.Context, raw kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, raw); err != nil {
		p.logger.Printf("commit error (topic=%s, offset=%d): %v", raw.Topic, raw.Offset, err)
		return false
	}
	return true
}

func decode(raw kafka.Message) (Message, error) {
	var eventType string
	for _, h := range raw.Headers {
		if h.Key == "event_type" {
			eventType = string(h.Value)
			break
		}
	}
	if eventType == "" {
		return Message{}, errors.New("missing event_type header")
	}
	if !json.Valid(raw.Value) {
		return Message{}, errors.New("payload is not valid JSON")
	}

	return Message{
		Topic:     raw.Topic,
		Partition: raw.Partition,
		Offset:    raw.Offset,
		Timestamp: raw.Time,
		EventType: eventType,
		Payload:   json.RawMessage(append([]byte(nil), raw.Value...)),
	}, nil
}
