package kafka

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/digipin/internal/ingest"
)

// Publisher writes location events to the ingest topic without blocking
// the caller. Events are keyed by id so one location stays on one
// partition and its versions arrive in order.
type Publisher struct {
	log     *slog.Logger
	topic   string
	events  chan ingest.Event
	prod    sarama.AsyncProducer
	stopped chan struct{}
	dropped atomic.Int64
}

func NewPublisher(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("ingest publisher: create async producer: %w", err)
	}
	return newPublisher(prod, topic, queueSize, logger), nil
}

func newPublisher(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		log:     logger,
		topic:   topic,
		events:  make(chan ingest.Event, queueSize),
		prod:    prod,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("ingest publisher: marshal failed", "id", ev.ID, "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.ID),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				p.log.Warn("ingest publisher: produce failed", "topic", p.topic, "err", err)
			}
		}
	}()

	return p
}

// Publish queues ev and reports false when the queue is full and the event
// was dropped.
func (p *Publisher) Publish(ev ingest.Event) bool {
	select {
	case p.events <- ev:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Close flushes queued events and closes the producer.
func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("ingest publisher: close producer: %w", err)
	}
	return nil
}
