package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-parts-fulfillment/internal/events"
)

var ErrProducerClosed = errors.New("kafka producer closed")

// Producer buffers messages in memory and writes them from a single goroutine. Messages carry
// their own topic, so one producer serves every event stream.
type Producer struct {
	w       *kafka.Writer
	log     *zap.Logger
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, buf int, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	if buf <= 0 {
		buf = 256
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		log:     log.Named("kafka.producer"),
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the write loop until Close is called. Remaining messages are flushed before the
// writer is closed.
func (p *Producer) Start() {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.log.Error("write failed",
					zap.String("topic", m.Topic),
					zap.String("event_type", Header(m, HeaderEventType)),
					zap.String("event_id", Header(m, HeaderEventID)),
					zap.Error(err),
				)
			}
		}
		if err := p.w.Close(); err != nil {
			p.log.Warn("writer close", zap.Error(err))
		}
	}()
}

// Publish enqueues the envelope. It blocks only while the buffer is full, and never past ctx.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, env events.Envelope) error {
	m, err := Message(topic, key, env)
	if err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages; the loop flushes what is buffered and exits.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.inbox)
}

// WaitClosed blocks until the flush after Close has finished.
func (p *Producer) WaitClosed() { <-p.closeCh }

var _ events.Publisher = (*Producer)(nil)
