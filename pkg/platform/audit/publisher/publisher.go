// Package publisher delivers audit events to a sink, optionally through an
// async buffer so emitting never blocks request handling.
package publisher

import (
	"context"
	"sync"
	"time"

	"marlin/pkg/platform/audit"
)

// Sink receives audit events. Implemented by the Kafka producer and by the
// in-memory store used in tests.
type Sink interface {
	Write(ctx context.Context, event audit.Event) error
}

// Publisher emits audit events to a sink. In sync mode Emit writes through;
// in async mode events are buffered and written by a background worker, and
// Close drains the buffer. When the buffer is full the event is dropped;
// audit delivery must never stall a citizen-facing request.
type Publisher struct {
	sink   Sink
	buffer chan audit.Event

	mu        sync.Mutex
	closed    bool
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables async delivery with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan audit.Event, size)
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit delivers one event. The event's timestamp is stamped here when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.buffer == nil {
		return p.sink.Write(ctx, event)
	}

	// The mutex orders sends against Close: once closed is observed no
	// further send can race the channel close.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	select {
	case p.buffer <- event:
		return nil
	default:
		// Buffer full: drop rather than block the request path.
		return nil
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		_ = p.sink.Write(context.Background(), event)
	}
}

// Close drains the async buffer and stops the worker. Safe to call more than
// once.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.buffer != nil {
			p.mu.Lock()
			p.closed = true
			close(p.buffer)
			p.mu.Unlock()
			p.wg.Wait()
		}
	})
}
