// Package publisher fronts an audit store with optional asynchronous buffering.
//
// In sync mode Emit writes straight to the store. With WithAsyncBuffer, Emit
// enqueues and a background worker writes; a full buffer drops the event and
// returns ErrBufferFull rather than blocking the caller. Close drains the buffer.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "claimdesk/pkg/domain"
	audit "claimdesk/pkg/platform/audit"
	"claimdesk/pkg/platform/audit/worker"
)

var (
	ErrBufferFull  = errors.New("audit buffer full")
	ErrClosed      = errors.New("audit publisher closed")
	ErrNotListable = errors.New("audit store cannot list events")
)

type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	bufferSize int
	inbox      chan audit.Event
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock overrides the timestamp source for events emitted without one.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(p.store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit stamps the event (timestamp, category) and hands it to the store.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"claim_id", event.ClaimID.String(),
		)
		return ErrBufferFull
	}
}

// Listable reports whether the underlying store can be read back.
func (p *Publisher) Listable() bool {
	_, ok := p.store.(audit.Reader)
	return ok
}

// List returns a claim's events when the underlying store supports reads.
func (p *Publisher) List(ctx context.Context, claimID id.ClaimID) ([]audit.Event, error) {
	reader, ok := p.store.(audit.Reader)
	if !ok {
		return nil, ErrNotListable
	}
	return reader.ListByClaim(ctx, claimID)
}

// Close stops accepting events and waits for buffered ones to be written.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
}
