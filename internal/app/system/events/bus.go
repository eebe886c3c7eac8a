package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrBusClosed is returned by Subscribe and Publish after Close.
var ErrBusClosed = errors.New("event bus is closed")

// Handler reacts to one event.
type Handler func(ctx context.Context, e Event) error

// Publisher is what lifecycle code depends on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Config configures a Bus.
type Config struct {
	// Async runs handlers on background goroutines bounded by Workers.
	// Sync mode runs them inline and is meant for tests.
	Async bool

	// Workers bounds concurrently running async handlers. Default 8.
	Workers int

	// HandlerTimeout bounds each handler call. Default 30s.
	HandlerTimeout time.Duration

	Logger *zap.Logger
}

// Bus is an in-process publish/subscribe bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	closed   bool

	async   bool
	slots   chan struct{}
	timeout time.Duration
	closeCh chan struct{}
	wg      sync.WaitGroup
	log     *zap.Logger
}

func NewBus(cfg Config) *Bus {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[Type][]Handler),
		async:    cfg.Async,
		slots:    make(chan struct{}, cfg.Workers),
		timeout:  cfg.HandlerTimeout,
		closeCh:  make(chan struct{}),
		log:      cfg.Logger,
	}
}

// Subscribe registers h for every type in types.
func (b *Bus) Subscribe(h Handler, types ...Type) error {
	if h == nil {
		return errors.New("handler cannot be nil")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	for _, t := range types {
		b.handlers[t] = append(b.handlers[t], h)
	}
	return nil
}

// Publish delivers e to its subscribers. Handler failures are logged and
// never returned; the only errors are a closed bus or an untyped event.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	if e.Type == "" {
		return errors.New("event type is required")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	handlers := append([]Handler(nil), b.handlers[e.Type]...)
	if b.async {
		// Registered under the read lock so Close cannot start waiting
		// before these goroutines are counted.
		b.wg.Add(len(handlers))
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	// Delivery must outlive the request that published the event.
	base := context.WithoutCancel(ctx)
	for _, h := range handlers {
		if b.async {
			go b.runAsync(base, e, h)
			continue
		}
		b.run(base, e, h)
	}
	return nil
}

func (b *Bus) runAsync(ctx context.Context, e Event, h Handler) {
	defer b.wg.Done()
	select {
	case b.slots <- struct{}{}:
		defer func() { <-b.slots }()
	case <-b.closeCh:
		// Shutting down: still deliver, just without waiting for a slot.
	}
	b.run(ctx, e, h)
}

func (b *Bus) run(ctx context.Context, e Event, h Handler) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("event_id", e.ID),
				zap.String("event_type", string(e.Type)),
				zap.Any("panic", r))
		}
	}()

	start := time.Now()
	if err := h(ctx, e); err != nil {
		b.log.Warn("event handler failed",
			zap.String("event_id", e.ID),
			zap.String("event_type", string(e.Type)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}
}

// Close stops accepting events and waits for in-flight handlers.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()
	b.log.Info("event bus closed")
	return nil
}
