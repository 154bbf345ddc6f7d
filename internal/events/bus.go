package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is a domain event carried by the bus.
type Event interface {
	EventID() string
	Kind() string
	OccurredAt() time.Time
}

// Handler consumes events of one kind. All handler bindings are declared
// explicitly at startup; there is no implicit discovery.
type Handler interface {
	Handle(ctx context.Context, event Event) error
	HandlerID() string
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event Event) error
}

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Func(ctx, event)
}

// HandlerID implements Handler.
func (f HandlerFunc) HandlerID() string {
	return f.ID
}

// Bus is the in-process publish/subscribe surface between the activity
// recorder, the badge engine and the notification bridge.
type Bus interface {
	// Publish delivers the event to all subscribed handlers before
	// returning.
	Publish(ctx context.Context, event Event) error
	// PublishAsync enqueues the event for worker delivery and returns
	// immediately. The caller does not block on handler completion.
	PublishAsync(ctx context.Context, event Event) error
	Subscribe(kind string, handler Handler) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() error
	Stats() *BusStats
}

// BusStats represents bus counters.
type BusStats struct {
	EventsPublished int64         `json:"events_published"`
	EventsProcessed int64         `json:"events_processed"`
	EventsFailed    int64         `json:"events_failed"`
	HandlersCount   int           `json:"handlers_count"`
	QueueDepth      int           `json:"queue_depth"`
	Uptime          time.Duration `json:"uptime"`
}

// Config sizes the bus queue and worker pool.
type Config struct {
	BufferSize     int           `json:"buffer_size"`
	WorkerCount    int           `json:"worker_count"`
	HandlerTimeout time.Duration `json:"handler_timeout"`
}

// DefaultConfig returns the default bus sizing.
func DefaultConfig() *Config {
	return &Config{
		BufferSize:     1000,
		WorkerCount:    5,
		HandlerTimeout: 30 * time.Second,
	}
}

type inMemoryBus struct {
	mu             sync.RWMutex
	handlers       map[string][]Handler
	queue          chan queuedEvent
	logger         *zap.Logger
	handlerTimeout time.Duration
	bufferSize     int
	workerCount    int

	statsMu   sync.Mutex
	stats     BusStats
	startTime time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type queuedEvent struct {
	ctx   context.Context
	event Event
}

// NewBus creates an in-memory bus. Call Start before publishing
// asynchronously.
func NewBus(cfg *Config, logger *zap.Logger) Bus {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	defaults := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = defaults.HandlerTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &inMemoryBus{
		handlers:       make(map[string][]Handler),
		queue:          make(chan queuedEvent, cfg.BufferSize),
		logger:         logger,
		handlerTimeout: cfg.HandlerTimeout,
		bufferSize:     cfg.BufferSize,
		workerCount:    cfg.WorkerCount,
		startTime:      time.Now(),
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (b *inMemoryBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	b.logger.Debug("Publishing event",
		zap.String("event_id", event.EventID()),
		zap.String("kind", event.Kind()),
	)

	if err := b.dispatch(ctx, event); err != nil {
		b.countFailed()
		return err
	}
	b.countPublished()
	b.countProcessed()
	return nil
}

func (b *inMemoryBus) PublishAsync(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	select {
	case b.queue <- queuedEvent{ctx: ctx, event: event}:
		b.countPublished()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("event queue is full")
	}
}

func (b *inMemoryBus) Subscribe(kind string, handler Handler) error {
	if kind == "" {
		return fmt.Errorf("event kind cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[kind] = append(b.handlers[kind], handler)

	b.logger.Info("Handler subscribed",
		zap.String("kind", kind),
		zap.String("handler_id", handler.HandlerID()),
	)
	return nil
}

func (b *inMemoryBus) Start(ctx context.Context) error {
	b.logger.Info("Starting event bus", zap.Int("worker_count", b.workerCount))

	for i := 0; i < b.workerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
	return nil
}

func (b *inMemoryBus) Stop(ctx context.Context) error {
	b.logger.Info("Stopping event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus stop timeout")
		return ctx.Err()
	}
}

func (b *inMemoryBus) Health() error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is stopped")
	default:
	}

	if depth := len(b.queue); depth > b.bufferSize*80/100 {
		return fmt.Errorf("event queue is %d%% full", depth*100/b.bufferSize)
	}
	return nil
}

func (b *inMemoryBus) Stats() *BusStats {
	b.statsMu.Lock()
	stats := b.stats
	b.statsMu.Unlock()

	b.mu.RLock()
	for _, handlers := range b.handlers {
		stats.HandlersCount += len(handlers)
	}
	b.mu.RUnlock()

	stats.QueueDepth = len(b.queue)
	stats.Uptime = time.Since(b.startTime)
	return &stats
}

func (b *inMemoryBus) worker(workerID int) {
	defer b.wg.Done()

	for {
		select {
		case msg := <-b.queue:
			if err := b.dispatch(msg.ctx, msg.event); err != nil {
				b.logger.Error("Failed to process event",
					zap.Int("worker_id", workerID),
					zap.String("event_id", msg.event.EventID()),
					zap.String("kind", msg.event.Kind()),
					zap.Error(err),
				)
				b.countFailed()
			} else {
				b.countProcessed()
			}
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *inMemoryBus) dispatch(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.Kind()]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("No handlers for event",
			zap.String("kind", event.Kind()),
			zap.String("event_id", event.EventID()),
		)
		return nil
	}

	failed := 0
	for _, handler := range handlers {
		if err := b.runHandler(ctx, handler, event); err != nil {
			b.logger.Error("Handler failed",
				zap.String("handler_id", handler.HandlerID()),
				zap.String("kind", event.Kind()),
				zap.Error(err),
			)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to execute %d out of %d handlers", failed, len(handlers))
	}
	return nil
}

// runHandler executes one handler with a timeout and panic recovery, so a
// defective handler can never take down the publishing goroutine.
func (b *inMemoryBus) runHandler(ctx context.Context, handler Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	handlerCtx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
	defer cancel()

	return handler.Handle(handlerCtx, event)
}

func (b *inMemoryBus) countPublished() {
	b.statsMu.Lock()
	b.stats.EventsPublished++
	b.statsMu.Unlock()
}

func (b *inMemoryBus) countProcessed() {
	b.statsMu.Lock()
	b.stats.EventsProcessed++
	b.statsMu.Unlock()
}

func (b *inMemoryBus) countFailed() {
	b.statsMu.Lock()
	b.stats.EventsFailed++
	b.statsMu.Unlock()
}
