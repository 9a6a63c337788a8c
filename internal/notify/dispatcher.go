// Package notify delivers in-app notifications off the request path.
//
// Notifications are best effort: they are queued in memory, written by a single worker
// and retried with exponential backoff. A full queue or exhausted retries drop the
// notification with a log line; callers never see delivery errors.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safar/bookswap/internal/models"
)

const (
	defaultQueueSize    = 256
	defaultMaxAttempts  = 3
	defaultBaseDelay    = 100 * time.Millisecond
	defaultJitterFactor = 0.3
	deliveryTimeout     = 5 * time.Second
)

var (
	ErrInvalidQueueSize   = errors.New("queue size must be positive")
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")
	ErrNegativeBaseDelay  = errors.New("base delay must not be negative")
	ErrNilLogger          = errors.New("logger must not be nil")
)

// Sink persists a notification.
type Sink interface {
	Insert(ctx context.Context, n *models.Notification) error
}

type Dispatcher struct {
	sink        Sink
	queueSize   int
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan models.Notification
	done   chan struct{}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

func WithQueueSize(size int) Option {
	return func(d *Dispatcher) error {
		if size <= 0 {
			return ErrInvalidQueueSize
		}
		d.queueSize = size
		return nil
	}
}

func WithMaxAttempts(attempts int) Option {
	return func(d *Dispatcher) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		d.maxAttempts = attempts
		return nil
	}
}

// WithBaseDelay sets the delay before the first retry. Later retries double it.
func WithBaseDelay(delay time.Duration) Option {
	return func(d *Dispatcher) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}
		d.baseDelay = delay
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			return ErrNilLogger
		}
		d.logger = logger
		return nil
	}
}

// NewDispatcher builds a Dispatcher and starts its worker.
func NewDispatcher(sink Sink, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		sink:        sink,
		queueSize:   defaultQueueSize,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	d.queue = make(chan models.Notification, d.queueSize)
	d.done = make(chan struct{})

	go d.run()

	return d, nil
}

// Notify queues a notification for userID without blocking.
func (d *Dispatcher) Notify(_ context.Context, userID, title, body string) {
	// The id is fixed up front so a retried insert hits the same primary key.
	n := models.Notification{ID: uuid.NewString(), UserID: userID, Title: title, Body: body}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("notification dropped: dispatcher closed", "user_id", userID, "title", title)
		return
	}

	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification dropped: queue full", "user_id", userID, "title", title)
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n models.Notification) {
	var err error

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(d.backoff(attempt))
		}

		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		notification := n
		err = d.sink.Insert(ctx, &notification)
		cancel()

		if err == nil {
			return
		}

		d.logger.Debug("notification delivery failed", "user_id", n.UserID, "attempt", attempt+1, "error", err)
	}

	d.logger.Error("notification dropped after retries",
		"user_id", n.UserID, "title", n.Title, "attempts", d.maxAttempts, "error", err)
}

// backoff returns baseDelay * 2^(attempt-1) plus up to 30% jitter.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.baseDelay * time.Duration(1<<(attempt-1))
	jitter := rand.Float64() * float64(delay) * defaultJitterFactor //nolint:gosec
	return delay + time.Duration(jitter)
}
