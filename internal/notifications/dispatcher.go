package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/metrics"
)

// Sink delivers one message to its destination.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// DispatcherConfig sizes the dispatcher.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher fans messages out to a Sink from a bounded queue. Dispatch never
// blocks: when the queue is full the message is rejected and the caller logs it.
type Dispatcher struct {
	sink    Sink
	cfg     DispatcherConfig
	logg    *logger.Logger
	metrics *metrics.DeliveryMetrics

	queue chan job
	wg    sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

type job struct {
	ctx context.Context
	msg Message
}

var (
	// ErrDispatcherStopped is returned once Stop has been called, both by
	// Dispatch and by a second Stop.
	ErrDispatcherStopped = errors.New("dispatcher stopped")
	ErrQueueFull         = errors.New("notification queue full")
)

// NewDispatcher validates the configuration and builds an idle dispatcher.
func NewDispatcher(sink Sink, cfg DispatcherConfig, logg *logger.Logger, m *metrics.DeliveryMetrics) (*Dispatcher, error) {
	if sink == nil {
		return nil, fmt.Errorf("notification sink required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive")
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive")
	}
	if cfg.SendTimeout <= 0 {
		return nil, fmt.Errorf("send timeout must be positive")
	}
	return &Dispatcher{
		sink:    sink,
		cfg:     cfg,
		logg:    logg,
		metrics: m,
		queue:   make(chan job, cfg.QueueSize),
	}, nil
}

// Start launches the worker goroutines. Calling it more than once is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

// Dispatch enqueues msg, or returns ErrQueueFull or ErrDispatcherStopped when
// it is dropped. The request context is detached so request cancellation does
// not abort delivery, but its logging fields are kept.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherStopped
	}
	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), msg: msg}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued messages to drain. When ctx ends
// first the remaining messages are abandoned and the context error returned,
// combined with any error from closing the sink.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherStopped
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	var err error
	if started {
		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = multierr.Append(err, fmt.Errorf("drain notification queue: %w", ctx.Err()))
		}
	}
	if closer, ok := d.sink.(io.Closer); ok {
		err = multierr.Append(err, closer.Close())
	}
	return err
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.send(j)
	}
}

func (d *Dispatcher) send(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.cfg.SendTimeout)
	defer cancel()

	logCtx := d.logg.WithFields(ctx, map[string]any{
		"notification_type": j.msg.Type,
		"recipient_id":      j.msg.RecipientID,
		"delivery":          j.msg.Delivery.String(),
	})
	if err := d.sink.Send(ctx, j.msg); err != nil {
		d.metrics.IncNotification(string(j.msg.Type), "failed")
		d.logg.Error(logCtx, "notification send failed", err)
		return
	}
	d.metrics.IncNotification(string(j.msg.Type), "sent")
	d.logg.Debug(logCtx, "notification sent")
}
