package clicks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/linkmetrics/internal/errx"
	"github.com/sundayezeilo/linkmetrics/internal/idgen"
	"github.com/sundayezeilo/linkmetrics/internal/links"
)

const (
	DefaultWorkers       = 4
	DefaultQueueSize     = 1024
	DefaultRecordTimeout = 5 * time.Second
)

var (
	// ErrQueueFull is returned when the async queue has no room.
	ErrQueueFull = errors.New("click queue full")
	// ErrDispatcherClosed is returned after Close.
	ErrDispatcherClosed = errors.New("click dispatcher closed")
)

// Dispatcher hands clicks off the redirect path. Dispatch must not block on
// recording.
type Dispatcher interface {
	Dispatch(ctx context.Context, in ClickInput) error
	Close(ctx context.Context) error
}

// stamp fixes the id and timestamp at hand-off so retries stay idempotent
// and the click time is the redirect time.
func stamp(in ClickInput, ids idgen.Generator, now func() time.Time) (ClickInput, error) {
	if in.ID == uuid.Nil {
		id, err := ids.Generate()
		if err != nil {
			return in, err
		}
		in.ID = id
	}
	if in.ClickedAt.IsZero() {
		in.ClickedAt = now().UTC()
	}
	return in, nil
}

// AsyncDispatcher records clicks on a bounded in-process queue. Delivery is
// best effort: a full queue drops the click, and a crash loses what is
// queued.
type AsyncDispatcher struct {
	recorder ClickRecorder
	queue    chan ClickInput
	timeout  time.Duration
	ids      idgen.Generator
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// AsyncConfig tunes an AsyncDispatcher. Zero values use defaults.
type AsyncConfig struct {
	Workers       int
	QueueSize     int
	RecordTimeout time.Duration
	IDGenerator   idgen.Generator
	Logger        *slog.Logger
	Now           func() time.Time
}

// NewAsyncDispatcher starts the worker pool.
func NewAsyncDispatcher(recorder ClickRecorder, cfg AsyncConfig) *AsyncDispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	timeout := cfg.RecordTimeout
	if timeout <= 0 {
		timeout = DefaultRecordTimeout
	}
	ids := cfg.IDGenerator
	if ids == nil {
		ids = idgen.NewV7()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	d := &AsyncDispatcher{
		recorder: recorder,
		queue:    make(chan ClickInput, size),
		timeout:  timeout,
		ids:      ids,
		logger:   logger,
		now:      now,
	}
	d.wg.Add(workers)
	for range workers {
		go d.worker()
	}
	return d
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, in ClickInput) error {
	in, err := stamp(in, d.ids, d.now)
	if err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- in:
		return nil
	default:
		d.logger.WarnContext(ctx, "click dropped, queue full",
			"link_id", in.LinkID.String(),
			"queue_size", cap(d.queue),
		)
		return ErrQueueFull
	}
}

func (d *AsyncDispatcher) worker() {
	defer d.wg.Done()
	for in := range d.queue {
		d.record(in)
	}
}

func (d *AsyncDispatcher) record(in ClickInput) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if _, err := d.recorder.Record(ctx, in); err != nil {
		attrs := []any{
			"click_id", in.ID.String(),
			"link_id", in.LinkID.String(),
			"error", err.Error(),
		}
		if errx.Is(err, errx.NotFound) && errors.Is(err, links.ErrLinkUnavailable) {
			d.logger.Info("click skipped, link unavailable", attrs...)
			return
		}
		d.logger.Error("failed to record click", attrs...)
	}
}

// Close stops accepting clicks and waits for the queue to drain or ctx to end.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
