package trace

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultBuffer       = 256
	defaultWriteTimeout = 5 * time.Second
)

// Writer decouples trace persistence from turn processing. Submit never
// blocks; when the buffer is full the record is dropped and counted.
type Writer struct {
	svc *Service
	log *slog.Logger

	ch      chan Record
	done    chan struct{}
	once    sync.Once
	dropped int64
	mu      sync.Mutex

	onDrop func()
}

func NewWriter(svc *Service, log *slog.Logger) *Writer {
	return NewWriterBuffered(svc, log, defaultBuffer)
}

func NewWriterBuffered(svc *Service, log *slog.Logger, buffer int) *Writer {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	w := &Writer{
		svc:  svc,
		log:  log,
		ch:   make(chan Record, buffer),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

// OnDrop registers a callback invoked once per dropped record. Set it
// before the writer sees traffic.
func (w *Writer) OnDrop(fn func()) *Writer {
	w.onDrop = fn
	return w
}

// Submit enqueues a record for background persistence. It is safe to
// call from any goroutine and returns immediately.
func (w *Writer) Submit(rec Record) {
	select {
	case w.ch <- rec:
	default:
		w.mu.Lock()
		w.dropped++
		n := w.dropped
		w.mu.Unlock()
		if w.onDrop != nil {
			w.onDrop()
		}
		w.log.Warn("trace buffer full, record dropped",
			"call_id", rec.CallID, "dropped_total", n)
	}
}

// Dropped reports how many records were discarded due to backpressure.
func (w *Writer) Dropped() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Close drains pending records and stops the worker. Safe to call more
// than once.
func (w *Writer) Close() {
	w.once.Do(func() {
		close(w.ch)
		<-w.done
	})
}

func (w *Writer) run() {
	defer close(w.done)
	for rec := range w.ch {
		ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		if err := w.svc.Append(ctx, rec); err != nil {
			w.log.Error("trace write failed",
				"call_id", rec.CallID, "error", err)
		}
		cancel()
	}
}
