package email

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manny2375/2020realtorsblue-sub000/internal/core"
)

// batchFlushThreshold is the buffered record count that triggers an
// immediate flush ahead of the ticker.
const batchFlushThreshold = 50

// RecorderConfig controls the async notification recorder.
type RecorderConfig struct {
	BufferSize    int
	FlushInterval time.Duration
}

// Recorder provides async buffered persistence of notification records.
// It collects records in a channel and flushes them to storage either
// when the buffer reaches a threshold or at regular intervals, so that
// request handlers never block on notification writes.
type Recorder struct {
	store         NotificationStore
	buffer        chan *core.EmailNotification
	done          chan struct{}
	wg            sync.WaitGroup
	writes        sync.WaitGroup // tracks in-flight Record calls
	flushInterval time.Duration
	closed        atomic.Bool
}

// NewRecorder creates an async buffered Recorder. The recorder starts a
// background goroutine for flushing records.
func NewRecorder(store NotificationStore, cfg RecorderConfig) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	r := &Recorder{
		store:         store,
		buffer:        make(chan *core.EmailNotification, cfg.BufferSize),
		done:          make(chan struct{}),
		flushInterval: cfg.FlushInterval,
	}

	r.wg.Add(1)
	go r.flushLoop()

	return r
}

// Record queues a notification record for async writing.
// This method is non-blocking. If the buffer is full or the recorder is
// closed, the record is dropped and a warning is logged.
func (r *Recorder) Record(record *core.EmailNotification) {
	if record == nil {
		return
	}

	if r.closed.Load() {
		return
	}

	// Track this write to prevent Close from closing buffer while we're sending
	r.writes.Add(1)
	defer r.writes.Done()

	// Double-check after registering - Close() may have set closed between
	// first check and Add(1)
	if r.closed.Load() {
		return
	}

	select {
	case r.buffer <- record:
	default:
		slog.Warn("notification buffer full, dropping record",
			"template", record.Template,
			"to", record.Recipient,
		)
	}
}

// Close stops the recorder and flushes remaining records.
// Close is idempotent - calling it multiple times is safe.
func (r *Recorder) Close() error {
	if r.closed.Swap(true) {
		return nil
	}

	// Wait for any in-flight Record calls to complete
	r.writes.Wait()

	close(r.done)
	r.wg.Wait()
	return nil
}

func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]*core.EmailNotification, 0, batchFlushThreshold)

	for {
		select {
		case record := <-r.buffer:
			batch = append(batch, record)
			if len(batch) >= batchFlushThreshold {
				r.flushBatch(batch)
				batch = make([]*core.EmailNotification, 0, batchFlushThreshold)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				r.flushBatch(batch)
				batch = make([]*core.EmailNotification, 0, batchFlushThreshold)
			}

		case <-r.done:
			// Shutdown: close buffer to stop accepting records.
			// Note: r.closed is already set by Close() before sending on r.done
			close(r.buffer)
			for record := range r.buffer {
				batch = append(batch, record)
			}
			if len(batch) > 0 {
				r.flushBatch(batch)
			}
			return
		}
	}
}

func (r *Recorder) flushBatch(batch []*core.EmailNotification) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.store.InsertBatch(ctx, batch); err != nil {
		slog.Error("failed to write notification batch",
			"error", err,
			"count", len(batch),
		)
	}
}
