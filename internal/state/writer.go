package state

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playperu/partynight/internal/blob"
	"github.com/playperu/partynight/internal/party"
)

// writer allows at most one physical write in flight. It is either idle or
// writing; a commit that arrives while writing only sets pending, and the
// running write loops once more with the newest snapshot. Intermediate
// snapshots are skipped.
type writer struct {
	blob     blob.Store
	snapshot func() ([]byte, error)
	logger   *slog.Logger
	onError  func(error)
	timeout  time.Duration

	mu      sync.Mutex
	writing bool
	pending bool
	idle    chan struct{} // closed when the current writing phase ends
	lastErr error

	writes atomic.Int64
}

func (w *writer) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writing {
		w.pending = true
		return
	}
	w.writing = true
	w.idle = make(chan struct{})
	go w.run(w.idle)
}

func (w *writer) run(done chan struct{}) {
	for {
		err := w.flushOnce()

		w.mu.Lock()
		w.lastErr = err
		if !w.pending {
			w.writing = false
			close(done)
			w.mu.Unlock()
			return
		}
		w.pending = false
		w.mu.Unlock()
	}
}

func (w *writer) flushOnce() error {
	data, err := w.snapshot()
	if err != nil {
		return w.fail(&party.PersistenceError{Op: "encode", Err: err})
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	err = w.blob.Write(ctx, data)
	w.writes.Add(1)
	if err != nil {
		return w.fail(&party.PersistenceError{Op: "write", Err: err})
	}

	w.logger.Debug("state flushed",
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *writer) fail(err error) error {
	w.logger.Error("state flush failed", "error", err)
	if w.onError != nil {
		w.onError(err)
	}
	return err
}

func (w *writer) wait(ctx context.Context) error {
	w.mu.Lock()
	if !w.writing {
		err := w.lastErr
		w.mu.Unlock()
		return err
	}
	done := w.idle
	w.mu.Unlock()

	select {
	case <-done:
		return w.lastError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) lastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}
