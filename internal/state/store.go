// Package state owns the single in-process application state. Callers see it
// only through Load and Mutate: mutation bodies never interleave, and every
// committed mutation schedules a coalesced write to durable storage.
package state

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/partynight/internal/blob"
	"github.com/playperu/partynight/internal/party"
)

type Store struct {
	blob   blob.Store
	logger *slog.Logger
	writer *writer

	// mu serializes hydration and mutation bodies. current is replaced, never
	// modified in place, so a value read under mu stays valid after unlock.
	mu      sync.RWMutex
	loaded  bool
	current party.State
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithWriteTimeout bounds a single physical write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) { s.writer.timeout = d }
}

// OnPersistError registers a hook called from the writer goroutine after each
// failed durable write.
func OnPersistError(fn func(error)) Option {
	return func(s *Store) { s.writer.onError = fn }
}

func New(b blob.Store, opts ...Option) *Store {
	s := &Store{
		blob:   b,
		logger: slog.Default(),
	}
	s.writer = &writer{
		blob:     b,
		snapshot: s.encode,
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.writer.logger = s.logger
	return s
}

// Load returns a deep copy of the current state, hydrating it from durable
// storage on the first call.
func (s *Store) Load(ctx context.Context) (party.State, error) {
	s.mu.RLock()
	if s.loaded {
		cur := s.current
		s.mu.RUnlock()
		return cur.Clone(), nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	if err := s.hydrate(ctx); err != nil {
		s.mu.Unlock()
		return party.State{}, err
	}
	cur := s.current
	s.mu.Unlock()
	return cur.Clone(), nil
}

// Update is Mutate for bodies that return only an error.
func (s *Store) Update(ctx context.Context, fn func(*party.State) error) error {
	_, err := Mutate(ctx, s, func(st *party.State) (struct{}, error) {
		return struct{}{}, fn(st)
	})
	return err
}

// Mutate runs fn with exclusive ownership of a working copy of the state.
// If fn succeeds the copy becomes the current state and a durable write is
// scheduled; if it fails the copy is dropped and the state is unchanged.
// Mutate returns before the write completes. fn must not retain st or return
// values that alias it.
func Mutate[T any](ctx context.Context, s *Store, fn func(st *party.State) (T, error)) (T, error) {
	var zero T

	s.mu.Lock()
	if err := s.hydrate(ctx); err != nil {
		s.mu.Unlock()
		return zero, err
	}

	work := s.current.Clone()
	work.Revision++
	res, err := fn(&work)
	if err != nil {
		s.mu.Unlock()
		return zero, err
	}
	s.current = work
	s.mu.Unlock()

	s.writer.schedule()
	return res, nil
}

// Flush waits until no write is in flight and returns the outcome of the
// most recent one.
func (s *Store) Flush(ctx context.Context) error {
	return s.writer.wait(ctx)
}

// LastPersistError returns the error of the most recent physical write, or
// nil if it succeeded.
func (s *Store) LastPersistError() error {
	return s.writer.lastError()
}

// Writes is the number of physical writes attempted so far.
func (s *Store) Writes() int64 {
	return s.writer.writes.Load()
}

// Version is the revision of the current state. It survives restarts with
// the rest of the state.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Revision
}

// hydrate must be called with mu held for writing.
func (s *Store) hydrate(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := s.blob.Read(ctx)
	if err != nil {
		return &party.PersistenceError{Op: "read", Err: err}
	}

	var st party.State
	if len(data) > 0 {
		if err := json.Unmarshal(data, &st); err != nil {
			return &party.PersistenceError{Op: "decode", Err: err}
		}
	}
	s.current = st.Clone()
	s.loaded = true

	s.logger.Info("state hydrated",
		"bytes", len(data),
		"guests", len(st.Guests),
		"groups", len(st.Groups),
	)
	return nil
}

// encode serializes the latest committed state for the writer.
func (s *Store) encode() ([]byte, error) {
	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	return json.Marshal(cur)
}
