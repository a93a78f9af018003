package state

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playperu/partynight/internal/blob"
	"github.com/playperu/partynight/internal/party"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// gatedBlob blocks every write until release is closed.
type gatedBlob struct {
	blob.Memory
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedBlob() *gatedBlob {
	return &gatedBlob{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedBlob) Write(ctx context.Context, data []byte) error {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.Memory.Write(ctx, data)
}

type failingBlob struct {
	readErr  error
	writeErr error
	data     []byte
}

func (f *failingBlob) Read(context.Context) ([]byte, error) { return f.data, f.readErr }
func (f *failingBlob) Write(context.Context, []byte) error  { return f.writeErr }

func flush(t *testing.T, s *Store) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Flush(ctx)
}

func decode(t *testing.T, b blob.Store) party.State {
	t.Helper()
	data, err := b.Read(context.Background())
	if err != nil {
		t.Fatalf("reading blob: %v", err)
	}
	var st party.State
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("decoding blob: %v", err)
	}
	return st
}

func TestLoadEmpty(t *testing.T) {
	s := New(blob.NewMemory(), WithLogger(quietLogger()))

	st, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.Guests) != 0 || len(st.Groups) != 0 || st.Game.Started {
		t.Errorf("load = %+v, want empty state", st)
	}
	if st.Guests == nil || st.Groups == nil {
		t.Error("load returned nil slices")
	}
}

func TestLoadHydratesOnce(t *testing.T) {
	mem := blob.NewMemory()
	mem.Write(context.Background(), []byte(`{"guests":[{"id":"a","name":"Ana"}],"game":{"started":true}}`))
	s := New(mem, WithLogger(quietLogger()))

	st, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.Guests) != 1 || st.Guests[0].Name != "Ana" || !st.Game.Started {
		t.Fatalf("load = %+v", st)
	}

	// Later changes to the blob are not re-read.
	mem.Write(context.Background(), []byte(`{}`))
	st, _ = s.Load(context.Background())
	if len(st.Guests) != 1 {
		t.Errorf("second load re-hydrated: %+v", st)
	}
}

func TestLoadReturnsCopy(t *testing.T) {
	s := New(blob.NewMemory(), WithLogger(quietLogger()))
	s.Update(context.Background(), func(st *party.State) error {
		st.Groups = append(st.Groups, party.Group{ID: "g1", Members: []string{"a"}})
		return nil
	})

	st, _ := s.Load(context.Background())
	st.Groups[0].Members[0] = "zzz"

	again, _ := s.Load(context.Background())
	if again.Groups[0].Members[0] != "a" {
		t.Error("mutating a loaded copy changed the store")
	}
}

func TestMutateSerializesConcurrentCallers(t *testing.T) {
	const n = 200
	mem := blob.NewMemory()
	s := New(mem, WithLogger(quietLogger()))
	ctx := context.Background()

	if err := s.Update(ctx, func(st *party.State) error {
		st.Groups = append(st.Groups, party.Group{ID: "counter"})
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Mutate(ctx, s, func(st *party.State) (int, error) {
				g := st.Group("counter")
				g.Progress.PenaltySeconds++
				return g.Progress.PenaltySeconds, nil
			})
			if err != nil {
				t.Errorf("mutate: %v", err)
			}
		}()
	}
	wg.Wait()

	st, _ := s.Load(ctx)
	if got := st.Group("counter").Progress.PenaltySeconds; got != n {
		t.Errorf("counter = %d, want %d", got, n)
	}

	if err := flush(t, s); err != nil {
		t.Fatalf("flush: %v", err)
	}
	durable := decode(t, mem)
	if got := durable.Group("counter").Progress.PenaltySeconds; got != n {
		t.Errorf("durable counter = %d, want %d", got, n)
	}
	if s.Version() != n+1 {
		t.Errorf("version = %d, want %d", s.Version(), n+1)
	}
}

func TestMutateErrorLeavesStateUnchanged(t *testing.T) {
	s := New(blob.NewMemory(), WithLogger(quietLogger()))
	ctx := context.Background()
	s.Update(ctx, func(st *party.State) error {
		st.Groups = append(st.Groups, party.Group{ID: "g1", Name: "Owls"})
		return nil
	})
	before := s.Version()

	wantErr := party.Invalid("name", "taken")
	_, err := Mutate(ctx, s, func(st *party.State) (string, error) {
		st.Group("g1").Name = "half-applied"
		st.Game.Started = true
		return "", wantErr
	})
	if !errors.Is(err, party.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}

	st, _ := s.Load(ctx)
	if st.Group("g1").Name != "Owls" || st.Game.Started {
		t.Errorf("failed mutation leaked: %+v", st)
	}
	if s.Version() != before {
		t.Errorf("version advanced on failed mutation")
	}
}

func TestWritesCoalesceWhileInFlight(t *testing.T) {
	gate := newGatedBlob()
	s := New(gate, WithLogger(quietLogger()))
	ctx := context.Background()

	add := func(i int) {
		t.Helper()
		err := s.Update(ctx, func(st *party.State) error {
			st.Guests = append(st.Guests, party.Guest{ID: string(rune('a' + i))})
			return nil
		})
		if err != nil {
			t.Fatalf("mutate %d: %v", i, err)
		}
	}

	add(0)
	<-gate.started

	// The first write is blocked; these commits must not start more writers
	// and must not wait for the flush.
	const more = 10
	for i := 1; i <= more; i++ {
		add(i)
	}
	close(gate.release)

	if err := flush(t, s); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := s.Writes(); got != 2 {
		t.Errorf("writes = %d, want 2 (one in flight plus one coalesced follow-up)", got)
	}
	if got := len(decode(t, gate).Guests); got != more+1 {
		t.Errorf("durable guests = %d, want %d", got, more+1)
	}
}

func TestWriteFailureKeepsMemoryState(t *testing.T) {
	var hooked atomic.Int32
	fb := &failingBlob{writeErr: errors.New("disk full")}
	s := New(fb,
		WithLogger(quietLogger()),
		OnPersistError(func(error) { hooked.Add(1) }),
	)
	ctx := context.Background()

	err := s.Update(ctx, func(st *party.State) error {
		st.Game.Started = true
		return nil
	})
	if err != nil {
		t.Fatalf("mutate returned %v; write failures are reported by Flush", err)
	}

	err = flush(t, s)
	if !errors.Is(err, party.ErrPersistence) {
		t.Fatalf("flush err = %v, want persistence error", err)
	}
	var perr *party.PersistenceError
	if !errors.As(err, &perr) || perr.Op != "write" {
		t.Errorf("flush err = %#v, want write PersistenceError", err)
	}
	if !errors.Is(s.LastPersistError(), party.ErrPersistence) {
		t.Errorf("LastPersistError = %v", s.LastPersistError())
	}
	if hooked.Load() != 1 {
		t.Errorf("hook called %d times, want 1", hooked.Load())
	}

	st, _ := s.Load(ctx)
	if !st.Game.Started {
		t.Error("in-memory state rolled back after failed write")
	}

	// A later successful write clears the error.
	fb.writeErr = nil
	s.Update(ctx, func(st *party.State) error { return nil })
	if err := flush(t, s); err != nil {
		t.Errorf("flush after recovery: %v", err)
	}
}

// lockedBuffer collects log output written from the writer goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWriteFailureLoggedOnce(t *testing.T) {
	var out lockedBuffer
	var hooked atomic.Int32
	s := New(&failingBlob{writeErr: errors.New("disk full")},
		WithLogger(slog.New(slog.NewJSONHandler(&out, nil))),
		OnPersistError(func(error) { hooked.Add(1) }),
	)

	s.Update(context.Background(), func(st *party.State) error {
		st.Game.Started = true
		return nil
	})
	if err := flush(t, s); err == nil {
		t.Fatal("flush succeeded against a failing blob")
	}

	if n := strings.Count(out.String(), `"msg":"state flush failed"`); n != 1 {
		t.Errorf("flush failure logged %d times, want 1:\n%s", n, out.String())
	}
	if hooked.Load() != 1 {
		t.Errorf("hook called %d times, want 1", hooked.Load())
	}
}

func TestHydrationFailures(t *testing.T) {
	tests := []struct {
		name   string
		blob   *failingBlob
		wantOp string
	}{
		{"read error", &failingBlob{readErr: errors.New("io")}, "read"},
		{"corrupt data", &failingBlob{data: []byte("{not json")}, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.blob, WithLogger(quietLogger()))

			_, err := s.Load(context.Background())
			var perr *party.PersistenceError
			if !errors.As(err, &perr) || perr.Op != tt.wantOp {
				t.Fatalf("load err = %v, want %s PersistenceError", err, tt.wantOp)
			}

			err = s.Update(context.Background(), func(*party.State) error {
				t.Error("mutation body ran without hydrated state")
				return nil
			})
			if !errors.Is(err, party.ErrPersistence) {
				t.Errorf("mutate err = %v, want persistence error", err)
			}
		})
	}
}

func TestFlushWithoutWrites(t *testing.T) {
	s := New(blob.NewMemory(), WithLogger(quietLogger()))
	if err := flush(t, s); err != nil {
		t.Errorf("flush = %v, want nil", err)
	}
	if s.Writes() != 0 {
		t.Errorf("writes = %d, want 0", s.Writes())
	}
}

func TestRevisionSurvivesRestart(t *testing.T) {
	mem := blob.NewMemory()
	s := New(mem, WithLogger(quietLogger()))
	ctx := context.Background()
	for range 2 {
		if err := s.Update(ctx, func(st *party.State) error {
			st.Game.Started = true
			return nil
		}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if err := flush(t, s); err != nil {
		t.Fatalf("flush: %v", err)
	}

	restarted := New(mem, WithLogger(quietLogger()))
	st, err := restarted.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if st.Revision != 2 || restarted.Version() != 2 {
		t.Errorf("revision after restart = %d (version %d), want 2", st.Revision, restarted.Version())
	}

	rev, err := Mutate(ctx, restarted, func(st *party.State) (uint64, error) {
		return st.Revision, nil
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if rev != 3 {
		t.Errorf("revision seen inside mutation = %d, want 3", rev)
	}
}
