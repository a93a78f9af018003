// Package game holds the operations behind the HTTP surface. Each operation
// is one state mutation; after it commits, the service decides which
// realtime snapshots to push.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/playperu/partynight/internal/party"
	"github.com/playperu/partynight/internal/realtime"
	"github.com/playperu/partynight/internal/scoreboard"
	"github.com/playperu/partynight/internal/state"
)

// Publisher receives full snapshots after relevant mutations. rev is the
// state revision the snapshot was taken from; pushes may arrive out of
// revision order when mutations commit back to back.
type Publisher interface {
	PushGameState(rev uint64, gs party.GameState)
	PushScoreboard(rev uint64, p scoreboard.Payload)
}

type nopPublisher struct{}

func (nopPublisher) PushGameState(uint64, party.GameState)     {}
func (nopPublisher) PushScoreboard(uint64, scoreboard.Payload) {}

type Service struct {
	store  *state.Store
	clock  clockwork.Clock
	logger *slog.Logger
	pub    Publisher
}

type Option func(*Service)

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.pub = p }
}

func NewService(store *state.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
		pub:    nopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPublisher wires the realtime hub, which itself needs the service as
// its snapshot source. Call it before serving requests.
func (s *Service) SetPublisher(p Publisher) {
	s.pub = p
}

// Standings is the scoreboard payload plus the groups not yet ranked.
type Standings struct {
	scoreboard.Payload
	InProgress []scoreboard.Pending `json:"inProgress"`
}

// Snapshot is what a realtime client receives when it connects. Game state
// and scoreboard come from the same revision.
func (s *Service) Snapshot(ctx context.Context) (realtime.Snapshot, error) {
	st, err := s.store.Load(ctx)
	if err != nil {
		return realtime.Snapshot{}, fmt.Errorf("loading state: %w", err)
	}
	return realtime.Snapshot{
		Revision:   st.Revision,
		Game:       st.Game,
		Scoreboard: s.board(&st),
	}, nil
}

func (s *Service) GameState(ctx context.Context) (party.GameState, error) {
	st, err := s.store.Load(ctx)
	if err != nil {
		return party.GameState{}, fmt.Errorf("loading state: %w", err)
	}
	return st.Game, nil
}

// Scoreboard computes the ranking from the current state.
func (s *Service) Scoreboard(ctx context.Context) (scoreboard.Payload, error) {
	st, err := s.store.Load(ctx)
	if err != nil {
		return scoreboard.Payload{}, fmt.Errorf("loading state: %w", err)
	}
	return s.board(&st), nil
}

func (s *Service) Standings(ctx context.Context) (Standings, error) {
	st, err := s.store.Load(ctx)
	if err != nil {
		return Standings{}, fmt.Errorf("loading state: %w", err)
	}
	return Standings{
		Payload:    s.board(&st),
		InProgress: scoreboard.InProgress(st.Groups, st.Guests, st.Game.StartedAt),
	}, nil
}

// StartGame marks the event started. The first call sets startedAt, which
// also serves as the fallback start for groups without their own timer.
func (s *Service) StartGame(ctx context.Context) (party.GameState, error) {
	snap, err := state.Mutate(ctx, s.store, func(st *party.State) (snapshot, error) {
		st.Game.Started = true
		if st.Game.StartedAt == nil {
			st.Game.StartedAt = s.now()
		}
		return s.snapshot(st), nil
	})
	if err != nil {
		return party.GameState{}, err
	}

	s.logger.Info("game started", "started_at", snap.game.StartedAt)
	s.pub.PushGameState(snap.rev, snap.game)
	s.pub.PushScoreboard(snap.rev, snap.board)
	return snap.game, nil
}

func (s *Service) UnlockClues(ctx context.Context) (party.GameState, error) {
	type unlocked struct {
		rev  uint64
		game party.GameState
	}
	res, err := state.Mutate(ctx, s.store, func(st *party.State) (unlocked, error) {
		if !st.Game.Started {
			return unlocked{}, party.Conflict("game has not started")
		}
		if st.Game.CluesUnlockedAt == nil {
			st.Game.CluesUnlockedAt = s.now()
		}
		return unlocked{rev: st.Revision, game: st.Game.Clone()}, nil
	})
	if err != nil {
		return party.GameState{}, err
	}

	s.logger.Info("clues unlocked", "at", res.game.CluesUnlockedAt)
	s.pub.PushGameState(res.rev, res.game)
	return res.game, nil
}

// ResetGame clears the global flag and every group's timers and progress.
// Guests, memberships and configs are kept.
func (s *Service) ResetGame(ctx context.Context) (party.GameState, error) {
	snap, err := state.Mutate(ctx, s.store, func(st *party.State) (snapshot, error) {
		st.Game = party.GameState{}
		for i := range st.Groups {
			g := &st.Groups[i]
			g.StartedAt = nil
			g.FinishedAt = nil
			g.PasswordSolved = false
			g.Progress = party.GroupProgress{CompletedGames: []string{}, Penalties: []party.PenaltyEvent{}}
		}
		return s.snapshot(st), nil
	})
	if err != nil {
		return party.GameState{}, err
	}

	s.logger.Info("game reset")
	s.pub.PushGameState(snap.rev, snap.game)
	s.pub.PushScoreboard(snap.rev, snap.board)
	return snap.game, nil
}

type snapshot struct {
	rev   uint64
	game  party.GameState
	board scoreboard.Payload
}

// snapshot captures what a broadcast needs while the mutation still owns st.
func (s *Service) snapshot(st *party.State) snapshot {
	return snapshot{rev: st.Revision, game: st.Game.Clone(), board: s.board(st)}
}

// boardUpdate is a scoreboard computed inside a mutation, tagged with the
// revision it reflects.
type boardUpdate struct {
	rev     uint64
	payload scoreboard.Payload
}

func (s *Service) boardUpdate(st *party.State) boardUpdate {
	return boardUpdate{rev: st.Revision, payload: s.board(st)}
}

func (s *Service) pushBoard(b boardUpdate) {
	s.pub.PushScoreboard(b.rev, b.payload)
}

func (s *Service) board(st *party.State) scoreboard.Payload {
	return scoreboard.Build(st.Groups, st.Guests, st.Game.StartedAt, s.clock.Now())
}

func (s *Service) now() *time.Time {
	t := s.clock.Now().UTC()
	return &t
}
