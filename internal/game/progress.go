package game

import (
	"context"
	"slices"
	"strings"

	"github.com/playperu/partynight/internal/consolidate"
	"github.com/playperu/partynight/internal/party"
	"github.com/playperu/partynight/internal/state"
)

// StartGroup starts a group's own timer. Only the first call counts.
func (s *Service) StartGroup(ctx context.Context, id string) (party.Group, error) {
	res, err := state.Mutate(ctx, s.store, func(st *party.State) (groupChange, error) {
		g := st.Group(id)
		if g == nil {
			return groupChange{}, party.NotFound("group", id)
		}
		if g.StartedAt == nil {
			g.StartedAt = s.now()
		}
		return groupChange{group: g.Clone(), board: s.boardUpdate(st)}, nil
	})
	if err != nil {
		return party.Group{}, err
	}

	s.logger.Info("group started", "group_id", id, "started_at", res.group.StartedAt)
	s.pushBoard(res.board)
	return res.group, nil
}

// FinishGroup stops a group's timer. The group needs a start, its own or the
// game's; only the first call counts.
func (s *Service) FinishGroup(ctx context.Context, id string) (party.Group, error) {
	res, err := state.Mutate(ctx, s.store, func(st *party.State) (groupChange, error) {
		g := st.Group(id)
		if g == nil {
			return groupChange{}, party.NotFound("group", id)
		}
		if g.StartedAt == nil && st.Game.StartedAt == nil {
			return groupChange{}, party.Conflict("group %s has not started", id)
		}
		if g.FinishedAt == nil {
			g.FinishedAt = s.now()
		}
		return groupChange{group: g.Clone(), board: s.boardUpdate(st)}, nil
	})
	if err != nil {
		return party.Group{}, err
	}

	s.logger.Info("group finished", "group_id", id, "finished_at", res.group.FinishedAt)
	s.pushBoard(res.board)
	return res.group, nil
}

type PenaltyInput struct {
	Seconds int    `json:"seconds"`
	Reason  string `json:"reason"`
}

// ApplyPenalty records a penalty event and adds it to the running total.
// Negative seconds are allowed as corrections; the scoreboard clamps the
// total at zero.
func (s *Service) ApplyPenalty(ctx context.Context, id string, in PenaltyInput) (party.Group, error) {
	if in.Seconds == 0 {
		return party.Group{}, party.Invalid("seconds", "must not be zero")
	}

	res, err := state.Mutate(ctx, s.store, func(st *party.State) (groupChange, error) {
		g := st.Group(id)
		if g == nil {
			return groupChange{}, party.NotFound("group", id)
		}
		g.Progress.Penalties = append(g.Progress.Penalties, party.PenaltyEvent{
			Seconds: in.Seconds,
			Reason:  strings.TrimSpace(in.Reason),
			At:      *s.now(),
		})
		g.Progress.PenaltySeconds += in.Seconds
		return groupChange{group: g.Clone(), board: s.boardUpdate(st)}, nil
	})
	if err != nil {
		return party.Group{}, err
	}

	s.logger.Info("penalty applied", "group_id", id, "seconds", in.Seconds, "total", res.group.Progress.PenaltySeconds)
	s.pushBoard(res.board)
	return res.group, nil
}

// CompleteGame records a finished mini-game for a group. Repeats are ignored.
func (s *Service) CompleteGame(ctx context.Context, id, gameID string) (party.Group, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return party.Group{}, party.Invalid("gameId", "required")
	}

	return state.Mutate(ctx, s.store, func(st *party.State) (party.Group, error) {
		g := st.Group(id)
		if g == nil {
			return party.Group{}, party.NotFound("group", id)
		}
		if !slices.Contains(g.Progress.CompletedGames, gameID) {
			g.Progress.CompletedGames = append(g.Progress.CompletedGames, gameID)
		}
		return g.Clone(), nil
	})
}

// SubmitPassword checks a guess against the consolidated password list. A
// match marks the group solved and completes the password game.
func (s *Service) SubmitPassword(ctx context.Context, id, guess string) (bool, error) {
	guess = strings.TrimSpace(guess)
	if guess == "" {
		return false, party.Invalid("password", "required")
	}

	type outcome struct {
		solved bool
		change groupChange
	}
	res, err := state.Mutate(ctx, s.store, func(st *party.State) (outcome, error) {
		g := st.Group(id)
		if g == nil {
			return outcome{}, party.NotFound("group", id)
		}

		consolidate.Reconcile(st, consolidate.KindPasswordGame)
		cfg := st.PasswordGames[0]
		if !cfg.Active {
			return outcome{}, party.Conflict("password game is not active")
		}
		match := slices.ContainsFunc(cfg.Passwords, func(p string) bool {
			return strings.EqualFold(p, guess)
		})
		if !match {
			return outcome{}, nil
		}

		g.PasswordSolved = true
		if !slices.Contains(g.Progress.CompletedGames, party.PasswordGame) {
			g.Progress.CompletedGames = append(g.Progress.CompletedGames, party.PasswordGame)
		}
		return outcome{solved: true, change: groupChange{group: g.Clone(), board: s.boardUpdate(st)}}, nil
	})
	if err != nil {
		return false, err
	}

	if res.solved {
		s.logger.Info("password solved", "group_id", id)
		s.pushBoard(res.change.board)
	}
	return res.solved, nil
}
