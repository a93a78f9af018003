package game

import (
	"context"
	"time"

	"github.com/playperu/partynight/internal/consolidate"
	"github.com/playperu/partynight/internal/party"
	"github.com/playperu/partynight/internal/state"
)

// ConfigInput replaces the editable fields of a singleton config. Items are
// passwords or statements depending on the kind.
type ConfigInput struct {
	Title  string   `json:"title"`
	Items  []string `json:"items"`
	Active bool     `json:"active"`
}

// PasswordGame returns the canonical password-game config, merging
// duplicates first.
func (s *Service) PasswordGame(ctx context.Context) (party.PasswordGameConfig, error) {
	return consolidate.PasswordGame(ctx, s.store)
}

func (s *Service) StatementPack(ctx context.Context) (party.StatementPackConfig, error) {
	return consolidate.StatementPack(ctx, s.store)
}

func (s *Service) PutPasswordGame(ctx context.Context, in ConfigInput) (party.PasswordGameConfig, error) {
	return state.Mutate(ctx, s.store, func(st *party.State) (party.PasswordGameConfig, error) {
		consolidate.Reconcile(st, consolidate.KindPasswordGame)
		c := &st.PasswordGames[0]

		now := s.now()
		c.Title = in.Title
		c.Passwords = consolidate.NormalizeList(in.Items)
		c.StartedAt, c.EndedAt = transition(c.Active, in.Active, c.StartedAt, c.EndedAt, now)
		c.Active = in.Active
		c.UpdatedAt = now
		return c.Clone(), nil
	})
}

func (s *Service) PutStatementPack(ctx context.Context, in ConfigInput) (party.StatementPackConfig, error) {
	return state.Mutate(ctx, s.store, func(st *party.State) (party.StatementPackConfig, error) {
		consolidate.Reconcile(st, consolidate.KindStatementPack)
		c := &st.StatementPacks[0]

		now := s.now()
		c.Title = in.Title
		c.Statements = consolidate.NormalizeList(in.Items)
		c.StartedAt, c.EndedAt = transition(c.Active, in.Active, c.StartedAt, c.EndedAt, now)
		c.Active = in.Active
		c.UpdatedAt = now
		return c.Clone(), nil
	})
}

// Reconcile runs an explicit consolidation pass and reports whether the
// stored records changed.
func (s *Service) Reconcile(ctx context.Context, kind consolidate.Kind) (bool, error) {
	changed, err := consolidate.Ensure(ctx, s.store, kind)
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.Info("config reconciled", "kind", kind)
	}
	return changed, nil
}

// ReconcileAll consolidates every singleton kind, for use at startup.
func (s *Service) ReconcileAll(ctx context.Context) error {
	changed, err := consolidate.All(ctx, s.store)
	if err != nil {
		return err
	}
	for _, k := range changed {
		s.logger.Info("config reconciled", "kind", k)
	}
	return nil
}

// transition stamps startedAt when a config is activated for the first time
// and endedAt whenever an active config is switched off.
func transition(was, is bool, started, ended, now *time.Time) (*time.Time, *time.Time) {
	switch {
	case is && !was && started == nil:
		started = ptr(*now)
	case was && !is:
		ended = ptr(*now)
	}
	return started, ended
}
