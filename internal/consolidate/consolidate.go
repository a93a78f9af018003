// Package consolidate merges duplicated singleton configs into one canonical
// record. Storage may hold several password-game or statement-pack configs
// (left behind by concurrent creates); Reconcile folds them into exactly one
// and is idempotent.
package consolidate

import (
	"context"
	"fmt"

	"github.com/playperu/partynight/internal/party"
	"github.com/playperu/partynight/internal/state"
)

type Kind string

const (
	KindPasswordGame  Kind = "password-game"
	KindStatementPack Kind = "statement-pack"
)

// ParseKind accepts the kind names used in URLs.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindPasswordGame, KindStatementPack:
		return k, nil
	}
	return "", party.NotFound("config kind", s)
}

// Reconcile replaces the stored collection of the given kind with a single
// merged record. It reports whether the state changed. It must run inside a
// state mutation.
func Reconcile(st *party.State, kind Kind) bool {
	switch kind {
	case KindPasswordGame:
		if len(st.PasswordGames) == 1 && canonicalPasswords(st.PasswordGames[0]) {
			return false
		}
		st.PasswordGames = []party.PasswordGameConfig{MergePasswordGames(st.PasswordGames)}
		return true
	case KindStatementPack:
		if len(st.StatementPacks) == 1 && canonicalStatements(st.StatementPacks[0]) {
			return false
		}
		st.StatementPacks = []party.StatementPackConfig{MergeStatementPacks(st.StatementPacks)}
		return true
	}
	return false
}

// MergePasswordGames folds any number of instances into one. The first
// instance donates id and title; with no instances a default record with the
// well-known id is returned.
func MergePasswordGames(in []party.PasswordGameConfig) party.PasswordGameConfig {
	if len(in) == 0 {
		return party.PasswordGameConfig{ID: party.PasswordGameID, Passwords: []string{}}
	}

	out := party.PasswordGameConfig{ID: in[0].ID, Title: in[0].Title}
	lists := make([][]string, 0, len(in))
	for _, c := range in {
		lists = append(lists, c.Passwords)
		out.Active = anyTrue(out.Active, c.Active)
		out.StartedAt = earliest(out.StartedAt, c.StartedAt)
		out.EndedAt = latest(out.EndedAt, c.EndedAt)
		out.UpdatedAt = latest(out.UpdatedAt, c.UpdatedAt)
	}
	out.Passwords = unionFold(lists...)
	return out
}

// MergeStatementPacks is MergePasswordGames for statement packs.
func MergeStatementPacks(in []party.StatementPackConfig) party.StatementPackConfig {
	if len(in) == 0 {
		return party.StatementPackConfig{ID: party.StatementPackID, Statements: []string{}}
	}

	out := party.StatementPackConfig{ID: in[0].ID, Title: in[0].Title}
	lists := make([][]string, 0, len(in))
	for _, c := range in {
		lists = append(lists, c.Statements)
		out.Active = anyTrue(out.Active, c.Active)
		out.StartedAt = earliest(out.StartedAt, c.StartedAt)
		out.EndedAt = latest(out.EndedAt, c.EndedAt)
		out.UpdatedAt = latest(out.UpdatedAt, c.UpdatedAt)
	}
	out.Statements = unionFold(lists...)
	return out
}

// PasswordGame reconciles the password-game configs and returns the
// canonical record. Callers never see "not found" for a singleton.
func PasswordGame(ctx context.Context, s *state.Store) (party.PasswordGameConfig, error) {
	cfg, err := ensure(ctx, s, []Kind{KindPasswordGame}, func(st *party.State, _ []Kind) party.PasswordGameConfig {
		return st.PasswordGames[0].Clone()
	})
	if err != nil {
		return party.PasswordGameConfig{}, fmt.Errorf("reconciling password game: %w", err)
	}
	return cfg, nil
}

// StatementPack reconciles the statement-pack configs and returns the
// canonical record.
func StatementPack(ctx context.Context, s *state.Store) (party.StatementPackConfig, error) {
	cfg, err := ensure(ctx, s, []Kind{KindStatementPack}, func(st *party.State, _ []Kind) party.StatementPackConfig {
		return st.StatementPacks[0].Clone()
	})
	if err != nil {
		return party.StatementPackConfig{}, fmt.Errorf("reconciling statement pack: %w", err)
	}
	return cfg, nil
}

// Ensure reconciles one kind through the store and reports whether the
// stored records changed.
func Ensure(ctx context.Context, s *state.Store, kind Kind) (bool, error) {
	return ensure(ctx, s, []Kind{kind}, func(_ *party.State, changed []Kind) bool {
		return len(changed) > 0
	})
}

// All reconciles every singleton kind and reports which ones changed.
func All(ctx context.Context, s *state.Store) ([]Kind, error) {
	return ensure(ctx, s, []Kind{KindPasswordGame, KindStatementPack}, func(_ *party.State, changed []Kind) []Kind {
		return changed
	})
}

// ensure reconciles kinds on a loaded copy first and only goes through
// Mutate when that copy had to change. Canonical state is read without a
// revision bump or a write.
func ensure[T any](ctx context.Context, s *state.Store, kinds []Kind, pick func(*party.State, []Kind) T) (T, error) {
	st, err := s.Load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(reconcileKinds(&st, kinds)) == 0 {
		return pick(&st, nil), nil
	}
	return state.Mutate(ctx, s, func(st *party.State) (T, error) {
		return pick(st, reconcileKinds(st, kinds)), nil
	})
}

func reconcileKinds(st *party.State, kinds []Kind) []Kind {
	var changed []Kind
	for _, k := range kinds {
		if Reconcile(st, k) {
			changed = append(changed, k)
		}
	}
	return changed
}

func canonicalPasswords(c party.PasswordGameConfig) bool {
	return c.ID != "" && c.Passwords != nil && equalStrings(c.Passwords, unionFold(c.Passwords))
}

func canonicalStatements(c party.StatementPackConfig) bool {
	return c.ID != "" && c.Statements != nil && equalStrings(c.Statements, unionFold(c.Statements))
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
