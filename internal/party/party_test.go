package party

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCloneIsDeep(t *testing.T) {
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	gid := "g1"
	s := State{
		Guests: []Guest{{ID: "a", Name: "Ana", GroupID: &gid}},
		Groups: []Group{{
			ID:        "g1",
			Members:   []string{"a"},
			StartedAt: &now,
			Progress: GroupProgress{
				CompletedGames: []string{"quiz"},
				Penalties:      []PenaltyEvent{{Seconds: 10, Reason: "hint", At: now}},
			},
		}},
		PasswordGames: []PasswordGameConfig{{ID: PasswordGameID, Passwords: []string{"abc"}}},
		Game:          GameState{Started: true, StartedAt: &now},
	}

	c := s.Clone()
	c.Groups[0].Members[0] = "b"
	c.Groups[0].Progress.CompletedGames[0] = "other"
	*c.Groups[0].StartedAt = now.Add(time.Hour)
	*c.Guests[0].GroupID = "g2"
	c.PasswordGames[0].Passwords[0] = "zzz"
	*c.Game.StartedAt = now.Add(time.Hour)

	if s.Groups[0].Members[0] != "a" {
		t.Error("members slice shared")
	}
	if s.Groups[0].Progress.CompletedGames[0] != "quiz" {
		t.Error("completed games slice shared")
	}
	if !s.Groups[0].StartedAt.Equal(now) {
		t.Error("group startedAt shared")
	}
	if *s.Guests[0].GroupID != "g1" {
		t.Error("guest groupId shared")
	}
	if s.PasswordGames[0].Passwords[0] != "abc" {
		t.Error("passwords slice shared")
	}
	if !s.Game.StartedAt.Equal(now) {
		t.Error("game startedAt shared")
	}
}

func TestRemoveMember(t *testing.T) {
	g := Group{Members: []string{"a", "b"}}
	g.RemoveMember("a")
	if len(g.Members) != 1 || g.Members[0] != "b" {
		t.Fatalf("members = %v, want [b]", g.Members)
	}
	g.RemoveMember("missing")
	if len(g.Members) != 1 {
		t.Fatalf("members = %v, want unchanged", g.Members)
	}
}

func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"not found", NotFound("group", "x"), ErrNotFound},
		{"validation", Invalid("members", "full"), ErrValidation},
		{"conflict", Conflict("group %s finished", "x"), ErrConflict},
		{"persistence", &PersistenceError{Op: "write", Err: errors.New("disk full")}, ErrPersistence},
		{"wrapped", fmt.Errorf("assigning guest: %w", NotFound("guest", "y")), ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.target)
			}
		})
	}
}
