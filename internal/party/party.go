// Package party defines the application state graph shared by every request:
// guests, groups, the singleton game configs and the global game flag.
// It has no external dependencies.
package party

import (
	"slices"
	"time"
)

// GroupCapacity is the maximum number of guests in one group.
const GroupCapacity = 2

// Well-known ids used when a singleton config has to be synthesized.
const (
	PasswordGameID  = "password-game"
	StatementPackID = "statement-pack"
)

// PasswordGame is the completed-game id recorded when a group solves the password.
const PasswordGame = "password"

// State is the single aggregate root. All reads and writes go through the
// state store; nothing else holds a reference to the live value.
type State struct {
	// Revision counts committed mutations. It orders snapshots taken from
	// different commits.
	Revision       uint64                `json:"revision"`
	Guests         []Guest               `json:"guests"`
	Groups         []Group               `json:"groups"`
	PasswordGames  []PasswordGameConfig  `json:"passwordGames"`
	StatementPacks []StatementPackConfig `json:"statementPacks"`
	Game           GameState             `json:"game"`
}

type Guest struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	ClueOne string  `json:"clueOne"`
	ClueTwo string  `json:"clueTwo"`
	GroupID *string `json:"groupId,omitempty"`
}

type Group struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Members        []string      `json:"members"`
	Progress       GroupProgress `json:"progress"`
	StartedAt      *time.Time    `json:"startedAt,omitempty"`
	FinishedAt     *time.Time    `json:"finishedAt,omitempty"`
	PasswordSolved bool          `json:"passwordSolved"`
}

type GroupProgress struct {
	CompletedGames []string       `json:"completedGames"`
	PenaltySeconds int            `json:"penaltySeconds"`
	Penalties      []PenaltyEvent `json:"penalties"`
}

// PenaltyEvent justifies part of a group's running penalty total.
// Events are append-only.
type PenaltyEvent struct {
	Seconds int       `json:"seconds"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

type PasswordGameConfig struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Passwords []string   `json:"passwords"`
	Active    bool       `json:"active"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type StatementPackConfig struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Statements []string   `json:"statements"`
	Active     bool       `json:"active"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

type GameState struct {
	Started         bool       `json:"started"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CluesUnlockedAt *time.Time `json:"cluesUnlockedAt,omitempty"`
}

// Guest returns a pointer into s.Guests, or nil.
func (s *State) Guest(id string) *Guest {
	for i := range s.Guests {
		if s.Guests[i].ID == id {
			return &s.Guests[i]
		}
	}
	return nil
}

// Group returns a pointer into s.Groups, or nil.
func (s *State) Group(id string) *Group {
	for i := range s.Groups {
		if s.Groups[i].ID == id {
			return &s.Groups[i]
		}
	}
	return nil
}

// HasMember reports whether guestID is in the group's membership list.
func (g *Group) HasMember(guestID string) bool {
	return slices.Contains(g.Members, guestID)
}

// RemoveMember drops guestID from the membership list if present.
func (g *Group) RemoveMember(guestID string) {
	g.Members = slices.DeleteFunc(g.Members, func(id string) bool { return id == guestID })
}

// Clone returns a deep copy that shares no slices or pointers with s.
// Slices in the copy are never nil.
func (s State) Clone() State {
	out := State{
		Revision:       s.Revision,
		Guests:         make([]Guest, len(s.Guests)),
		Groups:         make([]Group, len(s.Groups)),
		PasswordGames:  make([]PasswordGameConfig, len(s.PasswordGames)),
		StatementPacks: make([]StatementPackConfig, len(s.StatementPacks)),
		Game:           s.Game.Clone(),
	}
	for i, g := range s.Guests {
		out.Guests[i] = g.Clone()
	}
	for i, g := range s.Groups {
		out.Groups[i] = g.Clone()
	}
	for i, c := range s.PasswordGames {
		out.PasswordGames[i] = c.Clone()
	}
	for i, c := range s.StatementPacks {
		out.StatementPacks[i] = c.Clone()
	}
	return out
}

func (g Guest) Clone() Guest {
	g.GroupID = cloneString(g.GroupID)
	return g
}

func (g Group) Clone() Group {
	g.Members = append([]string{}, g.Members...)
	g.Progress.CompletedGames = append([]string{}, g.Progress.CompletedGames...)
	g.Progress.Penalties = append([]PenaltyEvent{}, g.Progress.Penalties...)
	g.StartedAt = cloneTime(g.StartedAt)
	g.FinishedAt = cloneTime(g.FinishedAt)
	return g
}

func (c PasswordGameConfig) Clone() PasswordGameConfig {
	c.Passwords = append([]string{}, c.Passwords...)
	c.StartedAt = cloneTime(c.StartedAt)
	c.EndedAt = cloneTime(c.EndedAt)
	c.UpdatedAt = cloneTime(c.UpdatedAt)
	return c
}

func (c StatementPackConfig) Clone() StatementPackConfig {
	c.Statements = append([]string{}, c.Statements...)
	c.StartedAt = cloneTime(c.StartedAt)
	c.EndedAt = cloneTime(c.EndedAt)
	c.UpdatedAt = cloneTime(c.UpdatedAt)
	return c
}

func (g GameState) Clone() GameState {
	g.StartedAt = cloneTime(g.StartedAt)
	g.CluesUnlockedAt = cloneTime(g.CluesUnlockedAt)
	return g
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
