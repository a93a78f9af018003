// Package scoreboard ranks finished groups by effective elapsed time. It is
// pure: every call recomputes from the given groups and guests.
package scoreboard

import (
	"slices"
	"time"

	"github.com/playperu/partynight/internal/party"
)

type Entry struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Members        []string   `json:"members"`
	DurationMs     int64      `json:"durationMs"`
	RawDurationMs  int64      `json:"rawDurationMs"`
	PenaltySeconds int        `json:"penaltySeconds"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
}

// Pending is a group that cannot be ranked yet.
type Pending struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Members   []string   `json:"members"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// Payload is the body of a scoreboard-update message.
type Payload struct {
	Scoreboard    []Entry   `json:"scoreboard"`
	TotalFinished int       `json:"totalFinished"`
	TotalGroups   int       `json:"totalGroups"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// Compute returns the ranked entries for every group with a resolvable start
// (its own, else fallbackStart) and a finish time. Groups missing either are
// left out. Ordering is by durationMs, then finish time; remaining ties keep
// input order.
func Compute(groups []party.Group, guests []party.Guest, fallbackStart *time.Time) []Entry {
	names := guestNames(guests)

	entries := []Entry{}
	for _, g := range groups {
		start := resolveStart(g, fallbackStart)
		if start == nil || g.FinishedAt == nil {
			continue
		}
		finish := *g.FinishedAt

		raw := max(0, finish.Sub(*start).Milliseconds())
		penalty := max(0, g.Progress.PenaltySeconds)

		entries = append(entries, Entry{
			ID:             g.ID,
			Name:           g.Name,
			Members:        memberNames(g.Members, names),
			DurationMs:     raw + int64(penalty)*1000,
			RawDurationMs:  raw,
			PenaltySeconds: penalty,
			StartedAt:      start,
			FinishedAt:     &finish,
		})
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		if a.DurationMs != b.DurationMs {
			if a.DurationMs < b.DurationMs {
				return -1
			}
			return 1
		}
		return a.FinishedAt.Compare(*b.FinishedAt)
	})
	return entries
}

// InProgress lists the groups Compute leaves out, in input order.
func InProgress(groups []party.Group, guests []party.Guest, fallbackStart *time.Time) []Pending {
	names := guestNames(guests)

	out := []Pending{}
	for _, g := range groups {
		start := resolveStart(g, fallbackStart)
		if start != nil && g.FinishedAt != nil {
			continue
		}
		out = append(out, Pending{
			ID:        g.ID,
			Name:      g.Name,
			Members:   memberNames(g.Members, names),
			StartedAt: start,
		})
	}
	return out
}

// Build computes the wire payload.
func Build(groups []party.Group, guests []party.Guest, fallbackStart *time.Time, now time.Time) Payload {
	entries := Compute(groups, guests, fallbackStart)
	return Payload{
		Scoreboard:    entries,
		TotalFinished: len(entries),
		TotalGroups:   len(groups),
		GeneratedAt:   now.UTC(),
	}
}

func resolveStart(g party.Group, fallback *time.Time) *time.Time {
	var t time.Time
	switch {
	case g.StartedAt != nil:
		t = *g.StartedAt
	case fallback != nil:
		t = *fallback
	default:
		return nil
	}
	return &t
}

func guestNames(guests []party.Guest) map[string]string {
	names := make(map[string]string, len(guests))
	for _, g := range guests {
		names[g.ID] = g.Name
	}
	return names
}

// memberNames resolves guest ids to display names. Ids of deleted guests
// are skipped.
func memberNames(ids []string, names map[string]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			out = append(out, name)
		}
	}
	return out
}
