package consolidate

import (
	"strings"
	"time"
)

// Field merge strategies. Each one is applied pairwise across instances in
// storage order.

// unionFold concatenates lists keeping the first occurrence of each value,
// compared trimmed and lower-cased. The kept value is trimmed but keeps its
// original casing. Blank values are dropped.
func unionFold(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			key := strings.ToLower(v)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// NormalizeList applies the list merge rule to a single list, so edited
// configs are stored in canonical form.
func NormalizeList(list []string) []string {
	return unionFold(list)
}

func anyTrue(a, b bool) bool { return a || b }

// earliest returns the smaller non-nil time.
func earliest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return copyTime(b)
	case b == nil:
		return copyTime(a)
	case b.Before(*a):
		return copyTime(b)
	}
	return copyTime(a)
}

// latest returns the larger non-nil time.
func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return copyTime(b)
	case b == nil:
		return copyTime(a)
	case b.After(*a):
		return copyTime(b)
	}
	return copyTime(a)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
