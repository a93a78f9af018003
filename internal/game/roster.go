package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/playperu/partynight/internal/party"
	"github.com/playperu/partynight/internal/state"
)

type GuestInput struct {
	Name    string `json:"name"`
	ClueOne string `json:"clueOne"`
	ClueTwo string `json:"clueTwo"`
}

func (s *Service) ListGuests(ctx context.Context) ([]party.Guest, error) {
	st, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	return st.Guests, nil
}

func (s *Service) CreateGuest(ctx context.Context, in GuestInput) (party.Guest, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return party.Guest{}, party.Invalid("name", "required")
	}

	guest := party.Guest{
		ID:      uuid.NewString(),
		Name:    name,
		ClueOne: strings.TrimSpace(in.ClueOne),
		ClueTwo: strings.TrimSpace(in.ClueTwo),
	}
	err := s.store.Update(ctx, func(st *party.State) error {
		st.Guests = append(st.Guests, guest)
		return nil
	})
	if err != nil {
		return party.Guest{}, err
	}
	return guest, nil
}

// DeleteGuest removes a guest and its membership.
func (s *Service) DeleteGuest(ctx context.Context, id string) error {
	board, err := state.Mutate(ctx, s.store, func(st *party.State) (boardUpdate, error) {
		idx := indexOfGuest(st, id)
		if idx < 0 {
			return boardUpdate{}, party.NotFound("guest", id)
		}
		detach(st, id)
		st.Guests = append(st.Guests[:idx], st.Guests[idx+1:]...)
		return s.boardUpdate(st), nil
	})
	if err != nil {
		return err
	}

	s.pushBoard(board)
	return nil
}

func (s *Service) ListGroups(ctx context.Context) ([]party.Group, error) {
	st, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	return st.Groups, nil
}

func (s *Service) CreateGroup(ctx context.Context, name string) (party.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return party.Group{}, party.Invalid("name", "required")
	}

	group := party.Group{
		ID:       uuid.NewString(),
		Name:     name,
		Members:  []string{},
		Progress: party.GroupProgress{CompletedGames: []string{}, Penalties: []party.PenaltyEvent{}},
	}
	board, err := state.Mutate(ctx, s.store, func(st *party.State) (boardUpdate, error) {
		st.Groups = append(st.Groups, group.Clone())
		return s.boardUpdate(st), nil
	})
	if err != nil {
		return party.Group{}, err
	}

	s.pushBoard(board)
	return group, nil
}

// DeleteGroup removes a group and clears its members' back-references.
func (s *Service) DeleteGroup(ctx context.Context, id string) error {
	board, err := state.Mutate(ctx, s.store, func(st *party.State) (boardUpdate, error) {
		idx := indexOfGroup(st, id)
		if idx < 0 {
			return boardUpdate{}, party.NotFound("group", id)
		}
		for _, m := range st.Groups[idx].Members {
			if g := st.Guest(m); g != nil {
				g.GroupID = nil
			}
		}
		st.Groups = append(st.Groups[:idx], st.Groups[idx+1:]...)
		return s.boardUpdate(st), nil
	})
	if err != nil {
		return err
	}

	s.pushBoard(board)
	return nil
}

// AssignGuest puts a guest into slot 0 or 1 of a group. The guest is first
// detached from any group it belongs to; a guest already in the slot is
// displaced. All references are checked before anything changes.
func (s *Service) AssignGuest(ctx context.Context, groupID string, slot int, guestID string) (party.Group, error) {
	if slot < 0 || slot >= party.GroupCapacity {
		return party.Group{}, party.Invalid("slot", fmt.Sprintf("must be between 0 and %d", party.GroupCapacity-1))
	}

	res, err := state.Mutate(ctx, s.store, func(st *party.State) (groupChange, error) {
		if st.Group(groupID) == nil {
			return groupChange{}, party.NotFound("group", groupID)
		}
		guest := st.Guest(guestID)
		if guest == nil {
			return groupChange{}, party.NotFound("guest", guestID)
		}

		detach(st, guestID)

		g := st.Group(groupID)
		if slot < len(g.Members) {
			if displaced := st.Guest(g.Members[slot]); displaced != nil {
				displaced.GroupID = nil
			}
			g.Members[slot] = guestID
		} else {
			g.Members = append(g.Members, guestID)
		}
		guest.GroupID = ptr(g.ID)

		return groupChange{group: g.Clone(), board: s.boardUpdate(st)}, nil
	})
	if err != nil {
		return party.Group{}, err
	}

	s.pushBoard(res.board)
	return res.group, nil
}

// AddMember appends a guest to the first free slot, failing if the group is
// full.
func (s *Service) AddMember(ctx context.Context, groupID, guestID string) (party.Group, error) {
	res, err := state.Mutate(ctx, s.store, func(st *party.State) (groupChange, error) {
		g := st.Group(groupID)
		if g == nil {
			return groupChange{}, party.NotFound("group", groupID)
		}
		guest := st.Guest(guestID)
		if guest == nil {
			return groupChange{}, party.NotFound("guest", guestID)
		}
		if g.HasMember(guestID) {
			return groupChange{group: g.Clone(), board: s.boardUpdate(st)}, nil
		}
		if len(g.Members) >= party.GroupCapacity {
			return groupChange{}, party.Invalid("members", fmt.Sprintf("group already has %d members", party.GroupCapacity))
		}

		detach(st, guestID)
		g.Members = append(g.Members, guestID)
		guest.GroupID = ptr(g.ID)

		return groupChange{group: g.Clone(), board: s.boardUpdate(st)}, nil
	})
	if err != nil {
		return party.Group{}, err
	}

	s.pushBoard(res.board)
	return res.group, nil
}

func (s *Service) RemoveMember(ctx context.Context, groupID, guestID string) (party.Group, error) {
	res, err := state.Mutate(ctx, s.store, func(st *party.State) (groupChange, error) {
		g := st.Group(groupID)
		if g == nil {
			return groupChange{}, party.NotFound("group", groupID)
		}
		if !g.HasMember(guestID) {
			return groupChange{}, party.NotFound("member", guestID)
		}

		g.RemoveMember(guestID)
		if guest := st.Guest(guestID); guest != nil {
			guest.GroupID = nil
		}
		return groupChange{group: g.Clone(), board: s.boardUpdate(st)}, nil
	})
	if err != nil {
		return party.Group{}, err
	}

	s.pushBoard(res.board)
	return res.group, nil
}

// groupChange is what a group mutation hands back: the updated group and the
// scoreboard to broadcast.
type groupChange struct {
	group party.Group
	board boardUpdate
}

// detach removes guestID from every group's membership and clears the
// guest's back-reference.
func detach(st *party.State, guestID string) {
	for i := range st.Groups {
		st.Groups[i].RemoveMember(guestID)
	}
	if g := st.Guest(guestID); g != nil {
		g.GroupID = nil
	}
}

func indexOfGuest(st *party.State, id string) int {
	for i := range st.Guests {
		if st.Guests[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfGroup(st *party.State, id string) int {
	for i := range st.Groups {
		if st.Groups[i].ID == id {
			return i
		}
	}
	return -1
}

func ptr[T any](v T) *T { return &v }
