package chat

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"schoolsync/domain"
)

// Roster maintains the set of available rooms and their unread
// counters. It is the only component allowed to increment a counter;
// counters reset only when a room becomes active.
type Roster struct {
	mu    sync.RWMutex
	rooms []domain.Room
}

func NewRoster() *Roster {
	return &Roster{}
}

// Replace swaps in a freshly fetched room list, kept in display order.
// Unread counters restart at zero: unread state is client-side only.
func (r *Roster) Replace(rooms []domain.Room) {
	sorted := make([]domain.Room, len(rooms))
	copy(sorted, rooms)
	domain.SortRooms(sorted)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = sorted
}

// Rooms returns a snapshot of the list in display order.
func (r *Roster) Rooms() []domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Room, len(r.rooms))
	copy(out, r.rooms)
	return out
}

// Get looks a room up by id.
func (r *Roster) Get(roomID string) (domain.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Find(r.rooms, func(room domain.Room) bool {
		return room.ID == roomID
	})
}

// AddRoom inserts a newly discovered room unless one with the same id
// already exists, keeping the list ordered. Reports whether the room
// was added.
func (r *Roster) AddRoom(room domain.Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lo.ContainsBy(r.rooms, func(existing domain.Room) bool {
		return existing.ID == room.ID
	}) {
		return false
	}
	r.rooms = append(r.rooms, room)
	domain.SortRooms(r.rooms)
	return true
}

// IncrementUnread bumps the counter of a room that received a message
// while inactive. Unknown rooms are ignored: the list refresh will pick
// them up.
func (r *Roster) IncrementUnread(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rooms {
		if r.rooms[i].ID == roomID {
			r.rooms[i].Unread++
			return
		}
	}
}

// ResetUnread zeroes the counter of a room that became active.
func (r *Roster) ResetUnread(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rooms {
		if r.rooms[i].ID == roomID {
			r.rooms[i].Unread = 0
			return
		}
	}
}

// FormatUnread renders a counter for display, truncated at 99+.
func FormatUnread(count int) string {
	if count > 99 {
		return "99+"
	}
	return fmt.Sprintf("%d", count)
}
