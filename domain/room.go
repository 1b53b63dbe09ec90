// Package domain contains core concepts of the SchoolSync chat client.
// This file defines Room entities and related invariants.
// No transport, storage, or UI logic should be added here.
package domain

import (
	"fmt"
	"sort"
	"strings"

	"schoolsync/errors"
)

// RoomKind discriminates class-wide rooms from one-to-one direct chats.
type RoomKind string

const (
	KindClass  RoomKind = "class"
	KindDirect RoomKind = "direct"
)

func ParseRoomKind(s string) (RoomKind, error) {
	switch RoomKind(s) {
	case KindClass, KindDirect:
		return RoomKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownRoomKind, s)
	}
}

// Room is a named conversation channel, either tied to a class or a
// one-to-one direct chat. Unread is owned by the roster: only the roster
// increments it, and only room activation resets it.
type Room struct {
	ID           string
	Name         string
	Kind         RoomKind
	OriginalID   string // backing class id, class rooms only
	TargetUserID string // peer user id, direct rooms only
	Unread       int
}

func (r Room) IsDirect() bool { return r.Kind == KindDirect }

// DirectRoomID derives the room id for a one-to-one chat from the two
// participant ids. The pair is sorted before joining so both parties
// resolve to the same room without server coordination.
func DirectRoomID(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return fmt.Sprintf("dm-%s-%s", ids[0], ids[1])
}

// SortRooms orders a room list for display: class rooms before direct
// rooms, alphabetical by name within each group.
func SortRooms(rooms []Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].Kind != rooms[j].Kind {
			return rooms[i].Kind == KindClass
		}
		return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
	})
}
