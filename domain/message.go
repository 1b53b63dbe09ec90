package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const tempIDPrefix = "optimistic-"

// Message represents one chat entry as exchanged with the backend.
// JSON tags follow the SchoolSync wire format, timestamps are RFC 3339.
type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`

	// EchoedTempID is set by the server echo and points back at the
	// client-supplied temporary id of the optimistic copy.
	EchoedTempID string `json:"echoedTempId,omitempty"`

	// Optimistic marks a locally inserted entry awaiting server
	// confirmation. Failed marks an optimistic entry whose echo never
	// arrived within the configured timeout.
	Optimistic bool `json:"-"`
	Failed     bool `json:"-"`
}

// NewTempID generates a unique temporary id for an optimistic message.
func NewTempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was locally generated by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// NewOptimisticMessage builds the provisional entry shown to the sender
// before the server confirms it.
func NewOptimisticMessage(room Room, session Session, content string) Message {
	return Message{
		ID:         NewTempID(),
		RoomID:     room.ID,
		SenderID:   session.UserID,
		SenderName: session.DisplayName(),
		Content:    content,
		Timestamp:  time.Now().UTC(),
		Optimistic: true,
	}
}

// SortMessages orders a message list by timestamp ascending. The sort is
// stable so entries sharing a timestamp keep their arrival order.
func SortMessages(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
}

// OutgoingMessage is the payload transmitted over the channel when the
// user sends a message.
type OutgoingMessage struct {
	Content  string `json:"content"`
	RoomID   string `json:"roomId"`
	RoomType string `json:"roomType"`
	ClassID  string `json:"classId,omitempty"`
	TempID   string `json:"tempId,omitempty"`
}

// NewOutgoingMessage shapes the wire payload for a room. Class rooms
// carry their backing class id so the server can fan out to members.
func NewOutgoingMessage(room Room, content, tempID string) OutgoingMessage {
	out := OutgoingMessage{
		Content:  content,
		RoomID:   room.ID,
		RoomType: string(room.Kind),
		TempID:   tempID,
	}
	if room.Kind == KindClass {
		out.ClassID = room.OriginalID
	}
	return out
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format(time.TimeOnly), m.SenderName, m.Content)
}
