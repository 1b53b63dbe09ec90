//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_chat.go -package=mocks
package chat

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"schoolsync/domain"
	"schoolsync/errors"
)

// UnreadSink receives increments for messages targeting inactive rooms.
type UnreadSink interface {
	IncrementUnread(roomID string)
}

// Channel is the outbound side of the real-time connection the store
// needs: send permission and the frame itself.
type Channel interface {
	Connected() bool
	SendMessage(out domain.OutgoingMessage) error
}

// Store owns the in-memory message list of the active room, merging
// server-confirmed messages with locally originated optimistic ones.
// The list is discarded and refetched on room switch, never merged
// across rooms.
type Store struct {
	mu          sync.Mutex
	log         *slog.Logger
	session     domain.Session
	unread      UnreadSink
	window      time.Duration // fallback correlation window
	echoTimeout time.Duration // optimistic entries older than this are flagged failed

	roomID   string
	messages []domain.Message
}

func NewStore(session domain.Session, unread UnreadSink, window, echoTimeout time.Duration, log *slog.Logger) *Store {
	return &Store{
		log:         log,
		session:     session,
		unread:      unread,
		window:      window,
		echoTimeout: echoTimeout,
	}
}

// ActiveRoom returns the id of the room whose messages are loaded,
// empty when none is selected.
func (s *Store) ActiveRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// SetActiveRoom switches the store to a new room, discarding the
// previous list.
func (s *Store) SetActiveRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
	s.messages = nil
}

// Clear drops both the active room and its messages.
func (s *Store) Clear() {
	s.SetActiveRoom("")
}

// Messages returns a snapshot of the active room's list, sorted by
// timestamp ascending.
func (s *Store) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len reports the number of loaded messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// ReplaceHistory installs a fetched history, but only if roomID still
// matches the active room. A fetch that resolves after a room switch is
// stale and must be discarded, so callers tag each fetch with its
// target room. Reports whether the history was applied.
func (s *Store) ReplaceHistory(roomID string, history []domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID != roomID {
		s.log.Debug("Discarding stale history fetch", "fetched", roomID, "active", s.roomID)
		return false
	}
	replaced := make([]domain.Message, len(history))
	copy(replaced, history)
	for i := range replaced {
		replaced[i].SenderName = s.session.ResolveSenderName(replaced[i])
	}
	domain.SortMessages(replaced)
	s.messages = replaced
	return true
}

// ApplyIncoming processes one server-pushed message, regardless of its
// target room. Messages for inactive rooms only bump that room's unread
// counter. Messages for the active room go through the reconciliation
// ladder:
//  1. An echoed temp id replaces the matching optimistic entry.
//  2. Without a correlation id, a same-sender same-content optimistic
//     entry within the correlation window is replaced. Fallback only;
//     the server should echo temp ids.
//  3. An already known final id is discarded as a duplicate.
//  4. Anything else is appended.
//
// The list is re-sorted by timestamp after every mutation. The returned
// message is the confirmed entry when one was applied to the active
// room, for downstream sinks.
func (s *Store) ApplyIncoming(msg domain.Message) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomID == "" || msg.RoomID != s.roomID {
		if s.unread != nil {
			s.unread.IncrementUnread(msg.RoomID)
		}
		return domain.Message{}, false
	}

	msg.SenderName = s.session.ResolveSenderName(msg)
	msg.Optimistic = false

	defer func() { domain.SortMessages(s.messages) }()

	if msg.EchoedTempID != "" {
		for i := range s.messages {
			if s.messages[i].ID == msg.EchoedTempID {
				s.messages[i] = msg
				return msg, true
			}
		}
		if s.containsFinalID(msg.ID) {
			return domain.Message{}, false
		}
		s.messages = append(s.messages, msg)
		return msg, true
	}

	// Fallback correlation: not every send path attaches a temp id.
	if s.session.IsSelf(msg.SenderID) {
		for i := range s.messages {
			candidate := s.messages[i]
			if candidate.Optimistic &&
				candidate.SenderID == msg.SenderID &&
				candidate.Content == msg.Content &&
				absDuration(candidate.Timestamp.Sub(msg.Timestamp)) < s.window {
				s.messages[i] = msg
				return msg, true
			}
		}
	}

	if s.containsFinalID(msg.ID) {
		s.log.Debug("Discarding duplicate message", "id", msg.ID)
		return domain.Message{}, false
	}

	s.messages = append(s.messages, msg)
	return msg, true
}

// Send validates, optimistically inserts, and transmits a composed
// message. Disconnected or empty sends are rejected without touching
// the list; the UI disables the send action under those conditions
// rather than relying on this error.
func (s *Store) Send(room domain.Room, channel Channel, text string) (domain.Message, error) {
	content := trimContent(text)
	if content == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}
	if room.ID == "" {
		return domain.Message{}, errors.ErrNoActiveRoom
	}
	if !channel.Connected() {
		return domain.Message{}, errors.ErrNotConnected
	}

	optimistic := domain.NewOptimisticMessage(room, s.session, content)

	s.mu.Lock()
	s.messages = append(s.messages, optimistic)
	domain.SortMessages(s.messages)
	s.mu.Unlock()

	if err := channel.SendMessage(domain.NewOutgoingMessage(room, content, optimistic.ID)); err != nil {
		// The entry stays visible but flagged, the send never reached
		// the server.
		s.markFailed(optimistic.ID)
		return optimistic, err
	}
	return optimistic, nil
}

// SweepFailed flags optimistic entries whose echo never arrived within
// the echo timeout. Returns how many entries were newly flagged.
func (s *Store) SweepFailed(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	flagged := 0
	for i := range s.messages {
		m := &s.messages[i]
		if m.Optimistic && !m.Failed && now.Sub(m.Timestamp) > s.echoTimeout {
			m.Failed = true
			flagged++
		}
	}
	if flagged > 0 {
		s.log.Warn("Optimistic messages never confirmed", "count", flagged)
	}
	return flagged
}

func (s *Store) markFailed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Failed = true
			return
		}
	}
}

// containsFinalID reports whether a non-optimistic entry with this id
// is already present. Optimistic placeholders do not count: they are
// still awaiting replacement.
func (s *Store) containsFinalID(id string) bool {
	for _, m := range s.messages {
		if m.ID == id && !domain.IsTempID(m.ID) {
			return true
		}
	}
	return false
}

func trimContent(text string) string {
	return strings.TrimSpace(text)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
