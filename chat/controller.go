package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"schoolsync/domain"
	"schoolsync/errors"
	"schoolsync/restapi"
)

// RoomChannel is the slice of the connection manager the controller
// drives: membership signals plus outbound messages. The controller
// never creates or destroys the connection itself.
type RoomChannel interface {
	Channel
	JoinRoom(roomID string) error
	LeaveRoom(roomID string) error
}

// MessageSink receives every server-confirmed message for side effects
// such as the local archive or the search index. Best effort: a failing
// sink is logged and never blocks message handling.
type MessageSink interface {
	Consume(ctx context.Context, msg domain.Message) error
}

// Controller tracks the active room and wires inbound traffic to the
// store (active room) or the roster (inactive rooms). It is the room
// membership tracker: room switches emit leave/join signals and trigger
// the history fetch.
type Controller struct {
	log     *slog.Logger
	session domain.Session
	channel RoomChannel
	rest    restapi.IClient
	store   *Store
	roster  *Roster

	mu      sync.Mutex
	current domain.Room
	hasRoom bool
	loading bool
	lastErr string
	sinks   []MessageSink
}

func NewController(session domain.Session, channel RoomChannel, rest restapi.IClient,
	store *Store, roster *Roster, log *slog.Logger) *Controller {
	return &Controller{
		log:     log,
		session: session,
		channel: channel,
		rest:    rest,
		store:   store,
		roster:  roster,
	}
}

// AddSinks registers consumers of confirmed messages.
func (c *Controller) AddSinks(sinks ...MessageSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, sinks...)
}

// RefreshRooms fetches the room list from the backend and installs it
// in the roster. No automatic retry: failures surface in the panel and
// the user retries manually.
func (c *Controller) RefreshRooms(ctx context.Context) error {
	rooms, err := c.rest.Rooms(ctx)
	if err != nil {
		c.setError(fmt.Sprintf("loading chat list: %v", err))
		return err
	}
	c.roster.Replace(rooms)
	return nil
}

// SelectRoom makes room the active one. Selecting the already active
// room is a no-op unless it has zero loaded messages and no fetch in
// flight (a visible retry). An actual switch leaves the previous room,
// joins the new one when connected, clears the list, resets the unread
// counter, and fetches history. Switching while disconnected only
// updates local selection: membership is re-issued once the channel
// reconnects.
func (c *Controller) SelectRoom(ctx context.Context, room domain.Room) {
	c.mu.Lock()
	if c.hasRoom && c.current.ID == room.ID && (c.store.Len() > 0 || c.loading) {
		c.mu.Unlock()
		return
	}
	prev, hadPrev := c.current, c.hasRoom
	c.current = room
	c.hasRoom = true
	c.loading = true
	c.lastErr = ""
	c.mu.Unlock()

	if c.channel.Connected() {
		if hadPrev && prev.ID != room.ID {
			if err := c.channel.LeaveRoom(prev.ID); err != nil {
				c.log.Warn("Leave signal failed", "room", prev.ID, "error", err)
			}
		}
		if err := c.channel.JoinRoom(room.ID); err != nil {
			c.log.Warn("Join signal failed", "room", room.ID, "error", err)
		}
	} else {
		c.log.Debug("Room selected while disconnected, join deferred", "room", room.ID)
	}

	c.store.SetActiveRoom(room.ID)
	c.roster.ResetUnread(room.ID)
	go c.loadHistory(ctx, room.ID)
}

// loadHistory resolves the history fetch tagged with its target room.
// A fetch that lands after the active room changed is discarded: the
// newer selection owns the list.
func (c *Controller) loadHistory(ctx context.Context, roomID string) {
	messages, err := c.rest.Messages(ctx, roomID)

	c.mu.Lock()
	if !c.hasRoom || c.current.ID != roomID {
		c.mu.Unlock()
		c.log.Debug("Dropping stale history result", "room", roomID)
		return
	}
	c.loading = false
	if err != nil {
		c.lastErr = fmt.Sprintf("loading messages: %v", err)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.store.ReplaceHistory(roomID, messages)
}

// HandleIncoming processes one server-pushed message: resolve the
// sender name, reconcile it into the active list or bump the unread
// counter, then feed the confirmed copy to the sinks.
func (c *Controller) HandleIncoming(msg domain.Message) {
	msg.SenderName = c.session.ResolveSenderName(msg)
	c.store.ApplyIncoming(msg)
	c.dispatch(msg)
}

func (c *Controller) dispatch(msg domain.Message) {
	c.mu.Lock()
	sinks := c.sinks
	c.mu.Unlock()
	for _, sink := range sinks {
		if err := sink.Consume(context.Background(), msg); err != nil {
			c.log.Warn("Message sink failed", "error", err)
		}
	}
}

// Send transmits a composed message for the active room, inserting the
// optimistic entry first.
func (c *Controller) Send(text string) (domain.Message, error) {
	c.mu.Lock()
	room, hasRoom := c.current, c.hasRoom
	c.mu.Unlock()
	if !hasRoom {
		return domain.Message{}, errors.ErrNoActiveRoom
	}
	return c.store.Send(room, c.channel, text)
}

// StartDirectChat resolves an email or student code to a user, derives
// the deterministic direct-room id, inserts the room, and activates it.
func (c *Controller) StartDirectChat(ctx context.Context, identifier string) (domain.Room, error) {
	user, err := c.rest.FindUserByIdentifier(ctx, identifier)
	if err != nil {
		c.setError(err.Error())
		return domain.Room{}, err
	}
	if c.session.IsSelf(user.ID) {
		return domain.Room{}, errors.ErrSelfDirectChat
	}

	room := domain.Room{
		ID:           domain.DirectRoomID(c.session.UserID, user.ID),
		Name:         user.DisplayName(),
		Kind:         domain.KindDirect,
		TargetUserID: user.ID,
	}
	c.roster.AddRoom(room)
	c.SelectRoom(ctx, room)
	return room, nil
}

// OnConnected re-issues membership for the active room. Called by the
// connection manager every time the channel (re)connects, which covers
// rooms selected while disconnected.
func (c *Controller) OnConnected() {
	c.mu.Lock()
	room, hasRoom := c.current, c.hasRoom
	c.mu.Unlock()
	if !hasRoom {
		return
	}
	if err := c.channel.JoinRoom(room.ID); err != nil {
		c.log.Warn("Rejoin after reconnect failed", "room", room.ID, "error", err)
	}
}

// OnDisconnected surfaces a channel loss in the banner.
func (c *Controller) OnDisconnected(reason string) {
	if reason == "" {
		reason = "connection lost"
	}
	c.setError("channel disconnected: " + reason)
}

// OnChannelError surfaces transport or application errors pushed over
// the channel. Non-fatal: the transport retries on its own.
func (c *Controller) OnChannelError(message string) {
	c.setError(message)
}

// ActiveRoom returns the current selection, if any.
func (c *Controller) ActiveRoom() (domain.Room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.hasRoom
}

// Loading reports whether a history fetch for the active room is in
// flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LastError returns the banner text, empty when healthy.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ClearError dismisses the banner.
func (c *Controller) ClearError() {
	c.setError("")
}

// Reset drops the selection and the loaded messages. Used when the user
// leaves the chat view or logs out.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.current = domain.Room{}
	c.hasRoom = false
	c.loading = false
	c.lastErr = ""
	c.mu.Unlock()
	c.store.Clear()
}

func (c *Controller) setError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = message
}
