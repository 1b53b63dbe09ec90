package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"schoolsync/domain"
	"schoolsync/errors"
)

const testTimeout = 2 * time.Second

// channelServer is a minimal in-process stand-in for the backend
// websocket gateway: it records inbound frames and lets tests push
// server events down to the client.
type channelServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	received chan Envelope
	headers  chan string
}

func newChannelServer(t *testing.T) *channelServer {
	t.Helper()
	cs := &channelServer{
		received: make(chan Envelope, 16),
		headers:  make(chan string, 4),
	}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.headers <- r.Header.Get("Authorization")
		conn, err := cs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		cs.mu.Lock()
		cs.conns = append(cs.conns, conn)
		cs.mu.Unlock()
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			cs.received <- env
		}
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *channelServer) url() string {
	return "ws" + strings.TrimPrefix(cs.srv.URL, "http")
}

func (cs *channelServer) connCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.conns)
}

func (cs *channelServer) push(t *testing.T, event string, payload any) {
	t.Helper()
	env, err := NewEnvelope(event, payload)
	require.NoError(t, err)
	cs.mu.Lock()
	conn := cs.conns[len(cs.conns)-1]
	cs.mu.Unlock()
	require.NoError(t, conn.WriteJSON(env))
}

func (cs *channelServer) dropLatest() {
	cs.mu.Lock()
	conn := cs.conns[len(cs.conns)-1]
	cs.mu.Unlock()
	_ = conn.Close()
}

func waitFrame(t *testing.T, frames chan Envelope) Envelope {
	t.Helper()
	select {
	case env := <-frames:
		return env
	case <-time.After(testTimeout):
		t.Fatal("no frame received in time")
		return Envelope{}
	}
}

func newTestManager(cs *channelServer) *Manager {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return NewManager(cs.url(), "test-token", 3, 10*time.Millisecond, log)
}

func TestManager_Connect_IsIdempotent(t *testing.T) {
	req := require.New(t)
	cs := newChannelServer(t)
	m := newTestManager(cs)
	defer m.Disconnect()

	connected := make(chan struct{}, 2)
	m.SetHandlers(Handlers{OnConnected: func() { connected <- struct{}{} }})

	req.NoError(m.Connect(context.Background()))
	req.Equal(StateConnected, m.State())
	<-connected

	// Second call is a no-op: no new connection, no second event.
	req.NoError(m.Connect(context.Background()))
	req.Equal(1, cs.connCount())
	req.Empty(connected)
}

func TestManager_Connect_SendsBearerToken(t *testing.T) {
	req := require.New(t)
	cs := newChannelServer(t)
	m := newTestManager(cs)
	defer m.Disconnect()

	req.NoError(m.Connect(context.Background()))
	req.Equal("Bearer test-token", <-cs.headers)
}

func TestManager_JoinAndLeaveRoom(t *testing.T) {
	req := require.New(t)
	cs := newChannelServer(t)
	m := newTestManager(cs)
	defer m.Disconnect()

	req.NoError(m.Connect(context.Background()))
	req.NoError(m.JoinRoom("class-1"))
	req.NoError(m.LeaveRoom("class-1"))

	join := waitFrame(t, cs.received)
	req.Equal(EventJoinRoom, join.Event)
	var ref roomRef
	req.NoError(join.Decode(&ref))
	req.Equal("class-1", ref.RoomID)

	leave := waitFrame(t, cs.received)
	req.Equal(EventLeaveRoom, leave.Event)
}

func TestManager_SendWhileDisconnected(t *testing.T) {
	req := require.New(t)
	cs := newChannelServer(t)
	m := newTestManager(cs)

	err := m.SendMessage(domain.OutgoingMessage{Content: "hello", RoomID: "class-1"})
	req.ErrorIs(err, errors.ErrNotConnected)
	req.ErrorIs(m.JoinRoom("class-1"), errors.ErrNotConnected)
}

func TestManager_DeliversServerMessages(t *testing.T) {
	req := require.New(t)
	cs := newChannelServer(t)
	m := newTestManager(cs)
	defer m.Disconnect()

	inbound := make(chan domain.Message, 1)
	m.SetHandlers(Handlers{OnMessage: func(msg domain.Message) { inbound <- msg }})
	req.NoError(m.Connect(context.Background()))

	cs.push(t, EventNewMessage, domain.Message{
		ID:        "srv-1",
		RoomID:    "class-1",
		SenderID:  "2",
		Content:   "welcome",
		Timestamp: time.Now().UTC(),
	})

	select {
	case msg := <-inbound:
		req.Equal("srv-1", msg.ID)
		req.Equal("welcome", msg.Content)
	case <-time.After(testTimeout):
		t.Fatal("message never delivered")
	}
}

func TestManager_ServerInitiatedDisconnect_ClearsChannel(t *testing.T) {
	req := require.New(t)
	cs := newChannelServer(t)
	m := newTestManager(cs)

	reasons := make(chan string, 1)
	m.SetHandlers(Handlers{OnDisconnected: func(reason string) { reasons <- reason }})
	req.NoError(m.Connect(context.Background()))

	cs.push(t, EventDisconnect, disconnectInfo{Reason: "io server disconnect"})

	select {
	case reason := <-reasons:
		req.Equal("io server disconnect", reason)
	case <-time.After(testTimeout):
		t.Fatal("disconnect never surfaced")
	}
	req.Eventually(func() bool { return m.State() == StateDisconnected },
		testTimeout, 10*time.Millisecond)
	req.ErrorIs(m.JoinRoom("class-1"), errors.ErrNotConnected)
}

func TestManager_AppError_Surfaced(t *testing.T) {
	req := require.New(t)
	cs := newChannelServer(t)
	m := newTestManager(cs)
	defer m.Disconnect()

	appErrors := make(chan string, 1)
	m.SetHandlers(Handlers{OnAppError: func(message string) { appErrors <- message }})
	req.NoError(m.Connect(context.Background()))

	cs.push(t, EventError, appError{Message: "not a member of this room"})

	select {
	case msg := <-appErrors:
		req.Equal("not a member of this room", msg)
	case <-time.After(testTimeout):
		t.Fatal("application error never surfaced")
	}
	req.Equal("not a member of this room", m.LastError())
	// Application errors do not tear down the channel.
	req.Equal(StateConnected, m.State())
}

func TestManager_DialFailure_BoundedRetries(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	var attempts int
	m := NewManager("ws://unreachable.invalid", "token", 3, time.Millisecond, log).
		WithDialer(func(ctx context.Context, url string, header http.Header) (*websocket.Conn, error) {
			attempts++
			return nil, fmt.Errorf("connection refused")
		})

	transportErrs := make(chan error, 1)
	m.SetHandlers(Handlers{OnTransportError: func(err error) { transportErrs <- err }})

	err := m.Connect(context.Background())
	req.Error(err)
	req.Equal(3, attempts)
	req.Equal(StateErrored, m.State())
	req.NotEmpty(m.LastError())

	select {
	case <-transportErrs:
	case <-time.After(testTimeout):
		t.Fatal("transport error never surfaced")
	}
}

func TestManager_ReconnectsAfterBrokenRead(t *testing.T) {
	req := require.New(t)
	cs := newChannelServer(t)
	m := newTestManager(cs)
	defer m.Disconnect()

	connected := make(chan struct{}, 4)
	m.SetHandlers(Handlers{OnConnected: func() { connected <- struct{}{} }})
	req.NoError(m.Connect(context.Background()))
	<-connected

	// Server drops the socket without a disconnect frame: the transport
	// retries on its own and the UI sees a fresh connected event.
	cs.dropLatest()

	select {
	case <-connected:
	case <-time.After(testTimeout):
		t.Fatal("channel never reconnected")
	}
	req.Equal(StateConnected, m.State())
	req.Equal(2, cs.connCount())
}

func TestManager_Disconnect_IsIdempotent(t *testing.T) {
	req := require.New(t)
	cs := newChannelServer(t)
	m := newTestManager(cs)

	req.NoError(m.Connect(context.Background()))
	m.Disconnect()
	m.Disconnect()
	req.Equal(StateDisconnected, m.State())
}
