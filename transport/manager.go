// Package transport owns the lifecycle of the single real-time channel
// shared by the whole chat client. Only the Manager may create or
// destroy the connection; dependent components send through it and read
// its state.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"schoolsync/domain"
	"schoolsync/errors"
)

// Handlers receives channel events. All callbacks are optional and are
// invoked from the read loop goroutine, one at a time.
type Handlers struct {
	OnConnected      func()
	OnAuthenticated  func()
	OnMessage        func(domain.Message)
	OnDisconnected   func(reason string)
	OnTransportError func(err error)
	OnAppError       func(message string)
}

// Dialer opens the websocket. Injectable so tests can fail or redirect
// the dial without a network.
type Dialer func(ctx context.Context, url string, header http.Header) (*websocket.Conn, error)

// Manager implements the connection state machine:
// disconnected -> connecting -> connected, with errored reached on
// transport failures. Transport errors keep the channel eligible for
// the built-in bounded retry; an explicit disconnect (either side)
// clears the channel reference entirely.
type Manager struct {
	log      *slog.Logger
	url      string
	token    string
	attempts int
	backoff  time.Duration
	dial     Dialer

	mu       sync.Mutex
	state    State
	lastErr  string
	conn     *websocket.Conn
	handlers Handlers

	// writeMu serializes frames; gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

func NewManager(url, token string, attempts int, backoff time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		log:      log,
		url:      url,
		token:    token,
		attempts: attempts,
		backoff:  backoff,
		dial: func(ctx context.Context, url string, header http.Header) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
			return conn, err
		},
	}
}

// WithDialer replaces the dial function. Test seam.
func (m *Manager) WithDialer(dial Dialer) *Manager {
	m.dial = dial
	return m
}

// SetHandlers registers the event callbacks. Must be called before
// Connect; Disconnect deregisters everything.
func (m *Manager) SetHandlers(h Handlers) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = h
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Connected() bool {
	return m.State() == StateConnected
}

// LastError returns the human-readable message of the most recent
// transport failure, empty when healthy.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Connect opens the channel authenticated with the credential token.
// Idempotent: a live or in-progress connection makes it a no-op.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateConnected || m.conn != nil {
		m.mu.Unlock()
		m.log.Debug("Connect ignored, channel already live", "state", m.state.String())
		return nil
	}
	m.state = StateConnecting
	m.mu.Unlock()

	conn, err := m.dialWithRetry(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = StateErrored
		m.lastErr = err.Error()
		h := m.handlers
		m.mu.Unlock()
		if h.OnTransportError != nil {
			h.OnTransportError(err)
		}
		return err
	}

	m.mu.Lock()
	if m.state != StateConnecting {
		// Disconnect won the race while dialing.
		m.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	m.conn = conn
	m.state = StateConnected
	m.lastErr = ""
	h := m.handlers
	m.mu.Unlock()

	m.log.Info("Channel connected", "url", m.url)
	go m.readLoop(conn)
	if h.OnConnected != nil {
		h.OnConnected()
	}
	return nil
}

// Disconnect closes the channel and deregisters every handler so a
// reused manager cannot leak callbacks. Idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.handlers = Handlers{}
	m.state = StateDisconnected
	m.lastErr = ""
	m.mu.Unlock()

	if conn != nil {
		m.log.Info("Channel disconnected by client")
		_ = conn.Close()
	}
}

// dialWithRetry is the transport-layer retry: a bounded attempt count
// with a fixed backoff between attempts. No custom backoff policy sits
// above this.
func (m *Manager) dialWithRetry(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if m.token != "" {
		header.Set("Authorization", "Bearer "+m.token)
	}

	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		conn, err := m.dial(ctx, m.url, header)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		m.log.Warn("Channel dial failed", "attempt", attempt, "error", err)
		if attempt == m.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.backoff):
		}
	}
	return nil, fmt.Errorf("connecting to %s after %d attempts: %w", m.url, m.attempts, lastErr)
}

// handlersFor returns the registered handlers if conn is still the
// live channel. Stale read loops get nothing and stop delivering.
func (m *Manager) handlersFor(conn *websocket.Conn) (Handlers, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != conn {
		return Handlers{}, false
	}
	return m.handlers, true
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			m.onReadFailure(conn, err)
			return
		}
		if !m.dispatch(conn, env) {
			return
		}
	}
}

// dispatch delivers one inbound frame. Returns false when the read loop
// must stop (server-initiated disconnect or a superseded connection).
func (m *Manager) dispatch(conn *websocket.Conn, env Envelope) bool {
	h, live := m.handlersFor(conn)
	if !live {
		return false
	}

	switch env.Event {
	case EventAuthenticated:
		m.log.Debug("Channel authenticated")
		if h.OnAuthenticated != nil {
			h.OnAuthenticated()
		}
	case EventNewMessage:
		var msg domain.Message
		if err := env.Decode(&msg); err != nil {
			m.log.Warn("Dropping malformed message frame", "error", err)
			return true
		}
		if h.OnMessage != nil {
			h.OnMessage(msg)
		}
	case EventDisconnect:
		var info disconnectInfo
		_ = env.Decode(&info)
		m.log.Warn("Server closed the channel", "reason", info.Reason)
		m.teardown(conn)
		if h.OnDisconnected != nil {
			h.OnDisconnected(info.Reason)
		}
		return false
	case EventError:
		var appErr appError
		if err := env.Decode(&appErr); err != nil || appErr.Message == "" {
			appErr.Message = string(env.Data)
		}
		m.log.Warn("Application error from server", "message", appErr.Message)
		m.mu.Lock()
		m.lastErr = appErr.Message
		m.mu.Unlock()
		if h.OnAppError != nil {
			h.OnAppError(appErr.Message)
		}
	default:
		m.log.Debug("Ignoring unknown channel event", "event", env.Event)
	}
	return true
}

// onReadFailure handles a broken read: surface the error, keep the
// errored state eligible for retry, and attempt an automatic redial.
func (m *Manager) onReadFailure(conn *websocket.Conn, err error) {
	m.mu.Lock()
	if m.conn != conn {
		// Disconnect or a newer connection already took over.
		m.mu.Unlock()
		return
	}
	m.state = StateErrored
	m.lastErr = err.Error()
	h := m.handlers
	m.mu.Unlock()

	m.log.Warn("Channel read failed", "error", err)
	if h.OnTransportError != nil {
		h.OnTransportError(err)
	}
	m.redial(conn)
}

// redial replaces a broken connection using the same bounded retry as
// the initial dial. Exhausted retries clear the channel reference.
func (m *Manager) redial(broken *websocket.Conn) {
	conn, err := m.dialWithRetry(context.Background())

	m.mu.Lock()
	if m.conn != broken {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		m.conn = nil
		m.state = StateDisconnected
		h := m.handlers
		m.mu.Unlock()
		_ = broken.Close()
		m.log.Error("Channel reconnect exhausted", "error", err)
		if h.OnDisconnected != nil {
			h.OnDisconnected("reconnect failed")
		}
		return
	}
	m.conn = conn
	m.state = StateConnected
	m.lastErr = ""
	h := m.handlers
	m.mu.Unlock()

	_ = broken.Close()
	m.log.Info("Channel reconnected")
	go m.readLoop(conn)
	if h.OnConnected != nil {
		h.OnConnected()
	}
}

// teardown clears the channel after a server-initiated disconnect.
func (m *Manager) teardown(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.state = StateDisconnected
	}
	m.mu.Unlock()
	_ = conn.Close()
}

func (m *Manager) send(event string, payload any) error {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()
	if !connected || conn == nil {
		return errors.ErrNotConnected
	}

	env, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(env)
}

// JoinRoom signals room membership to the server.
func (m *Manager) JoinRoom(roomID string) error {
	return m.send(EventJoinRoom, roomRef{RoomID: roomID})
}

// LeaveRoom revokes room membership.
func (m *Manager) LeaveRoom(roomID string) error {
	return m.send(EventLeaveRoom, roomRef{RoomID: roomID})
}

// SendMessage transmits a composed message over the channel.
func (m *Manager) SendMessage(out domain.OutgoingMessage) error {
	return m.send(EventMessage, out)
}
