package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"schoolsync/chat"
	"schoolsync/domain"
	"schoolsync/search"
	"schoolsync/transport"
)

type IChatService interface {
	Connect(ctx context.Context) error
	Shutdown()
	Rooms() []domain.Room
	RefreshRooms(ctx context.Context) error
	SelectRoom(ctx context.Context, roomID string) error
	StartDirectChat(ctx context.Context, identifier string) (domain.Room, error)
	Send(text string) (domain.Message, error)
	Messages() []domain.Message
	ActiveRoom() (domain.Room, bool)
	ConnectionState() transport.State
	LastError() string
	ClearError()
	SearchHistory(ctx context.Context, input string) ([]search.Hit, error)
}

// ISearcher answers /find queries. Nil when the local index is disabled.
type ISearcher interface {
	Search(ctx context.Context, query search.Query) ([]search.Hit, error)
}

// ChatService is the facade the front end talks to. It binds the
// connection manager events to the controller and exposes one surface
// for room, message and search operations.
type ChatService struct {
	log        *slog.Logger
	manager    *transport.Manager
	controller *chat.Controller
	store      *chat.Store
	roster     *chat.Roster
	searcher   ISearcher

	sweepStop chan struct{}
}

func NewChatService(manager *transport.Manager, controller *chat.Controller,
	store *chat.Store, roster *chat.Roster, searcher ISearcher, log *slog.Logger) *ChatService {
	s := &ChatService{
		log:        log,
		manager:    manager,
		controller: controller,
		store:      store,
		roster:     roster,
		searcher:   searcher,
		sweepStop:  make(chan struct{}),
	}
	manager.SetHandlers(transport.Handlers{
		OnConnected: controller.OnConnected,
		OnAuthenticated: func() {
			log.Debug("Channel authenticated")
		},
		OnMessage:      controller.HandleIncoming,
		OnDisconnected: controller.OnDisconnected,
		OnTransportError: func(err error) {
			controller.OnChannelError(err.Error())
		},
		OnAppError: controller.OnChannelError,
	})
	return s
}

// Connect opens the real-time channel. Idempotent, like the manager.
func (s *ChatService) Connect(ctx context.Context) error {
	return s.manager.Connect(ctx)
}

// Shutdown closes the channel and drops all chat state.
func (s *ChatService) Shutdown() {
	close(s.sweepStop)
	s.manager.Disconnect()
	s.controller.Reset()
}

// StartFailedSweep periodically flags optimistic sends whose echo never
// arrived. Runs until Shutdown.
func (s *ChatService) StartFailedSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.sweepStop:
				return
			case now := <-ticker.C:
				if flagged := s.store.SweepFailed(now); flagged > 0 {
					s.log.Warn("Messages flagged as failed", "count", flagged)
				}
			}
		}
	}()
}

func (s *ChatService) Rooms() []domain.Room {
	return s.roster.Rooms()
}

func (s *ChatService) RefreshRooms(ctx context.Context) error {
	return s.controller.RefreshRooms(ctx)
}

// SelectRoom activates a room from the roster by id.
func (s *ChatService) SelectRoom(ctx context.Context, roomID string) error {
	room, found := s.roster.Get(roomID)
	if !found {
		return fmt.Errorf("unknown room %q", roomID)
	}
	s.controller.SelectRoom(ctx, room)
	return nil
}

func (s *ChatService) StartDirectChat(ctx context.Context, identifier string) (domain.Room, error) {
	return s.controller.StartDirectChat(ctx, identifier)
}

func (s *ChatService) Send(text string) (domain.Message, error) {
	return s.controller.Send(text)
}

func (s *ChatService) Messages() []domain.Message {
	return s.store.Messages()
}

func (s *ChatService) ActiveRoom() (domain.Room, bool) {
	return s.controller.ActiveRoom()
}

func (s *ChatService) ConnectionState() transport.State {
	return s.manager.State()
}

func (s *ChatService) LastError() string {
	if banner := s.controller.LastError(); banner != "" {
		return banner
	}
	return s.manager.LastError()
}

func (s *ChatService) ClearError() {
	s.controller.ClearError()
}

// SearchHistory parses a /find style input and runs it against the
// local index.
func (s *ChatService) SearchHistory(ctx context.Context, input string) ([]search.Hit, error) {
	if s.searcher == nil {
		return nil, fmt.Errorf("search index is disabled")
	}
	return s.searcher.Search(ctx, search.ParseQuery(input))
}
