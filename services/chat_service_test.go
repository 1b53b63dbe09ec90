package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"schoolsync/chat"
	"schoolsync/domain"
	"schoolsync/mocks"
	"schoolsync/transport"
)

func newTestService(t *testing.T) (*ChatService, *mocks.MockIClient) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	rest := mocks.NewMockIClient(ctrl)

	session := domain.Session{UserID: "u1", FirstName: "Alice", LastName: "Moreau"}
	manager := transport.NewManager("ws://localhost:3000/chat", "token", 1, time.Millisecond, log)
	roster := chat.NewRoster()
	store := chat.NewStore(session, roster, 7*time.Second, 10*time.Second, log)
	controller := chat.NewController(session, manager, rest, store, roster, log)

	return NewChatService(manager, controller, store, roster, nil, log), rest
}

func TestChatService_SelectRoom_Unknown(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)

	err := service.SelectRoom(context.Background(), "ghost-room")
	req.ErrorContains(err, "unknown room")
}

func TestChatService_SelectRoom_FromRoster(t *testing.T) {
	req := require.New(t)
	service, rest := newTestService(t)

	rooms := []domain.Room{{ID: "class-7", Name: "Mathematics", Kind: domain.KindClass}}
	history := []domain.Message{{ID: "m1", RoomID: "class-7", SenderID: "u2", Content: "Welcome", Timestamp: time.Now()}}
	rest.EXPECT().Rooms(gomock.Any()).Return(rooms, nil)
	rest.EXPECT().Messages(gomock.Any(), "class-7").Return(history, nil)

	req.NoError(service.RefreshRooms(context.Background()))
	req.NoError(service.SelectRoom(context.Background(), "class-7"))

	active, ok := service.ActiveRoom()
	req.True(ok)
	req.Equal("class-7", active.ID)

	req.Eventually(func() bool {
		return len(service.Messages()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestChatService_RefreshRooms_FailureSetsBanner(t *testing.T) {
	req := require.New(t)
	service, rest := newTestService(t)

	rest.EXPECT().Rooms(gomock.Any()).Return(nil, context.DeadlineExceeded)

	err := service.RefreshRooms(context.Background())
	req.Error(err)
	req.Contains(service.LastError(), "loading chat list")

	service.ClearError()
	req.Empty(service.LastError())
}

func TestChatService_SearchHistory_Disabled(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)

	_, err := service.SearchHistory(context.Background(), "/find homework")
	req.ErrorContains(err, "search index is disabled")
}

func TestChatService_ConnectionState_InitiallyDisconnected(t *testing.T) {
	req := require.New(t)
	service, _ := newTestService(t)

	req.Equal(transport.StateDisconnected, service.ConnectionState())
}
