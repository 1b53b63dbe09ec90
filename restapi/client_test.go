package restapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"schoolsync/domain"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Rooms(t *testing.T) {
	req := require.New(t)
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/chat/rooms", r.URL.Path)
		req.Equal("Bearer token-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "dm-1-2", "name": "Bob", "type": "direct", "targetUserId": "2"},
			{"id": "class-1", "name": "Biology", "type": "class", "originalId": "1"}
		]`))
	})

	client := NewClient(srv.URL, "token-1", time.Second)
	rooms, err := client.Rooms(context.Background())
	req.NoError(err)
	req.Len(rooms, 2)

	// Class rooms come first after the client-side sort.
	req.Equal("class-1", rooms[0].ID)
	req.Equal(domain.KindClass, rooms[0].Kind)
	req.Equal("1", rooms[0].OriginalID)
	req.Equal("dm-1-2", rooms[1].ID)
	req.Equal("2", rooms[1].TargetUserID)
	req.Zero(rooms[0].Unread)
}

func TestClient_Rooms_UnknownKind(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "x", "name": "x", "type": "group"}]`))
	})

	_, err := NewClient(srv.URL, "t", time.Second).Rooms(context.Background())
	require.Error(t, err)
}

func TestClient_Messages_SortedAscending(t *testing.T) {
	req := require.New(t)
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/chat/messages/class-1", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id": "2", "roomId": "class-1", "senderId": "1", "content": "later", "timestamp": "2026-08-30T10:05:00Z"},
			{"id": "1", "roomId": "class-1", "senderId": "2", "content": "earlier", "timestamp": "2026-08-30T10:00:00Z"}
		]`))
	})

	messages, err := NewClient(srv.URL, "t", time.Second).Messages(context.Background(), "class-1")
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("1", messages[0].ID)
	req.Equal("2", messages[1].ID)
	req.False(messages[0].Optimistic)
}

func TestClient_Messages_BackendError(t *testing.T) {
	req := require.New(t)
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "not a member of this room"}`))
	})

	_, err := NewClient(srv.URL, "t", time.Second).Messages(context.Background(), "class-9")
	req.Error(err)
	req.Contains(err.Error(), "not a member of this room")
}

func TestClient_FindUserByIdentifier(t *testing.T) {
	req := require.New(t)
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/users/find-by-identifier", r.URL.Path)
		req.Equal("bob@school.test", r.URL.Query().Get("identifier"))
		_, _ = w.Write([]byte(`{"id": "2", "firstName": "Bob", "lastName": "Marchand", "email": "bob@school.test"}`))
	})

	user, err := NewClient(srv.URL, "t", time.Second).FindUserByIdentifier(context.Background(), "bob@school.test")
	req.NoError(err)
	req.Equal("2", user.ID)
	req.Equal("Bob Marchand", user.DisplayName())
}

func TestClient_FindUserByIdentifier_EmptyResult(t *testing.T) {
	srv := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := NewClient(srv.URL, "t", time.Second).FindUserByIdentifier(context.Background(), "ghost")
	require.Error(t, err)
}
