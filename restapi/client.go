//go:generate go run go.uber.org/mock/mockgen -source=client.go -destination=../mocks/mock_restapi.go -package=mocks
// Package restapi is the client for the SchoolSync backend REST
// surface used by the chat core: room listing, message history, and
// user lookup for direct chats.
package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"schoolsync/domain"
)

type IClient interface {
	Rooms(ctx context.Context) ([]domain.Room, error)
	Messages(ctx context.Context, roomID string) ([]domain.Message, error)
	FindUserByIdentifier(ctx context.Context, identifier string) (User, error)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// User is the lookup result used to start a direct chat.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// DisplayName mirrors the roster naming rules: profile name, then email.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	return u.Email
}

// wireRoom is the room list payload of GET /chat/rooms.
type wireRoom struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	OriginalID   string `json:"originalId,omitempty"`
	TargetUserID string `json:"targetUserId,omitempty"`
}

// apiError is the backend's error body shape.
type apiError struct {
	Message string `json:"message"`
}

// Rooms fetches the caller's room list. Rooms come back with a zero
// unread counter: unread state is client-side only.
func (c *Client) Rooms(ctx context.Context) ([]domain.Room, error) {
	var wire []wireRoom
	if err := c.get(ctx, "/chat/rooms", &wire); err != nil {
		return nil, fmt.Errorf("fetching chat rooms: %w", err)
	}
	rooms := make([]domain.Room, 0, len(wire))
	for _, w := range wire {
		kind, err := domain.ParseRoomKind(w.Type)
		if err != nil {
			return nil, fmt.Errorf("room %s: %w", w.ID, err)
		}
		rooms = append(rooms, domain.Room{
			ID:           w.ID,
			Name:         w.Name,
			Kind:         kind,
			OriginalID:   w.OriginalID,
			TargetUserID: w.TargetUserID,
		})
	}
	domain.SortRooms(rooms)
	return rooms, nil
}

// Messages fetches the persisted history ordered by timestamp.
func (c *Client) Messages(ctx context.Context, roomID string) ([]domain.Message, error) {
	var messages []domain.Message
	if err := c.get(ctx, "/chat/messages/"+url.PathEscape(roomID), &messages); err != nil {
		return nil, fmt.Errorf("fetching history for room %s: %w", roomID, err)
	}
	domain.SortMessages(messages)
	return lo.Map(messages, func(m domain.Message, _ int) domain.Message {
		m.Optimistic = false
		return m
	}), nil
}

// FindUserByIdentifier resolves an email or student code to a user so
// the caller can derive a direct-room id.
func (c *Client) FindUserByIdentifier(ctx context.Context, identifier string) (User, error) {
	var user User
	path := "/users/find-by-identifier?identifier=" + url.QueryEscape(identifier)
	if err := c.get(ctx, path, &user); err != nil {
		return User{}, fmt.Errorf("looking up %q: %w", identifier, err)
	}
	if user.ID == "" {
		return User{}, fmt.Errorf("user %q not found", identifier)
	}
	return user, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
