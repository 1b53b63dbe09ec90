package archive

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"schoolsync/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	// Reduced value log size for testing, badger defaults are huge.
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func archivedMessage(id, roomID string, at time.Time) domain.Message {
	return domain.Message{
		ID: id, RoomID: roomID, SenderID: "2", SenderName: "Bob",
		Content: "msg " + id, Timestamp: at,
	}
}

func TestMessageArchive_StoreAndFetch_NewestFirst(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	arch := NewMessageArchive(openTestDB(t), log, nil)
	at := time.Now().UTC()

	for i, id := range []string{"1", "2", "3"} {
		req.NoError(arch.Store(archivedMessage(id, "class-1", at.Add(time.Duration(i)*time.Minute))))
	}

	messages, _, err := arch.Messages("class-1", nil)
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("3", messages[0].ID)
	req.Equal("1", messages[2].ID)
	req.Equal("Bob", messages[0].SenderName)
}

func TestMessageArchive_RoomsAreIsolated(t *testing.T) {
	req := require.New(t)
	arch := NewMessageArchive(openTestDB(t), slog.Default(), nil)
	at := time.Now().UTC()

	req.NoError(arch.Store(archivedMessage("1", "class-1", at)))
	req.NoError(arch.Store(archivedMessage("2", "dm-1-2", at)))

	messages, _, err := arch.Messages("class-1", nil)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("1", messages[0].ID)
}

func TestMessageArchive_StoreIsIdempotent(t *testing.T) {
	req := require.New(t)
	arch := NewMessageArchive(openTestDB(t), slog.Default(), nil)
	msg := archivedMessage("1", "class-1", time.Now().UTC())

	// A re-delivered copy maps to the same key.
	req.NoError(arch.Store(msg))
	req.NoError(arch.Store(msg))

	messages, _, err := arch.Messages("class-1", nil)
	req.NoError(err)
	req.Len(messages, 1)
}

func TestMessageArchive_Pagination(t *testing.T) {
	req := require.New(t)
	limit := 4
	arch := NewMessageArchive(openTestDB(t), slog.Default(), &limit)
	at := time.Now().UTC()

	for i := 1; i <= 10; i++ {
		req.NoError(arch.Store(archivedMessage(fmt.Sprintf("%d", i), "class-1", at.Add(time.Duration(i)*time.Second))))
	}

	var seen []string
	var cursor *string
	for {
		page, next, err := arch.Messages("class-1", cursor)
		req.NoError(err)
		if len(page) == 0 {
			break
		}
		seen = append(seen, lo.Map(page, func(m domain.Message, _ int) string { return m.ID })...)
		req.LessOrEqual(len(page), limit)
		cursor = next
	}

	req.Equal([]string{"10", "9", "8", "7", "6", "5", "4", "3", "2", "1"}, seen)
}

func TestSink_SkipsOptimisticEntries(t *testing.T) {
	req := require.New(t)
	arch := NewMessageArchive(openTestDB(t), slog.Default(), nil)
	sink := NewSink(arch, slog.Default())

	confirmed := archivedMessage("srv-1", "class-1", time.Now().UTC())
	optimistic := archivedMessage(domain.NewTempID(), "class-1", time.Now().UTC())
	optimistic.Optimistic = true

	req.NoError(sink.Consume(context.Background(), confirmed))
	req.NoError(sink.Consume(context.Background(), optimistic))

	messages, _, err := arch.Messages("class-1", nil)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("srv-1", messages[0].ID)
}
