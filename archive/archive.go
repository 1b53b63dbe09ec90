// Package archive keeps a local on-disk copy of every confirmed
// message the client has seen, so history survives offline and can be
// searched without the backend.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"schoolsync/domain"
)

type IMessageArchive interface {
	Store(msg domain.Message) error
	Messages(roomID string, cursor *string) ([]domain.Message, *string, error)
}

type MessageArchive struct {
	db    *badger.DB
	log   *slog.Logger
	limit *int
}

func NewMessageArchive(db *badger.DB, log *slog.Logger, limit *int) MessageArchive {
	return MessageArchive{db: db, log: log, limit: limit}
}

// diskMessage is the stored shape. Timestamps are kept as UnixNano so
// the value round-trips exactly.
type diskMessage struct {
	ID         string `json:"id"`
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	At         int64  `json:"at"`
}

// Store persists a message. The key is formatted as
// "msg:{room_id}:{timestamp_padded}:{message_id}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Keep re-delivered copies of the same message idempotent: same
//     id and timestamp produce the same key.
func (a MessageArchive) Store(msg domain.Message) error {
	key := fmt.Sprintf("msg:%s:%019d:%s",
		msg.RoomID,
		msg.Timestamp.UnixNano(),
		msg.ID,
	)
	bytes, err := json.Marshal(fromMessage(msg))
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// Messages retrieves archived messages for a room using a prefix scan,
// newest first thanks to the padded timestamp in the key and a reverse
// iterator. The returned cursor resumes the scan on the next page; it
// stops collecting once the configured limit is reached.
func (a MessageArchive) Messages(roomID string, cursor *string) ([]domain.Message, *string, error) {
	var rawValues [][]byte
	var lastKey string
	err := a.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", roomID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk back.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if a.limit != nil && len(rawValues) == *a.limit {
				a.log.Debug(fmt.Sprintf("Maximum of %d archived messages reached", *a.limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawValues = append(rawValues, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]domain.Message, 0, len(rawValues))
	for _, raw := range rawValues {
		var dm diskMessage
		if err = json.Unmarshal(raw, &dm); err != nil {
			return nil, nil, err
		}
		messages = append(messages, toMessage(dm))
	}
	return messages, lo.ToPtr(lastKey), nil
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:         msg.ID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		At:         msg.Timestamp.UnixNano(),
	}
}

func toMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:         dm.ID,
		RoomID:     dm.RoomID,
		SenderID:   dm.SenderID,
		SenderName: dm.SenderName,
		Content:    dm.Content,
		Timestamp:  time.Unix(0, dm.At).UTC(),
	}
}

// Sink adapts the archive to the controller's message sink: every
// confirmed message the client sees gets archived.
type Sink struct {
	archive IMessageArchive
	log     *slog.Logger
}

func NewSink(archive IMessageArchive, log *slog.Logger) Sink {
	return Sink{archive: archive, log: log}
}

func (s Sink) Consume(_ context.Context, msg domain.Message) error {
	if msg.Optimistic {
		return nil
	}
	return s.archive.Store(msg)
}
