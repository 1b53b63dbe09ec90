package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"

	"schoolsync/domain"
)

const (
	fieldContent = "content"
	fieldRoom    = "roomId"
	fieldSender  = "senderName"
	fieldAt      = "at"
)

// Hit is one search result resolved from the index stored fields.
type Hit struct {
	ID      string
	RoomID  string
	Sender  string
	Content string
	At      time.Time
}

// Index wraps a Bluge writer holding the local full-text index of
// confirmed messages. Indexing is keyed by message id, so redelivered
// history entries overwrite instead of duplicating.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	return &Index{writer: writer, log: log}, nil
}

// NewIndex builds an Index around an already opened writer. Tests and
// callers owning the writer lifecycle use this form.
func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

func (i *Index) Close() error {
	return i.writer.Close()
}

func (i *Index) IndexMessage(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID).
		AddField(bluge.NewTextField(fieldContent, msg.Content).StoreValue()).
		AddField(bluge.NewKeywordField(fieldRoom, msg.RoomID).StoreValue()).
		AddField(bluge.NewKeywordField(fieldSender, msg.SenderName).StoreValue()).
		AddField(bluge.NewKeywordField(fieldAt, msg.Timestamp.UTC().Format(time.RFC3339Nano)).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Consume indexes a confirmed message. Optimistic entries are skipped:
// only server-acknowledged content is searchable.
func (i *Index) Consume(_ context.Context, msg domain.Message) error {
	if msg.Optimistic {
		return nil
	}
	if err := i.IndexMessage(msg); err != nil {
		i.log.Error("failed to index message", slog.String("id", msg.ID), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Search runs a parsed query against the index and returns the stored
// fields of each match, best score first.
func (i *Index) Search(ctx context.Context, query Query) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open index reader: %w", err)
	}
	defer reader.Close()

	request := bluge.NewTopNSearch(query.Limit, buildQuery(query))
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case fieldContent:
				hit.Content = string(value)
			case fieldRoom:
				hit.RoomID = string(value)
			case fieldSender:
				hit.Sender = string(value)
			case fieldAt:
				if at, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					hit.At = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func buildQuery(query Query) bluge.Query {
	boolean := bluge.NewBooleanQuery()

	if query.Terms != "" {
		boolean.AddMust(bluge.NewMatchQuery(query.Terms).SetField(fieldContent))
	} else {
		boolean.AddMust(bluge.NewMatchAllQuery())
	}
	if query.RoomID != "" {
		boolean.AddMust(bluge.NewTermQuery(query.RoomID).SetField(fieldRoom))
	}
	if query.Sender != "" {
		boolean.AddMust(bluge.NewTermQuery(query.Sender).SetField(fieldSender))
	}
	return boolean
}
