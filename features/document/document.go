package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"autodb/internal/config"
	"autodb/internal/ingest"
	"autodb/internal/middleware"
)

// ErrNoInput is returned when none of the ingestion channels carried a payload.
var ErrNoInput = errors.New("no input provided")

// Document is the metadata record written once per ingestion. Records are
// never updated or deleted; the id is immutable once assigned.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]Document, error)
	Count(ctx context.Context) (int, error)
}

type Indexer interface {
	Index(ctx context.Context, docID, source string, chunks []ingest.Chunk) error
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// SaveResult is the ingestion outcome: message, assigned document id (empty on
// failure) and the number of chunks produced (0 on failure).
type SaveResult struct {
	Message string `json:"message"`
	DocID   string `json:"doc_id"`
	Chunks  int    `json:"chunks"`
}

type Service struct {
	repo    Repository
	indexer Indexer
	pub     EventPublisher
}

func NewService(repo Repository, indexer Indexer, pub EventPublisher) *Service {
	return &Service{repo: repo, indexer: indexer, pub: pub}
}

// Ingest normalizes the payload, persists the metadata record and indexes the
// chunks under the new document id, in that order. Normalization happens
// first so that a malformed payload creates no record and no index entries.
//
// There is no rollback: if indexing fails after the record was written, the
// record stays behind without retrievable chunks.
func (s *Service) Ingest(ctx context.Context, kind ingest.Kind, payload []byte, filename string) (*SaveResult, error) {
	chunks, err := ingest.Normalize(kind, payload)
	if err != nil {
		return nil, err
	}

	if filename == "" {
		filename = defaultFilename(kind)
	}

	doc := &Document{
		ID:          uuid.New().String(),
		Filename:    filename,
		ContentType: string(kind),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := s.indexer.Index(ctx, doc.ID, doc.Filename, chunks); err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}

	s.publishCompleted(ctx, doc, len(chunks))

	return &SaveResult{
		Message: storedMessage(kind),
		DocID:   doc.ID,
		Chunks:  len(chunks),
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	return s.repo.List(ctx)
}

// publishCompleted is notification only: a failed publish is logged and never
// fails the ingestion.
func (s *Service) publishCompleted(ctx context.Context, doc *Document, chunks int) {
	payload, _ := json.Marshal(map[string]interface{}{
		"doc_id":         doc.ID,
		"filename":       doc.Filename,
		"content_type":   doc.ContentType,
		"chunks":         chunks,
		"correlation_id": middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicIngestCompleted, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish ingest.completed event", "error", err, "doc_id", doc.ID)
	} else {
		slog.InfoContext(ctx, "published ingest.completed event", "doc_id", doc.ID, "chunks", chunks)
	}
}

func defaultFilename(kind ingest.Kind) string {
	switch kind {
	case ingest.KindJSON:
		return "data.json"
	case ingest.KindCSV:
		return "data.csv"
	default:
		return "text_input.txt"
	}
}

func storedMessage(kind ingest.Kind) string {
	switch kind {
	case ingest.KindJSON:
		return "JSON stored"
	case ingest.KindCSV:
		return "CSV stored"
	default:
		return "Text stored"
	}
}
