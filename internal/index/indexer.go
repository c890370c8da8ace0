package index

import (
	"context"
	"fmt"
	"log/slog"

	"autodb/internal/ingest"
)

// Entry is one indexed chunk: the display text that was embedded plus the
// provenance metadata returned with query matches.
type Entry struct {
	ID           string `json:"id"`
	DisplayText  string `json:"text"`
	DocID        string `json:"doc_id"`
	Source       string `json:"source"`
	OriginalForm string `json:"json"`
}

// Match is an entry returned from a query, ranked by ascending distance.
type Match struct {
	Entry
	Distance float32 `json:"-"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type ChunkStore interface {
	AddBatch(ctx context.Context, entries []Entry, vectors [][]float32) error
	NearVector(ctx context.Context, vector []float32, k int) ([]Match, error)
}

// Indexer pairs the embedding function with the nearest-neighbor store.
// Embedding is a pure function of display text; index and query vectors are
// only comparable because the same text always embeds to the same vector.
type Indexer struct {
	embedder Embedder
	store    ChunkStore
}

func NewIndexer(e Embedder, s ChunkStore) *Indexer {
	return &Indexer{embedder: e, store: s}
}

// Index embeds every chunk and stores the batch under ids "{docID}_{i}".
// A single failed embedding fails the whole batch; there is no partial add.
func (ix *Indexer) Index(ctx context.Context, docID, source string, chunks []ingest.Chunk) error {
	if source == "" {
		source = "unknown"
	}

	entries := make([]Entry, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, c := range chunks {
		vec, err := ix.embedder.Embed(ctx, c.DisplayText)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", c.Index, err)
		}
		entries[i] = Entry{
			ID:           fmt.Sprintf("%s_%d", docID, c.Index),
			DisplayText:  c.DisplayText,
			DocID:        docID,
			Source:       source,
			OriginalForm: c.OriginalForm,
		}
		vectors[i] = vec
	}

	if err := ix.store.AddBatch(ctx, entries, vectors); err != nil {
		return fmt.Errorf("store batch: %w", err)
	}

	slog.InfoContext(ctx, "chunks indexed", "doc_id", docID, "source", source, "count", len(entries))
	return nil
}

// Query embeds the query text and returns the k nearest entries, best match
// first. An empty index yields an empty slice, not an error.
func (ix *Indexer) Query(ctx context.Context, text string, k int) ([]Match, error) {
	vec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := ix.store.NearVector(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("near vector search: %w", err)
	}
	return matches, nil
}
