package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"autodb/internal/index"
	"autodb/internal/vector"
)

// Store persists indexed entries in a Weaviate class. Entries are append-only:
// nothing in the service updates or deletes them once written.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// AddBatch writes all entries in one batch call. A failure of any object in
// the response fails the whole batch.
func (s *Store) AddBatch(ctx context.Context, entries []index.Entry, vectors [][]float32) error {
	if len(entries) != len(vectors) {
		return fmt.Errorf("entry/vector count mismatch: %d != %d", len(entries), len(vectors))
	}

	objects := make([]*models.Object, len(entries))
	for i, e := range entries {
		objects[i] = &models.Object{
			Class: vector.ClassName,
			Properties: map[string]interface{}{
				"chunkId":      e.ID,
				"docId":        e.DocID,
				"content":      e.DisplayText,
				"source":       e.Source,
				"originalForm": e.OriginalForm,
				"chunkIndex":   extractIndex(e.ID),
			},
			Vector: models.C11yVector(vectors[i]),
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return err
	}

	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch object failed: %s", r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// NearVector returns the k nearest entries by the index's distance metric,
// ascending (best match first). Ranking is Weaviate's, not reimplemented here.
func (s *Store) NearVector(ctx context.Context, vec []float32, k int) ([]index.Match, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "docId"},
		{Name: "content"},
		{Name: "source"},
		{Name: "originalForm"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	return parseMatches(res.Data), nil
}

// CountChunks reports how many entries the class holds.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if agg, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if classes, ok := agg[vector.ClassName].([]interface{}); ok && len(classes) > 0 {
			if entry, ok := classes[0].(map[string]interface{}); ok {
				if meta, ok := entry["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}

func parseMatches(data map[string]models.JSONObject) []index.Match {
	matches := []index.Match{}
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return matches
	}
	chunks, ok := get[vector.ClassName].([]interface{})
	if !ok {
		return matches
	}

	for _, c := range chunks {
		props, ok := c.(map[string]interface{})
		if !ok {
			continue
		}

		m := index.Match{}
		if id, ok := props["chunkId"].(string); ok {
			m.ID = id
		}
		if docID, ok := props["docId"].(string); ok {
			m.DocID = docID
		}
		if content, ok := props["content"].(string); ok {
			m.DisplayText = content
		}
		if source, ok := props["source"].(string); ok {
			m.Source = source
		}
		if original, ok := props["originalForm"].(string); ok {
			m.OriginalForm = original
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if distance, ok := additional["distance"].(float64); ok {
				m.Distance = float32(distance)
			}
		}

		matches = append(matches, m)
	}
	return matches
}

// extractIndex recovers the 0-based chunk index from a "{docId}_{i}" id.
func extractIndex(chunkID string) int {
	idx := 0
	for i := len(chunkID) - 1; i >= 0; i-- {
		if chunkID[i] == '_' {
			fmt.Sscanf(chunkID[i+1:], "%d", &idx)
			break
		}
	}
	return idx
}
