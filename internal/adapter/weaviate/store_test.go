package weaviate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

func TestParseMatches(t *testing.T) {
	t.Run("Full Response", func(t *testing.T) {
		data := map[string]models.JSONObject{
			"Get": map[string]interface{}{
				"DocumentChunk": []interface{}{
					map[string]interface{}{
						"chunkId":      "doc-1_0",
						"docId":        "doc-1",
						"content":      "name: Alice | age: 30",
						"source":       "people.csv",
						"originalForm": `{"name":"Alice","age":"30"}`,
						"_additional":  map[string]interface{}{"distance": 0.12},
					},
					map[string]interface{}{
						"chunkId":     "doc-1_1",
						"docId":       "doc-1",
						"content":     "name: Bob | age: 25",
						"source":      "people.csv",
						"_additional": map[string]interface{}{"distance": 0.37},
					},
				},
			},
		}

		matches := parseMatches(data)
		require.Len(t, matches, 2)

		assert.Equal(t, "doc-1_0", matches[0].ID)
		assert.Equal(t, "name: Alice | age: 30", matches[0].DisplayText)
		assert.Equal(t, "people.csv", matches[0].Source)
		assert.Equal(t, `{"name":"Alice","age":"30"}`, matches[0].OriginalForm)
		assert.InDelta(t, 0.12, matches[0].Distance, 0.001)

		assert.Equal(t, "doc-1_1", matches[1].ID)
		assert.Empty(t, matches[1].OriginalForm)
		assert.InDelta(t, 0.37, matches[1].Distance, 0.001)
	})

	t.Run("Empty Class", func(t *testing.T) {
		data := map[string]models.JSONObject{
			"Get": map[string]interface{}{
				"DocumentChunk": []interface{}{},
			},
		}
		matches := parseMatches(data)
		assert.NotNil(t, matches)
		assert.Empty(t, matches)
	})

	t.Run("Missing Get Key", func(t *testing.T) {
		matches := parseMatches(map[string]models.JSONObject{})
		assert.NotNil(t, matches)
		assert.Empty(t, matches)
	})
}

func TestExtractIndex(t *testing.T) {
	assert.Equal(t, 0, extractIndex("doc-1_0"))
	assert.Equal(t, 12, extractIndex("doc-1_12"))
	// UUIDs contain no underscores, so the last segment is the index even
	// when the doc id itself has dashes.
	assert.Equal(t, 3, extractIndex("550e8400-e29b-41d4-a716-446655440000_3"))
	assert.Equal(t, 0, extractIndex("no-underscore"))
}
