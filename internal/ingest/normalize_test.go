package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindForFilename(t *testing.T) {
	assert.Equal(t, KindCSV, KindForFilename("people.csv"))
	assert.Equal(t, KindCSV, KindForFilename("PEOPLE.CSV"))
	assert.Equal(t, KindJSON, KindForFilename("data.json"))
	assert.Equal(t, KindText, KindForFilename("notes.txt"))
	assert.Equal(t, KindText, KindForFilename("README"))
}

func TestNormalizeText(t *testing.T) {
	chunks, err := Normalize(KindText, []byte("hello world"))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "hello world", chunks[0].DisplayText)
	assert.Empty(t, chunks[0].OriginalForm)
}

func TestNormalizeJSON(t *testing.T) {
	t.Run("Array Of Objects", func(t *testing.T) {
		payload := []byte(`[{"name":"Alice","age":30},{"name":"Bob","age":25}]`)
		chunks, err := Normalize(KindJSON, payload)
		require.NoError(t, err)
		require.Len(t, chunks, 2)

		assert.Equal(t, "name: Alice | age: 30", chunks[0].DisplayText)
		assert.Equal(t, `{"name":"Alice","age":30}`, chunks[0].OriginalForm)
		assert.Equal(t, "name: Bob | age: 25", chunks[1].DisplayText)
		assert.Equal(t, 1, chunks[1].Index)
	})

	t.Run("Single Object", func(t *testing.T) {
		chunks, err := Normalize(KindJSON, []byte(`{"city":"Oslo","pop":700000}`))
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "city: Oslo | pop: 700000", chunks[0].DisplayText)
		assert.Equal(t, `{"city":"Oslo","pop":700000}`, chunks[0].OriginalForm)
	})

	t.Run("Key Order Preserved", func(t *testing.T) {
		// encoding/json maps would sort these alphabetically.
		chunks, err := Normalize(KindJSON, []byte(`{"zeta":1,"alpha":2,"mid":3}`))
		require.NoError(t, err)
		assert.Equal(t, "zeta: 1 | alpha: 2 | mid: 3", chunks[0].DisplayText)
	})

	t.Run("Deterministic Flattening", func(t *testing.T) {
		payload := []byte(`{"a":1,"b":{"c":true}}`)
		first, err := Normalize(KindJSON, payload)
		require.NoError(t, err)
		second, err := Normalize(KindJSON, payload)
		require.NoError(t, err)
		assert.Equal(t, first[0].DisplayText, second[0].DisplayText)
	})

	t.Run("Nested Values Compacted", func(t *testing.T) {
		chunks, err := Normalize(KindJSON, []byte(`{"tags": ["a", "b"], "meta": {"x": 1}}`))
		require.NoError(t, err)
		assert.Equal(t, `tags: ["a","b"] | meta: {"x":1}`, chunks[0].DisplayText)
	})

	t.Run("Scalar", func(t *testing.T) {
		chunks, err := Normalize(KindJSON, []byte(`42`))
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "42", chunks[0].DisplayText)
		assert.Equal(t, "42", chunks[0].OriginalForm)
	})

	t.Run("String Scalar Unquoted", func(t *testing.T) {
		chunks, err := Normalize(KindJSON, []byte(`"just text"`))
		require.NoError(t, err)
		assert.Equal(t, "just text", chunks[0].DisplayText)
	})

	t.Run("Empty Array", func(t *testing.T) {
		chunks, err := Normalize(KindJSON, []byte(`[]`))
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "[]", chunks[0].DisplayText)
	})

	t.Run("Heterogeneous Array", func(t *testing.T) {
		chunks, err := Normalize(KindJSON, []byte(`[1, {"a": 2}]`))
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, `[1,{"a":2}]`, chunks[0].DisplayText)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := Normalize(KindJSON, []byte(`{bad json`))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestNormalizeCSV(t *testing.T) {
	t.Run("Rows In File Order", func(t *testing.T) {
		payload := []byte("name,age\nAlice,30\nBob,25\n")
		chunks, err := Normalize(KindCSV, payload)
		require.NoError(t, err)
		require.Len(t, chunks, 2)

		assert.Equal(t, "name: Alice | age: 30", chunks[0].DisplayText)
		assert.Equal(t, "name: Bob | age: 25", chunks[1].DisplayText)
		assert.Equal(t, 0, chunks[0].Index)
		assert.Equal(t, 1, chunks[1].Index)
	})

	t.Run("Original Form Round Trips", func(t *testing.T) {
		chunks, err := Normalize(KindCSV, []byte("name,age\nAlice,30\n"))
		require.NoError(t, err)

		var row map[string]string
		require.NoError(t, json.Unmarshal([]byte(chunks[0].OriginalForm), &row))
		assert.Equal(t, map[string]string{"name": "Alice", "age": "30"}, row)
	})

	t.Run("Header Only", func(t *testing.T) {
		chunks, err := Normalize(KindCSV, []byte("name,age\n"))
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Ragged Rows Rejected", func(t *testing.T) {
		_, err := Normalize(KindCSV, []byte("name,age\nAlice\n"))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Empty Payload Rejected", func(t *testing.T) {
		_, err := Normalize(KindCSV, []byte(""))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Quoted Fields", func(t *testing.T) {
		chunks, err := Normalize(KindCSV, []byte("name,notes\nAlice,\"likes, commas\"\n"))
		require.NoError(t, err)
		assert.Equal(t, "name: Alice | notes: likes, commas", chunks[0].DisplayText)
	})
}
