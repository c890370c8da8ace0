package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidInput marks payloads that cannot be parsed as their declared kind.
// Callers convert it into a structured failure response; nothing is persisted.
var ErrInvalidInput = errors.New("invalid input")

type Kind string

const (
	KindText Kind = "text/plain"
	KindJSON Kind = "application/json"
	KindCSV  Kind = "text/csv"
)

// KindForFilename selects the payload kind by file extension. Anything that
// is not .json or .csv is treated as plain text.
func KindForFilename(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return KindCSV
	case ".json":
		return KindJSON
	default:
		return KindText
	}
}

// Chunk is one retrievable unit of an ingested payload. OriginalForm holds a
// compact JSON serialization of the source row/object, or "" for plain text.
type Chunk struct {
	Index        int
	DisplayText  string
	OriginalForm string
}

// Normalize converts a payload into an ordered sequence of chunks.
//
//   - text: exactly one chunk, the full text.
//   - JSON: one chunk per record for a non-empty array of objects, one chunk
//     for a single object, otherwise one chunk with the value's string form.
//   - CSV: header row plus one chunk per data row, in file order.
func Normalize(kind Kind, payload []byte) ([]Chunk, error) {
	switch kind {
	case KindJSON:
		return normalizeJSON(payload)
	case KindCSV:
		return normalizeCSV(payload)
	default:
		return []Chunk{{Index: 0, DisplayText: string(payload)}}, nil
	}
}

func normalizeJSON(payload []byte) ([]Chunk, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty JSON payload", ErrInvalidInput)
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidInput)
	}

	switch trimmed[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if len(elems) > 0 && allObjects(elems) {
			chunks := make([]Chunk, 0, len(elems))
			for i, raw := range elems {
				rec, err := parseRecord(raw)
				if err != nil {
					return nil, err
				}
				chunks = append(chunks, Chunk{
					Index:        i,
					DisplayText:  flattenRecord(rec),
					OriginalForm: compactJSON(raw),
				})
			}
			return chunks, nil
		}
		// Empty or heterogeneous array: treat the whole value as opaque.
		return []Chunk{scalarChunk(trimmed)}, nil
	case '{':
		rec, err := parseRecord(trimmed)
		if err != nil {
			return nil, err
		}
		return []Chunk{{
			Index:        0,
			DisplayText:  flattenRecord(rec),
			OriginalForm: compactJSON(trimmed),
		}}, nil
	default:
		return []Chunk{scalarChunk(trimmed)}, nil
	}
}

func normalizeCSV(payload []byte) ([]Chunk, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: CSV payload has no header row", ErrInvalidInput)
	}

	header := records[0]
	chunks := make([]Chunk, 0, len(records)-1)
	for i, row := range records[1:] {
		parts := make([]string, len(header))
		for c, col := range header {
			parts[c] = col + ": " + row[c]
		}
		chunks = append(chunks, Chunk{
			Index:        i,
			DisplayText:  strings.Join(parts, " | "),
			OriginalForm: rowJSON(header, row),
		})
	}
	return chunks, nil
}

func allObjects(elems []json.RawMessage) bool {
	for _, raw := range elems {
		t := bytes.TrimSpace(raw)
		if len(t) == 0 || t[0] != '{' {
			return false
		}
	}
	return true
}

// recordField preserves one key/value pair of a JSON object in its original
// position. encoding/json maps do not keep insertion order, so objects are
// walked token by token instead.
type recordField struct {
	Key   string
	Value json.RawMessage
}

func parseRecord(raw []byte) ([]recordField, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil { // opening brace
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var fields []recordField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string object key", ErrInvalidInput)
		}
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		fields = append(fields, recordField{Key: key, Value: val})
	}
	return fields, nil
}

// flattenRecord joins "key: value" pairs with " | ", in field order. The same
// record always flattens to the same text; retrieval depends on that.
func flattenRecord(fields []recordField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Key + ": " + valueString(f.Value)
	}
	return strings.Join(parts, " | ")
}

func scalarChunk(raw []byte) Chunk {
	return Chunk{
		Index:        0,
		DisplayText:  valueString(raw),
		OriginalForm: compactJSON(raw),
	}
}

// valueString renders a JSON value for display: strings unquoted, numbers,
// booleans and null as their literals, nested structures as compact JSON.
func valueString(raw json.RawMessage) string {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return ""
	}
	if t[0] == '"' {
		var s string
		if err := json.Unmarshal(t, &s); err == nil {
			return s
		}
	}
	if t[0] == '{' || t[0] == '[' {
		return compactJSON(t)
	}
	return string(t)
}

// compactJSON is the serialization step that never fails: on any compaction
// error the raw text itself is returned.
func compactJSON(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(bytes.TrimSpace(raw))
	}
	return buf.String()
}

// rowJSON serializes a CSV row as a JSON object in column order. Values stay
// strings; the CSV layer does not guess at types.
func rowJSON(header, row []string) string {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range header {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, col)
		buf.WriteByte(':')
		writeJSONString(&buf, row[i])
	}
	buf.WriteByte('}')
	return buf.String()
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshal of a string cannot fail, but the fallback mirrors the
		// serialize-or-plain-string contract.
		buf.WriteString(`"` + s + `"`)
		return
	}
	buf.Write(b)
}
