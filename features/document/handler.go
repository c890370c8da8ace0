package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"autodb/internal/ingest"
	"autodb/internal/middleware"
)

type Handler struct {
	service       *Service
	maxUploadSize int64
}

func NewHandler(service *Service, maxUploadSize int64) *Handler {
	return &Handler{service: service, maxUploadSize: maxUploadSize}
}

// Save is the flexible ingestion endpoint: a multipart file upload, a raw
// "text" form value, or a stringified "json_payload" form value, plus an
// optional "filename" override. Malformed payloads and missing input are
// reported as structured SaveResult failures, not transport errors.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unable to parse form", http.StatusBadRequest)
		return
	}

	filename := r.FormValue("filename")

	in, err := h.resolveInput(r, filename)
	if errors.Is(err, ErrNoInput) {
		h.writeResult(r.Context(), w, &SaveResult{Message: "No input provided"})
		return
	}
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Ingest(r.Context(), in.kind, in.payload, in.filename)
	if errors.Is(err, ingest.ErrInvalidInput) {
		h.writeResult(r.Context(), w, &SaveResult{Message: invalidMessage(in)})
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "ingestion failed", "error", err, "filename", in.filename)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeResult(r.Context(), w, result)
}

type resolvedInput struct {
	kind     ingest.Kind
	payload  []byte
	filename string
	fromFile bool
}

// resolveInput picks the ingestion channel: file upload wins over
// json_payload, which wins over text.
func (h *Handler) resolveInput(r *http.Request, filename string) (resolvedInput, error) {
	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			return resolvedInput{}, err
		}
		name := filename
		if name == "" {
			name = header.Filename
		}
		return resolvedInput{kind: ingest.KindForFilename(name), payload: content, filename: name, fromFile: true}, nil
	}

	if jsonPayload := r.FormValue("json_payload"); jsonPayload != "" {
		return resolvedInput{kind: ingest.KindJSON, payload: []byte(jsonPayload), filename: filename}, nil
	}

	if text := r.FormValue("text"); text != "" {
		return resolvedInput{kind: ingest.KindText, payload: []byte(text), filename: filename}, nil
	}

	return resolvedInput{}, ErrNoInput
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	if docs == nil {
		docs = []Document{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": docs,
		"meta": map[string]int{"count": len(docs)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Document not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": doc}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeResult(ctx context.Context, w http.ResponseWriter, result *SaveResult) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

func invalidMessage(in resolvedInput) string {
	if in.kind == ingest.KindCSV {
		return "Invalid CSV file"
	}
	if in.fromFile {
		return "Invalid JSON file"
	}
	return "Invalid JSON payload"
}
