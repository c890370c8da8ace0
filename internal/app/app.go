package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"autodb/features/answer"
	"autodb/features/document"
	"autodb/features/stats"
	"autodb/internal/config"
	"autodb/internal/index"
	"autodb/internal/middleware"
)

// VectorStore is everything the app needs from the nearest-neighbor index.
type VectorStore interface {
	index.ChunkStore
	CountChunks(ctx context.Context) (int, error)
}

// LLM is everything the app needs from the model provider: a pure embedding
// function and a single-turn completion call.
type LLM interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

type App struct {
	Handler http.Handler
	port    int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	llm LLM,
	pub document.EventPublisher,
) (*App, error) {

	// Feature: Document (ingestion)
	indexer := index.NewIndexer(llm, vecStore)
	documentRepo := document.NewPostgresRepo(db)
	documentService := document.NewService(documentRepo, indexer, pub)
	documentHandler := document.NewHandler(documentService, cfg.MaxUploadSizeMB<<20)

	// Feature: Answer (query)
	queryLogger, err := answer.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = answer.NewQueryLogger(os.Stdout)
	}
	answerService := answer.NewService(indexer, llm, cfg.SearchTopK, queryLogger)
	answerHandler := answer.NewHandler(answerService)

	// Feature: Stats
	statsHandler := stats.NewHandler(documentRepo, vecStore)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /save", middleware.CorrelationID(enableCORS(documentHandler.Save)))
	mux.Handle("GET /search", middleware.CorrelationID(enableCORS(answerHandler.Search)))

	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(documentHandler.List)))
	mux.Handle("GET /documents/{id}", middleware.CorrelationID(enableCORS(documentHandler.Get)))
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{Handler: mux, port: cfg.ServerPort}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
