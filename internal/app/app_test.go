package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"autodb/internal/config"
	"autodb/internal/index"
)

type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) AddBatch(ctx context.Context, entries []index.Entry, vectors [][]float32) error {
	args := m.Called(ctx, entries, vectors)
	return args.Error(0)
}

func (m *MockVectorStore) NearVector(ctx context.Context, vector []float32, k int) ([]index.Match, error) {
	args := m.Called(ctx, vector, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]index.Match), args.Error(1)
}

func (m *MockVectorStore) CountChunks(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SearchTopK:      8,
		ServerPort:      8081,
		MaxUploadSizeMB: 50,
		QueryLogPath:    filepath.Join(t.TempDir(), "query.log"),
	}
}

func newTestApp(t *testing.T) (*App, *MockVectorStore, *MockLLM) {
	t.Helper()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := new(MockVectorStore)
	llm := new(MockLLM)
	pub := new(MockPublisher)

	a, err := New(testConfig(t), db, store, llm, pub)
	require.NoError(t, err)
	return a, store, llm
}

func TestApp_Routes(t *testing.T) {
	t.Run("Health", func(t *testing.T) {
		a, _, _ := newTestApp(t)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("Search Requires Query", func(t *testing.T) {
		a, _, _ := newTestApp(t)

		req := httptest.NewRequest(http.MethodGet, "/search", nil)
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Search Empty Index", func(t *testing.T) {
		a, store, llm := newTestApp(t)

		llm.On("Embed", mock.Anything, "anything").Return([]float32{0.1}, nil)
		store.On("NearVector", mock.Anything, mock.Anything, 8).Return([]index.Match{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/search?q=anything", nil)
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "find anything relevant")
		llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	})

	t.Run("CORS Headers Set", func(t *testing.T) {
		a, store, llm := newTestApp(t)

		llm.On("Embed", mock.Anything, "x").Return([]float32{0.1}, nil)
		store.On("NearVector", mock.Anything, mock.Anything, 8).Return([]index.Match{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/search?q=x", nil)
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
