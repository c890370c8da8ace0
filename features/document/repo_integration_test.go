package document_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autodb/features/document"
	"autodb/internal/testutils"
)

func TestPostgresRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	repo := document.NewPostgresRepo(suite.DB)
	ctx := context.Background()

	doc := &document.Document{
		ID:          uuid.New().String(),
		Filename:    "people.csv",
		ContentType: "text/csv",
	}

	require.NoError(t, repo.Create(ctx, doc))
	assert.False(t, doc.CreatedAt.IsZero(), "Create should populate created_at")

	got, err := repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Filename, got.Filename)
	assert.Equal(t, doc.ContentType, got.ContentType)

	docs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
