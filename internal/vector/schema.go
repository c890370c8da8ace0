package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

const ClassName = "DocumentChunk"

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// EnsureSchema creates the DocumentChunk class if missing and backfills any
// missing properties on an existing class. Vectorizer is "none": vectors are
// computed by the embedding adapter, never by Weaviate.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	exists, err := client.ClassExists(ctx, ClassName)
	if err != nil {
		return err
	}

	properties := []*models.Property{
		{
			Name:     "chunkId",
			DataType: []string{"string"}, // "{docId}_{chunkIndex}", exact match
		},
		{
			Name:     "docId",
			DataType: []string{"string"},
		},
		{
			Name:     "content",
			DataType: []string{"text"},
		},
		{
			Name:     "source",
			DataType: []string{"string"},
		},
		{
			Name:     "originalForm",
			DataType: []string{"text"}, // serialized row/object, "" for plain text
		},
		{
			Name:     "chunkIndex",
			DataType: []string{"int"},
		},
	}

	if !exists {
		class := &models.Class{
			Class:       ClassName,
			Description: "A retrievable chunk of an ingested document",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, ClassName)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, ClassName, p); err != nil {
				return err
			}
		}
	}

	return nil
}
