package ports

import (
	"context"
	"io"
	"time"

	"catalog/internal/model"
)

// SchemaValidator validates a raw payload against a named JSON schema.
type SchemaValidator interface {
	Validate(ctx context.Context, schema string, payload []byte) error
}

// ObjectStorage is the object store capability used by the import pipeline.
type ObjectStorage interface {
	// PresignUpload returns a time-limited URL allowing a PUT of objectName
	// with the given content type into the configured bucket.
	PresignUpload(ctx context.Context, objectName, contentType string, expires time.Duration) (string, error)
	// Open streams an object. The caller must close the reader.
	Open(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	Copy(ctx context.Context, bucket, srcObject, dstObject string) error
	Delete(ctx context.Context, bucket, objectName string) error
	GetBucket() string
}

// EventPublisher sends messages to a topic (row queue or notification topic).
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, attributes map[string]string) error
}

// ProductRepository persists products and their stock.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]model.ProductWithStock, error)
	// GetProduct returns (nil, nil) when no product has the id.
	GetProduct(ctx context.Context, id string) (*model.ProductWithStock, error)
	// CreateProduct writes the product and its stock atomically.
	CreateProduct(ctx context.Context, product model.Product, count int) error
}
