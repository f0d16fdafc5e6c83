package domain

import (
	"context"
	"encoding/json"
	"fmt"

	"catalog/internal/model"
	"catalog/internal/ports"
	logger "catalog/internal/shared/log"
)

// ImportRowSchema names the JSON schema every queued row must satisfy.
const ImportRowSchema = "import-row"

// CatalogBatchService validates and persists rows delivered by the row queue.
type CatalogBatchService struct {
	products *ProductService
	schemas  ports.SchemaValidator
	notifier NotificationStrategy
}

// BatchResult summarizes one processed batch.
type BatchResult struct {
	Total      int
	CreatedIDs []string
	Skipped    int
}

func NewCatalogBatchService(products *ProductService, schemas ports.SchemaValidator, notifier NotificationStrategy) (*CatalogBatchService, error) {
	if products == nil {
		return nil, fmt.Errorf("product service is nil")
	}
	if schemas == nil {
		return nil, fmt.Errorf("schema validator is nil")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification strategy is nil")
	}
	return &CatalogBatchService{products: products, schemas: schemas, notifier: notifier}, nil
}

// ProcessBatch handles messages strictly in order. An undecodable message
// or a failed create aborts the whole batch so the queue redelivers it;
// rows failing validation are skipped.
func (s *CatalogBatchService) ProcessBatch(ctx context.Context, messages []model.QueueMessage) (BatchResult, error) {
	result := BatchResult{Total: len(messages), CreatedIDs: []string{}}
	logger.Infof(ctx, "Processing batch of %d records", len(messages))

	for _, msg := range messages {
		row, err := s.decodeRow(ctx, msg)
		if err != nil {
			return result, err
		}

		candidate := CandidateFromRow(row)
		validation := ValidateProduct(candidate)
		if validation.IsError {
			result.Skipped++
			logger.Warnf(ctx, "Skipping invalid record %s: %v", msg.ID, validation.Errors)
			continue
		}
		in, err := candidate.ToCreateProduct()
		if err != nil {
			result.Skipped++
			logger.Warnf(ctx, "Skipping invalid record %s: %v", msg.ID, err)
			continue
		}

		created, err := s.products.Create(ctx, in)
		if err != nil {
			return result, fmt.Errorf("create product from record %s: %w", msg.ID, err)
		}
		result.CreatedIDs = append(result.CreatedIDs, created.ID)

		if err := s.notifier.ProductCreated(ctx, *created); err != nil {
			return result, err
		}
	}

	if len(result.CreatedIDs) == 0 {
		logger.Info(ctx, "No products created in batch")
		return result, nil
	}
	if err := s.notifier.BatchCompleted(ctx, result.CreatedIDs, result.Total); err != nil {
		return result, err
	}
	logger.Infof(ctx, "Batch done: %d created, %d skipped of %d", len(result.CreatedIDs), result.Skipped, result.Total)
	return result, nil
}

func (s *CatalogBatchService) decodeRow(ctx context.Context, msg model.QueueMessage) (model.ImportRow, error) {
	if err := s.schemas.Validate(ctx, ImportRowSchema, msg.Body); err != nil {
		return nil, fmt.Errorf("record %s does not match %s: %w", msg.ID, ImportRowSchema, err)
	}
	var row model.ImportRow
	if err := json.Unmarshal(msg.Body, &row); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", msg.ID, err)
	}
	return row, nil
}
