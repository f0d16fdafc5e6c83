package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"catalog/internal/model"
	"catalog/internal/ports"
	appError "catalog/internal/shared/error"
	logger "catalog/internal/shared/log"
)

// ProductService serves the products API and the batch import.
type ProductService struct {
	repo  ports.ProductRepository
	newID func() string
}

func NewProductService(repo ports.ProductRepository) (*ProductService, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository is nil")
	}
	return &ProductService{
		repo:  repo,
		newID: uuid.NewString,
	}, nil
}

func (s *ProductService) List(ctx context.Context) ([]model.ProductWithStock, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		logger.Error(ctx, err, "Failed to list products")
		return nil, appError.ErrDatabaseReadFailed.WithCause(err)
	}
	if products == nil {
		products = []model.ProductWithStock{}
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*model.ProductWithStock, error) {
	if id == "" {
		return nil, appError.ErrProductIDRequired
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		logger.Errorf(ctx, err, "Failed to fetch product %s", id)
		return nil, appError.ErrDatabaseReadFailed.WithCause(err)
	}
	if product == nil {
		return nil, appError.ErrProductNotFound
	}
	return product, nil
}

// Create assigns a fresh id and stores the product together with its stock.
// Any storage failure is returned as ErrPersistence wrapping the cause.
func (s *ProductService) Create(ctx context.Context, in model.CreateProduct) (*model.ProductWithStock, error) {
	product := model.Product{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
	}

	if err := s.repo.CreateProduct(ctx, product, in.Count); err != nil {
		logger.Errorf(ctx, err, "Transaction failed for product %q", in.Title)
		return nil, appError.ErrPersistence.WithCause(err)
	}
	logger.Infof(ctx, "Created product %s with count %d", product.ID, in.Count)

	return &model.ProductWithStock{Product: product, Count: in.Count}, nil
}

// CreateFromCandidate validates a raw candidate and creates it. Invalid
// candidates yield a 400 listing every violated rule.
func (s *ProductService) CreateFromCandidate(ctx context.Context, c ProductCandidate) (*model.ProductWithStock, error) {
	result := ValidateProduct(c)
	if result.IsError {
		return nil, appError.NewValidationError(result.Errors)
	}
	in, err := c.ToCreateProduct()
	if err != nil {
		return nil, appError.NewValidationError([]string{err.Error()})
	}
	return s.Create(ctx, in)
}
