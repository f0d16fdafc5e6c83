package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"catalog/internal/model"
	"catalog/internal/ports"
)

// ProductRepository implements ports.ProductRepository on the products and
// stocks tables.
type ProductRepository struct {
	db *gorm.DB
}

var _ ports.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository(db *gorm.DB) (*ProductRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	return &ProductRepository{db: db}, nil
}

// ListProducts scans both tables and joins them in memory. Products without
// a stock row report a count of 0.
func (r *ProductRepository) ListProducts(ctx context.Context) ([]model.ProductWithStock, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).Order("title").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	if len(products) == 0 {
		return []model.ProductWithStock{}, nil
	}

	var stocks []model.Stock
	if err := r.db.WithContext(ctx).Find(&stocks).Error; err != nil {
		return nil, fmt.Errorf("scan stocks: %w", err)
	}
	counts := make(map[string]int, len(stocks))
	for _, s := range stocks {
		counts[s.ProductID] = s.Count
	}

	out := make([]model.ProductWithStock, 0, len(products))
	for _, p := range products {
		out = append(out, model.ProductWithStock{Product: p, Count: counts[p.ID]})
	}
	return out, nil
}

func (r *ProductRepository) GetProduct(ctx context.Context, id string) (*model.ProductWithStock, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}

	var stock model.Stock
	err = r.db.WithContext(ctx).Where("product_id = ?", id).Take(&stock).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get stock %s: %w", id, err)
	}

	return &model.ProductWithStock{Product: product, Count: stock.Count}, nil
}

// CreateProduct inserts the product and its stock in one transaction.
func (r *ProductRepository) CreateProduct(ctx context.Context, product model.Product, count int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		stock := model.Stock{ProductID: product.ID, Count: count}
		if err := tx.Create(&stock).Error; err != nil {
			return fmt.Errorf("insert stock: %w", err)
		}
		return nil
	})
}
