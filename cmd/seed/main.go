package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"catalog/internal/config/di"
	"catalog/internal/domain"
	"catalog/internal/model"
	logger "catalog/internal/shared/log"
)

var samples = []model.CreateProduct{
	{Title: "Alpaca White", Description: "Funny toy white alpaca", Price: 25},
	{Title: "Alpaca Brown", Description: "Funny toy brown alpaca", Price: 33},
	{Title: "Alpaca Black", Description: "Funny toy black alpaca", Price: 46},
}

// seed fills the catalog with a few sample products, each with a random
// stock count between 1 and 100.
func main() {
	ctx := context.Background()

	container, err := di.InitContainer()
	if err != nil {
		fmt.Printf("Failed to initialize container: %v\n", err)
		os.Exit(1)
	}

	failed := seed(ctx, container.ProductService)

	if err := container.Shutdown(ctx); err != nil {
		logger.Error(ctx, err, "Error during container shutdown")
	}
	if failed > 0 {
		fmt.Printf("Seeding finished with %d failures\n", failed)
		os.Exit(1)
	}
	fmt.Println("Database population completed successfully!")
}

func seed(ctx context.Context, products *domain.ProductService) int {
	failed := 0
	for _, sample := range samples {
		sample.Count = rand.Intn(100) + 1
		product, err := products.Create(ctx, sample)
		if err != nil {
			failed++
			logger.Errorf(ctx, err, "Failed to add product %s", sample.Title)
			continue
		}
		logger.Infof(ctx, "Added product %s with id %s, count %d", product.Title, product.ID, product.Count)
	}
	return failed
}
