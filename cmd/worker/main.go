package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"catalog/internal/config/di"
	"catalog/internal/model"
	logger "catalog/internal/shared/log"
)

// The worker runs the asynchronous half of the import pipeline: uploads
// under uploaded/ become row messages, and row batches become products.
func main() {
	container, err := di.InitContainer()
	if err != nil {
		fmt.Printf("Failed to initialize container: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handleUpload := func(ctx context.Context, event model.ObjectCreatedEvent) error {
		ctx = logger.WithRequestID(ctx, uuid.NewString())
		summaries, err := container.ImportService.ProcessUpload(ctx, event)
		for _, s := range summaries {
			logger.Infof(ctx, "Imported %s: %d rows, %d failed sends", s.Key, s.Rows, s.Failed)
		}
		return err
	}

	handleBatch := func(ctx context.Context, batch []model.QueueMessage) error {
		ctx = logger.WithRequestID(ctx, uuid.NewString())
		_, err := container.BatchService.ProcessBatch(ctx, batch)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return container.UploadListener.Listen(gctx, handleUpload)
	})
	g.Go(func() error {
		return container.BatchConsumer.Run(gctx, handleBatch)
	})

	logger.Info(ctx, "Catalog worker started")
	if err := g.Wait(); err != nil {
		logger.Error(ctx, err, "Worker stopped with error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := container.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, err, "Error during container shutdown")
	}
}
