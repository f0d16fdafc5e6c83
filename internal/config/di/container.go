package di

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"catalog/internal/adapters/messaging"
	"catalog/internal/adapters/persistence"
	"catalog/internal/adapters/storage"
	"catalog/internal/adapters/validation"
	"catalog/internal/config"
	"catalog/internal/domain"
	db "catalog/internal/shared/database"
	logger "catalog/internal/shared/log"
)

type Container struct {
	Config *config.Config
	DB     *gorm.DB

	Publisher *messaging.KafkaPublisher

	ProductService *domain.ProductService
	ImportService  *domain.ImportService
	BatchService   *domain.CatalogBatchService
	Authorizer     *domain.Authorizer

	UploadListener *storage.UploadListener
	BatchConsumer  *messaging.KafkaBatchConsumer
}

func (c *Container) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "Shutting down container resources...")

	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.Error(ctx, err, "Failed to close Kafka publisher")
		}
	}

	if c.DB != nil {
		if err := db.Close(c.DB); err != nil {
			logger.Error(ctx, err, "Failed to close database connection")
		}
	}

	logger.Info(ctx, "Container shutdown complete")
	return nil
}

func InitContainer() (*Container, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.LogLevel)

	logger.Info(ctx, "Initializing database...")
	database, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logger.Info(ctx, "Running database migrations...")
	if err := MigrateDB(database); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info(ctx, "Database migrations completed successfully")

	repo, err := persistence.NewProductRepository(database)
	if err != nil {
		return nil, err
	}

	minioCfg := storage.MinIOConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOBucket,
	}
	minioClient, err := storage.NewMinIOClient(minioCfg)
	if err != nil {
		return nil, err
	}
	objectStorage, err := storage.NewMinIOStorage(minioClient, minioCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO storage: %w", err)
	}

	kafkaCfg := messaging.KafkaConfig{Brokers: cfg.KafkaBrokers}
	publisher, err := messaging.NewKafkaPublisher(kafkaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Kafka publisher: %w", err)
	}

	schemaValidator, err := validation.NewJSONSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize schema validator: %w", err)
	}

	productService, err := domain.NewProductService(repo)
	if err != nil {
		return nil, err
	}

	importService, err := domain.NewImportService(objectStorage, publisher, schemaValidator, domain.ImportConfig{
		ItemsTopic:  cfg.KafkaItemsTopic,
		MaxInFlight: cfg.ImportMaxInFlight,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ImportService: %w", err)
	}

	notifier, err := domain.NewNotificationStrategy(cfg.NotifyMode, publisher, cfg.KafkaNotifyTopic)
	if err != nil {
		return nil, err
	}
	batchService, err := domain.NewCatalogBatchService(productService, schemaValidator, notifier)
	if err != nil {
		return nil, fmt.Errorf("failed to create CatalogBatchService: %w", err)
	}

	denyMode, err := domain.ParseDenyMode(cfg.AuthDenyMode)
	if err != nil {
		return nil, err
	}
	authorizer := domain.NewAuthorizer(domain.AuthorizerConfig{
		Credentials: cfg.AuthCredentials,
		DenyMode:    denyMode,
	})

	listener, err := storage.NewUploadListener(minioClient, cfg.MinIOBucket, domain.UploadedPrefix, logger.Logger())
	if err != nil {
		return nil, err
	}

	consumer, err := messaging.NewKafkaBatchConsumer(messaging.BatchConsumerConfig{
		Brokers:      kafkaCfg.BrokerList(),
		Topic:        cfg.KafkaItemsTopic,
		GroupID:      cfg.KafkaItemsGroup,
		BatchSize:    cfg.BatchSize,
		BatchWait:    cfg.BatchWait,
		RetryBackoff: cfg.BatchRetryBackoff,
	}, logger.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create batch consumer: %w", err)
	}

	return &Container{
		Config:         cfg,
		DB:             database,
		Publisher:      publisher,
		ProductService: productService,
		ImportService:  importService,
		BatchService:   batchService,
		Authorizer:     authorizer,
		UploadListener: listener,
		BatchConsumer:  consumer,
	}, nil
}
