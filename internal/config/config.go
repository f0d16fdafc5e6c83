package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	Port        string `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	MinIOEndpoint  string `envconfig:"MINIO_ENDPOINT" required:"true"`
	MinIOAccessKey string `envconfig:"MINIO_ACCESS_KEY" required:"true"`
	MinIOSecretKey string `envconfig:"MINIO_SECRET_KEY" required:"true"`
	MinIOUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	MinIOBucket    string `envconfig:"MINIO_BUCKET" default:"catalog-imports"`

	KafkaBrokers     string `envconfig:"KAFKA_BROKERS" required:"true"`
	KafkaItemsTopic  string `envconfig:"KAFKA_ITEMS_TOPIC" default:"catalog.items"`
	KafkaItemsGroup  string `envconfig:"KAFKA_ITEMS_GROUP" default:"catalog-batch-process"`
	KafkaNotifyTopic string `envconfig:"KAFKA_NOTIFY_TOPIC" default:"catalog.products-created"`

	BatchSize         int           `envconfig:"BATCH_SIZE" default:"5"`
	BatchWait         time.Duration `envconfig:"BATCH_WAIT" default:"2s"`
	BatchRetryBackoff time.Duration `envconfig:"BATCH_RETRY_BACKOFF" default:"5s"`
	ImportMaxInFlight int           `envconfig:"IMPORT_MAX_IN_FLIGHT" default:"32"`
	NotifyMode        string        `envconfig:"NOTIFY_MODE" default:"aggregate"`

	AuthCredentials Credentials `envconfig:"AUTH_CREDENTIALS"`
	AuthDenyMode    string            `envconfig:"AUTH_DENY_MODE" default:"policy"`
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Printf("Warning: error loading .env file: %v\n", err)
	}

	config := &Config{}

	err = envconfig.Process("", config)
	if err != nil {
		return nil, fmt.Errorf("error processing envconfig: %w", err)
	}

	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("BATCH_SIZE must be positive, got %d", config.BatchSize)
	}

	return config, nil
}

// Credentials maps usernames to secrets. It decodes "user:secret,user2:secret2",
// splitting each pair on its first colon so secrets may contain ':'.
type Credentials map[string]string

func (c *Credentials) Decode(value string) error {
	creds := Credentials{}
	for _, pair := range strings.Split(value, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		user, secret, ok := strings.Cut(pair, ":")
		user = strings.TrimSpace(user)
		if !ok || user == "" {
			return fmt.Errorf("invalid credential pair %q, want user:secret", pair)
		}
		creds[user] = secret
	}
	*c = creds
	return nil
}
