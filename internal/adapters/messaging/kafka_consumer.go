package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"catalog/internal/model"
)

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReaderFactory opens a reader positioned at the group's committed offsets.
type ReaderFactory func() MessageReader

type BatchConsumerConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string
	BatchSize    int
	BatchWait    time.Duration
	RetryBackoff time.Duration
}

// BatchHandler processes one delivered batch. An error leaves the batch
// uncommitted so it is delivered again.
type BatchHandler func(ctx context.Context, batch []model.QueueMessage) error

// KafkaBatchConsumer delivers row-queue messages in batches of at most
// BatchSize, committing offsets only after the handler succeeds.
type KafkaBatchConsumer struct {
	cfg       BatchConsumerConfig
	newReader ReaderFactory
	logger    zerolog.Logger
}

func NewKafkaBatchConsumer(cfg BatchConsumerConfig, logger zerolog.Logger) (*KafkaBatchConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, fmt.Errorf("topic and group id are required")
	}
	factory := func() MessageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}
	return NewKafkaBatchConsumerWithReader(cfg, factory, logger), nil
}

func NewKafkaBatchConsumerWithReader(cfg BatchConsumerConfig, factory ReaderFactory, logger zerolog.Logger) *KafkaBatchConsumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.BatchWait <= 0 {
		cfg.BatchWait = 2 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 5 * time.Second
	}
	return &KafkaBatchConsumer{
		cfg:       cfg,
		newReader: factory,
		logger:    logger.With().Str("component", "KafkaBatchConsumer").Str("topic", cfg.Topic).Logger(),
	}
}

// Run consumes until ctx is cancelled. A failed batch closes the reader and
// reopens it after RetryBackoff, which rewinds to the last committed offset.
func (c *KafkaBatchConsumer) Run(ctx context.Context, handle BatchHandler) error {
	reader := c.newReader()
	defer func() {
		if err := reader.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to close reader")
		}
	}()
	c.logger.Info().Str("group_id", c.cfg.GroupID).Int("batch_size", c.cfg.BatchSize).Msg("Consuming batches")

	for {
		batch, err := c.fetchBatch(ctx, reader)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to fetch messages")
			reader = c.reopen(ctx, reader)
			continue
		}

		if err := handle(ctx, toQueueMessages(batch)); err != nil {
			c.logger.Error().Err(err).Int("size", len(batch)).Msg("Batch failed, will be redelivered")
			reader = c.reopen(ctx, reader)
			continue
		}

		if err := reader.CommitMessages(ctx, batch...); err != nil {
			c.logger.Error().Err(err).Int("size", len(batch)).Msg("Failed to commit batch")
		}
	}
}

// fetchBatch blocks for the first message, then gathers more until the
// batch is full or BatchWait has passed.
func (c *KafkaBatchConsumer) fetchBatch(ctx context.Context, reader MessageReader) ([]kafka.Message, error) {
	first, err := reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []kafka.Message{first}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.BatchWait)
	defer cancel()
	for len(batch) < c.cfg.BatchSize {
		msg, err := reader.FetchMessage(waitCtx)
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				c.logger.Warn().Err(err).Msg("Stopped filling batch early")
			}
			break
		}
		batch = append(batch, msg)
	}
	return batch, nil
}

func (c *KafkaBatchConsumer) reopen(ctx context.Context, reader MessageReader) MessageReader {
	if err := reader.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to close reader")
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.RetryBackoff):
	}
	return c.newReader()
}

func toQueueMessages(batch []kafka.Message) []model.QueueMessage {
	out := make([]model.QueueMessage, 0, len(batch))
	for _, m := range batch {
		out = append(out, model.QueueMessage{
			ID:   fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset),
			Body: m.Value,
		})
	}
	return out
}
