package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"catalog/internal/model"
	"catalog/internal/ports"
)

const (
	NotifyAggregate  = "aggregate"
	NotifyPerProduct = "per_product"

	createdSubject = "Products created"
)

// NotificationStrategy decides what the batch processor publishes after
// creating products.
type NotificationStrategy interface {
	// ProductCreated is called after each successful create.
	ProductCreated(ctx context.Context, product model.ProductWithStock) error
	// BatchCompleted is called once per batch with every created id and the
	// number of input records. It is not called when nothing was created.
	BatchCompleted(ctx context.Context, createdIDs []string, total int) error
}

// NewNotificationStrategy returns the strategy registered under mode.
func NewNotificationStrategy(mode string, publisher ports.EventPublisher, topic string) (NotificationStrategy, error) {
	if publisher == nil {
		return nil, fmt.Errorf("notification publisher is nil")
	}
	switch mode {
	case NotifyAggregate, "":
		return &AggregateNotifier{publisher: publisher, topic: topic}, nil
	case NotifyPerProduct:
		return &PerProductNotifier{publisher: publisher, topic: topic}, nil
	default:
		return nil, fmt.Errorf("unknown notification mode %q", mode)
	}
}

// AggregateNotifier publishes a single summary per batch.
type AggregateNotifier struct {
	publisher ports.EventPublisher
	topic     string
}

func (n *AggregateNotifier) ProductCreated(context.Context, model.ProductWithStock) error {
	return nil
}

func (n *AggregateNotifier) BatchCompleted(ctx context.Context, createdIDs []string, total int) error {
	note := model.Notification{
		Subject: createdSubject,
		Message: AggregateMessage(createdIDs, total),
	}
	return publishNotification(ctx, n.publisher, n.topic, note)
}

// AggregateMessage renders the batch summary text.
func AggregateMessage(createdIDs []string, total int) string {
	return fmt.Sprintf("Products created: %s. Total records in batch: %d", strings.Join(createdIDs, ", "), total)
}

// PerProductNotifier publishes one message per created product, carrying
// the price as an attribute for subscriber-side filtering.
type PerProductNotifier struct {
	publisher ports.EventPublisher
	topic     string
}

func (n *PerProductNotifier) ProductCreated(ctx context.Context, product model.ProductWithStock) error {
	body, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("serialize product %s: %w", product.ID, err)
	}
	note := model.Notification{
		Subject: "Product created",
		Message: string(body),
		Attributes: map[string]string{
			"price": strconv.FormatFloat(product.Price, 'f', -1, 64),
		},
	}
	return publishNotification(ctx, n.publisher, n.topic, note)
}

func (n *PerProductNotifier) BatchCompleted(context.Context, []string, int) error {
	return nil
}

func publishNotification(ctx context.Context, publisher ports.EventPublisher, topic string, note model.Notification) error {
	attrs := map[string]string{"subject": note.Subject}
	for k, v := range note.Attributes {
		attrs[k] = v
	}
	if err := publisher.Publish(ctx, topic, nil, []byte(note.Message), attrs); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
