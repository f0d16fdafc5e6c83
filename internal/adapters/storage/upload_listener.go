package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/rs/zerolog"

	"catalog/internal/model"
)

// NotificationSource abstracts the parts of *minio.Client the listener uses.
type NotificationSource interface {
	ListenBucketNotification(ctx context.Context, bucketName, prefix, suffix string, events []string) <-chan notification.Info
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

var _ NotificationSource = (*minio.Client)(nil)

// UploadHandler processes one object-created event.
type UploadHandler func(ctx context.Context, event model.ObjectCreatedEvent) error

// UploadListener turns bucket notifications under a prefix into
// object-created events.
type UploadListener struct {
	source NotificationSource
	bucket string
	prefix string
	logger zerolog.Logger
}

func NewUploadListener(source NotificationSource, bucket, prefix string, logger zerolog.Logger) (*UploadListener, error) {
	if source == nil {
		return nil, fmt.Errorf("notification source is nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &UploadListener{
		source: source,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With().Str("component", "UploadListener").Str("bucket", bucket).Logger(),
	}, nil
}

// Backlog replays objects still waiting under the prefix, e.g. after a
// failed archive. Keys are escaped the way notifications report them.
func (l *UploadListener) Backlog(ctx context.Context, handle UploadHandler) {
	for obj := range l.source.ListObjects(ctx, l.bucket, minio.ListObjectsOptions{Prefix: l.prefix, Recursive: true}) {
		if obj.Err != nil {
			l.logger.Error().Err(obj.Err).Msg("Failed to list pending uploads")
			return
		}
		event := model.ObjectCreatedEvent{Records: []model.ObjectRecord{{
			Bucket: l.bucket,
			Key:    url.QueryEscape(obj.Key),
		}}}
		if err := handle(ctx, event); err != nil {
			l.logger.Error().Err(err).Str("key", obj.Key).Msg("Failed to process pending upload")
		}
	}
}

// Listen blocks until ctx is done, handing every notification to handle.
// It subscribes before replaying the backlog, so an upload landing during
// the replay waits in the stream instead of being missed. A failed event is
// logged and leaves its object in place.
func (l *UploadListener) Listen(ctx context.Context, handle UploadHandler) error {
	l.logger.Info().Str("prefix", l.prefix).Msg("Listening for uploads")

	infos := l.source.ListenBucketNotification(ctx, l.bucket, l.prefix, "", []string{"s3:ObjectCreated:*"})
	l.Backlog(ctx, handle)
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-infos:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("bucket notification stream closed")
			}
			if info.Err != nil {
				l.logger.Error().Err(info.Err).Msg("Bucket notification error")
				continue
			}
			event := toObjectCreatedEvent(info)
			if err := handle(ctx, event); err != nil {
				l.logger.Error().Err(err).Int("records", len(event.Records)).Msg("Failed to process upload event")
			}
		}
	}
}

func toObjectCreatedEvent(info notification.Info) model.ObjectCreatedEvent {
	event := model.ObjectCreatedEvent{Records: make([]model.ObjectRecord, 0, len(info.Records))}
	for _, rec := range info.Records {
		event.Records = append(event.Records, model.ObjectRecord{
			Bucket: rec.S3.Bucket.Name,
			Key:    rec.S3.Object.Key,
		})
	}
	return event
}
