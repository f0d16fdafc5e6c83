package domain

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"catalog/internal/model"
	"catalog/internal/ports"
	appError "catalog/internal/shared/error"
	logger "catalog/internal/shared/log"
)

const (
	UploadedPrefix = "uploaded/"
	ParsedPrefix   = "parsed/"

	// ObjectCreatedEventSchema names the schema raw object events must satisfy.
	ObjectCreatedEventSchema = "object-created-event"

	csvContentType = "text/csv"
	uploadURLTTL   = 3600 * time.Second
)

// ImportConfig is fixed at construction.
type ImportConfig struct {
	// ItemsTopic is the row queue every parsed row is published to.
	ItemsTopic string
	// MaxInFlight bounds concurrent row sends per file. Zero means unbounded.
	MaxInFlight int
}

// ImportService issues upload URLs and turns uploaded CSV files into
// row messages.
type ImportService struct {
	storage   ports.ObjectStorage
	publisher ports.EventPublisher
	schemas   ports.SchemaValidator
	cfg       ImportConfig
}

// ImportSummary describes one processed upload.
type ImportSummary struct {
	Key         string
	ArchivedKey string
	Rows        int
	Failed      int
}

func NewImportService(storage ports.ObjectStorage, publisher ports.EventPublisher, schemas ports.SchemaValidator, cfg ImportConfig) (*ImportService, error) {
	if storage == nil {
		return nil, fmt.Errorf("object storage is nil")
	}
	if publisher == nil {
		return nil, fmt.Errorf("event publisher is nil")
	}
	if schemas == nil {
		return nil, fmt.Errorf("schema validator is nil")
	}
	if cfg.ItemsTopic == "" {
		return nil, fmt.Errorf("items topic is required")
	}
	return &ImportService{storage: storage, publisher: publisher, schemas: schemas, cfg: cfg}, nil
}

// IssueUploadURL returns a signed PUT URL for uploaded/<name>.
func (s *ImportService) IssueUploadURL(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", appError.ErrNameRequired
	}
	if !strings.HasSuffix(name, ".csv") {
		return "", appError.ErrInvalidExtension
	}

	signed, err := s.storage.PresignUpload(ctx, UploadedPrefix+name, csvContentType, uploadURLTTL)
	if err != nil {
		logger.Errorf(ctx, err, "Failed to presign upload for %s", name)
		return "", appError.ErrHTTPInternalServer.WithCause(err)
	}
	logger.Infof(ctx, "Issued upload URL for %s%s", UploadedPrefix, name)
	return signed, nil
}

// s3EventPayload is the S3-compatible notification body sent by the object
// store's webhook target.
type s3EventPayload struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ProcessUploadPayload validates and decodes a raw notification body, then
// runs ProcessUpload on it.
func (s *ImportService) ProcessUploadPayload(ctx context.Context, payload []byte) ([]ImportSummary, error) {
	if err := s.schemas.Validate(ctx, ObjectCreatedEventSchema, payload); err != nil {
		logger.Warnf(ctx, "Rejected object event: %v", err)
		return nil, appError.ErrMalformedEvent.WithCause(err)
	}

	var raw s3EventPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, appError.ErrMalformedEvent.WithCause(err)
	}
	event := model.ObjectCreatedEvent{Records: make([]model.ObjectRecord, 0, len(raw.Records))}
	for _, r := range raw.Records {
		event.Records = append(event.Records, model.ObjectRecord{Bucket: r.S3.Bucket.Name, Key: r.S3.Object.Key})
	}
	return s.ProcessUpload(ctx, event)
}

// ProcessUpload handles an object-created event. Every record is streamed,
// each CSV data line is published to the row queue, and the object is
// moved to parsed/ once all sends have been attempted.
func (s *ImportService) ProcessUpload(ctx context.Context, event model.ObjectCreatedEvent) ([]ImportSummary, error) {
	if len(event.Records) == 0 {
		logger.Warn(ctx, "No records found in the event")
		return nil, appError.ErrMalformedEvent
	}

	summaries := make([]ImportSummary, 0, len(event.Records))
	for _, record := range event.Records {
		key, err := url.QueryUnescape(record.Key)
		if err != nil {
			return summaries, appError.ErrMalformedEvent.WithCause(fmt.Errorf("decode key %q: %w", record.Key, err))
		}
		if record.Bucket == "" || key == "" {
			return summaries, appError.ErrMalformedEvent
		}
		if bucket := s.storage.GetBucket(); record.Bucket != bucket {
			logger.Warnf(ctx, "Rejected object %s from bucket %s, expected %s", key, record.Bucket, bucket)
			return summaries, appError.ErrMalformedEvent.WithCause(fmt.Errorf("unexpected bucket %q", record.Bucket))
		}
		if !strings.HasPrefix(key, UploadedPrefix) {
			logger.Warnf(ctx, "Skipping object outside %s: %s", UploadedPrefix, key)
			continue
		}

		summary, err := s.importObject(ctx, record.Bucket, key)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *ImportService) importObject(ctx context.Context, bucket, key string) (ImportSummary, error) {
	summary := ImportSummary{Key: key}
	logger.Infof(ctx, "Processing file %s from bucket %s", key, bucket)

	body, err := s.storage.Open(ctx, bucket, key)
	if err != nil {
		return summary, fmt.Errorf("open %s/%s: %w", bucket, key, err)
	}
	defer body.Close()

	var failed atomic.Int64
	var sends errgroup.Group
	if s.cfg.MaxInFlight > 0 {
		sends.SetLimit(s.cfg.MaxInFlight)
	}

	rows, parseErr := streamRows(body, func(row model.ImportRow) {
		sends.Go(func() error {
			if err := s.enqueueRow(ctx, key, row); err != nil {
				failed.Add(1)
				logger.Errorf(ctx, err, "Failed to enqueue row from %s", key)
			}
			return nil
		})
	})
	// In-flight sends are joined on every path so none outlive the call.
	_ = sends.Wait()
	summary.Rows = rows
	summary.Failed = int(failed.Load())

	if parseErr != nil {
		logger.Errorf(ctx, parseErr, "Error parsing CSV %s", key)
		return summary, fmt.Errorf("parse %s: %w", key, parseErr)
	}
	logger.Infof(ctx, "Finished reading %s: %d rows, %d enqueue failures", key, summary.Rows, summary.Failed)

	archived := ParsedPrefix + strings.TrimPrefix(key, UploadedPrefix)
	if err := s.storage.Copy(ctx, bucket, key, archived); err != nil {
		return summary, fmt.Errorf("copy %s to %s: %w", key, archived, err)
	}
	if err := s.storage.Delete(ctx, bucket, key); err != nil {
		return summary, fmt.Errorf("delete %s: %w", key, err)
	}
	summary.ArchivedKey = archived
	logger.Infof(ctx, "Archived %s to %s", key, archived)

	return summary, nil
}

func (s *ImportService) enqueueRow(ctx context.Context, key string, row model.ImportRow) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("serialize row: %w", err)
	}
	return s.publisher.Publish(ctx, s.cfg.ItemsTopic, []byte(key), payload, nil)
}

// streamRows reads r as CSV with a header line and calls emit for each data
// line in file order. It returns the number of rows emitted. Lines may be
// ragged: missing trailing cells are absent from the row and cells beyond
// the header are dropped. Syntax errors such as a bare quote are fatal.
func streamRows(r io.Reader, emit func(model.ImportRow)) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		row := make(model.ImportRow, len(header))
		for i, column := range header {
			if i >= len(record) {
				break
			}
			row[column] = record[i]
		}
		emit(row)
		rows++
	}
}
