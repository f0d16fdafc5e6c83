package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"catalog/internal/ports"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// MinIOStorage implements ports.ObjectStorage using MinIO.
type MinIOStorage struct {
	client *minio.Client
	cfg    MinIOConfig
}

var _ ports.ObjectStorage = (*MinIOStorage)(nil)

func NewMinIOClient(cfg MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init MinIO client: %w", err)
	}
	return client, nil
}

// NewMinIOStorage wraps client and makes sure the import bucket exists.
func NewMinIOStorage(client *minio.Client, cfg MinIOConfig) (*MinIOStorage, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOStorage{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *MinIOStorage) PresignUpload(ctx context.Context, objectName, contentType string, expires time.Duration) (string, error) {
	headers := http.Header{}
	headers.Set("Content-Type", contentType)

	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.cfg.Bucket, objectName, expires, nil, headers)
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return u.String(), nil
}

// Open streams the object. The returned reader fetches lazily, so errors
// such as a missing key surface on the first Read.
func (s *MinIOStorage) Open(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return obj, nil
}

func (s *MinIOStorage) Copy(ctx context.Context, bucket, srcObject, dstObject string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: bucket, Object: dstObject},
		minio.CopySrcOptions{Bucket: bucket, Object: srcObject},
	)
	if err != nil {
		return fmt.Errorf("failed to copy object: %w", err)
	}
	return nil
}

func (s *MinIOStorage) Delete(ctx context.Context, bucket, objectName string) error {
	if err := s.client.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *MinIOStorage) GetBucket() string {
	return s.cfg.Bucket
}
