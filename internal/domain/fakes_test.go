package domain_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"catalog/internal/model"
)

type presignCall struct {
	objectName  string
	contentType string
	expires     time.Duration
}

// fakeStorage is an in-memory object store recording every call.
type fakeStorage struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]string
	calls   []string
	presign []presignCall

	presignErr error
	copyErr    error
	deleteErr  error
	onCopy     func()
}

func newFakeStorage(bucket string) *fakeStorage {
	return &fakeStorage{bucket: bucket, objects: map[string]string{}}
}

func (s *fakeStorage) put(key, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = content
}

func (s *fakeStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *fakeStorage) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeStorage) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeStorage) PresignUpload(_ context.Context, objectName, contentType string, expires time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presign = append(s.presign, presignCall{objectName, contentType, expires})
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return fmt.Sprintf("https://objects.test/%s/%s?X-Amz-Expires=%d", s.bucket, objectName, int(expires.Seconds())), nil
}

func (s *fakeStorage) Open(_ context.Context, bucket, objectName string) (io.ReadCloser, error) {
	s.record("open " + objectName)
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[objectName]
	if !ok || bucket != s.bucket {
		return nil, fmt.Errorf("no such object %s/%s", bucket, objectName)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (s *fakeStorage) Copy(_ context.Context, _ string, src, dst string) error {
	if s.onCopy != nil {
		s.onCopy()
	}
	s.record("copy " + src + " -> " + dst)
	if s.copyErr != nil {
		return s.copyErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[dst] = s.objects[src]
	return nil
}

func (s *fakeStorage) Delete(_ context.Context, _ string, objectName string) error {
	s.record("delete " + objectName)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectName)
	return nil
}

func (s *fakeStorage) GetBucket() string { return s.bucket }

type published struct {
	topic string
	key   string
	value string
	attrs map[string]string
}

// fakePublisher records messages; failWhen lets a test reject some of them.
type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	delay    time.Duration
	failWhen func(value string) bool
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key, value []byte, attributes map[string]string) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.failWhen != nil && p.failWhen(string(value)) {
		return fmt.Errorf("broker unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{topic: topic, key: string(key), value: string(value), attrs: attributes})
	return nil
}

func (p *fakePublisher) sent() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.messages...)
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

// fakeRepo is an in-memory product repository.
type fakeRepo struct {
	mu        sync.Mutex
	products  map[string]model.ProductWithStock
	createIDs []string

	listErr   error
	getErr    error
	createErr func(product model.Product) error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[string]model.ProductWithStock{}}
}

func (r *fakeRepo) ListProducts(context.Context) ([]model.ProductWithStock, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ProductWithStock, 0, len(r.products))
	for _, id := range r.createIDs {
		out = append(out, r.products[id])
	}
	return out, nil
}

func (r *fakeRepo) GetProduct(_ context.Context, id string) (*model.ProductWithStock, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeRepo) CreateProduct(_ context.Context, product model.Product, count int) error {
	if r.createErr != nil {
		if err := r.createErr(product); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = model.ProductWithStock{Product: product, Count: count}
	r.createIDs = append(r.createIDs, product.ID)
	return nil
}

func (r *fakeRepo) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.createIDs...)
}
