package handlers_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog/internal/adapters/validation"
	"catalog/internal/config/di"
	"catalog/internal/domain"
	"catalog/internal/handlers"
	"catalog/internal/model"
	appError "catalog/internal/shared/error"
	logger "catalog/internal/shared/log"
	"catalog/internal/shared/middleware"
)

type memRepo struct {
	mu        sync.Mutex
	products  map[string]model.ProductWithStock
	createErr error
}

func (r *memRepo) ListProducts(context.Context) ([]model.ProductWithStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ProductWithStock, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

func (r *memRepo) GetProduct(_ context.Context, id string) (*model.ProductWithStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memRepo) CreateProduct(_ context.Context, product model.Product, count int) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = model.ProductWithStock{Product: product, Count: count}
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string]string
}

func (s *memStorage) PresignUpload(_ context.Context, objectName, _ string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://objects.test/catalog-imports/%s?X-Amz-Expires=%d", objectName, int(expires.Seconds())), nil
}

func (s *memStorage) Open(_ context.Context, _ string, objectName string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[objectName]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (s *memStorage) Copy(_ context.Context, _ string, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[dst] = s.objects[src]
	return nil
}

func (s *memStorage) Delete(_ context.Context, _ string, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectName)
	return nil
}

func (s *memStorage) GetBucket() string { return "catalog-imports" }

type memPublisher struct {
	mu    sync.Mutex
	count int
}

func (p *memPublisher) Publish(context.Context, string, []byte, []byte, map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return nil
}

type testApp struct {
	app       *fiber.App
	repo      *memRepo
	storage   *memStorage
	publisher *memPublisher
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger.SetOutput(zerolog.Nop())

	repo := &memRepo{products: map[string]model.ProductWithStock{}}
	storage := &memStorage{objects: map[string]string{}}
	publisher := &memPublisher{}

	schemas, err := validation.NewJSONSchemaValidator()
	require.NoError(t, err)
	products, err := domain.NewProductService(repo)
	require.NoError(t, err)
	imports, err := domain.NewImportService(storage, publisher, schemas, domain.ImportConfig{ItemsTopic: "catalog.items"})
	require.NoError(t, err)

	container := &di.Container{
		ProductService: products,
		ImportService:  imports,
		Authorizer: domain.NewAuthorizer(domain.AuthorizerConfig{
			Credentials: map[string]string{"alice": "secret1"},
			DenyMode:    domain.DenyWithPolicy,
		}),
	}

	app := fiber.New(fiber.Config{ErrorHandler: appError.ErrorHandler()})
	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggingMiddleware())
	handlers.RegisterRoutes(app, container)

	return &testApp{app: app, repo: repo, storage: storage, publisher: publisher}
}

func (a *testApp) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func basicAuth(credentials string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

func TestCreateThenGetProduct(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(t, jsonRequest(http.MethodPost, "/products",
		`{"title":"Alpaca Scarf","description":"Warm","price":25,"count":10}`))
	require.Equal(t, http.StatusCreated, status, string(body))

	var created model.ProductWithStock
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 10, created.Count)

	status, body = a.do(t, httptest.NewRequest(http.MethodGet, "/products/"+created.ID, nil))
	require.Equal(t, http.StatusOK, status)

	var fetched model.ProductWithStock
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created, fetched)

	status, body = a.do(t, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusOK, status)
	var list []model.ProductWithStock
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)
}

func TestCreateProduct_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{name: "missing body", body: "", wantStatus: 400, wantMessage: "Missing body"},
		{name: "not json", body: "title=Pen", wantStatus: 400, wantMessage: "Invalid request body"},
		{
			name:        "every rule reported",
			body:        `{"price":-1,"count":0}`,
			wantStatus:  400,
			wantMessage: "Validation failed: Title is required, Price must be a positive number, Description is required, Count is required",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestApp(t)

			status, body := a.do(t, jsonRequest(http.MethodPost, "/products", tc.body))

			assert.Equal(t, tc.wantStatus, status)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, tc.wantMessage, resp["message"])
			assert.Empty(t, a.repo.products)
		})
	}
}

func TestCreateProduct_StorageFailureHidesCause(t *testing.T) {
	a := newTestApp(t)
	a.repo.createErr = errors.New(`pq: relation "stocks" does not exist`)

	status, body := a.do(t, jsonRequest(http.MethodPost, "/products", `{"title":"Pen","description":"Blue","price":1,"count":1}`))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, string(body), "stocks")
	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "Failed to persist product", resp["message"])
}

func TestGetProduct_NotFound(t *testing.T) {
	a := newTestApp(t)

	status, body := a.do(t, httptest.NewRequest(http.MethodGet, "/products/5f0c1f4e-unknown", nil))

	assert.Equal(t, http.StatusNotFound, status)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "Product not found", resp["message"])
	assert.NotEmpty(t, resp["request_id"])
}

func TestIssueUploadURL_RequiresCredentials(t *testing.T) {
	testCases := []struct {
		name       string
		target     string
		auth       string
		wantStatus int
	}{
		{name: "no header", target: "/import?name=products.csv", wantStatus: http.StatusUnauthorized},
		{name: "wrong password", target: "/import?name=products.csv", auth: basicAuth("alice:nope"), wantStatus: http.StatusForbidden},
		{name: "missing name", target: "/import", auth: basicAuth("alice:secret1"), wantStatus: http.StatusBadRequest},
		{name: "not csv", target: "/import?name=products.xlsx", auth: basicAuth("alice:secret1"), wantStatus: http.StatusBadRequest},
		{name: "signed", target: "/import?name=products.csv", auth: basicAuth("alice:secret1"), wantStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestApp(t)
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}

			status, body := a.do(t, req)

			assert.Equal(t, tc.wantStatus, status, string(body))
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, "https://objects.test/catalog-imports/uploaded/products.csv?X-Amz-Expires=3600", string(body))
			}
		})
	}
}

func TestObjectCreated(t *testing.T) {
	a := newTestApp(t)
	a.storage.objects["uploaded/products.csv"] = "title,description,price,count\nPen,Blue,5,10\nCup,Mug,3,2\n"
	payload := `{"Records":[{"s3":{"bucket":{"name":"catalog-imports"},"object":{"key":"uploaded%2Fproducts.csv"}}}]}`

	status, body := a.do(t, jsonRequest(http.MethodPost, "/events/object-created", payload))

	require.Equal(t, http.StatusAccepted, status, string(body))
	assert.JSONEq(t, `{"status":"processed","files":[{"key":"uploaded/products.csv","archived_key":"parsed/products.csv","rows":2,"failed":0}]}`, string(body))
	assert.Equal(t, 2, a.publisher.count)
	assert.Contains(t, a.storage.objects, "parsed/products.csv")
	assert.NotContains(t, a.storage.objects, "uploaded/products.csv")

	status, _ = a.do(t, jsonRequest(http.MethodPost, "/events/object-created", `{"Records":[]}`))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestObjectCreated_ForeignBucketRejected(t *testing.T) {
	a := newTestApp(t)
	a.storage.objects["uploaded/products.csv"] = "title\nPen\n"
	payload := `{"Records":[{"s3":{"bucket":{"name":"other-bucket"},"object":{"key":"uploaded%2Fproducts.csv"}}}]}`

	status, _ := a.do(t, jsonRequest(http.MethodPost, "/events/object-created", payload))

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, a.storage.objects, "uploaded/products.csv")
	assert.Zero(t, a.publisher.count)
}

func TestObjectCreated_MissingObjectIsServerError(t *testing.T) {
	a := newTestApp(t)
	payload := `{"Records":[{"s3":{"bucket":{"name":"catalog-imports"},"object":{"key":"uploaded%2Fghost.csv"}}}]}`

	status, body := a.do(t, jsonRequest(http.MethodPost, "/events/object-created", payload))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, string(body), "no such key")
}

func TestAuthorizeEndpoint(t *testing.T) {
	a := newTestApp(t)
	body := fmt.Sprintf(`{"type":"TOKEN","authorizationToken":%q,"methodArn":"arn:aws:execute-api:eu-west-1:1:api/dev/GET/import"}`,
		basicAuth("alice:secret1"))

	status, resp := a.do(t, jsonRequest(http.MethodPost, "/authorize", body))

	require.Equal(t, http.StatusOK, status)
	var decision domain.AuthorizerResponse
	require.NoError(t, json.Unmarshal(resp, &decision))
	assert.Equal(t, "alice", decision.PrincipalID)
	assert.Equal(t, domain.EffectAllow, decision.Effect())

	status, _ = a.do(t, jsonRequest(http.MethodPost, "/authorize", `{"type":"TOKEN"}`))
	assert.Equal(t, http.StatusUnauthorized, status)
}
