package order

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu        sync.Mutex
	byProduct map[uuid.UUID]*models.Order
}

func (m *memRepo) CreateOrder(_ context.Context, req CreateOrderRequest) (*models.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.byProduct[req.ProductID]; ok {
		return o, false, nil
	}
	o := &models.Order{
		ID:              uuid.New(),
		ProductID:       req.ProductID,
		ProductTitle:    req.ProductTitle,
		SellerEmail:     req.SellerEmail,
		BuyerEmail:      req.BuyerEmail,
		BuyerName:       req.BuyerName,
		FinalPrice:      req.FinalPrice,
		ProductSnapshot: req.ProductSnapshot,
		CreatedAt:       time.Now(),
	}
	m.byProduct[req.ProductID] = o
	return o, true, nil
}

func (m *memRepo) GetOrderByProduct(_ context.Context, productID uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byProduct[productID]
	if !ok {
		return nil, fmt.Errorf("order for product %s: %w", productID, apperr.ErrNotFound)
	}
	return o, nil
}

func (m *memRepo) ListOrdersByBuyer(_ context.Context, email string) ([]*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Order
	for _, o := range m.byProduct {
		if o.BuyerEmail == email {
			out = append(out, o)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memRepo) {
	t.Helper()
	repo := &memRepo{byProduct: map[uuid.UUID]*models.Order{}}
	r := chi.NewRouter()
	r.Mount("/api/orders", NewService(NewApp(repo)).Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo
}

func do(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func orderBody(productID uuid.UUID) string {
	return fmt.Sprintf(`{
		"productId": %q,
		"productTitle": "Camera",
		"sellerEmail": "seller@example.com",
		"buyerEmail": "bob@example.com",
		"buyerName": "Bob",
		"finalPrice": 501,
		"productSnapshot": {"title": "Camera"}
	}`, productID)
}

func TestCreateOrderOncePerProduct(t *testing.T) {
	srv, repo := newTestServer(t)
	productID := uuid.New()

	status, body := do(t, http.MethodPost, srv.URL+"/api/orders/", orderBody(productID))
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["created"])
	first := body["order"].(map[string]any)
	assert.Equal(t, float64(501), first["finalPrice"])
	assert.Equal(t, "Camera", first["productSnapshot"].(map[string]any)["title"])

	status, body = do(t, http.MethodPost, srv.URL+"/api/orders/", orderBody(productID))
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["created"])
	assert.Equal(t, first["id"], body["order"].(map[string]any)["id"])
	assert.Len(t, repo.byProduct, 1)
}

func TestCreateOrderValidation(t *testing.T) {
	srv, repo := newTestServer(t)

	status, body := do(t, http.MethodPost, srv.URL+"/api/orders/",
		`{"productId":"`+uuid.NewString()+`","productTitle":"Camera","sellerEmail":"seller@example.com","buyerEmail":"bob@example.com","buyerName":"Bob","finalPrice":0}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_argument", body["kind"])

	status, _ = do(t, http.MethodPost, srv.URL+"/api/orders/", `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, repo.byProduct)
}

func TestGetAndListOrders(t *testing.T) {
	srv, _ := newTestServer(t)
	productID := uuid.New()

	status, _ := do(t, http.MethodGet, srv.URL+"/api/orders/product/"+productID.String(), "")
	assert.Equal(t, http.StatusNotFound, status)

	do(t, http.MethodPost, srv.URL+"/api/orders/", orderBody(productID))

	status, body := do(t, http.MethodGet, srv.URL+"/api/orders/product/"+productID.String(), "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bob@example.com", body["order"].(map[string]any)["buyerEmail"])

	status, body = do(t, http.MethodGet, srv.URL+"/api/orders/buyer/bob@example.com", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["orders"], 1)
}
