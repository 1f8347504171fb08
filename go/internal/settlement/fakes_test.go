package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionhouse/go/internal/apperr"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/mcdev12/auctionhouse/go/internal/order"
	"github.com/shopspring/decimal"
)

type memEvent struct {
	productID uuid.UUID
	eventType string
	payload   interface{}
}

type memStore struct {
	mu       sync.Mutex
	products map[uuid.UUID]models.Product
	users    map[string]models.User
	orders   map[uuid.UUID]models.Order
	events   []memEvent

	failOrder error
}

func newMemStore() *memStore {
	return &memStore{
		products: map[uuid.UUID]models.Product{},
		users:    map[string]models.User{},
		orders:   map[uuid.UUID]models.Order{},
	}
}

func (s *memStore) addProduct(end time.Time, winner *models.User, price int64) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Product{
		ID:                uuid.New(),
		Title:             "Camera",
		SellerEmail:       "seller@example.com",
		BiddingStartDate:  end.Add(-time.Hour).Format("2006-01-02"),
		BiddingStartTime:  end.Add(-time.Hour).Format("15:04:05"),
		BiddingEndTime:    end,
		BiddingStartPrice: decimal.NewFromInt(price),
		Status:            models.ProductStatusActive,
	}
	if winner != nil {
		p.CurrentBidderEmail = winner.Email
		p.CurrentBidderName = winner.Username
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) setSeq(id uuid.UUID, seq int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[id]
	p.BidSeq = seq
	s.products[id] = p
}

func (s *memStore) addUser(email string, balance, held int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = models.User{
		ID:       uuid.New(),
		Username: "Bob",
		Email:    email,
		Phone:    "555-0100",
		Address:  "1 Main St",
		Balance:  decimal.NewFromInt(balance),
		Held:     decimal.NewFromInt(held),
	}
}

func (s *memStore) product(id uuid.UUID) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

func (s *memStore) user(email string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email]
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.eventType)
	}
	return out
}

// InTx serializes transactions and restores the previous state on error.
func (s *memStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(map[uuid.UUID]models.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	users := make(map[string]models.User, len(s.users))
	for k, v := range s.users {
		users[k] = v
	}
	orders := make(map[uuid.UUID]models.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}
	events := append([]memEvent(nil), s.events...)

	if err := fn(&memTx{s: s}); err != nil {
		s.products, s.users, s.orders, s.events = products, users, orders, events
		return err
	}
	return nil
}

func (s *memStore) NextEnd(_ context.Context) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *time.Time
	for _, p := range s.products {
		if p.Status != models.ProductStatusActive {
			continue
		}
		if next == nil || p.BiddingEndTime.Before(*next) {
			end := p.BiddingEndTime
			next = &end
		}
	}
	return next, nil
}

func (s *memStore) DueProducts(_ context.Context, now time.Time, limit int32) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []models.Product
	for _, p := range s.products {
		if p.Status == models.ProductStatusActive && !p.BiddingEndTime.After(now) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].BiddingEndTime.Before(due[j].BiddingEndTime) })
	var ids []uuid.UUID
	for i, p := range due {
		if int32(i) >= limit {
			break
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) LockProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, apperr.ErrNotFound)
	}
	return &p, nil
}

func (t *memTx) GetProfile(_ context.Context, email string) (*models.User, error) {
	u, ok := t.s.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, apperr.ErrNotFound)
	}
	return &u, nil
}

func (t *memTx) CreateOrder(_ context.Context, req order.CreateOrderRequest) (*models.Order, bool, error) {
	if t.s.failOrder != nil {
		return nil, false, t.s.failOrder
	}
	if o, ok := t.s.orders[req.ProductID]; ok {
		return &o, false, nil
	}
	o := models.Order{
		ID:              uuid.New(),
		ProductID:       req.ProductID,
		ProductTitle:    req.ProductTitle,
		SellerEmail:     req.SellerEmail,
		BuyerEmail:      req.BuyerEmail,
		BuyerName:       req.BuyerName,
		BuyerPhone:      req.BuyerPhone,
		BuyerAddress:    req.BuyerAddress,
		FinalPrice:      req.FinalPrice,
		ProductSnapshot: req.ProductSnapshot,
	}
	t.s.orders[req.ProductID] = o
	return &o, true, nil
}

func (t *memTx) CaptureHold(_ context.Context, email string, amount decimal.Decimal) error {
	u, ok := t.s.users[email]
	if !ok {
		return fmt.Errorf("wallet %s: %w", email, apperr.ErrNotFound)
	}
	u.Balance = u.Balance.Sub(amount)
	u.Held = decimal.Max(u.Held.Sub(amount), decimal.Zero)
	t.s.users[email] = u
	return nil
}

func (t *memTx) DeleteProduct(_ context.Context, id uuid.UUID) error {
	delete(t.s.products, id)
	return nil
}

func (t *memTx) MarkClosed(_ context.Context, id uuid.UUID) error {
	p, ok := t.s.products[id]
	if !ok {
		return errors.New("no such product")
	}
	p.Status = models.ProductStatusClosed
	t.s.products[id] = p
	return nil
}

func (t *memTx) Enqueue(_ context.Context, productID uuid.UUID, eventType string, payload interface{}) error {
	t.s.events = append(t.s.events, memEvent{productID: productID, eventType: eventType, payload: payload})
	return nil
}

// countingSettler counts calls per product and can hold each call until released.
type countingSettler struct {
	inner ProductSettler
	gate  chan struct{}

	mu    sync.Mutex
	calls map[uuid.UUID]int
}

func newCountingSettler(inner ProductSettler) *countingSettler {
	return &countingSettler{inner: inner, calls: map[uuid.UUID]int{}}
}

func (c *countingSettler) Settle(ctx context.Context, id uuid.UUID) (*Result, error) {
	c.mu.Lock()
	c.calls[id]++
	gate := c.gate
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.inner.Settle(ctx, id)
}

func (c *countingSettler) count(id uuid.UUID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

type recordingCache struct {
	mu     sync.Mutex
	ids    []uuid.UUID
	fences []int64
}

func (r *recordingCache) Invalidate(_ context.Context, id uuid.UUID, seq int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	r.fences = append(r.fences, seq)
	return nil
}
