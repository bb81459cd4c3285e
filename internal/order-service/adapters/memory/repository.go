// Package memory is an in-process domain.Repository for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jcmexdev/storefront-checkout/internal/order-service/domain"
)

var _ domain.Repository = (*Repository)(nil)

type Repository struct {
	mu       sync.RWMutex
	orders   map[string]*domain.Order
	byNumber map[string]string
	byKey    map[string]string
}

func NewRepository() *Repository {
	return &Repository{
		orders:   make(map[string]*domain.Order),
		byNumber: make(map[string]string),
		byKey:    make(map[string]string),
	}
}

func (r *Repository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.IdempotencyKey != "" {
		if _, taken := r.byKey[order.IdempotencyKey]; taken {
			return domain.ErrDuplicateIdempotencyKey
		}
		r.byKey[order.IdempotencyKey] = order.ID
	}
	r.orders[order.ID] = clone(order)
	r.byNumber[order.OrderNumber] = order.ID
	return nil
}

func (r *Repository) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	r.orders[order.ID] = clone(order)
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

func (r *Repository) GetByNumber(_ context.Context, orderNumber string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(r.byNumber[orderNumber])
}

func (r *Repository) GetByIdempotencyKey(_ context.Context, key string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if key == "" {
		return nil, domain.ErrOrderNotFound
	}
	return r.get(r.byKey[key])
}

func (r *Repository) ListAwaitingPayment(_ context.Context, createdBefore time.Time, limit int) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.AwaitingPayment(createdBefore) {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) get(id string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return clone(o), nil
}

func clone(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	return &c
}
