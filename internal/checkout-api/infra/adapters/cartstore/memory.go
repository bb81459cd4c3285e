package cartstore

import (
	"context"
	"sync"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/domain/entity"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
)

var _ ports.CartStore = (*MemoryStore)(nil)

// MemoryStore keeps carts in process memory. Returned carts are copies.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]*entity.Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*entity.Cart)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*entity.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyOf(sessionID), nil
}

func (s *MemoryStore) Mutate(_ context.Context, sessionID string, fn func(*entity.Cart) error) (*entity.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.copyOf(sessionID)
	if err := fn(cart); err != nil {
		return nil, err
	}
	s.carts[sessionID] = cart
	return s.copyOf(sessionID), nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}

func (s *MemoryStore) copyOf(sessionID string) *entity.Cart {
	cart, ok := s.carts[sessionID]
	if !ok {
		return &entity.Cart{SessionID: sessionID}
	}
	return &entity.Cart{SessionID: sessionID, Items: cart.Snapshot()}
}
