package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/product"
)

// --- Fake implementations ---

type memLocal struct {
	mu          sync.Mutex
	stored      *cart.Cart
	saves       int
	clears      int
	unavailable bool
}

func (m *memLocal) Load() (cart.Cart, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return cart.Empty(), false, cart.ErrUnavailable
	}
	if m.stored == nil {
		return cart.Empty(), false, nil
	}
	return m.stored.Clone(), true, nil
}

func (m *memLocal) Save(c cart.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return cart.ErrUnavailable
	}
	c = c.Clone()
	m.stored = &c
	m.saves++
	return nil
}

func (m *memLocal) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return cart.ErrUnavailable
	}
	m.stored = nil
	m.clears++
	return nil
}

func (m *memLocal) snapshot() (c *cart.Cart, saves, clears int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored, m.saves, m.clears
}

type remoteCall struct {
	userID string
	cart   cart.Cart
}

type fakeRemote struct {
	mu    sync.Mutex
	calls []remoteCall
	err   error
	// gate, when set, blocks every write until it is closed.
	gate chan struct{}
}

func (f *fakeRemote) OverwriteCart(ctx context.Context, userID string, c cart.Cart) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, remoteCall{userID: userID, cart: c.Clone()})
	return f.err
}

func (f *fakeRemote) recorded() []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteCall(nil), f.calls...)
}

type fakeCatalog struct {
	byID map[string]product.Product
	err  error
	asks [][]string
}

func (f *fakeCatalog) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	f.asks = append(f.asks, ids)
	if f.err != nil {
		return nil, f.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Helpers ---

func newTestProduct(id string, price int64) product.Product {
	return product.Product{
		ID:    id,
		Title: "Product " + id,
		Price: price,
	}
}

func pairs(c cart.Cart) []string {
	out := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, fmt.Sprintf("%s:%d", it.Product.ID(), it.Quantity))
	}
	return out
}
