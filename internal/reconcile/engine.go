// Package reconcile keeps the in-memory cart, the device-local cart and the
// cart saved for the signed-in user consistent as the user edits the cart and
// signs in or out.
package reconcile

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/identity"
	"github.com/xenking/storefront-cart/internal/domain/product"
)

// Options holds the optional collaborators of an Engine.
type Options struct {
	Logger    *zap.Logger
	Formatter *cart.Formatter
}

// Engine owns the authoritative cart.
//
// Mutations update the cart under mu and then run the persistence step,
// which writes the settled cart to exactly one store chosen by the identity
// in effect: the syncer while signed in, the local store otherwise.
type Engine struct {
	local     cart.LocalStore
	syncer    *Syncer
	formatter *cart.Formatter
	lg        *zap.Logger

	// persistMu orders persistence steps so a later cart is never
	// overwritten by an earlier one.
	persistMu sync.Mutex

	mu                sync.Mutex
	cart              cart.Cart
	identity          identity.State
	seenAuthenticated bool
	// dirty is set by a mutation and consumed by one persistence step.
	dirty bool
	// clearLocal is set by a merge; the local cart now lives remotely.
	clearLocal bool

	subMu   sync.Mutex
	subs    map[int]func(cart.View)
	nextSub int
}

// NewEngine creates an Engine hydrated from the local store. Missing,
// unparseable or unavailable local data yields an empty cart.
func NewEngine(local cart.LocalStore, syncer *Syncer, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Formatter == nil {
		opts.Formatter = cart.DefaultFormatter()
	}
	e := &Engine{
		local:     local,
		syncer:    syncer,
		formatter: opts.Formatter,
		lg:        opts.Logger,
		cart:      cart.Empty(),
		identity:  identity.LoadingState(),
		subs:      make(map[int]func(cart.View)),
	}
	e.cart = e.loadLocal()
	return e
}

func (e *Engine) loadLocal() cart.Cart {
	if e.local == nil {
		return cart.Empty()
	}
	c, ok, err := e.local.Load()
	switch {
	case errors.Is(err, cart.ErrUnavailable):
		e.lg.Debug("Local cart store unavailable")
		return cart.Empty()
	case err != nil:
		e.lg.Warn("Load local cart", zap.Error(err))
		return cart.Empty()
	case !ok:
		return cart.Empty()
	}
	return cart.Normalize(c)
}

// Cart returns a copy of the current cart.
func (e *Engine) Cart() cart.Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Clone()
}

// Identity returns the identity state the engine currently acts on.
func (e *Engine) Identity() identity.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

// View returns the derived view model of the current cart.
func (e *Engine) View() cart.View {
	return cart.NewView(e.Cart(), e.formatter)
}

// IsInCart reports whether the product is in the cart.
func (e *Engine) IsInCart(ref cart.ProductRef) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart.Contains(ref)
}

// AddItem adds quantity of the product. A product already in the cart has
// its quantity incremented; quantities below 1 count as 1.
func (e *Engine) AddItem(ref cart.ProductRef, quantity int) {
	e.mutate(func(c cart.Cart) cart.Cart {
		return c.Add(ref, quantity)
	})
}

// SetQuantity overwrites the product's quantity. Zero or less removes it.
func (e *Engine) SetQuantity(ref cart.ProductRef, quantity int) {
	e.mutate(func(c cart.Cart) cart.Cart {
		return c.SetQuantity(ref, quantity)
	})
}

// RemoveItem deletes the product from the cart. Absent products are ignored.
func (e *Engine) RemoveItem(ref cart.ProductRef) {
	e.mu.Lock()
	found := e.cart.Contains(ref)
	e.mu.Unlock()
	if !found {
		return
	}
	e.mutate(func(c cart.Cart) cart.Cart {
		return c.Remove(ref)
	})
}

// Clear empties the cart and persists the empty cart.
func (e *Engine) Clear() {
	e.mutate(func(cart.Cart) cart.Cart {
		return cart.Empty()
	})
}

func (e *Engine) mutate(f func(cart.Cart) cart.Cart) {
	e.mu.Lock()
	e.cart = f(e.cart)
	e.dirty = true
	e.mu.Unlock()

	e.settle()
}

// Observe applies an identity transition.
//
// The first Authenticated state seen merges the current cart with the
// server snapshot, writes the result remotely and clears the local store.
// Repeated Authenticated states for the same user are ignored. A switch to
// another user without signing out drops the previous user's cart before
// merging. Anonymous after Authenticated clears the cart without persisting
// it. Loading is ignored.
func (e *Engine) Observe(s identity.State) {
	e.mu.Lock()
	switch s.Kind {
	case identity.Authenticated:
		if e.seenAuthenticated && e.identity.ID == s.ID {
			e.mu.Unlock()
			return
		}
		local := e.cart
		if e.seenAuthenticated {
			e.lg.Info("Signed-in user changed, dropping previous cart",
				zap.String("from", e.identity.ID),
				zap.String("to", s.ID),
			)
			local = cart.Empty()
		}
		e.cart = cart.Merge(local, s.Cart)
		e.identity = s
		e.seenAuthenticated = true
		e.dirty = true
		e.clearLocal = true
		e.lg.Info("Merged cart on sign-in",
			zap.String("user_id", s.ID),
			zap.Int("local_items", len(local.Items)),
			zap.Int("server_items", len(s.Cart.Items)),
			zap.Int("items", len(e.cart.Items)),
		)
	case identity.Anonymous:
		wasSignedIn := e.seenAuthenticated
		e.identity = s
		e.seenAuthenticated = false
		if !wasSignedIn {
			e.mu.Unlock()
			return
		}
		e.cart = cart.Empty()
		e.dirty = false
		e.lg.Info("Cleared cart on sign-out")
	default:
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.settle()
}

// Run applies identity states from states until the channel is closed or ctx
// is done.
func (e *Engine) Run(ctx context.Context, states <-chan identity.State) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-states:
			if !ok {
				return nil
			}
			e.Observe(s)
		}
	}
}

// Hydrate replaces bare product ids with records from the catalog so that
// they count towards the total. Products the catalog does not know stay bare.
// Hydration changes no quantities and is not persisted.
func (e *Engine) Hydrate(ctx context.Context, products product.Repository) error {
	e.mu.Lock()
	ids := e.cart.Unresolved()
	e.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}

	found, err := products.GetByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	e.mu.Lock()
	c := e.cart.Clone()
	for i, it := range c.Items {
		if it.Product.IsResolved() {
			continue
		}
		if p, ok := byID[it.Product.ID()]; ok {
			c.Items[i].Product = cart.Resolved(p)
		}
	}
	e.cart = c
	e.mu.Unlock()

	e.settle()
	return nil
}

// Subscribe registers fn to receive the view model after every change.
// fn runs on the goroutine that made the change.
func (e *Engine) Subscribe(fn func(cart.View)) (unsubscribe func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subs, id)
	}
}

// Close waits for pending remote writes.
func (e *Engine) Close(ctx context.Context) error {
	if e.syncer == nil {
		return nil
	}
	return e.syncer.Wait(ctx)
}

// settle is the persistence step. It runs after the cart has changed and
// reads the settled state; it never modifies the cart.
func (e *Engine) settle() {
	e.persistMu.Lock()
	e.mu.Lock()
	c := e.cart.Clone()
	who := e.identity
	dirty := e.dirty
	clearLocal := e.clearLocal
	e.dirty = false
	e.clearLocal = false
	e.mu.Unlock()

	if dirty {
		e.persist(who, c)
	}
	if clearLocal {
		e.clearLocalStore()
	}
	e.persistMu.Unlock()

	e.notify(cart.NewView(c, e.formatter))
}

func (e *Engine) persist(who identity.State, c cart.Cart) {
	if who.Kind == identity.Authenticated {
		if e.syncer == nil {
			e.lg.Warn("No remote cart store configured, cart not saved", zap.String("user_id", who.ID))
			return
		}
		e.syncer.Push(who.ID, c.Flatten())
		return
	}

	if e.local == nil {
		return
	}
	if err := e.local.Save(c); err != nil {
		if errors.Is(err, cart.ErrUnavailable) {
			e.lg.Debug("Local cart store unavailable, skipping save")
			return
		}
		e.lg.Warn("Save local cart", zap.Error(err))
	}
}

func (e *Engine) clearLocalStore() {
	if e.local == nil {
		return
	}
	if err := e.local.Clear(); err != nil && !errors.Is(err, cart.ErrUnavailable) {
		e.lg.Warn("Clear local cart", zap.Error(err))
	}
}

func (e *Engine) notify(v cart.View) {
	e.subMu.Lock()
	fns := make([]func(cart.View), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
