package local

import (
	"github.com/go-faster/errors"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

// Well-known keys.
const (
	CartKey  = "cart"
	TokenKey = "token"
)

var _ cart.LocalStore = (*Store)(nil)

// Store is the cart.LocalStore kept under CartKey.
type Store struct {
	kv KV
}

// NewStore returns a Store backed by kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load reads the stored cart. Data that does not parse is treated as absent
// so that a schema change never breaks the storefront.
func (s *Store) Load() (cart.Cart, bool, error) {
	data, ok, err := s.kv.Get(CartKey)
	if err != nil {
		return cart.Empty(), false, err
	}
	if !ok || len(data) == 0 {
		return cart.Empty(), false, nil
	}
	var c cart.Cart
	if err := c.UnmarshalJSON(data); err != nil {
		return cart.Empty(), false, nil
	}
	return cart.Normalize(c), true, nil
}

// Save overwrites the stored cart.
func (s *Store) Save(c cart.Cart) error {
	data, err := c.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	return s.kv.Set(CartKey, data)
}

// Clear removes the stored cart.
func (s *Store) Clear() error {
	return s.kv.Delete(CartKey)
}

// Credentials keeps the CMS session token under TokenKey.
type Credentials struct {
	kv KV
}

// NewCredentials returns Credentials backed by kv.
func NewCredentials(kv KV) *Credentials {
	return &Credentials{kv: kv}
}

// Token returns the saved token, or "" when signed out or unavailable.
func (c *Credentials) Token() (string, error) {
	data, ok, err := c.kv.Get(TokenKey)
	if errors.Is(err, cart.ErrUnavailable) {
		return "", nil
	}
	if err != nil || !ok {
		return "", err
	}
	return string(data), nil
}

// SetToken saves the token.
func (c *Credentials) SetToken(token string) error {
	return c.kv.Set(TokenKey, []byte(token))
}

// ClearToken forgets the token.
func (c *Credentials) ClearToken() error {
	return c.kv.Delete(TokenKey)
}
