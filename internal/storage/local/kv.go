// Package local implements device-local persistence for the anonymous cart.
package local

import (
	"github.com/xenking/storefront-cart/internal/domain/cart"
)

// KV is a synchronous key/value store on the device.
type KV interface {
	// Get returns the value stored under key; ok is false when absent.
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Unavailable is a KV for contexts without device storage. Every call
// returns cart.ErrUnavailable.
type Unavailable struct{}

var _ KV = Unavailable{}

func (Unavailable) Get(string) ([]byte, bool, error) { return nil, false, cart.ErrUnavailable }
func (Unavailable) Set(string, []byte) error         { return cart.ErrUnavailable }
func (Unavailable) Delete(string) error              { return cart.ErrUnavailable }
