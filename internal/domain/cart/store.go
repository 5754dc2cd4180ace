package cart

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnavailable is returned by a LocalStore that cannot be used in the
// current execution context. Callers skip persistence on it.
var ErrUnavailable = errors.New("local store unavailable")

// LocalStore keeps the anonymous cart on the device.
type LocalStore interface {
	// Load returns the stored cart. ok is false when nothing usable is
	// stored; unparseable data counts as nothing stored.
	Load() (c Cart, ok bool, err error)
	// Save overwrites the stored cart.
	Save(c Cart) error
	// Clear removes the stored cart.
	Clear() error
}

// RemoteStore keeps the cart of a signed-in user.
type RemoteStore interface {
	// OverwriteCart replaces the user's saved cart with c. Implementations
	// receive products flattened to bare ids.
	OverwriteCart(ctx context.Context, userID string, c Cart) error
}
