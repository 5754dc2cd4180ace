package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

const (
	overwriteCartSQL = `INSERT INTO carts (user_id, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET items = EXCLUDED.items, updated_at = now()`

	getCartSQL = `SELECT items FROM carts WHERE user_id = $1`
)

var _ cart.RemoteStore = (*CartRepository)(nil)

// CartRepository stores the saved cart of each user as a JSONB document.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// OverwriteCart replaces the saved cart of userID. Products are always
// stored as bare ids.
func (r *CartRepository) OverwriteCart(ctx context.Context, userID string, c cart.Cart) error {
	data, err := c.Flatten().MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling cart: %w", err)
	}

	if _, err := r.pool.Exec(ctx, overwriteCartSQL, userID, data); err != nil {
		return fmt.Errorf("overwriting cart of %q: %w", userID, err)
	}
	return nil
}

// GetCart returns the saved cart of userID, or an empty cart when the user
// has none.
func (r *CartRepository) GetCart(ctx context.Context, userID string) (cart.Cart, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.Empty(), nil
		}
		return cart.Cart{}, fmt.Errorf("getting cart of %q: %w", userID, err)
	}

	var c cart.Cart
	if err := c.UnmarshalJSON(data); err != nil {
		return cart.Cart{}, fmt.Errorf("decoding cart of %q: %w", userID, err)
	}
	return cart.Normalize(c), nil
}
