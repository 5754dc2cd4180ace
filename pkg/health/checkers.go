package health

import (
	"context"

	"github.com/go-faster/errors"
)

// Pinger is implemented by connection pools, e.g. *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck returns a CheckFunc that pings p.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// Tolerate returns a CheckFunc that runs check and treats errors matching
// target as healthy. It is used for optional services whose absence is an
// expected state, such as device storage during a non-interactive run.
func Tolerate(check CheckFunc, target error) CheckFunc {
	return func(ctx context.Context) error {
		if err := check(ctx); err != nil && !errors.Is(err, target) {
			return err
		}
		return nil
	}
}
