package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/storefront-cart/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return err
		}
		err = appkg.Run(ctx, lg, m, cfg, os.Args[1:])
		if errors.Is(err, appkg.ErrUsage) {
			fmt.Fprintln(os.Stderr, appkg.Usage)
		}
		return err
	})
}
