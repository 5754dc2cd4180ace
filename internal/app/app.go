package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/cms"
	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/identity"
	"github.com/xenking/storefront-cart/internal/domain/product"
	"github.com/xenking/storefront-cart/internal/reconcile"
	"github.com/xenking/storefront-cart/internal/storage/local"
	"github.com/xenking/storefront-cart/internal/storage/postgres"
	"github.com/xenking/storefront-cart/pkg/health"
)

const (
	// closeTimeout bounds how long pending remote writes are awaited on exit.
	closeTimeout = 15 * time.Second
	checkTimeout = 5 * time.Second
)

// savedCarts reads the cart saved for a user.
type savedCarts interface {
	GetCart(ctx context.Context, userID string) (cart.Cart, error)
}

// App is a wired storefront cart session.
type App struct {
	lg        *zap.Logger
	cfg       *Config
	out       io.Writer
	formatter *cart.Formatter

	creds   *local.Credentials
	cms     *cms.Client
	catalog product.Repository
	// saved is set when carts are kept in PostgreSQL instead of the CMS.
	saved  savedCarts
	engine *reconcile.Engine
	health *health.Checker

	closers []func()
}

// Run creates all dependencies, resolves the current identity, executes the
// command given by args and waits for the cart to be persisted. It is the
// single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config, args []string) error {
	a, err := New(ctx, lg, m, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Exec(ctx, args)
}

// New wires the application.
func New(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) (*App, error) {
	formatter, err := cart.NewFormatter(cart.FormatterConfig{
		Locale:      cfg.Currency.Locale,
		Symbol:      cfg.Currency.Symbol,
		MinorUnits:  cfg.Currency.MinorUnits,
		SymbolAfter: cfg.Currency.SymbolAfter,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create formatter")
	}

	a := &App{
		lg:        lg,
		cfg:       cfg,
		out:       os.Stdout,
		formatter: formatter,
	}
	if err := a.wire(ctx, m); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, m *app.Telemetry) error {
	a.health = health.New()

	kv, err := a.newLocalKV(ctx)
	if err != nil {
		return errors.Wrap(err, "create local store")
	}
	a.creds = local.NewCredentials(kv)

	a.cms, err = cms.New(cms.Config{
		BaseURL:        a.cfg.CMS.URL,
		Timeout:        a.cfg.CMS.Timeout,
		Tokens:         a.creds,
		Logger:         a.lg.Named("cms"),
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create cms client")
	}
	a.registerChecks(kv)

	var remote cart.RemoteStore = a.cms
	var catalog product.Repository = a.cms
	if a.cfg.usesPostgres() {
		pool, err := postgres.NewPool(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		a.closers = append(a.closers, pool.Close)
		a.health.Add("postgres", checkTimeout, health.PingCheck(pool))

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		if a.cfg.Remote.Driver == DriverPostgres {
			carts := postgres.NewCartRepository(pool)
			remote = carts
			a.saved = carts
		}
		if a.cfg.Catalog.Driver == DriverPostgres {
			catalog = postgres.NewProductRepository(pool)
		}
	}
	a.catalog = catalog

	syncer, err := reconcile.NewSyncer(remote, reconcile.SyncerConfig{
		Timeout:        a.cfg.Remote.Timeout,
		Logger:         a.lg.Named("sync"),
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create syncer")
	}

	a.engine = reconcile.NewEngine(local.NewStore(kv), syncer, reconcile.Options{
		Logger:    a.lg.Named("cart"),
		Formatter: a.formatter,
	})
	return nil
}

func (a *App) newLocalKV(ctx context.Context) (local.KV, error) {
	switch a.cfg.Local.Driver {
	case LocalDisabled:
		return local.Unavailable{}, nil
	case LocalRedis:
		rc := a.cfg.Local.Redis
		client := redis.NewClient(&redis.Options{
			Addr:         rc.Addr,
			Password:     rc.Password,
			DB:           rc.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.health.Add("redis", checkTimeout, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, errors.Wrap(err, "ping redis")
		}
		return local.NewRedisKV(client, local.RedisConfig{
			Prefix: rc.Prefix,
			TTL:    rc.TTL,
		}), nil
	default:
		dir := a.cfg.Local.Dir
		if dir == "" {
			d, err := local.DefaultDir()
			if err != nil {
				// No home directory, e.g. a sandboxed build step.
				a.lg.Warn("No user config directory, local cart disabled", zap.Error(err))
				return local.Unavailable{}, nil
			}
			dir = d
		}
		return local.NewFileKV(dir), nil
	}
}

// registerChecks adds the checks of the services every session uses.
func (a *App) registerChecks(kv local.KV) {
	a.health.Add("cms", a.cfg.CMS.Timeout, func(ctx context.Context) error {
		_, err := a.cms.Me(ctx)
		return err
	})
	a.health.Add("local", checkTimeout, health.Tolerate(func(context.Context) error {
		_, _, err := kv.Get(local.CartKey)
		return err
	}, cart.ErrUnavailable))
}

// resolveIdentity asks the CMS who is signed in. With PostgreSQL carts the
// server snapshot comes from the database instead of the user document.
func (a *App) resolveIdentity(ctx context.Context) (identity.State, error) {
	s, err := a.cms.Identity(ctx)
	if err != nil {
		return identity.LoadingState(), errors.Wrap(err, "resolve identity")
	}
	if s.Kind == identity.Authenticated && a.saved != nil {
		c, err := a.saved.GetCart(ctx, s.ID)
		if err != nil {
			return identity.LoadingState(), errors.Wrap(err, "get saved cart")
		}
		s.Cart = c
	}
	return s, nil
}

// Close waits for pending cart writes and releases resources.
func (a *App) Close() {
	if a.engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := a.engine.Close(ctx); err != nil {
			a.lg.Warn("Pending cart writes abandoned", zap.Error(err))
		}
		cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
