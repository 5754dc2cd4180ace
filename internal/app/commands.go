package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront-cart/internal/domain/cart"
	"github.com/xenking/storefront-cart/internal/domain/identity"
	"github.com/xenking/storefront-cart/pkg/health"
)

// Usage describes the commands accepted by Exec.
const Usage = `usage: storefront-cart <command> [args]

commands:
  show                       print the cart
  add <product-id> [qty]     add a product, incrementing its quantity
  set <product-id> <qty>     overwrite a quantity, 0 removes the product
  remove <product-id>        remove a product
  clear                      empty the cart
  login <email> <password>   sign in and merge the cart with the saved one
  logout                     sign out and clear the cart
  watch                      follow sign-in state changes and print the cart
  status                     check the services the cart depends on`

var (
	// ErrUsage is returned for unknown commands or wrong arguments.
	ErrUsage = errors.New("invalid usage")
	// ErrUnhealthy is returned by the status command when a service is down.
	ErrUnhealthy = errors.New("unhealthy services")
)

func usageErr(format string, args ...any) error {
	return errors.Wrapf(ErrUsage, format, args...)
}

// Exec resolves the identity and runs the command in args.
func (a *App) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErr("missing command")
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "watch":
		return a.watch(ctx)
	case "status":
		return a.status(ctx)
	}

	s, err := a.resolveIdentity(ctx)
	if err != nil {
		// Carry on as unknown: edits go to the local cart and are merged on
		// the next successful sign-in.
		a.lg.Warn("Identity unavailable, using local cart", zap.Error(err))
	}
	a.engine.Observe(s)

	switch cmd {
	case "show":
		if len(rest) != 0 {
			return usageErr("show takes no arguments")
		}
	case "add":
		if len(rest) < 1 || len(rest) > 2 {
			return usageErr("add <product-id> [qty]")
		}
		qty := 1
		if len(rest) == 2 {
			if qty, err = parseQuantity(rest[1]); err != nil {
				return err
			}
		}
		a.engine.AddItem(a.lookup(ctx, rest[0]), qty)
	case "set":
		if len(rest) != 2 {
			return usageErr("set <product-id> <qty>")
		}
		qty, err := strconv.Atoi(rest[1])
		if err != nil {
			return usageErr("quantity %q is not a number", rest[1])
		}
		a.engine.SetQuantity(a.lookup(ctx, rest[0]), qty)
	case "remove":
		if len(rest) != 1 {
			return usageErr("remove <product-id>")
		}
		ref := cart.ByID(rest[0])
		if !a.engine.IsInCart(ref) {
			fmt.Fprintf(a.out, "Product %s is not in the cart.\n", rest[0])
			return nil
		}
		a.engine.RemoveItem(ref)
	case "clear":
		a.engine.Clear()
	case "login":
		if len(rest) != 2 {
			return usageErr("login <email> <password>")
		}
		if err := a.login(ctx, rest[0], rest[1]); err != nil {
			return err
		}
	case "logout":
		if err := a.logout(ctx); err != nil {
			return err
		}
	default:
		return usageErr("unknown command %q", cmd)
	}

	a.hydrate(ctx)
	return a.print(a.engine.View())
}

func parseQuantity(s string) (int, error) {
	qty, err := strconv.Atoi(s)
	if err != nil || qty < 1 {
		return 0, usageErr("quantity %q must be a positive number", s)
	}
	return qty, nil
}

// lookup resolves the product so it is stored with its record; unknown or
// unreachable products are added by id and resolved later.
func (a *App) lookup(ctx context.Context, id string) cart.ProductRef {
	products, err := a.catalog.GetByIDs(ctx, []string{id})
	if err != nil {
		a.lg.Warn("Product lookup failed", zap.String("product_id", id), zap.Error(err))
		return cart.ByID(id)
	}
	for _, p := range products {
		if p.ID == id {
			return cart.Resolved(p)
		}
	}
	return cart.ByID(id)
}

func (a *App) hydrate(ctx context.Context) {
	if err := a.engine.Hydrate(ctx, a.catalog); err != nil {
		a.lg.Warn("Cart hydration failed", zap.Error(err))
	}
}

func (a *App) login(ctx context.Context, email, password string) error {
	u, token, err := a.cms.Login(ctx, email, password)
	if err != nil {
		return errors.Wrap(err, "login")
	}
	if err := a.creds.SetToken(token); err != nil {
		a.lg.Warn("Session token not saved", zap.Error(err))
	}

	s := identity.AuthenticatedState(u.ID, u.Email, u.Cart)
	if a.saved != nil {
		c, err := a.saved.GetCart(ctx, u.ID)
		if err != nil {
			return errors.Wrap(err, "get saved cart")
		}
		s.Cart = c
	}
	a.engine.Observe(s)
	fmt.Fprintf(a.out, "Signed in as %s.\n", u.Email)
	return nil
}

func (a *App) logout(ctx context.Context) error {
	if err := a.cms.Logout(ctx); err != nil {
		a.lg.Warn("CMS logout failed", zap.Error(err))
	}
	if err := a.creds.ClearToken(); err != nil {
		return errors.Wrap(err, "clear session token")
	}
	a.engine.Observe(identity.AnonymousState())
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

// watch polls the identity and feeds it to the engine, printing the cart on
// every change until ctx is done.
func (a *App) watch(ctx context.Context) error {
	// Changes are reported from both the poller and the engine loop.
	var printMu sync.Mutex
	unsubscribe := a.engine.Subscribe(func(v cart.View) {
		printMu.Lock()
		defer printMu.Unlock()
		if err := a.print(v); err != nil {
			a.lg.Warn("Print cart", zap.Error(err))
		}
	})
	defer unsubscribe()

	a.health.OnChange(func(r health.Result) {
		if r.Healthy {
			a.lg.Info("Service recovered", zap.String("service", r.Name))
			return
		}
		a.lg.Warn("Service unavailable", zap.String("service", r.Name), zap.Error(r.Err))
	})
	a.health.Start(ctx, a.cfg.Watch.Interval)
	defer a.health.Stop()

	states := make(chan identity.State)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(states)
		return a.pollIdentity(gctx, states)
	})
	g.Go(func() error {
		return a.engine.Run(gctx, states)
	})

	// Stopping by the caller is not an error.
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (a *App) pollIdentity(ctx context.Context, states chan<- identity.State) error {
	ticker := time.NewTicker(a.cfg.Watch.Interval)
	defer ticker.Stop()

	var last identity.Kind = -1
	var lastID string
	for {
		s, err := a.resolveIdentity(ctx)
		switch {
		case err != nil:
			a.lg.Warn("Identity poll failed", zap.Error(err))
		case s.Kind != last || s.ID != lastID:
			a.lg.Info("Identity changed", zap.Stringer("state", s.Kind), zap.String("user_id", s.ID))
			last, lastID = s.Kind, s.ID
			select {
			case states <- s:
			case <-ctx.Done():
				return ctx.Err()
			}
			a.hydrate(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *App) status(ctx context.Context) error {
	results := a.health.CheckOnce(ctx)

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tERROR")
	var failed int
	for _, r := range results {
		state, msg := "ok", ""
		if !r.Healthy {
			state, msg = "down", r.Err.Error()
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, state, msg)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return errors.Wrapf(ErrUnhealthy, "%d of %d", failed, len(results))
	}
	return nil
}

func (a *App) print(v cart.View) error {
	if v.IsEmpty {
		_, err := fmt.Fprintln(a.out, "Your cart is empty.")
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tTITLE\tQTY\tPRICE")
	for _, it := range v.Cart.Items {
		title, price := "-", "-"
		if p, ok := it.Product.Product(); ok {
			title, price = p.Title, a.formatter.Format(p.Price)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", it.Product.ID(), title, it.Quantity, price)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	noun := "items"
	if v.Count == 1 {
		noun = "item"
	}
	_, err := fmt.Fprintf(a.out, "Total: %s (%d %s)\n", v.Total.Formatted, v.Count, noun)
	return err
}
