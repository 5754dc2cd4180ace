package reconcile

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/internal/domain/cart"
)

const instrumentationName = "github.com/xenking/storefront-cart/internal/reconcile"

// SyncerConfig configures remote cart writes.
type SyncerConfig struct {
	// Timeout bounds a single remote write. Zero means 10s.
	Timeout        time.Duration
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

type remoteWrite struct {
	userID string
	cart   cart.Cart
}

// Syncer writes carts to the RemoteStore in the background.
//
// Writes are fire-and-forget: Push never blocks on the network. At most one
// write is in flight. Snapshots pushed meanwhile are kept per user: a newer
// snapshot replaces the one queued for the same user, and users are written
// in the order they were first queued. The remote store thus converges on
// the last cart pushed for every user. Failed writes are logged and dropped.
type Syncer struct {
	remote  cart.RemoteStore
	timeout time.Duration
	lg      *zap.Logger
	tracer  trace.Tracer

	writes   metric.Int64Counter
	failures metric.Int64Counter

	mu      sync.Mutex
	pending map[string]cart.Cart
	order   []string
	// idle is closed when the running worker exits; nil while idle.
	idle chan struct{}
}

// NewSyncer creates a Syncer that writes to remote.
func NewSyncer(remote cart.RemoteStore, cfg SyncerConfig) (*Syncer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}

	meter := cfg.MeterProvider.Meter(instrumentationName)
	writes, err := meter.Int64Counter("cart.remote.writes",
		metric.WithDescription("Remote cart writes that succeeded"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("cart.remote.failures",
		metric.WithDescription("Remote cart writes that failed and were dropped"),
	)
	if err != nil {
		return nil, err
	}

	return &Syncer{
		remote:   remote,
		timeout:  cfg.Timeout,
		lg:       cfg.Logger,
		tracer:   cfg.TracerProvider.Tracer(instrumentationName),
		writes:   writes,
		failures: failures,
		pending:  make(map[string]cart.Cart),
	}, nil
}

// Push schedules c to be written as the cart of userID. It may be called
// while Wait is blocked; Wait then also covers the new write.
func (s *Syncer) Push(userID string, c cart.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[userID]; !ok {
		s.order = append(s.order, userID)
	}
	s.pending[userID] = c
	if s.idle != nil {
		return
	}
	s.idle = make(chan struct{})
	go s.loop()
}

// Wait blocks until every pushed write has been attempted or ctx is done.
func (s *Syncer) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// next pops the oldest queued write. It reports false and marks the syncer
// idle when the queue is empty.
func (s *Syncer) next() (remoteWrite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		close(s.idle)
		s.idle = nil
		return remoteWrite{}, false
	}
	userID := s.order[0]
	s.order = s.order[1:]
	c := s.pending[userID]
	delete(s.pending, userID)
	return remoteWrite{userID: userID, cart: c}, true
}

func (s *Syncer) loop() {
	for {
		w, ok := s.next()
		if !ok {
			return
		}
		s.write(w)
	}
}

func (s *Syncer) write(w remoteWrite) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "cart.OverwriteCart",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cart.user_id", w.userID),
			attribute.Int("cart.items", len(w.cart.Items)),
		),
	)
	defer span.End()

	if err := s.remote.OverwriteCart(ctx, w.userID, w.cart); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "overwrite cart")
		s.failures.Add(ctx, 1)
		s.lg.Warn("Remote cart write failed",
			zap.String("user_id", w.userID),
			zap.Int("items", len(w.cart.Items)),
			zap.Error(err),
		)
		return
	}
	s.writes.Add(ctx, 1)
	s.lg.Debug("Remote cart written",
		zap.String("user_id", w.userID),
		zap.Int("items", len(w.cart.Items)),
	)
}
