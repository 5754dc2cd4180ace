// Package cms is a client for the headless CMS behind the storefront. It
// resolves the signed-in user, saves the user's cart and looks up products.
package cms

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront-cart/pkg/transport"
)

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 4 << 20

// TokenSource provides the session token sent with every request.
type TokenSource interface {
	Token() (string, error)
}

// Config configures the Client.
type Config struct {
	// BaseURL is the CMS root, e.g. https://cms.example.com.
	BaseURL string
	// Timeout bounds every request. Zero means 10s.
	Timeout        time.Duration
	Tokens         TokenSource
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	// Transport is the underlying transport; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to the CMS REST API.
type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("cms base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var otelOpts []otelhttp.Option
	if cfg.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	if cfg.MeterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(cfg.MeterProvider))
	}
	rt := otelhttp.NewTransport(
		transport.Wrap(cfg.Transport,
			transport.RequestID(),
			transport.LogRequests(cfg.Logger),
		),
		otelOpts...,
	)

	return &Client{
		base: base,
		http: &http.Client{
			Transport: rt,
			Timeout:   cfg.Timeout,
		},
		tokens: cfg.Tokens,
	}, nil
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   func(e *jx.Encoder)
	// decode reads a successful response; nil discards the body.
	decode func(d *jx.Decoder) error
}

func (c *Client) do(ctx context.Context, r request) error {
	u := *c.base
	u.Path += r.path
	if r.query != nil {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		var e jx.Encoder
		r.body(&e)
		body = bytes.NewReader(e.Bytes())
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return errors.Wrapf(err, "%s: create request", r.op)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return errors.Wrapf(err, "%s: get token", r.op)
		}
		if token != "" {
			req.Header.Set("Authorization", "JWT "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, r.op)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errors.Wrapf(err, "%s: read body", r.op)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Op:         r.op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}
	if r.decode == nil || len(data) == 0 {
		return nil
	}
	if err := r.decode(jx.DecodeBytes(data)); err != nil {
		return errors.Wrapf(err, "%s: decode response", r.op)
	}
	return nil
}

// errorMessage extracts the first message of a {"errors":[{"message":...}]}
// body. Bodies in any other shape yield "".
func errorMessage(data []byte) string {
	var msg string
	_ = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "errors" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "message" || msg != "" {
					return d.Skip()
				}
				s, err := d.Str()
				msg = s
				return err
			})
		})
	})
	return msg
}
