// Package provider is the application root for the Beaver client. It owns
// exactly one gqlclient.Client (and so one normalized cache) per process,
// routes every client failure into a shared ErrorContext and tears both
// down together.
//
//	p, err := provider.New(cfg.Client)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//	comps, err := p.Client().GetComponents(ctx, gqlclient.ShapeList, nil)
package provider

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/gqlclient"
	"github.com/archbeaver/beaver/logger"
	"github.com/archbeaver/beaver/metrics"
)

// ErrClosed is returned by operations on a closed provider
var ErrClosed = errors.New("provider is closed")

// Option configures a Provider
type Option func(*Provider)

// WithClientOptions passes options through to the underlying client.
// An error handler set here is replaced by the provider's ErrorContext.
func WithClientOptions(opts ...gqlclient.Option) Option {
	return func(p *Provider) { p.clientOpts = append(p.clientOpts, opts...) }
}

// WithErrorCapacity bounds how many recent errors are retained
func WithErrorCapacity(n int) Option {
	return func(p *Provider) { p.errorCapacity = n }
}

// WithErrorHandler adds an application handler called after each error is recorded
func WithErrorHandler(h gqlclient.ErrorHandler) Option {
	return func(p *Provider) { p.onError = h }
}

// WithMetrics records client metrics on m
func WithMetrics(m *metrics.Client) Option {
	return func(p *Provider) { p.metrics = m }
}

// WithLogger sets the provider logger
func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Provider) { p.logger = log }
}

// Provider holds the process-wide client, cache and error context
type Provider struct {
	client        *gqlclient.Client
	errs          *ErrorContext
	clientOpts    []gqlclient.Option
	errorCapacity int
	onError       gqlclient.ErrorHandler
	metrics       *metrics.Client
	logger        *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
}

// New builds the provider and its single client
func New(cfg config.ClientConfig, opts ...Option) (*Provider, error) {
	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.ComponentLogger("provider")
	}
	p.errs = NewErrorContext(p.errorCapacity)

	clientOpts := append([]gqlclient.Option{gqlclient.WithLogger(p.logger.Named("gqlclient"))}, p.clientOpts...)
	if p.metrics != nil {
		clientOpts = append(clientOpts, gqlclient.WithMetrics(p.metrics))
	}
	clientOpts = append(clientOpts, gqlclient.WithErrorHandler(p.report))

	client, err := gqlclient.New(cfg, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}
	p.client = client

	p.logger.Infow("Client provider ready",
		"endpoint", cfg.Endpoint,
		"timeout", cfg.Timeout().String(),
		"max_entities", cfg.Cache.MaxEntities,
		"max_results", cfg.Cache.MaxResults,
	)
	return p, nil
}

var (
	defaultProvider *Provider
	defaultOnce     sync.Once
	defaultErr      error
)

// Default returns the process-wide provider, creating it from cfg on the
// first call. Later calls ignore their arguments.
func Default(cfg config.ClientConfig, opts ...Option) (*Provider, error) {
	defaultOnce.Do(func() {
		defaultProvider, defaultErr = New(cfg, opts...)
	})
	return defaultProvider, defaultErr
}

func (p *Provider) report(ctx context.Context, operation string, err error) {
	p.errs.Report(ctx, operation, err)
	if p.onError != nil {
		p.onError(ctx, operation, err)
	}
}

// Client returns the shared client. The same instance is returned on every call.
func (p *Provider) Client() *gqlclient.Client {
	return p.client
}

// Errors returns the shared error context
func (p *Provider) Errors() *ErrorContext {
	return p.errs
}

// Cache returns the shared normalized cache
func (p *Provider) Cache() *gqlclient.Cache {
	return p.client.Cache()
}

// Closed reports whether Close has run
func (p *Provider) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Reset clears the cache and the recorded errors, e.g. on sign-out
func (p *Provider) Reset() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	p.client.Cache().Clear()
	p.errs.Clear()
	return nil
}

// Close clears the cache, closes idle connections and releases error
// subscribers. It is safe to call more than once.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.client.Close()
	p.errs.close()
	p.logger.Debugw("Client provider closed", logger.FieldCount, p.errs.Len())
}
