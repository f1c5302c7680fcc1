// Package gqlclient is the Go client for the Beaver GraphQL API.
//
// A Client posts operations through a retrying, rate-limited transport and
// keeps results in a normalized cache, so an entity fetched by a list query
// and by a detail query is stored once. Queries go through a fetch policy
// (CacheFirst by default); identical concurrent network fetches are coalesced.
// Mutations write their payload into the cache, evict deleted entities and
// refetch the queries they name. Every transport or GraphQL failure is
// reported once to the configured ErrorHandler before being returned.
//
// Usage:
//
//	c, err := gqlclient.New(cfg.Client, gqlclient.WithErrorHandler(report))
//	components, err := c.GetComponents(ctx, gqlclient.ShapeList, nil)
package gqlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/logger"
	"github.com/archbeaver/beaver/metrics"
	"github.com/archbeaver/beaver/schema"
)

// FetchPolicy decides where a query reads from
type FetchPolicy int

const (
	// CacheFirst answers from the cache and goes to the network on a miss
	CacheFirst FetchPolicy = iota
	// NetworkOnly always fetches and refreshes the cache
	NetworkOnly
	// CacheOnly never fetches; a miss is an ErrCacheMiss
	CacheOnly
)

func (p FetchPolicy) String() string {
	switch p {
	case NetworkOnly:
		return "network-only"
	case CacheOnly:
		return "cache-only"
	default:
		return "cache-first"
	}
}

// ErrCacheMiss is returned for CacheOnly queries without a cached result
var ErrCacheMiss = errors.Mark(errors.New("no cached result"), errors.ErrNotFound)

// ErrorHandler receives every transport and GraphQL failure exactly once
type ErrorHandler func(ctx context.Context, operation string, err error)

// Operation is a named GraphQL document
type Operation struct {
	Name     string
	Document string
}

// NewOperation looks up a named operation from the embedded client documents
func NewOperation(name string) (Operation, error) {
	doc, err := schema.Operation(name)
	if err != nil {
		return Operation{}, err
	}
	return Operation{Name: name, Document: doc}, nil
}

// Entity identifies one normalized object
type Entity struct {
	Type string
	ID   string
}

type callOptions struct {
	policy  FetchPolicy
	refetch []string
	evict   []Entity
}

// CallOption tunes a single Query or Mutate call
type CallOption func(*callOptions)

// WithFetchPolicy overrides the query fetch policy
func WithFetchPolicy(p FetchPolicy) CallOption {
	return func(o *callOptions) { o.policy = p }
}

// WithRefetchQueries refetches every cached result of the named queries after a mutation
func WithRefetchQueries(operations ...string) CallOption {
	return func(o *callOptions) { o.refetch = append(o.refetch, operations...) }
}

// WithEvict removes an entity from the cache after a mutation succeeds
func WithEvict(typename, id string) CallOption {
	return func(o *callOptions) { o.evict = append(o.evict, Entity{Type: typename, ID: id}) }
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used by the transport
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithErrorHandler sets the central error interceptor
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Client) { c.onError = h }
}

// WithMetrics records client metrics into m
func WithMetrics(m *metrics.Client) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the client logger
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) { c.logger = log }
}

// Client talks to the Beaver GraphQL API through a normalized cache
type Client struct {
	transport  *Transport
	cache      *Cache
	group      singleflight.Group
	httpClient *http.Client
	onError    ErrorHandler
	metrics    *metrics.Client
	logger     *zap.SugaredLogger
}

// New creates a client for cfg.Endpoint
func New(cfg config.ClientConfig, opts ...Option) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.NewValidationError("client endpoint is required")
	}
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.ComponentLogger("gqlclient")
	}
	if c.metrics == nil {
		c.metrics = metrics.NewRegistry().Client
	}
	if c.onError == nil {
		c.onError = func(context.Context, string, error) {}
	}

	cache, err := NewCache(cfg.Cache.MaxEntities, cfg.Cache.MaxResults, c.metrics)
	if err != nil {
		return nil, err
	}
	c.cache = cache
	c.transport = newTransport(cfg, c.httpClient, c.metrics, c.logger)
	return c, nil
}

// Cache exposes the normalized cache
func (c *Client) Cache() *Cache {
	return c.cache
}

// Evict removes one entity from the cache
func (c *Client) Evict(typename, id string) bool {
	return c.cache.Evict(typename, id)
}

// Close clears the cache and releases idle connections
func (c *Client) Close() {
	c.cache.Clear()
	c.transport.closeIdle()
}

// Query runs a query under its fetch policy and decodes data into out
func (c *Client) Query(ctx context.Context, op Operation, vars map[string]interface{}, out interface{}, opts ...CallOption) error {
	o := callOptions{policy: CacheFirst}
	for _, opt := range opts {
		opt(&o)
	}

	if o.policy != NetworkOnly {
		if data, ok := c.cache.Read(op.Name, vars); ok {
			c.metrics.CacheHits.WithLabelValues(op.Name).Inc()
			return decodeInto(data, out)
		}
		c.metrics.CacheMisses.WithLabelValues(op.Name).Inc()
		if o.policy == CacheOnly {
			return errors.Wrapf(ErrCacheMiss, "%s", op.Name)
		}
	}

	data, err := c.fetch(ctx, op, vars)
	if err != nil {
		return err
	}
	return decodeInto(data, out)
}

// OptimizedQuery runs a query with the variables of shape merged into vars
func (c *Client) OptimizedQuery(ctx context.Context, op Operation, shape Shape, vars map[string]interface{}, out interface{}, opts ...CallOption) error {
	return c.Query(ctx, op, shape.Variables(vars), out, opts...)
}

// Mutate runs a mutation, writes its payload into the cache and applies the
// evictions and refetches requested in opts. Mutations are never retried.
func (c *Client) Mutate(ctx context.Context, op Operation, vars map[string]interface{}, out interface{}, opts ...CallOption) error {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	data, err := c.send(ctx, op, vars, false)
	if err != nil {
		return err
	}
	c.cache.WriteEntities(data)
	for _, e := range o.evict {
		c.cache.Evict(e.Type, e.ID)
	}
	if len(o.refetch) > 0 {
		c.refetch(ctx, o.refetch)
	}
	return decodeInto(data, out)
}

// fetch goes to the network, coalescing identical in-flight queries
func (c *Client) fetch(ctx context.Context, op Operation, vars map[string]interface{}) (map[string]interface{}, error) {
	key, err := ResultKey(op.Name, vars)
	if err != nil {
		return nil, err
	}
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		data, err := c.send(ctx, op, vars, true)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Write(op.Name, vars, data); err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debugw("Coalesced query", logger.FieldOperation, op.Name)
	}
	return v.(map[string]interface{}), nil
}

// refetch reruns every cached result of the named queries. Failures are
// reported through the error handler and otherwise ignored.
func (c *Client) refetch(ctx context.Context, operations []string) {
	for _, ref := range c.cache.Invalidate(operations...) {
		op, err := NewOperation(ref.Operation)
		if err != nil {
			continue
		}
		if _, err := c.fetch(ctx, op, ref.Variables); err != nil {
			c.logger.Debugw("Refetch failed", logger.FieldOperation, ref.Operation, logger.FieldError, err)
		}
	}
}

// send performs one logical request and reports failures to the error handler
func (c *Client) send(ctx context.Context, op Operation, vars map[string]interface{}, retryable bool) (map[string]interface{}, error) {
	start := time.Now()
	query, err := addTypename(op.Document)
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.do(ctx, op, vars, query, retryable)
	if err != nil {
		c.report(ctx, op.Name, err)
		return nil, err
	}
	if len(resp.Errors) > 0 {
		c.metrics.Requests.WithLabelValues(op.Name, "graphql_error").Inc()
		err := newResponseError(op.Name, resp.Errors)
		c.report(ctx, op.Name, err)
		return nil, err
	}
	c.metrics.Requests.WithLabelValues(op.Name, "ok").Inc()

	data := map[string]interface{}{}
	if len(resp.Data) > 0 && !bytes.Equal(resp.Data, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(resp.Data))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			err = errors.NewTransportError(err, "failed to decode response data")
			c.report(ctx, op.Name, err)
			return nil, err
		}
	}
	c.logger.Debugw("GraphQL request completed",
		logger.FieldOperation, op.Name,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return data, nil
}

func (c *Client) report(ctx context.Context, op string, err error) {
	c.logger.Warnw("GraphQL request failed",
		logger.FieldOperation, op,
		logger.FieldErrorCode, errors.Code(err),
		logger.FieldError, err,
	)
	c.onError(ctx, op, err)
}

func decodeInto(data map[string]interface{}, out interface{}) error {
	if out == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "failed to encode response data")
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrap(err, "failed to decode response data")
	}
	return nil
}
