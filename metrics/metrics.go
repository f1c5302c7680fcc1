// Package metrics holds the prometheus registry shared by the GraphQL server
// and client, and the collectors both record into.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "beaver"

// Server contains GraphQL server metrics
type Server struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResolverErrors  *prometheus.CounterVec
	WSClients       prometheus.Gauge
	EventsPublished *prometheus.CounterVec
}

// Client contains GraphQL client metrics
type Client struct {
	Requests    *prometheus.CounterVec
	Retries     prometheus.Counter
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	Evictions   *prometheus.CounterVec
}

// Registry wraps a dedicated prometheus registry
type Registry struct {
	reg    *prometheus.Registry
	Server *Server
	Client *Client
}

// NewRegistry creates a registry with server, client and Go runtime collectors
func NewRegistry() *Registry {
	r := &Registry{
		reg:    prometheus.NewRegistry(),
		Server: newServer(),
		Client: newClient(),
	}
	r.reg.MustRegister(
		r.Server.Requests,
		r.Server.RequestDuration,
		r.Server.ResolverErrors,
		r.Server.WSClients,
		r.Server.EventsPublished,
		r.Client.Requests,
		r.Client.Retries,
		r.Client.CacheHits,
		r.Client.CacheMisses,
		r.Client.Evictions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Prometheus returns the underlying registry
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.reg
}

// Handler serves the registry in the prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func newServer() *Server {
	return &Server{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gqlserver",
				Name:      "requests_total",
				Help:      "GraphQL requests by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gqlserver",
				Name:      "request_duration_seconds",
				Help:      "GraphQL request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ResolverErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gqlserver",
				Name:      "resolver_errors_total",
				Help:      "Resolver errors by extension code",
			},
			[]string{"code"},
		),
		WSClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gqlserver",
				Name:      "ws_clients",
				Help:      "Connected change feed clients",
			},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gqlserver",
				Name:      "events_published_total",
				Help:      "Change events published to the feed",
			},
			[]string{"entity", "action"},
		),
	}
}

func newClient() *Client {
	return &Client{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gqlclient",
				Name:      "requests_total",
				Help:      "Network requests by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		Retries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gqlclient",
				Name:      "retries_total",
				Help:      "Query retries after network failures or 5xx responses",
			},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gqlclient",
				Name:      "cache_hits_total",
				Help:      "Query results served from the normalized cache",
			},
			[]string{"operation"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gqlclient",
				Name:      "cache_misses_total",
				Help:      "Query results not found in the normalized cache",
			},
			[]string{"operation"},
		),
		Evictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gqlclient",
				Name:      "cache_evictions_total",
				Help:      "Cache entries dropped, by reason",
			},
			[]string{"reason"},
		),
	}
}
