// Package service orchestrates catalog writes: validation, the relational
// write, the graph projection and a change event, in that order.
//
// Graph sync failures are logged and never fail the relational write; the
// graph store can always be rebuilt with Resync.
package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/archbeaver/beaver/graph"
	"github.com/archbeaver/beaver/graphstore"
	"github.com/archbeaver/beaver/logger"
	"github.com/archbeaver/beaver/storage"
)

// Change actions
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// EventEntityChanged is the type of every change event
const EventEntityChanged = "entity_changed"

// Event announces a committed write
type Event struct {
	Type      string    `json:"type"`
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher receives change events. Publish must not block.
type Publisher interface {
	Publish(Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// Service is the single entry point used by the GraphQL resolvers and the CLI
type Service struct {
	store     *storage.Store
	graph     graphstore.Store
	backend   string
	publisher Publisher
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithPublisher routes change events to p
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithBackendName records the graph backend name in graph metadata
func WithBackendName(name string) Option {
	return func(s *Service) { s.backend = name }
}

// New creates a service. A nil graph store gets an in-memory one.
func New(store *storage.Store, gs graphstore.Store, log *zap.SugaredLogger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if gs == nil {
		gs = graphstore.NewMemory()
	}
	s := &Service{
		store:     store,
		graph:     gs,
		backend:   "memory",
		publisher: nopPublisher{},
		logger:    log.Named("service"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPublisher replaces the event publisher after construction
func (s *Service) SetPublisher(p Publisher) {
	if p == nil {
		p = nopPublisher{}
	}
	s.publisher = p
}

// Store exposes the relational store for read paths
func (s *Service) Store() *storage.Store {
	return s.store
}

// Ping checks the relational store
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) emit(ctx context.Context, entity string, id int64, action string) {
	s.logger.Debugw("Entity changed", append(logger.FieldsFromContext(ctx),
		logger.FieldEntity, entity,
		logger.FieldEntityID, id,
		logger.FieldAction, action,
	)...)
	s.publisher.Publish(Event{
		Type:      EventEntityChanged,
		Entity:    entity,
		ID:        strconv.FormatInt(id, 10),
		Action:    action,
		Timestamp: s.now().UTC(),
	})
}

// syncGraph runs a projection and logs failures without returning them
func (s *Service) syncGraph(ctx context.Context, entity string, id int64, fn func() error) {
	if err := fn(); err != nil {
		s.logger.Warnw("Graph sync failed", append(logger.FieldsFromContext(ctx),
			logger.FieldEntity, entity,
			logger.FieldEntityID, id,
			logger.FieldError, err,
		)...)
	}
}

// Resync rebuilds the graph store from the relational store
func (s *Service) Resync(ctx context.Context) (graphstore.SyncStats, error) {
	return graphstore.Sync(ctx, s.store, s.graph, s.logger)
}

// Graph returns the projected dependency graph
func (s *Service) Graph(ctx context.Context) (*graph.Graph, error) {
	snap, err := s.graph.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	g := graph.Build(snap, s.backend, s.now().UTC())
	s.logger.Debugw("Graph built",
		logger.FieldNodes, len(g.Nodes),
		logger.FieldLinks, len(g.Links),
	)
	return g, nil
}

// Close releases the graph store
func (s *Service) Close(ctx context.Context) error {
	return s.graph.Close(ctx)
}
