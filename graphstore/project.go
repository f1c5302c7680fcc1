package graphstore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/archbeaver/beaver/catalog"
	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
)

// Open builds the configured backend
func Open(ctx context.Context, cfg config.GraphConfig, logger *zap.SugaredLogger) (Store, error) {
	switch cfg.Backend {
	case config.GraphBackendNeo4j:
		return NewNeo4j(ctx, cfg.Neo4j, logger)
	case config.GraphBackendMemory, "":
		return NewMemory(), nil
	default:
		return nil, errors.Newf("unsupported graph backend %q", cfg.Backend)
	}
}

func ComponentRef(id int64) NodeRef   { return NodeRef{Label: LabelComponent, ID: id} }
func InstanceRef(id int64) NodeRef    { return NodeRef{Label: LabelInstance, ID: id} }
func EnvironmentRef(id int64) NodeRef { return NodeRef{Label: LabelEnvironment, ID: id} }
func TeamRef(id int64) NodeRef        { return NodeRef{Label: LabelTeam, ID: id} }
func CategoryRef(id int64) NodeRef    { return NodeRef{Label: LabelCategory, ID: id} }
func ADRRef(id int64) NodeRef         { return NodeRef{Label: LabelADR, ID: id} }

// PutEnvironment projects an environment
func PutEnvironment(ctx context.Context, s Store, e catalog.Environment) error {
	return s.UpsertNode(ctx, Node{NodeRef: EnvironmentRef(e.ID), Name: e.Name})
}

// PutTeam projects a team
func PutTeam(ctx context.Context, s Store, t catalog.Team) error {
	return s.UpsertNode(ctx, Node{NodeRef: TeamRef(t.ID), Name: t.Name})
}

// PutCategory projects a category
func PutCategory(ctx context.Context, s Store, c catalog.Category) error {
	return s.UpsertNode(ctx, Node{NodeRef: CategoryRef(c.ID), Name: c.Name})
}

// PutComponent projects a component with its BELONGS_TO and RESPONSIBLE_FOR edges
func PutComponent(ctx context.Context, s Store, c catalog.Component) error {
	ref := ComponentRef(c.ID)
	if err := s.UpsertNode(ctx, Node{
		NodeRef: ref,
		Name:    c.Name,
		Props:   map[string]interface{}{"status": string(c.Status)},
	}); err != nil {
		return err
	}
	var categories, teams []NodeRef
	if c.CategoryID != nil {
		categories = append(categories, CategoryRef(*c.CategoryID))
	}
	if c.TeamID != nil {
		teams = append(teams, TeamRef(*c.TeamID))
	}
	if err := s.ReplaceEdges(ctx, ref, RelBelongsTo, categories); err != nil {
		return err
	}
	return s.ReplaceIncoming(ctx, ref, RelResponsibleFor, teams)
}

// PutInstance projects an instance with its INSTANTIATES and DEPLOYED_IN edges
func PutInstance(ctx context.Context, s Store, in catalog.Instance) error {
	ref := InstanceRef(in.ID)
	name := in.Hostname
	if name == "" {
		name = ref.Key()
	}
	if err := s.UpsertNode(ctx, Node{NodeRef: ref, Name: name}); err != nil {
		return err
	}
	if err := s.ReplaceEdges(ctx, ref, RelInstantiates, []NodeRef{ComponentRef(in.ComponentID)}); err != nil {
		return err
	}
	return s.ReplaceEdges(ctx, ref, RelDeployedIn, []NodeRef{EnvironmentRef(in.EnvironmentID)})
}

// PutADR projects an ADR with RELATES_TO edges to its components and instances
func PutADR(ctx context.Context, s Store, a catalog.ADR) error {
	ref := ADRRef(a.ID)
	if err := s.UpsertNode(ctx, Node{
		NodeRef: ref,
		Name:    a.Title,
		Props:   map[string]interface{}{"status": string(a.Status)},
	}); err != nil {
		return err
	}
	targets := make([]NodeRef, 0, len(a.ComponentIDs)+len(a.InstanceIDs))
	for _, id := range a.ComponentIDs {
		targets = append(targets, ComponentRef(id))
	}
	for _, id := range a.InstanceIDs {
		targets = append(targets, InstanceRef(id))
	}
	return s.ReplaceEdges(ctx, ref, RelRelatesTo, targets)
}

// Source is the relational side of a full resync
type Source interface {
	ListEnvironments(ctx context.Context) ([]catalog.Environment, error)
	ListTeams(ctx context.Context) ([]catalog.Team, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	ListComponents(ctx context.Context, filter catalog.ComponentFilter) ([]catalog.Component, error)
	ListInstances(ctx context.Context, componentID *int64) ([]catalog.Instance, error)
	ListADRs(ctx context.Context, status *catalog.ADRStatus) ([]catalog.ADR, error)
}

// SyncStats summarizes a resync
type SyncStats struct {
	Nodes    int
	Duration time.Duration
}

// Sync clears the graph store and rebuilds it from the relational store.
// Nodes referenced by edges are written first.
func Sync(ctx context.Context, src Source, dst Store, logger *zap.SugaredLogger) (SyncStats, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	start := time.Now()
	var stats SyncStats

	if err := dst.Clear(ctx); err != nil {
		return stats, err
	}

	envs, err := src.ListEnvironments(ctx)
	if err != nil {
		return stats, err
	}
	for _, e := range envs {
		if err := PutEnvironment(ctx, dst, e); err != nil {
			return stats, err
		}
	}
	stats.Nodes += len(envs)

	teams, err := src.ListTeams(ctx)
	if err != nil {
		return stats, err
	}
	for _, t := range teams {
		if err := PutTeam(ctx, dst, t); err != nil {
			return stats, err
		}
	}
	stats.Nodes += len(teams)

	cats, err := src.ListCategories(ctx)
	if err != nil {
		return stats, err
	}
	for _, c := range cats {
		if err := PutCategory(ctx, dst, c); err != nil {
			return stats, err
		}
	}
	stats.Nodes += len(cats)

	comps, err := src.ListComponents(ctx, catalog.ComponentFilter{})
	if err != nil {
		return stats, err
	}
	for _, c := range comps {
		if err := PutComponent(ctx, dst, c); err != nil {
			return stats, err
		}
	}
	stats.Nodes += len(comps)

	insts, err := src.ListInstances(ctx, nil)
	if err != nil {
		return stats, err
	}
	for _, in := range insts {
		if err := PutInstance(ctx, dst, in); err != nil {
			return stats, err
		}
	}
	stats.Nodes += len(insts)

	adrs, err := src.ListADRs(ctx, nil)
	if err != nil {
		return stats, err
	}
	for _, a := range adrs {
		if err := PutADR(ctx, dst, a); err != nil {
			return stats, err
		}
	}
	stats.Nodes += len(adrs)

	stats.Duration = time.Since(start)
	logger.Infow("Graph store synchronized", "nodes", stats.Nodes, "duration_ms", stats.Duration.Milliseconds())
	return stats, nil
}
