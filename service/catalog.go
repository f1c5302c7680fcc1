package service

import (
	"context"

	"github.com/archbeaver/beaver/catalog"
	"github.com/archbeaver/beaver/graphstore"
)

// Entity names used in change events and GraphQL __typename
const (
	EntityADR         = "ADR"
	EntityComponent   = "Component"
	EntityInstance    = "Instance"
	EntityEnvironment = "Environment"
	EntityTeam        = "Team"
	EntityCategory    = "Category"
	EntityUser        = "User"
)

// ADRs lists ADRs, optionally by status
func (s *Service) ADRs(ctx context.Context, status *catalog.ADRStatus) ([]catalog.ADR, error) {
	return s.store.ListADRs(ctx, status)
}

// ADR returns one ADR
func (s *Service) ADR(ctx context.Context, id int64) (*catalog.ADR, error) {
	return s.store.GetADR(ctx, id)
}

// CreateADR validates participants and inserts an ADR
func (s *Service) CreateADR(ctx context.Context, in catalog.ADRInput) (*catalog.ADR, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	adr, err := s.store.CreateADR(ctx, in)
	if err != nil {
		return nil, err
	}
	s.syncGraph(ctx, EntityADR, adr.ID, func() error { return graphstore.PutADR(ctx, s.graph, *adr) })
	s.emit(ctx, EntityADR, adr.ID, ActionCreated)
	return adr, nil
}

// UpdateADR validates participants and replaces an ADR
func (s *Service) UpdateADR(ctx context.Context, id int64, in catalog.ADRInput) (*catalog.ADR, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	adr, err := s.store.UpdateADR(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.syncGraph(ctx, EntityADR, adr.ID, func() error { return graphstore.PutADR(ctx, s.graph, *adr) })
	s.emit(ctx, EntityADR, adr.ID, ActionUpdated)
	return adr, nil
}

// DeleteADR removes an ADR
func (s *Service) DeleteADR(ctx context.Context, id int64) error {
	if err := s.store.DeleteADR(ctx, id); err != nil {
		return err
	}
	s.syncGraph(ctx, EntityADR, id, func() error { return s.graph.DeleteNode(ctx, graphstore.ADRRef(id)) })
	s.emit(ctx, EntityADR, id, ActionDeleted)
	return nil
}

// ADRsForComponent lists the ADRs linked to a component
func (s *Service) ADRsForComponent(ctx context.Context, componentID int64) ([]catalog.ADR, error) {
	return s.store.ListADRsByComponent(ctx, componentID)
}

// Users lists users
func (s *Service) Users(ctx context.Context) ([]catalog.User, error) {
	return s.store.ListUsers(ctx)
}

// User returns one user
func (s *Service) User(ctx context.Context, id int64) (*catalog.User, error) {
	return s.store.GetUser(ctx, id)
}

// UsersByIDs loads users in id order
func (s *Service) UsersByIDs(ctx context.Context, ids []int64) ([]catalog.User, error) {
	return s.store.GetUsersByIDs(ctx, ids)
}

// CreateUser inserts a user
func (s *Service) CreateUser(ctx context.Context, in catalog.UserInput) (*catalog.User, error) {
	u, err := s.store.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, EntityUser, u.ID, ActionCreated)
	return u, nil
}

// Components lists components matching filter
func (s *Service) Components(ctx context.Context, filter catalog.ComponentFilter) ([]catalog.Component, error) {
	return s.store.ListComponents(ctx, filter)
}

// PaginatedComponents returns one page of components
func (s *Service) PaginatedComponents(ctx context.Context, filter catalog.ComponentFilter, req catalog.PageRequest) (*catalog.Page[catalog.Component], error) {
	return s.store.PaginateComponents(ctx, filter, req)
}

// ComponentsByEnvironment lists components with an instance in the environment
func (s *Service) ComponentsByEnvironment(ctx context.Context, environmentID int64) ([]catalog.Component, error) {
	return s.store.ListComponents(ctx, catalog.ComponentFilter{EnvironmentID: &environmentID})
}

// ComponentsByCategory lists components in a category
func (s *Service) ComponentsByCategory(ctx context.Context, categoryID int64) ([]catalog.Component, error) {
	return s.store.ListComponents(ctx, catalog.ComponentFilter{CategoryID: &categoryID})
}

// ComponentsByTeam lists components owned by a team
func (s *Service) ComponentsByTeam(ctx context.Context, teamID int64) ([]catalog.Component, error) {
	return s.store.ListComponents(ctx, catalog.ComponentFilter{TeamID: &teamID})
}

// Component returns one component
func (s *Service) Component(ctx context.Context, id int64) (*catalog.Component, error) {
	return s.store.GetComponent(ctx, id)
}

// ComponentsByIDs loads components in id order
func (s *Service) ComponentsByIDs(ctx context.Context, ids []int64) ([]catalog.Component, error) {
	return s.store.GetComponentsByIDs(ctx, ids)
}

// CreateComponent inserts a component
func (s *Service) CreateComponent(ctx context.Context, in catalog.ComponentInput) (*catalog.Component, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.store.CreateComponent(ctx, in)
	if err != nil {
		return nil, err
	}
	s.syncGraph(ctx, EntityComponent, c.ID, func() error { return graphstore.PutComponent(ctx, s.graph, *c) })
	s.emit(ctx, EntityComponent, c.ID, ActionCreated)
	return c, nil
}

// UpdateComponent applies a partial update
func (s *Service) UpdateComponent(ctx context.Context, id int64, upd catalog.ComponentUpdate) (*catalog.Component, error) {
	c, err := s.store.UpdateComponent(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.syncGraph(ctx, EntityComponent, c.ID, func() error { return graphstore.PutComponent(ctx, s.graph, *c) })
	s.emit(ctx, EntityComponent, c.ID, ActionUpdated)
	return c, nil
}

// DeleteComponent removes a component without instances
func (s *Service) DeleteComponent(ctx context.Context, id int64) error {
	if err := s.store.DeleteComponent(ctx, id); err != nil {
		return err
	}
	s.syncGraph(ctx, EntityComponent, id, func() error { return s.graph.DeleteNode(ctx, graphstore.ComponentRef(id)) })
	s.emit(ctx, EntityComponent, id, ActionDeleted)
	return nil
}

// TotalInstances counts a component's instances
func (s *Service) TotalInstances(ctx context.Context, componentID int64) (int, error) {
	return s.store.CountInstances(ctx, componentID)
}

// InstancesByEnvironment counts a component's instances per environment
func (s *Service) InstancesByEnvironment(ctx context.Context, componentID int64) ([]catalog.EnvironmentCount, error) {
	return s.store.InstancesByEnvironment(ctx, componentID)
}

// Instances lists instances, optionally for one component
func (s *Service) Instances(ctx context.Context, componentID *int64) ([]catalog.Instance, error) {
	return s.store.ListInstances(ctx, componentID)
}

// InstancesByIDs loads instances in id order
func (s *Service) InstancesByIDs(ctx context.Context, ids []int64) ([]catalog.Instance, error) {
	return s.store.GetInstancesByIDs(ctx, ids)
}

// CreateInstance inserts an instance. The store checks (component, environment)
// uniqueness inside its write transaction.
func (s *Service) CreateInstance(ctx context.Context, in catalog.InstanceInput) (*catalog.Instance, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	inst, err := s.store.CreateInstance(ctx, in)
	if err != nil {
		return nil, err
	}
	s.syncGraph(ctx, EntityInstance, inst.ID, func() error { return graphstore.PutInstance(ctx, s.graph, *inst) })
	s.emit(ctx, EntityInstance, inst.ID, ActionCreated)
	return inst, nil
}

// UpdateInstance replaces an instance; it is excluded from its own uniqueness check
func (s *Service) UpdateInstance(ctx context.Context, id int64, in catalog.InstanceInput) (*catalog.Instance, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	inst, err := s.store.UpdateInstance(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.syncGraph(ctx, EntityInstance, inst.ID, func() error { return graphstore.PutInstance(ctx, s.graph, *inst) })
	s.emit(ctx, EntityInstance, inst.ID, ActionUpdated)
	return inst, nil
}

// DeleteInstance removes an instance
func (s *Service) DeleteInstance(ctx context.Context, id int64) error {
	if err := s.store.DeleteInstance(ctx, id); err != nil {
		return err
	}
	s.syncGraph(ctx, EntityInstance, id, func() error { return s.graph.DeleteNode(ctx, graphstore.InstanceRef(id)) })
	s.emit(ctx, EntityInstance, id, ActionDeleted)
	return nil
}

// Environments lists environments
func (s *Service) Environments(ctx context.Context) ([]catalog.Environment, error) {
	return s.store.ListEnvironments(ctx)
}

// Environment returns one environment
func (s *Service) Environment(ctx context.Context, id int64) (*catalog.Environment, error) {
	return s.store.GetEnvironment(ctx, id)
}

// CreateEnvironment inserts an environment
func (s *Service) CreateEnvironment(ctx context.Context, in catalog.NamedInput) (*catalog.Environment, error) {
	env, err := s.store.CreateEnvironment(ctx, in)
	if err != nil {
		return nil, err
	}
	s.syncGraph(ctx, EntityEnvironment, env.ID, func() error { return graphstore.PutEnvironment(ctx, s.graph, *env) })
	s.emit(ctx, EntityEnvironment, env.ID, ActionCreated)
	return env, nil
}

// Teams lists teams
func (s *Service) Teams(ctx context.Context) ([]catalog.Team, error) {
	return s.store.ListTeams(ctx)
}

// Team returns one team
func (s *Service) Team(ctx context.Context, id int64) (*catalog.Team, error) {
	return s.store.GetTeam(ctx, id)
}

// CreateTeam inserts a team
func (s *Service) CreateTeam(ctx context.Context, in catalog.NamedInput) (*catalog.Team, error) {
	t, err := s.store.CreateTeam(ctx, in)
	if err != nil {
		return nil, err
	}
	s.syncGraph(ctx, EntityTeam, t.ID, func() error { return graphstore.PutTeam(ctx, s.graph, *t) })
	s.emit(ctx, EntityTeam, t.ID, ActionCreated)
	return t, nil
}

// Categories lists categories
func (s *Service) Categories(ctx context.Context) ([]catalog.Category, error) {
	return s.store.ListCategories(ctx)
}

// Category returns one category
func (s *Service) Category(ctx context.Context, id int64) (*catalog.Category, error) {
	return s.store.GetCategory(ctx, id)
}

// CreateCategory inserts a category
func (s *Service) CreateCategory(ctx context.Context, in catalog.NamedInput) (*catalog.Category, error) {
	c, err := s.store.CreateCategory(ctx, in)
	if err != nil {
		return nil, err
	}
	s.syncGraph(ctx, EntityCategory, c.ID, func() error { return graphstore.PutCategory(ctx, s.graph, *c) })
	s.emit(ctx, EntityCategory, c.ID, ActionCreated)
	return c, nil
}

// RoadmapTypes lists roadmap types
func (s *Service) RoadmapTypes(ctx context.Context) ([]catalog.RoadmapType, error) {
	return s.store.ListRoadmapTypes(ctx)
}

// LegacyEnvironmentID maps a deprecated environment enum value to its row id
func (s *Service) LegacyEnvironmentID(ctx context.Context, value string) (int64, error) {
	return catalog.GetEnvironmentIDFromLegacyEnum(ctx, s.store, value)
}

// LegacyRoadmapTypeID maps a deprecated roadmap type enum value to its row id
func (s *Service) LegacyRoadmapTypeID(ctx context.Context, value string) (int64, error) {
	return catalog.GetRoadmapTypeIDFromLegacyEnum(ctx, s.store, value)
}
