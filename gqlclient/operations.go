package gqlclient

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/archbeaver/beaver/errors"
)

// Entity type names used as cache key prefixes
const (
	TypeADR         = "ADR"
	TypeComponent   = "Component"
	TypeInstance    = "Instance"
	TypeEnvironment = "Environment"
	TypeTeam        = "Team"
	TypeCategory    = "Category"
	TypeUser        = "User"
)

// Queries refreshed after the mutations that change their results
var (
	componentQueries = []string{"GetComponents", "GetPaginatedComponents", "GetComponentsByEnvironment", "GetComponentsByCategory", "GetComponentsByTeam"}
	adrQueries       = []string{"GetADRs"}
)

// runQuery executes a named query and returns the value of its root field
func runQuery[T any](ctx context.Context, c *Client, name, field string, vars map[string]interface{}, opts ...CallOption) (T, error) {
	var zero T
	op, err := NewOperation(name)
	if err != nil {
		return zero, err
	}
	var out map[string]T
	if err := c.Query(ctx, op, vars, &out, opts...); err != nil {
		return zero, err
	}
	return out[field], nil
}

// runMutation executes a named mutation and returns the value of its root field
func runMutation[T any](ctx context.Context, c *Client, name, field string, vars map[string]interface{}, opts ...CallOption) (T, error) {
	var zero T
	op, err := NewOperation(name)
	if err != nil {
		return zero, err
	}
	var out map[string]T
	if err := c.Mutate(ctx, op, vars, &out, opts...); err != nil {
		return zero, err
	}
	return out[field], nil
}

// toVariable converts a typed input into its JSON variable form
func toVariable(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode input")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, errors.Wrap(err, "failed to encode input")
	}
	return out, nil
}

func inputVars(in interface{}, extra map[string]interface{}) (map[string]interface{}, error) {
	v, err := toVariable(in)
	if err != nil {
		return nil, err
	}
	vars := map[string]interface{}{"input": v}
	for k, val := range extra {
		vars[k] = val
	}
	return vars, nil
}

func filterVars(filter *ComponentFilter) (map[string]interface{}, error) {
	vars := map[string]interface{}{}
	if filter != nil {
		v, err := toVariable(filter)
		if err != nil {
			return nil, err
		}
		vars["filter"] = v
	}
	return vars, nil
}

// GetADRs lists ADRs, optionally by status
func (c *Client) GetADRs(ctx context.Context, shape Shape, status string, opts ...CallOption) ([]ADR, error) {
	vars := map[string]interface{}{}
	if status != "" {
		vars["status"] = status
	}
	return runQuery[[]ADR](ctx, c, "GetADRs", "adrs", shape.Variables(vars), opts...)
}

// GetADR fetches one ADR
func (c *Client) GetADR(ctx context.Context, shape Shape, id string, opts ...CallOption) (*ADR, error) {
	adr, err := runQuery[*ADR](ctx, c, "GetADR", "adr", shape.Variables(map[string]interface{}{"id": id}), opts...)
	if err != nil {
		return nil, err
	}
	if adr == nil {
		return nil, errors.NewNotFoundError("ADR not found: %s", id)
	}
	return adr, nil
}

// GetUsers lists users
func (c *Client) GetUsers(ctx context.Context, opts ...CallOption) ([]User, error) {
	return runQuery[[]User](ctx, c, "GetUsers", "users", nil, opts...)
}

// GetComponents lists components matching filter
func (c *Client) GetComponents(ctx context.Context, shape Shape, filter *ComponentFilter, opts ...CallOption) ([]Component, error) {
	vars, err := filterVars(filter)
	if err != nil {
		return nil, err
	}
	return runQuery[[]Component](ctx, c, "GetComponents", "components", shape.Variables(vars), opts...)
}

// GetPaginatedComponents fetches one page of components
func (c *Client) GetPaginatedComponents(ctx context.Context, shape Shape, page, pageSize int, filter *ComponentFilter, opts ...CallOption) (*ComponentPage, error) {
	vars, err := filterVars(filter)
	if err != nil {
		return nil, err
	}
	if page > 0 {
		vars["page"] = page
	}
	if pageSize > 0 {
		vars["pageSize"] = pageSize
	}
	return runQuery[*ComponentPage](ctx, c, "GetPaginatedComponents", "paginatedComponents", shape.Variables(vars), opts...)
}

// GetComponentsByEnvironment lists components deployed in an environment
func (c *Client) GetComponentsByEnvironment(ctx context.Context, shape Shape, environmentID string, opts ...CallOption) ([]Component, error) {
	vars := shape.Variables(map[string]interface{}{"environmentId": environmentID})
	return runQuery[[]Component](ctx, c, "GetComponentsByEnvironment", "componentsByEnvironment", vars, opts...)
}

// GetComponentsByCategory lists components of a category
func (c *Client) GetComponentsByCategory(ctx context.Context, shape Shape, categoryID string, opts ...CallOption) ([]Component, error) {
	vars := shape.Variables(map[string]interface{}{"categoryId": categoryID})
	return runQuery[[]Component](ctx, c, "GetComponentsByCategory", "componentsByCategory", vars, opts...)
}

// GetComponentsByTeam lists components owned by a team
func (c *Client) GetComponentsByTeam(ctx context.Context, shape Shape, teamID string, opts ...CallOption) ([]Component, error) {
	vars := shape.Variables(map[string]interface{}{"teamId": teamID})
	return runQuery[[]Component](ctx, c, "GetComponentsByTeam", "componentsByTeam", vars, opts...)
}

// GetComponent fetches one component
func (c *Client) GetComponent(ctx context.Context, shape Shape, id string, opts ...CallOption) (*Component, error) {
	comp, err := runQuery[*Component](ctx, c, "GetComponent", "component", shape.Variables(map[string]interface{}{"id": id}), opts...)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, errors.NewNotFoundError("component not found: %s", id)
	}
	return comp, nil
}

// GetEnvironments lists environments
func (c *Client) GetEnvironments(ctx context.Context, opts ...CallOption) ([]Environment, error) {
	return runQuery[[]Environment](ctx, c, "GetEnvironments", "environments", nil, opts...)
}

// GetTeams lists teams
func (c *Client) GetTeams(ctx context.Context, opts ...CallOption) ([]Team, error) {
	return runQuery[[]Team](ctx, c, "GetTeams", "teams", nil, opts...)
}

// GetCategories lists categories
func (c *Client) GetCategories(ctx context.Context, opts ...CallOption) ([]Category, error) {
	return runQuery[[]Category](ctx, c, "GetCategories", "categories", nil, opts...)
}

// GetRoadmapTypes lists roadmap types
func (c *Client) GetRoadmapTypes(ctx context.Context, opts ...CallOption) ([]RoadmapType, error) {
	return runQuery[[]RoadmapType](ctx, c, "GetRoadmapTypes", "roadmapTypes", nil, opts...)
}

// GetGraph fetches the dependency graph
func (c *Client) GetGraph(ctx context.Context, opts ...CallOption) (*Graph, error) {
	return runQuery[*Graph](ctx, c, "GetGraph", "graph", nil, opts...)
}

// CreateADR creates an ADR and refreshes ADR lists
func (c *Client) CreateADR(ctx context.Context, in ADRInput, opts ...CallOption) (*ADR, error) {
	vars, err := inputVars(in, nil)
	if err != nil {
		return nil, err
	}
	opts = append([]CallOption{WithRefetchQueries(adrQueries...)}, opts...)
	return runMutation[*ADR](ctx, c, "CreateADR", "createADR", vars, opts...)
}

// UpdateADR replaces an ADR and refreshes ADR lists
func (c *Client) UpdateADR(ctx context.Context, id string, in ADRInput, opts ...CallOption) (*ADR, error) {
	vars, err := inputVars(in, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	opts = append([]CallOption{WithRefetchQueries(adrQueries...)}, opts...)
	return runMutation[*ADR](ctx, c, "UpdateADR", "updateADR", vars, opts...)
}

// DeleteADR deletes an ADR and evicts it from the cache
func (c *Client) DeleteADR(ctx context.Context, id string, opts ...CallOption) (bool, error) {
	opts = append([]CallOption{WithEvict(TypeADR, id), WithRefetchQueries(adrQueries...)}, opts...)
	return runMutation[bool](ctx, c, "DeleteADR", "deleteADR", map[string]interface{}{"id": id}, opts...)
}

// CreateComponent creates a component and refreshes component lists
func (c *Client) CreateComponent(ctx context.Context, in ComponentInput, opts ...CallOption) (*Component, error) {
	vars, err := inputVars(in, nil)
	if err != nil {
		return nil, err
	}
	opts = append([]CallOption{WithRefetchQueries(componentQueries...)}, opts...)
	return runMutation[*Component](ctx, c, "CreateComponent", "createComponent", vars, opts...)
}

// UpdateComponent changes a component; cached copies are updated in place
func (c *Client) UpdateComponent(ctx context.Context, id string, upd ComponentUpdate, opts ...CallOption) (*Component, error) {
	vars, err := inputVars(upd, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	return runMutation[*Component](ctx, c, "UpdateComponent", "updateComponent", vars, opts...)
}

// DeleteComponent deletes a component and evicts it from the cache
func (c *Client) DeleteComponent(ctx context.Context, id string, opts ...CallOption) (bool, error) {
	opts = append([]CallOption{WithEvict(TypeComponent, id), WithRefetchQueries(componentQueries...)}, opts...)
	return runMutation[bool](ctx, c, "DeleteComponent", "deleteComponent", map[string]interface{}{"id": id}, opts...)
}

// CreateEnvironment creates an environment
func (c *Client) CreateEnvironment(ctx context.Context, in NamedInput, opts ...CallOption) (*Environment, error) {
	vars, err := inputVars(in, nil)
	if err != nil {
		return nil, err
	}
	opts = append([]CallOption{WithRefetchQueries("GetEnvironments")}, opts...)
	return runMutation[*Environment](ctx, c, "CreateEnvironment", "createEnvironment", vars, opts...)
}

// CreateTeam creates a team
func (c *Client) CreateTeam(ctx context.Context, in NamedInput, opts ...CallOption) (*Team, error) {
	vars, err := inputVars(in, nil)
	if err != nil {
		return nil, err
	}
	opts = append([]CallOption{WithRefetchQueries("GetTeams")}, opts...)
	return runMutation[*Team](ctx, c, "CreateTeam", "createTeam", vars, opts...)
}

// CreateCategory creates a category
func (c *Client) CreateCategory(ctx context.Context, in NamedInput, opts ...CallOption) (*Category, error) {
	vars, err := inputVars(in, nil)
	if err != nil {
		return nil, err
	}
	opts = append([]CallOption{WithRefetchQueries("GetCategories")}, opts...)
	return runMutation[*Category](ctx, c, "CreateCategory", "createCategory", vars, opts...)
}

// CreateUser creates a user
func (c *Client) CreateUser(ctx context.Context, in UserInput, opts ...CallOption) (*User, error) {
	vars, err := inputVars(in, nil)
	if err != nil {
		return nil, err
	}
	opts = append([]CallOption{WithRefetchQueries("GetUsers")}, opts...)
	return runMutation[*User](ctx, c, "CreateUser", "createUser", vars, opts...)
}

// CreateInstance deploys a component into an environment
func (c *Client) CreateInstance(ctx context.Context, in InstanceInput, opts ...CallOption) (*Instance, error) {
	vars, err := inputVars(in, nil)
	if err != nil {
		return nil, err
	}
	opts = append([]CallOption{WithRefetchQueries("GetComponent")}, opts...)
	return runMutation[*Instance](ctx, c, "CreateInstance", "createInstance", vars, opts...)
}

// UpdateInstance replaces an instance
func (c *Client) UpdateInstance(ctx context.Context, id string, in InstanceInput, opts ...CallOption) (*Instance, error) {
	vars, err := inputVars(in, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	opts = append([]CallOption{WithRefetchQueries("GetComponent")}, opts...)
	return runMutation[*Instance](ctx, c, "UpdateInstance", "updateInstance", vars, opts...)
}

// DeleteInstance deletes an instance and evicts it from the cache
func (c *Client) DeleteInstance(ctx context.Context, id string, opts ...CallOption) (bool, error) {
	opts = append([]CallOption{WithEvict(TypeInstance, id), WithRefetchQueries("GetComponent")}, opts...)
	return runMutation[bool](ctx, c, "DeleteInstance", "deleteInstance", map[string]interface{}{"id": id}, opts...)
}
