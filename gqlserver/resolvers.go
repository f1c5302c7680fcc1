package gqlserver

import (
	"context"
	"time"

	"github.com/archbeaver/beaver/catalog"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/graph"
	"github.com/archbeaver/beaver/service"
)

type argMap = map[string]interface{}

// field adapts a pure accessor on *T. Values and pointers are both accepted
// because list resolvers return []T.
func field[T any](fn func(*T) interface{}) FieldResolver {
	return func(_ context.Context, obj interface{}, _ argMap) (interface{}, error) {
		v, err := as[T](obj)
		if err != nil {
			return nil, err
		}
		return fn(v), nil
	}
}

// load adapts an accessor that needs the service
func load[T any](fn func(context.Context, *T) (interface{}, error)) FieldResolver {
	return func(ctx context.Context, obj interface{}, _ argMap) (interface{}, error) {
		v, err := as[T](obj)
		if err != nil {
			return nil, err
		}
		return fn(ctx, v)
	}
}

func as[T any](obj interface{}) (*T, error) {
	switch v := obj.(type) {
	case *T:
		return v, nil
	case T:
		return &v, nil
	}
	var zero T
	return nil, errors.Newf("resolver expected %T, got %T", zero, obj)
}

// nullable maps the empty string to GraphQL null
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// NewResolvers builds the resolver set for the catalog schema
func NewResolvers(svc *service.Service) Resolvers {
	r := &resolver{svc: svc}
	return Resolvers{
		"Query":                 r.query(),
		"Mutation":              r.mutation(),
		"Environment":           namedFields[catalog.Environment](func(e *catalog.Environment) named { return named(*e) }),
		"Team":                  namedFields[catalog.Team](func(t *catalog.Team) named { return named(*t) }),
		"Category":              namedFields[catalog.Category](func(c *catalog.Category) named { return named(*c) }),
		"RoadmapType":           roadmapTypeFields(),
		"User":                  userFields(),
		"EnvironmentCount":      r.environmentCountFields(),
		"Component":             r.componentFields(),
		"Instance":              r.instanceFields(),
		"ADRParticipant":        r.participantFields(),
		"ADR":                   r.adrFields(),
		"PaginatedComponents":   paginatedFields(),
		"PageInfo":              pageInfoFields(),
		"Graph":                 graphFields(),
		"GraphNode":             graphNodeFields(),
		"GraphEdge":             graphEdgeFields(),
		"GraphMeta":             graphMetaFields(),
		"GraphNodeType":         graphNodeTypeFields(),
		"GraphRelationshipType": graphRelationshipTypeFields(),
	}
}

type resolver struct {
	svc *service.Service
}

func (r *resolver) query() map[string]FieldResolver {
	return map[string]FieldResolver{
		"adrs": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			var status *catalog.ADRStatus
			if s := optionalString(a, "status"); s != nil {
				st, err := catalog.ParseADRStatus(*s)
				if err != nil {
					return nil, err
				}
				status = &st
			}
			return r.svc.ADRs(ctx, status)
		},
		"adr": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "id")
			if err != nil {
				return nil, err
			}
			return nullOnNotFound(r.svc.ADR(ctx, id))
		},
		"users": func(ctx context.Context, _ interface{}, _ argMap) (interface{}, error) {
			return r.svc.Users(ctx)
		},
		"components": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			f, err := decodeComponentFilter(a)
			if err != nil {
				return nil, err
			}
			return r.svc.Components(ctx, f)
		},
		"paginatedComponents": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			f, err := decodeComponentFilter(a)
			if err != nil {
				return nil, err
			}
			page, err := optionalInt(a, "page")
			if err != nil {
				return nil, err
			}
			size, err := optionalInt(a, "pageSize")
			if err != nil {
				return nil, err
			}
			return r.svc.PaginatedComponents(ctx, f, catalog.PageRequest{Page: page, PageSize: size})
		},
		"componentsByEnvironment": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "environmentId")
			if err != nil {
				return nil, err
			}
			return r.svc.ComponentsByEnvironment(ctx, id)
		},
		"componentsByCategory": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "categoryId")
			if err != nil {
				return nil, err
			}
			return r.svc.ComponentsByCategory(ctx, id)
		},
		"componentsByTeam": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "teamId")
			if err != nil {
				return nil, err
			}
			return r.svc.ComponentsByTeam(ctx, id)
		},
		"component": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "id")
			if err != nil {
				return nil, err
			}
			return nullOnNotFound(r.svc.Component(ctx, id))
		},
		"environments": func(ctx context.Context, _ interface{}, _ argMap) (interface{}, error) {
			return r.svc.Environments(ctx)
		},
		"teams": func(ctx context.Context, _ interface{}, _ argMap) (interface{}, error) {
			return r.svc.Teams(ctx)
		},
		"categories": func(ctx context.Context, _ interface{}, _ argMap) (interface{}, error) {
			return r.svc.Categories(ctx)
		},
		"roadmapTypes": func(ctx context.Context, _ interface{}, _ argMap) (interface{}, error) {
			return r.svc.RoadmapTypes(ctx)
		},
		"instances": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := optionalID(a, "componentId")
			if err != nil {
				return nil, err
			}
			return r.svc.Instances(ctx, id)
		},
		"graph": func(ctx context.Context, _ interface{}, _ argMap) (interface{}, error) {
			return r.svc.Graph(ctx)
		},
	}
}

// nullOnNotFound turns a single-entity miss into a null result
func nullOnNotFound[T any](v *T, err error) (interface{}, error) {
	if errors.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *resolver) mutation() map[string]FieldResolver {
	deleted := func(err error) (interface{}, error) {
		if err != nil {
			return nil, err
		}
		return true, nil
	}
	return map[string]FieldResolver{
		"createADR": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			m, err := inputObject(a, "input")
			if err != nil {
				return nil, err
			}
			in, err := decodeADRInput(m)
			if err != nil {
				return nil, err
			}
			return r.svc.CreateADR(ctx, in)
		},
		"updateADR": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "id")
			if err != nil {
				return nil, err
			}
			m, err := inputObject(a, "input")
			if err != nil {
				return nil, err
			}
			in, err := decodeADRInput(m)
			if err != nil {
				return nil, err
			}
			return r.svc.UpdateADR(ctx, id, in)
		},
		"deleteADR": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "id")
			if err != nil {
				return nil, err
			}
			return deleted(r.svc.DeleteADR(ctx, id))
		},
		"createComponent": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			m, err := inputObject(a, "input")
			if err != nil {
				return nil, err
			}
			in, err := decodeComponentInput(m)
			if err != nil {
				return nil, err
			}
			return r.svc.CreateComponent(ctx, in)
		},
		"updateComponent": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "id")
			if err != nil {
				return nil, err
			}
			m, err := inputObject(a, "input")
			if err != nil {
				return nil, err
			}
			upd, err := decodeComponentUpdate(m)
			if err != nil {
				return nil, err
			}
			return r.svc.UpdateComponent(ctx, id, upd)
		},
		"deleteComponent": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "id")
			if err != nil {
				return nil, err
			}
			return deleted(r.svc.DeleteComponent(ctx, id))
		},
		"createEnvironment": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			m, err := inputObject(a, "input")
			if err != nil {
				return nil, err
			}
			return r.svc.CreateEnvironment(ctx, decodeNamedInput(m))
		},
		"createTeam": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			m, err := inputObject(a, "input")
			if err != nil {
				return nil, err
			}
			return r.svc.CreateTeam(ctx, decodeNamedInput(m))
		},
		"createCategory": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			m, err := inputObject(a, "input")
			if err != nil {
				return nil, err
			}
			return r.svc.CreateCategory(ctx, decodeNamedInput(m))
		},
		"createUser": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			m, err := inputObject(a, "input")
			if err != nil {
				return nil, err
			}
			return r.svc.CreateUser(ctx, decodeUserInput(m))
		},
		"createInstance": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			m, err := inputObject(a, "input")
			if err != nil {
				return nil, err
			}
			in, err := decodeInstanceInput(m)
			if err != nil {
				return nil, err
			}
			return r.svc.CreateInstance(ctx, in)
		},
		"updateInstance": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "id")
			if err != nil {
				return nil, err
			}
			m, err := inputObject(a, "input")
			if err != nil {
				return nil, err
			}
			in, err := decodeInstanceInput(m)
			if err != nil {
				return nil, err
			}
			return r.svc.UpdateInstance(ctx, id, in)
		},
		"deleteInstance": func(ctx context.Context, _ interface{}, a argMap) (interface{}, error) {
			id, err := requiredID(a, "id")
			if err != nil {
				return nil, err
			}
			return deleted(r.svc.DeleteInstance(ctx, id))
		},
	}
}

// named is the shared shape of environments, teams and categories
type named struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func namedFields[T any](conv func(*T) named) map[string]FieldResolver {
	get := func(fn func(named) interface{}) FieldResolver {
		return field(func(v *T) interface{} { return fn(conv(v)) })
	}
	return map[string]FieldResolver{
		"id":          get(func(n named) interface{} { return n.ID }),
		"name":        get(func(n named) interface{} { return n.Name }),
		"description": get(func(n named) interface{} { return nullable(n.Description) }),
		"createdAt":   get(func(n named) interface{} { return n.CreatedAt }),
		"updatedAt":   get(func(n named) interface{} { return n.UpdatedAt }),
	}
}

func roadmapTypeFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"id":          field(func(t *catalog.RoadmapType) interface{} { return t.ID }),
		"name":        field(func(t *catalog.RoadmapType) interface{} { return t.Name }),
		"description": field(func(t *catalog.RoadmapType) interface{} { return nullable(t.Description) }),
		"color":       field(func(t *catalog.RoadmapType) interface{} { return nullable(t.Color) }),
		"createdAt":   field(func(t *catalog.RoadmapType) interface{} { return t.CreatedAt }),
	}
}

func userFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"id":        field(func(u *catalog.User) interface{} { return u.ID }),
		"name":      field(func(u *catalog.User) interface{} { return u.Name }),
		"email":     field(func(u *catalog.User) interface{} { return u.Email }),
		"createdAt": field(func(u *catalog.User) interface{} { return u.CreatedAt }),
	}
}

func (r *resolver) environmentCountFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"environment": load(func(ctx context.Context, c *catalog.EnvironmentCount) (interface{}, error) {
			return r.svc.Environment(ctx, c.EnvironmentID)
		}),
		"count": field(func(c *catalog.EnvironmentCount) interface{} { return c.Count }),
	}
}

func (r *resolver) componentFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"id":          field(func(c *catalog.Component) interface{} { return c.ID }),
		"name":        field(func(c *catalog.Component) interface{} { return c.Name }),
		"description": field(func(c *catalog.Component) interface{} { return nullable(c.Description) }),
		"status":      field(func(c *catalog.Component) interface{} { return c.Status }),
		"tags":        field(func(c *catalog.Component) interface{} { return c.Tags }),
		"categoryId":  field(func(c *catalog.Component) interface{} { return c.CategoryID }),
		"teamId":      field(func(c *catalog.Component) interface{} { return c.TeamID }),
		"createdAt":   field(func(c *catalog.Component) interface{} { return c.CreatedAt }),
		"updatedAt":   field(func(c *catalog.Component) interface{} { return c.UpdatedAt }),
		"category": load(func(ctx context.Context, c *catalog.Component) (interface{}, error) {
			if c.CategoryID == nil {
				return nil, nil
			}
			return nullOnNotFound(r.svc.Category(ctx, *c.CategoryID))
		}),
		"team": load(func(ctx context.Context, c *catalog.Component) (interface{}, error) {
			if c.TeamID == nil {
				return nil, nil
			}
			return nullOnNotFound(r.svc.Team(ctx, *c.TeamID))
		}),
		"instances": load(func(ctx context.Context, c *catalog.Component) (interface{}, error) {
			return r.svc.Instances(ctx, &c.ID)
		}),
		"totalInstances": load(func(ctx context.Context, c *catalog.Component) (interface{}, error) {
			return r.svc.TotalInstances(ctx, c.ID)
		}),
		"instancesByEnvironment": load(func(ctx context.Context, c *catalog.Component) (interface{}, error) {
			return r.svc.InstancesByEnvironment(ctx, c.ID)
		}),
		"adrs": load(func(ctx context.Context, c *catalog.Component) (interface{}, error) {
			return r.svc.ADRsForComponent(ctx, c.ID)
		}),
	}
}

func (r *resolver) instanceFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"id":            field(func(i *catalog.Instance) interface{} { return i.ID }),
		"componentId":   field(func(i *catalog.Instance) interface{} { return i.ComponentID }),
		"environmentId": field(func(i *catalog.Instance) interface{} { return i.EnvironmentID }),
		"hostname":      field(func(i *catalog.Instance) interface{} { return nullable(i.Hostname) }),
		"specs":         field(func(i *catalog.Instance) interface{} { return i.Specs }),
		"createdAt":     field(func(i *catalog.Instance) interface{} { return i.CreatedAt }),
		"updatedAt":     field(func(i *catalog.Instance) interface{} { return i.UpdatedAt }),
		"component": load(func(ctx context.Context, i *catalog.Instance) (interface{}, error) {
			return r.svc.Component(ctx, i.ComponentID)
		}),
		"environment": load(func(ctx context.Context, i *catalog.Instance) (interface{}, error) {
			return r.svc.Environment(ctx, i.EnvironmentID)
		}),
	}
}

func (r *resolver) participantFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"userId": field(func(p *catalog.Participant) interface{} { return p.UserID }),
		"role":   field(func(p *catalog.Participant) interface{} { return p.Role }),
		"user": load(func(ctx context.Context, p *catalog.Participant) (interface{}, error) {
			return r.svc.User(ctx, p.UserID)
		}),
	}
}

func (r *resolver) adrFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"id":           field(func(a *catalog.ADR) interface{} { return a.ID }),
		"title":        field(func(a *catalog.ADR) interface{} { return a.Title }),
		"description":  field(func(a *catalog.ADR) interface{} { return nullable(a.Description) }),
		"status":       field(func(a *catalog.ADR) interface{} { return a.Status }),
		"tags":         field(func(a *catalog.ADR) interface{} { return a.Tags }),
		"participants": field(func(a *catalog.ADR) interface{} { return a.Participants }),
		"componentIds": field(func(a *catalog.ADR) interface{} { return a.ComponentIDs }),
		"instanceIds":  field(func(a *catalog.ADR) interface{} { return a.InstanceIDs }),
		"createdAt":    field(func(a *catalog.ADR) interface{} { return a.CreatedAt }),
		"updatedAt":    field(func(a *catalog.ADR) interface{} { return a.UpdatedAt }),
		"components": load(func(ctx context.Context, a *catalog.ADR) (interface{}, error) {
			return r.svc.ComponentsByIDs(ctx, a.ComponentIDs)
		}),
		"instances": load(func(ctx context.Context, a *catalog.ADR) (interface{}, error) {
			return r.svc.InstancesByIDs(ctx, a.InstanceIDs)
		}),
	}
}

func paginatedFields() map[string]FieldResolver {
	type page = catalog.Page[catalog.Component]
	return map[string]FieldResolver{
		"items":    field(func(p *page) interface{} { return p.Items }),
		"pageInfo": field(func(p *page) interface{} { return p.PageInfo }),
	}
}

func pageInfoFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"totalItems":      field(func(p *catalog.PageInfo) interface{} { return p.TotalItems }),
		"currentPage":     field(func(p *catalog.PageInfo) interface{} { return p.CurrentPage }),
		"pageSize":        field(func(p *catalog.PageInfo) interface{} { return p.PageSize }),
		"totalPages":      field(func(p *catalog.PageInfo) interface{} { return p.TotalPages }),
		"hasNextPage":     field(func(p *catalog.PageInfo) interface{} { return p.HasNextPage }),
		"hasPreviousPage": field(func(p *catalog.PageInfo) interface{} { return p.HasPreviousPage }),
	}
}

func graphFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"nodes": field(func(g *graph.Graph) interface{} { return g.Nodes }),
		"links": field(func(g *graph.Graph) interface{} { return g.Links }),
		"meta":  field(func(g *graph.Graph) interface{} { return g.Meta }),
	}
}

func graphNodeFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"id":      field(func(n *graph.Node) interface{} { return n.ID }),
		"type":    field(func(n *graph.Node) interface{} { return n.Type }),
		"label":   field(func(n *graph.Node) interface{} { return n.Label }),
		"group":   field(func(n *graph.Node) interface{} { return n.Group }),
		"visible": field(func(n *graph.Node) interface{} { return n.Visible }),
	}
}

func graphEdgeFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"source": field(func(l *graph.Link) interface{} { return l.Source }),
		"target": field(func(l *graph.Link) interface{} { return l.Target }),
		"type":   field(func(l *graph.Link) interface{} { return l.Type }),
		"value":  field(func(l *graph.Link) interface{} { return l.Weight }),
	}
}

func graphMetaFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"generatedAt":       field(func(m *graph.Meta) interface{} { return m.GeneratedAt }),
		"totalNodes":        field(func(m *graph.Meta) interface{} { return m.Stats.TotalNodes }),
		"totalEdges":        field(func(m *graph.Meta) interface{} { return m.Stats.TotalEdges }),
		"nodeTypes":         field(func(m *graph.Meta) interface{} { return m.NodeTypes }),
		"relationshipTypes": field(func(m *graph.Meta) interface{} { return m.RelationshipTypes }),
	}
}

func graphNodeTypeFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"type":  field(func(t *graph.NodeTypeInfo) interface{} { return t.Type }),
		"label": field(func(t *graph.NodeTypeInfo) interface{} { return t.Label }),
		"color": field(func(t *graph.NodeTypeInfo) interface{} { return nullable(t.Color) }),
		"count": field(func(t *graph.NodeTypeInfo) interface{} { return t.Count }),
	}
}

func graphRelationshipTypeFields() map[string]FieldResolver {
	return map[string]FieldResolver{
		"type":  field(func(t *graph.RelationshipTypeInfo) interface{} { return t.Type }),
		"label": field(func(t *graph.RelationshipTypeInfo) interface{} { return t.Label }),
		"color": field(func(t *graph.RelationshipTypeInfo) interface{} { return nullable(t.Color) }),
		"count": field(func(t *graph.RelationshipTypeInfo) interface{} { return t.Count }),
	}
}
