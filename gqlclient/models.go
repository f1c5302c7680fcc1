package gqlclient

import "time"

// Enum values as they travel over GraphQL
const (
	StatusActive     = "ACTIVE"
	StatusInactive   = "INACTIVE"
	StatusDeprecated = "DEPRECATED"

	ADRDraft      = "DRAFT"
	ADRAccepted   = "ACCEPTED"
	ADRSuperseded = "SUPERSEDED"
	ADRRejected   = "REJECTED"

	RoleOwner       = "OWNER"
	RoleReviewer    = "REVIEWER"
	RoleContributor = "CONTRIBUTOR"
)

// Environment is a deployment target
type Environment struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Team owns components
type Team struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Category groups components
type Category struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// RoadmapType classifies roadmap items
type RoadmapType struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

// User participates in ADRs
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Instance is a deployment of a component into one environment.
// Environment is set only for detail-shaped ADR queries.
type Instance struct {
	ID            string                 `json:"id"`
	ComponentID   string                 `json:"componentId"`
	EnvironmentID string                 `json:"environmentId"`
	Hostname      *string                `json:"hostname"`
	Specs         map[string]interface{} `json:"specs"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	Environment   *Environment           `json:"environment,omitempty"`
}

// EnvironmentCount is the number of instances of a component in one environment
type EnvironmentCount struct {
	Environment Environment `json:"environment"`
	Count       int         `json:"count"`
}

// Participant is a user attached to an ADR. User is set only for detail shapes.
type Participant struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	User   *User  `json:"user,omitempty"`
}

// ADR is an architecture decision record. Components and Instances are set
// only for detail shapes.
type ADR struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  *string       `json:"description"`
	Status       string        `json:"status"`
	Tags         []string      `json:"tags"`
	ComponentIDs []string      `json:"componentIds"`
	InstanceIDs  []string      `json:"instanceIds"`
	Participants []Participant `json:"participants"`
	Components   []Component   `json:"components,omitempty"`
	Instances    []Instance    `json:"instances,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Component is a catalogued piece of software. Fields below UpdatedAt are
// set only for detail shapes.
type Component struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	Tags        []string  `json:"tags"`
	CategoryID  *string   `json:"categoryId"`
	TeamID      *string   `json:"teamId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Category               *Category          `json:"category,omitempty"`
	Team                   *Team              `json:"team,omitempty"`
	TotalInstances         *int               `json:"totalInstances,omitempty"`
	InstancesByEnvironment []EnvironmentCount `json:"instancesByEnvironment,omitempty"`
	Instances              []Instance         `json:"instances,omitempty"`
	ADRs                   []ADR              `json:"adrs,omitempty"`
}

// PageInfo describes one page of a paginated list
type PageInfo struct {
	TotalItems      int  `json:"totalItems"`
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// ComponentPage is one page of components
type ComponentPage struct {
	Items    []Component `json:"items"`
	PageInfo PageInfo    `json:"pageInfo"`
}

// GraphNode is one node of the dependency graph
type GraphNode struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Label   string `json:"label"`
	Group   *int   `json:"group"`
	Visible bool   `json:"visible"`
}

// GraphEdge is one link of the dependency graph
type GraphEdge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Value  float64 `json:"value"`
}

// GraphTypeCount counts nodes or links of one type
type GraphTypeCount struct {
	Type  string  `json:"type"`
	Label string  `json:"label"`
	Color *string `json:"color"`
	Count int     `json:"count"`
}

// GraphMeta summarizes the graph
type GraphMeta struct {
	GeneratedAt       time.Time        `json:"generatedAt"`
	TotalNodes        int              `json:"totalNodes"`
	TotalEdges        int              `json:"totalEdges"`
	NodeTypes         []GraphTypeCount `json:"nodeTypes"`
	RelationshipTypes []GraphTypeCount `json:"relationshipTypes"`
}

// Graph is the dependency graph view
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphEdge `json:"links"`
	Meta  GraphMeta   `json:"meta"`
}

// ComponentFilter narrows component lists; empty fields are ignored
type ComponentFilter struct {
	Search        string `json:"search,omitempty"`
	Status        string `json:"status,omitempty"`
	CategoryID    string `json:"categoryId,omitempty"`
	TeamID        string `json:"teamId,omitempty"`
	EnvironmentID string `json:"environmentId,omitempty"`
	Tag           string `json:"tag,omitempty"`
}

// ComponentInput creates a component
type ComponentInput struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	CategoryID  *string  `json:"categoryId,omitempty"`
	TeamID      *string  `json:"teamId,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ComponentUpdate changes the non-nil fields of a component
type ComponentUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      *string  `json:"status,omitempty"`
	CategoryID  *string  `json:"categoryId,omitempty"`
	TeamID      *string  `json:"teamId,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ParticipantInput attaches a user to an ADR
type ParticipantInput struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// ADRInput creates or replaces an ADR
type ADRInput struct {
	Title        string             `json:"title"`
	Description  *string            `json:"description,omitempty"`
	Status       string             `json:"status,omitempty"`
	Tags         []string           `json:"tags,omitempty"`
	Participants []ParticipantInput `json:"participants"`
	ComponentIDs []string           `json:"componentIds,omitempty"`
	InstanceIDs  []string           `json:"instanceIds,omitempty"`
}

// InstanceInput creates or replaces an instance
type InstanceInput struct {
	ComponentID   string                 `json:"componentId"`
	EnvironmentID string                 `json:"environmentId"`
	Hostname      *string                `json:"hostname,omitempty"`
	Specs         map[string]interface{} `json:"specs,omitempty"`
}

// NamedInput creates an environment, team or category
type NamedInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// UserInput creates a user
type UserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
