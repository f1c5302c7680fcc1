package graph

import (
	"time"
)

// Graph represents the complete graph structure for visualization
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
	Meta  Meta   `json:"meta"`
}

// Node represents an entity in the graph
type Node struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`            // Lowercased store label ("component", "adr")
	Label    string                 `json:"label"`           // Display label
	Visible  bool                   `json:"visible"`         // Backend controls visibility
	Group    int                    `json:"group,omitempty"` // For coloring/clustering
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Link represents a relationship between nodes
type Link struct {
	Source string  `json:"source"` // Node ID
	Target string  `json:"target"` // Node ID
	Type   string  `json:"type"`   // Relationship type (e.g., "DEPLOYED_IN")
	Weight float64 `json:"value"`  // Link strength/weight (D3 uses "value")
	Label  string  `json:"label,omitempty"`
}

// Meta contains metadata about the graph
type Meta struct {
	GeneratedAt       time.Time              `json:"generated_at"`
	Stats             Stats                  `json:"stats"`
	Config            map[string]string      `json:"config"`
	NodeTypes         []NodeTypeInfo         `json:"node_types"`
	RelationshipTypes []RelationshipTypeInfo `json:"relationship_types"`
}

// NodeTypeInfo describes a node type and its visual configuration
type NodeTypeInfo struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
	Count int    `json:"count"`
}

// RelationshipTypeInfo describes a relationship type with visual configuration
type RelationshipTypeInfo struct {
	Type         string   `json:"type"`
	Label        string   `json:"label"`
	Color        string   `json:"color,omitempty"`
	LinkDistance *float64 `json:"link_distance,omitempty"` // D3 force distance override (nil = use default)
	Count        int      `json:"count"`
}

// Stats provides graph statistics
type Stats struct {
	TotalNodes int `json:"total_nodes"`
	TotalEdges int `json:"total_edges"`
}
