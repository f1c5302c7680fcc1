// Package graphstore mirrors catalog relationships into a graph database.
//
// Two backends implement Store: Neo4j for deployments and an in-memory store
// for tests and single-binary use. Nodes are keyed by (label, id) where id is
// the relational primary key.
package graphstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/archbeaver/beaver/errors"
)

// Label is a node label
type Label string

const (
	LabelComponent   Label = "Component"
	LabelInstance    Label = "Instance"
	LabelEnvironment Label = "Environment"
	LabelTeam        Label = "Team"
	LabelCategory    Label = "Category"
	LabelADR         Label = "ADR"
)

// Labels lists every node label in display order
var Labels = []Label{LabelComponent, LabelInstance, LabelEnvironment, LabelTeam, LabelCategory, LabelADR}

// Valid reports whether l is a known label. Labels are interpolated into
// Cypher, so only known values may reach a query.
func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

// RelType is a relationship type
type RelType string

const (
	RelRelatesTo      RelType = "RELATES_TO"      // ADR -> Component, ADR -> Instance
	RelInstantiates   RelType = "INSTANTIATES"    // Instance -> Component
	RelDeployedIn     RelType = "DEPLOYED_IN"     // Instance -> Environment
	RelBelongsTo      RelType = "BELONGS_TO"      // Component -> Category
	RelResponsibleFor RelType = "RESPONSIBLE_FOR" // Team -> Component
)

// RelTypes lists every relationship type
var RelTypes = []RelType{RelRelatesTo, RelInstantiates, RelDeployedIn, RelBelongsTo, RelResponsibleFor}

// Valid reports whether r is a known relationship type
func (r RelType) Valid() bool {
	for _, known := range RelTypes {
		if r == known {
			return true
		}
	}
	return false
}

// NodeRef identifies a node
type NodeRef struct {
	Label Label `json:"label"`
	ID    int64 `json:"id"`
}

// Key is the stable string form "Label:id"
func (r NodeRef) Key() string {
	return fmt.Sprintf("%s:%d", r.Label, r.ID)
}

// ParseNodeRef parses the Key form
func ParseNodeRef(key string) (NodeRef, error) {
	label, id, ok := strings.Cut(key, ":")
	if !ok {
		return NodeRef{}, errors.Newf("invalid node key %q", key)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return NodeRef{}, errors.Wrapf(err, "invalid node id in %q", key)
	}
	ref := NodeRef{Label: Label(label), ID: n}
	if !ref.Label.Valid() {
		return NodeRef{}, errors.Newf("unknown node label %q", label)
	}
	return ref, nil
}

// Node is a labelled vertex. Props hold scalar values only.
type Node struct {
	NodeRef
	Name  string                 `json:"name"`
	Props map[string]interface{} `json:"props,omitempty"`
}

// Edge is a directed relationship
type Edge struct {
	From NodeRef `json:"from"`
	Type RelType `json:"type"`
	To   NodeRef `json:"to"`
}

// Snapshot is the full content of a graph store
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Store is a graph backend
type Store interface {
	// UpsertNode creates the node or replaces its name and props
	UpsertNode(ctx context.Context, node Node) error
	// DeleteNode removes the node and every edge touching it
	DeleteNode(ctx context.Context, ref NodeRef) error
	// ReplaceEdges sets the outgoing edges of one type from a node.
	// Targets that do not exist are skipped.
	ReplaceEdges(ctx context.Context, from NodeRef, rel RelType, to []NodeRef) error
	// ReplaceIncoming sets the incoming edges of one type into a node.
	// Sources that do not exist are skipped.
	ReplaceIncoming(ctx context.Context, to NodeRef, rel RelType, from []NodeRef) error
	// Snapshot returns every node and edge
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Clear removes everything
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}

func validate(refs ...NodeRef) error {
	for _, r := range refs {
		if !r.Label.Valid() {
			return errors.Newf("unknown node label %q", r.Label)
		}
	}
	return nil
}
