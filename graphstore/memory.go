package graphstore

import (
	"context"
	"sort"
	"sync"
)

type edgeKey struct {
	from NodeRef
	rel  RelType
	to   NodeRef
}

// Memory is an in-process Store
type Memory struct {
	mu    sync.RWMutex
	nodes map[NodeRef]Node
	edges map[edgeKey]struct{}
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		nodes: make(map[NodeRef]Node),
		edges: make(map[edgeKey]struct{}),
	}
}

func (m *Memory) UpsertNode(_ context.Context, node Node) error {
	if err := validate(node.NodeRef); err != nil {
		return err
	}
	props := make(map[string]interface{}, len(node.Props))
	for k, v := range node.Props {
		props[k] = v
	}
	node.Props = props

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[node.NodeRef] = node
	return nil
}

func (m *Memory) DeleteNode(_ context.Context, ref NodeRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, ref)
	for k := range m.edges {
		if k.from == ref || k.to == ref {
			delete(m.edges, k)
		}
	}
	return nil
}

func (m *Memory) ReplaceEdges(_ context.Context, from NodeRef, rel RelType, to []NodeRef) error {
	if err := validate(append([]NodeRef{from}, to...)...); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.edges {
		if k.from == from && k.rel == rel {
			delete(m.edges, k)
		}
	}
	if _, ok := m.nodes[from]; !ok {
		return nil
	}
	for _, t := range to {
		if _, ok := m.nodes[t]; ok {
			m.edges[edgeKey{from: from, rel: rel, to: t}] = struct{}{}
		}
	}
	return nil
}

func (m *Memory) ReplaceIncoming(_ context.Context, to NodeRef, rel RelType, from []NodeRef) error {
	if err := validate(append([]NodeRef{to}, from...)...); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.edges {
		if k.to == to && k.rel == rel {
			delete(m.edges, k)
		}
	}
	if _, ok := m.nodes[to]; !ok {
		return nil
	}
	for _, f := range from {
		if _, ok := m.nodes[f]; ok {
			m.edges[edgeKey{from: f, rel: rel, to: to}] = struct{}{}
		}
	}
	return nil
}

// Snapshot returns nodes ordered by (label, id) and edges ordered by (from, type, to)
func (m *Memory) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &Snapshot{
		Nodes: make([]Node, 0, len(m.nodes)),
		Edges: make([]Edge, 0, len(m.edges)),
	}
	for _, n := range m.nodes {
		snap.Nodes = append(snap.Nodes, n)
	}
	for k := range m.edges {
		snap.Edges = append(snap.Edges, Edge{From: k.from, Type: k.rel, To: k.to})
	}
	SortSnapshot(snap)
	return snap, nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = make(map[NodeRef]Node)
	m.edges = make(map[edgeKey]struct{})
	return nil
}

func (m *Memory) Close(_ context.Context) error {
	return nil
}

// SortSnapshot orders a snapshot deterministically
func SortSnapshot(snap *Snapshot) {
	sort.Slice(snap.Nodes, func(i, j int) bool {
		return refLess(snap.Nodes[i].NodeRef, snap.Nodes[j].NodeRef)
	})
	sort.Slice(snap.Edges, func(i, j int) bool {
		a, b := snap.Edges[i], snap.Edges[j]
		if a.From != b.From {
			return refLess(a.From, b.From)
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return refLess(a.To, b.To)
	})
}

func refLess(a, b NodeRef) bool {
	if a.Label != b.Label {
		return a.Label < b.Label
	}
	return a.ID < b.ID
}
