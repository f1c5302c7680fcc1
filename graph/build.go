// Package graph projects a graph store snapshot into the node/link structure
// the dependency-graph view renders. The projection is purely derived.
package graph

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/archbeaver/beaver/graphstore"
)

// nodeID is the D3-safe id of a store node, e.g. "component_12"
func nodeID(ref graphstore.NodeRef) string {
	return strings.ToLower(string(ref.Label)) + "_" + strconv.FormatInt(ref.ID, 10)
}

// Build projects a snapshot. Edges whose endpoints are not in the snapshot are dropped.
func Build(snap *graphstore.Snapshot, backend string, now time.Time) *Graph {
	g := &Graph{
		Nodes: []Node{},
		Links: []Link{},
	}
	if snap == nil {
		snap = &graphstore.Snapshot{}
	}

	present := make(map[string]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		id := nodeID(n.NodeRef)
		if present[id] {
			continue
		}
		present[id] = true

		def := nodeTypeDefinitions[n.Label]
		label := n.Name
		if label == "" {
			label = n.Key()
		}
		node := Node{
			ID:      id,
			Type:    strings.ToLower(string(n.Label)),
			Label:   label,
			Visible: true,
			Group:   def.group,
		}
		if len(n.Props) > 0 {
			node.Metadata = make(map[string]interface{}, len(n.Props))
			for k, v := range n.Props {
				node.Metadata[k] = v
			}
		}
		g.Nodes = append(g.Nodes, node)
	}

	linkIndex := make(map[string]int)
	for _, e := range snap.Edges {
		source, target := nodeID(e.From), nodeID(e.To)
		if !present[source] || !present[target] {
			continue
		}
		key := source + "|" + string(e.Type) + "|" + target
		if i, ok := linkIndex[key]; ok {
			// Increase weight for duplicate relationships
			g.Links[i].Weight += linkWeightIncrement
			continue
		}
		linkIndex[key] = len(g.Links)
		g.Links = append(g.Links, Link{
			Source: source,
			Target: target,
			Type:   string(e.Type),
			Weight: defaultLinkWeight,
			Label:  relationshipDefinitions[e.Type].label,
		})
	}

	g.Meta = Meta{
		GeneratedAt:       now,
		Stats:             Stats{TotalNodes: len(g.Nodes), TotalEdges: len(g.Links)},
		Config:            map[string]string{"backend": backend},
		NodeTypes:         collectNodeTypeInfo(g.Nodes),
		RelationshipTypes: collectRelationshipTypeInfo(g.Links),
	}
	return g
}

// collectNodeTypeInfo counts nodes per type, most common first
func collectNodeTypeInfo(nodes []Node) []NodeTypeInfo {
	typeCounts := make(map[string]int)
	for _, node := range nodes {
		typeCounts[node.Type]++
	}

	nodeTypes := []NodeTypeInfo{}
	for _, l := range graphstore.Labels {
		t := strings.ToLower(string(l))
		count, ok := typeCounts[t]
		if !ok {
			continue
		}
		def := nodeTypeDefinitions[l]
		color := def.color
		if color == "" {
			color = defaultNodeColor
		}
		nodeTypes = append(nodeTypes, NodeTypeInfo{Type: t, Label: def.label, Color: color, Count: count})
	}

	// Most common types appear first in the legend
	sort.SliceStable(nodeTypes, func(i, j int) bool {
		return nodeTypes[i].Count > nodeTypes[j].Count
	})
	return nodeTypes
}

// collectRelationshipTypeInfo counts links per type, most common first
func collectRelationshipTypeInfo(links []Link) []RelationshipTypeInfo {
	typeCounts := make(map[string]int)
	for _, link := range links {
		typeCounts[link.Type]++
	}

	relationshipTypes := []RelationshipTypeInfo{}
	for _, rel := range graphstore.RelTypes {
		count, ok := typeCounts[string(rel)]
		if !ok {
			continue
		}
		def := relationshipDefinitions[rel]
		distance := def.linkDistance
		relationshipTypes = append(relationshipTypes, RelationshipTypeInfo{
			Type:         string(rel),
			Label:        def.label,
			Color:        def.color,
			LinkDistance: &distance,
			Count:        count,
		})
	}

	sort.SliceStable(relationshipTypes, func(i, j int) bool {
		return relationshipTypes[i].Count > relationshipTypes[j].Count
	})
	return relationshipTypes
}
