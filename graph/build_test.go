package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archbeaver/beaver/graphstore"
)

func TestBuildEmpty(t *testing.T) {
	g := Build(nil, "memory", time.Unix(0, 0))
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Links)
	assert.Equal(t, 0, g.Meta.Stats.TotalNodes)
	assert.Equal(t, 0, g.Meta.Stats.TotalEdges)
	assert.Equal(t, "memory", g.Meta.Config["backend"])
}

func TestBuildProjectsNodesAndLinks(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := &graphstore.Snapshot{
		Nodes: []graphstore.Node{
			{NodeRef: graphstore.ComponentRef(1), Name: "billing", Props: map[string]interface{}{"status": "active"}},
			{NodeRef: graphstore.ComponentRef(2), Name: "ledger"},
			{NodeRef: graphstore.InstanceRef(5)},
			{NodeRef: graphstore.EnvironmentRef(3), Name: "production"},
		},
		Edges: []graphstore.Edge{
			{From: graphstore.InstanceRef(5), Type: graphstore.RelInstantiates, To: graphstore.ComponentRef(1)},
			{From: graphstore.InstanceRef(5), Type: graphstore.RelDeployedIn, To: graphstore.EnvironmentRef(3)},
			{From: graphstore.InstanceRef(5), Type: graphstore.RelDeployedIn, To: graphstore.EnvironmentRef(3)},
			// dangling edge is dropped
			{From: graphstore.ADRRef(9), Type: graphstore.RelRelatesTo, To: graphstore.ComponentRef(1)},
		},
	}

	g := Build(snap, "neo4j", now)
	require.Len(t, g.Nodes, 4)
	require.Len(t, g.Links, 2)

	byID := make(map[string]Node)
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	billing := byID["component_1"]
	assert.Equal(t, "component", billing.Type)
	assert.Equal(t, "billing", billing.Label)
	assert.True(t, billing.Visible)
	assert.Equal(t, "active", billing.Metadata["status"])
	assert.Equal(t, "Instance:5", byID["instance_5"].Label)

	var deployed Link
	for _, l := range g.Links {
		if l.Type == string(graphstore.RelDeployedIn) {
			deployed = l
		}
	}
	assert.Equal(t, "instance_5", deployed.Source)
	assert.Equal(t, "environment_3", deployed.Target)
	assert.Equal(t, defaultLinkWeight+linkWeightIncrement, deployed.Weight)

	assert.Equal(t, now, g.Meta.GeneratedAt)
	assert.Equal(t, Stats{TotalNodes: 4, TotalEdges: 2}, g.Meta.Stats)
	require.NotEmpty(t, g.Meta.NodeTypes)
	assert.Equal(t, NodeTypeInfo{Type: "component", Label: "Component", Color: "#7fbbb3", Count: 2}, g.Meta.NodeTypes[0])
	assert.Len(t, g.Meta.RelationshipTypes, 2)
	for _, rt := range g.Meta.RelationshipTypes {
		assert.Equal(t, 1, rt.Count)
		require.NotNil(t, rt.LinkDistance)
	}
}
