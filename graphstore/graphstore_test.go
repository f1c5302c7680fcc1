package graphstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/archbeaver/beaver/catalog"
)

type fakeSource struct {
	envs  []catalog.Environment
	teams []catalog.Team
	cats  []catalog.Category
	comps []catalog.Component
	insts []catalog.Instance
	adrs  []catalog.ADR
}

func (f *fakeSource) ListEnvironments(context.Context) ([]catalog.Environment, error) {
	return f.envs, nil
}
func (f *fakeSource) ListTeams(context.Context) ([]catalog.Team, error) { return f.teams, nil }
func (f *fakeSource) ListCategories(context.Context) ([]catalog.Category, error) {
	return f.cats, nil
}
func (f *fakeSource) ListComponents(context.Context, catalog.ComponentFilter) ([]catalog.Component, error) {
	return f.comps, nil
}
func (f *fakeSource) ListInstances(context.Context, *int64) ([]catalog.Instance, error) {
	return f.insts, nil
}
func (f *fakeSource) ListADRs(context.Context, *catalog.ADRStatus) ([]catalog.ADR, error) {
	return f.adrs, nil
}

func int64p(v int64) *int64 { return &v }

func sampleSource() *fakeSource {
	return &fakeSource{
		envs:  []catalog.Environment{{ID: 1, Name: "development"}, {ID: 3, Name: "production"}},
		teams: []catalog.Team{{ID: 1, Name: "platform"}},
		cats:  []catalog.Category{{ID: 2, Name: "backend"}},
		comps: []catalog.Component{
			{ID: 10, Name: "billing", Status: catalog.ComponentActive, TeamID: int64p(1), CategoryID: int64p(2)},
			{ID: 11, Name: "ledger", Status: catalog.ComponentDeprecated},
		},
		insts: []catalog.Instance{{ID: 100, ComponentID: 10, EnvironmentID: 3, Hostname: "billing-prod"}},
		adrs:  []catalog.ADR{{ID: 7, Title: "Split billing", ComponentIDs: []int64{10, 11}, InstanceIDs: []int64{100}}},
	}
}

func TestSyncBuildsRelationships(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	stats, err := Sync(ctx, sampleSource(), store, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Nodes)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 8)
	assert.ElementsMatch(t, []Edge{
		{From: ADRRef(7), Type: RelRelatesTo, To: ComponentRef(10)},
		{From: ADRRef(7), Type: RelRelatesTo, To: ComponentRef(11)},
		{From: ADRRef(7), Type: RelRelatesTo, To: InstanceRef(100)},
		{From: ComponentRef(10), Type: RelBelongsTo, To: CategoryRef(2)},
		{From: TeamRef(1), Type: RelResponsibleFor, To: ComponentRef(10)},
		{From: InstanceRef(100), Type: RelInstantiates, To: ComponentRef(10)},
		{From: InstanceRef(100), Type: RelDeployedIn, To: EnvironmentRef(3)},
	}, snap.Edges)

	// a second sync yields the same graph
	_, err = Sync(ctx, sampleSource(), store, nil)
	require.NoError(t, err)
	again, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, again)
}

func TestMemoryReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_, err := Sync(ctx, sampleSource(), store, nil)
	require.NoError(t, err)

	// moving the component out of its team drops the incoming edge
	require.NoError(t, PutComponent(ctx, store, catalog.Component{ID: 10, Name: "billing", CategoryID: int64p(2)}))
	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	for _, e := range snap.Edges {
		assert.NotEqual(t, RelResponsibleFor, e.Type)
	}

	require.NoError(t, store.DeleteNode(ctx, ComponentRef(10)))
	snap, err = store.Snapshot(ctx)
	require.NoError(t, err)
	for _, e := range snap.Edges {
		assert.NotEqual(t, ComponentRef(10), e.From)
		assert.NotEqual(t, ComponentRef(10), e.To)
	}

	// edges to missing nodes are skipped
	require.NoError(t, store.ReplaceEdges(ctx, ADRRef(7), RelRelatesTo, []NodeRef{ComponentRef(999)}))
	snap, err = store.Snapshot(ctx)
	require.NoError(t, err)
	for _, e := range snap.Edges {
		assert.NotEqual(t, ADRRef(7), e.From)
	}

	assert.Error(t, store.UpsertNode(ctx, Node{NodeRef: NodeRef{Label: "Bogus", ID: 1}}))
}

func TestParseNodeRef(t *testing.T) {
	ref, err := ParseNodeRef("Component:42")
	require.NoError(t, err)
	assert.Equal(t, ComponentRef(42), ref)
	assert.Equal(t, "Component:42", ref.Key())

	_, err = ParseNodeRef("Component")
	assert.Error(t, err)
	_, err = ParseNodeRef("Widget:1")
	assert.Error(t, err)
	_, err = ParseNodeRef("Team:x")
	assert.Error(t, err)
}
