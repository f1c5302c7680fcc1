package gqlclient_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/archbeaver/beaver/catalog"
	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/gqlclient"
	beavertest "github.com/archbeaver/beaver/internal/testing"
)

func newBackend(t *testing.T) (*gqlclient.Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := beavertest.NewServer(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			next.ServeHTTP(w, r)
		})
	})

	c, err := gqlclient.New(config.ClientConfig{Endpoint: srv.Endpoint()},
		gqlclient.WithMetrics(srv.Registry.Client),
		gqlclient.WithLogger(zaptest.NewLogger(t).Sugar()),
	)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c, &hits
}

func TestCatalogRoundTrip(t *testing.T) {
	c, hits := newBackend(t)
	ctx := context.Background()

	team, err := c.CreateTeam(ctx, gqlclient.NamedInput{Name: "payments"})
	require.NoError(t, err)
	comp, err := c.CreateComponent(ctx, gqlclient.ComponentInput{Name: "billing", TeamID: &team.ID, Tags: []string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, gqlclient.StatusActive, comp.Status)

	envs, err := c.GetEnvironments(ctx)
	require.NoError(t, err)
	require.Len(t, envs, 3)
	_, err = c.CreateInstance(ctx, gqlclient.InstanceInput{ComponentID: comp.ID, EnvironmentID: envs[2].ID})
	require.NoError(t, err)

	// a second instance in the same environment is rejected
	_, err = c.CreateInstance(ctx, gqlclient.InstanceInput{ComponentID: comp.ID, EnvironmentID: envs[2].ID})
	require.Error(t, err)
	assert.True(t, errors.IsConflictError(err))
	assert.Equal(t, catalog.MsgDuplicateInstance, err.Error())

	list, err := c.GetComponents(ctx, gqlclient.ShapeList, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Team)
	assert.Nil(t, list[0].TotalInstances)
	assert.Empty(t, list[0].Instances)

	detail, err := c.GetComponent(ctx, gqlclient.ShapeDetail, comp.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Team)
	assert.Equal(t, "payments", detail.Team.Name)
	require.NotNil(t, detail.TotalInstances)
	assert.Equal(t, 1, *detail.TotalInstances)
	require.Len(t, detail.InstancesByEnvironment, 1)
	assert.Equal(t, "production", detail.InstancesByEnvironment[0].Environment.Name)

	before := hits.Load()
	_, err = c.GetComponent(ctx, gqlclient.ShapeDetail, comp.ID)
	require.NoError(t, err)
	_, err = c.GetComponents(ctx, gqlclient.ShapeList, nil)
	require.NoError(t, err)
	assert.Equal(t, before, hits.Load(), "repeat reads are served from the cache")

	_, err = c.GetComponent(ctx, gqlclient.ShapeList, "999")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestADRLifecycle(t *testing.T) {
	c, _ := newBackend(t)
	ctx := context.Background()

	owner, err := c.CreateUser(ctx, gqlclient.UserInput{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	comp, err := c.CreateComponent(ctx, gqlclient.ComponentInput{Name: "gateway"})
	require.NoError(t, err)

	_, err = c.CreateADR(ctx, gqlclient.ADRInput{
		Title:        "Adopt GraphQL",
		Participants: []gqlclient.ParticipantInput{{UserID: owner.ID, Role: gqlclient.RoleReviewer}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, catalog.MsgADRNeedsOwner, err.Error())

	adrs, err := c.GetADRs(ctx, gqlclient.ShapeList, "")
	require.NoError(t, err)
	assert.Empty(t, adrs)

	adr, err := c.CreateADR(ctx, gqlclient.ADRInput{
		Title:        "Adopt GraphQL",
		Status:       gqlclient.ADRAccepted,
		Participants: []gqlclient.ParticipantInput{{UserID: owner.ID, Role: gqlclient.RoleOwner}},
		ComponentIDs: []string{comp.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, gqlclient.ADRAccepted, adr.Status)

	// CreateADR refetched the cached ADR list
	adrs, err = c.GetADRs(ctx, gqlclient.ShapeList, "", gqlclient.WithFetchPolicy(gqlclient.CacheOnly))
	require.NoError(t, err)
	require.Len(t, adrs, 1)
	assert.Nil(t, adrs[0].Participants[0].User)
	assert.Empty(t, adrs[0].Components)

	full, err := c.GetADR(ctx, gqlclient.ShapeDetail, adr.ID)
	require.NoError(t, err)
	require.NotNil(t, full.Participants[0].User)
	assert.Equal(t, "Ana", full.Participants[0].User.Name)
	require.Len(t, full.Components, 1)
	assert.Equal(t, "gateway", full.Components[0].Name)

	ok, err := c.DeleteADR(ctx, adr.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	adrs, err = c.GetADRs(ctx, gqlclient.ShapeList, "", gqlclient.WithFetchPolicy(gqlclient.CacheOnly))
	require.NoError(t, err)
	assert.Empty(t, adrs)
}

func TestDetailReadAfterListRefetch(t *testing.T) {
	c, hits := newBackend(t)
	ctx := context.Background()

	owner, err := c.CreateUser(ctx, gqlclient.UserInput{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	adr, err := c.CreateADR(ctx, gqlclient.ADRInput{
		Title:        "Adopt GraphQL",
		Participants: []gqlclient.ParticipantInput{{UserID: owner.ID, Role: gqlclient.RoleOwner}},
	})
	require.NoError(t, err)

	full, err := c.GetADR(ctx, gqlclient.ShapeDetail, adr.ID)
	require.NoError(t, err)
	require.NotNil(t, full.Participants[0].User)

	// the list shape rewrites participants without user
	_, err = c.GetADRs(ctx, gqlclient.ShapeList, "", gqlclient.WithFetchPolicy(gqlclient.NetworkOnly))
	require.NoError(t, err)

	before := hits.Load()
	full, err = c.GetADR(ctx, gqlclient.ShapeDetail, adr.ID)
	require.NoError(t, err)
	require.Len(t, full.Participants, 1)
	require.NotNil(t, full.Participants[0].User)
	assert.Equal(t, "Ana", full.Participants[0].User.Name)
	assert.Equal(t, before+1, hits.Load(), "detail is fetched again")

	before = hits.Load()
	_, err = c.GetADR(ctx, gqlclient.ShapeDetail, adr.ID)
	require.NoError(t, err)
	assert.Equal(t, before, hits.Load())
}

func TestPaginationAndGraph(t *testing.T) {
	c, _ := newBackend(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := c.CreateComponent(ctx, gqlclient.ComponentInput{Name: name})
		require.NoError(t, err)
	}

	page, err := c.GetPaginatedComponents(ctx, gqlclient.ShapeList, 1, 2, nil)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, gqlclient.PageInfo{
		TotalItems: 3, CurrentPage: 1, PageSize: 2, TotalPages: 2, HasNextPage: true, HasPreviousPage: false,
	}, page.PageInfo)

	g, err := c.GetGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(g.Nodes), g.Meta.TotalNodes)
	assert.NotEmpty(t, g.Nodes)

	roadmap, err := c.GetRoadmapTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, roadmap, 4)
}
