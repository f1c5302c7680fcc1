package gqlclient

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archbeaver/beaver/metrics"
)

func component(id, name string) map[string]interface{} {
	return map[string]interface{}{"__typename": "Component", "id": id, "name": name}
}

func TestCacheSharesEntitiesAcrossResults(t *testing.T) {
	c, err := NewCache(0, 0, nil)
	require.NoError(t, err)

	require.NoError(t, c.Write("GetComponents", nil, map[string]interface{}{
		"components": []interface{}{component("1", "billing"), component("2", "ledger")},
	}))
	require.NoError(t, c.Write("GetComponent", map[string]interface{}{"id": "1"}, map[string]interface{}{
		"component": map[string]interface{}{
			"__typename": "Component", "id": "1", "name": "billing-v2",
			"team": map[string]interface{}{"__typename": "Team", "id": "9", "name": "payments"},
		},
	}))

	entities, results := c.Len()
	assert.Equal(t, 3, entities)
	assert.Equal(t, 2, results)

	// the detail write updated the shared entity
	list, ok := c.Read("GetComponents", nil)
	require.True(t, ok)
	first := list["components"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "billing-v2", first["name"])
	// the list result keeps its own field selection
	assert.NotContains(t, first, "team")

	detail, ok := c.Read("GetComponent", map[string]interface{}{"id": "1"})
	require.True(t, ok)
	team := detail["component"].(map[string]interface{})["team"].(map[string]interface{})
	assert.Equal(t, "payments", team["name"])
}

func TestCacheEvictMakesResultsMiss(t *testing.T) {
	m := metrics.NewRegistry().Client
	c, err := NewCache(0, 0, m)
	require.NoError(t, err)
	require.NoError(t, c.Write("GetComponents", nil, map[string]interface{}{
		"components": []interface{}{component("1", "billing"), component("2", "ledger")},
	}))

	assert.True(t, c.Evict("Component", "2"))
	assert.False(t, c.Evict("Component", "2"))
	_, ok := c.Read("GetComponents", nil)
	assert.False(t, ok)
	_, results := c.Len()
	assert.Zero(t, results, "stale result is dropped")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evictions.WithLabelValues(evictExplicit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evictions.WithLabelValues(evictStale)))
}

func TestCacheEntityCapacity(t *testing.T) {
	c, err := NewCache(2, 10, nil)
	require.NoError(t, err)
	require.NoError(t, c.Write("GetComponents", nil, map[string]interface{}{
		"components": []interface{}{component("1", "a"), component("2", "b"), component("3", "c")},
	}))

	_, ok := c.Entity("Component", "1")
	assert.False(t, ok, "oldest entity is evicted")
	_, ok = c.Read("GetComponents", nil)
	assert.False(t, ok)
}

func TestCacheResultKeysAreCanonical(t *testing.T) {
	a, err := ResultKey("GetComponents", map[string]interface{}{"b": 1, "a": true})
	require.NoError(t, err)
	b, err := ResultKey("GetComponents", map[string]interface{}{"a": true, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := NewCache(0, 0, nil)
	require.NoError(t, err)
	require.NoError(t, c.Write("GetTeams", nil, map[string]interface{}{"teams": []interface{}{}}))
	_, ok := c.Read("GetTeams", map[string]interface{}{})
	assert.True(t, ok, "nil and empty variables share a key")
}

func TestCacheInvalidate(t *testing.T) {
	c, err := NewCache(0, 0, nil)
	require.NoError(t, err)
	vars := map[string]interface{}{"id": "1"}
	require.NoError(t, c.Write("GetComponent", vars, map[string]interface{}{"component": component("1", "a")}))
	require.NoError(t, c.Write("GetTeams", nil, map[string]interface{}{"teams": []interface{}{}}))

	refs := c.Invalidate("GetComponent")
	require.Len(t, refs, 1)
	assert.Equal(t, "GetComponent", refs[0].Operation)
	assert.Equal(t, vars, refs[0].Variables)

	_, ok := c.Read("GetComponent", vars)
	assert.False(t, ok)
	_, ok = c.Read("GetTeams", nil)
	assert.True(t, ok)
	_, ok = c.Entity("Component", "1")
	assert.True(t, ok, "entities survive result invalidation")

	c.Clear()
	entities, results := c.Len()
	assert.Zero(t, entities)
	assert.Zero(t, results)
}

func TestCacheKeepsUnidentifiedObjectsInline(t *testing.T) {
	c, err := NewCache(0, 0, nil)
	require.NoError(t, err)
	page := map[string]interface{}{
		"paginatedComponents": map[string]interface{}{
			"__typename": "PaginatedComponents",
			"items":      []interface{}{component("1", "a")},
			"pageInfo":   map[string]interface{}{"__typename": "PageInfo", "totalItems": 1},
		},
	}
	require.NoError(t, c.Write("GetPaginatedComponents", nil, page))

	got, ok := c.Read("GetPaginatedComponents", nil)
	require.True(t, ok)
	assert.Equal(t, page, got)
	entities, _ := c.Len()
	assert.Equal(t, 1, entities)
}

func TestCacheNestedSelectionMissesAfterNarrowerWrite(t *testing.T) {
	c, err := NewCache(0, 0, nil)
	require.NoError(t, err)
	vars := map[string]interface{}{"id": "1"}
	detail := map[string]interface{}{
		"adr": map[string]interface{}{
			"__typename": "ADR", "id": "1", "title": "Adopt GraphQL",
			"participants": []interface{}{map[string]interface{}{
				"__typename": "ADRParticipant", "userId": "7", "role": "OWNER",
				"user": map[string]interface{}{"__typename": "User", "id": "7", "name": "Ana"},
			}},
		},
	}
	require.NoError(t, c.Write("GetADR", vars, detail))
	got, ok := c.Read("GetADR", vars)
	require.True(t, ok)
	assert.Equal(t, detail, got)

	list := map[string]interface{}{
		"adrs": []interface{}{map[string]interface{}{
			"__typename": "ADR", "id": "1", "title": "Adopt GraphQL",
			"participants": []interface{}{map[string]interface{}{
				"__typename": "ADRParticipant", "userId": "7", "role": "OWNER",
			}},
		}},
	}
	require.NoError(t, c.Write("GetADRs", nil, list))

	_, ok = c.Read("GetADR", vars)
	assert.False(t, ok, "participants no longer carry user")
	got, ok = c.Read("GetADRs", nil)
	require.True(t, ok)
	assert.Equal(t, list, got)
}

func TestCacheStoresJSONScalarsWhole(t *testing.T) {
	c, err := NewCache(0, 0, nil)
	require.NoError(t, err)
	instance := func(specs map[string]interface{}) map[string]interface{} {
		return map[string]interface{}{
			"instance": map[string]interface{}{"__typename": "Instance", "id": "3", "specs": specs},
		}
	}
	require.NoError(t, c.Write("GetInstance", nil, instance(map[string]interface{}{"cpu": 2})))
	c.WriteEntities(instance(map[string]interface{}{"cpu": 4, "memory": "1Gi"}))

	got, ok := c.Read("GetInstance", nil)
	require.True(t, ok)
	specs := got["instance"].(map[string]interface{})["specs"]
	assert.Equal(t, map[string]interface{}{"cpu": 4, "memory": "1Gi"}, specs)
}

func TestCacheNullThenObjectIsMiss(t *testing.T) {
	c, err := NewCache(0, 0, nil)
	require.NoError(t, err)
	withTeam := func(team interface{}) map[string]interface{} {
		return map[string]interface{}{
			"component": map[string]interface{}{"__typename": "Component", "id": "1", "team": team},
		}
	}
	require.NoError(t, c.Write("GetComponent", nil, withTeam(nil)))
	got, ok := c.Read("GetComponent", nil)
	require.True(t, ok)
	assert.Nil(t, got["component"].(map[string]interface{})["team"])

	c.WriteEntities(withTeam(map[string]interface{}{"__typename": "Team", "id": "9", "name": "payments"}))
	_, ok = c.Read("GetComponent", nil)
	assert.False(t, ok, "the cached result never selected team fields")
}
