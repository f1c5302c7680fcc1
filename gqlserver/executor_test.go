package gqlserver

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/schema"
)

type counters struct {
	instances, relationships, components, reviewers atomic.Int32
}

func countingResolvers(c *counters) Resolvers {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	component := map[string]interface{}{
		"id": int64(7), "name": "billing", "description": nil, "status": "active",
		"tags": []string{"go"}, "categoryId": nil, "teamId": nil, "createdAt": now, "updatedAt": now,
	}
	user := map[string]interface{}{"id": int64(1), "name": "Ana", "email": "ana@example.com"}
	adr := map[string]interface{}{
		"id": int64(3), "title": "Adopt GraphQL", "status": "accepted",
		"participants": []interface{}{map[string]interface{}{"userId": int64(1), "role": "owner"}},
	}
	count := func(n *atomic.Int32, v interface{}) FieldResolver {
		return func(context.Context, interface{}, map[string]interface{}) (interface{}, error) {
			n.Add(1)
			return v, nil
		}
	}
	return Resolvers{
		"Query": {
			"components": func(context.Context, interface{}, map[string]interface{}) (interface{}, error) {
				return []interface{}{component}, nil
			},
		},
		"Component": {
			"instances":              count(&c.instances, []interface{}{}),
			"totalInstances":         count(&c.instances, 0),
			"instancesByEnvironment": count(&c.instances, []interface{}{}),
			"category":               count(&c.relationships, nil),
			"team":                   count(&c.relationships, nil),
			"adrs":                   count(&c.relationships, []interface{}{adr}),
		},
		"ADR": {
			"components": count(&c.components, []interface{}{component}),
		},
		"ADRParticipant": {
			"user": count(&c.reviewers, user),
		},
	}
}

func runOperation(t *testing.T, e *Executor, name string, vars map[string]interface{}) map[string]interface{} {
	t.Helper()
	doc, err := schema.Operation(name)
	require.NoError(t, err)
	resp := e.Execute(context.Background(), Request{Query: doc, OperationName: name, Variables: vars})
	require.Empty(t, resp.Errors)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestIncludeFlagsSkipResolvers(t *testing.T) {
	c := &counters{}
	e := NewExecutor(schema.MustLoad(), countingResolvers(c), zaptest.NewLogger(t).Sugar())

	data := runOperation(t, e, "GetComponents", nil)
	items := data["components"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "7", first["id"])
	assert.Equal(t, "ACTIVE", first["status"])
	assert.Equal(t, "2026-01-02T03:04:05Z", first["createdAt"])
	assert.NotContains(t, first, "instances")
	assert.NotContains(t, first, "adrs")
	assert.Zero(t, c.instances.Load())
	assert.Zero(t, c.relationships.Load())

	data = runOperation(t, e, "GetComponents", map[string]interface{}{
		"includeInstances":      true,
		"includeRelationships":  true,
		"includeFullComponents": true,
		"includeFullReviewers":  true,
	})
	first = data["components"].([]interface{})[0].(map[string]interface{})
	assert.Contains(t, first, "instances")
	assert.Equal(t, float64(0), first["totalInstances"])
	adrs := first["adrs"].([]interface{})
	require.Len(t, adrs, 1)
	participant := adrs[0].(map[string]interface{})["participants"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "OWNER", participant["role"])
	assert.Equal(t, "Ana", participant["user"].(map[string]interface{})["name"])
	assert.Equal(t, int32(3), c.instances.Load())
	assert.Equal(t, int32(3), c.relationships.Load())
	assert.Equal(t, int32(1), c.components.Load())
	assert.Equal(t, int32(1), c.reviewers.Load())
}

func TestSkipDirectiveAndTypename(t *testing.T) {
	c := &counters{}
	e := NewExecutor(schema.MustLoad(), countingResolvers(c), nil)

	resp := e.Execute(context.Background(), Request{
		Query: `query($skip: Boolean!) { components { __typename id name @skip(if: $skip) ... on Component { alias: id } } }`,
		Variables: map[string]interface{}{"skip": true},
	})
	require.Empty(t, resp.Errors)
	assert.Equal(t, `{"components":[{"__typename":"Component","id":"7","alias":"7"}]}`, string(resp.Data))
}

func TestResolverErrorsCarryCodeAndPath(t *testing.T) {
	e := NewExecutor(schema.MustLoad(), Resolvers{
		"Query": {
			"component": func(context.Context, interface{}, map[string]interface{}) (interface{}, error) {
				return nil, errors.NewConflictError("already exists")
			},
			"teams": func(context.Context, interface{}, map[string]interface{}) (interface{}, error) {
				return nil, errors.New("database exploded")
			},
		},
	}, zaptest.NewLogger(t).Sugar())

	resp := e.Execute(context.Background(), Request{Query: `query Q { component(id: "1") { id } }`})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "already exists", resp.Errors[0].Message)
	assert.Equal(t, errors.CodeConflict, resp.Errors[0].Extensions["code"])
	assert.Equal(t, "Q", resp.Errors[0].Extensions["operation"])
	assert.Equal(t, "component", resp.Errors[0].Path.String())
	// component is nullable, so data survives
	require.NotNil(t, resp.Data)

	resp = e.Execute(context.Background(), Request{Query: `{ teams { id } }`})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "internal server error", resp.Errors[0].Message)
	assert.Equal(t, errors.CodeInternal, resp.Errors[0].Extensions["code"])
	// teams is non-null, so the whole response data is null
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":null`)
}

func TestNonNullItemNullsList(t *testing.T) {
	e := NewExecutor(schema.MustLoad(), Resolvers{
		"Query": {
			"environments": func(context.Context, interface{}, map[string]interface{}) (interface{}, error) {
				return []interface{}{map[string]interface{}{"id": int64(1), "name": nil}}, nil
			},
			"component": func(context.Context, interface{}, map[string]interface{}) (interface{}, error) {
				return nil, nil
			},
		},
	}, nil)

	resp := e.Execute(context.Background(), Request{Query: `{ component(id: 1) { id } environments { id name } }`})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "environments[0].name", resp.Errors[0].Path.String())
	assert.Equal(t, "null", string(resp.Data))
}

func TestResolverPanicIsInternalError(t *testing.T) {
	e := NewExecutor(schema.MustLoad(), Resolvers{
		"Query": {
			"component": func(context.Context, interface{}, map[string]interface{}) (interface{}, error) {
				panic("boom")
			},
		},
	}, zaptest.NewLogger(t).Sugar())

	resp := e.Execute(context.Background(), Request{Query: `{ component(id: "1") { id } }`})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "internal server error", resp.Errors[0].Message)
	assert.Equal(t, errors.CodeInternal, resp.Errors[0].Extensions["code"])
	assert.Equal(t, `{"component":null}`, string(resp.Data))
}

func TestRequestLevelErrors(t *testing.T) {
	e := NewExecutor(schema.MustLoad(), Resolvers{}, nil)

	resp := e.Execute(context.Background(), Request{Query: `{ nope }`})
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, errors.CodeInvalidInput, resp.Errors[0].Extensions["code"])

	resp = e.Execute(context.Background(), Request{Query: `query A { users { id } } query B { teams { id } }`})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, errors.CodeInvalidInput, resp.Errors[0].Extensions["code"])

	resp = e.Execute(context.Background(), Request{Query: `query($id: ID!) { component(id: $id) { id } }`})
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, errors.CodeInvalidInput, resp.Errors[0].Extensions["code"])
}
