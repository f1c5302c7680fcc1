package gqlclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/archbeaver/beaver/schema"
)

func TestShapeVariables(t *testing.T) {
	caller := map[string]interface{}{
		"id":                   "7",
		"includeInstances":     true,
		"includeFullReviewers": true,
	}

	list := ShapeList.Variables(caller)
	assert.Equal(t, "7", list["id"], "caller wins for other keys")
	for _, k := range OptimizationKeys {
		assert.Equal(t, false, list[k], "list shape wins for %s", k)
	}

	detail := ShapeDetail.Variables(map[string]interface{}{"includeRelationships": false})
	for _, k := range OptimizationKeys {
		assert.Equal(t, true, detail[k], "detail shape wins for %s", k)
	}

	assert.Equal(t, true, caller["includeInstances"], "caller map is not modified")
	assert.Len(t, ShapeList.Variables(nil), len(OptimizationKeys))
}

func TestShapeFieldSet(t *testing.T) {
	assert.Equal(t, FieldSet{}, ShapeList.FieldSet())
	assert.Equal(t, FieldSet{Instances: true, Relationships: true, FullComponents: true, FullReviewers: true}, ShapeDetail.FieldSet())
	assert.Equal(t, "list", ShapeList.String())
	assert.Equal(t, "detail", ShapeDetail.String())
}

func TestAddTypename(t *testing.T) {
	doc, err := schema.Operation("GetComponent")
	require.NoError(t, err)

	out, err := addTypename(doc)
	require.NoError(t, err)

	// the rewritten document still validates against the schema
	_, err = schema.ParseAndValidate(schema.MustLoad(), "GetComponent", out)
	require.NoError(t, err)

	parsed, err := parser.ParseQuery(&ast.Source{Input: out})
	require.NoError(t, err)
	root := parsed.Operations[0].SelectionSet[0].(*ast.Field)
	assert.Equal(t, "component", root.Name)
	assert.Equal(t, typenameField, root.SelectionSet[0].(*ast.Field).Name)

	for _, frag := range parsed.Fragments {
		count := 0
		for _, sel := range frag.SelectionSet {
			if f, ok := sel.(*ast.Field); ok && f.Name == typenameField {
				count++
			}
		}
		assert.Equal(t, 1, count, "fragment %s", frag.Name)
	}

	// the operation root is untouched
	assert.Len(t, parsed.Operations[0].SelectionSet, 1)

	again, err := addTypename(out)
	require.NoError(t, err)
	assert.Equal(t, strings.Count(out, typenameField), strings.Count(again, typenameField), "idempotent")
}

func TestAddTypenameRejectsInvalidDocument(t *testing.T) {
	_, err := addTypename("query {")
	require.Error(t, err)
}
