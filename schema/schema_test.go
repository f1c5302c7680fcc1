package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
)

var optimizationVars = []string{"includeInstances", "includeRelationships", "includeFullComponents", "includeFullReviewers"}

func TestSchemaLoads(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)
	require.NotNil(t, s.Query)
	require.NotNil(t, s.Mutation)

	for _, name := range []string{"adrs", "adr", "users", "components", "paginatedComponents", "componentsByEnvironment",
		"componentsByCategory", "componentsByTeam", "component", "environments", "teams", "categories", "roadmapTypes", "graph"} {
		assert.NotNil(t, s.Query.Fields.ForName(name), name)
	}
	for _, name := range []string{"createADR", "updateADR", "deleteADR", "createComponent", "updateComponent", "deleteComponent",
		"createEnvironment", "createTeam", "createCategory", "createInstance", "updateInstance", "deleteInstance"} {
		assert.NotNil(t, s.Mutation.Fields.ForName(name), name)
	}
}

func TestEveryOperationIsStandalone(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)
	names, err := OperationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			text, err := Operation(name)
			require.NoError(t, err)
			doc, errs := gqlparser.LoadQuery(s, text)
			require.Empty(t, errs, text)
			require.Len(t, doc.Operations, 1)
			assert.Equal(t, name, doc.Operations[0].Name)
		})
	}
}

func TestOptimizedQueriesDeclareIncludeFlags(t *testing.T) {
	d, err := Document()
	require.NoError(t, err)

	optimized := []string{"GetADRs", "GetADR", "GetComponents", "GetPaginatedComponents",
		"GetComponentsByEnvironment", "GetComponentsByCategory", "GetComponentsByTeam", "GetComponent"}
	for _, name := range optimized {
		op := d.Operations.ForName(name)
		require.NotNil(t, op, name)
		for _, v := range optimizationVars {
			def := op.VariableDefinitions.ForName(v)
			require.NotNil(t, def, "%s declares $%s", name, v)
			assert.Equal(t, "Boolean", def.Type.Name())
			require.NotNil(t, def.DefaultValue)
			assert.Equal(t, "false", def.DefaultValue.Raw)
		}
	}
}

func TestOperationIncludesOnlyReferencedFragments(t *testing.T) {
	text, err := Operation("GetUsers")
	require.NoError(t, err)
	assert.Contains(t, text, "fragment UserFields on User")
	assert.NotContains(t, text, "ComponentSummary")

	text, err = Operation("GetComponent")
	require.NoError(t, err)
	for _, frag := range []string{"ComponentFields", "ComponentSummary", "ParticipantFields", "UserFields", "InstanceFields"} {
		assert.Equal(t, 1, strings.Count(text, "fragment "+frag+" "), frag)
	}

	_, err = Operation("Nope")
	assert.Error(t, err)
}

func TestParseAndValidateRejectsUnknownField(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)
	_, err = ParseAndValidate(s, "bad.graphql", "query { components { nope } }")
	assert.Error(t, err)
}
