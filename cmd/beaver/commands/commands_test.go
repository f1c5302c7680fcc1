package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archbeaver/beaver/catalog"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/graph"
	beavertest "github.com/archbeaver/beaver/internal/testing"
)

// useConfig points --config at a temp file with a temp SQLite database
func useConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "beaver.toml")
	content := fmt.Sprintf("[database]\ndriver = \"sqlite\"\npath = %q\n%s", filepath.Join(dir, "beaver.db"), extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	ConfigFile = path
	t.Cleanup(func() { ConfigFile = "" })
	return dir
}

func run(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetContext(context.Background())
	err := c.RunE(c, args)
	return out.String(), err
}

func TestConfigShowAndGet(t *testing.T) {
	useConfig(t, "[server]\nport = 4100\n")

	configFormat = "json"
	t.Cleanup(func() { configFormat = "toml" })
	out, err := run(t, configShowCmd)
	require.NoError(t, err)
	assert.Contains(t, out, `"port": 4100`)
	assert.NotContains(t, out, "password")

	out, err = run(t, configGetCmd, "server.port")
	require.NoError(t, err)
	assert.Equal(t, "4100", strings.TrimSpace(out))

	_, err = run(t, configGetCmd, "server.nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))

	_, err = run(t, configValidateCmd)
	assert.NoError(t, err)
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	useConfig(t, "[graph]\nbackend = \"arangodb\"\n")
	_, err := run(t, configValidateCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph.backend")
}

func TestLegacyLookups(t *testing.T) {
	useConfig(t, "")

	out, err := run(t, legacyEnvCmd, "production")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))

	out, err = run(t, legacyRoadmapCmd, "bugfix")
	require.NoError(t, err)
	assert.Equal(t, "3", strings.TrimSpace(out))

	_, err = run(t, legacyEnvCmd, "staging")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
	assert.Equal(t, "Environment not found for legacy value: staging", err.Error())
}

func TestGraphExport(t *testing.T) {
	dir := useConfig(t, "")
	graphOutput = filepath.Join(dir, "graph.json")
	t.Cleanup(func() { graphOutput = "" })

	_, err := run(t, graphExportCmd)
	require.NoError(t, err)

	data, err := os.ReadFile(graphOutput)
	require.NoError(t, err)
	var g graph.Graph
	require.NoError(t, json.Unmarshal(data, &g))
	assert.Len(t, g.Nodes, 3, "seeded environments")
	assert.Equal(t, 3, g.Meta.Stats.TotalNodes)
}

func TestMigrate(t *testing.T) {
	useConfig(t, "")
	_, err := run(t, MigrateCmd)
	require.NoError(t, err)
	// a second run is a no-op
	_, err = run(t, MigrateCmd)
	require.NoError(t, err)
}

func TestLsAgainstServer(t *testing.T) {
	useConfig(t, "")
	srv := beavertest.NewServer(t, nil)
	lsEndpoint = srv.Endpoint()
	t.Cleanup(func() { lsEndpoint = "" })

	_, err := srv.Service.CreateComponent(context.Background(), catalog.ComponentInput{Name: "billing"})
	require.NoError(t, err)

	_, err = run(t, lsComponentsCmd)
	require.NoError(t, err)
	_, err = run(t, lsEnvironmentsCmd)
	require.NoError(t, err)

	lsDetail = true
	t.Cleanup(func() { lsDetail = false })
	_, err = run(t, lsComponentCmd, "1")
	require.NoError(t, err)

	_, err = run(t, lsComponentCmd, "999")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestLsUnreachableServer(t *testing.T) {
	useConfig(t, "[client]\ntimeout_seconds = 1\n[client.retry]\nmax_attempts = 1\n")
	lsEndpoint = "http://127.0.0.1:1/graphql"
	t.Cleanup(func() { lsEndpoint = "" })

	_, err := run(t, lsTeamsCmd)
	require.Error(t, err)
	assert.True(t, errors.IsTransportError(err))
}
