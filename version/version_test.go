package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archbeaver/beaver/errors"
)

func TestInfoString(t *testing.T) {
	i := Info{CommitHash: "0123456789abcdef", BuildTime: "2024-05-01", Version: "v1.2.0"}
	assert.Equal(t, "0123456", i.Short())
	assert.Equal(t, "beaver v1.2.0 (commit 0123456, built 2024-05-01)", i.String())

	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
	assert.NotEmpty(t, Get().Platform)
}

func TestRequire(t *testing.T) {
	i := Info{Version: "v1.4.2"}
	assert.NoError(t, i.Require(">= 1.2, < 2"))

	err := i.Require(">= 2")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, "beaver v1.4.2 does not satisfy >= 2", err.Error())

	assert.NoError(t, Info{Version: "dev"}.Require(">= 9"))
	assert.Error(t, i.Require("not a constraint"))
	assert.Error(t, Info{Version: "nightly"}.Require(">= 1"))
}
