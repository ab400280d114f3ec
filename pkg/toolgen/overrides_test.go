package toolgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverrides(t *testing.T) {
	content := `
service: slskd
names:
  "get /api/v0/searches": slskd_search_history
responses:
  "POST /api/v0/searches": object
modules:
  - prefix: /api/v0/transfers
    module: transfers
workflow_hints:
  slskd_create_search: "Poll slskd_get_search until the state is Completed."
`
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	o, err := LoadOverrides(path)
	require.NoError(t, err)

	assert.Equal(t, "slskd", o.Service)

	// Method case is normalized on load.
	name, ok := o.nameFor("GET", "/api/v0/searches")
	require.True(t, ok)
	assert.Equal(t, "slskd_search_history", name)

	kind, ok := o.responseFor("POST", "/api/v0/searches")
	require.True(t, ok)
	assert.Equal(t, "object", kind)

	require.Len(t, o.Modules, 1)
	assert.Equal(t, "/api/v0/transfers", o.Modules[0].Prefix)

	assert.Contains(t, o.hintFor("slskd_create_search"), "Poll slskd_get_search")
}

func TestLoadOverridesMissingFile(t *testing.T) {
	_, err := LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestOverridesNilSafety(t *testing.T) {
	var o *Overrides
	_, ok := o.nameFor("GET", "/x")
	assert.False(t, ok)
	_, ok = o.responseFor("GET", "/x")
	assert.False(t, ok)
	assert.Empty(t, o.hintFor("anything"))
}
