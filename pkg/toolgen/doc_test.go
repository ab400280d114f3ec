package toolgen

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMarkdownDoc(t *testing.T) {
	result := compileFixture(t, Options{})

	var buf bytes.Buffer
	require.NoError(t, WriteMarkdownDoc(&buf, result))
	out := buf.String()

	assert.Contains(t, out, "# slskd MCP Tools")
	assert.Contains(t, out, "## Module: searches")
	assert.Contains(t, out, "### slskd_create_search")
	assert.Contains(t, out, "`POST /api/v0/searches`")
	assert.Contains(t, out, "Input:")
	assert.Contains(t, out, "```json")

	// List tools document their response shape as well.
	assert.Contains(t, out, "Response:")
	assert.Contains(t, out, `"type": "array"`)
}

func TestLoadSpecFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.json")
	require.NoError(t, os.WriteFile(path, []byte(fixtureSpec), 0o644))

	doc, err := LoadSpec(path)
	require.NoError(t, err)
	assert.Equal(t, "slskd API", doc.Info.Title)
}

func TestLoadSpecRejectsGarbage(t *testing.T) {
	_, err := LoadSpecFromBytes([]byte("{not json or yaml"))
	require.Error(t, err)
}
