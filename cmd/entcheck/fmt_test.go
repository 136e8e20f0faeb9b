package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unformatted = "@entity(key:[id])\nrecord User {|\n  readonly id:int;\n|}"

const formatted = "@entity(key: [id])\nrecord User {|\n\treadonly id: int;\n|}\n"

func TestFormatFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "user.ent")
	require.NoError(t, os.WriteFile(path, []byte(unformatted), filePermissions))

	var out bytes.Buffer

	changed, err := formatFile(path, false, false, &out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, formatted, out.String())

	out.Reset()

	changed, err = formatFile(path, false, true, &out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out.String(), "+++ b/"+path)
	assert.Contains(t, out.String(), "+\treadonly id: int;\n")

	out.Reset()

	changed, err = formatFile(path, true, false, &out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, path+"\n", out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, formatted, string(data))

	changed, err = formatFile(path, false, false, &out)
	require.NoError(t, err)
	assert.False(t, changed, "formatted file is stable")
}

func TestFormatFile_ParseError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.ent")
	require.NoError(t, os.WriteFile(path, []byte("record {|"), filePermissions))

	changed, err := formatFile(path, true, false, &bytes.Buffer{})
	require.Error(t, err)
	assert.False(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "record {|", string(data), "unparsable files are not rewritten")
}

func TestEmitFixes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "user.ent")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), filePermissions))

	original := map[string][]byte{path: []byte("a\n")}
	fixed := map[string][]byte{path: []byte("b\n")}

	var out bytes.Buffer

	require.NoError(t, emitFixes(&out, false, true, []string{path}, original, fixed))
	assert.Contains(t, out.String(), "-a\n+b\n")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(data), "diff alone does not write")

	out.Reset()

	require.NoError(t, emitFixes(&out, true, false, []string{path}, original, fixed))
	assert.Equal(t, "fix "+path+"\n", out.String())

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b\n", string(data))

	out.Reset()

	require.NoError(t, emitFixes(&out, false, false, nil, original, original))
	assert.Equal(t, "ok nothing to fix\n", out.String())
}
