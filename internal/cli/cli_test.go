package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test", "abc123")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSlugCommand(t *testing.T) {
	out, err := run(t, "slug", "Crème", "Brûlée", "Recipe!")
	require.NoError(t, err)
	assert.Equal(t, "creme-brulee-recipe\n", out)
}

func TestSlugCommandFallback(t *testing.T) {
	out, err := run(t, "slug", "???")
	require.NoError(t, err)
	assert.Equal(t, "post\n", out)
}

func TestSlugCommandClients(t *testing.T) {
	out, err := run(t, "slug", "--collection", "clients", " Jane@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com\n", out)

	_, err = run(t, "slug", "--collection", "invoices", "x")
	assert.Error(t, err)
}

func TestSlugCommandNeedsArgs(t *testing.T) {
	_, err := run(t, "slug")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "tinytasks test (commit: abc123)\n", out)
}
