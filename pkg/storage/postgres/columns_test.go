package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsValueScan(t *testing.T) {
	in := Columns{"title": "Hello", "tags": []string{"a", "b"}}

	v, err := in.Value()
	require.NoError(t, err)

	var out Columns
	require.NoError(t, out.Scan(v))
	assert.Equal(t, "Hello", out["title"])
	assert.Equal(t, []string{"a", "b"}, out["tags"])

	require.NoError(t, out.Scan(`{"company":"Acme"}`))
	assert.Equal(t, Columns{"company": "Acme"}, out)
}

func TestColumnsNilAndBadInput(t *testing.T) {
	var nilColumns Columns
	v, err := nilColumns.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)

	var out Columns
	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)

	assert.Error(t, out.Scan(42))
	assert.Error(t, out.Scan([]byte("not json")))
}
