package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedStrategy string

func (n namedStrategy) Name() string { return string(n) }

func (n namedStrategy) Extract(*Document) (Result, error) {
	return Result{Title: string(n)}, nil
}

func TestRegistryResolveAllKeepsOrder(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(namedStrategy("b"))
	reg.Register(namedStrategy("a"))

	resolved, err := reg.ResolveAll([]string{"b", "a"})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, "b", resolved[0].Name())
	assert.Equal(t, "a", resolved[1].Name())
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}

func TestRegistryResolveUnknown(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(namedStrategy("a"))

	_, err := reg.ResolveAll([]string{"a", "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Contains(t, err.Error(), `"missing" (have a)`)
}
