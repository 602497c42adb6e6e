package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedTool(name string) *FunctionTool {
	return New(name, "test tool "+name, func(_ context.Context, _ map[string]any) (any, error) {
		return name, nil
	})
}

func TestRegistry_ResolveAndOrder(t *testing.T) {
	a, b := namedTool("alpha"), namedTool("beta")
	reg := NewRegistry(a, b)

	got, ok := reg.Resolve("alpha")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = reg.Resolve("missing")
	assert.False(t, ok)

	tools := reg.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "alpha", tools[0].Name())
	assert.Equal(t, "beta", tools[1].Name())
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_LaterRegistrationOverrides(t *testing.T) {
	reg := NewRegistry(namedTool("dup"))
	replacement := namedTool("dup")
	reg.Register(replacement)

	got, ok := reg.Resolve("dup")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_AdditionalTools(t *testing.T) {
	reg := NewRegistry(namedTool("advertised"))
	reg.RegisterAdditional(namedTool("hidden"))

	assert.True(t, reg.IsAdditional("hidden"))
	assert.False(t, reg.IsAdditional("advertised"))

	_, ok := reg.Resolve("hidden")
	assert.True(t, ok)
}

func TestRegistry_AdvertisedTakesPrecedenceOverAdditional(t *testing.T) {
	advertised := namedTool("shared")
	reg := NewRegistry(advertised)
	reg.RegisterAdditional(namedTool("shared"))

	got, ok := reg.Resolve("shared")
	require.True(t, ok)
	assert.Same(t, advertised, got)
	assert.False(t, reg.IsAdditional("shared"))
}
