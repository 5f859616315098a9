package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitRegistryDisabled(t *testing.T) {
	InitRegistry(false)
	require.False(t, IsEnabled())
	require.Nil(t, GetRegistry())
}

func TestInitRegistryEnabled(t *testing.T) {
	reg := InitRegistry(true)
	t.Cleanup(func() { InitRegistry(false) })

	require.True(t, IsEnabled())
	require.NotNil(t, reg)
	require.Same(t, reg, GetRegistry())
}

func TestInitRegistryTogglesFresh(t *testing.T) {
	first := InitRegistry(true)
	second := InitRegistry(true)
	t.Cleanup(func() { InitRegistry(false) })

	require.NotSame(t, first, second, "re-enabling should hand out a fresh registry")
}
