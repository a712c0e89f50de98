package consent

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestGateStartsUnknown(t *testing.T) {
	gate := NewGate()
	require.Equal(t, StateUnknown, gate.State())
}

func TestGateSet(t *testing.T) {
	gate := NewGate()

	gate.Set(true)
	require.Equal(t, StateGranted, gate.State())

	gate.Set(false)
	require.Equal(t, StateDeclined, gate.State())
}

func TestPermits(t *testing.T) {
	gate := NewGate()

	// Privacy enforcement off always permits.
	require.True(t, gate.Permits(false))
	require.False(t, gate.Permits(true))

	gate.Set(false)
	require.True(t, gate.Permits(false))
	require.False(t, gate.Permits(true))

	gate.Set(true)
	require.True(t, gate.Permits(true))
}
