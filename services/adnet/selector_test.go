package adnet

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func readySnapshot(providers ...Provider) Snapshot {
	states := make(map[Provider]State)
	for _, p := range Providers() {
		states[p] = StateDisabled
	}
	for _, p := range providers {
		states[p] = StateReady
	}
	return Snapshot{States: states}
}

func TestPickNoneEligible(t *testing.T) {
	sel := NewSelectorWithSource(rand.NewSource(1))

	_, ok := sel.Pick(enabledConfig(), readySnapshot())
	require.False(t, ok)
}

func TestPickSingleEligible(t *testing.T) {
	sel := NewSelectorWithSource(rand.NewSource(1))

	p, ok := sel.Pick(enabledConfig(), readySnapshot(ProviderUnity))
	require.True(t, ok)
	require.Equal(t, ProviderUnity, p)
}

func TestPickSkipsRewardedDisabled(t *testing.T) {
	sel := NewSelectorWithSource(rand.NewSource(1))

	cfg := enabledConfig()
	cfg.AdMob.RewardedEnabled = false

	p, ok := sel.Pick(cfg, readySnapshot(ProviderAdMob, ProviderUnity))
	require.True(t, ok)
	require.Equal(t, ProviderUnity, p)
}

func TestPickSkipsDisabledNetwork(t *testing.T) {
	sel := NewSelectorWithSource(rand.NewSource(1))

	cfg := enabledConfig()
	cfg.Unity.Enabled = false

	p, ok := sel.Pick(cfg, readySnapshot(ProviderAdMob, ProviderUnity))
	require.True(t, ok)
	require.Equal(t, ProviderAdMob, p)
}

func TestPickBothEligible(t *testing.T) {
	sel := NewSelectorWithSource(rand.NewSource(42))

	seen := make(map[Provider]bool)
	for i := 0; i < 100; i++ {
		p, ok := sel.Pick(enabledConfig(), readySnapshot(ProviderAdMob, ProviderUnity))
		require.True(t, ok)
		seen[p] = true
	}
	require.True(t, seen[ProviderAdMob])
	require.True(t, seen[ProviderUnity])
}
