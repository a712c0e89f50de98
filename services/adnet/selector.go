package adnet

import (
	"math/rand"
	"sync"
	"time"
)

// Selector picks the provider that serves an ad-gated task. When both
// providers are eligible the choice is uniformly random to spread load; the
// random source is injectable so tests can pin the outcome.
type Selector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSelector() *Selector {
	return NewSelectorWithSource(rand.NewSource(time.Now().UnixNano()))
}

func NewSelectorWithSource(src rand.Source) *Selector {
	return &Selector{rnd: rand.New(src)}
}

// Pick returns an eligible provider, or false when none is eligible and the
// caller must fall back to the visible-time countdown.
func (s *Selector) Pick(cfg InitConfig, snap Snapshot) (Provider, bool) {
	eligible := make([]Provider, 0, len(Providers()))
	for _, p := range Providers() {
		network := cfg.Network(p)
		if network.Enabled && network.RewardedEnabled && snap.Ready(p) {
			eligible = append(eligible, p)
		}
	}

	switch len(eligible) {
	case 0:
		return "", false
	case 1:
		return eligible[0], true
	default:
		s.mu.Lock()
		defer s.mu.Unlock()
		return eligible[s.rnd.Intn(len(eligible))], true
	}
}
