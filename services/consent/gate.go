package consent

import (
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// State is the tri-state user consent. It starts Unknown and moves to
// Granted or Declined when the user answers the consent prompt.
type State string

const (
	StateUnknown  State = "UNKNOWN"
	StateGranted  State = "GRANTED"
	StateDeclined State = "DECLINED"
)

var Module = fx.Module("consent", fx.Provide(NewGate))

// Gate holds the session-scoped consent decision. Only the gate mutates it;
// everyone else reads.
type Gate struct {
	mu    sync.RWMutex
	state State
}

func NewGate() *Gate {
	return &Gate{state: StateUnknown}
}

func (g *Gate) Set(granted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if granted {
		g.state = StateGranted
	} else {
		g.state = StateDeclined
	}
	zap.L().Info("user consent recorded", zap.String("state", string(g.state)))
}

func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Permits reports whether ad-network initialization may proceed: either
// privacy enforcement is off, or it is on and the user granted consent.
func (g *Gate) Permits(privacyEnabled bool) bool {
	if !privacyEnabled {
		return true
	}
	return g.State() == StateGranted
}
