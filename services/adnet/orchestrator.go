package adnet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// InitFunc performs one provider's initialization. The default simulates the
// async handshake of a native SDK; tests inject their own to pin timing.
type InitFunc func(ctx context.Context, p Provider, cfg NetworkConfig) error

// Orchestrator owns per-provider readiness. It guarantees single-flight
// initialization and de-duplicates re-saves of identical configuration.
type Orchestrator struct {
	mu            sync.Mutex
	states        map[Provider]State
	inFlight      bool
	lastSignature string
	initFn        InitFunc
}

type OrchestratorParams struct {
	fx.In
	Init InitFunc `optional:"true"`
}

func NewOrchestrator(p OrchestratorParams) *Orchestrator {
	initFn := p.Init
	if initFn == nil {
		initFn = simulatedInit
	}

	states := make(map[Provider]State, len(Providers()))
	for _, provider := range Providers() {
		states[provider] = StateDisabled
	}

	return &Orchestrator{
		states: states,
		initFn: initFn,
	}
}

// Initialize brings every enabled provider to Ready or Failed and returns the
// resulting snapshot. A call with an unchanged signature while a provider is
// already Ready returns the current snapshot without doing any work. A call
// while another run is in flight starts no new work but still applies the
// config's disables. Consent gating happens at the caller; the orchestrator
// only acts on the config it is handed.
func (o *Orchestrator) Initialize(ctx context.Context, cfg InitConfig) (Snapshot, error) {
	signature := cfg.Signature()

	o.mu.Lock()
	if signature == o.lastSignature && !o.inFlight && o.anyEnabledReadyLocked(cfg) {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, nil
	}

	if o.inFlight {
		zap.L().Warn("ad network initialization already in progress")
		// Disabling takes effect immediately even mid-run; the guarded
		// setState keeps the running goroutines from promoting these
		// providers afterwards.
		for _, p := range Providers() {
			if !cfg.Network(p).Enabled {
				o.states[p] = StateDisabled
			}
		}
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, nil
	}

	o.inFlight = true
	for _, p := range Providers() {
		if cfg.Network(p).Enabled {
			o.states[p] = StateInitializing
		} else {
			// Disabled clears readiness immediately and unconditionally.
			o.states[p] = StateDisabled
		}
	}
	o.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range Providers() {
		network := cfg.Network(p)
		if !network.Enabled {
			zap.L().Info("ad provider disabled in settings", zap.String("provider", p.String()))
			continue
		}

		provider := p
		g.Go(func() error {
			if err := validate(provider, network); err != nil {
				zap.L().Error("ad provider validation failed",
					zap.String("provider", provider.String()),
					zap.Error(err),
				)
				o.setState(provider, StateFailed)
				return nil
			}

			if err := o.initFn(gctx, provider, network); err != nil {
				zap.L().Error("ad provider initialization failed",
					zap.String("provider", provider.String()),
					zap.Error(err),
				)
				o.setState(provider, StateFailed)
				return nil
			}

			zap.L().Info("ad provider initialized", zap.String("provider", provider.String()))
			o.setState(provider, StateReady)
			return nil
		})
	}

	// Provider failures are isolated; the goroutines above never return an
	// error.
	_ = g.Wait()

	o.mu.Lock()
	o.inFlight = false
	o.lastSignature = signature
	snap := o.snapshotLocked()
	o.mu.Unlock()

	return snap, nil
}

// DisableAll forces every provider to non-ready. Used when consent is
// withdrawn or gating no longer permits initialization. The recorded
// signature is cleared so the next permitted save re-initializes.
func (o *Orchestrator) DisableAll() {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, p := range Providers() {
		o.states[p] = StateDisabled
	}
	o.lastSignature = ""
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	states := make(map[Provider]State, len(o.states))
	for p, s := range o.states {
		states[p] = s
	}
	return Snapshot{States: states, InFlight: o.inFlight}
}

func (o *Orchestrator) anyEnabledReadyLocked(cfg InitConfig) bool {
	for _, p := range Providers() {
		if cfg.Network(p).Enabled && o.states[p] == StateReady {
			return true
		}
	}
	return false
}

// setState records an initialization outcome. It only applies while the
// provider is still Initializing, so a disable that landed mid-run wins over
// the run's late result.
func (o *Orchestrator) setState(p Provider, s State) {
	o.mu.Lock()
	if o.states[p] == StateInitializing {
		o.states[p] = s
	}
	o.mu.Unlock()
}

func validate(p Provider, cfg NetworkConfig) error {
	switch p {
	case ProviderAdMob:
		if len(cfg.AppID) < 5 {
			return fmt.Errorf("invalid AdMob app id %q", cfg.AppID)
		}
	case ProviderUnity:
		if len(cfg.AppID) < 3 {
			return fmt.Errorf("invalid Unity game id %q", cfg.AppID)
		}
	}
	return nil
}

// simulatedInit stands in for the native SDK handshake.
func simulatedInit(ctx context.Context, p Provider, _ NetworkConfig) error {
	delay := 1500 * time.Millisecond
	if p == ProviderUnity {
		delay = 1200 * time.Millisecond
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
