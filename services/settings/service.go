package settings

import (
	"context"
	"sync"

	"earneasy-rewardplane/pkg/config"
	"earneasy-rewardplane/services/adnet"
	"earneasy-rewardplane/services/consent"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service owns the application settings and coordinates the consent gate and
// the ad-network orchestrator: every settings save and every consent decision
// re-evaluates whether initialization is permitted.
type Service struct {
	mu      sync.RWMutex
	current AppSettings

	gate *consent.Gate
	orch *adnet.Orchestrator
}

type ServiceParams struct {
	fx.In
	Config       *config.Config
	Gate         *consent.Gate
	Orchestrator *adnet.Orchestrator
}

func NewService(p ServiceParams) *Service {
	current := Defaults()
	if p.Config != nil {
		if p.Config.Rewards.MinWithdraw > 0 {
			current.MinWithdraw = p.Config.Rewards.MinWithdraw
		}
		if p.Config.Rewards.CurrencySymbol != "" {
			current.CurrencySymbol = p.Config.Rewards.CurrencySymbol
		}
	}

	return &Service{
		current: current,
		gate:    p.Gate,
		orch:    p.Orchestrator,
	}
}

func (s *Service) Get() AppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Service) Maintenance() bool {
	return s.Get().MaintenanceMode
}

func (s *Service) Consent() consent.State {
	return s.gate.State()
}

// Update stores the saved settings and re-evaluates ad-network gating. The
// orchestrator's signature comparison suppresses redundant re-initialization
// when the saved content is unchanged.
func (s *Service) Update(ctx context.Context, next AppSettings) (adnet.Snapshot, error) {
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	zap.L().Info("application settings updated",
		zap.Bool("privacy_enabled", next.Privacy.Enabled),
		zap.Bool("admob_enabled", next.AdMob.Enabled),
		zap.Bool("unity_enabled", next.UnityAds.Enabled),
	)

	return s.reevaluate(ctx)
}

// SetConsent records the user's decision and re-evaluates gating immediately.
func (s *Service) SetConsent(ctx context.Context, granted bool) (adnet.Snapshot, error) {
	s.gate.Set(granted)
	return s.reevaluate(ctx)
}

func (s *Service) reevaluate(ctx context.Context) (adnet.Snapshot, error) {
	current := s.Get()

	if s.gate.Permits(current.Privacy.Enabled) {
		return s.orch.Initialize(ctx, current.InitConfig())
	}

	zap.L().Info("ad network initialization blocked",
		zap.String("consent", string(s.gate.State())),
	)
	s.orch.DisableAll()
	return s.orch.Snapshot(), nil
}
