package adnet

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RewardedSurface is the ad-playback collaborator contract. Implementations
// must call onReward at most once and only after the required display time
// has elapsed, and must call onClose when the surface is dismissed. Closing
// grants nothing by itself.
type RewardedSurface interface {
	Show(ctx context.Context, p Provider, required time.Duration, onReward, onClose func()) error
}

// SimulatedSurface plays a mock ad creative: it waits out the required
// duration, then reports the reward and closes.
type SimulatedSurface struct{}

func NewSimulatedSurface() *SimulatedSurface {
	return &SimulatedSurface{}
}

func (s *SimulatedSurface) Show(ctx context.Context, p Provider, required time.Duration, onReward, onClose func()) error {
	zap.L().Info("showing rewarded ad",
		zap.String("provider", p.String()),
		zap.Duration("required", required),
	)

	select {
	case <-ctx.Done():
		// Dismissed before the required watch time; no reward.
		onClose()
		return ctx.Err()
	case <-time.After(required):
	}

	onReward()
	onClose()
	return nil
}
