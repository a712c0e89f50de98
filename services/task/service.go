package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"earneasy-rewardplane/pkg/errutil"
	"earneasy-rewardplane/services/adnet"
	"earneasy-rewardplane/services/ledger"
	"earneasy-rewardplane/services/settings"
	"earneasy-rewardplane/services/user"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// tickerFactory abstracts time.Ticker so tests can drive the countdown by
// hand.
type tickerFactory func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Service runs the task catalog and the completion engine. Attempts are held
// in memory only; a restart voids anything in flight, which matches the
// grant-on-completion rule.
type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	ledger   *ledger.Service
	users    *user.Service
	settings *settings.Service
	orch     *adnet.Orchestrator
	selector *adnet.Selector
	surface  adnet.RewardedSurface

	attempts  sync.Map // attempt id -> *Attempt
	newTicker tickerFactory
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Ledger   *ledger.Service
	Users    *user.Service
	Settings *settings.Service
	Orch     *adnet.Orchestrator
	Selector *adnet.Selector
	Surface  adnet.RewardedSurface
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		node:      p.Node,
		ledger:    p.Ledger,
		users:     p.Users,
		settings:  p.Settings,
		orch:      p.Orch,
		selector:  p.Selector,
		surface:   p.Surface,
		newTicker: realTicker,
	}
}

type UpsertTask struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	Type            Type   `json:"type" binding:"required"`
	Reward          int64  `json:"reward" binding:"required"`
	DurationSeconds int    `json:"duration_seconds" binding:"required"`
	URL             string `json:"url"`
	Thumbnail       string `json:"thumbnail"`
	IsActive        *bool  `json:"is_active"`
}

func (s *Service) CreateTask(ctx context.Context, req UpsertTask) (*Task, error) {
	if !req.Type.Valid() {
		return nil, errutil.BadRequest(fmt.Sprintf("unknown task type %q", req.Type), nil)
	}
	if req.Reward <= 0 || req.DurationSeconds <= 0 {
		return nil, errutil.BadRequest("reward and duration must be > 0", nil)
	}

	t := &Task{
		ID:              s.node.Generate().String(),
		Title:           req.Title,
		Description:     req.Description,
		Type:            req.Type,
		Reward:          req.Reward,
		DurationSeconds: req.DurationSeconds,
		URL:             req.URL,
		Thumbnail:       req.Thumbnail,
		IsActive:        true,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}

	zap.L().Info("task created", zap.String("task_id", t.ID), zap.String("type", string(t.Type)))
	return t, nil
}

func (s *Service) UpdateTask(ctx context.Context, id string, req UpsertTask) (*Task, error) {
	if !req.Type.Valid() {
		return nil, errutil.BadRequest(fmt.Sprintf("unknown task type %q", req.Type), nil)
	}

	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	t.Title = req.Title
	t.Description = req.Description
	t.Type = req.Type
	t.Reward = req.Reward
	t.DurationSeconds = req.DurationSeconds
	t.URL = req.URL
	t.Thumbnail = req.Thumbnail
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	t.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTask removes a catalog entry. In-flight attempts of a deleted task
// void at completion time instead of paying out.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&Task{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("task not found", nil)
	}
	return nil
}

func (s *Service) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := s.db.WithContext(ctx).Where(&Task{ID: id}).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("task not found", nil)
		}
		return nil, err
	}
	return &t, nil
}

func (s *Service) ListTasks(ctx context.Context, activeOnly bool) ([]*Task, error) {
	q := s.db.WithContext(ctx).Order("created_at ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var tasks []*Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Start begins an attempt. Ad-gated task types go through a rewarded ad when
// a provider is ready; otherwise they fall back to the visible-time
// countdown. While initialization is in flight the start is refused rather
// than silently degraded.
func (s *Service) Start(ctx context.Context, userID, taskID string) (*Attempt, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		if errutil.StatusOf(err) == errutil.StatusNotFound {
			return nil, errutil.Unauthorized("unknown user", nil)
		}
		return nil, err
	}
	if u.IsBanned {
		return nil, errutil.Forbidden("this account has been suspended", nil)
	}

	t, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, errutil.UnprocessableEntity("task is not active", nil)
	}

	attempt := &Attempt{
		ID:        s.node.Generate().String(),
		TaskID:    t.ID,
		UserID:    userID,
		TaskTitle: t.Title,
		Reward:    t.Reward,
		Mode:      ModeTimer,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}

	if t.Type.RequiresAd() {
		snap := s.orch.Snapshot()
		if snap.Initializing() {
			return nil, errutil.Unavailable("ad networks are initializing", nil)
		}

		cfg := s.settings.Get().InitConfig()
		if provider, ok := s.selector.Pick(cfg, snap); ok {
			attempt.Mode = ModeAd
			attempt.Provider = provider
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	attempt.cancel = cancel
	attempt.countdown = NewCountdown(time.Duration(t.DurationSeconds) * time.Second)
	s.attempts.Store(attempt.ID, attempt)

	zap.L().Info("attempt started",
		zap.String("attempt_id", attempt.ID),
		zap.String("task_id", t.ID),
		zap.String("user_id", userID),
		zap.String("mode", string(attempt.Mode)),
	)

	if attempt.Mode == ModeAd {
		go func() {
			if err := s.RunAd(runCtx, attempt.ID); err != nil && !errors.Is(err, context.Canceled) {
				zap.L().Error("ad attempt failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
			}
		}()
	} else {
		go func() {
			if err := s.RunTimer(runCtx, attempt.ID); err != nil {
				zap.L().Error("timer attempt failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
			}
		}()
	}

	return attempt, nil
}

// RunTimer drives a timer-mode attempt to completion. Cancellation voids the
// attempt and is not an error.
func (s *Service) RunTimer(ctx context.Context, attemptID string) error {
	attempt, err := s.attempt(attemptID)
	if err != nil {
		return err
	}

	ticks, stop := s.newTicker(time.Second)
	defer stop()

	if err := attempt.countdown.Run(ctx, ticks); err != nil {
		s.void(attempt)
		return nil
	}

	_, err = s.Complete(ctx, attemptID)
	return err
}

// RunAd shows the rewarded ad for an ad-mode attempt. The reward callback
// completes the attempt; closing without the callback voids it.
func (s *Service) RunAd(ctx context.Context, attemptID string) error {
	attempt, err := s.attempt(attemptID)
	if err != nil {
		return err
	}

	required := attempt.countdown.Remaining()
	rewarded := false

	err = s.surface.Show(ctx, attempt.Provider, required,
		func() {
			rewarded = true
			if _, cerr := s.Complete(context.WithoutCancel(ctx), attemptID); cerr != nil {
				zap.L().Error("failed to credit ad reward",
					zap.String("attempt_id", attemptID),
					zap.Error(cerr),
				)
			}
		},
		func() {
			if !rewarded {
				s.void(attempt)
			}
		},
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// SetVisibility suspends or resumes a timer-mode countdown. Ad-mode attempts
// ignore visibility; the surface owns their lifecycle.
func (s *Service) SetVisibility(attemptID string, visible bool) error {
	attempt, err := s.attempt(attemptID)
	if err != nil {
		return err
	}
	attempt.countdown.SetVisible(visible)
	return nil
}

// Complete resolves an attempt and grants the reward exactly once. A repeat
// call is a no-op returning no entry, so retries and racing callbacks are
// safe. A task deleted mid-attempt pays nothing and voids the attempt.
func (s *Service) Complete(ctx context.Context, attemptID string) (*ledger.Entry, error) {
	attempt, err := s.attempt(attemptID)
	if err != nil {
		return nil, err
	}

	if _, err := s.GetTask(ctx, attempt.TaskID); err != nil {
		if errutil.StatusOf(err) == errutil.StatusNotFound {
			zap.L().Warn("task deleted mid-attempt",
				zap.String("attempt_id", attempt.ID),
				zap.String("task_id", attempt.TaskID),
			)
			attempt.cancel()
			s.void(attempt)
		}
		return nil, err
	}

	if !attempt.markCompleted() {
		if attempt.Voided() {
			return nil, errutil.Conflict("attempt was abandoned", nil)
		}
		return nil, nil
	}
	// The run context may be the ctx this call arrived on, so the timer is
	// cancelled only after the reward side effects.
	defer func() {
		attempt.cancel()
		close(attempt.done)
	}()

	entry, err := s.ledger.Credit(ctx, attempt.UserID, attempt.Reward,
		fmt.Sprintf("Task Completed: %s", attempt.TaskTitle),
		ledger.Meta{"task_id": attempt.TaskID, "attempt_id": attempt.ID})
	if err != nil {
		return nil, err
	}

	if err := s.users.IncrementTasksCompleted(ctx, attempt.UserID); err != nil {
		zap.L().Error("failed to bump completed-task counter",
			zap.String("user_id", attempt.UserID),
			zap.Error(err),
		)
	}

	zap.L().Info("attempt completed",
		zap.String("attempt_id", attempt.ID),
		zap.String("user_id", attempt.UserID),
		zap.Int64("reward", attempt.Reward),
	)
	return entry, nil
}

// Abandon voids an in-flight attempt. No reward is granted and the attempt
// cannot be completed afterwards.
func (s *Service) Abandon(attemptID string) error {
	attempt, err := s.attempt(attemptID)
	if err != nil {
		return err
	}
	attempt.cancel()
	s.void(attempt)
	return nil
}

func (s *Service) void(attempt *Attempt) {
	if !attempt.markVoided() {
		return
	}
	close(attempt.done)
	zap.L().Info("attempt voided",
		zap.String("attempt_id", attempt.ID),
		zap.String("user_id", attempt.UserID),
	)
}

func (s *Service) attempt(id string) (*Attempt, error) {
	v, ok := s.attempts.Load(id)
	if !ok {
		return nil, errutil.NotFound("attempt not found", nil)
	}
	return v.(*Attempt), nil
}
