package task

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"earneasy-rewardplane/pkg/errutil"
	"earneasy-rewardplane/services/adnet"
	"earneasy-rewardplane/services/consent"
	"earneasy-rewardplane/services/ledger"
	"earneasy-rewardplane/services/settings"
	"earneasy-rewardplane/services/testutil"
	"earneasy-rewardplane/services/user"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type harness struct {
	svc      *Service
	ledger   *ledger.Service
	users    *user.Service
	settings *settings.Service
	orch     *adnet.Orchestrator
	ticks    chan time.Time
}

func newHarness(t *testing.T, initFn adnet.InitFunc, surface adnet.RewardedSurface) *harness {
	t.Helper()

	db := testutil.NewTestDB(t, &user.User{}, &ledger.Account{}, &ledger.Entry{}, &Task{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	if initFn == nil {
		initFn = func(ctx context.Context, p adnet.Provider, cfg adnet.NetworkConfig) error {
			return nil
		}
	}
	if surface == nil {
		surface = adnet.NewSimulatedSurface()
	}

	ledgerSvc := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	userSvc := user.NewService(user.ServiceParams{DB: db, Node: node})
	orch := adnet.NewOrchestrator(adnet.OrchestratorParams{Init: initFn})
	settingsSvc := settings.NewService(settings.ServiceParams{
		Gate:         consent.NewGate(),
		Orchestrator: orch,
	})

	h := &harness{
		ledger:   ledgerSvc,
		users:    userSvc,
		settings: settingsSvc,
		orch:     orch,
		ticks:    make(chan time.Time),
	}

	h.svc = NewService(ServiceParams{
		DB:       db,
		Node:     node,
		Ledger:   ledgerSvc,
		Users:    userSvc,
		Settings: settingsSvc,
		Orch:     orch,
		Selector: adnet.NewSelectorWithSource(rand.NewSource(1)),
		Surface:  surface,
	})
	h.svc.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return h.ticks, func() {}
	}
	return h
}

func (h *harness) registerUser(t *testing.T) *user.User {
	t.Helper()
	u, err := h.users.Register(context.Background(), "Tester", "tester@example.com", user.RoleUser)
	require.NoError(t, err)
	return u
}

func (h *harness) createTask(t *testing.T, typ Type, reward int64, duration int) *Task {
	t.Helper()
	task, err := h.svc.CreateTask(context.Background(), UpsertTask{
		Title:           "Demo Task",
		Type:            typ,
		Reward:          reward,
		DurationSeconds: duration,
	})
	require.NoError(t, err)
	return task
}

// drive feeds ticks into the injected ticker until the attempt resolves.
func (h *harness) drive(t *testing.T, attempt *Attempt) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case <-attempt.Done():
			return
		case h.ticks <- time.Time{}:
		case <-timeout:
			t.Fatal("attempt never resolved")
		}
	}
}

func TestTimerTaskCompletes(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	u := h.registerUser(t)
	task := h.createTask(t, TypeWebsite, 500, 3)

	attempt, err := h.svc.Start(ctx, u.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, ModeTimer, attempt.Mode)

	h.drive(t, attempt)
	require.True(t, attempt.Completed())

	account, err := h.ledger.Balance(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), account.Balance)

	entries, err := h.ledger.Entries(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Task Completed: Demo Task", entries[0].Description)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Metadata, &meta))
	require.Equal(t, task.ID, meta["task_id"])
	require.Equal(t, attempt.ID, meta["attempt_id"])

	got, err := h.users.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.TasksCompleted)
}

func TestTimerSuspendsWhileHidden(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	u := h.registerUser(t)
	task := h.createTask(t, TypeStream, 200, 2)

	attempt, err := h.svc.Start(ctx, u.ID, task.ID)
	require.NoError(t, err)
	require.NoError(t, h.svc.SetVisibility(attempt.ID, false))

	for i := 0; i < 5; i++ {
		h.ticks <- time.Time{}
	}
	require.False(t, attempt.Completed())

	require.NoError(t, h.svc.SetVisibility(attempt.ID, true))
	h.drive(t, attempt)
	require.True(t, attempt.Completed())

	account, err := h.ledger.Balance(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(200), account.Balance)
}

func TestAbandonVoidsAttempt(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	u := h.registerUser(t)
	task := h.createTask(t, TypeWebsite, 500, 30)

	attempt, err := h.svc.Start(ctx, u.ID, task.ID)
	require.NoError(t, err)

	require.NoError(t, h.svc.Abandon(attempt.ID))
	select {
	case <-attempt.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("attempt never resolved")
	}
	require.True(t, attempt.Voided())

	account, err := h.ledger.Balance(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), account.Balance)

	_, err = h.svc.Complete(ctx, attempt.ID)
	require.Error(t, err)
	require.Equal(t, errutil.StatusConflict, errutil.StatusOf(err))
}

func TestCompleteIsIdempotent(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	u := h.registerUser(t)
	task := h.createTask(t, TypeWebsite, 500, 30)

	attempt, err := h.svc.Start(ctx, u.ID, task.ID)
	require.NoError(t, err)

	entry, err := h.svc.Complete(ctx, attempt.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)

	entry, err = h.svc.Complete(ctx, attempt.ID)
	require.NoError(t, err)
	require.Nil(t, entry)

	account, err := h.ledger.Balance(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), account.Balance)

	got, err := h.users.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.TasksCompleted)
}

func TestStartUnknownUser(t *testing.T) {
	h := newHarness(t, nil, nil)
	task := h.createTask(t, TypeWebsite, 500, 30)

	_, err := h.svc.Start(context.Background(), "ghost", task.ID)
	require.Error(t, err)
	require.Equal(t, errutil.StatusUnauthorized, errutil.StatusOf(err))
}

func TestStartUnknownTask(t *testing.T) {
	h := newHarness(t, nil, nil)
	u := h.registerUser(t)

	_, err := h.svc.Start(context.Background(), u.ID, "missing")
	require.Error(t, err)
	require.Equal(t, errutil.StatusNotFound, errutil.StatusOf(err))
}

func TestStartInactiveTask(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	u := h.registerUser(t)

	inactive := false
	task, err := h.svc.CreateTask(ctx, UpsertTask{
		Title:           "Retired Task",
		Type:            TypeWebsite,
		Reward:          500,
		DurationSeconds: 30,
		IsActive:        &inactive,
	})
	require.NoError(t, err)

	stored, err := h.svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)

	_, err = h.svc.Start(ctx, u.ID, task.ID)
	require.Error(t, err)
	require.Equal(t, errutil.StatusUnprocessableEntity, errutil.StatusOf(err))
}

func TestCompleteAfterTaskDeleted(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	u := h.registerUser(t)
	task := h.createTask(t, TypeWebsite, 500, 30)

	attempt, err := h.svc.Start(ctx, u.ID, task.ID)
	require.NoError(t, err)

	require.NoError(t, h.svc.DeleteTask(ctx, task.ID))

	_, err = h.svc.Complete(ctx, attempt.ID)
	require.Error(t, err)
	require.Equal(t, errutil.StatusNotFound, errutil.StatusOf(err))

	select {
	case <-attempt.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("attempt never resolved")
	}
	require.True(t, attempt.Voided())
	require.False(t, attempt.Completed())

	account, err := h.ledger.Balance(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), account.Balance)

	got, err := h.users.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), got.TasksCompleted)
}

func TestStartBannedUser(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	u := h.registerUser(t)
	task := h.createTask(t, TypeWebsite, 500, 30)

	require.NoError(t, h.users.SetBanned(ctx, u.ID, true))

	_, err := h.svc.Start(ctx, u.ID, task.ID)
	require.Error(t, err)
	require.Equal(t, errutil.StatusForbidden, errutil.StatusOf(err))
}

func TestAdTaskFallsBackToTimerWhenNoProviderReady(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()
	u := h.registerUser(t)
	task := h.createTask(t, TypeVideo, 300, 2)

	// No initialization has run, so no provider is ready.
	attempt, err := h.svc.Start(ctx, u.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, ModeTimer, attempt.Mode)

	h.drive(t, attempt)
	require.True(t, attempt.Completed())
}

func TestStartRefusedWhileProvidersInitializing(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	h := newHarness(t, func(ctx context.Context, p adnet.Provider, cfg adnet.NetworkConfig) error {
		started <- struct{}{}
		<-release
		return nil
	}, nil)
	defer close(release)

	ctx := context.Background()
	u := h.registerUser(t)
	task := h.createTask(t, TypeVideo, 300, 5)

	initDone := make(chan struct{})
	go func() {
		defer close(initDone)
		_, _ = h.orch.Initialize(ctx, h.settings.Get().InitConfig())
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("initialization never started")
		}
	}

	_, err := h.svc.Start(ctx, u.ID, task.ID)
	require.Error(t, err)
	require.Equal(t, errutil.StatusServiceUnavailable, errutil.StatusOf(err))

	release <- struct{}{}
	release <- struct{}{}
	select {
	case <-initDone:
	case <-time.After(2 * time.Second):
		t.Fatal("initialization never finished")
	}
}

type recordingSurface struct {
	provider adnet.Provider
	required time.Duration
	reward   bool
}

func (s *recordingSurface) Show(ctx context.Context, p adnet.Provider, required time.Duration, onReward, onClose func()) error {
	s.provider = p
	s.required = required
	if s.reward {
		onReward()
	}
	onClose()
	return nil
}

func TestAdTaskCompletesViaRewardCallback(t *testing.T) {
	surface := &recordingSurface{reward: true}
	h := newHarness(t, nil, surface)
	ctx := context.Background()
	u := h.registerUser(t)
	task := h.createTask(t, TypeVideo, 300, 5)

	snap, err := h.settings.SetConsent(ctx, true)
	require.NoError(t, err)
	require.True(t, snap.AnyReady())

	attempt, err := h.svc.Start(ctx, u.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, ModeAd, attempt.Mode)
	require.NotEmpty(t, attempt.Provider)

	select {
	case <-attempt.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("attempt never resolved")
	}
	require.True(t, attempt.Completed())
	require.Equal(t, attempt.Provider, surface.provider)
	require.Equal(t, 5*time.Second, surface.required)

	account, err := h.ledger.Balance(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(300), account.Balance)
}

func TestAdDismissedWithoutRewardVoids(t *testing.T) {
	surface := &recordingSurface{reward: false}
	h := newHarness(t, nil, surface)
	ctx := context.Background()
	u := h.registerUser(t)
	task := h.createTask(t, TypeVideo, 300, 5)

	_, err := h.settings.SetConsent(ctx, true)
	require.NoError(t, err)

	attempt, err := h.svc.Start(ctx, u.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, ModeAd, attempt.Mode)

	select {
	case <-attempt.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("attempt never resolved")
	}
	require.True(t, attempt.Voided())

	account, err := h.ledger.Balance(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), account.Balance)
}

func TestTaskCRUD(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	created := h.createTask(t, TypeWebsite, 500, 30)

	inactive := false
	updated, err := h.svc.UpdateTask(ctx, created.ID, UpsertTask{
		Title:           "Renamed Task",
		Type:            TypeStream,
		Reward:          750,
		DurationSeconds: 45,
		IsActive:        &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed Task", updated.Title)
	require.Equal(t, TypeStream, updated.Type)
	require.False(t, updated.IsActive)

	active, err := h.svc.ListTasks(ctx, true)
	require.NoError(t, err)
	require.Empty(t, active)

	all, err := h.svc.ListTasks(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, h.svc.DeleteTask(ctx, created.ID))
	_, err = h.svc.GetTask(ctx, created.ID)
	require.Error(t, err)
	require.Equal(t, errutil.StatusNotFound, errutil.StatusOf(err))

	err = h.svc.DeleteTask(ctx, created.ID)
	require.Error(t, err)
	require.Equal(t, errutil.StatusNotFound, errutil.StatusOf(err))
}

func TestCreateTaskValidation(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	_, err := h.svc.CreateTask(ctx, UpsertTask{
		Title:           "Bad Task",
		Type:            Type("LOTTERY"),
		Reward:          500,
		DurationSeconds: 30,
	})
	require.Error(t, err)
	require.Equal(t, errutil.StatusBadRequest, errutil.StatusOf(err))

	_, err = h.svc.CreateTask(ctx, UpsertTask{
		Title:           "Bad Task",
		Type:            TypeWebsite,
		Reward:          0,
		DurationSeconds: 30,
	})
	require.Error(t, err)
	require.Equal(t, errutil.StatusBadRequest, errutil.StatusOf(err))
}
