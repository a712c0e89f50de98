package user

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"earneasy-rewardplane/pkg/errutil"
	"earneasy-rewardplane/services/adnet"
	"earneasy-rewardplane/services/consent"
	"earneasy-rewardplane/services/settings"
	"earneasy-rewardplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newService(t *testing.T, s *settings.Service) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &User{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(ServiceParams{DB: db, Node: node, Settings: s})
}

func newSettings(t *testing.T) *settings.Service {
	t.Helper()
	return settings.NewService(settings.ServiceParams{
		Gate:         consent.NewGate(),
		Orchestrator: adnet.NewOrchestrator(adnet.OrchestratorParams{}),
	})
}

func TestLoginAutoRegistersUnknownUser(t *testing.T) {
	svc := newService(t, nil)

	u, err := svc.Login(context.Background(), "alice@example.com", RoleUser)
	require.NoError(t, err)
	require.Equal(t, "alice", u.Name)
	require.Equal(t, RoleUser, u.Role)
	require.False(t, u.IsBanned)
	require.Zero(t, u.TasksCompleted)
}

func TestLoginReturnsExistingUser(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	created, err := svc.Register(ctx, "Alice", "alice@example.com", RoleUser)
	require.NoError(t, err)

	u, err := svc.Login(ctx, "alice@example.com", RoleUser)
	require.NoError(t, err)
	require.Equal(t, created.ID, u.ID)
	require.Equal(t, "Alice", u.Name)
}

func TestLoginUnknownAdmin(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Login(context.Background(), "root@example.com", RoleAdmin)
	require.Error(t, err)
	require.Equal(t, errutil.StatusNotFound, errutil.StatusOf(err))
}

func TestLoginBannedUser(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Alice", "alice@example.com", RoleUser)
	require.NoError(t, err)
	require.NoError(t, svc.SetBanned(ctx, u.ID, true))

	_, err = svc.Login(ctx, "alice@example.com", RoleUser)
	require.Error(t, err)
	require.Equal(t, errutil.StatusForbidden, errutil.StatusOf(err))
}

func TestLoginInvalidRole(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Login(context.Background(), "alice@example.com", Role("SUPERUSER"))
	require.Error(t, err)
	require.Equal(t, errutil.StatusBadRequest, errutil.StatusOf(err))
}

func TestMaintenanceBlocksUsersNotAdmins(t *testing.T) {
	s := newSettings(t)
	svc := newService(t, s)
	ctx := context.Background()

	admin, err := svc.Register(ctx, "Root", "root@example.com", RoleAdmin)
	require.NoError(t, err)

	next := settings.Defaults()
	next.MaintenanceMode = true
	_, err = s.Update(ctx, next)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice@example.com", RoleUser)
	require.Error(t, err)
	require.Equal(t, errutil.StatusServiceUnavailable, errutil.StatusOf(err))

	u, err := svc.Login(ctx, "root@example.com", RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, admin.ID, u.ID)
}

func TestSetBannedUnknownUser(t *testing.T) {
	svc := newService(t, nil)

	err := svc.SetBanned(context.Background(), "ghost", true)
	require.Error(t, err)
	require.Equal(t, errutil.StatusNotFound, errutil.StatusOf(err))
}

func TestIncrementTasksCompleted(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Alice", "alice@example.com", RoleUser)
	require.NoError(t, err)

	require.NoError(t, svc.IncrementTasksCompleted(ctx, u.ID))
	require.NoError(t, svc.IncrementTasksCompleted(ctx, u.ID))

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), got.TasksCompleted)
}
