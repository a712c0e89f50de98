package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"earneasy-rewardplane/pkg/errutil"
	"earneasy-rewardplane/services/settings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	settings *settings.Service
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Settings *settings.Service `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		settings: p.Settings,
	}
}

// Login resolves the account for an email/role pair. Banned accounts are
// rejected; an unknown email with the USER role auto-registers, matching the
// product's demo onboarding.
func (s *Service) Login(ctx context.Context, email string, role Role) (*User, error) {
	if !role.Valid() {
		return nil, errutil.BadRequest(fmt.Sprintf("unknown role %q", role), nil)
	}

	if s.settings != nil && s.settings.Maintenance() && role != RoleAdmin {
		return nil, errutil.Unavailable("the app is under maintenance", nil)
	}

	var u User
	err := s.db.WithContext(ctx).Where(&User{Email: email, Role: role}).First(&u).Error
	switch {
	case err == nil:
		if u.IsBanned {
			zap.L().Warn("banned account attempted login", zap.String("user_id", u.ID))
			return nil, errutil.Forbidden("this account has been suspended", nil)
		}
		return &u, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if role != RoleUser {
			return nil, errutil.NotFound("admin account not found", nil)
		}
		return s.Register(ctx, displayName(email), email, RoleUser)
	default:
		return nil, err
	}
}

func (s *Service) Register(ctx context.Context, name, email string, role Role) (*User, error) {
	if email == "" {
		return nil, errutil.BadRequest("email is required", nil)
	}
	if !role.Valid() {
		return nil, errutil.BadRequest(fmt.Sprintf("unknown role %q", role), nil)
	}

	u := &User{
		ID:        s.node.Generate().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		AvatarURL: fmt.Sprintf("https://picsum.photos/100/100?random=%s", email),
	}

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		zap.L().Error("failed to register user", zap.Error(err))
		return nil, err
	}

	zap.L().Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).Where(&User{ID: id}).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("user not found", nil)
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := s.db.WithContext(ctx).Order("joined_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// SetBanned flips a user's ban flag. Banned users cannot log in, complete
// tasks, or request withdrawals.
func (s *Service) SetBanned(ctx context.Context, id string, banned bool) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("is_banned", banned)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("user not found", nil)
	}

	zap.L().Info("user ban state changed", zap.String("user_id", id), zap.Bool("banned", banned))
	return nil
}

// IncrementTasksCompleted is called by the task engine only, as part of a
// successful reward credit.
func (s *Service) IncrementTasksCompleted(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).
		Update("tasks_completed", gorm.Expr("tasks_completed + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("user not found", nil)
	}
	return nil
}

func displayName(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
