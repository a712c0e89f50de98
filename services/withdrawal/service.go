package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"earneasy-rewardplane/pkg/errutil"
	"earneasy-rewardplane/services/ledger"
	"earneasy-rewardplane/services/settings"
	"earneasy-rewardplane/services/user"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service runs the withdrawal state machine. Funds are debited from the
// available balance at request time, so a pending request can never be spent
// twice; approval settles the reservation and rejection refunds it.
type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	ledger   *ledger.Service
	users    *user.Service
	settings *settings.Service
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Ledger   *ledger.Service
	Users    *user.Service
	Settings *settings.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		ledger:   p.Ledger,
		users:    p.Users,
		settings: p.Settings,
	}
}

type CreateRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	Amount         int64  `json:"amount" binding:"required"`
	Method         Method `json:"method" binding:"required"`
	AccountDetails string `json:"account_details" binding:"required"`
}

// Create validates the request, reserves the amount on the ledger and stores
// a PENDING row. If the row insert fails after the reservation succeeded, the
// reservation is refunded so no money is stranded in pending.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Request, error) {
	span := trace.SpanFromContext(ctx)
	fields := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("user_id", req.UserID),
		zap.Int64("amount", req.Amount),
	}

	u, err := s.users.Get(ctx, req.UserID)
	if err != nil {
		if errutil.StatusOf(err) == errutil.StatusNotFound {
			return nil, errutil.Unauthorized("unknown user", nil)
		}
		return nil, err
	}
	if u.IsBanned {
		return nil, errutil.Forbidden("this account has been suspended", nil)
	}

	if !req.Method.Valid() {
		return nil, errutil.BadRequest(fmt.Sprintf("unknown payment method %q", req.Method), nil)
	}

	if min := s.settings.Get().MinWithdraw; req.Amount < min {
		return nil, errutil.UnprocessableEntity("below minimum withdrawal", nil,
			errutil.WithDetails(errutil.Detail{
				Field:   "amount",
				Message: fmt.Sprintf("amount must be at least %d", min),
			}),
		)
	}

	id := s.node.Generate().String()
	if err := s.ledger.Reserve(ctx, req.UserID, req.Amount, "Withdrawal Request",
		ledger.Meta{"withdrawal_id": id, "method": string(req.Method)}); err != nil {
		zap.L().With(fields...).Warn("withdrawal reservation refused", zap.Error(err))
		return nil, err
	}

	w := &Request{
		ID:             id,
		UserID:         req.UserID,
		UserName:       u.Name,
		Amount:         req.Amount,
		Method:         req.Method,
		AccountDetails: req.AccountDetails,
		Status:         StatusPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		zap.L().With(fields...).Error("failed to store withdrawal request", zap.Error(err))
		if rerr := s.ledger.Refund(ctx, req.UserID, req.Amount, "Withdrawal Request Failed",
			ledger.Meta{"withdrawal_id": id}); rerr != nil {
			zap.L().With(fields...).Error("failed to refund reservation", zap.Error(rerr))
		}
		return nil, err
	}

	zap.L().With(fields...).Info("withdrawal requested", zap.String("withdrawal_id", w.ID))
	return w, nil
}

// Approve moves a PENDING request to APPROVED and settles the reservation.
func (s *Service) Approve(ctx context.Context, id string) (*Request, error) {
	w, err := s.transition(ctx, id, StatusApproved)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Settle(ctx, w.UserID, w.Amount); err != nil {
		zap.L().Error("failed to settle approved withdrawal",
			zap.String("withdrawal_id", w.ID),
			zap.Error(err),
		)
		return nil, err
	}
	return w, nil
}

// Reject moves a PENDING request to REJECTED and refunds the reservation back
// to the user's available balance.
func (s *Service) Reject(ctx context.Context, id string) (*Request, error) {
	w, err := s.transition(ctx, id, StatusRejected)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Refund(ctx, w.UserID, w.Amount, "Withdrawal Refund",
		ledger.Meta{"withdrawal_id": w.ID}); err != nil {
		zap.L().Error("failed to refund rejected withdrawal",
			zap.String("withdrawal_id", w.ID),
			zap.Error(err),
		)
		return nil, err
	}
	return w, nil
}

// transition flips the status inside its own transaction so two concurrent
// resolutions of the same request cannot both win. Ledger follow-up happens
// outside the transaction.
func (s *Service) transition(ctx context.Context, id string, next Status) (*Request, error) {
	var w Request
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&Request{ID: id}).First(&w).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.NotFound("withdrawal request not found", nil)
			}
			return err
		}

		if w.Status.Terminal() {
			zap.L().Warn("rejected withdrawal transition from terminal state",
				zap.String("withdrawal_id", w.ID),
				zap.String("status", string(w.Status)),
				zap.String("requested", string(next)),
			)
			return errutil.Conflict(fmt.Sprintf("withdrawal already %s", w.Status), nil)
		}

		w.Status = next
		w.UpdatedAt = time.Now()
		return tx.Model(&Request{}).Where("id = ?", w.ID).Updates(map[string]any{
			"status":     next,
			"updated_at": w.UpdatedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("withdrawal resolved",
		zap.String("withdrawal_id", w.ID),
		zap.String("status", string(next)),
	)
	return &w, nil
}

func (s *Service) List(ctx context.Context) ([]*Request, error) {
	var requests []*Request
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*Request, error) {
	var requests []*Request
	if err := s.db.WithContext(ctx).
		Where(&Request{UserID: userID}).
		Order("id DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}
