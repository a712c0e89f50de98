package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"earneasy-rewardplane/pkg/errutil"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const genesisHash = "GENESIS"

// Service owns balances and the append-only entry log. All mutations for one
// user are serialised through a per-user mutex on top of a transaction, so
// concurrent credits and withdrawal transitions never interleave partially.
type Service struct {
	db    *gorm.DB
	node  *snowflake.Node
	locks sync.Map // user id -> *sync.Mutex
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
	}
}

func (s *Service) lockUser(userID string) func() {
	mu, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Credit increments the user's balance and appends a CREDIT entry. A
// non-positive amount is a caller bug, not recoverable input, and is
// rejected before any state is touched.
func (s *Service) Credit(ctx context.Context, userID string, amount int64, description string, meta ...Meta) (*Entry, error) {
	span := trace.SpanFromContext(ctx)
	fields := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("user_id", userID),
		zap.Int64("amount", amount),
	}

	if amount <= 0 {
		return nil, errutil.BadRequest("credit amount must be > 0", nil)
	}

	defer s.lockUser(userID)()

	var entry *Entry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.ensureAccount(tx, userID)
		if err != nil {
			return err
		}

		entry, err = s.appendEntry(tx, userID, EntryCredit, amount, description, mergeMeta(meta))
		if err != nil {
			return err
		}

		return tx.Model(&Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now(),
		}).Error
	})
	if err != nil {
		zap.L().With(fields...).Error("failed to credit user", zap.Error(err))
		return nil, err
	}

	zap.L().With(fields...).Info("credit applied", zap.String("entry_id", entry.ID))
	return entry, nil
}

// Reserve moves amount from the available balance to the pending balance and
// appends a DEBIT entry. This is the only way the available balance
// decreases; it backs withdrawal-request creation.
func (s *Service) Reserve(ctx context.Context, userID string, amount int64, description string, meta ...Meta) error {
	defer s.lockUser(userID)()

	return s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.ensureAccount(tx, userID)
		if err != nil {
			return err
		}

		if amount <= 0 || amount > account.Balance {
			return errutil.UnprocessableEntity("insufficient balance", nil)
		}

		if _, err := s.appendEntry(tx, userID, EntryDebit, amount, description, mergeMeta(meta)); err != nil {
			return err
		}

		return tx.Model(&Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"balance":         gorm.Expr("balance - ?", amount),
			"pending_balance": gorm.Expr("pending_balance + ?", amount),
			"updated_at":      time.Now(),
		}).Error
	})
}

// Settle clears a reserved amount after a withdrawal is approved. The
// available balance was already reduced at reservation time and is not
// touched again.
func (s *Service) Settle(ctx context.Context, userID string, amount int64) error {
	defer s.lockUser(userID)()

	return s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.ensureAccount(tx, userID)
		if err != nil {
			return err
		}

		if amount <= 0 || amount > account.PendingBalance {
			return errutil.Internal("pending balance underflow", nil)
		}

		return tx.Model(&Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"pending_balance": gorm.Expr("pending_balance - ?", amount),
			"updated_at":      time.Now(),
		}).Error
	})
}

// Refund returns a reserved amount to the available balance after a
// withdrawal is rejected and appends a CREDIT entry recording the refund.
func (s *Service) Refund(ctx context.Context, userID string, amount int64, description string, meta ...Meta) error {
	defer s.lockUser(userID)()

	return s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.ensureAccount(tx, userID)
		if err != nil {
			return err
		}

		if amount <= 0 || amount > account.PendingBalance {
			return errutil.Internal("pending balance underflow", nil)
		}

		if _, err := s.appendEntry(tx, userID, EntryCredit, amount, description, mergeMeta(meta)); err != nil {
			return err
		}

		return tx.Model(&Account{}).Where("id = ?", account.ID).Updates(map[string]any{
			"balance":         gorm.Expr("balance + ?", amount),
			"pending_balance": gorm.Expr("pending_balance - ?", amount),
			"updated_at":      time.Now(),
		}).Error
	})
}

func (s *Service) Balance(ctx context.Context, userID string) (*Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Where(&Account{UserID: userID}).First(&account).Error
	switch {
	case err == nil:
		return &account, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Account{UserID: userID}, nil
	default:
		return nil, err
	}
}

// Entries returns the user's ledger entries newest first. Snowflake IDs are
// monotonic, so ID order is creation order.
func (s *Service) Entries(ctx context.Context, userID string) ([]*Entry, error) {
	span := trace.SpanFromContext(ctx)

	var entries []*Entry
	if err := s.db.WithContext(ctx).
		Where(&Entry{UserID: userID}).
		Order("id DESC").
		Find(&entries).Error; err != nil {
		zap.L().Error("failed to list ledger entries",
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	return entries, nil
}

// VerifyChain recomputes the hash chain over the user's entries in creation
// order and reports whether the log is intact.
func (s *Service) VerifyChain(ctx context.Context, userID string) (bool, error) {
	var entries []*Entry
	if err := s.db.WithContext(ctx).
		Where(&Entry{UserID: userID}).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return false, err
	}

	lastHash := genesisHash
	for _, entry := range entries {
		if entry.PreviousHash != lastHash || entry.Hash != entry.GenerateHash() {
			return false, nil
		}
		lastHash = entry.Hash
	}
	return true, nil
}

func (s *Service) ensureAccount(tx *gorm.DB, userID string) (*Account, error) {
	var account Account
	err := tx.Where(&Account{UserID: userID}).First(&account).Error
	switch {
	case err == nil:
		return &account, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		account = Account{
			ID:        s.node.Generate().String(),
			UserID:    userID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := tx.Create(&account).Error; err != nil {
			return nil, err
		}
		return &account, nil
	default:
		return nil, err
	}
}

func (s *Service) appendEntry(tx *gorm.DB, userID string, typ EntryType, amount int64, description string, meta Meta) (*Entry, error) {
	previousHash := genesisHash
	var last Entry
	err := tx.Where(&Entry{UserID: userID}).Order("id DESC").First(&last).Error
	switch {
	case err == nil:
		previousHash = last.Hash
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}

	entry := &Entry{
		ID:           s.node.Generate().String(),
		UserID:       userID,
		Type:         typ,
		Amount:       amount,
		Description:  description,
		PreviousHash: previousHash,
		CreatedAt:    time.Now(),
	}
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return nil, err
		}
		entry.Metadata = datatypes.JSON(raw)
	}
	entry.Hash = entry.GenerateHash()

	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func mergeMeta(meta []Meta) Meta {
	if len(meta) == 0 {
		return nil
	}
	merged := Meta{}
	for _, m := range meta {
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
