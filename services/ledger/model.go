package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type EntryType string

const (
	EntryCredit EntryType = "CREDIT"
	EntryDebit  EntryType = "DEBIT"
)

// Account holds a user's monetary state. Balance and PendingBalance are in
// minor units and only the ledger and the withdrawal state machine mutate
// them.
type Account struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	UserID         string    `gorm:"column:user_id;uniqueIndex;not null" json:"user_id"`
	Balance        int64     `gorm:"column:balance;default:0" json:"balance"`
	PendingBalance int64     `gorm:"column:pending_balance;default:0" json:"pending_balance"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// Meta is free-form context recorded on an entry, such as the task or
// withdrawal request the entry settles.
type Meta map[string]any

// Entry is an append-only ledger record. Entries are hash-chained per user
// and never mutated after creation.
type Entry struct {
	ID           string         `gorm:"column:id;primaryKey" json:"id"`
	UserID       string         `gorm:"column:user_id;index;not null" json:"user_id"`
	Type         EntryType      `gorm:"column:type;type:varchar(10);not null" json:"type"`
	Amount       int64          `gorm:"column:amount;not null" json:"amount"`
	Description  string         `gorm:"column:description" json:"description"`
	PreviousHash string         `gorm:"column:previous_hash" json:"previous_hash"`
	Hash         string         `gorm:"column:hash" json:"hash"`
	Metadata     datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (e *Entry) HashFields() map[string]string {
	return map[string]string{
		"id":            e.ID,
		"user_id":       e.UserID,
		"type":          string(e.Type),
		"amount":        fmt.Sprintf("%d", e.Amount),
		"description":   e.Description,
		"created_at":    e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash": e.PreviousHash,
	}
}

func (e *Entry) GenerateHash() string {
	fields := e.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
