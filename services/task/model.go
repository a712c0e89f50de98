package task

import (
	"context"
	"sync"
	"time"

	"earneasy-rewardplane/services/adnet"
)

type Type string

const (
	TypeVideo     Type = "VIDEO"
	TypeAds       Type = "ADS"
	TypeWebsite   Type = "WEBSITE"
	TypeStream    Type = "STREAM"
	TypeOfferwall Type = "OFFERWALL"
)

func (t Type) Valid() bool {
	switch t {
	case TypeVideo, TypeAds, TypeWebsite, TypeStream, TypeOfferwall:
		return true
	default:
		return false
	}
}

// RequiresAd reports whether completing this task type goes through a
// rewarded ad when one is available. Other types always use the visible-time
// countdown.
func (t Type) RequiresAd() bool {
	return t == TypeVideo || t == TypeAds
}

// Task is the administrator-defined catalog entry. Reward is in minor units.
type Task struct {
	ID              string    `gorm:"column:id;primaryKey" json:"id"`
	Title           string    `gorm:"column:title;not null" json:"title"`
	Description     string    `gorm:"column:description" json:"description"`
	Type            Type      `gorm:"column:type;type:varchar(10);not null" json:"type"`
	Reward          int64     `gorm:"column:reward;not null" json:"reward"`
	DurationSeconds int       `gorm:"column:duration_seconds;not null" json:"duration_seconds"`
	URL             string    `gorm:"column:url" json:"url,omitempty"`
	Thumbnail       string    `gorm:"column:thumbnail" json:"thumbnail,omitempty"`
	IsActive        bool      `gorm:"column:is_active" json:"is_active"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// Mode is how an attempt earns its reward.
type Mode string

const (
	ModeAd    Mode = "AD"
	ModeTimer Mode = "TIMER"
)

// Attempt is one in-flight run of a task by a user. Attempts live in memory
// for the process lifetime; an attempt resolves exactly once, either to
// completed or to voided.
type Attempt struct {
	ID        string         `json:"id"`
	TaskID    string         `json:"task_id"`
	UserID    string         `json:"user_id"`
	TaskTitle string         `json:"task_title"`
	Reward    int64          `json:"reward"`
	Mode      Mode           `json:"mode"`
	Provider  adnet.Provider `json:"provider,omitempty"`
	StartedAt time.Time      `json:"started_at"`

	countdown *Countdown
	cancel    context.CancelFunc
	done      chan struct{}

	mu        sync.Mutex
	completed bool
	voided    bool
}

// markCompleted resolves the attempt to completed. It returns false if the
// attempt was already resolved, which makes completion idempotent and keeps a
// racing timer from double-crediting.
func (a *Attempt) markCompleted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.completed || a.voided {
		return false
	}
	a.completed = true
	return true
}

func (a *Attempt) markVoided() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.completed || a.voided {
		return false
	}
	a.voided = true
	return true
}

func (a *Attempt) Completed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.completed
}

func (a *Attempt) Voided() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.voided
}

// Done is closed when the attempt has resolved either way.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}
