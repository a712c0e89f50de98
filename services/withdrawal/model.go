package withdrawal

import "time"

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Method string

const (
	MethodBkash  Method = "bKash"
	MethodNagad  Method = "Nagad"
	MethodPaypal Method = "PayPal"
	MethodPaytm  Method = "Paytm"
	MethodBank   Method = "Bank Transfer"
)

func (m Method) Valid() bool {
	switch m {
	case MethodBkash, MethodNagad, MethodPaypal, MethodPaytm, MethodBank:
		return true
	default:
		return false
	}
}

// Request is a payout claim. Funds are reserved at creation time; PENDING is
// the only status transitions are allowed from.
type Request struct {
	ID             string    `gorm:"column:id;primaryKey" json:"id"`
	UserID         string    `gorm:"column:user_id;index;not null" json:"user_id"`
	UserName       string    `gorm:"column:user_name" json:"user_name"`
	Amount         int64     `gorm:"column:amount;not null" json:"amount"`
	Method         Method    `gorm:"column:method;type:varchar(20)" json:"method"`
	AccountDetails string    `gorm:"column:account_details" json:"account_details"`
	Status         Status    `gorm:"column:status;type:varchar(10);default:'PENDING'" json:"status"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}
