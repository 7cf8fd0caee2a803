package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentType classifies what a payment is for.
type PaymentType string

const (
	PaymentTypeBorrowFee         PaymentType = "borrow_fee"
	PaymentTypeLateFee           PaymentType = "late_fee"
	PaymentTypeDamageFee         PaymentType = "damage_fee"
	PaymentTypeMembershipRenewal PaymentType = "membership_renewal"
)

// PaidStatus is the settlement state of a payment.
type PaidStatus string

const (
	PaidStatusPaid     PaidStatus = "paid"
	PaidStatusPending  PaidStatus = "pending"
	PaidStatusFailed   PaidStatus = "failed"
	PaidStatusRefunded PaidStatus = "refunded"
)

// Payment is one monetary transaction tied to a borrow request. Payments
// are append-only: status changes mutate PaidStatus, never the amount, and
// no payment is ever deleted.
type Payment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	RequestID   uint            `gorm:"not null;index" json:"request_id"`
	Request     *BorrowRequest  `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Method      string          `gorm:"size:40" json:"method"`
	Type        PaymentType     `gorm:"type:varchar(30);not null;index" json:"type"`
	ReferenceNo string          `gorm:"size:64;index" json:"reference_no,omitempty"`
	PaidStatus  PaidStatus      `gorm:"type:varchar(20);not null;default:'pending';index" json:"paid_status"`
	Remarks     string          `gorm:"type:text" json:"remarks"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
