package models

import "time"

// ApprovalStatus is the persisted decision state of a borrow request.
type ApprovalStatus string

const (
	// ApprovalStatusPending indicates the request is awaiting review.
	ApprovalStatusPending ApprovalStatus = "pending"
	// ApprovalStatusApproved indicates a librarian approved the request.
	ApprovalStatusApproved ApprovalStatus = "approved"
	// ApprovalStatusRejected indicates the request was denied.
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// EffectiveStatus is the derived lifecycle state of a borrow request at a
// given instant. It is never persisted: the overdue case in particular is a
// pure function of the due date and the clock.
type EffectiveStatus string

const (
	StatusPending  EffectiveStatus = "pending"
	StatusActive   EffectiveStatus = "active"
	StatusOverdue  EffectiveStatus = "overdue"
	StatusRejected EffectiveStatus = "rejected"
	StatusReturned EffectiveStatus = "returned"
)

// BorrowRequest is one borrower's claim on one book, from submission
// through return. ApprovalStatus and the three date fields are owned by
// the lifecycle engine; the reconciler only appends flag notes.
type BorrowRequest struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	BorrowerID     uint           `gorm:"not null;index" json:"borrower_id"`
	Borrower       *Borrower      `gorm:"foreignKey:BorrowerID" json:"borrower,omitempty"`
	BookID         uint           `gorm:"not null;index" json:"book_id"`
	Book           *Book          `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Quantity       int            `gorm:"not null;default:1" json:"quantity"`
	RequestDate    time.Time      `gorm:"not null" json:"request_date"`
	BorrowDate     *time.Time     `json:"borrow_date"`
	DueDate        *time.Time     `json:"due_date"`
	ReturnDate     *time.Time     `json:"return_date"`
	ApprovalStatus ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"approval_status"`
	Remarks        string         `gorm:"type:text" json:"remarks"`
	Flagged        bool           `gorm:"not null;default:false;index" json:"flagged"`
	FlagReason     string         `gorm:"type:text" json:"flag_reason,omitempty"`
	Version        int            `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// DeriveStatus computes the effective lifecycle state of a request at the
// given instant. It is the single source of truth for status everywhere a
// status is shown or counted, and never mutates its argument.
func DeriveStatus(r *BorrowRequest, now time.Time) EffectiveStatus {
	switch r.ApprovalStatus {
	case ApprovalStatusRejected:
		return StatusRejected
	case ApprovalStatusPending:
		return StatusPending
	}

	if r.ReturnDate != nil {
		return StatusReturned
	}
	if r.DueDate != nil && now.After(*r.DueDate) {
		return StatusOverdue
	}
	return StatusActive
}

// Terminal reports whether the request can no longer transition.
func (r *BorrowRequest) Terminal() bool {
	return r.ApprovalStatus == ApprovalStatusRejected || r.ReturnDate != nil
}

// DatesConsistent verifies the date-ordering invariants: due after borrow,
// return not before borrow, and due set iff approved.
func (r *BorrowRequest) DatesConsistent() bool {
	if (r.DueDate != nil) != (r.ApprovalStatus == ApprovalStatusApproved) {
		return false
	}
	if r.BorrowDate != nil && r.DueDate != nil && !r.DueDate.After(*r.BorrowDate) {
		return false
	}
	if r.BorrowDate != nil && r.ReturnDate != nil && r.ReturnDate.Before(*r.BorrowDate) {
		return false
	}
	return true
}
