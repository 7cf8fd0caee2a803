package models

import "time"

// AuditAction identifies the lifecycle transition an entry records.
type AuditAction string

// Audit actions recorded by the lifecycle engine.
const (
	AuditActionSubmit  AuditAction = "submit"
	AuditActionApprove AuditAction = "approve"
	AuditActionReject  AuditAction = "reject"
	AuditActionReturn  AuditAction = "return"
)

// AuditEntry is one line of the submission audit trail. The lifecycle
// engine appends an entry for every transition it performs; the reconciler
// reads the trail to corroborate pending records (a pending request with
// no submit entry is treated as orphaned and flagged for review).
type AuditEntry struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	EntryID   string      `gorm:"size:36;not null;uniqueIndex" json:"entry_id"`
	RequestID uint        `gorm:"not null;index" json:"request_id"`
	ActorID   uint        `gorm:"index" json:"actor_id"`
	Action    AuditAction `gorm:"size:20;not null;index" json:"action"`
	Note      string      `gorm:"type:text" json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
