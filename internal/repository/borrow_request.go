// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"biblio/internal/cache"
	"biblio/internal/models"

	"gorm.io/gorm"
)

// BorrowRequestFilter narrows list and sweep queries.
type BorrowRequestFilter struct {
	BorrowerID uint
	Status     models.ApprovalStatus
	Flagged    *bool
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// BorrowRequestRepository defines persistence operations for borrow requests.
type BorrowRequestRepository interface {
	Create(ctx context.Context, req *models.BorrowRequest) error
	GetByID(ctx context.Context, id uint) (*models.BorrowRequest, error)
	List(ctx context.Context, filter BorrowRequestFilter) ([]*models.BorrowRequest, error)
	CountNonTerminalByBorrower(ctx context.Context, borrowerID uint) (int64, error)
	UpdateWithVersion(ctx context.Context, req *models.BorrowRequest) error
	AppendFlag(ctx context.Context, id uint, reason string) error
	ListReturnedLate(ctx context.Context, filter BorrowRequestFilter) ([]*models.BorrowRequest, error)
	ListPending(ctx context.Context, filter BorrowRequestFilter) ([]*models.BorrowRequest, error)
	CountByEffectiveGroup(ctx context.Context) (pending, active, returned, rejected int64, err error)
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
}

type borrowRequestRepository struct {
	db *gorm.DB
}

// NewBorrowRequestRepository creates a new borrow request repository.
func NewBorrowRequestRepository(db *gorm.DB) BorrowRequestRepository {
	return &borrowRequestRepository{db: db}
}

func (r *borrowRequestRepository) Create(ctx context.Context, req *models.BorrowRequest) error {
	if req.Version == 0 {
		req.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateReports(ctx)
	return nil
}

func (r *borrowRequestRepository) GetByID(ctx context.Context, id uint) (*models.BorrowRequest, error) {
	var req models.BorrowRequest
	if err := r.db.WithContext(ctx).
		Preload("Borrower").
		Preload("Book").
		First(&req, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("BorrowRequest", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &req, nil
}

func (r *borrowRequestRepository) List(ctx context.Context, filter BorrowRequestFilter) ([]*models.BorrowRequest, error) {
	var reqs []*models.BorrowRequest
	err := r.applyFilter(r.db.WithContext(ctx), filter).
		Preload("Borrower").
		Preload("Book").
		Order("request_date DESC, id DESC").
		Find(&reqs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

// CountNonTerminalByBorrower counts requests that still hold a slot against
// the borrower limit. Rejected and returned requests release their slot.
func (r *borrowRequestRepository) CountNonTerminalByBorrower(ctx context.Context, borrowerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BorrowRequest{}).
		Where("borrower_id = ?", borrowerID).
		Where("approval_status <> ?", models.ApprovalStatusRejected).
		Where("return_date IS NULL").
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

// UpdateWithVersion persists the mutable fields of req guarded by its loaded
// version. A concurrent writer that bumped the version first wins and this
// call returns ConcurrentModification without touching the row.
func (r *borrowRequestRepository) UpdateWithVersion(ctx context.Context, req *models.BorrowRequest) error {
	expected := req.Version
	res := r.db.WithContext(ctx).
		Model(&models.BorrowRequest{}).
		Where("id = ? AND version = ?", req.ID, expected).
		Updates(map[string]interface{}{
			"approval_status": req.ApprovalStatus,
			"quantity":        req.Quantity,
			"borrow_date":     req.BorrowDate,
			"due_date":        req.DueDate,
			"return_date":     req.ReturnDate,
			"remarks":         req.Remarks,
			"version":         expected + 1,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewConcurrentModificationError(req.ID)
	}
	req.Version = expected + 1
	cache.InvalidateRequest(ctx, req.ID)
	cache.InvalidateReports(ctx)
	return nil
}

// AppendFlag marks a request for human review. Flags are additive and never
// bump the version, so they cannot race a lifecycle transition.
func (r *borrowRequestRepository) AppendFlag(ctx context.Context, id uint, reason string) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE borrow_requests
		 SET flagged = ?,
		     flag_reason = CASE WHEN flag_reason IS NULL OR flag_reason = '' THEN ? ELSE flag_reason || '; ' || ? END
		 WHERE id = ?`,
		true, reason, reason, id,
	)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("BorrowRequest", id)
	}
	cache.InvalidateRequest(ctx, id)
	return nil
}

// ListReturnedLate returns requests whose recorded return happened after the
// due date. The reconciler walks these looking for missing late fees.
func (r *borrowRequestRepository) ListReturnedLate(ctx context.Context, filter BorrowRequestFilter) ([]*models.BorrowRequest, error) {
	var reqs []*models.BorrowRequest
	err := r.applyFilter(r.db.WithContext(ctx), filter).
		Where("return_date IS NOT NULL").
		Where("due_date IS NOT NULL").
		Where("return_date > due_date").
		Order("id ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

// ListPending returns requests still awaiting an approval decision.
func (r *borrowRequestRepository) ListPending(ctx context.Context, filter BorrowRequestFilter) ([]*models.BorrowRequest, error) {
	var reqs []*models.BorrowRequest
	err := r.applyFilter(r.db.WithContext(ctx), filter).
		Where("approval_status = ?", models.ApprovalStatusPending).
		Where("return_date IS NULL").
		Order("id ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return reqs, nil
}

// CountByEffectiveGroup buckets requests by their stored lifecycle columns.
// Overdue is a derived distinction on top of the active group, so callers
// that need it split the active bucket with DeriveStatus.
func (r *borrowRequestRepository) CountByEffectiveGroup(ctx context.Context) (pending, active, returned, rejected int64, err error) {
	db := r.db.WithContext(ctx).Model(&models.BorrowRequest{})

	if err = db.Session(&gorm.Session{}).
		Where("approval_status = ? AND return_date IS NULL", models.ApprovalStatusPending).
		Count(&pending).Error; err != nil {
		return 0, 0, 0, 0, models.NewInternalError(err)
	}
	if err = db.Session(&gorm.Session{}).
		Where("approval_status = ? AND return_date IS NULL", models.ApprovalStatusApproved).
		Count(&active).Error; err != nil {
		return 0, 0, 0, 0, models.NewInternalError(err)
	}
	if err = db.Session(&gorm.Session{}).
		Where("return_date IS NOT NULL").
		Count(&returned).Error; err != nil {
		return 0, 0, 0, 0, models.NewInternalError(err)
	}
	if err = db.Session(&gorm.Session{}).
		Where("approval_status = ?", models.ApprovalStatusRejected).
		Count(&rejected).Error; err != nil {
		return 0, 0, 0, 0, models.NewInternalError(err)
	}
	return pending, active, returned, rejected, nil
}

// CountOverdue counts approved, unreturned requests whose due date has
// passed as of now. This mirrors the derived overdue status in SQL.
func (r *borrowRequestRepository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BorrowRequest{}).
		Where("approval_status = ?", models.ApprovalStatusApproved).
		Where("return_date IS NULL").
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *borrowRequestRepository) applyFilter(db *gorm.DB, filter BorrowRequestFilter) *gorm.DB {
	if filter.BorrowerID != 0 {
		db = db.Where("borrower_id = ?", filter.BorrowerID)
	}
	if filter.Status != "" {
		db = db.Where("approval_status = ?", filter.Status)
	}
	if filter.Flagged != nil {
		db = db.Where("flagged = ?", *filter.Flagged)
	}
	if filter.From != nil {
		db = db.Where("request_date >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("request_date <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		db = db.Offset(filter.Offset)
	}
	return db
}
