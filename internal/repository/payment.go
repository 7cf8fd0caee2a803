package repository

import (
	"context"
	"errors"
	"time"

	"biblio/internal/cache"
	"biblio/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RevenueTotals aggregates payment amounts by settlement state.
type RevenueTotals struct {
	Paid    decimal.Decimal
	Pending decimal.Decimal
}

// MonthlyRevenue is one month of settled revenue.
type MonthlyRevenue struct {
	Month time.Time       `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// PaymentRepository defines persistence operations for payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uint) (*models.Payment, error)
	ListByRequest(ctx context.Context, requestID uint) ([]*models.Payment, error)
	ListByBorrower(ctx context.Context, borrowerID uint, limit, offset int) ([]*models.Payment, error)
	HasLateFee(ctx context.Context, requestID uint) (bool, error)
	UpdateStatus(ctx context.Context, id uint, status models.PaidStatus, referenceNo string) error
	RecordProof(ctx context.Context, id uint, method, referenceNo string) error
	Revenue(ctx context.Context) (RevenueTotals, error)
	MonthlyRevenue(ctx context.Context, months int) ([]MonthlyRevenue, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateReports(ctx)
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Payment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &payment, nil
}

func (r *paymentRepository) ListByRequest(ctx context.Context, requestID uint) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return payments, nil
}

func (r *paymentRepository) ListByBorrower(ctx context.Context, borrowerID uint, limit, offset int) ([]*models.Payment, error) {
	var payments []*models.Payment
	err := r.db.WithContext(ctx).
		Joins("JOIN borrow_requests ON borrow_requests.id = payments.request_id").
		Where("borrow_requests.borrower_id = ?", borrowerID).
		Order("payments.payment_date DESC, payments.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&payments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return payments, nil
}

// HasLateFee reports whether a late-fee payment already exists for the
// request, in any non-failed state. Failed charges do not settle the debt
// but refunds do not reopen it either, so only failed is excluded.
func (r *paymentRepository) HasLateFee(ctx context.Context, requestID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("request_id = ?", requestID).
		Where("type = ?", models.PaymentTypeLateFee).
		Where("paid_status <> ?", models.PaidStatusFailed).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uint, status models.PaidStatus, referenceNo string) error {
	updates := map[string]interface{}{"paid_status": status}
	if referenceNo != "" {
		updates["reference_no"] = referenceNo
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Payment", id)
	}
	cache.InvalidateReports(ctx)
	return nil
}

// RecordProof attaches the payer's method and reference number to a still
// pending payment. It never touches paid_status; settlement stays an admin
// decision.
func (r *paymentRepository) RecordProof(ctx context.Context, id uint, method, referenceNo string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Where("paid_status = ?", models.PaidStatusPending).
		Updates(map[string]interface{}{"method": method, "reference_no": referenceNo})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Payment", id)
	}
	return nil
}

func (r *paymentRepository) Revenue(ctx context.Context) (RevenueTotals, error) {
	var totals RevenueTotals
	row := struct {
		Paid    decimal.Decimal
		Pending decimal.Decimal
	}{}
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select(
			"COALESCE(SUM(CASE WHEN paid_status = ? THEN amount ELSE 0 END), 0) as paid, "+
				"COALESCE(SUM(CASE WHEN paid_status = ? THEN amount ELSE 0 END), 0) as pending",
			models.PaidStatusPaid, models.PaidStatusPending,
		).
		Scan(&row).Error
	if err != nil {
		return totals, models.NewInternalError(err)
	}
	totals.Paid = row.Paid
	totals.Pending = row.Pending
	return totals, nil
}

// MonthlyRevenue returns settled revenue grouped by calendar month for the
// trailing window, oldest first. Months with no payments are omitted.
func (r *paymentRepository) MonthlyRevenue(ctx context.Context, months int) ([]MonthlyRevenue, error) {
	if months <= 0 {
		months = 12
	}
	since := time.Now().UTC().AddDate(0, -months+1, 0)
	since = time.Date(since.Year(), since.Month(), 1, 0, 0, 0, 0, time.UTC)

	var buckets []MonthlyRevenue
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("date_trunc('month', payment_date) as month, COALESCE(SUM(amount), 0) as total").
		Where("paid_status = ?", models.PaidStatusPaid).
		Where("payment_date >= ?", since).
		Group("date_trunc('month', payment_date)").
		Order("month ASC").
		Scan(&buckets).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return buckets, nil
}
