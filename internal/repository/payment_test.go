package repository

import (
	"context"
	"testing"
	"time"

	"biblio/internal/models"
	"biblio/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentHasLateFee(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	payments := NewPaymentRepository(db)
	requests := NewBorrowRequestRepository(db)
	borrowerID, bookID := seedBorrowerAndBook(t, db)

	now := time.Now().UTC()
	req := &models.BorrowRequest{
		BorrowerID: borrowerID, BookID: bookID, Quantity: 1, RequestDate: now,
		ApprovalStatus: models.ApprovalStatusApproved,
		BorrowDate:     datePtr(now.AddDate(0, 0, -20)),
		DueDate:        datePtr(now.AddDate(0, 0, -6)),
		ReturnDate:     datePtr(now),
	}
	require.NoError(t, requests.Create(context.Background(), req))

	has, err := payments.HasLateFee(context.Background(), req.ID)
	require.NoError(t, err)
	assert.False(t, has)

	fee := &models.Payment{
		RequestID:   req.ID,
		Amount:      decimal.RequireFromString("30.00"),
		PaymentDate: now,
		Type:        models.PaymentTypeLateFee,
		PaidStatus:  models.PaidStatusPending,
	}
	require.NoError(t, payments.Create(context.Background(), fee))

	has, err = payments.HasLateFee(context.Background(), req.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestPaymentHasLateFeeIgnoresFailed(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	payments := NewPaymentRepository(db)
	requests := NewBorrowRequestRepository(db)
	borrowerID, bookID := seedBorrowerAndBook(t, db)

	now := time.Now().UTC()
	req := &models.BorrowRequest{
		BorrowerID: borrowerID, BookID: bookID, Quantity: 1, RequestDate: now,
		ApprovalStatus: models.ApprovalStatusApproved,
	}
	require.NoError(t, requests.Create(context.Background(), req))

	failed := &models.Payment{
		RequestID:   req.ID,
		Amount:      decimal.RequireFromString("10.00"),
		PaymentDate: now,
		Type:        models.PaymentTypeLateFee,
		PaidStatus:  models.PaidStatusFailed,
	}
	require.NoError(t, payments.Create(context.Background(), failed))

	has, err := payments.HasLateFee(context.Background(), req.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestPaymentUpdateStatus(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	payments := NewPaymentRepository(db)
	requests := NewBorrowRequestRepository(db)
	borrowerID, bookID := seedBorrowerAndBook(t, db)

	now := time.Now().UTC()
	req := &models.BorrowRequest{
		BorrowerID: borrowerID, BookID: bookID, Quantity: 1, RequestDate: now,
		ApprovalStatus: models.ApprovalStatusApproved,
	}
	require.NoError(t, requests.Create(context.Background(), req))

	p := &models.Payment{
		RequestID:   req.ID,
		Amount:      decimal.RequireFromString("15.00"),
		PaymentDate: now,
		Type:        models.PaymentTypeLateFee,
		PaidStatus:  models.PaidStatusPending,
	}
	require.NoError(t, payments.Create(context.Background(), p))

	require.NoError(t, payments.UpdateStatus(context.Background(), p.ID, models.PaidStatusPaid, "REF-123"))

	got, err := payments.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaidStatusPaid, got.PaidStatus)
	assert.Equal(t, "REF-123", got.ReferenceNo)

	err = payments.UpdateStatus(context.Background(), 9999, models.PaidStatusPaid, "")
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestPaymentRevenueTotals(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	payments := NewPaymentRepository(db)
	requests := NewBorrowRequestRepository(db)
	borrowerID, bookID := seedBorrowerAndBook(t, db)

	now := time.Now().UTC()
	req := &models.BorrowRequest{
		BorrowerID: borrowerID, BookID: bookID, Quantity: 1, RequestDate: now,
		ApprovalStatus: models.ApprovalStatusApproved,
	}
	require.NoError(t, requests.Create(context.Background(), req))

	rows := []*models.Payment{
		{RequestID: req.ID, Amount: decimal.RequireFromString("10.00"), PaymentDate: now, Type: models.PaymentTypeBorrowFee, PaidStatus: models.PaidStatusPaid},
		{RequestID: req.ID, Amount: decimal.RequireFromString("25.50"), PaymentDate: now, Type: models.PaymentTypeLateFee, PaidStatus: models.PaidStatusPaid},
		{RequestID: req.ID, Amount: decimal.RequireFromString("5.00"), PaymentDate: now, Type: models.PaymentTypeLateFee, PaidStatus: models.PaidStatusPending},
		{RequestID: req.ID, Amount: decimal.RequireFromString("99.00"), PaymentDate: now, Type: models.PaymentTypeDamageFee, PaidStatus: models.PaidStatusFailed},
	}
	for _, p := range rows {
		require.NoError(t, payments.Create(context.Background(), p))
	}

	totals, err := payments.Revenue(context.Background())
	require.NoError(t, err)
	assert.True(t, totals.Paid.Equal(decimal.RequireFromString("35.50")), "paid = %s", totals.Paid)
	assert.True(t, totals.Pending.Equal(decimal.RequireFromString("5.00")), "pending = %s", totals.Pending)
}

func TestPaymentListByBorrower(t *testing.T) {
	t.Parallel()
	db := testutil.NewTestDB(t)
	payments := NewPaymentRepository(db)
	requests := NewBorrowRequestRepository(db)
	borrowerID, bookID := seedBorrowerAndBook(t, db)

	other := &models.Borrower{Name: "Grace Hopper", Email: "grace@example.com", MemberNo: "M-0002"}
	require.NoError(t, db.Create(other).Error)

	now := time.Now().UTC()
	mine := &models.BorrowRequest{BorrowerID: borrowerID, BookID: bookID, Quantity: 1, RequestDate: now, ApprovalStatus: models.ApprovalStatusApproved}
	theirs := &models.BorrowRequest{BorrowerID: other.ID, BookID: bookID, Quantity: 1, RequestDate: now, ApprovalStatus: models.ApprovalStatusApproved}
	require.NoError(t, requests.Create(context.Background(), mine))
	require.NoError(t, requests.Create(context.Background(), theirs))

	require.NoError(t, payments.Create(context.Background(), &models.Payment{
		RequestID: mine.ID, Amount: decimal.RequireFromString("10.00"), PaymentDate: now,
		Type: models.PaymentTypeBorrowFee, PaidStatus: models.PaidStatusPaid,
	}))
	require.NoError(t, payments.Create(context.Background(), &models.Payment{
		RequestID: theirs.ID, Amount: decimal.RequireFromString("20.00"), PaymentDate: now,
		Type: models.PaymentTypeBorrowFee, PaidStatus: models.PaidStatusPaid,
	}))

	got, err := payments.ListByBorrower(context.Background(), borrowerID, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("10.00")))
}
