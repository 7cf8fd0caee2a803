package service

import (
	"context"
	"testing"
	"time"

	"biblio/internal/featureflags"
	"biblio/internal/models"
	"biblio/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(requests *borrowRequestRepoStub, payments *paymentRepoStub, audit *auditRepoStub, flags string) *ReconcilerService {
	return NewReconcilerService(requests, payments, audit, testPolicy(), featureflags.NewManager(flags))
}

func lateReturnedRequest(id uint) *models.BorrowRequest {
	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	return &models.BorrowRequest{
		ID:             id,
		BorrowerID:     1,
		BookID:         2,
		Quantity:       1,
		RequestDate:    base,
		ApprovalStatus: models.ApprovalStatusApproved,
		BorrowDate:     datePtr(base),
		DueDate:        datePtr(base.AddDate(0, 0, 14)),
		ReturnDate:     datePtr(base.AddDate(0, 0, 17)), // three days late
		Version:        3,
	}
}

func TestReconcilerSynthesizesMissingLateFee(t *testing.T) {
	t.Parallel()
	requests := noopBorrowRequestRepo()
	requests.listReturnedLateFn = func(_ context.Context, _ repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		return []*models.BorrowRequest{lateReturnedRequest(11)}, nil
	}

	payments := noopPaymentRepo()
	var created []*models.Payment
	payments.createFn = func(_ context.Context, p *models.Payment) error {
		created = append(created, p)
		return nil
	}

	svc := newTestReconciler(requests, payments, noopAuditRepo(), "auto_repair=on")

	report, err := svc.Run(context.Background(), ReconcilerScope{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.MissingLateFees.Checked)
	assert.Equal(t, 1, report.MissingLateFees.Repaired)
	assert.Equal(t, 0, report.MissingLateFees.Flagged)

	require.Len(t, created, 1)
	fee := created[0]
	assert.Equal(t, uint(11), fee.RequestID)
	assert.Equal(t, models.PaymentTypeLateFee, fee.Type)
	assert.Equal(t, models.PaidStatusPending, fee.PaidStatus)

	// Three days late at 5.00 per day, dated to the return rather than
	// the sweep.
	assert.True(t, fee.Amount.Equal(decimal.RequireFromString("15.00")), "amount = %s", fee.Amount)
	assert.True(t, fee.PaymentDate.Equal(*lateReturnedRequest(11).ReturnDate), "payment date = %s", fee.PaymentDate)
}

func TestReconcilerSkipsRecordOnStoreError(t *testing.T) {
	t.Parallel()
	requests := noopBorrowRequestRepo()
	requests.listReturnedLateFn = func(_ context.Context, _ repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		return []*models.BorrowRequest{
			lateReturnedRequest(11),
			lateReturnedRequest(12),
			lateReturnedRequest(13),
		}, nil
	}

	payments := noopPaymentRepo()
	payments.hasLateFeeFn = func(_ context.Context, requestID uint) (bool, error) {
		if requestID == 11 {
			return false, models.NewInternalError(assert.AnError)
		}
		return false, nil
	}
	var created []*models.Payment
	payments.createFn = func(_ context.Context, p *models.Payment) error {
		if p.RequestID == 12 {
			return models.NewInternalError(assert.AnError)
		}
		created = append(created, p)
		return nil
	}

	svc := newTestReconciler(requests, payments, noopAuditRepo(), "auto_repair=on")

	// One record failing its lookup and another failing its repair must
	// not stop the third from being repaired.
	report, err := svc.Run(context.Background(), ReconcilerScope{})
	require.NoError(t, err)

	assert.Equal(t, 3, report.MissingLateFees.Checked)
	assert.Equal(t, 1, report.MissingLateFees.Repaired)
	assert.Equal(t, 2, report.MissingLateFees.Flagged)
	require.Len(t, created, 1)
	assert.Equal(t, uint(13), created[0].RequestID)

	ids := make(map[uint]bool)
	for _, f := range report.Flagged {
		ids[f.RequestID] = true
	}
	assert.True(t, ids[11])
	assert.True(t, ids[12])
}

func TestReconcilerSecondRunRepairsNothing(t *testing.T) {
	t.Parallel()
	requests := noopBorrowRequestRepo()
	requests.listReturnedLateFn = func(_ context.Context, _ repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		return []*models.BorrowRequest{lateReturnedRequest(11)}, nil
	}

	payments := noopPaymentRepo()
	repaired := false
	payments.hasLateFeeFn = func(_ context.Context, _ uint) (bool, error) { return repaired, nil }
	payments.createFn = func(_ context.Context, _ *models.Payment) error {
		repaired = true
		return nil
	}

	svc := newTestReconciler(requests, payments, noopAuditRepo(), "auto_repair=on")

	first, err := svc.Run(context.Background(), ReconcilerScope{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.MissingLateFees.Repaired)

	second, err := svc.Run(context.Background(), ReconcilerScope{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.MissingLateFees.Checked)
	assert.Equal(t, 0, second.MissingLateFees.Repaired)
	assert.Empty(t, second.Flagged)
}

func TestReconcilerFlagsInsteadOfRepairingWhenDisabled(t *testing.T) {
	t.Parallel()
	requests := noopBorrowRequestRepo()
	requests.listReturnedLateFn = func(_ context.Context, _ repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		return []*models.BorrowRequest{lateReturnedRequest(11)}, nil
	}
	var flaggedIDs []uint
	requests.appendFlagFn = func(_ context.Context, id uint, _ string) error {
		flaggedIDs = append(flaggedIDs, id)
		return nil
	}

	payments := noopPaymentRepo()
	payments.createFn = func(_ context.Context, _ *models.Payment) error {
		t.Fatal("auto repair off must not create payments")
		return nil
	}

	svc := newTestReconciler(requests, payments, noopAuditRepo(), "auto_repair=off")

	report, err := svc.Run(context.Background(), ReconcilerScope{})
	require.NoError(t, err)
	assert.False(t, report.AutoRepair)
	assert.Equal(t, 0, report.MissingLateFees.Repaired)
	assert.Equal(t, 1, report.MissingLateFees.Flagged)
	assert.Equal(t, []uint{11}, flaggedIDs)
}

func TestReconcilerFlagsOrphanedPending(t *testing.T) {
	t.Parallel()
	corroborated := &models.BorrowRequest{ID: 21, ApprovalStatus: models.ApprovalStatusPending, Version: 1}
	orphan := &models.BorrowRequest{ID: 22, ApprovalStatus: models.ApprovalStatusPending, Version: 1}

	requests := noopBorrowRequestRepo()
	requests.listPendingFn = func(_ context.Context, _ repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		return []*models.BorrowRequest{corroborated, orphan}, nil
	}
	var flagged []uint
	requests.appendFlagFn = func(_ context.Context, id uint, reason string) error {
		flagged = append(flagged, id)
		return nil
	}

	audit := noopAuditRepo()
	audit.hasActionFn = func(_ context.Context, requestID uint, action models.AuditAction) (bool, error) {
		return requestID == 21 && action == models.AuditActionSubmit, nil
	}

	svc := newTestReconciler(requests, noopPaymentRepo(), audit, "auto_repair=on")

	report, err := svc.Run(context.Background(), ReconcilerScope{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.OrphanedPending.Checked)
	assert.Equal(t, 1, report.OrphanedPending.Flagged)
	assert.Equal(t, []uint{22}, flagged)

	require.Len(t, report.Flagged, 1)
	assert.Equal(t, ClassOrphanedPending, report.Flagged[0].Class)
	assert.Equal(t, uint(22), report.Flagged[0].RequestID)
}

func TestReconcilerDoesNotRewriteExistingFlag(t *testing.T) {
	t.Parallel()
	orphan := &models.BorrowRequest{
		ID:             22,
		ApprovalStatus: models.ApprovalStatusPending,
		Flagged:        true,
		FlagReason:     "pending request without a submission audit entry",
		Version:        1,
	}

	requests := noopBorrowRequestRepo()
	requests.listPendingFn = func(_ context.Context, _ repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		return []*models.BorrowRequest{orphan}, nil
	}
	requests.appendFlagFn = func(_ context.Context, _ uint, _ string) error {
		t.Fatal("an already recorded flag must not be appended again")
		return nil
	}

	audit := noopAuditRepo()
	audit.hasActionFn = func(_ context.Context, _ uint, _ models.AuditAction) (bool, error) {
		return false, nil
	}

	svc := newTestReconciler(requests, noopPaymentRepo(), audit, "auto_repair=on")

	report, err := svc.Run(context.Background(), ReconcilerScope{})
	require.NoError(t, err)

	// Still reported, just not rewritten.
	assert.Equal(t, 1, report.OrphanedPending.Flagged)
}

func TestReconcilerFlagsInvalidDatesWithoutGuessing(t *testing.T) {
	t.Parallel()
	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	bad := &models.BorrowRequest{
		ID:             31,
		ApprovalStatus: models.ApprovalStatusApproved,
		BorrowDate:     datePtr(base),
		DueDate:        datePtr(base.AddDate(0, 0, -2)), // due before borrow
		Version:        2,
	}
	good := &models.BorrowRequest{
		ID:             32,
		ApprovalStatus: models.ApprovalStatusApproved,
		BorrowDate:     datePtr(base),
		DueDate:        datePtr(base.AddDate(0, 0, 14)),
		Version:        2,
	}

	requests := noopBorrowRequestRepo()
	requests.listFn = func(_ context.Context, _ repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		return []*models.BorrowRequest{bad, good}, nil
	}
	var flagged []uint
	requests.appendFlagFn = func(_ context.Context, id uint, _ string) error {
		flagged = append(flagged, id)
		return nil
	}
	requests.updateWithVersionFn = func(_ context.Context, _ *models.BorrowRequest) error {
		t.Fatal("the sweep must never rewrite dates")
		return nil
	}

	svc := newTestReconciler(requests, noopPaymentRepo(), noopAuditRepo(), "auto_repair=on")

	report, err := svc.Run(context.Background(), ReconcilerScope{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.InvalidDates.Checked)
	assert.Equal(t, 1, report.InvalidDates.Flagged)
	assert.Equal(t, []uint{31}, flagged)
}

func TestReconcilerScopePassedToQueries(t *testing.T) {
	t.Parallel()
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	requests := noopBorrowRequestRepo()
	var seen []repository.BorrowRequestFilter
	requests.listReturnedLateFn = func(_ context.Context, f repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		seen = append(seen, f)
		return nil, nil
	}
	requests.listPendingFn = func(_ context.Context, f repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		seen = append(seen, f)
		return nil, nil
	}
	requests.listFn = func(_ context.Context, f repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		seen = append(seen, f)
		return nil, nil
	}

	svc := newTestReconciler(requests, noopPaymentRepo(), noopAuditRepo(), "auto_repair=on")

	_, err := svc.Run(context.Background(), ReconcilerScope{BorrowerID: 4, From: &from})
	require.NoError(t, err)
	require.Len(t, seen, 3)
	for _, f := range seen {
		assert.Equal(t, uint(4), f.BorrowerID)
		require.NotNil(t, f.From)
		assert.True(t, f.From.Equal(from))
	}
}
