package service

import (
	"context"
	"testing"
	"time"

	"biblio/internal/models"
	"biblio/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardSplitsOverdueFromActive(t *testing.T) {
	t.Parallel()
	requests := noopBorrowRequestRepo()
	requests.countByEffectiveGroupFn = func(_ context.Context) (int64, int64, int64, int64, error) {
		return 3, 10, 20, 2, nil // pending, active incl. overdue, returned, rejected
	}
	requests.countOverdueFn = func(_ context.Context, _ time.Time) (int64, error) {
		return 4, nil
	}
	requests.listFn = func(_ context.Context, f repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
		require.NotNil(t, f.Flagged)
		assert.True(t, *f.Flagged)
		return []*models.BorrowRequest{{ID: 1}}, nil
	}

	payments := noopPaymentRepo()
	payments.revenueFn = func(_ context.Context) (repository.RevenueTotals, error) {
		return repository.RevenueTotals{
			Paid:    decimal.RequireFromString("120.50"),
			Pending: decimal.RequireFromString("15.00"),
		}, nil
	}
	payments.monthlyRevenueFn = func(_ context.Context, months int) ([]repository.MonthlyRevenue, error) {
		assert.Equal(t, 12, months)
		return []repository.MonthlyRevenue{
			{Month: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Total: decimal.RequireFromString("120.50")},
		}, nil
	}

	svc := NewReportService(requests, payments)

	report, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), report.Requests.Pending)
	assert.Equal(t, int64(6), report.Requests.Active, "overdue requests leave the active bucket")
	assert.Equal(t, int64(4), report.Requests.Overdue)
	assert.Equal(t, int64(20), report.Requests.Returned)
	assert.Equal(t, int64(2), report.Requests.Rejected)
	assert.Equal(t, int64(1), report.Requests.Flagged)

	assert.Equal(t, "120.50", report.Revenue.Paid)
	assert.Equal(t, "15.00", report.Revenue.Pending)
	require.Len(t, report.Monthly, 1)
}

func TestDashboardPropagatesRepositoryErrors(t *testing.T) {
	t.Parallel()
	requests := noopBorrowRequestRepo()
	requests.countByEffectiveGroupFn = func(_ context.Context) (int64, int64, int64, int64, error) {
		return 0, 0, 0, 0, models.NewInternalError(assert.AnError)
	}

	svc := NewReportService(requests, noopPaymentRepo())

	_, err := svc.Dashboard(context.Background())
	assertAppErrorCode(t, err, models.CodeInternal)
}
