package service

import (
	"context"
	"time"

	"biblio/internal/cache"
	"biblio/internal/repository"
)

// RequestCounts breaks the request population down by derived status.
type RequestCounts struct {
	Pending  int64 `json:"pending"`
	Active   int64 `json:"active"`
	Overdue  int64 `json:"overdue"`
	Returned int64 `json:"returned"`
	Rejected int64 `json:"rejected"`
	Flagged  int64 `json:"flagged"`
}

// RevenueSummary reports settled and outstanding payment totals.
type RevenueSummary struct {
	Paid    string `json:"paid"`
	Pending string `json:"pending"`
}

// DashboardReport is the read-only aggregate behind the admin dashboard.
// It is computed from stored state and never feeds back into it.
type DashboardReport struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	Requests    RequestCounts               `json:"requests"`
	Revenue     RevenueSummary              `json:"revenue"`
	Monthly     []repository.MonthlyRevenue `json:"monthly"`
}

// ReportService aggregates lifecycle and payment state for dashboards.
type ReportService struct {
	requests repository.BorrowRequestRepository
	payments repository.PaymentRepository
	clock    func() time.Time
}

// NewReportService creates the reporting aggregator.
func NewReportService(requests repository.BorrowRequestRepository, payments repository.PaymentRepository) *ReportService {
	return &ReportService{
		requests: requests,
		payments: payments,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Dashboard builds the dashboard aggregate, cached briefly since every
// admin page load asks for it.
func (s *ReportService) Dashboard(ctx context.Context) (*DashboardReport, error) {
	var report DashboardReport
	err := cache.CacheAside(ctx, cache.DashboardReportKey, &report, cache.DashboardReportTTL, func() error {
		fresh, err := s.buildDashboard(ctx)
		if err != nil {
			return err
		}
		report = *fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *ReportService) buildDashboard(ctx context.Context) (*DashboardReport, error) {
	now := s.clock()

	pending, active, returned, rejected, err := s.requests.CountByEffectiveGroup(ctx)
	if err != nil {
		return nil, err
	}
	overdue, err := s.requests.CountOverdue(ctx, now)
	if err != nil {
		return nil, err
	}

	flaggedOnly := true
	flagged, err := s.requests.List(ctx, repository.BorrowRequestFilter{Flagged: &flaggedOnly})
	if err != nil {
		return nil, err
	}

	revenue, err := s.payments.Revenue(ctx)
	if err != nil {
		return nil, err
	}
	monthly, err := s.payments.MonthlyRevenue(ctx, 12)
	if err != nil {
		return nil, err
	}

	return &DashboardReport{
		GeneratedAt: now,
		Requests: RequestCounts{
			Pending:  pending,
			Active:   active - overdue,
			Overdue:  overdue,
			Returned: returned,
			Rejected: rejected,
			Flagged:  int64(len(flagged)),
		},
		Revenue: RevenueSummary{
			Paid:    revenue.Paid.StringFixed(2),
			Pending: revenue.Pending.StringFixed(2),
		},
		Monthly: monthly,
	}, nil
}
