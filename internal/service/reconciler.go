package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"biblio/internal/cache"
	"biblio/internal/featureflags"
	"biblio/internal/middleware"
	"biblio/internal/models"
	"biblio/internal/observability"
	"biblio/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// Divergence classes reported by the sweep.
const (
	ClassMissingLateFee  = "missing_late_fee"
	ClassOrphanedPending = "orphaned_pending"
	ClassInvalidDates    = "invalid_dates"
)

// ClassStats counts one divergence class in a sweep.
type ClassStats struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Flagged  int `json:"flagged"`
}

// FlaggedRecord identifies a request left for human review and why.
type FlaggedRecord struct {
	RequestID uint   `json:"request_id"`
	Class     string `json:"class"`
	Reason    string `json:"reason"`
}

// ReconciliationReport summarizes one sweep. Running the sweep twice in a
// row yields a second report with zero repairs and no new flags.
type ReconciliationReport struct {
	RanAt           time.Time       `json:"ran_at"`
	AutoRepair      bool            `json:"auto_repair"`
	MissingLateFees ClassStats      `json:"missing_late_fees"`
	OrphanedPending ClassStats      `json:"orphaned_pending"`
	InvalidDates    ClassStats      `json:"invalid_dates"`
	Flagged         []FlaggedRecord `json:"flagged"`
}

// ReconcilerScope narrows a sweep to one borrower or a request-date range.
// The zero value sweeps everything.
type ReconcilerScope struct {
	BorrowerID uint
	From       *time.Time
	To         *time.Time
}

// ReconcilerService is the consistency sweep over borrow requests and
// payments. It only ever adds: it synthesizes missing late-fee payments
// and appends review flags, and it never deletes or rewrites records.
type ReconcilerService struct {
	requests repository.BorrowRequestRepository
	payments repository.PaymentRepository
	audit    repository.AuditRepository
	policy   LifecyclePolicy
	flags    *featureflags.Manager
	clock    func() time.Time
}

// NewReconcilerService creates the consistency sweep.
func NewReconcilerService(
	requests repository.BorrowRequestRepository,
	payments repository.PaymentRepository,
	audit repository.AuditRepository,
	policy LifecyclePolicy,
	flags *featureflags.Manager,
) *ReconcilerService {
	return &ReconcilerService{
		requests: requests,
		payments: payments,
		audit:    audit,
		policy:   policy,
		flags:    flags,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Run executes one sweep over the scoped records and returns the report.
// Sweeps hold no locks; a lifecycle transition racing the sweep is caught
// on the next run.
func (s *ReconcilerService) Run(ctx context.Context, scope ReconcilerScope) (*ReconciliationReport, error) {
	span, ctx := observability.NewSpan(ctx, "reconciler.run")
	defer span.End()

	report := &ReconciliationReport{
		RanAt:      s.clock(),
		AutoRepair: s.autoRepair(),
		Flagged:    []FlaggedRecord{},
	}
	filter := repository.BorrowRequestFilter{
		BorrowerID: scope.BorrowerID,
		From:       scope.From,
		To:         scope.To,
	}

	if err := s.sweepMissingLateFees(ctx, filter, report); err != nil {
		span.SetError(err)
		return nil, err
	}
	if err := s.sweepOrphanedPending(ctx, filter, report); err != nil {
		span.SetError(err)
		return nil, err
	}
	if err := s.sweepInvalidDates(ctx, filter, report); err != nil {
		span.SetError(err)
		return nil, err
	}

	span.AddAttributes(
		attribute.Int("reconciler.repaired", report.MissingLateFees.Repaired),
		attribute.Int("reconciler.flagged", len(report.Flagged)),
	)
	middleware.Logger.InfoContext(ctx, "consistency sweep finished",
		slog.Int("late_fees_repaired", report.MissingLateFees.Repaired),
		slog.Int("orphaned_flagged", report.OrphanedPending.Flagged),
		slog.Int("invalid_dates_flagged", report.InvalidDates.Flagged),
	)
	return report, nil
}

// sweepMissingLateFees finds returned-late requests without a late-fee
// payment. With auto repair on, the fee is synthesized exactly as the
// engine would have created it; otherwise the request is flagged.
func (s *ReconcilerService) sweepMissingLateFees(ctx context.Context, filter repository.BorrowRequestFilter, report *ReconciliationReport) error {
	late, err := s.requests.ListReturnedLate(ctx, filter)
	if err != nil {
		return err
	}

	for _, req := range late {
		report.MissingLateFees.Checked++
		observability.ReconcilerChecked.WithLabelValues(ClassMissingLateFee).Inc()

		has, err := s.payments.HasLateFee(ctx, req.ID)
		if err != nil {
			s.recordCheckFailure(ctx, report, &report.MissingLateFees, req, ClassMissingLateFee, "late-fee lookup failed", err)
			continue
		}
		if has {
			continue
		}

		if !report.AutoRepair {
			s.flag(ctx, report, &report.MissingLateFees, req, ClassMissingLateFee, "late return without a late-fee payment")
			continue
		}

		// The fee is dated to the return, not the sweep, so it matches
		// what the engine would have written at return time.
		days := lateDays(*req.DueDate, *req.ReturnDate)
		fee := &models.Payment{
			RequestID:   req.ID,
			Amount:      s.policy.LateFeePerDay.Mul(decimal.NewFromInt(int64(days))),
			PaymentDate: *req.ReturnDate,
			Type:        models.PaymentTypeLateFee,
			ReferenceNo: uuid.NewString(),
			PaidStatus:  models.PaidStatusPending,
			Remarks:     "synthesized by consistency sweep",
		}
		if err := s.payments.Create(ctx, fee); err != nil {
			s.recordCheckFailure(ctx, report, &report.MissingLateFees, req, ClassMissingLateFee, "late-fee repair failed", err)
			continue
		}
		report.MissingLateFees.Repaired++
		observability.ReconcilerRepaired.WithLabelValues(ClassMissingLateFee).Inc()
		observability.LateFeesCreated.WithLabelValues("reconciler").Inc()
	}
	return nil
}

// sweepOrphanedPending flags pending requests with no corroborating
// submission trace. These are never deleted: the flag hands them to a
// librarian who can see context the sweep cannot.
func (s *ReconcilerService) sweepOrphanedPending(ctx context.Context, filter repository.BorrowRequestFilter, report *ReconciliationReport) error {
	pending, err := s.requests.ListPending(ctx, filter)
	if err != nil {
		return err
	}

	for _, req := range pending {
		report.OrphanedPending.Checked++
		observability.ReconcilerChecked.WithLabelValues(ClassOrphanedPending).Inc()

		has, err := s.audit.HasAction(ctx, req.ID, models.AuditActionSubmit)
		if err != nil {
			s.recordCheckFailure(ctx, report, &report.OrphanedPending, req, ClassOrphanedPending, "audit lookup failed", err)
			continue
		}
		if has || s.legacyClientWroteRequest(ctx, req.ID) {
			continue
		}

		s.flag(ctx, report, &report.OrphanedPending, req, ClassOrphanedPending, "pending request without a submission audit entry")
	}
	return nil
}

// sweepInvalidDates flags requests whose dates contradict each other. The
// sweep never guesses which date is wrong.
func (s *ReconcilerService) sweepInvalidDates(ctx context.Context, filter repository.BorrowRequestFilter, report *ReconciliationReport) error {
	all, err := s.requests.List(ctx, filter)
	if err != nil {
		return err
	}

	for _, req := range all {
		report.InvalidDates.Checked++
		observability.ReconcilerChecked.WithLabelValues(ClassInvalidDates).Inc()

		if req.DatesConsistent() {
			continue
		}
		s.flag(ctx, report, &report.InvalidDates, req, ClassInvalidDates, "inconsistent date ordering")
	}
	return nil
}

func (s *ReconcilerService) flag(ctx context.Context, report *ReconciliationReport, stats *ClassStats, req *models.BorrowRequest, class, reason string) {
	stats.Flagged++
	observability.ReconcilerFlagged.WithLabelValues(class).Inc()
	report.Flagged = append(report.Flagged, FlaggedRecord{RequestID: req.ID, Class: class, Reason: reason})

	// A rerun sees the same divergence again; only write the flag once.
	if req.Flagged && strings.Contains(req.FlagReason, reason) {
		return
	}
	if err := s.requests.AppendFlag(ctx, req.ID, reason); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to persist review flag",
			slog.Uint64("request_id", uint64(req.ID)),
			slog.String("class", class),
			slog.String("error", err.Error()),
		)
	}
}

// recordCheckFailure reports a record whose check or repair hit a store
// error. Unlike flag it writes nothing back: the failure is transient, the
// next sweep retries, and only the report and the log carry it.
func (s *ReconcilerService) recordCheckFailure(ctx context.Context, report *ReconciliationReport, stats *ClassStats, req *models.BorrowRequest, class, reason string, err error) {
	stats.Flagged++
	observability.ReconcilerFlagged.WithLabelValues(class).Inc()
	report.Flagged = append(report.Flagged, FlaggedRecord{
		RequestID: req.ID,
		Class:     class,
		Reason:    reason + ": " + err.Error(),
	})
	middleware.Logger.WarnContext(ctx, "sweep skipped record after store error",
		slog.Uint64("request_id", uint64(req.ID)),
		slog.String("class", class),
		slog.String("error", err.Error()),
	)
}

// legacyClientWroteRequest checks the Redis keys an older client wrote for
// in-flight submissions. Best effort: no Redis means no corroboration from
// this source.
func (s *ReconcilerService) legacyClientWroteRequest(ctx context.Context, requestID uint) bool {
	client := cache.GetClient()
	if client == nil {
		return false
	}
	n, err := client.Exists(ctx, cache.PendingBorrowKey(requestID)).Result()
	if err != nil {
		return false
	}
	return n > 0
}

func (s *ReconcilerService) autoRepair() bool {
	return s.flags.Enabled("auto_repair", 0)
}
