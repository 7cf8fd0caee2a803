// Package service implements the application's business logic.
package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"biblio/internal/middleware"
	"biblio/internal/models"
	"biblio/internal/observability"
	"biblio/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LifecyclePolicy is the circulation policy the engine enforces.
type LifecyclePolicy struct {
	BorrowPeriodDays    int
	LateFeePerDay       decimal.Decimal
	MaxBooksPerBorrower int
}

// EventPublisher receives lifecycle events for fan-out to subscribers.
// Implementations must not block the caller.
type EventPublisher interface {
	RequestChanged(ctx context.Context, event string, req *models.BorrowRequest)
}

// LifecycleService owns the borrow-request state machine. All transitions
// go through it; nothing else writes ApprovalStatus or the date fields.
type LifecycleService struct {
	requests  repository.BorrowRequestRepository
	payments  repository.PaymentRepository
	books     repository.BookRepository
	borrowers repository.BorrowerRepository
	audit     repository.AuditRepository
	policy    LifecyclePolicy
	events    EventPublisher
	clock     func() time.Time
}

// NewLifecycleService creates the lifecycle engine. events may be nil.
func NewLifecycleService(
	requests repository.BorrowRequestRepository,
	payments repository.PaymentRepository,
	books repository.BookRepository,
	borrowers repository.BorrowerRepository,
	audit repository.AuditRepository,
	policy LifecyclePolicy,
	events EventPublisher,
) *LifecycleService {
	return &LifecycleService{
		requests:  requests,
		payments:  payments,
		books:     books,
		borrowers: borrowers,
		audit:     audit,
		policy:    policy,
		events:    events,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

type SubmitRequestInput struct {
	BorrowerID uint
	BookID     uint
	Quantity   int
	ActorID    uint
	Remarks    string
}

type ApproveRequestInput struct {
	RequestID uint
	ActorID   uint
	// BorrowPeriodDays overrides the configured loan period for this
	// approval; zero means use the policy default.
	BorrowPeriodDays int
	Remarks          string
}

type RejectRequestInput struct {
	RequestID uint
	ActorID   uint
	Remarks   string
}

type ReturnBookInput struct {
	RequestID  uint
	ActorID    uint
	ReturnDate *time.Time
	Remarks    string
}

// RequestView pairs a stored request with its derived status, so callers
// never read the raw approval column and guess.
type RequestView struct {
	*models.BorrowRequest
	EffectiveStatus models.EffectiveStatus `json:"effective_status"`
}

// SubmitRequest creates a new pending borrow request, enforcing the open
// request limit per borrower.
func (s *LifecycleService) SubmitRequest(ctx context.Context, in SubmitRequestInput) (*models.BorrowRequest, error) {
	if in.BorrowerID == 0 {
		return nil, models.NewValidationError("borrower_id is required")
	}
	if in.BookID == 0 {
		return nil, models.NewValidationError("book_id is required")
	}
	if in.Quantity <= 0 {
		return nil, models.NewValidationError("quantity must be positive")
	}

	if _, err := s.borrowers.GetByID(ctx, in.BorrowerID); err != nil {
		return nil, err
	}
	book, err := s.books.GetByID(ctx, in.BookID)
	if err != nil {
		return nil, err
	}
	if book.Stock < in.Quantity {
		return nil, models.NewValidationError("not enough copies in stock")
	}

	open, err := s.requests.CountNonTerminalByBorrower(ctx, in.BorrowerID)
	if err != nil {
		return nil, err
	}
	if open >= int64(s.policy.MaxBooksPerBorrower) {
		return nil, models.NewBorrowLimitExceededError(in.BorrowerID, s.policy.MaxBooksPerBorrower)
	}

	req := &models.BorrowRequest{
		BorrowerID:     in.BorrowerID,
		BookID:         in.BookID,
		Quantity:       in.Quantity,
		RequestDate:    s.clock(),
		ApprovalStatus: models.ApprovalStatusPending,
		Remarks:        in.Remarks,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, req.ID, in.ActorID, models.AuditActionSubmit, in.Remarks)
	s.publish(ctx, "request.submitted", req)
	observability.LifecycleTransitions.WithLabelValues("submit").Inc()
	return req, nil
}

// ApproveRequest moves a pending request to approved, stamps the borrow
// and due dates, and reserves stock.
func (s *LifecycleService) ApproveRequest(ctx context.Context, in ApproveRequestInput) (*models.BorrowRequest, error) {
	req, err := s.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req.ApprovalStatus != models.ApprovalStatusPending {
		return nil, models.NewInvalidTransitionError(req.ID, req.ApprovalStatus, "approve")
	}

	// A borrower already holding the full quota of open requests gets no
	// further approvals until one closes.
	open, err := s.requests.CountNonTerminalByBorrower(ctx, req.BorrowerID)
	if err != nil {
		return nil, err
	}
	if open >= int64(s.policy.MaxBooksPerBorrower) {
		return nil, models.NewBorrowLimitExceededError(req.BorrowerID, s.policy.MaxBooksPerBorrower)
	}

	period := s.policy.BorrowPeriodDays
	if in.BorrowPeriodDays != 0 {
		if in.BorrowPeriodDays < 0 {
			return nil, models.NewValidationError("borrow_period_days must be positive")
		}
		period = in.BorrowPeriodDays
	}

	if err := s.books.AdjustStock(ctx, req.BookID, -req.Quantity); err != nil {
		if err == repository.ErrInsufficientStock {
			return nil, models.NewValidationError("not enough copies in stock")
		}
		return nil, err
	}

	now := s.clock()
	due := now.AddDate(0, 0, period)
	req.ApprovalStatus = models.ApprovalStatusApproved
	req.BorrowDate = &now
	req.DueDate = &due
	if in.Remarks != "" {
		req.Remarks = in.Remarks
	}

	if err := s.requests.UpdateWithVersion(ctx, req); err != nil {
		// The transition lost a race; hand the stock back.
		if restockErr := s.books.AdjustStock(ctx, req.BookID, req.Quantity); restockErr != nil {
			middleware.Logger.ErrorContext(ctx, "failed to restock after approve conflict",
				slog.Uint64("request_id", uint64(req.ID)),
				slog.String("error", restockErr.Error()),
			)
		}
		return nil, err
	}

	s.recordAudit(ctx, req.ID, in.ActorID, models.AuditActionApprove, in.Remarks)
	s.publish(ctx, "request.approved", req)
	observability.LifecycleTransitions.WithLabelValues("approve").Inc()
	return req, nil
}

// RejectRequest moves a pending request to rejected, a terminal state.
func (s *LifecycleService) RejectRequest(ctx context.Context, in RejectRequestInput) (*models.BorrowRequest, error) {
	req, err := s.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if req.ApprovalStatus != models.ApprovalStatusPending {
		return nil, models.NewInvalidTransitionError(req.ID, req.ApprovalStatus, "reject")
	}

	req.ApprovalStatus = models.ApprovalStatusRejected
	if in.Remarks != "" {
		req.Remarks = in.Remarks
	}
	if err := s.requests.UpdateWithVersion(ctx, req); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, req.ID, in.ActorID, models.AuditActionReject, in.Remarks)
	s.publish(ctx, "request.rejected", req)
	observability.LifecycleTransitions.WithLabelValues("reject").Inc()
	return req, nil
}

// ReturnBook records the return of an approved request, restocks the book
// and, when the return is late, creates the pending late-fee payment in
// the same call.
func (s *LifecycleService) ReturnBook(ctx context.Context, in ReturnBookInput) (*models.BorrowRequest, *models.Payment, error) {
	req, err := s.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if req.ApprovalStatus != models.ApprovalStatusApproved || req.ReturnDate != nil {
		return nil, nil, models.NewInvalidTransitionError(req.ID, req.ApprovalStatus, "return")
	}

	now := s.clock()
	returnedAt := now
	if in.ReturnDate != nil {
		returnedAt = in.ReturnDate.UTC()
	}
	if returnedAt.After(now) {
		return nil, nil, models.NewValidationError("return_date cannot be in the future")
	}
	if req.BorrowDate != nil && returnedAt.Before(*req.BorrowDate) {
		return nil, nil, models.NewValidationError("return_date cannot be before the borrow date")
	}

	req.ReturnDate = &returnedAt
	if in.Remarks != "" {
		req.Remarks = in.Remarks
	}
	if err := s.requests.UpdateWithVersion(ctx, req); err != nil {
		return nil, nil, err
	}

	if err := s.books.AdjustStock(ctx, req.BookID, req.Quantity); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to restock returned book",
			slog.Uint64("request_id", uint64(req.ID)),
			slog.String("error", err.Error()),
		)
	}

	var fee *models.Payment
	if req.DueDate != nil && returnedAt.After(*req.DueDate) {
		daysLate := lateDays(*req.DueDate, returnedAt)
		fee = &models.Payment{
			RequestID:   req.ID,
			Amount:      s.policy.LateFeePerDay.Mul(decimal.NewFromInt(int64(daysLate))),
			PaymentDate: returnedAt,
			Type:        models.PaymentTypeLateFee,
			ReferenceNo: uuid.NewString(),
			PaidStatus:  models.PaidStatusPending,
		}
		if err := s.payments.Create(ctx, fee); err != nil {
			// The return itself stands; the consistency sweep picks up
			// the missing fee on its next run.
			middleware.Logger.ErrorContext(ctx, "failed to create late-fee payment",
				slog.Uint64("request_id", uint64(req.ID)),
				slog.String("error", err.Error()),
			)
			fee = nil
		} else {
			observability.LateFeesCreated.WithLabelValues("engine").Inc()
		}
	}

	s.recordAudit(ctx, req.ID, in.ActorID, models.AuditActionReturn, in.Remarks)
	s.publish(ctx, "request.returned", req)
	observability.LifecycleTransitions.WithLabelValues("return").Inc()
	return req, fee, nil
}

// GetRequest loads a request together with its derived status.
func (s *LifecycleService) GetRequest(ctx context.Context, id uint) (*RequestView, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RequestView{BorrowRequest: req, EffectiveStatus: models.DeriveStatus(req, s.clock())}, nil
}

// ListRequests loads requests matching the filter with derived statuses.
func (s *LifecycleService) ListRequests(ctx context.Context, filter repository.BorrowRequestFilter) ([]*RequestView, error) {
	reqs, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	views := make([]*RequestView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, &RequestView{BorrowRequest: req, EffectiveStatus: models.DeriveStatus(req, now)})
	}
	return views, nil
}

// AuditTrail returns the transition history of a request, oldest first.
func (s *LifecycleService) AuditTrail(ctx context.Context, requestID uint) ([]*models.AuditEntry, error) {
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.audit.ListByRequest(ctx, requestID)
}

func (s *LifecycleService) recordAudit(ctx context.Context, requestID, actorID uint, action models.AuditAction, note string) {
	err := s.audit.Append(ctx, &models.AuditEntry{
		EntryID:   uuid.NewString(),
		RequestID: requestID,
		ActorID:   actorID,
		Action:    action,
		Note:      note,
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to append audit entry",
			slog.Uint64("request_id", uint64(requestID)),
			slog.String("action", string(action)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *LifecycleService) publish(ctx context.Context, event string, req *models.BorrowRequest) {
	if s.events != nil {
		s.events.RequestChanged(ctx, event, req)
	}
}

// lateDays counts billable late days: any started day past the due date
// counts in full.
func lateDays(due, returned time.Time) int {
	if !returned.After(due) {
		return 0
	}
	return int(math.Ceil(returned.Sub(due).Hours() / 24))
}
