package service

import (
	"context"

	"biblio/internal/models"
	"biblio/internal/observability"
	"biblio/internal/repository"
)

// PaymentService handles payment settlement. Amounts are immutable once a
// payment exists; only the settlement state moves.
type PaymentService struct {
	payments repository.PaymentRepository
	requests repository.BorrowRequestRepository
}

// NewPaymentService creates the payment settlement service.
func NewPaymentService(payments repository.PaymentRepository, requests repository.BorrowRequestRepository) *PaymentService {
	return &PaymentService{payments: payments, requests: requests}
}

// GetPayment fetches one payment by id.
func (s *PaymentService) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

type SubmitProofInput struct {
	PaymentID   uint
	Method      string
	ReferenceNo string
}

// SubmitProof records the payer's side of a pending payment. The payment
// stays pending until an admin confirms or cancels it.
func (s *PaymentService) SubmitProof(ctx context.Context, in SubmitProofInput) (*models.Payment, error) {
	if in.ReferenceNo == "" {
		return nil, models.NewValidationError("reference_no is required")
	}
	payment, err := s.payments.GetByID(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.PaidStatus != models.PaidStatusPending {
		return nil, models.NewValidationError("proof can only be attached to a pending payment")
	}

	if err := s.payments.RecordProof(ctx, payment.ID, in.Method, in.ReferenceNo); err != nil {
		return nil, err
	}
	return s.payments.GetByID(ctx, payment.ID)
}

type ConfirmPaymentInput struct {
	PaymentID   uint
	Method      string
	ReferenceNo string
}

// ConfirmPayment settles a pending payment.
func (s *PaymentService) ConfirmPayment(ctx context.Context, in ConfirmPaymentInput) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.PaidStatus != models.PaidStatusPending {
		return nil, models.NewValidationError("only pending payments can be confirmed")
	}

	if err := s.payments.UpdateStatus(ctx, payment.ID, models.PaidStatusPaid, in.ReferenceNo); err != nil {
		return nil, err
	}
	observability.LifecycleTransitions.WithLabelValues("payment_confirm").Inc()
	return s.payments.GetByID(ctx, payment.ID)
}

// CancelPayment marks a pending payment failed, for charges raised in
// error. The record stays; nothing is deleted.
func (s *PaymentService) CancelPayment(ctx context.Context, paymentID uint) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.PaidStatus != models.PaidStatusPending {
		return nil, models.NewValidationError("only pending payments can be cancelled")
	}

	if err := s.payments.UpdateStatus(ctx, payment.ID, models.PaidStatusFailed, ""); err != nil {
		return nil, err
	}
	return s.payments.GetByID(ctx, payment.ID)
}

// ListForRequest returns the payments attached to one borrow request.
func (s *PaymentService) ListForRequest(ctx context.Context, requestID uint) ([]*models.Payment, error) {
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.payments.ListByRequest(ctx, requestID)
}

// ListForBorrower returns a borrower's payment history, newest first.
func (s *PaymentService) ListForBorrower(ctx context.Context, borrowerID uint, limit, offset int) ([]*models.Payment, error) {
	return s.payments.ListByBorrower(ctx, borrowerID, limit, offset)
}
