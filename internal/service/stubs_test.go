package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"biblio/internal/models"
	"biblio/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// borrowRequestRepoStub is a stub for repository.BorrowRequestRepository.
type borrowRequestRepoStub struct {
	createFn                     func(context.Context, *models.BorrowRequest) error
	getByIDFn                    func(context.Context, uint) (*models.BorrowRequest, error)
	listFn                       func(context.Context, repository.BorrowRequestFilter) ([]*models.BorrowRequest, error)
	countNonTerminalByBorrowerFn func(context.Context, uint) (int64, error)
	updateWithVersionFn          func(context.Context, *models.BorrowRequest) error
	appendFlagFn                 func(context.Context, uint, string) error
	listReturnedLateFn           func(context.Context, repository.BorrowRequestFilter) ([]*models.BorrowRequest, error)
	listPendingFn                func(context.Context, repository.BorrowRequestFilter) ([]*models.BorrowRequest, error)
	countByEffectiveGroupFn      func(context.Context) (int64, int64, int64, int64, error)
	countOverdueFn               func(context.Context, time.Time) (int64, error)
}

func (s *borrowRequestRepoStub) Create(ctx context.Context, req *models.BorrowRequest) error {
	return s.createFn(ctx, req)
}
func (s *borrowRequestRepoStub) GetByID(ctx context.Context, id uint) (*models.BorrowRequest, error) {
	return s.getByIDFn(ctx, id)
}
func (s *borrowRequestRepoStub) List(ctx context.Context, f repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
	return s.listFn(ctx, f)
}
func (s *borrowRequestRepoStub) CountNonTerminalByBorrower(ctx context.Context, borrowerID uint) (int64, error) {
	return s.countNonTerminalByBorrowerFn(ctx, borrowerID)
}
func (s *borrowRequestRepoStub) UpdateWithVersion(ctx context.Context, req *models.BorrowRequest) error {
	return s.updateWithVersionFn(ctx, req)
}
func (s *borrowRequestRepoStub) AppendFlag(ctx context.Context, id uint, reason string) error {
	return s.appendFlagFn(ctx, id, reason)
}
func (s *borrowRequestRepoStub) ListReturnedLate(ctx context.Context, f repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
	return s.listReturnedLateFn(ctx, f)
}
func (s *borrowRequestRepoStub) ListPending(ctx context.Context, f repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
	return s.listPendingFn(ctx, f)
}
func (s *borrowRequestRepoStub) CountByEffectiveGroup(ctx context.Context) (int64, int64, int64, int64, error) {
	return s.countByEffectiveGroupFn(ctx)
}
func (s *borrowRequestRepoStub) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	return s.countOverdueFn(ctx, now)
}

func noopBorrowRequestRepo() *borrowRequestRepoStub {
	return &borrowRequestRepoStub{
		createFn: func(_ context.Context, req *models.BorrowRequest) error {
			req.ID = 1
			req.Version = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.BorrowRequest, error) {
			return nil, models.NewNotFoundError("BorrowRequest", id)
		},
		listFn: func(_ context.Context, _ repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
			return nil, nil
		},
		countNonTerminalByBorrowerFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		updateWithVersionFn: func(_ context.Context, req *models.BorrowRequest) error {
			req.Version++
			return nil
		},
		appendFlagFn: func(_ context.Context, _ uint, _ string) error { return nil },
		listReturnedLateFn: func(_ context.Context, _ repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
			return nil, nil
		},
		listPendingFn: func(_ context.Context, _ repository.BorrowRequestFilter) ([]*models.BorrowRequest, error) {
			return nil, nil
		},
		countByEffectiveGroupFn: func(_ context.Context) (int64, int64, int64, int64, error) {
			return 0, 0, 0, 0, nil
		},
		countOverdueFn: func(_ context.Context, _ time.Time) (int64, error) { return 0, nil },
	}
}

// paymentRepoStub is a stub for repository.PaymentRepository.
type paymentRepoStub struct {
	createFn         func(context.Context, *models.Payment) error
	getByIDFn        func(context.Context, uint) (*models.Payment, error)
	listByRequestFn  func(context.Context, uint) ([]*models.Payment, error)
	listByBorrowerFn func(context.Context, uint, int, int) ([]*models.Payment, error)
	hasLateFeeFn     func(context.Context, uint) (bool, error)
	updateStatusFn   func(context.Context, uint, models.PaidStatus, string) error
	recordProofFn    func(context.Context, uint, string, string) error
	revenueFn        func(context.Context) (repository.RevenueTotals, error)
	monthlyRevenueFn func(context.Context, int) ([]repository.MonthlyRevenue, error)
}

func (s *paymentRepoStub) Create(ctx context.Context, p *models.Payment) error {
	return s.createFn(ctx, p)
}
func (s *paymentRepoStub) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *paymentRepoStub) ListByRequest(ctx context.Context, requestID uint) ([]*models.Payment, error) {
	return s.listByRequestFn(ctx, requestID)
}
func (s *paymentRepoStub) ListByBorrower(ctx context.Context, borrowerID uint, limit, offset int) ([]*models.Payment, error) {
	return s.listByBorrowerFn(ctx, borrowerID, limit, offset)
}
func (s *paymentRepoStub) HasLateFee(ctx context.Context, requestID uint) (bool, error) {
	return s.hasLateFeeFn(ctx, requestID)
}
func (s *paymentRepoStub) UpdateStatus(ctx context.Context, id uint, status models.PaidStatus, referenceNo string) error {
	return s.updateStatusFn(ctx, id, status, referenceNo)
}
func (s *paymentRepoStub) RecordProof(ctx context.Context, id uint, method, referenceNo string) error {
	return s.recordProofFn(ctx, id, method, referenceNo)
}
func (s *paymentRepoStub) Revenue(ctx context.Context) (repository.RevenueTotals, error) {
	return s.revenueFn(ctx)
}
func (s *paymentRepoStub) MonthlyRevenue(ctx context.Context, months int) ([]repository.MonthlyRevenue, error) {
	return s.monthlyRevenueFn(ctx, months)
}

func noopPaymentRepo() *paymentRepoStub {
	return &paymentRepoStub{
		createFn: func(_ context.Context, p *models.Payment) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Payment, error) {
			return nil, models.NewNotFoundError("Payment", id)
		},
		listByRequestFn:  func(_ context.Context, _ uint) ([]*models.Payment, error) { return nil, nil },
		listByBorrowerFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Payment, error) { return nil, nil },
		hasLateFeeFn:     func(_ context.Context, _ uint) (bool, error) { return false, nil },
		updateStatusFn:   func(_ context.Context, _ uint, _ models.PaidStatus, _ string) error { return nil },
		recordProofFn:    func(_ context.Context, _ uint, _, _ string) error { return nil },
		revenueFn:        func(_ context.Context) (repository.RevenueTotals, error) { return repository.RevenueTotals{}, nil },
		monthlyRevenueFn: func(_ context.Context, _ int) ([]repository.MonthlyRevenue, error) { return nil, nil },
	}
}

// bookRepoStub is a stub for repository.BookRepository.
type bookRepoStub struct {
	createFn      func(context.Context, *models.Book) error
	getByIDFn     func(context.Context, uint) (*models.Book, error)
	listFn        func(context.Context, int, int) ([]*models.Book, error)
	searchFn      func(context.Context, string, int, int) ([]*models.Book, error)
	updateFn      func(context.Context, *models.Book) error
	deleteFn      func(context.Context, uint) error
	adjustStockFn func(context.Context, uint, int) error
}

func (s *bookRepoStub) Create(ctx context.Context, b *models.Book) error { return s.createFn(ctx, b) }
func (s *bookRepoStub) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	return s.getByIDFn(ctx, id)
}
func (s *bookRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Book, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *bookRepoStub) Search(ctx context.Context, q string, limit, offset int) ([]*models.Book, error) {
	return s.searchFn(ctx, q, limit, offset)
}
func (s *bookRepoStub) Update(ctx context.Context, b *models.Book) error { return s.updateFn(ctx, b) }
func (s *bookRepoStub) Delete(ctx context.Context, id uint) error        { return s.deleteFn(ctx, id) }
func (s *bookRepoStub) AdjustStock(ctx context.Context, id uint, delta int) error {
	return s.adjustStockFn(ctx, id, delta)
}

func noopBookRepo() *bookRepoStub {
	return &bookRepoStub{
		createFn: func(_ context.Context, _ *models.Book) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Book, error) {
			return &models.Book{ID: id, Title: "stub", Stock: 10}, nil
		},
		listFn:        func(_ context.Context, _, _ int) ([]*models.Book, error) { return nil, nil },
		searchFn:      func(_ context.Context, _ string, _, _ int) ([]*models.Book, error) { return nil, nil },
		updateFn:      func(_ context.Context, _ *models.Book) error { return nil },
		deleteFn:      func(_ context.Context, _ uint) error { return nil },
		adjustStockFn: func(_ context.Context, _ uint, _ int) error { return nil },
	}
}

// borrowerRepoStub is a stub for repository.BorrowerRepository.
type borrowerRepoStub struct {
	createFn        func(context.Context, *models.Borrower) error
	getByIDFn       func(context.Context, uint) (*models.Borrower, error)
	getByUserIDFn   func(context.Context, uint) (*models.Borrower, error)
	getByMemberNoFn func(context.Context, string) (*models.Borrower, error)
	listFn          func(context.Context, int, int) ([]*models.Borrower, error)
	updateFn        func(context.Context, *models.Borrower) error
	deleteFn        func(context.Context, uint) error
}

func (s *borrowerRepoStub) Create(ctx context.Context, b *models.Borrower) error {
	return s.createFn(ctx, b)
}
func (s *borrowerRepoStub) GetByID(ctx context.Context, id uint) (*models.Borrower, error) {
	return s.getByIDFn(ctx, id)
}
func (s *borrowerRepoStub) GetByUserID(ctx context.Context, userID uint) (*models.Borrower, error) {
	return s.getByUserIDFn(ctx, userID)
}
func (s *borrowerRepoStub) GetByMemberNo(ctx context.Context, memberNo string) (*models.Borrower, error) {
	return s.getByMemberNoFn(ctx, memberNo)
}
func (s *borrowerRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Borrower, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *borrowerRepoStub) Update(ctx context.Context, b *models.Borrower) error {
	return s.updateFn(ctx, b)
}
func (s *borrowerRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }

func noopBorrowerRepo() *borrowerRepoStub {
	return &borrowerRepoStub{
		createFn: func(_ context.Context, _ *models.Borrower) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Borrower, error) {
			return &models.Borrower{ID: id, Name: "stub"}, nil
		},
		getByUserIDFn: func(_ context.Context, userID uint) (*models.Borrower, error) {
			return &models.Borrower{ID: 1, UserID: &userID}, nil
		},
		getByMemberNoFn: func(_ context.Context, _ string) (*models.Borrower, error) {
			return &models.Borrower{ID: 1}, nil
		},
		listFn:   func(_ context.Context, _, _ int) ([]*models.Borrower, error) { return nil, nil },
		updateFn: func(_ context.Context, _ *models.Borrower) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// auditRepoStub is a stub for repository.AuditRepository.
type auditRepoStub struct {
	appendFn        func(context.Context, *models.AuditEntry) error
	listByRequestFn func(context.Context, uint) ([]*models.AuditEntry, error)
	hasActionFn     func(context.Context, uint, models.AuditAction) (bool, error)
}

func (s *auditRepoStub) Append(ctx context.Context, e *models.AuditEntry) error {
	return s.appendFn(ctx, e)
}
func (s *auditRepoStub) ListByRequest(ctx context.Context, requestID uint) ([]*models.AuditEntry, error) {
	return s.listByRequestFn(ctx, requestID)
}
func (s *auditRepoStub) HasAction(ctx context.Context, requestID uint, action models.AuditAction) (bool, error) {
	return s.hasActionFn(ctx, requestID, action)
}

func noopAuditRepo() *auditRepoStub {
	return &auditRepoStub{
		appendFn:        func(_ context.Context, _ *models.AuditEntry) error { return nil },
		listByRequestFn: func(_ context.Context, _ uint) ([]*models.AuditEntry, error) { return nil, nil },
		hasActionFn:     func(_ context.Context, _ uint, _ models.AuditAction) (bool, error) { return true, nil },
	}
}

// assertAppErrorCode asserts that err is an AppError with the given code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func datePtr(t time.Time) *time.Time { return &t }
