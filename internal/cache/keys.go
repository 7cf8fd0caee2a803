package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	BookKeyPrefix       = "book:%d"
	BorrowerKeyPrefix   = "borrower:%d"
	RequestKeyPrefix    = "borrow_request:%d"
	PendingBorrowPrefix = "pending_borrow:%d"
	DashboardReportKey  = "report:dashboard"
	MonthlyRevenueKey   = "report:monthly_revenue"
)

const (
	BookTTL            = 10 * time.Minute
	BorrowerTTL        = 5 * time.Minute
	RequestTTL         = 2 * time.Minute
	DashboardReportTTL = 1 * time.Minute
	MonthlyRevenueTTL  = 5 * time.Minute
)

func BookKey(bookID uint) string {
	return fmt.Sprintf(BookKeyPrefix, bookID)
}

func BorrowerKey(borrowerID uint) string {
	return fmt.Sprintf(BorrowerKeyPrefix, borrowerID)
}

func RequestKey(requestID uint) string {
	return fmt.Sprintf(RequestKeyPrefix, requestID)
}

// PendingBorrowKey is the key layout an older client wrote pending borrow
// records under. The reconciler inspects these for corroboration but never
// writes them.
func PendingBorrowKey(requestID uint) string {
	return fmt.Sprintf(PendingBorrowPrefix, requestID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateBook(ctx context.Context, bookID uint) {
	Invalidate(ctx, BookKey(bookID))
}

func InvalidateBorrower(ctx context.Context, borrowerID uint) {
	Invalidate(ctx, BorrowerKey(borrowerID))
}

func InvalidateRequest(ctx context.Context, requestID uint) {
	Invalidate(ctx, RequestKey(requestID))
}

func InvalidateReports(ctx context.Context) {
	Invalidate(ctx, DashboardReportKey)
	Invalidate(ctx, MonthlyRevenueKey)
}
