package repository

import (
	"context"
	"testing"
	"time"

	"biblio/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MonthlyRevenue uses date_trunc, which sqlite does not have, so these
// tests run against a mocked postgres connection instead of the shared
// in-memory database.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestPaymentMonthlyRevenueQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPaymentRepository(db)

	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"month", "total"}).
		AddRow(jan, "125.00").
		AddRow(feb, "45.00")
	mock.ExpectQuery(`date_trunc\('month', payment_date\)`).
		WithArgs(string(models.PaidStatusPaid), sqlmock.AnyArg()).
		WillReturnRows(rows)

	buckets, err := repo.MonthlyRevenue(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, jan, buckets[0].Month)
	assert.True(t, buckets[0].Total.Equal(decimal.RequireFromString("125.00")))
	assert.True(t, buckets[1].Total.Equal(decimal.RequireFromString("45.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentMonthlyRevenueDefaultsWindow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(`date_trunc\('month', payment_date\)`).
		WithArgs(string(models.PaidStatusPaid), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"month", "total"}))

	buckets, err := repo.MonthlyRevenue(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, buckets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentMonthlyRevenueWrapsDatabaseError(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(`date_trunc\('month', payment_date\)`).
		WillReturnError(assert.AnError)

	_, err := repo.MonthlyRevenue(context.Background(), 3)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, models.CodeInternal, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
