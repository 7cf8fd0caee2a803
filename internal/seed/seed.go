// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"biblio/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumBorrowers int
	NumBooks     int
	NumRequests  int
	ShouldClean  bool
	// LateFeePerDay mirrors the engine's policy so seeded late fees
	// match what the reconciler expects to find.
	LateFeePerDay decimal.Decimal
}

// DefaultOptions returns a sensible local-development data set.
func DefaultOptions() Options {
	return Options{
		NumBorrowers:  25,
		NumBooks:      60,
		NumRequests:   120,
		ShouldClean:   true,
		LateFeePerDay: decimal.RequireFromString("5.00"),
	}
}

var categoryNames = []string{
	"Fiction", "Science", "History", "Technology", "Biography",
	"Philosophy", "Art", "Travel", "Children", "Poetry",
}

// Seed populates the database with demo data.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Seeding %d borrowers, %d books, %d requests...",
		opts.NumBorrowers, opts.NumBooks, opts.NumRequests)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("warning: could not clear all existing data, continuing anyway")
		}
	}

	gofakeit.Seed(time.Now().UnixNano())
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := seedAdmin(db); err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}

	categories, suppliers, err := seedReferenceData(db)
	if err != nil {
		return fmt.Errorf("seeding reference data: %w", err)
	}

	books, err := seedBooks(db, opts.NumBooks, categories, suppliers, r)
	if err != nil {
		return fmt.Errorf("seeding books: %w", err)
	}

	borrowers, err := seedBorrowers(db, opts.NumBorrowers)
	if err != nil {
		return fmt.Errorf("seeding borrowers: %w", err)
	}

	if err := seedRequests(db, opts, books, borrowers, r); err != nil {
		return fmt.Errorf("seeding requests: %w", err)
	}

	log.Println("Seeding complete")
	return nil
}

func clearData(db *gorm.DB) error {
	// Children before parents, mirrors the migration ordering in reverse.
	tables := []string{
		"audit_entries", "payments", "borrow_requests",
		"books", "borrowers", "suppliers", "categories", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func seedAdmin(db *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("AdminPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := &models.User{
		Username:     "admin",
		Email:        "admin@biblio.local",
		PasswordHash: string(hash),
		IsAdmin:      true,
	}
	return db.Create(admin).Error
}

func seedReferenceData(db *gorm.DB) ([]models.Category, []models.Supplier, error) {
	categories := make([]models.Category, 0, len(categoryNames))
	for _, name := range categoryNames {
		categories = append(categories, models.Category{
			Name:        name,
			Description: gofakeit.Sentence(8),
		})
	}
	if err := db.Create(&categories).Error; err != nil {
		return nil, nil, err
	}

	suppliers := make([]models.Supplier, 0, 5)
	for i := 0; i < 5; i++ {
		suppliers = append(suppliers, models.Supplier{
			Name:    gofakeit.Company(),
			Email:   gofakeit.Email(),
			Phone:   gofakeit.Phone(),
			Address: gofakeit.Address().Address,
		})
	}
	if err := db.Create(&suppliers).Error; err != nil {
		return nil, nil, err
	}

	return categories, suppliers, nil
}

func seedBooks(db *gorm.DB, count int, categories []models.Category, suppliers []models.Supplier, r *rand.Rand) ([]models.Book, error) {
	books := make([]models.Book, 0, count)
	for i := 0; i < count; i++ {
		category := categories[r.Intn(len(categories))]
		supplier := suppliers[r.Intn(len(suppliers))]
		books = append(books, models.Book{
			Title:         gofakeit.BookTitle(),
			Author:        gofakeit.BookAuthor(),
			ISBN:          fmt.Sprintf("978%010d", r.Int63n(10000000000)),
			CategoryID:    &category.ID,
			SupplierID:    &supplier.ID,
			Stock:         2 + r.Intn(12),
			PublishedYear: 1950 + r.Intn(76),
		})
	}
	if err := db.CreateInBatches(&books, 50).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func seedBorrowers(db *gorm.DB, count int) ([]models.Borrower, error) {
	borrowers := make([]models.Borrower, 0, count)
	for i := 0; i < count; i++ {
		borrowers = append(borrowers, models.Borrower{
			Name:       gofakeit.Name(),
			Email:      fmt.Sprintf("member%d@%s", i+1, gofakeit.DomainName()),
			Phone:      gofakeit.Phone(),
			Address:    gofakeit.Address().Address,
			MemberNo:   fmt.Sprintf("LB-%06d", i+1),
			JoinedDate: gofakeit.DateRange(time.Now().AddDate(-3, 0, 0), time.Now()),
		})
	}
	if err := db.CreateInBatches(&borrowers, 50).Error; err != nil {
		return nil, err
	}
	return borrowers, nil
}

// seedRequests creates a realistic mix of request states: pending, active,
// overdue, rejected, returned on time, and returned late with the matching
// late-fee payment and audit trail.
func seedRequests(db *gorm.DB, opts Options, books []models.Book, borrowers []models.Borrower, r *rand.Rand) error {
	now := time.Now().UTC()

	for i := 0; i < opts.NumRequests; i++ {
		book := books[r.Intn(len(books))]
		borrower := borrowers[r.Intn(len(borrowers))]
		requested := now.AddDate(0, 0, -r.Intn(120)-1)

		req := models.BorrowRequest{
			BorrowerID:  borrower.ID,
			BookID:      book.ID,
			Quantity:    1 + r.Intn(2),
			RequestDate: requested,
			Remarks:     gofakeit.Sentence(6),
			Version:     1,
		}

		roll := r.Intn(100)
		switch {
		case roll < 15: // still pending
			req.ApprovalStatus = models.ApprovalStatusPending
		case roll < 25: // rejected
			req.ApprovalStatus = models.ApprovalStatusRejected
		default: // approved at some point
			req.ApprovalStatus = models.ApprovalStatusApproved
			borrowed := requested.AddDate(0, 0, 1)
			due := borrowed.AddDate(0, 0, 14)
			req.BorrowDate = &borrowed
			req.DueDate = &due

			if roll >= 45 { // returned, sometimes late
				lateDays := 0
				if roll >= 80 {
					lateDays = 1 + r.Intn(10)
				}
				returned := due.AddDate(0, 0, lateDays-r.Intn(3))
				if returned.After(now) {
					returned = now
				}
				req.ReturnDate = &returned
			}
		}

		if err := db.Create(&req).Error; err != nil {
			return err
		}
		if err := seedAuditTrail(db, &req); err != nil {
			return err
		}
		if err := seedLateFee(db, opts, &req); err != nil {
			return err
		}
	}

	return nil
}

func seedAuditTrail(db *gorm.DB, req *models.BorrowRequest) error {
	entries := []models.AuditEntry{{
		EntryID:   uuid.NewString(),
		RequestID: req.ID,
		Action:    models.AuditActionSubmit,
		CreatedAt: req.RequestDate,
	}}

	switch req.ApprovalStatus {
	case models.ApprovalStatusApproved:
		entries = append(entries, models.AuditEntry{
			EntryID:   uuid.NewString(),
			RequestID: req.ID,
			Action:    models.AuditActionApprove,
			CreatedAt: *req.BorrowDate,
		})
		if req.ReturnDate != nil {
			entries = append(entries, models.AuditEntry{
				EntryID:   uuid.NewString(),
				RequestID: req.ID,
				Action:    models.AuditActionReturn,
				CreatedAt: *req.ReturnDate,
			})
		}
	case models.ApprovalStatusRejected:
		entries = append(entries, models.AuditEntry{
			EntryID:   uuid.NewString(),
			RequestID: req.ID,
			Action:    models.AuditActionReject,
			CreatedAt: req.RequestDate.AddDate(0, 0, 1),
		})
	}

	return db.Create(&entries).Error
}

func seedLateFee(db *gorm.DB, opts Options, req *models.BorrowRequest) error {
	if req.ReturnDate == nil || req.DueDate == nil || !req.ReturnDate.After(*req.DueDate) {
		return nil
	}

	days := int(req.ReturnDate.Sub(*req.DueDate).Hours()/24) + 1
	statuses := []models.PaidStatus{models.PaidStatusPaid, models.PaidStatusPending}

	payment := models.Payment{
		RequestID:   req.ID,
		Amount:      opts.LateFeePerDay.Mul(decimal.NewFromInt(int64(days))),
		PaymentDate: *req.ReturnDate,
		Method:      "cash",
		Type:        models.PaymentTypeLateFee,
		ReferenceNo: uuid.NewString(),
		PaidStatus:  statuses[rand.Intn(len(statuses))],
	}
	return db.Create(&payment).Error
}
