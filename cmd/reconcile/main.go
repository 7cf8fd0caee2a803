// Command main runs one consistency sweep over borrow requests and payments.
// Intended for cron; prints the report as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"biblio/internal/cache"
	"biblio/internal/config"
	"biblio/internal/database"
	"biblio/internal/featureflags"
	"biblio/internal/repository"
	"biblio/internal/service"
)

func main() {
	borrowerID := flag.Uint("borrower", 0, "Limit the sweep to one borrower ID")
	fromStr := flag.String("from", "", "Only requests submitted on or after this date (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Only requests submitted on or before this date (YYYY-MM-DD)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Abort the sweep after this long")
	flag.Parse()

	scope := service.ReconcilerScope{BorrowerID: *borrowerID}
	if *fromStr != "" {
		from, err := time.Parse("2006-01-02", *fromStr)
		if err != nil {
			log.Fatalf("Invalid -from date: %v", err)
		}
		scope.From = &from
	}
	if *toStr != "" {
		to, err := time.Parse("2006-01-02", *toStr)
		if err != nil {
			log.Fatalf("Invalid -to date: %v", err)
		}
		scope.To = &to
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis is optional here; without it the sweep just loses the legacy
	// client corroboration signal.
	cache.InitRedis(cfg.RedisURL)

	policy := service.LifecyclePolicy{
		BorrowPeriodDays:    cfg.BorrowPeriodDays,
		LateFeePerDay:       cfg.LateFee(),
		MaxBooksPerBorrower: cfg.MaxBooksPerBorrower,
	}

	reconciler := service.NewReconcilerService(
		repository.NewBorrowRequestRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewAuditRepository(db),
		policy,
		featureflags.NewManager(cfg.FeatureFlags),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := reconciler.Run(ctx, scope)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
}
