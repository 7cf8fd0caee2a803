// Command main seeds the database with demo data for local development.
package main

import (
	"flag"
	"log"

	"biblio/internal/config"
	"biblio/internal/database"
	"biblio/internal/seed"
)

func main() {
	borrowers := flag.Int("borrowers", 25, "Number of borrowers to create")
	books := flag.Int("books", 60, "Number of books to create")
	requests := flag.Int("requests", 120, "Number of borrow requests to create")
	clean := flag.Bool("clean", true, "Delete existing data before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.DefaultOptions()
	opts.NumBorrowers = *borrowers
	opts.NumBooks = *books
	opts.NumRequests = *requests
	opts.ShouldClean = *clean
	opts.LateFeePerDay = cfg.LateFee()

	if err := seed.Seed(database.DB, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
