// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, system mood seeding
//	├── journals/        # Journals, entries, moments, media
//	├── moods/           # Moods, mood groups, preferences, activities
//	├── goals/           # Goal categories, goals, goal logs
//	├── tags/            # Tag management and associations
//	├── checksums/       # Per-owner media content hash index
//	├── jobs/            # Import/export job tracking
//	├── audit/           # Append-only job audit log
//	└── users/           # Owners and their settings
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./journal.db", logger)
//
//	journalsRepo := journals.NewRepository(db.DB)
//	moodsRepo := moods.NewRepository(db.DB)
//
// Write paths run inside one transaction per import unit. Every repository
// offers WithTx so the same type serves both:
//
//	err := db.DB.Transaction(func(tx *gorm.DB) error {
//		return journalsRepo.WithTx(tx).CreateJournal(journal)
//	})
//
// # Interface Implementations
//
//   - jobs.Repository: implements services.JobStore
//   - checksums.Repository: implements mediastore.ChecksumIndex
//   - audit.Repository: backs audit.Service
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) and WithTx(tx *gorm.DB) constructors
//  4. Register the entities in Models()
//  5. Add a compile-time interface check in internal/interfaces/checks.go
package database
