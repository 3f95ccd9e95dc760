// Package importer loads a read archive into the database.
//
// An import runs as a sequence of units, each in its own transaction:
//
//  1. reference data (moods, mood groups, activities, goal categories, goals)
//  2. one unit per journal, with a savepoint per entry
//  3. one unit per standalone moment
//  4. goal logs and manual logs, which may point at moments
//
// A failing unit is rolled back on its own and reported as a warning; the
// units committed before and after it stay. Ids created along the way are
// recorded in an idmap.Mapper so later units can resolve references by the
// external ids found in the archive.
package importer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/database/checksums"
	"github.com/mrlokans/journalport/internal/database/goals"
	"github.com/mrlokans/journalport/internal/database/journals"
	"github.com/mrlokans/journalport/internal/database/moods"
	"github.com/mrlokans/journalport/internal/database/tags"
	"github.com/mrlokans/journalport/internal/database/users"
	"github.com/mrlokans/journalport/internal/idmap"
	"github.com/mrlokans/journalport/internal/mediastore"
	"github.com/mrlokans/journalport/internal/readers"
	"github.com/mrlokans/journalport/internal/transfer"
)

// ErrCancelled is returned when the tracker reports a cancel request. The
// summary returned with it covers the units committed so far.
var ErrCancelled = errors.New("import cancelled")

// Tracker receives progress and answers cancellation checks for one job.
type Tracker interface {
	Report(processed, total int)
	Cancelled() bool
}

type nopTracker struct{}

func (nopTracker) Report(int, int) {}
func (nopTracker) Cancelled() bool { return false }

// Importer writes archives for one job. The Storer carries a per-job cache,
// so an Importer must not be shared between jobs.
type Importer struct {
	db     *gorm.DB
	storer *mediastore.Storer
	logger *zap.Logger
}

func New(db *gorm.DB, storer *mediastore.Storer, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{db: db, storer: storer, logger: logger}
}

// run is the state of one Import call.
type run struct {
	*Importer
	ctx       context.Context
	ownerID   uint
	archive   *readers.Archive
	tracker   Tracker
	ids       *idmap.Mapper
	summary   *transfer.ImportSummary
	processed int
	total     int
	log       *zap.Logger

	// inUnit holds progress reports until the unit's transaction ends.
	inUnit   bool
	reported int
}

// Import loads archive for ownerID. Unit failures end up in the summary;
// the returned error is reserved for cancellation and for failures outside
// any unit, such as a broken stream.
func (i *Importer) Import(ctx context.Context, ownerID uint, archive *readers.Archive, tracker Tracker) (*transfer.ImportSummary, error) {
	if tracker == nil {
		tracker = nopTracker{}
	}
	r := &run{
		Importer: i,
		ctx:      ctx,
		ownerID:  ownerID,
		archive:  archive,
		tracker:  tracker,
		ids:      idmap.New(),
		summary:  transfer.NewImportSummary(),
		total:    archive.EntryCount + archive.MomentCount,
		log:      i.logger.With(zap.Uint("owner_id", ownerID), zap.String("format", archive.Format)),
	}

	for _, w := range archive.Warnings {
		r.summary.AddWarning(w.Message, w.Category)
		if w.Category == transfer.CategoryMissingMedia {
			r.summary.MediaFilesSkipped++
		}
	}
	r.summary.EntriesSkipped += archive.EntriesSkipped

	r.log.Info("import started",
		zap.Int("journals", archive.JournalCount),
		zap.Int("entries", archive.EntryCount),
		zap.Int("moments", archive.MomentCount),
	)

	err := r.execute()
	r.summary.IDMappings = r.ids.Snapshot()

	if err != nil {
		r.log.Warn("import stopped", zap.Error(err))
		return r.summary, err
	}

	r.log.Info("import finished",
		zap.Int("journals_created", r.summary.JournalsCreated),
		zap.Int("entries_created", r.summary.EntriesCreated),
		zap.Int("entries_skipped", r.summary.EntriesSkipped),
		zap.Int("media_imported", r.summary.MediaFilesImported),
		zap.Int("media_deduplicated", r.summary.MediaFilesDeduplicated),
		zap.Int("warnings", len(r.summary.Warnings)),
	)
	return r.summary, nil
}

func (r *run) execute() error {
	if err := r.checkpoint(); err != nil {
		return err
	}
	r.runUnit("reference", "reference data", transfer.CategoryFormat, 0, (*unit).importReference)

	err := r.archive.EachJournal(r.ctx, func(item readers.Item[transfer.Journal]) error {
		if err := r.checkpoint(); err != nil {
			return err
		}
		r.importJournalItem(item)
		return nil
	})
	if err != nil {
		return err
	}

	err = r.archive.EachMoment(r.ctx, func(item readers.Item[transfer.Moment]) error {
		if err := r.checkpoint(); err != nil {
			return err
		}
		r.importMomentItem(item)
		return nil
	})
	if err != nil {
		return err
	}

	if err := r.checkpoint(); err != nil {
		return err
	}
	r.runUnit("goal logs", "goal logs", transfer.CategoryFormat, 0, (*unit).importGoalLogs)
	return nil
}

// checkpoint is consulted between units.
func (r *run) checkpoint() error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if r.tracker.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// advance moves the progress counter forward by n. Inside a unit the report
// is held back: the tracker writes through its own connection and SQLite
// admits one writer at a time.
func (r *run) advance(n int) {
	if n <= 0 {
		return
	}
	r.processed += n
	if r.processed > r.total {
		r.total = r.processed
	}
	if !r.inUnit {
		r.flushProgress()
	}
}

func (r *run) flushProgress() {
	if r.processed == r.reported {
		return
	}
	r.reported = r.processed
	r.tracker.Report(r.processed, r.total)
}

// unit is the transaction-bound view of a run used while importing one unit
// or one entry savepoint.
type unit struct {
	*run
	tx       *gorm.DB
	ids      *idmap.Mapper
	summary  *transfer.ImportSummary
	journals *journals.Repository
	moods    *moods.Repository
	tags     *tags.Repository
	goals    *goals.Repository
	users    *users.Repository
	storer   *mediastore.Storer
}

func (r *run) bind(tx *gorm.DB, ids *idmap.Mapper, summary *transfer.ImportSummary) *unit {
	return &unit{
		run:      r,
		tx:       tx,
		ids:      ids,
		summary:  summary,
		journals: journals.NewRepository(tx),
		moods:    moods.NewRepository(tx),
		tags:     tags.NewRepository(tx),
		goals:    goals.NewRepository(tx),
		users:    users.NewRepository(tx),
		storer:   r.storer.WithIndex(checksums.NewRepository(tx)),
	}
}

// warn records a warning in the unit's summary and logs it.
func (u *unit) warn(msg, category string) {
	u.summary.AddWarning(msg, category)
	u.log.Warn(msg, zap.String("category", category))
}

// runUnit executes fn in one transaction. On success the unit's counters and
// id mappings are merged into the run; on failure everything the unit did is
// discarded and a single warning names the unit.
func (r *run) runUnit(kind, label, category string, entries int, fn func(u *unit) error) bool {
	ids := r.ids.Fork()
	summary := transfer.NewImportSummary()

	r.inUnit = true
	err := r.db.WithContext(r.ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.bind(tx, ids, summary))
	})
	r.inUnit = false
	r.flushProgress()
	if err != nil {
		r.storer.PurgeCache()
		r.unitFailed(&transfer.UnitError{Kind: kind, Label: label, Category: category, Skipped: entries, Err: err})
		return false
	}

	r.ids.Merge(ids)
	r.summary.Absorb(summary)
	return true
}

func (r *run) unitFailed(ue *transfer.UnitError) {
	var msg string
	switch ue.Kind {
	case "journal":
		msg = fmt.Sprintf("Failed to import journal '%s': %v", ue.Label, ue.Err)
	case "moment":
		msg = fmt.Sprintf("Failed to import moment: %v", ue.Err)
	default:
		msg = fmt.Sprintf("Failed to import %s: %v", ue.Label, ue.Err)
	}
	r.summary.AddWarning(msg, ue.Category)
	r.summary.EntriesSkipped += ue.Skipped
	r.log.Warn("unit rolled back",
		zap.String("kind", ue.Kind),
		zap.String("label", ue.Label),
		zap.Int("entries_skipped", ue.Skipped),
		zap.Error(ue),
	)
}
