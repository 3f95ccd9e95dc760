// Package exporter builds portable archives from an owner's journal data.
//
// Build collects everything in a deterministic order and returns the
// manifest with the list of media blobs to copy; Write streams both into a
// ZIP archive. Media references inside entry content are rewritten from
// media ids to archive paths so that an import on another system can find
// the files again.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/journalport/internal/archive"
	"github.com/mrlokans/journalport/internal/database/goals"
	"github.com/mrlokans/journalport/internal/database/journals"
	"github.com/mrlokans/journalport/internal/database/moods"
	"github.com/mrlokans/journalport/internal/database/users"
	"github.com/mrlokans/journalport/internal/entities"
	"github.com/mrlokans/journalport/internal/mediastore"
	"github.com/mrlokans/journalport/internal/transfer"
	"github.com/mrlokans/journalport/internal/utils"
)

// Scope kinds.
const (
	ScopeFull    = "full"
	ScopeJournal = "journal"
)

// ErrCancelled is returned when the tracker reports a cancel request.
var ErrCancelled = errors.New("export cancelled")

// Scope selects what an export contains. A journal scope exports only the
// listed journals and leaves out standalone moments and goal logs.
type Scope struct {
	Kind       string
	JournalIDs []string
}

func (s Scope) journalOnly() bool {
	return s.Kind == ScopeJournal
}

// Tracker receives progress and answers cancellation checks for one job.
type Tracker interface {
	Report(processed, total int)
	Cancelled() bool
}

type nopTracker struct{}

func (nopTracker) Report(int, int) {}
func (nopTracker) Cancelled() bool { return false }

// Result is a built, validated export that has not been written yet.
type Result struct {
	Manifest *transfer.Export
	// Media lists the blobs to copy under media/ in the archive.
	Media    []archive.MediaFile
	Warnings []string
}

type Builder struct {
	db         *gorm.DB
	blobs      mediastore.Blobs
	appVersion string
	logger     *zap.Logger
	now        func() time.Time
}

func NewBuilder(db *gorm.DB, blobs mediastore.Blobs, appVersion string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{db: db, blobs: blobs, appVersion: appVersion, logger: logger, now: time.Now}
}

// build is the state of one Build call.
type build struct {
	*Builder
	ctx      context.Context
	ownerID  uint
	tracker  Tracker
	journals *journals.Repository
	moods    *moods.Repository
	goals    *goals.Repository
	users    *users.Repository

	manifest  *transfer.Export
	media     []archive.MediaFile
	warnings  []string
	processed int
	total     int
	mediaSize int64
	exported  map[string]bool
	log       *zap.Logger
}

// Build collects the owner's data for scope into a validated manifest.
func (b *Builder) Build(ctx context.Context, ownerID uint, scope Scope, tracker Tracker) (*Result, error) {
	if tracker == nil {
		tracker = nopTracker{}
	}
	if scope.Kind == "" {
		scope.Kind = ScopeFull
	}
	if scope.journalOnly() && len(scope.JournalIDs) == 0 {
		return nil, fmt.Errorf("journal export needs at least one journal id")
	}

	run := &build{
		Builder:  b,
		ctx:      ctx,
		ownerID:  ownerID,
		tracker:  tracker,
		journals: journals.NewRepository(b.db),
		moods:    moods.NewRepository(b.db),
		goals:    goals.NewRepository(b.db),
		users:    users.NewRepository(b.db),
		exported: map[string]bool{},
		log:      b.logger.With(zap.Uint("owner_id", ownerID), zap.String("scope", scope.Kind)),
	}

	if err := run.collect(scope); err != nil {
		return nil, err
	}
	if err := transfer.Validate(run.manifest); err != nil {
		return nil, err
	}

	run.log.Info("export built",
		zap.Int("journals", len(run.manifest.Journals)),
		zap.Int("moments", len(run.manifest.Moments)),
		zap.Int("media", len(run.media)),
		zap.Int("warnings", len(run.warnings)),
	)
	return &Result{Manifest: run.manifest, Media: run.media, Warnings: run.warnings}, nil
}

func (r *build) collect(scope Scope) error {
	user, err := r.users.GetUserByID(r.ownerID)
	if err != nil {
		return fmt.Errorf("failed to load owner %d: %w", r.ownerID, err)
	}

	r.manifest = &transfer.Export{
		ExportVersion: transfer.ExportVersion,
		ExportDate:    r.now().UTC(),
		AppVersion:    r.appVersion,
		UserEmail:     user.Email,
		UserName:      user.Name,
		Journals:      []transfer.Journal{},
		Moments:       []transfer.Moment{},
	}

	settings, err := r.users.GetSettings(r.ownerID)
	if err != nil {
		return err
	}
	if settings != nil {
		r.manifest.UserSettings = &transfer.UserSettings{
			Theme:              settings.Theme,
			TimeZone:           settings.TimeZone,
			DailyPromptEnabled: settings.DailyPromptEnabled,
			PushNotifications:  settings.PushNotifications,
			ReminderTime:       settings.ReminderTime,
			WritingGoalDaily:   settings.WritingGoalDaily,
			StartOfWeekDay:     settings.StartOfWeekDay,
		}
	}

	journalList, err := r.journals.ListJournals(r.ownerID, scope.JournalIDs)
	if err != nil {
		return err
	}
	if scope.journalOnly() && len(journalList) != len(scope.JournalIDs) {
		return fmt.Errorf("some journals were not found for owner %d", r.ownerID)
	}

	ids := make([]string, len(journalList))
	for i := range journalList {
		ids[i] = journalList[i].ID
	}
	entryCount, err := r.journals.CountEntries(r.ownerID, ids)
	if err != nil {
		return err
	}

	var standalone []entities.Moment
	if !scope.journalOnly() {
		standalone, err = r.journals.ListStandaloneMoments(r.ownerID)
		if err != nil {
			return err
		}
	}
	r.total = int(entryCount) + len(standalone)

	if err := r.collectReference(); err != nil {
		return err
	}

	for i := range journalList {
		if err := r.checkpoint(); err != nil {
			return err
		}
		dto, err := r.exportJournal(&journalList[i])
		if err != nil {
			return err
		}
		r.manifest.Journals = append(r.manifest.Journals, *dto)
	}

	for i := range standalone {
		if err := r.checkpoint(); err != nil {
			return err
		}
		dto, err := r.exportMoment(&standalone[i])
		if err != nil {
			return err
		}
		if dto != nil {
			r.manifest.Moments = append(r.manifest.Moments, *dto)
		}
		r.advance(1)
	}

	if !scope.journalOnly() {
		if err := r.collectGoalLogs(); err != nil {
			return err
		}
	}

	r.manifest.Stats = r.stats()
	return nil
}

func (r *build) checkpoint() error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	if r.tracker.Cancelled() {
		return ErrCancelled
	}
	return nil
}

func (r *build) advance(n int) {
	r.processed += n
	if r.processed > r.total {
		r.total = r.processed
	}
	r.tracker.Report(r.processed, r.total)
}

func (r *build) warn(msg string) {
	r.warnings = append(r.warnings, msg)
	r.log.Warn(msg)
}

func (r *build) stats() map[string]any {
	entries := 0
	for _, j := range r.manifest.Journals {
		entries += len(j.Entries)
	}
	return map[string]any{
		"journal_count":    len(r.manifest.Journals),
		"entry_count":      entries,
		"moment_count":     len(r.manifest.Moments),
		"media_count":      len(r.media),
		"total_media_size": r.mediaSize,
		"mood_count":       len(r.manifest.MoodDefinitions),
		"activity_count":   len(r.manifest.Activities),
		"goal_count":       len(r.manifest.Goals),
		"goal_log_count":   len(r.manifest.GoalLogs),
		"warning_count":    len(r.warnings),
	}
}

// Write streams result into a new archive in dir and returns its path and
// size.
func (b *Builder) Write(ctx context.Context, result *Result, dir string, ownerID uint) (string, int64, error) {
	dest := filepath.Join(dir, utils.ExportArchiveName(ownerID, b.now()))
	size, err := archive.Create(ctx, result.Manifest, result.Media, b.blobs, dest)
	if err != nil {
		return "", 0, fmt.Errorf("failed to write export archive: %w", err)
	}
	b.logger.Info("export written", zap.String("path", dest), zap.Int64("size", size))
	return dest, size, nil
}
