package database

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/journalport/internal/entities"
)

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

// defaultMoods are the owner-less system moods available to every user.
var defaultMoods = []entities.Mood{
	{Name: "happy", Key: strPtr("happy"), Category: "positive", Icon: strPtr("😊"), Score: intPtr(5), Position: 0},
	{Name: "excited", Key: strPtr("excited"), Category: "positive", Icon: strPtr("🤩"), Score: intPtr(5), Position: 1},
	{Name: "calm", Key: strPtr("calm"), Category: "positive", Icon: strPtr("😌"), Score: intPtr(4), Position: 2},
	{Name: "grateful", Key: strPtr("grateful"), Category: "positive", Icon: strPtr("🙏"), Score: intPtr(4), Position: 3},
	{Name: "neutral", Key: strPtr("neutral"), Category: "neutral", Icon: strPtr("😐"), Score: intPtr(3), Position: 4},
	{Name: "tired", Key: strPtr("tired"), Category: "neutral", Icon: strPtr("😴"), Score: intPtr(3), Position: 5},
	{Name: "anxious", Key: strPtr("anxious"), Category: "negative", Icon: strPtr("😰"), Score: intPtr(2), Position: 6},
	{Name: "sad", Key: strPtr("sad"), Category: "negative", Icon: strPtr("😢"), Score: intPtr(2), Position: 7},
	{Name: "angry", Key: strPtr("angry"), Category: "negative", Icon: strPtr("😠"), Score: intPtr(1), Position: 8},
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{
		&entities.User{},
		&entities.UserSettings{},
		&entities.Journal{},
		&entities.Entry{},
		&entities.Tag{},
		&entities.Moment{},
		&entities.Mood{},
		&entities.MoodGroup{},
		&entities.MoodGroupLink{},
		&entities.UserMoodPreference{},
		&entities.UserMoodGroupPreference{},
		&entities.ActivityGroup{},
		&entities.Activity{},
		&entities.MomentMoodActivity{},
		&entities.Media{},
		&entities.GoalCategory{},
		&entities.Goal{},
		&entities.GoalLog{},
		&entities.GoalManualLog{},
		&entities.Job{},
		&entities.MediaChecksum{},
		&entities.AuditEvent{},
	}
}

// gormLogger sends gorm's warnings through zap. Find-or-create lookups miss
// on every new name, so not-found errors are not logged.
func gormLogger(log *zap.Logger) logger.Interface {
	return logger.New(zap.NewStdLog(log.Named("gorm")), logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

type Database struct {
	DB     *gorm.DB
	logger *zap.Logger
}

// dsn adds the pragmas needed for concurrent job workers.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_journal=WAL&_busy_timeout=5000&_foreign_keys=on"
}

func NewDatabase(dbPath string, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger:         gormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db, logger: log}

	if err := database.backfillNameKeys(); err != nil {
		return nil, fmt.Errorf("failed to backfill name keys: %w", err)
	}

	if err := database.seedMoods(); err != nil {
		return nil, fmt.Errorf("failed to seed moods: %w", err)
	}

	log.Info("database initialized", zap.String("path", dbPath))

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// backfillNameKeys fills name_key on rows written before the column existed.
func (d *Database) backfillNameKeys() error {
	type named struct {
		ID   string
		Name string
	}
	for _, model := range []any{
		&entities.Mood{},
		&entities.MoodGroup{},
		&entities.ActivityGroup{},
		&entities.Activity{},
		&entities.GoalCategory{},
	} {
		var rows []named
		if err := d.DB.Unscoped().Model(model).Where("name_key = '' OR name_key IS NULL").Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			err := d.DB.Unscoped().Model(model).Where("id = ?", row.ID).
				UpdateColumn("name_key", entities.NameKey(row.Name)).Error
			if err != nil {
				return err
			}
		}
		if len(rows) > 0 {
			d.logger.Info("backfilled name keys", zap.String("table", fmt.Sprintf("%T", model)), zap.Int("rows", len(rows)))
		}
	}
	return nil
}

func (d *Database) seedMoods() error {
	for _, mood := range defaultMoods {
		var count int64
		err := d.DB.Model(&entities.Mood{}).
			Where("owner_id IS NULL AND name_key = ?", entities.NameKey(mood.Name)).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		mood.IsActive = true
		if err := d.DB.Create(&mood).Error; err != nil {
			return fmt.Errorf("failed to create mood %s: %w", mood.Name, err)
		}
		d.logger.Debug("created system mood", zap.String("name", mood.Name))
	}
	return nil
}
