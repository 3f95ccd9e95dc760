package users

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/journalport/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := filepath.Join(t.TempDir(), "users.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{}, &entities.UserSettings{})
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}
	return NewRepository(db), cleanup
}

func TestRepository_CreateUser(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.CreateUser(" Test@Example.com ", "Tester", "")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, "UTC", user.TimeZone)

	byEmail, err := repo.GetUserByEmail("TEST@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tester", byID.Name)

	_, err = repo.CreateUser("test@example.com", "Dup", "UTC")
	assert.Error(t, err)
}

func TestRepository_GetUserByEmail_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetUserByEmail("missing@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_Settings(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	user, err := repo.CreateUser("a@example.com", "A", "Europe/Berlin")
	require.NoError(t, err)

	settings, err := repo.GetSettings(user.ID)
	require.NoError(t, err)
	assert.Nil(t, settings)

	require.NoError(t, repo.UpsertSettings(&entities.UserSettings{
		UserID: user.ID, Theme: "dark", TimeZone: "Europe/Berlin", WritingGoalDaily: 300,
	}))
	require.NoError(t, repo.UpsertSettings(&entities.UserSettings{
		UserID: user.ID, Theme: "light", TimeZone: "Europe/Berlin", WritingGoalDaily: 500,
	}))

	settings, err = repo.GetSettings(user.ID)
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "light", settings.Theme)
	assert.Equal(t, 500, settings.WritingGoalDaily)
}
