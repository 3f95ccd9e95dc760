package checksums

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
	dbPath := filepath.Join(t.TempDir(), "checksums.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.MediaChecksum{}))

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}
	return NewRepository(db), cleanup
}

func TestRepository_LookupInsert(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	row, err := repo.Lookup(1, "abc")
	require.NoError(t, err)
	assert.Nil(t, row)

	require.NoError(t, repo.Insert(&entities.MediaChecksum{OwnerID: 1, Checksum: "abc", RelativePath: "1/images/ab/abc.jpg"}))

	row, err = repo.Lookup(1, "abc")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "1/images/ab/abc.jpg", row.RelativePath)

	err = repo.Insert(&entities.MediaChecksum{OwnerID: 1, Checksum: "abc", RelativePath: "other"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// The index is per owner.
	require.NoError(t, repo.Insert(&entities.MediaChecksum{OwnerID: 2, Checksum: "abc", RelativePath: "2/images/ab/abc.jpg"}))

	n, err := repo.Count(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
