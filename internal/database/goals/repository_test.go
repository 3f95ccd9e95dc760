package goals

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/journalport/internal/database"
	"github.com/mrlokans/journalport/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "goals.db"), zap.NewNop())
	require.NoError(t, err)
	return NewRepository(db.DB), func() { db.Close() }
}

func TestRepository_Categories(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	category := &entities.GoalCategory{OwnerID: 1, Name: "Health"}
	require.NoError(t, repo.CreateCategory(category))

	found, err := repo.FindCategoryByName(1, "health")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, category.ID, found.ID)

	missing, err := repo.FindCategoryByName(2, "health")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_GoalLogsOrdering(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	goal := &entities.Goal{OwnerID: 1, Title: "Write", TargetCount: 1}
	require.NoError(t, repo.CreateGoal(goal))

	for _, date := range []string{"2024-01-03", "2024-01-01", "2024-01-02"} {
		require.NoError(t, repo.CreateGoalLog(&entities.GoalLog{
			OwnerID: 1, GoalID: goal.ID, LoggedDate: date, PeriodStart: date, PeriodEnd: date,
			Status: "completed", Count: 1, LastUpdatedAt: time.Now(),
		}))
	}
	require.NoError(t, repo.CreateManualLog(&entities.GoalManualLog{OwnerID: 1, GoalID: goal.ID, LoggedDate: "2024-01-01", Status: "skipped"}))

	logs, err := repo.ListGoalLogs(1)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "2024-01-01", logs[0].LoggedDate)
	assert.Equal(t, "2024-01-03", logs[2].LoggedDate)

	manual, err := repo.ListManualLogs(1)
	require.NoError(t, err)
	assert.Len(t, manual, 1)
}
