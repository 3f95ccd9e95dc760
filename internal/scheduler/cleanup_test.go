package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		valid    bool
	}{
		{"0 3 * * *", true},
		{"*/15 * * * *", true},
		{"@daily", true},
		{"0 3 * *", false},
		{"not a schedule", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	next, err := NextRun("0 3 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC), next)
}

func TestCleanupScheduler_StartStop(t *testing.T) {
	s := NewCleanupScheduler("@hourly", func(context.Context) error { return nil }, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestCleanupScheduler_StopsWithContext(t *testing.T) {
	s := NewCleanupScheduler("@hourly", func(context.Context) error { return nil }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestCleanupScheduler_InvalidSchedule(t *testing.T) {
	s := NewCleanupScheduler("every day", func(context.Context) error { return nil }, nil)
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestCleanupScheduler_RunNow(t *testing.T) {
	calls := 0
	s := NewCleanupScheduler("@daily", func(context.Context) error {
		calls++
		if calls > 1 {
			return errors.New("queue closed")
		}
		return nil
	}, nil)

	require.NoError(t, s.RunNow(context.Background()))
	assert.Error(t, s.RunNow(context.Background()))
	assert.Equal(t, 2, calls)

	s.run()
	assert.Equal(t, 3, calls)
}
