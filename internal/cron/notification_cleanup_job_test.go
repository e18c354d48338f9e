package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	cutoff  time.Time
	deleted int64
	err     error
	calls   int
}

func (f *fakePurger) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestNotificationCleanupJobUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	repo := &fakePurger{deleted: 7}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:        testLogger(),
		Notifications: repo,
		RetentionDays: 30,
		Now:           func() time.Time { return now },
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, time.Date(2026, 5, 31, 12, 0, 0, 0, time.UTC), repo.cutoff)
}

func TestNotificationCleanupJobDefaultsRetention(t *testing.T) {
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testLogger(), Notifications: &fakePurger{}})
	require.NoError(t, err)
	assert.Equal(t, defaultNotificationRetentionDays, job.retention)
	assert.Equal(t, "notification-cleanup", job.Name())
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:        testLogger(),
		Notifications: &fakePurger{err: errors.New("boom")},
	})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}
