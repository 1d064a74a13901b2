package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	cutoffs []time.Time
	err     error
}

func (f *fakeRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return 3, f.err
}

func TestRunOnceUsesRetentionWindow(t *testing.T) {
	repo := &fakeRepo{}
	p := NewArchivePruner(repo, 90)
	now := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.RunOnce()

	require.Len(t, repo.cutoffs, 1)
	assert.Equal(t, now.AddDate(0, 0, -90), repo.cutoffs[0])
}

func TestRunOnceSurvivesErrors(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	NewArchivePruner(repo, 1).RunOnce()
	assert.Len(t, repo.cutoffs, 1)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	p := NewArchivePruner(&fakeRepo{}, 1)
	assert.Error(t, p.Start("not a schedule"))
}

func TestStartAndStop(t *testing.T) {
	p := NewArchivePruner(&fakeRepo{}, 1)
	require.NoError(t, p.Start(DefaultSchedule))
	p.Stop()
}
