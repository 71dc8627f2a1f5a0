package postgresql_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/worksession"
	"github.com/cmlabs-hris/hris-timekeeping/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkSessionRepository(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewWorkSessionRepository(setup.DB)
	ctx := context.Background()
	start := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

	created, err := repo.Create(ctx, worksession.Session{
		EmployeeID:     "emp-1",
		Title:          "Refactor",
		StartTime:      start,
		Status:         worksession.StatusRunning,
		Timezone:       "UTC",
		LastActivityAt: start,
		CreatedAt:      start,
		UpdatedAt:      start,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	t.Run("concurrent appends keep a gapless sequence", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.AppendSample(ctx, created.ID, func(s worksession.Session) (worksession.Sample, error) {
					return worksession.Sample{Timestamp: start.Add(time.Duration(i+1) * time.Minute), Keystrokes: i, IntervalMinutes: 1}, nil
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, got.Samples, 10)
		for i, s := range got.Samples {
			assert.Equal(t, i+1, s.Seq)
		}
		assert.Equal(t, start.Add(10*time.Minute), got.LastActivityAt.UTC())
	})

	t.Run("build errors write nothing", func(t *testing.T) {
		_, err := repo.AppendScreenshot(ctx, created.ID, func(worksession.Session) (worksession.Screenshot, error) {
			return worksession.Screenshot{}, worksession.ErrScreenshotLimitReached
		})
		assert.ErrorIs(t, err, worksession.ErrScreenshotLimitReached)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Screenshots)
	})

	t.Run("screenshots and soft delete", func(t *testing.T) {
		shot, err := repo.AppendScreenshot(ctx, created.ID, func(s worksession.Session) (worksession.Screenshot, error) {
			return worksession.Screenshot{Timestamp: start, IntervalStart: start, IntervalEnd: start.Add(10 * time.Minute), ActivityLevel: 40}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, shot.Seq)

		deleted, err := repo.SoftDeleteScreenshot(ctx, created.ID, shot.ID, start.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, deleted.IsDeleted)

		_, err = repo.SoftDeleteScreenshot(ctx, created.ID, shot.ID, start.Add(time.Hour))
		assert.ErrorIs(t, err, worksession.ErrScreenshotAlreadyDeleted)
	})

	t.Run("update freezes totals and checks the version", func(t *testing.T) {
		s, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)

		worksession.Finalize(&s, start.Add(time.Hour))
		stopped, err := repo.Update(ctx, s)
		require.NoError(t, err)
		require.NotNil(t, stopped.Totals)
		assert.Equal(t, 60, stopped.Totals.DurationMinutes)
		assert.Len(t, stopped.Samples, 10)

		_, err = repo.Update(ctx, s)
		assert.ErrorIs(t, err, worksession.ErrConcurrentUpdate)

		finalized, err := repo.ListFinalized(ctx, "emp-1", start.Add(-time.Hour), start.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, finalized, 1)
		assert.Len(t, finalized[0].Screenshots, 1)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, worksession.ErrSessionNotFound)
	})
}
