package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/worksession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)

func entryAt(employeeID string, checkIn time.Time, hours *float64) attendance.Entry {
	e := attendance.Entry{
		EmployeeID: employeeID,
		Date:       time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, time.UTC),
		CheckIn:    checkIn,
		Shift:      attendance.ShiftMorning,
		Status:     attendance.StatusPresent,
		TotalHours: hours,
	}
	if hours != nil {
		out := checkIn.Add(time.Duration(*hours * float64(time.Hour)))
		e.CheckOut = &out
	}
	return e
}

func hours(h float64) *float64 { return &h }

func TestAttendanceRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("update is a compare-and-swap on version", func(t *testing.T) {
		repo := NewAttendanceRepository()
		created, err := repo.Create(ctx, entryAt("emp-1", base, nil))
		require.NoError(t, err)
		assert.Equal(t, 1, created.Version)

		first := created.Clone()
		first.Notes = "first"
		updated, err := repo.Update(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		stale := created.Clone()
		stale.Notes = "stale"
		_, err = repo.Update(ctx, stale)
		assert.ErrorIs(t, err, attendance.ErrConcurrentUpdate)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "first", got.Notes)
	})

	t.Run("stored entries are isolated from callers", func(t *testing.T) {
		repo := NewAttendanceRepository()
		created, err := repo.Create(ctx, entryAt("emp-1", base, nil))
		require.NoError(t, err)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		got.Breaks = append(got.Breaks, attendance.Break{Start: base})

		again, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Empty(t, again.Breaks)
	})

	t.Run("open lookups prefer the latest check-in", func(t *testing.T) {
		repo := NewAttendanceRepository()
		_, err := repo.Create(ctx, entryAt("emp-1", base, nil))
		require.NoError(t, err)
		later, err := repo.Create(ctx, entryAt("emp-1", base.Add(2*time.Hour), nil))
		require.NoError(t, err)
		_, err = repo.Create(ctx, entryAt("emp-1", base.Add(4*time.Hour), hours(1)))
		require.NoError(t, err)

		open, err := repo.GetOpenByEmployeeAndDate(ctx, "emp-1", base)
		require.NoError(t, err)
		assert.Equal(t, later.ID, open.ID)

		_, err = repo.GetOpenByEmployeeAndDate(ctx, "emp-1", base.AddDate(0, 0, 1))
		assert.ErrorIs(t, err, attendance.ErrNotCheckedIn)

		stale, err := repo.ListOpenBefore(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Len(t, stale, 1)
	})

	t.Run("create unless open admits one of many concurrent inserts", func(t *testing.T) {
		repo := NewAttendanceRepository()
		errOpen := errors.New("open entry exists")

		var wg sync.WaitGroup
		var mu sync.Mutex
		created := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.CreateUnlessOpen(ctx, entryAt("emp-1", base, nil), func(attendance.Entry) error {
					return errOpen
				})
				if err == nil {
					mu.Lock()
					created++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, errOpen)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, created)

		_, err := repo.CreateUnlessOpen(ctx, entryAt("emp-1", base, nil), func(attendance.Entry) error { return nil })
		require.NoError(t, err)
		_, err = repo.CreateUnlessOpen(ctx, entryAt("emp-2", base, nil), func(attendance.Entry) error { return errOpen })
		require.NoError(t, err)

		filter := attendance.EntryFilter{Limit: 10}
		require.NoError(t, filter.Validate())
		page, total, err := repo.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, page, 3)
	})

	t.Run("list sorts and paginates", func(t *testing.T) {
		repo := NewAttendanceRepository()
		for i, h := range []float64{6, 8, 7} {
			_, err := repo.Create(ctx, entryAt("emp-1", base.AddDate(0, 0, i), hours(h)))
			require.NoError(t, err)
		}

		filter := attendance.EntryFilter{SortBy: "total_hours", SortOrder: "asc", Limit: 2}
		require.NoError(t, filter.Validate())
		page, total, err := repo.List(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, page, 2)
		assert.Equal(t, 6.0, *page[0].TotalHours)
		assert.Equal(t, 7.0, *page[1].TotalHours)

		filter.Page = 3
		page, _, err = repo.List(ctx, filter)
		require.NoError(t, err)
		assert.Empty(t, page)
	})

	t.Run("delete", func(t *testing.T) {
		repo := NewAttendanceRepository()
		created, err := repo.Create(ctx, entryAt("emp-1", base, nil))
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, created.ID))
		assert.ErrorIs(t, repo.Delete(ctx, created.ID), attendance.ErrEntryNotFound)
	})
}

func TestWorkSessionRepository(t *testing.T) {
	ctx := context.Background()

	newSession := func(t *testing.T, repo worksession.SessionRepository) worksession.Session {
		t.Helper()
		s, err := repo.Create(ctx, worksession.Session{
			EmployeeID:     "emp-1",
			Title:          "Review",
			StartTime:      base,
			Status:         worksession.StatusRunning,
			LastActivityAt: base,
		})
		require.NoError(t, err)
		return s
	}

	t.Run("concurrent appends keep a gapless sequence", func(t *testing.T) {
		repo := NewWorkSessionRepository()
		s := newSession(t, repo)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.AppendSample(ctx, s.ID, func(worksession.Session) (worksession.Sample, error) {
					return worksession.Sample{Timestamp: base.Add(time.Duration(i) * time.Minute), IntervalMinutes: 1}, nil
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, got.Samples, 50)
		for i, sample := range got.Samples {
			assert.Equal(t, i+1, sample.Seq)
		}
		assert.Equal(t, base.Add(49*time.Minute), got.LastActivityAt)
		assert.Equal(t, 51, got.Version)
	})

	t.Run("appends invalidate older copies", func(t *testing.T) {
		repo := NewWorkSessionRepository()
		s := newSession(t, repo)

		_, err := repo.AppendScreenshot(ctx, s.ID, func(worksession.Session) (worksession.Screenshot, error) {
			return worksession.Screenshot{Timestamp: base}, nil
		})
		require.NoError(t, err)

		s.Status = worksession.StatusPaused
		_, err = repo.Update(ctx, s)
		assert.ErrorIs(t, err, worksession.ErrConcurrentUpdate)
	})

	t.Run("update keeps appended rows", func(t *testing.T) {
		repo := NewWorkSessionRepository()
		s := newSession(t, repo)
		_, err := repo.AppendSample(ctx, s.ID, func(worksession.Session) (worksession.Sample, error) {
			return worksession.Sample{Timestamp: base, IntervalMinutes: 5}, nil
		})
		require.NoError(t, err)

		current, err := repo.GetByID(ctx, s.ID)
		require.NoError(t, err)
		current.Samples = nil
		current.Notes = "edited"
		saved, err := repo.Update(ctx, current)
		require.NoError(t, err)
		assert.Len(t, saved.Samples, 1)
		assert.Equal(t, "edited", saved.Notes)
	})

	t.Run("build errors write nothing", func(t *testing.T) {
		repo := NewWorkSessionRepository()
		s := newSession(t, repo)

		_, err := repo.AppendSample(ctx, s.ID, func(worksession.Session) (worksession.Sample, error) {
			return worksession.Sample{}, worksession.ErrNotRunning
		})
		assert.ErrorIs(t, err, worksession.ErrNotRunning)

		got, err := repo.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Samples)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("soft delete", func(t *testing.T) {
		repo := NewWorkSessionRepository()
		s := newSession(t, repo)
		shot, err := repo.AppendScreenshot(ctx, s.ID, func(worksession.Session) (worksession.Screenshot, error) {
			return worksession.Screenshot{Timestamp: base}, nil
		})
		require.NoError(t, err)

		deleted, err := repo.SoftDeleteScreenshot(ctx, s.ID, shot.ID, base.Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, deleted.IsDeleted)

		_, err = repo.SoftDeleteScreenshot(ctx, s.ID, shot.ID, base)
		assert.ErrorIs(t, err, worksession.ErrScreenshotAlreadyDeleted)

		_, err = repo.SoftDeleteScreenshot(ctx, s.ID, "missing", base)
		assert.ErrorIs(t, err, worksession.ErrScreenshotNotFound)

		_, err = repo.SoftDeleteScreenshot(ctx, "missing", shot.ID, base)
		assert.ErrorIs(t, err, worksession.ErrSessionNotFound)
	})

	t.Run("stale and finalized listings", func(t *testing.T) {
		repo := NewWorkSessionRepository()
		running := newSession(t, repo)
		stopped := newSession(t, repo)
		stopped.Status = worksession.StatusStopped
		stopped.Totals = &worksession.Totals{DurationMinutes: 30}
		_, err := repo.Update(ctx, stopped)
		require.NoError(t, err)

		stale, err := repo.ListStale(ctx, base.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, running.ID, stale[0].ID)

		finalized, err := repo.ListFinalized(ctx, "emp-1", base, base.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, finalized, 1)
		assert.Equal(t, stopped.ID, finalized[0].ID)

		finalized, err = repo.ListFinalized(ctx, "emp-1", base.Add(time.Minute), base.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, finalized)
	})
}
