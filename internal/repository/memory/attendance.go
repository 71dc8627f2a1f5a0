package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/attendance"
	"github.com/google/uuid"
)

type attendanceRepositoryImpl struct {
	mu      sync.RWMutex
	entries map[string]attendance.Entry
}

// NewAttendanceRepository returns an entry store kept in process memory.
func NewAttendanceRepository() attendance.EntryRepository {
	return &attendanceRepositoryImpl{entries: make(map[string]attendance.Entry)}
}

func (r *attendanceRepositoryImpl) Create(ctx context.Context, entry attendance.Entry) (attendance.Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Entry{}, fmt.Errorf("generate attendance id: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = id.String()
	entry.Version = 1
	r.entries[entry.ID] = entry.Clone()
	return entry, nil
}

func (r *attendanceRepositoryImpl) CreateUnlessOpen(ctx context.Context, entry attendance.Entry, onOpen func(open attendance.Entry) error) (attendance.Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Entry{}, fmt.Errorf("generate attendance id: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	day := entry.Date.Format(time.DateOnly)
	open, err := r.latestOpenLocked(func(e attendance.Entry) bool {
		return e.EmployeeID == entry.EmployeeID && e.Date.Format(time.DateOnly) == day
	})
	if err == nil {
		if err := onOpen(open); err != nil {
			return attendance.Entry{}, err
		}
	}

	entry.ID = id.String()
	entry.Version = 1
	r.entries[entry.ID] = entry.Clone()
	return entry, nil
}

func (r *attendanceRepositoryImpl) GetByID(ctx context.Context, id string) (attendance.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return attendance.Entry{}, attendance.ErrEntryNotFound
	}
	return e.Clone(), nil
}

func (r *attendanceRepositoryImpl) GetOpenByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (attendance.Entry, error) {
	day := date.Format(time.DateOnly)
	return r.latestOpen(func(e attendance.Entry) bool {
		return e.EmployeeID == employeeID && e.Date.Format(time.DateOnly) == day
	})
}

func (r *attendanceRepositoryImpl) GetLatestOpen(ctx context.Context, employeeID string) (attendance.Entry, error) {
	return r.latestOpen(func(e attendance.Entry) bool {
		return e.EmployeeID == employeeID
	})
}

func (r *attendanceRepositoryImpl) latestOpen(match func(attendance.Entry) bool) (attendance.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestOpenLocked(match)
}

// latestOpenLocked expects r.mu to be held.
func (r *attendanceRepositoryImpl) latestOpenLocked(match func(attendance.Entry) bool) (attendance.Entry, error) {
	var found *attendance.Entry
	for _, e := range r.entries {
		if !e.IsOpen() || !match(e) {
			continue
		}
		if found == nil || e.CheckIn.After(found.CheckIn) {
			e := e
			found = &e
		}
	}
	if found == nil {
		return attendance.Entry{}, attendance.ErrNotCheckedIn
	}
	return found.Clone(), nil
}

func (r *attendanceRepositoryImpl) Update(ctx context.Context, entry attendance.Entry) (attendance.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.entries[entry.ID]
	if !ok {
		return attendance.Entry{}, attendance.ErrEntryNotFound
	}
	if stored.Version != entry.Version {
		return attendance.Entry{}, attendance.ErrConcurrentUpdate
	}

	entry.Version++
	r.entries[entry.ID] = entry.Clone()
	return entry, nil
}

func (r *attendanceRepositoryImpl) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return attendance.ErrEntryNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *attendanceRepositoryImpl) List(ctx context.Context, filter attendance.EntryFilter) ([]attendance.Entry, int64, error) {
	all, err := r.ListAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(all))
	offset := (filter.Page - 1) * filter.Limit
	if offset < 0 || offset >= len(all) {
		return []attendance.Entry{}, total, nil
	}
	end := offset + filter.Limit
	if filter.Limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *attendanceRepositoryImpl) ListAll(ctx context.Context, filter attendance.EntryFilter) ([]attendance.Entry, error) {
	r.mu.RLock()
	out := make([]attendance.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if filter.Matches(e) {
			out = append(out, e.Clone())
		}
	}
	r.mu.RUnlock()

	sortEntries(out, filter.SortBy, filter.SortOrder)
	return out, nil
}

func (r *attendanceRepositoryImpl) ListOpenBefore(ctx context.Context, t time.Time) ([]attendance.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []attendance.Entry
	for _, e := range r.entries {
		if e.IsOpen() && e.CheckIn.Before(t) {
			out = append(out, e.Clone())
		}
	}
	sortEntries(out, "check_in", "asc")
	return out, nil
}

func sortEntries(entries []attendance.Entry, sortBy, order string) {
	less := func(a, b attendance.Entry) bool {
		switch sortBy {
		case "check_out":
			return timeOrZero(a.CheckOut).Before(timeOrZero(b.CheckOut))
		case "status":
			return a.Status < b.Status
		case "total_hours":
			return floatOrZero(a.TotalHours) < floatOrZero(b.TotalHours)
		case "date":
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
		}
		return a.CheckIn.Before(b.CheckIn)
	}

	desc := strings.EqualFold(order, "desc")
	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
