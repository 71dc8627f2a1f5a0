package attendance

import (
	"context"
	"time"
)

// EntryRepository persists attendance entries. Update is a compare-and-swap on
// Version and returns ErrConcurrentUpdate when the stored row moved on.
type EntryRepository interface {
	// Create stores a new entry and returns it with its assigned ID
	Create(ctx context.Context, entry Entry) (Entry, error)

	// CreateUnlessOpen stores entry like Create. When the employee already has
	// an open entry dated entry.Date, onOpen is called with it first and a
	// non-nil result aborts the insert. Lookup and insert run atomically per
	// employee and date.
	CreateUnlessOpen(ctx context.Context, entry Entry, onOpen func(open Entry) error) (Entry, error)

	// GetByID returns ErrEntryNotFound when no entry has the given ID
	GetByID(ctx context.Context, id string) (Entry, error)

	// GetOpenByEmployeeAndDate returns the most recent open entry of the
	// employee dated on date, or ErrNotCheckedIn
	GetOpenByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (Entry, error)

	// GetLatestOpen returns the most recent open entry of the employee on any
	// date, or ErrNotCheckedIn
	GetLatestOpen(ctx context.Context, employeeID string) (Entry, error)

	// Update writes entry when its Version matches the stored one and bumps it
	Update(ctx context.Context, entry Entry) (Entry, error)

	// Delete removes an entry permanently
	Delete(ctx context.Context, id string) error

	// List returns one page of entries matching filter and the total match count
	List(ctx context.Context, filter EntryFilter) ([]Entry, int64, error)

	// ListAll returns every entry matching filter, ignoring pagination
	ListAll(ctx context.Context, filter EntryFilter) ([]Entry, error)

	// ListOpenBefore returns open entries whose check-in happened before t
	ListOpenBefore(ctx context.Context, t time.Time) ([]Entry, error)
}
