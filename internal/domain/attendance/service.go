package attendance

import (
	"context"
)

// EntryService implements the attendance ledger. The acting employee is read
// from the context; every operation on another employee's entry requires an
// elevated role.
type EntryService interface {
	// CheckIn opens a new entry for the acting employee
	CheckIn(ctx context.Context, req CheckInRequest) (EntryResponse, error)

	// CheckOut closes an open entry
	CheckOut(ctx context.Context, req CheckOutRequest) (EntryResponse, error)

	StartBreak(ctx context.Context, req BreakStartRequest) (EntryResponse, error)
	EndBreak(ctx context.Context, req BreakEndRequest) (EntryResponse, error)
	StartNamaz(ctx context.Context, req NamazStartRequest) (EntryResponse, error)
	EndNamaz(ctx context.Context, req NamazEndRequest) (EntryResponse, error)

	// UpdateTasks replaces the completed task list of a closed entry
	UpdateTasks(ctx context.Context, req UpdateTasksRequest) (EntryResponse, error)

	UpdateNotes(ctx context.Context, req UpdateNotesRequest) (EntryResponse, error)

	// Delete removes an entry (elevated roles only)
	Delete(ctx context.Context, id string) error

	Get(ctx context.Context, id string) (EntryResponse, error)

	// List is scoped to the acting employee unless the actor is elevated
	List(ctx context.Context, filter EntryFilter) (ListEntriesResponse, error)

	Stats(ctx context.Context, filter EntryFilter) (EntryStatsResponse, error)

	// Export renders the matching entries as an XLSX workbook
	Export(ctx context.Context, filter EntryFilter) ([]byte, error)

	// AutoCloseStale closes entries left open past their shift boundary and
	// returns how many were closed
	AutoCloseStale(ctx context.Context) (int, error)
}
