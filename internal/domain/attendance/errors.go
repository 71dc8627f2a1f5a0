package attendance

import "github.com/cmlabs-hris/hris-timekeeping/internal/pkg/apperr"

// Attendance domain errors
var (
	// Check-in errors
	ErrAlreadyCheckedIn   = apperr.Conflict("already checked in today")
	ErrInvalidShift       = apperr.Validation("shift must be one of: morning, evening, night, flexible")
	ErrLateReasonRequired = apperr.Validation("a reason is required for a late check-in")

	// Check-out errors
	ErrNotCheckedIn          = apperr.NotFound("no open attendance entry found")
	ErrAlreadyCheckedOut     = apperr.Conflict("attendance entry is already checked out")
	ErrOutsideShiftWindow    = apperr.Validation("check-out is outside the shift window")
	ErrCheckOutBeforeCheckIn = apperr.Validation("check-out must be after check-in")
	ErrHalfDayReasonRequired = apperr.Validation("a reason is required when checking out before a half day is worked")

	// Interval errors
	ErrEntryClosed      = apperr.Conflict("attendance entry is checked out and can no longer change")
	ErrBreakAlreadyOpen = apperr.Conflict("a break is already in progress")
	ErrNoOpenBreak      = apperr.Validation("no break is in progress")
	ErrNamazAlreadyOpen = apperr.Conflict("a prayer break is already in progress")
	ErrNoOpenNamaz      = apperr.Validation("no prayer break is in progress")
	ErrConcurrentUpdate = apperr.Conflict("attendance entry was modified concurrently, reload and retry")

	// General errors
	ErrEntryNotFound = apperr.NotFound("attendance entry not found")
	ErrForbidden     = apperr.Permission("not allowed to access this attendance entry")
)
