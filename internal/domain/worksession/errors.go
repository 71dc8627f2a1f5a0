package worksession

import "github.com/cmlabs-hris/hris-timekeeping/internal/pkg/apperr"

// Work session domain errors
var (
	// Lifecycle errors
	ErrSessionNotFound     = apperr.NotFound("work session not found")
	ErrNotRunning          = apperr.Conflict("work session is not running")
	ErrNotPaused           = apperr.Conflict("work session is not paused")
	ErrAlreadyStopped      = apperr.Conflict("work session is already stopped")
	ErrNotStopped          = apperr.Conflict("only a stopped work session can be archived")
	ErrArchived            = apperr.Conflict("work session is archived")
	ErrConcurrentUpdate    = apperr.Conflict("work session was modified concurrently, reload and retry")
	ErrInvalidTimezone     = apperr.Validation("timezone is not a valid IANA time zone")
	ErrInvalidMonth        = apperr.Validation("month must be between 1 and 12")
	ErrSessionNotCapturing = apperr.Conflict("screenshots can only be captured while the session is running or paused")

	// Screenshot errors
	ErrScreenshotNotFound       = apperr.NotFound("screenshot not found")
	ErrScreenshotAlreadyDeleted = apperr.Conflict("screenshot is already deleted")
	ErrScreenshotLimitReached   = apperr.Capacity("screenshot limit reached for this session")

	// General errors
	ErrForbidden = apperr.Permission("not allowed to access this work session")
)
