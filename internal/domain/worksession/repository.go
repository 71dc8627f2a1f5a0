package worksession

import (
	"context"
	"time"
)

// SessionRepository persists work sessions. Update compares Version and
// returns ErrConcurrentUpdate on mismatch. The Append methods run build while
// holding the session exclusively so appends keep submission order.
type SessionRepository interface {
	// Create stores a new session and returns it with its assigned ID
	Create(ctx context.Context, session Session) (Session, error)

	// GetByID loads the session with its samples, screenshots and tasks
	GetByID(ctx context.Context, id string) (Session, error)

	// Update writes the scalar fields and tasks of session
	Update(ctx context.Context, session Session) (Session, error)

	// AppendSample locks the session, calls build with it and stores the
	// returned sample with the next sequence number
	AppendSample(ctx context.Context, sessionID string, build func(Session) (Sample, error)) (Sample, error)

	// AppendScreenshot locks the session, calls build with it and stores the
	// returned screenshot. The session passed to build carries its screenshots
	AppendScreenshot(ctx context.Context, sessionID string, build func(Session) (Screenshot, error)) (Screenshot, error)

	// SoftDeleteScreenshot marks a screenshot deleted at the given instant
	SoftDeleteScreenshot(ctx context.Context, sessionID, screenshotID string, at time.Time) (Screenshot, error)

	// List returns one page of sessions (without samples and screenshots)
	List(ctx context.Context, filter SessionFilter) ([]Session, int64, error)

	// ListFinalized returns stopped and archived sessions of employeeID whose
	// start time falls in [from, to), with their screenshots
	ListFinalized(ctx context.Context, employeeID string, from, to time.Time) ([]Session, error)

	// ListStale returns running sessions whose last activity is before t
	ListStale(ctx context.Context, t time.Time) ([]Session, error)
}
