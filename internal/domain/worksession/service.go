package worksession

import (
	"context"
	"time"
)

// SessionService owns the work session state machine, activity ingestion and
// period statistics. The acting employee is read from the context.
type SessionService interface {
	Start(ctx context.Context, req StartRequest) (SessionResponse, error)
	Pause(ctx context.Context, id string) (SessionResponse, error)
	Resume(ctx context.Context, id string) (SessionResponse, error)

	// Stop finalizes the session totals; a second stop fails with ErrAlreadyStopped
	Stop(ctx context.Context, id string) (SessionResponse, error)

	// Archive is allowed only from stopped
	Archive(ctx context.Context, id string) (SessionResponse, error)

	RecordSample(ctx context.Context, req SampleRequest) (Sample, error)
	CaptureScreenshot(ctx context.Context, req ScreenshotRequest) (Screenshot, error)
	SoftDeleteScreenshot(ctx context.Context, sessionID, screenshotID string) (Screenshot, error)

	AddTask(ctx context.Context, req AddTaskRequest) (SessionResponse, error)
	UpdateNotes(ctx context.Context, req UpdateNotesRequest) (SessionResponse, error)

	Get(ctx context.Context, id string) (SessionResponse, error)
	List(ctx context.Context, filter SessionFilter) (ListSessionsResponse, error)

	// Stats only count stopped and archived sessions. An empty employeeID
	// means the acting employee.
	DailyStats(ctx context.Context, employeeID string, date time.Time) (PeriodStats, error)
	WeeklyStats(ctx context.Context, employeeID string, startOfWeek time.Time) (PeriodStats, error)
	MonthlyStats(ctx context.Context, employeeID string, month time.Month, year int) (PeriodStats, error)

	// AutoStopStale finalizes running sessions idle since before the stale
	// cutoff and returns how many were stopped
	AutoStopStale(ctx context.Context) (int, error)
}
