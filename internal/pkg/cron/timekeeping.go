package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/worksession"
)

const DefaultInterval = 15 * time.Minute

// TimekeepingJobs closes attendance entries and work sessions that were left
// open.
type TimekeepingJobs struct {
	attendanceService attendance.EntryService
	sessionService    worksession.SessionService
	interval          time.Duration
}

func NewTimekeepingJobs(attendanceService attendance.EntryService, sessionService worksession.SessionService, interval time.Duration) *TimekeepingJobs {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &TimekeepingJobs{
		attendanceService: attendanceService,
		sessionService:    sessionService,
		interval:          interval,
	}
}

func (j *TimekeepingJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("auto_close_stale_attendances", j.interval, j.AutoCloseStaleAttendances)
	scheduler.AddJob("auto_stop_stale_sessions", j.interval, j.AutoStopStaleSessions)
}

func (j *TimekeepingJobs) AutoCloseStaleAttendances(ctx context.Context) error {
	slog.Info("Cron: Starting auto-close stale attendances job")

	closed, err := j.attendanceService.AutoCloseStale(ctx)
	if err != nil {
		return fmt.Errorf("auto-close stale attendances: %w", err)
	}

	slog.Info("Cron: Auto-closed stale attendances", "count", closed)
	return nil
}

func (j *TimekeepingJobs) AutoStopStaleSessions(ctx context.Context) error {
	slog.Info("Cron: Starting auto-stop stale work sessions job")

	stopped, err := j.sessionService.AutoStopStale(ctx)
	if err != nil {
		return fmt.Errorf("auto-stop stale work sessions: %w", err)
	}

	slog.Info("Cron: Auto-stopped stale work sessions", "count", stopped)
	return nil
}
