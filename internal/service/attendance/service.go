package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/user"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/validator"
)

const (
	DefaultCheckoutGrace = 2 * time.Hour
	DefaultHalfDayHours  = 4.0

	autoCloseReason = "automatically closed at the end of the shift window"
	autoCloseTask   = "No check-out recorded"
)

// Config holds the attendance policy knobs.
type Config struct {
	Policy        attendance.ShiftPolicy
	Classifier    geo.Classifier
	CheckoutGrace time.Duration
	HalfDayHours  float64

	// Location decides the calendar date of a check-in.
	Location *time.Location
}

func (c Config) withDefaults() Config {
	if c.CheckoutGrace <= 0 {
		c.CheckoutGrace = DefaultCheckoutGrace
	}
	if c.HalfDayHours <= 0 {
		c.HalfDayHours = DefaultHalfDayHours
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.Classifier.ThresholdMeters <= 0 {
		c.Classifier.ThresholdMeters = geo.DefaultRemoteThresholdMeters
	}
	return c
}

type AttendanceServiceImpl struct {
	attendance.EntryRepository
	clock clock.Clock
	cfg   Config
}

// timeToString formats an instant for responses.
func timeToString(t time.Time) string {
	return t.Format(time.RFC3339)
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := timeToString(*t)
	return &s
}

func (a *AttendanceServiceImpl) now() time.Time {
	return a.clock.Now().In(a.cfg.Location)
}

func today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// CheckIn implements attendance.EntryService.
func (a *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EntryResponse{}, err
	}

	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return attendance.EntryResponse{}, err
	}

	now := a.now()
	shift := attendance.Shift(req.Shift)

	isLate, err := a.cfg.Policy.IsLate(shift, now)
	if err != nil {
		return attendance.EntryResponse{}, err
	}
	if isLate && validator.IsEmpty(req.Reason) {
		return attendance.EntryResponse{}, attendance.ErrLateReasonRequired
	}

	location := req.Location.ToLocation()
	isRemote := req.IsRemote
	if location != nil && a.cfg.Classifier.IsRemote(location.Point()) {
		isRemote = true
	}

	status := attendance.StatusPresent
	switch {
	case isLate:
		status = attendance.StatusLate
	case isRemote:
		status = attendance.StatusRemote
	}

	entry := attendance.Entry{
		EmployeeID:      actor.EmployeeID,
		Date:            today(now),
		CheckIn:         now,
		Shift:           shift,
		Status:          status,
		IsRemote:        isRemote,
		CheckInLocation: location,
		CheckInReason:   strings.TrimSpace(req.Reason),
		Notes:           req.Notes,
		Breaks:          []attendance.Break{},
		Namaz:           []attendance.Namaz{},
		TasksCompleted:  []attendance.Task{},
		Anomalous:       a.cfg.Policy.IsAnomalous(shift, now),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	attendance.Derive(&entry)

	created, err := a.EntryRepository.CreateUnlessOpen(ctx, entry, func(attendance.Entry) error {
		if !req.ConfirmAdditional {
			return attendance.ErrAlreadyCheckedIn
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
			return attendance.EntryResponse{}, err
		}
		return attendance.EntryResponse{}, fmt.Errorf("failed to create attendance entry: %w", err)
	}

	if created.Anomalous {
		slog.Warn("Night shift check-in outside both night windows", "entry_id", created.ID, "employee_id", created.EmployeeID, "check_in", created.CheckIn)
	}
	slog.Info("Checked in", "entry_id", created.ID, "employee_id", created.EmployeeID, "shift", created.Shift, "status", created.Status, "is_remote", created.IsRemote)

	return a.toResponse(created), nil
}

// CheckOut implements attendance.EntryService.
func (a *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EntryResponse{}, err
	}

	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return attendance.EntryResponse{}, err
	}

	now := a.now()

	entry, err := a.resolveCheckOutTarget(ctx, actor, req.EntryID, now)
	if err != nil {
		return attendance.EntryResponse{}, err
	}
	if !entry.IsOpen() {
		return attendance.EntryResponse{}, attendance.ErrAlreadyCheckedOut
	}
	if !now.After(entry.CheckIn) {
		return attendance.EntryResponse{}, attendance.ErrCheckOutBeforeCheckIn
	}

	boundary, err := a.cfg.Policy.Boundary(entry.Shift, entry.CheckIn)
	if err != nil {
		return attendance.EntryResponse{}, err
	}
	if now.After(boundary.Add(a.cfg.CheckoutGrace)) {
		return attendance.EntryResponse{}, attendance.ErrOutsideShiftWindow
	}

	updated := entry.Clone()
	attendance.CloseAt(&updated, now)
	updated.TasksCompleted = attendance.ToTasks(req.Tasks)
	updated.CheckOutLocation = req.Location.ToLocation()
	updated.CheckOutReason = strings.TrimSpace(req.Reason)

	if *updated.TotalHours < a.cfg.HalfDayHours {
		if updated.CheckOutReason == "" {
			return attendance.EntryResponse{}, attendance.ErrHalfDayReasonRequired
		}
		updated.Status = attendance.StatusHalfDay
	}
	updated.UpdatedAt = now

	saved, err := a.EntryRepository.Update(ctx, updated)
	if err != nil {
		if errors.Is(err, attendance.ErrConcurrentUpdate) {
			return attendance.EntryResponse{}, err
		}
		return attendance.EntryResponse{}, fmt.Errorf("failed to check out: %w", err)
	}

	slog.Info("Checked out", "entry_id", saved.ID, "employee_id", saved.EmployeeID, "total_hours", *saved.TotalHours, "status", saved.Status)

	return a.toResponse(saved), nil
}

// resolveCheckOutTarget prefers the explicit entry, then the latest open entry
// of today, then the latest open entry on any date so night shifts that
// crossed midnight still resolve.
func (a *AttendanceServiceImpl) resolveCheckOutTarget(ctx context.Context, actor user.Actor, entryID string, now time.Time) (attendance.Entry, error) {
	if entryID != "" {
		return a.getAccessible(ctx, actor, entryID)
	}

	entry, err := a.EntryRepository.GetOpenByEmployeeAndDate(ctx, actor.EmployeeID, today(now))
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, attendance.ErrNotCheckedIn) {
		return attendance.Entry{}, fmt.Errorf("failed to look up open attendance: %w", err)
	}

	entry, err = a.EntryRepository.GetLatestOpen(ctx, actor.EmployeeID)
	if err != nil {
		if errors.Is(err, attendance.ErrNotCheckedIn) {
			return attendance.Entry{}, err
		}
		return attendance.Entry{}, fmt.Errorf("failed to look up open attendance: %w", err)
	}
	return entry, nil
}

func (a *AttendanceServiceImpl) getAccessible(ctx context.Context, actor user.Actor, id string) (attendance.Entry, error) {
	entry, err := a.EntryRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, attendance.ErrEntryNotFound) {
			return attendance.Entry{}, err
		}
		return attendance.Entry{}, fmt.Errorf("failed to get attendance entry: %w", err)
	}
	if !actor.CanAccess(entry.EmployeeID) {
		return attendance.Entry{}, attendance.ErrForbidden
	}
	return entry, nil
}

// mutate loads an entry, applies fn to a copy and persists it. Nothing is
// written when fn fails.
func (a *AttendanceServiceImpl) mutate(ctx context.Context, id string, allowClosed bool, fn func(e *attendance.Entry, now time.Time) error) (attendance.Entry, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return attendance.Entry{}, err
	}

	entry, err := a.getAccessible(ctx, actor, id)
	if err != nil {
		return attendance.Entry{}, err
	}
	if !allowClosed && !entry.IsOpen() {
		return attendance.Entry{}, attendance.ErrEntryClosed
	}

	now := a.now()
	updated := entry.Clone()
	if err := fn(&updated, now); err != nil {
		return attendance.Entry{}, err
	}
	attendance.Derive(&updated)
	updated.UpdatedAt = now

	saved, err := a.EntryRepository.Update(ctx, updated)
	if err != nil {
		if errors.Is(err, attendance.ErrConcurrentUpdate) {
			return attendance.Entry{}, err
		}
		return attendance.Entry{}, fmt.Errorf("failed to update attendance entry: %w", err)
	}
	return saved, nil
}

// StartBreak implements attendance.EntryService.
func (a *AttendanceServiceImpl) StartBreak(ctx context.Context, req attendance.BreakStartRequest) (attendance.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EntryResponse{}, err
	}

	saved, err := a.mutate(ctx, req.EntryID, false, func(e *attendance.Entry, now time.Time) error {
		if e.OpenBreak() >= 0 {
			return attendance.ErrBreakAlreadyOpen
		}
		e.Breaks = append(e.Breaks, attendance.Break{Start: now, Category: attendance.BreakCategory(req.Category)})
		return nil
	})
	if err != nil {
		return attendance.EntryResponse{}, err
	}
	return a.toResponse(saved), nil
}

// EndBreak implements attendance.EntryService.
func (a *AttendanceServiceImpl) EndBreak(ctx context.Context, req attendance.BreakEndRequest) (attendance.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EntryResponse{}, err
	}

	saved, err := a.mutate(ctx, req.EntryID, false, func(e *attendance.Entry, now time.Time) error {
		i := e.OpenBreak()
		if i < 0 {
			return attendance.ErrNoOpenBreak
		}
		e.Breaks[i].End = &now
		return nil
	})
	if err != nil {
		return attendance.EntryResponse{}, err
	}
	return a.toResponse(saved), nil
}

// StartNamaz implements attendance.EntryService.
func (a *AttendanceServiceImpl) StartNamaz(ctx context.Context, req attendance.NamazStartRequest) (attendance.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EntryResponse{}, err
	}

	saved, err := a.mutate(ctx, req.EntryID, false, func(e *attendance.Entry, now time.Time) error {
		if e.OpenNamaz() >= 0 {
			return attendance.ErrNamazAlreadyOpen
		}
		e.Namaz = append(e.Namaz, attendance.Namaz{Start: now, Type: attendance.NamazType(req.Type)})
		return nil
	})
	if err != nil {
		return attendance.EntryResponse{}, err
	}
	return a.toResponse(saved), nil
}

// EndNamaz implements attendance.EntryService.
func (a *AttendanceServiceImpl) EndNamaz(ctx context.Context, req attendance.NamazEndRequest) (attendance.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EntryResponse{}, err
	}

	saved, err := a.mutate(ctx, req.EntryID, false, func(e *attendance.Entry, now time.Time) error {
		i := e.OpenNamaz()
		if i < 0 {
			return attendance.ErrNoOpenNamaz
		}
		e.Namaz[i].End = &now
		return nil
	})
	if err != nil {
		return attendance.EntryResponse{}, err
	}
	return a.toResponse(saved), nil
}

// UpdateTasks implements attendance.EntryService.
func (a *AttendanceServiceImpl) UpdateTasks(ctx context.Context, req attendance.UpdateTasksRequest) (attendance.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EntryResponse{}, err
	}

	saved, err := a.mutate(ctx, req.EntryID, true, func(e *attendance.Entry, _ time.Time) error {
		e.TasksCompleted = attendance.ToTasks(req.Tasks)
		return nil
	})
	if err != nil {
		return attendance.EntryResponse{}, err
	}
	return a.toResponse(saved), nil
}

// UpdateNotes implements attendance.EntryService.
func (a *AttendanceServiceImpl) UpdateNotes(ctx context.Context, req attendance.UpdateNotesRequest) (attendance.EntryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.EntryResponse{}, err
	}

	saved, err := a.mutate(ctx, req.EntryID, true, func(e *attendance.Entry, _ time.Time) error {
		e.Notes = req.Notes
		return nil
	})
	if err != nil {
		return attendance.EntryResponse{}, err
	}
	return a.toResponse(saved), nil
}

// Delete implements attendance.EntryService. Owners may delete only entries
// dated today; elevated roles may delete any entry.
func (a *AttendanceServiceImpl) Delete(ctx context.Context, id string) error {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return err
	}

	entry, err := a.EntryRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, attendance.ErrEntryNotFound) {
			return err
		}
		return fmt.Errorf("failed to get attendance entry: %w", err)
	}

	sameDay := entry.Date.Format(time.DateOnly) == today(a.now()).Format(time.DateOnly)
	ownEntry := entry.EmployeeID == actor.EmployeeID
	if !user.HasPermission(actor.Role, user.PermissionAttendanceDelete) && !(ownEntry && sameDay) {
		return attendance.ErrForbidden
	}

	if err := a.EntryRepository.Delete(ctx, id); err != nil {
		if errors.Is(err, attendance.ErrEntryNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete attendance entry: %w", err)
	}

	slog.Info("Deleted attendance entry", "entry_id", id, "employee_id", entry.EmployeeID, "deleted_by", actor.EmployeeID)
	return nil
}

// Get implements attendance.EntryService.
func (a *AttendanceServiceImpl) Get(ctx context.Context, id string) (attendance.EntryResponse, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return attendance.EntryResponse{}, err
	}

	entry, err := a.getAccessible(ctx, actor, id)
	if err != nil {
		return attendance.EntryResponse{}, err
	}
	return a.toResponse(entry), nil
}

// scopeFilter restricts regular employees to their own entries.
func scopeFilter(ctx context.Context, filter *attendance.EntryFilter) error {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return err
	}
	if !user.HasPermission(actor.Role, user.PermissionAttendanceViewAll) {
		filter.EmployeeID = &actor.EmployeeID
	}
	return nil
}

// List implements attendance.EntryService.
func (a *AttendanceServiceImpl) List(ctx context.Context, filter attendance.EntryFilter) (attendance.ListEntriesResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListEntriesResponse{}, err
	}
	if err := scopeFilter(ctx, &filter); err != nil {
		return attendance.ListEntriesResponse{}, err
	}

	entries, total, err := a.EntryRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListEntriesResponse{}, fmt.Errorf("failed to list attendance entries: %w", err)
	}

	// Map to response
	responses := make([]attendance.EntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, a.toResponse(e))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListEntriesResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Entries:    responses,
	}, nil
}

// Stats implements attendance.EntryService.
func (a *AttendanceServiceImpl) Stats(ctx context.Context, filter attendance.EntryFilter) (attendance.EntryStatsResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.EntryStatsResponse{}, err
	}
	if err := scopeFilter(ctx, &filter); err != nil {
		return attendance.EntryStatsResponse{}, err
	}

	entries, err := a.EntryRepository.ListAll(ctx, filter)
	if err != nil {
		return attendance.EntryStatsResponse{}, fmt.Errorf("failed to list attendance entries: %w", err)
	}

	var stats attendance.EntryStatsResponse
	for _, e := range entries {
		stats.TotalEntries++
		stats.TotalBreakMinutes += e.TotalBreakMinutes
		stats.TotalNamazMinutes += e.TotalNamazMinutes

		switch e.Status {
		case attendance.StatusPresent:
			stats.PresentCount++
		case attendance.StatusLate:
			stats.LateCount++
		case attendance.StatusHalfDay:
			stats.HalfDayCount++
		}
		if e.IsRemote {
			stats.RemoteCount++
		}

		if e.IsOpen() {
			stats.OpenEntries++
			continue
		}
		stats.CompletedEntries++
		if e.TotalHours != nil {
			stats.TotalHours += *e.TotalHours
		}
	}

	stats.TotalHours = attendance.Round2(stats.TotalHours)
	if stats.CompletedEntries > 0 {
		stats.AverageHours = attendance.Round2(stats.TotalHours / float64(stats.CompletedEntries))
	}
	return stats, nil
}

// AutoCloseStale implements attendance.EntryService.
func (a *AttendanceServiceImpl) AutoCloseStale(ctx context.Context) (int, error) {
	now := a.now()

	// A boundary never precedes its check-in, so newer entries cannot be stale yet.
	entries, err := a.EntryRepository.ListOpenBefore(ctx, now.Add(-a.cfg.CheckoutGrace))
	if err != nil {
		return 0, fmt.Errorf("failed to list open attendance entries: %w", err)
	}

	closed := 0
	for _, entry := range entries {
		boundary, err := a.cfg.Policy.Boundary(entry.Shift, entry.CheckIn)
		if err != nil {
			slog.Warn("Skipping attendance entry with unknown shift", "entry_id", entry.ID, "shift", entry.Shift)
			continue
		}
		if !now.After(boundary.Add(a.cfg.CheckoutGrace)) {
			continue
		}

		updated := entry.Clone()
		attendance.CloseAt(&updated, boundary)
		updated.AutoClosed = true
		updated.CheckOutReason = autoCloseReason
		if len(updated.TasksCompleted) == 0 {
			updated.TasksCompleted = []attendance.Task{{Task: autoCloseTask}}
		}
		updated.UpdatedAt = now

		if _, err := a.EntryRepository.Update(ctx, updated); err != nil {
			if errors.Is(err, attendance.ErrConcurrentUpdate) {
				slog.Info("Attendance entry changed while auto-closing, skipping", "entry_id", entry.ID)
				continue
			}
			return closed, fmt.Errorf("failed to auto-close attendance entry %s: %w", entry.ID, err)
		}
		closed++
		slog.Info("Auto-closed stale attendance entry", "entry_id", entry.ID, "employee_id", entry.EmployeeID, "boundary", boundary)
	}

	return closed, nil
}

func (a *AttendanceServiceImpl) toResponse(e attendance.Entry) attendance.EntryResponse {
	breaks := make([]attendance.BreakResponse, 0, len(e.Breaks))
	for _, b := range e.Breaks {
		breaks = append(breaks, attendance.BreakResponse{
			Start:    timeToString(b.Start),
			End:      timePtrToString(b.End),
			Category: string(b.Category),
			Minutes:  attendance.IntervalMinutes(b.Start, b.End),
		})
	}

	namaz := make([]attendance.NamazResponse, 0, len(e.Namaz))
	for _, n := range e.Namaz {
		namaz = append(namaz, attendance.NamazResponse{
			Start:   timeToString(n.Start),
			End:     timePtrToString(n.End),
			Type:    string(n.Type),
			Minutes: attendance.IntervalMinutes(n.Start, n.End),
		})
	}

	tasks := e.TasksCompleted
	if tasks == nil {
		tasks = []attendance.Task{}
	}

	var boundary string
	if b, err := a.cfg.Policy.Boundary(e.Shift, e.CheckIn); err == nil {
		boundary = timeToString(b)
	}

	return attendance.EntryResponse{
		ID:                e.ID,
		EmployeeID:        e.EmployeeID,
		Date:              e.Date.Format(time.DateOnly),
		CheckIn:           timeToString(e.CheckIn),
		CheckOut:          timePtrToString(e.CheckOut),
		Shift:             string(e.Shift),
		ShiftBoundary:     boundary,
		Status:            string(e.Status),
		IsRemote:          e.IsRemote,
		CheckInLocation:   e.CheckInLocation,
		CheckOutLocation:  e.CheckOutLocation,
		CheckInReason:     e.CheckInReason,
		CheckOutReason:    e.CheckOutReason,
		Notes:             e.Notes,
		Breaks:            breaks,
		Namaz:             namaz,
		TasksCompleted:    tasks,
		TotalBreakMinutes: e.TotalBreakMinutes,
		TotalNamazMinutes: e.TotalNamazMinutes,
		TotalHours:        e.TotalHours,
		Anomalous:         e.Anomalous,
		AutoClosed:        e.AutoClosed,
		CreatedAt:         timeToString(e.CreatedAt),
		UpdatedAt:         timeToString(e.UpdatedAt),
	}
}

func NewAttendanceService(repo attendance.EntryRepository, clk clock.Clock, cfg Config) attendance.EntryService {
	if clk == nil {
		clk = clock.System()
	}
	return &AttendanceServiceImpl{
		EntryRepository: repo,
		clock:           clk,
		cfg:             cfg.withDefaults(),
	}
}
