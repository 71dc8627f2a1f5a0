package worksession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/user"
	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/worksession"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/clock"
)

const (
	DefaultScreenshotCeiling = 2000
	DefaultStaleAfter        = 12 * time.Hour
)

// ScreenshotStore keeps screenshot images; file.FileService satisfies it.
type ScreenshotStore interface {
	UploadScreenshot(ctx context.Context, employeeID, sessionID string, file io.Reader, filename string) (string, error)
	DeleteFile(ctx context.Context, path string) error
}

type Config struct {
	ScreenshotCeiling int
	StaleAfter        time.Duration
	Score             worksession.ScoreFunc

	// Location buckets sessions into calendar days for statistics.
	Location *time.Location
}

func (c Config) withDefaults() Config {
	if c.ScreenshotCeiling <= 0 {
		c.ScreenshotCeiling = DefaultScreenshotCeiling
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.Score == nil {
		c.Score = worksession.DefaultScore
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

type WorkSessionServiceImpl struct {
	worksession.SessionRepository
	screenshots ScreenshotStore
	clock       clock.Clock
	cfg         Config
}

func (w *WorkSessionServiceImpl) now() time.Time {
	return w.clock.Now().In(w.cfg.Location)
}

// Start implements worksession.SessionService.
func (w *WorkSessionServiceImpl) Start(ctx context.Context, req worksession.StartRequest) (worksession.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return worksession.SessionResponse{}, err
	}

	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return worksession.SessionResponse{}, err
	}

	now := w.now()
	session := worksession.Session{
		EmployeeID:     actor.EmployeeID,
		ProjectID:      req.ProjectID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		StartTime:      now,
		Status:         worksession.StatusRunning,
		HourlyRate:     req.HourlyRate,
		Timezone:       req.Timezone,
		Tasks:          []worksession.Task{},
		LastActivityAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := w.SessionRepository.Create(ctx, session)
	if err != nil {
		return worksession.SessionResponse{}, fmt.Errorf("failed to create work session: %w", err)
	}

	slog.Info("Work session started", "session_id", created.ID, "employee_id", created.EmployeeID)
	return toResponse(created, false), nil
}

func (w *WorkSessionServiceImpl) getAccessible(ctx context.Context, actor user.Actor, id string) (worksession.Session, error) {
	session, err := w.SessionRepository.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, worksession.ErrSessionNotFound) {
			return worksession.Session{}, err
		}
		return worksession.Session{}, fmt.Errorf("failed to get work session: %w", err)
	}
	if !actor.CanAccess(session.EmployeeID) {
		return worksession.Session{}, worksession.ErrForbidden
	}
	return session, nil
}

// transition applies fn to a copy of the session and persists it with a
// version check. Nothing is written when fn fails.
func (w *WorkSessionServiceImpl) transition(ctx context.Context, id string, fn func(s *worksession.Session, now time.Time) error) (worksession.Session, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return worksession.Session{}, err
	}

	session, err := w.getAccessible(ctx, actor, id)
	if err != nil {
		return worksession.Session{}, err
	}

	now := w.now()
	updated := session.Clone()
	if err := fn(&updated, now); err != nil {
		return worksession.Session{}, err
	}
	updated.UpdatedAt = now

	saved, err := w.SessionRepository.Update(ctx, updated)
	if err != nil {
		if errors.Is(err, worksession.ErrConcurrentUpdate) {
			return worksession.Session{}, err
		}
		return worksession.Session{}, fmt.Errorf("failed to update work session: %w", err)
	}
	return saved, nil
}

// Pause implements worksession.SessionService.
func (w *WorkSessionServiceImpl) Pause(ctx context.Context, id string) (worksession.SessionResponse, error) {
	saved, err := w.transition(ctx, id, func(s *worksession.Session, now time.Time) error {
		if s.Status != worksession.StatusRunning {
			return worksession.ErrNotRunning
		}
		s.Status = worksession.StatusPaused
		s.PausedAt = &now
		return nil
	})
	if err != nil {
		return worksession.SessionResponse{}, err
	}

	slog.Info("Work session paused", "session_id", saved.ID)
	return toResponse(saved, false), nil
}

// Resume implements worksession.SessionService.
func (w *WorkSessionServiceImpl) Resume(ctx context.Context, id string) (worksession.SessionResponse, error) {
	saved, err := w.transition(ctx, id, func(s *worksession.Session, now time.Time) error {
		if s.Status != worksession.StatusPaused {
			return worksession.ErrNotPaused
		}
		worksession.FoldPause(s, now)
		s.Status = worksession.StatusRunning
		s.LastActivityAt = now
		return nil
	})
	if err != nil {
		return worksession.SessionResponse{}, err
	}

	slog.Info("Work session resumed", "session_id", saved.ID, "paused_minutes", saved.PausedTime.Minutes())
	return toResponse(saved, false), nil
}

// Stop implements worksession.SessionService. Totals are frozen on the first
// successful stop.
func (w *WorkSessionServiceImpl) Stop(ctx context.Context, id string) (worksession.SessionResponse, error) {
	saved, err := w.transition(ctx, id, func(s *worksession.Session, now time.Time) error {
		if s.IsFinal() {
			return worksession.ErrAlreadyStopped
		}
		worksession.Finalize(s, now)
		return nil
	})
	if err != nil {
		return worksession.SessionResponse{}, err
	}

	slog.Info("Work session stopped", "session_id", saved.ID, "employee_id", saved.EmployeeID, "total_hours", saved.Totals.TotalHours, "productive_hours", saved.Totals.ProductiveHours)
	return toResponse(saved, false), nil
}

// Archive implements worksession.SessionService.
func (w *WorkSessionServiceImpl) Archive(ctx context.Context, id string) (worksession.SessionResponse, error) {
	saved, err := w.transition(ctx, id, func(s *worksession.Session, _ time.Time) error {
		switch s.Status {
		case worksession.StatusArchived:
			return worksession.ErrArchived
		case worksession.StatusStopped:
			s.Status = worksession.StatusArchived
			return nil
		default:
			return worksession.ErrNotStopped
		}
	})
	if err != nil {
		return worksession.SessionResponse{}, err
	}
	return toResponse(saved, false), nil
}

// AddTask implements worksession.SessionService.
func (w *WorkSessionServiceImpl) AddTask(ctx context.Context, req worksession.AddTaskRequest) (worksession.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return worksession.SessionResponse{}, err
	}

	saved, err := w.transition(ctx, req.SessionID, func(s *worksession.Session, now time.Time) error {
		if s.Status == worksession.StatusArchived {
			return worksession.ErrArchived
		}
		s.Tasks = append(s.Tasks, req.ToTask(now))
		return nil
	})
	if err != nil {
		return worksession.SessionResponse{}, err
	}
	return toResponse(saved, false), nil
}

// UpdateNotes implements worksession.SessionService.
func (w *WorkSessionServiceImpl) UpdateNotes(ctx context.Context, req worksession.UpdateNotesRequest) (worksession.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return worksession.SessionResponse{}, err
	}

	saved, err := w.transition(ctx, req.SessionID, func(s *worksession.Session, _ time.Time) error {
		if s.Status == worksession.StatusArchived {
			return worksession.ErrArchived
		}
		s.Notes = req.Notes
		return nil
	})
	if err != nil {
		return worksession.SessionResponse{}, err
	}
	return toResponse(saved, false), nil
}

// Get implements worksession.SessionService.
func (w *WorkSessionServiceImpl) Get(ctx context.Context, id string) (worksession.SessionResponse, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return worksession.SessionResponse{}, err
	}

	session, err := w.getAccessible(ctx, actor, id)
	if err != nil {
		return worksession.SessionResponse{}, err
	}
	return toResponse(session, true), nil
}

// List implements worksession.SessionService.
func (w *WorkSessionServiceImpl) List(ctx context.Context, filter worksession.SessionFilter) (worksession.ListSessionsResponse, error) {
	if err := filter.Validate(); err != nil {
		return worksession.ListSessionsResponse{}, err
	}

	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return worksession.ListSessionsResponse{}, err
	}
	if !user.HasPermission(actor.Role, user.PermissionSessionViewAll) {
		filter.EmployeeID = &actor.EmployeeID
	}

	sessions, total, err := w.SessionRepository.List(ctx, filter)
	if err != nil {
		return worksession.ListSessionsResponse{}, fmt.Errorf("failed to list work sessions: %w", err)
	}

	responses := make([]worksession.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, toResponse(s, false))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return worksession.ListSessionsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Sessions:   responses,
	}, nil
}

// AutoStopStale implements worksession.SessionService. Stale sessions are
// finalized at their last activity, not at the time the job runs.
func (w *WorkSessionServiceImpl) AutoStopStale(ctx context.Context) (int, error) {
	cutoff := w.now().Add(-w.cfg.StaleAfter)

	stale, err := w.SessionRepository.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale work sessions: %w", err)
	}

	stopped := 0
	for _, candidate := range stale {
		session, err := w.SessionRepository.GetByID(ctx, candidate.ID)
		if err != nil {
			return stopped, fmt.Errorf("failed to load work session %s: %w", candidate.ID, err)
		}
		if session.Status != worksession.StatusRunning || !session.LastActivityAt.Before(cutoff) {
			continue
		}

		updated := session.Clone()
		worksession.Finalize(&updated, session.LastActivityAt)
		updated.AutoStopped = true
		updated.UpdatedAt = w.now()

		if _, err := w.SessionRepository.Update(ctx, updated); err != nil {
			if errors.Is(err, worksession.ErrConcurrentUpdate) {
				slog.Info("Work session changed while auto-stopping, skipping", "session_id", session.ID)
				continue
			}
			return stopped, fmt.Errorf("failed to auto-stop work session %s: %w", session.ID, err)
		}
		stopped++
		slog.Info("Auto-stopped stale work session", "session_id", session.ID, "employee_id", session.EmployeeID, "last_activity_at", session.LastActivityAt)
	}

	return stopped, nil
}

func toResponse(s worksession.Session, withScreenshots bool) worksession.SessionResponse {
	resp := worksession.SessionResponse{
		ID:              s.ID,
		EmployeeID:      s.EmployeeID,
		ProjectID:       s.ProjectID,
		Title:           s.Title,
		Description:     s.Description,
		Notes:           s.Notes,
		StartTime:       s.StartTime.Format(time.RFC3339),
		PausedMinutes:   math.Round(s.PausedTime.Minutes()*100) / 100,
		Status:          string(s.Status),
		HourlyRate:      s.HourlyRate,
		Timezone:        s.Timezone,
		SampleCount:     len(s.Samples),
		ScreenshotCount: s.ActiveScreenshots(),
		Tasks:           s.Tasks,
		Totals:          s.Totals,
		AutoStopped:     s.AutoStopped,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
	if s.EndTime != nil {
		end := s.EndTime.Format(time.RFC3339)
		resp.EndTime = &end
	}
	if resp.Tasks == nil {
		resp.Tasks = []worksession.Task{}
	}
	if withScreenshots {
		for _, sc := range s.Screenshots {
			if !sc.IsDeleted {
				resp.Screenshots = append(resp.Screenshots, sc)
			}
		}
	}
	return resp
}

func NewWorkSessionService(repo worksession.SessionRepository, screenshots ScreenshotStore, clk clock.Clock, cfg Config) worksession.SessionService {
	if clk == nil {
		clk = clock.System()
	}
	return &WorkSessionServiceImpl{
		SessionRepository: repo,
		screenshots:       screenshots,
		clock:             clk,
		cfg:               cfg.withDefaults(),
	}
}
