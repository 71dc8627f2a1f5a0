package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/worksession"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `
	id, employee_id, project_id, title, description, notes, start_time, end_time,
	paused_ms, paused_at, status, hourly_rate, timezone, tasks_completed, totals,
	auto_stopped, last_activity_at, version, created_at, updated_at`

const sampleColumns = `
	seq, timestamp, keystrokes, mouse_clicks, mouse_moves, scrolls,
	active_window_title, active_application_name, productivity_score, is_idle, interval_minutes`

const screenshotColumns = `
	id, seq, timestamp, interval_start, interval_end, activity_level, keystrokes, mouse_clicks,
	is_manual_capture, is_blurred, is_deleted, deleted_at, image_url`

type workSessionRepository struct {
	db *database.DB
}

func scanSession(row pgx.Row) (worksession.Session, error) {
	var s worksession.Session
	var pausedMs int64
	err := row.Scan(
		&s.ID, &s.EmployeeID, &s.ProjectID, &s.Title, &s.Description, &s.Notes, &s.StartTime, &s.EndTime,
		&pausedMs, &s.PausedAt, &s.Status, &s.HourlyRate, &s.Timezone, &s.Tasks, &s.Totals,
		&s.AutoStopped, &s.LastActivityAt, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	s.PausedTime = time.Duration(pausedMs) * time.Millisecond
	return s, err
}

func scanScreenshot(row pgx.Row) (worksession.Screenshot, error) {
	var sc worksession.Screenshot
	err := row.Scan(
		&sc.ID, &sc.Seq, &sc.Timestamp, &sc.IntervalStart, &sc.IntervalEnd, &sc.ActivityLevel, &sc.Keystrokes, &sc.MouseClicks,
		&sc.IsManualCapture, &sc.IsBlurred, &sc.IsDeleted, &sc.DeletedAt, &sc.ImageURL,
	)
	return sc, err
}

func collectSessions(rows pgx.Rows) ([]worksession.Session, error) {
	defer rows.Close()

	sessions := []worksession.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Create implements worksession.SessionRepository.
func (w *workSessionRepository) Create(ctx context.Context, session worksession.Session) (worksession.Session, error) {
	q := GetQuerier(ctx, w.db)

	id, err := uuid.NewV7()
	if err != nil {
		return worksession.Session{}, fmt.Errorf("generate work session id: %w", err)
	}

	query := `
		INSERT INTO work_sessions (
			id, employee_id, project_id, title, description, notes, start_time, end_time,
			paused_ms, paused_at, status, hourly_rate, timezone, tasks_completed, totals,
			auto_stopped, last_activity_at, version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1, $18, $19
		) RETURNING ` + sessionColumns

	created, err := scanSession(q.QueryRow(ctx, query,
		id.String(),
		session.EmployeeID,
		session.ProjectID,
		session.Title,
		session.Description,
		session.Notes,
		session.StartTime,
		session.EndTime,
		session.PausedTime.Milliseconds(),
		session.PausedAt,
		session.Status,
		session.HourlyRate,
		session.Timezone,
		nonNil(session.Tasks),
		session.Totals,
		session.AutoStopped,
		session.LastActivityAt,
		session.CreatedAt,
		session.UpdatedAt,
	))
	if err != nil {
		return worksession.Session{}, fmt.Errorf("failed to create work session: %w", err)
	}

	created.Samples = []worksession.Sample{}
	created.Screenshots = []worksession.Screenshot{}
	return created, nil
}

func (w *workSessionRepository) getSession(ctx context.Context, id string, forUpdate bool) (worksession.Session, error) {
	q := GetQuerier(ctx, w.db)

	if _, err := uuid.Parse(id); err != nil {
		return worksession.Session{}, worksession.ErrSessionNotFound
	}

	query := `SELECT ` + sessionColumns + ` FROM work_sessions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	s, err := scanSession(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return worksession.Session{}, worksession.ErrSessionNotFound
		}
		return worksession.Session{}, fmt.Errorf("failed to get work session by ID: %w", err)
	}
	return s, nil
}

func (w *workSessionRepository) loadSamples(ctx context.Context, sessionID string) ([]worksession.Sample, error) {
	q := GetQuerier(ctx, w.db)

	rows, err := q.Query(ctx, `SELECT `+sampleColumns+` FROM activity_samples WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity samples: %w", err)
	}
	defer rows.Close()

	samples := []worksession.Sample{}
	for rows.Next() {
		var s worksession.Sample
		if err := rows.Scan(
			&s.Seq, &s.Timestamp, &s.Keystrokes, &s.MouseClicks, &s.MouseMoves, &s.Scrolls,
			&s.ActiveWindowTitle, &s.ActiveApplicationName, &s.ProductivityScore, &s.IsIdle, &s.IntervalMinutes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// loadScreenshots returns the screenshots of the given sessions keyed by
// session ID, in capture order.
func (w *workSessionRepository) loadScreenshots(ctx context.Context, sessionIDs []string) (map[string][]worksession.Screenshot, error) {
	q := GetQuerier(ctx, w.db)
	out := make(map[string][]worksession.Screenshot, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}

	rows, err := q.Query(ctx, `
		SELECT session_id, `+screenshotColumns+`
		FROM session_screenshots
		WHERE session_id = ANY($1::uuid[])
		ORDER BY session_id, seq
	`, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query screenshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sessionID string
		var sc worksession.Screenshot
		if err := rows.Scan(
			&sessionID,
			&sc.ID, &sc.Seq, &sc.Timestamp, &sc.IntervalStart, &sc.IntervalEnd, &sc.ActivityLevel, &sc.Keystrokes, &sc.MouseClicks,
			&sc.IsManualCapture, &sc.IsBlurred, &sc.IsDeleted, &sc.DeletedAt, &sc.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan screenshot: %w", err)
		}
		out[sessionID] = append(out[sessionID], sc)
	}
	return out, rows.Err()
}

// withScreenshots fills the Screenshots of every session in place.
func (w *workSessionRepository) withScreenshots(ctx context.Context, sessions []worksession.Session) error {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	shots, err := w.loadScreenshots(ctx, ids)
	if err != nil {
		return err
	}
	for i := range sessions {
		sessions[i].Screenshots = nonNil(shots[sessions[i].ID])
	}
	return nil
}

// GetByID implements worksession.SessionRepository.
func (w *workSessionRepository) GetByID(ctx context.Context, id string) (worksession.Session, error) {
	s, err := w.getSession(ctx, id, false)
	if err != nil {
		return worksession.Session{}, err
	}

	if s.Samples, err = w.loadSamples(ctx, id); err != nil {
		return worksession.Session{}, err
	}
	sessions := []worksession.Session{s}
	if err := w.withScreenshots(ctx, sessions); err != nil {
		return worksession.Session{}, err
	}
	return sessions[0], nil
}

// Update implements worksession.SessionRepository.
func (w *workSessionRepository) Update(ctx context.Context, session worksession.Session) (worksession.Session, error) {
	q := GetQuerier(ctx, w.db)

	query := `
		UPDATE work_sessions SET
			notes = $3,
			end_time = $4,
			paused_ms = $5,
			paused_at = $6,
			status = $7,
			tasks_completed = $8,
			totals = $9,
			auto_stopped = $10,
			last_activity_at = $11,
			updated_at = $12,
			version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING ` + sessionColumns

	if _, err := scanSession(q.QueryRow(ctx, query,
		session.ID,
		session.Version,
		session.Notes,
		session.EndTime,
		session.PausedTime.Milliseconds(),
		session.PausedAt,
		session.Status,
		nonNil(session.Tasks),
		session.Totals,
		session.AutoStopped,
		session.LastActivityAt,
		session.UpdatedAt,
	)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := w.getSession(ctx, session.ID, false); getErr != nil {
				return worksession.Session{}, getErr
			}
			return worksession.Session{}, worksession.ErrConcurrentUpdate
		}
		return worksession.Session{}, fmt.Errorf("failed to update work session: %w", err)
	}

	return w.GetByID(ctx, session.ID)
}

// AppendSample implements worksession.SessionRepository.
func (w *workSessionRepository) AppendSample(ctx context.Context, sessionID string, build func(worksession.Session) (worksession.Sample, error)) (worksession.Sample, error) {
	var sample worksession.Sample

	err := WithTransaction(ctx, w.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, w.db)

		s, err := w.getSession(ctx, sessionID, true)
		if err != nil {
			return err
		}

		sample, err = build(s)
		if err != nil {
			return err
		}

		if err := q.QueryRow(ctx, `
			INSERT INTO activity_samples (
				session_id, seq, timestamp, keystrokes, mouse_clicks, mouse_moves, scrolls,
				active_window_title, active_application_name, productivity_score, is_idle, interval_minutes
			)
			SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
			FROM activity_samples WHERE session_id = $1
			RETURNING seq
		`,
			sessionID,
			sample.Timestamp,
			sample.Keystrokes,
			sample.MouseClicks,
			sample.MouseMoves,
			sample.Scrolls,
			sample.ActiveWindowTitle,
			sample.ActiveApplicationName,
			sample.ProductivityScore,
			sample.IsIdle,
			sample.IntervalMinutes,
		).Scan(&sample.Seq); err != nil {
			return fmt.Errorf("failed to insert activity sample: %w", err)
		}

		if _, err := q.Exec(ctx, `
			UPDATE work_sessions
			SET last_activity_at = GREATEST(last_activity_at, $2), version = version + 1
			WHERE id = $1
		`, sessionID, sample.Timestamp); err != nil {
			return fmt.Errorf("failed to touch work session: %w", err)
		}
		return nil
	})
	if err != nil {
		return worksession.Sample{}, err
	}

	return sample, nil
}

// AppendScreenshot implements worksession.SessionRepository.
func (w *workSessionRepository) AppendScreenshot(ctx context.Context, sessionID string, build func(worksession.Session) (worksession.Screenshot, error)) (worksession.Screenshot, error) {
	var shot worksession.Screenshot

	err := WithTransaction(ctx, w.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, w.db)

		s, err := w.getSession(ctx, sessionID, true)
		if err != nil {
			return err
		}
		sessions := []worksession.Session{s}
		if err := w.withScreenshots(ctx, sessions); err != nil {
			return err
		}

		shot, err = build(sessions[0])
		if err != nil {
			return err
		}

		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate screenshot id: %w", err)
		}
		shot.ID = id.String()
		shot.Seq = len(sessions[0].Screenshots) + 1

		if _, err := q.Exec(ctx, `
			INSERT INTO session_screenshots (
				id, session_id, seq, timestamp, interval_start, interval_end, activity_level,
				keystrokes, mouse_clicks, is_manual_capture, is_blurred, is_deleted, image_url
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE, $12)
		`,
			shot.ID,
			sessionID,
			shot.Seq,
			shot.Timestamp,
			shot.IntervalStart,
			shot.IntervalEnd,
			shot.ActivityLevel,
			shot.Keystrokes,
			shot.MouseClicks,
			shot.IsManualCapture,
			shot.IsBlurred,
			shot.ImageURL,
		); err != nil {
			return fmt.Errorf("failed to insert screenshot: %w", err)
		}

		if _, err := q.Exec(ctx, `UPDATE work_sessions SET version = version + 1 WHERE id = $1`, sessionID); err != nil {
			return fmt.Errorf("failed to touch work session: %w", err)
		}
		return nil
	})
	if err != nil {
		return worksession.Screenshot{}, err
	}

	return shot, nil
}

// SoftDeleteScreenshot implements worksession.SessionRepository.
func (w *workSessionRepository) SoftDeleteScreenshot(ctx context.Context, sessionID, screenshotID string, at time.Time) (worksession.Screenshot, error) {
	var shot worksession.Screenshot

	err := WithTransaction(ctx, w.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, w.db)

		if _, err := w.getSession(ctx, sessionID, true); err != nil {
			return err
		}
		if _, err := uuid.Parse(screenshotID); err != nil {
			return worksession.ErrScreenshotNotFound
		}

		current, err := scanScreenshot(q.QueryRow(ctx,
			`SELECT `+screenshotColumns+` FROM session_screenshots WHERE id = $1 AND session_id = $2`,
			screenshotID, sessionID,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return worksession.ErrScreenshotNotFound
			}
			return fmt.Errorf("failed to get screenshot: %w", err)
		}
		if current.IsDeleted {
			return worksession.ErrScreenshotAlreadyDeleted
		}

		shot, err = scanScreenshot(q.QueryRow(ctx, `
			UPDATE session_screenshots SET is_deleted = TRUE, deleted_at = $2
			WHERE id = $1
			RETURNING `+screenshotColumns,
			screenshotID, at,
		))
		if err != nil {
			return fmt.Errorf("failed to delete screenshot: %w", err)
		}

		if _, err := q.Exec(ctx, `UPDATE work_sessions SET version = version + 1 WHERE id = $1`, sessionID); err != nil {
			return fmt.Errorf("failed to touch work session: %w", err)
		}
		return nil
	})
	if err != nil {
		return worksession.Screenshot{}, err
	}

	return shot, nil
}

// List implements worksession.SessionRepository.
func (w *workSessionRepository) List(ctx context.Context, filter worksession.SessionFilter) ([]worksession.Session, int64, error) {
	q := GetQuerier(ctx, w.db)

	conditions := []string{"TRUE"}
	args := []interface{}{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		add("employee_id = $%d", *filter.EmployeeID)
	}
	if filter.ProjectID != nil && *filter.ProjectID != "" {
		add("project_id = $%d", *filter.ProjectID)
	}
	if filter.Status != nil && *filter.Status != "" {
		add("status = $%d", *filter.Status)
	}
	if filter.StartFrom != nil {
		add("start_time >= $%d", *filter.StartFrom)
	}
	if filter.StartTo != nil {
		add("start_time < $%d", *filter.StartTo)
	}
	where := strings.Join(conditions, " AND ")

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM work_sessions WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count work sessions: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := max(filter.Page, 1)

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM work_sessions
		WHERE %s
		ORDER BY start_time DESC, id
		LIMIT $%d OFFSET $%d
	`, sessionColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query work sessions: %w", err)
	}
	sessions, err := collectSessions(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := w.withScreenshots(ctx, sessions); err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

// ListFinalized implements worksession.SessionRepository.
func (w *workSessionRepository) ListFinalized(ctx context.Context, employeeID string, from, to time.Time) ([]worksession.Session, error) {
	q := GetQuerier(ctx, w.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM work_sessions
		WHERE employee_id = $1
		  AND status IN ('stopped', 'archived')
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`

	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query finalized work sessions: %w", err)
	}
	sessions, err := collectSessions(rows)
	if err != nil {
		return nil, err
	}
	if err := w.withScreenshots(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListStale implements worksession.SessionRepository.
func (w *workSessionRepository) ListStale(ctx context.Context, t time.Time) ([]worksession.Session, error) {
	q := GetQuerier(ctx, w.db)

	query := `
		SELECT ` + sessionColumns + `
		FROM work_sessions
		WHERE status = 'running'
		  AND last_activity_at < $1
		ORDER BY last_activity_at
	`

	rows, err := q.Query(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale work sessions: %w", err)
	}
	return collectSessions(rows)
}

func NewWorkSessionRepository(db *database.DB) worksession.SessionRepository {
	return &workSessionRepository{db: db}
}
