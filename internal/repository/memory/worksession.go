package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/worksession"
	"github.com/google/uuid"
)

type workSessionRepositoryImpl struct {
	mu       sync.Mutex
	sessions map[string]*worksession.Session
}

// NewWorkSessionRepository returns a session store kept in process memory.
func NewWorkSessionRepository() worksession.SessionRepository {
	return &workSessionRepositoryImpl{sessions: make(map[string]*worksession.Session)}
}

func (r *workSessionRepositoryImpl) Create(ctx context.Context, session worksession.Session) (worksession.Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return worksession.Session{}, fmt.Errorf("generate work session id: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session.ID = id.String()
	session.Version = 1
	stored := session.Clone()
	r.sessions[session.ID] = &stored
	return session, nil
}

func (r *workSessionRepositoryImpl) GetByID(ctx context.Context, id string) (worksession.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return worksession.Session{}, worksession.ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Update keeps the stored samples and screenshots; those only change through
// the Append and SoftDelete methods.
func (r *workSessionRepositoryImpl) Update(ctx context.Context, session worksession.Session) (worksession.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[session.ID]
	if !ok {
		return worksession.Session{}, worksession.ErrSessionNotFound
	}
	if stored.Version != session.Version {
		return worksession.Session{}, worksession.ErrConcurrentUpdate
	}

	next := session.Clone()
	next.Samples = stored.Samples
	next.Screenshots = stored.Screenshots
	next.Version++
	*stored = next
	return stored.Clone(), nil
}

func (r *workSessionRepositoryImpl) AppendSample(ctx context.Context, sessionID string, build func(worksession.Session) (worksession.Sample, error)) (worksession.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[sessionID]
	if !ok {
		return worksession.Sample{}, worksession.ErrSessionNotFound
	}

	sample, err := build(stored.Clone())
	if err != nil {
		return worksession.Sample{}, err
	}

	sample.Seq = len(stored.Samples) + 1
	stored.Samples = append(stored.Samples, sample)
	if sample.Timestamp.After(stored.LastActivityAt) {
		stored.LastActivityAt = sample.Timestamp
	}
	stored.Version++
	return sample, nil
}

func (r *workSessionRepositoryImpl) AppendScreenshot(ctx context.Context, sessionID string, build func(worksession.Session) (worksession.Screenshot, error)) (worksession.Screenshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[sessionID]
	if !ok {
		return worksession.Screenshot{}, worksession.ErrSessionNotFound
	}

	shot, err := build(stored.Clone())
	if err != nil {
		return worksession.Screenshot{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return worksession.Screenshot{}, fmt.Errorf("generate screenshot id: %w", err)
	}
	shot.ID = id.String()
	shot.Seq = len(stored.Screenshots) + 1
	stored.Screenshots = append(stored.Screenshots, shot)
	stored.Version++
	return shot, nil
}

func (r *workSessionRepositoryImpl) SoftDeleteScreenshot(ctx context.Context, sessionID, screenshotID string, at time.Time) (worksession.Screenshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[sessionID]
	if !ok {
		return worksession.Screenshot{}, worksession.ErrSessionNotFound
	}

	for i := range stored.Screenshots {
		shot := &stored.Screenshots[i]
		if shot.ID != screenshotID {
			continue
		}
		if shot.IsDeleted {
			return worksession.Screenshot{}, worksession.ErrScreenshotAlreadyDeleted
		}
		deletedAt := at
		shot.IsDeleted = true
		shot.DeletedAt = &deletedAt
		stored.Version++
		return *shot, nil
	}
	return worksession.Screenshot{}, worksession.ErrScreenshotNotFound
}

func (r *workSessionRepositoryImpl) List(ctx context.Context, filter worksession.SessionFilter) ([]worksession.Session, int64, error) {
	r.mu.Lock()
	var all []worksession.Session
	for _, s := range r.sessions {
		if filter.Matches(*s) {
			c := s.Clone()
			c.Samples = nil
			all = append(all, c)
		}
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.After(all[j].StartTime) })

	total := int64(len(all))
	offset := (filter.Page - 1) * filter.Limit
	if offset < 0 || offset >= len(all) {
		return []worksession.Session{}, total, nil
	}
	end := offset + filter.Limit
	if filter.Limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *workSessionRepositoryImpl) ListFinalized(ctx context.Context, employeeID string, from, to time.Time) ([]worksession.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []worksession.Session
	for _, s := range r.sessions {
		if s.EmployeeID != employeeID || !s.IsFinal() {
			continue
		}
		if s.StartTime.Before(from) || !s.StartTime.Before(to) {
			continue
		}
		c := s.Clone()
		c.Samples = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *workSessionRepositoryImpl) ListStale(ctx context.Context, t time.Time) ([]worksession.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []worksession.Session
	for _, s := range r.sessions {
		if s.Status == worksession.StatusRunning && s.LastActivityAt.Before(t) {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivityAt.Before(out[j].LastActivityAt) })
	return out, nil
}
