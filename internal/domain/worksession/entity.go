package worksession

import (
	"time"
)

type Status string

const (
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusStopped  Status = "stopped"
	StatusArchived Status = "archived"
)

var validStatuses = []string{string(StatusRunning), string(StatusPaused), string(StatusStopped), string(StatusArchived)}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = []string{string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityUrgent)}

// Sample is one activity interval reported by the tracking client.
type Sample struct {
	Seq                   int       `json:"seq"`
	Timestamp             time.Time `json:"timestamp"`
	Keystrokes            int       `json:"keystrokes"`
	MouseClicks           int       `json:"mouse_clicks"`
	MouseMoves            int       `json:"mouse_moves"`
	Scrolls               int       `json:"scrolls"`
	ActiveWindowTitle     *string   `json:"active_window_title,omitempty"`
	ActiveApplicationName *string   `json:"active_application_name,omitempty"`
	ProductivityScore     float64   `json:"productivity_score"`
	IsIdle                bool      `json:"is_idle"`
	IntervalMinutes       int       `json:"interval_minutes"`
}

type Screenshot struct {
	ID              string     `json:"id"`
	Seq             int        `json:"seq"`
	Timestamp       time.Time  `json:"timestamp"`
	IntervalStart   time.Time  `json:"interval_start"`
	IntervalEnd     time.Time  `json:"interval_end"`
	ActivityLevel   float64    `json:"activity_level"`
	Keystrokes      int        `json:"keystrokes"`
	MouseClicks     int        `json:"mouse_clicks"`
	IsManualCapture bool       `json:"is_manual_capture"`
	IsBlurred       bool       `json:"is_blurred"`
	IsDeleted       bool       `json:"is_deleted"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	ImageURL        *string    `json:"image_url,omitempty"`
}

type Task struct {
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Category    string    `json:"category"`
	Priority    Priority  `json:"priority"`
	Tags        []string  `json:"tags"`
	CompletedAt time.Time `json:"completed_at"`
}

// Totals are computed once by Finalize and never change afterwards.
type Totals struct {
	DurationMinutes      int      `json:"duration_minutes"`
	ProductiveMinutes    int      `json:"productive_minutes"`
	IdleMinutes          int      `json:"idle_minutes"`
	TotalHours           float64  `json:"total_hours"`
	ProductiveHours      float64  `json:"productive_hours"`
	IdleHours            float64  `json:"idle_hours"`
	AverageActivityLevel float64  `json:"average_activity_level"`
	TotalKeystrokes      int      `json:"total_keystrokes"`
	TotalMouseClicks     int      `json:"total_mouse_clicks"`
	TotalEarnings        *float64 `json:"total_earnings,omitempty"`
}

type Session struct {
	ID          string
	EmployeeID  string
	ProjectID   *string
	Title       string
	Description *string
	Notes       string
	StartTime   time.Time
	EndTime     *time.Time

	// PausedTime accumulates closed pauses only; an open pause starts at PausedAt.
	PausedTime time.Duration
	PausedAt   *time.Time

	Status     Status
	HourlyRate *float64
	Timezone   string

	Samples     []Sample
	Screenshots []Screenshot
	Tasks       []Task

	Totals      *Totals
	AutoStopped bool

	// LastActivityAt is the latest of start, resume and sample timestamps.
	LastActivityAt time.Time

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Session) IsFinal() bool {
	return s.Status == StatusStopped || s.Status == StatusArchived
}

// ActiveScreenshots counts screenshots that were not soft-deleted.
func (s *Session) ActiveScreenshots() int {
	n := 0
	for _, sc := range s.Screenshots {
		if !sc.IsDeleted {
			n++
		}
	}
	return n
}

func (s Session) Clone() Session {
	out := s
	out.Samples = append([]Sample(nil), s.Samples...)
	out.Screenshots = append([]Screenshot(nil), s.Screenshots...)
	out.Tasks = make([]Task, len(s.Tasks))
	for i, t := range s.Tasks {
		t.Tags = append([]string(nil), t.Tags...)
		out.Tasks[i] = t
	}
	if s.EndTime != nil {
		t := *s.EndTime
		out.EndTime = &t
	}
	if s.PausedAt != nil {
		t := *s.PausedAt
		out.PausedAt = &t
	}
	if s.Totals != nil {
		t := *s.Totals
		out.Totals = &t
	}
	return out
}
