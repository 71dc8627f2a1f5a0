package worksession

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/validator"
)

// ========================================
// SESSION REQUESTS
// ========================================

type StartRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	ProjectID   *string  `json:"project_id,omitempty"`
	HourlyRate  *float64 `json:"hourly_rate,omitempty"`
	Timezone    string   `json:"timezone"`
}

func (r *StartRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Title) {
		errs.Add("title", "title is required")
	} else if len(r.Title) > 200 {
		errs.Add("title", "title must not exceed 200 characters")
	}
	if r.HourlyRate != nil && *r.HourlyRate < 0 {
		errs.Add("hourly_rate", "hourly_rate must not be negative")
	}
	if r.Timezone == "" {
		r.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		errs.Add("timezone", ErrInvalidTimezone.Error())
	}

	return errs.Err()
}

type SampleRequest struct {
	SessionID             string     `json:"-"`
	Timestamp             *time.Time `json:"timestamp,omitempty"`
	Keystrokes            int        `json:"keystrokes"`
	MouseClicks           int        `json:"mouse_clicks"`
	MouseMoves            int        `json:"mouse_moves"`
	Scrolls               int        `json:"scrolls"`
	ActiveWindowTitle     *string    `json:"active_window_title,omitempty"`
	ActiveApplicationName *string    `json:"active_application_name,omitempty"`
	IsIdle                bool       `json:"is_idle"`
	IntervalMinutes       int        `json:"interval_minutes"`
}

// MaxSampleIntervalMinutes bounds a single sampling interval.
const MaxSampleIntervalMinutes = 60

func (r *SampleRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.SessionID) {
		errs.Add("session_id", "session_id is required")
	}
	if r.IntervalMinutes <= 0 || r.IntervalMinutes > MaxSampleIntervalMinutes {
		errs.Add("interval_minutes", "interval_minutes must be between 1 and 60")
	}
	for field, v := range map[string]int{
		"keystrokes":   r.Keystrokes,
		"mouse_clicks": r.MouseClicks,
		"mouse_moves":  r.MouseMoves,
		"scrolls":      r.Scrolls,
	} {
		if v < 0 {
			errs.Add(field, field+" must not be negative")
		}
	}

	return errs.Err()
}

func (r *SampleRequest) Metrics() Metrics {
	return Metrics{
		Keystrokes:      r.Keystrokes,
		MouseClicks:     r.MouseClicks,
		MouseMoves:      r.MouseMoves,
		Scrolls:         r.Scrolls,
		IntervalMinutes: r.IntervalMinutes,
	}
}

// ImageFile is an optional screenshot image sent alongside its metadata.
type ImageFile struct {
	Content  io.Reader
	Filename string
}

type ScreenshotRequest struct {
	SessionID       string     `json:"-"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	IntervalStart   time.Time  `json:"interval_start"`
	IntervalEnd     time.Time  `json:"interval_end"`
	ActivityLevel   float64    `json:"activity_level"`
	Keystrokes      int        `json:"keystrokes"`
	MouseClicks     int        `json:"mouse_clicks"`
	IsManualCapture bool       `json:"is_manual_capture"`
	IsBlurred       bool       `json:"is_blurred"`
	Image           *ImageFile `json:"-"`
}

func (r *ScreenshotRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.SessionID) {
		errs.Add("session_id", "session_id is required")
	}
	if r.IntervalStart.IsZero() || r.IntervalEnd.IsZero() {
		errs.Add("interval", "interval_start and interval_end are required")
	} else if r.IntervalEnd.Before(r.IntervalStart) {
		errs.Add("interval_end", "interval_end must not be before interval_start")
	}
	if r.ActivityLevel < 0 || r.ActivityLevel > 100 {
		errs.Add("activity_level", "activity_level must be between 0 and 100")
	}
	if r.Keystrokes < 0 {
		errs.Add("keystrokes", "keystrokes must not be negative")
	}
	if r.MouseClicks < 0 {
		errs.Add("mouse_clicks", "mouse_clicks must not be negative")
	}
	if r.Image != nil && validator.IsEmpty(r.Image.Filename) {
		errs.Add("image", "image filename is required")
	}

	return errs.Err()
}

type AddTaskRequest struct {
	SessionID   string   `json:"-"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

func (r *AddTaskRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.SessionID) {
		errs.Add("session_id", "session_id is required")
	}
	if validator.IsEmpty(r.Title) {
		errs.Add("title", "title is required")
	}
	if r.Category == "" {
		r.Category = "general"
	}
	if r.Priority == "" {
		r.Priority = string(PriorityMedium)
	}
	if !validator.IsInSlice(r.Priority, validPriorities) {
		errs.Add("priority", "priority must be one of: low, medium, high, urgent")
	}
	for i, tag := range r.Tags {
		if validator.IsEmpty(tag) {
			errs.Add("tags["+strconv.Itoa(i)+"]", "tag must not be blank")
		}
	}

	return errs.Err()
}

func (r *AddTaskRequest) ToTask(completedAt time.Time) Task {
	tags := make([]string, 0, len(r.Tags))
	for _, tag := range r.Tags {
		tags = append(tags, strings.TrimSpace(tag))
	}
	return Task{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Category:    r.Category,
		Priority:    Priority(r.Priority),
		Tags:        tags,
		CompletedAt: completedAt,
	}
}

type UpdateNotesRequest struct {
	SessionID string `json:"-"`
	Notes     string `json:"notes"`
}

func (r *UpdateNotesRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.SessionID) {
		errs.Add("session_id", "session_id is required")
	}
	if len(r.Notes) > 5000 {
		errs.Add("notes", "notes must not exceed 5000 characters")
	}
	return errs.Err()
}

// ========================================
// SESSION RESPONSES
// ========================================

type SessionResponse struct {
	ID              string       `json:"id"`
	EmployeeID      string       `json:"employee_id"`
	ProjectID       *string      `json:"project_id,omitempty"`
	Title           string       `json:"title"`
	Description     *string      `json:"description,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	StartTime       string       `json:"start_time"`
	EndTime         *string      `json:"end_time,omitempty"`
	PausedMinutes   float64      `json:"paused_minutes"`
	Status          string       `json:"status"`
	HourlyRate      *float64     `json:"hourly_rate,omitempty"`
	Timezone        string       `json:"timezone"`
	SampleCount     int          `json:"sample_count"`
	ScreenshotCount int          `json:"screenshot_count"`
	Screenshots     []Screenshot `json:"screenshots,omitempty"`
	Tasks           []Task       `json:"tasks_completed"`
	Totals          *Totals      `json:"totals,omitempty"`
	AutoStopped     bool         `json:"auto_stopped,omitempty"`
	CreatedAt       string       `json:"created_at"`
	UpdatedAt       string       `json:"updated_at"`
}

type ListSessionsResponse struct {
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
	Showing    string            `json:"showing"`
	Sessions   []SessionResponse `json:"sessions"`
}

type DayStats struct {
	Date                 string  `json:"date"`
	TotalHours           float64 `json:"total_hours"`
	ProductiveHours      float64 `json:"productive_hours"`
	SessionCount         int     `json:"session_count"`
	ScreenshotCount      int     `json:"screenshot_count"`
	AverageActivityLevel float64 `json:"average_activity_level"`
}

type PeriodStats struct {
	EmployeeID           string     `json:"employee_id"`
	From                 string     `json:"from"`
	To                   string     `json:"to"`
	TotalHours           float64    `json:"total_hours"`
	ProductiveHours      float64    `json:"productive_hours"`
	SessionCount         int        `json:"session_count"`
	ScreenshotCount      int        `json:"screenshot_count"`
	AverageActivityLevel float64    `json:"average_activity_level"`
	Days                 []DayStats `json:"days,omitempty"`
}

// ========================================
// FILTERS
// ========================================

type SessionFilter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	ProjectID  *string `json:"project_id,omitempty"`
	Status     *string `json:"status,omitempty"`

	// StartFrom and StartTo bound StartTime, [StartFrom, StartTo).
	StartFrom *time.Time `json:"start_from,omitempty"`
	StartTo   *time.Time `json:"start_to,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *SessionFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs.Add("page", "page must be a positive number")
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit < 0 {
		errs.Add("limit", "limit must be a positive number")
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs.Add("limit", "limit must not exceed 100")
	}
	if f.Status != nil && !validator.IsInSlice(*f.Status, validStatuses) {
		errs.Add("status", "status must be one of: running, paused, stopped, archived")
	}
	if f.StartFrom != nil && f.StartTo != nil && !f.StartTo.After(*f.StartFrom) {
		errs.Add("start_to", "start_to must be after start_from")
	}

	return errs.Err()
}

// Matches reports whether s satisfies the non-pagination criteria of f.
func (f SessionFilter) Matches(s Session) bool {
	if f.EmployeeID != nil && *f.EmployeeID != "" && s.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.ProjectID != nil && *f.ProjectID != "" && (s.ProjectID == nil || *s.ProjectID != *f.ProjectID) {
		return false
	}
	if f.Status != nil && *f.Status != "" && string(s.Status) != *f.Status {
		return false
	}
	if f.StartFrom != nil && s.StartTime.Before(*f.StartFrom) {
		return false
	}
	if f.StartTo != nil && !s.StartTime.Before(*f.StartTo) {
		return false
	}
	return true
}
