package attendance

import (
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/validator"
)

// ========================================
// ATTENDANCE REQUESTS
// ========================================

// One request type per operation; each carries only the fields it needs.

type LocationInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   *string  `json:"address,omitempty"`
}

func (l *LocationInput) validate(field string, errs *validator.ValidationErrors) {
	if l.Latitude == nil || l.Longitude == nil {
		errs.Add(field, "both latitude and longitude are required")
		return
	}
	if !validator.IsValidLatitude(*l.Latitude) {
		errs.Add(field+".latitude", "latitude must be between -90 and 90")
	}
	if !validator.IsValidLongitude(*l.Longitude) {
		errs.Add(field+".longitude", "longitude must be between -180 and 180")
	}
}

// ToLocation assumes validate passed.
func (l *LocationInput) ToLocation() *Location {
	if l == nil {
		return nil
	}
	return &Location{Latitude: *l.Latitude, Longitude: *l.Longitude, Address: l.Address}
}

type TaskInput struct {
	Task        string   `json:"task"`
	Description *string  `json:"description,omitempty"`
	HoursSpent  *float64 `json:"hours_spent,omitempty"`
	ProjectID   *string  `json:"project_id,omitempty"`
}

func validateTasks(tasks []TaskInput, errs *validator.ValidationErrors) {
	if len(tasks) == 0 {
		errs.Add("tasks", "at least one completed task is required")
		return
	}
	for i, t := range tasks {
		if validator.IsEmpty(t.Task) {
			errs.Add(taskField(i, "task"), "task name is required")
		}
		if t.HoursSpent != nil && (*t.HoursSpent <= 0 || *t.HoursSpent > 24) {
			errs.Add(taskField(i, "hours_spent"), "hours_spent must be greater than 0 and at most 24")
		}
	}
}

func taskField(i int, name string) string {
	return "tasks[" + strconv.Itoa(i) + "]." + name
}

// ToTasks converts validated task inputs.
func ToTasks(in []TaskInput) []Task {
	out := make([]Task, 0, len(in))
	for _, t := range in {
		out = append(out, Task{
			Task:        strings.TrimSpace(t.Task),
			Description: t.Description,
			HoursSpent:  t.HoursSpent,
			ProjectID:   t.ProjectID,
		})
	}
	return out
}

type CheckInRequest struct {
	Shift             string         `json:"shift"`
	Location          *LocationInput `json:"location,omitempty"`
	IsRemote          bool           `json:"is_remote"`
	Reason            string         `json:"reason"`
	Notes             string         `json:"notes"`
	ConfirmAdditional bool           `json:"confirm_additional"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsInSlice(r.Shift, validShifts) {
		errs.Add("shift", "shift must be one of: morning, evening, night, flexible")
	}

	if r.Location != nil {
		r.Location.validate("location", &errs)
	} else if r.IsRemote {
		errs.Add("location", "location is required for a remote check-in")
	}

	if len(r.Notes) > maxNotesLength {
		errs.Add("notes", "notes must not exceed 2000 characters")
	}

	return errs.Err()
}

type CheckOutRequest struct {
	// EntryID is optional; the most recent open entry is used when empty.
	EntryID  string         `json:"entry_id,omitempty"`
	Tasks    []TaskInput    `json:"tasks"`
	Reason   string         `json:"reason"`
	Location *LocationInput `json:"location,omitempty"`
}

func (r *CheckOutRequest) Validate() error {
	var errs validator.ValidationErrors

	validateTasks(r.Tasks, &errs)
	if r.Location != nil {
		r.Location.validate("location", &errs)
	}

	return errs.Err()
}

type BreakStartRequest struct {
	EntryID  string `json:"-"`
	Category string `json:"category"`
}

func (r *BreakStartRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	if r.Category == "" {
		r.Category = string(BreakCategoryBreak)
	}
	if !validator.IsInSlice(r.Category, validBreakCategories) {
		errs.Add("category", "category must be one of: break, prayer, meal, other")
	}

	return errs.Err()
}

type BreakEndRequest struct {
	EntryID string `json:"-"`
}

func (r *BreakEndRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	return errs.Err()
}

type NamazStartRequest struct {
	EntryID string `json:"-"`
	Type    string `json:"type"`
}

func (r *NamazStartRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	if !validator.IsInSlice(r.Type, validNamazTypes) {
		errs.Add("type", "type must be one of: fajr, dhuhr, asr, maghrib, isha")
	}

	return errs.Err()
}

type NamazEndRequest struct {
	EntryID string `json:"-"`
}

func (r *NamazEndRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	return errs.Err()
}

type UpdateTasksRequest struct {
	EntryID string      `json:"-"`
	Tasks   []TaskInput `json:"tasks"`
}

func (r *UpdateTasksRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	validateTasks(r.Tasks, &errs)
	return errs.Err()
}

const maxNotesLength = 2000

type UpdateNotesRequest struct {
	EntryID string `json:"-"`
	Notes   string `json:"notes"`
}

func (r *UpdateNotesRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.EntryID) {
		errs.Add("entry_id", "entry_id is required")
	}
	if len(r.Notes) > maxNotesLength {
		errs.Add("notes", "notes must not exceed 2000 characters")
	}
	return errs.Err()
}

// ========================================
// ATTENDANCE RESPONSES
// ========================================

type BreakResponse struct {
	Start    string  `json:"start"`
	End      *string `json:"end,omitempty"`
	Category string  `json:"category"`
	Minutes  int     `json:"minutes"`
}

type NamazResponse struct {
	Start   string  `json:"start"`
	End     *string `json:"end,omitempty"`
	Type    string  `json:"type"`
	Minutes int     `json:"minutes"`
}

type EntryResponse struct {
	ID                string          `json:"id"`
	EmployeeID        string          `json:"employee_id"`
	Date              string          `json:"date"`
	CheckIn           string          `json:"check_in"`
	CheckOut          *string         `json:"check_out,omitempty"`
	Shift             string          `json:"shift"`
	ShiftBoundary     string          `json:"shift_boundary"`
	Status            string          `json:"status"`
	IsRemote          bool            `json:"is_remote"`
	CheckInLocation   *Location       `json:"check_in_location,omitempty"`
	CheckOutLocation  *Location       `json:"check_out_location,omitempty"`
	CheckInReason     string          `json:"check_in_reason,omitempty"`
	CheckOutReason    string          `json:"check_out_reason,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	Breaks            []BreakResponse `json:"breaks"`
	Namaz             []NamazResponse `json:"namaz"`
	TasksCompleted    []Task          `json:"tasks_completed"`
	TotalBreakMinutes int             `json:"total_break_minutes"`
	TotalNamazMinutes int             `json:"total_namaz_minutes"`
	TotalHours        *float64        `json:"total_hours,omitempty"`
	Anomalous         bool            `json:"anomalous,omitempty"`
	AutoClosed        bool            `json:"auto_closed,omitempty"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

type ListEntriesResponse struct {
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
	Showing    string          `json:"showing"`
	Entries    []EntryResponse `json:"entries"`
}

type EntryStatsResponse struct {
	TotalEntries      int     `json:"total_entries"`
	CompletedEntries  int     `json:"completed_entries"`
	OpenEntries       int     `json:"open_entries"`
	PresentCount      int     `json:"present_count"`
	LateCount         int     `json:"late_count"`
	RemoteCount       int     `json:"remote_count"`
	HalfDayCount      int     `json:"half_day_count"`
	TotalHours        float64 `json:"total_hours"`
	AverageHours      float64 `json:"average_hours"`
	TotalBreakMinutes int     `json:"total_break_minutes"`
	TotalNamazMinutes int     `json:"total_namaz_minutes"`
}

// ========================================
// FILTERS
// ========================================

type EntryFilter struct {
	// Search & Filter
	EmployeeID *string `json:"employee_id,omitempty"`
	Date       *string `json:"date,omitempty"`       // YYYY-MM-DD
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status     *string `json:"status,omitempty"`
	Shift      *string `json:"shift,omitempty"`
	IsRemote   *bool   `json:"is_remote,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // date, check_in, check_out, status, total_hours
	SortOrder string `json:"sort_order"` // asc, desc
}

var validSortFields = []string{"date", "check_in", "check_out", "status", "total_hours"}

func (f *EntryFilter) Validate() error {
	var errs validator.ValidationErrors

	// Page validation
	if f.Page < 0 {
		errs.Add("page", "page must be a positive number")
	}
	if f.Page == 0 {
		f.Page = 1 // Default page
	}

	// Limit validation
	if f.Limit < 0 {
		errs.Add("limit", "limit must be a positive number")
	}
	if f.Limit == 0 {
		f.Limit = 20 // Default limit
	}
	if f.Limit > 100 {
		errs.Add("limit", "limit must not exceed 100")
	}

	if f.Status != nil && !validator.IsInSlice(*f.Status, validStatuses) {
		errs.Add("status", "status must be one of: present, late, absent, half-day, on-leave, remote")
	}

	if f.Shift != nil && !validator.IsInSlice(*f.Shift, validShifts) {
		errs.Add("shift", "shift must be one of: morning, evening, night, flexible")
	}

	for field, value := range map[string]*string{"date": f.Date, "start_date": f.StartDate, "end_date": f.EndDate} {
		if value != nil && *value != "" {
			if _, valid := validator.IsValidDate(*value); !valid {
				errs.Add(field, field+" must be in YYYY-MM-DD format")
			}
		}
	}

	if f.SortBy != "" {
		if !validator.IsInSlice(f.SortBy, validSortFields) {
			errs.Add("sort_by", "sort_by must be one of: date, check_in, check_out, status, total_hours")
		}
	} else {
		f.SortBy = "date" // Default sort
	}

	if f.SortOrder != "" {
		if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
			errs.Add("sort_order", "sort_order must be one of: asc, desc")
		}
	} else {
		f.SortOrder = "desc" // Default descending (newest first)
	}

	return errs.Err()
}

// Matches reports whether e satisfies the non-pagination criteria of f.
func (f EntryFilter) Matches(e Entry) bool {
	date := e.Date.Format(time.DateOnly)
	if f.EmployeeID != nil && *f.EmployeeID != "" && e.EmployeeID != *f.EmployeeID {
		return false
	}
	if f.Date != nil && *f.Date != "" && date != *f.Date {
		return false
	}
	if f.StartDate != nil && *f.StartDate != "" && date < *f.StartDate {
		return false
	}
	if f.EndDate != nil && *f.EndDate != "" && date > *f.EndDate {
		return false
	}
	if f.Status != nil && *f.Status != "" && string(e.Status) != *f.Status {
		return false
	}
	if f.Shift != nil && *f.Shift != "" && string(e.Shift) != *f.Shift {
		return false
	}
	if f.IsRemote != nil && e.IsRemote != *f.IsRemote {
		return false
	}
	return true
}
