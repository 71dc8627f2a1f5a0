package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/geo"
)

type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
	StatusHalfDay Status = "half-day"
	StatusOnLeave Status = "on-leave"
	StatusRemote  Status = "remote"
)

var validStatuses = []string{
	string(StatusPresent), string(StatusLate), string(StatusAbsent),
	string(StatusHalfDay), string(StatusOnLeave), string(StatusRemote),
}

type BreakCategory string

const (
	BreakCategoryBreak  BreakCategory = "break"
	BreakCategoryPrayer BreakCategory = "prayer"
	BreakCategoryMeal   BreakCategory = "meal"
	BreakCategoryOther  BreakCategory = "other"
)

var validBreakCategories = []string{
	string(BreakCategoryBreak), string(BreakCategoryPrayer), string(BreakCategoryMeal), string(BreakCategoryOther),
}

type NamazType string

const (
	NamazFajr    NamazType = "fajr"
	NamazDhuhr   NamazType = "dhuhr"
	NamazAsr     NamazType = "asr"
	NamazMaghrib NamazType = "maghrib"
	NamazIsha    NamazType = "isha"
)

var validNamazTypes = []string{
	string(NamazFajr), string(NamazDhuhr), string(NamazAsr), string(NamazMaghrib), string(NamazIsha),
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   *string `json:"address,omitempty"`
}

func (l Location) Point() geo.Point {
	return geo.Point{Latitude: l.Latitude, Longitude: l.Longitude}
}

type Break struct {
	Start    time.Time     `json:"start"`
	End      *time.Time    `json:"end,omitempty"`
	Category BreakCategory `json:"category"`
}

type Namaz struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
	Type  NamazType  `json:"type"`
}

type Task struct {
	Task        string   `json:"task"`
	Description *string  `json:"description,omitempty"`
	HoursSpent  *float64 `json:"hours_spent,omitempty"`
	ProjectID   *string  `json:"project_id,omitempty"`
}

// Entry is one check-in. An employee may hold several entries on the same date.
type Entry struct {
	ID               string
	EmployeeID       string
	Date             time.Time
	CheckIn          time.Time
	CheckOut         *time.Time
	Shift            Shift
	Status           Status
	IsRemote         bool
	CheckInLocation  *Location
	CheckOutLocation *Location
	CheckInReason    string
	CheckOutReason   string
	Notes            string
	Breaks           []Break
	Namaz            []Namaz
	TasksCompleted   []Task

	// Derived by Derive; never written directly.
	TotalBreakMinutes int
	TotalNamazMinutes int
	TotalHours        *float64

	Anomalous  bool
	AutoClosed bool
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOpen reports whether the entry still waits for a check-out.
func (e *Entry) IsOpen() bool {
	return e.CheckOut == nil
}

// OpenBreak returns the index of the open break, or -1.
func (e *Entry) OpenBreak() int {
	for i := len(e.Breaks) - 1; i >= 0; i-- {
		if e.Breaks[i].End == nil {
			return i
		}
	}
	return -1
}

// OpenNamaz returns the index of the open prayer interval, or -1.
func (e *Entry) OpenNamaz() int {
	for i := len(e.Namaz) - 1; i >= 0; i-- {
		if e.Namaz[i].End == nil {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so a failed operation never leaks partial writes.
func (e Entry) Clone() Entry {
	out := e
	out.Breaks = append([]Break(nil), e.Breaks...)
	out.Namaz = append([]Namaz(nil), e.Namaz...)
	out.TasksCompleted = append([]Task(nil), e.TasksCompleted...)
	if e.CheckOut != nil {
		t := *e.CheckOut
		out.CheckOut = &t
	}
	if e.TotalHours != nil {
		h := *e.TotalHours
		out.TotalHours = &h
	}
	if e.CheckInLocation != nil {
		l := *e.CheckInLocation
		out.CheckInLocation = &l
	}
	if e.CheckOutLocation != nil {
		l := *e.CheckOutLocation
		out.CheckOutLocation = &l
	}
	for i := range out.Breaks {
		if out.Breaks[i].End != nil {
			t := *out.Breaks[i].End
			out.Breaks[i].End = &t
		}
	}
	for i := range out.Namaz {
		if out.Namaz[i].End != nil {
			t := *out.Namaz[i].End
			out.Namaz[i].End = &t
		}
	}
	return out
}
