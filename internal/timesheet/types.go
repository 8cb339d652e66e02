package timesheet

import (
	"math"
	"time"
)

// Timesheet statuses as stored by the backend.
const (
	StatusDraft     = "Draft"
	StatusSubmitted = "Submitted"
)

type Project struct {
	ID          string
	Title       string
	Description string
}

// UnknownProject stands in for a project reference the cache cannot resolve.
var UnknownProject = &Project{Title: "Unknown project"}

type Task struct {
	ID          string
	Title       string
	Description string
	Status      string
	AssignedTo  []string
	Tags        []string

	// ProjectID is the raw reference; Project is never nil.
	ProjectID string
	Project   *Project
}

// Timesheet is the remote document grouping the work of one employee, in
// practice one per day.
type Timesheet struct {
	ID         string
	Employee   string
	StartDate  time.Time
	Status     string
	TotalHours float64
}

// Locked reports whether the timesheet no longer accepts changes.
func (t Timesheet) Locked() bool {
	return t.Status != StatusDraft
}

// TimesheetDetail is one slice of worked time. A zero To means the slice is
// still running.
type TimesheetDetail struct {
	ID      string
	Parent  string
	Task    string
	Project string
	From    time.Time
	To      time.Time
	Hours   float64
}

func (d TimesheetDetail) Open() bool {
	return d.To.IsZero()
}

// TaskLog is everything done on one task within one day.
type TaskLog struct {
	Task        *Task
	TaskID      string
	Title       string
	Description string

	// Accumulated is the time of all closed details.
	Accumulated time.Duration
	IsActive    bool
	// StartTime is set only while IsActive.
	StartTime time.Time

	TimesheetID string
	// DetailID is the open detail while IsActive.
	DetailID string
	// Duplicates counts open details beyond the first one seen. Anything
	// other than zero means the backend needs a repair.
	Duplicates int

	firstFrom time.Time
}

// NewTaskLog returns an idle log for a task not worked on yet in the given day.
func NewTaskLog(task *Task, day *DayLog) *TaskLog {
	tl := &TaskLog{
		Task:        task,
		TaskID:      task.ID,
		Title:       task.Title,
		Description: task.Description,
	}
	if day != nil {
		tl.TimesheetID = day.ID
	}
	return tl
}

// Duration is the accumulated time plus the live time of a running timer.
func (tl *TaskLog) Duration(now time.Time) time.Duration {
	d := tl.Accumulated
	if tl.IsActive && !tl.StartTime.IsZero() && now.After(tl.StartTime) {
		d += now.Sub(tl.StartTime)
	}
	return d
}

// Minutes is Duration expressed in minutes.
func (tl *TaskLog) Minutes(now time.Time) float64 {
	return tl.Duration(now).Minutes()
}

// DayLog is all the work of one calendar day.
type DayLog struct {
	// ID is the timesheet id, empty when the day has no timesheet yet.
	ID       string
	Date     time.Time
	Locked   bool
	TaskLogs []*TaskLog
}

// TaskLog returns the log for taskID, or nil.
func (d *DayLog) TaskLog(taskID string) *TaskLog {
	for _, tl := range d.TaskLogs {
		if tl.TaskID == taskID {
			return tl
		}
	}
	return nil
}

// hoursToDuration converts the decimal hours the backend stores, rounded to
// the second.
func hoursToDuration(hours float64) time.Duration {
	return time.Duration(math.Round(hours * 3600)) * time.Second
}

// durationToHours is the inverse of hoursToDuration with six decimals, which
// is finer than the backend keeps.
func durationToHours(d time.Duration) float64 {
	return math.Round(d.Hours()*1e6) / 1e6
}
