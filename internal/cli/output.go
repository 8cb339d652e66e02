package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BalanceBalls/timesheet-tracker/internal/timesheet"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// Success writes data as JSON, or text as is.
func (f *OutputFormatter) Success(data interface{}, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	_, err := fmt.Fprint(f.Writer, text)
	return err
}

type taskLogView struct {
	TaskID    string     `json:"task_id"`
	Title     string     `json:"title"`
	Project   string     `json:"project"`
	Minutes   float64    `json:"minutes"`
	Active    bool       `json:"active"`
	StartTime *time.Time `json:"start_time,omitempty"`
}

type dayView struct {
	Date        string        `json:"date"`
	TimesheetID string        `json:"timesheet_id,omitempty"`
	Locked      bool          `json:"locked"`
	TaskLogs    []taskLogView `json:"task_logs"`
}

func newTaskLogView(tl *timesheet.TaskLog, now time.Time) taskLogView {
	v := taskLogView{
		TaskID:  tl.TaskID,
		Title:   tl.Title,
		Project: timesheet.UnknownProject.Title,
		Minutes: tl.Minutes(now),
		Active:  tl.IsActive,
	}
	if tl.Task != nil && tl.Task.Project != nil {
		v.Project = tl.Task.Project.Title
	}
	if tl.IsActive {
		start := tl.StartTime
		v.StartTime = &start
	}
	return v
}

func newDayView(day *timesheet.DayLog, now time.Time) dayView {
	v := dayView{
		Date:        timesheet.DateKey(day.Date),
		TimesheetID: day.ID,
		Locked:      day.Locked,
		TaskLogs:    []taskLogView{},
	}
	for _, tl := range day.TaskLogs {
		v.TaskLogs = append(v.TaskLogs, newTaskLogView(tl, now))
	}
	return v
}

func (v dayView) text() string {
	var sb strings.Builder

	sb.WriteString(v.Date)
	if v.TimesheetID != "" {
		fmt.Fprintf(&sb, " %s", v.TimesheetID)
	}
	if v.Locked {
		sb.WriteString(" (submitted)")
	}
	sb.WriteString("\n")

	for _, tl := range v.TaskLogs {
		marker := " "
		if tl.Active {
			marker = "*"
		}
		fmt.Fprintf(&sb, "  %s %s  %-12s %s [%s]\n",
			marker, formatMinutes(tl.Minutes), tl.TaskID, tl.Title, tl.Project)
	}
	return sb.String()
}

// formatMinutes renders h:mm.
func formatMinutes(m float64) string {
	total := int(m + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
