package report

import (
	"time"

	"github.com/BalanceBalls/timesheet-tracker/internal/timesheet"
)

// Report is the work of one employee on one day, as it is archived.
type Report struct {
	Id          int64       `json:"reportId"`
	Employee    string      `json:"employee"`
	Date        time.Time   `json:"date"`
	TimesheetID string      `json:"timesheetId"`
	Locked      bool        `json:"locked"`
	Rows        []ReportRow `json:"rows"`
}

type ReportRow struct {
	ReportId int64  `json:"rowReportId"`
	TaskID   string `json:"taskId"`
	Project  string `json:"project"`
	Title    string `json:"title"`
	Active   bool   `json:"active"`
	// Hours
	TimeSpent float64 `json:"timeSpent"`
}

// Result is a rendered document ready to be saved or sent.
type Result struct {
	Name string
	Data []byte
}

// FromDayLog snapshots a day at now. Running timers count up to now.
func FromDayLog(employee string, day *timesheet.DayLog, now time.Time) Report {
	r := Report{
		Employee:    employee,
		Date:        day.Date,
		TimesheetID: day.ID,
		Locked:      day.Locked,
	}

	for _, tl := range day.TaskLogs {
		project := timesheet.UnknownProject.Title
		if tl.Task != nil && tl.Task.Project != nil {
			project = tl.Task.Project.Title
		}

		r.Rows = append(r.Rows, ReportRow{
			TaskID:    tl.TaskID,
			Project:   project,
			Title:     tl.Title,
			Active:    tl.IsActive,
			TimeSpent: roundHours(tl.Duration(now).Hours()),
		})
	}

	return r
}

// Total is the sum of all rows in hours.
func (r Report) Total() float64 {
	var total float64
	for _, row := range r.Rows {
		total += row.TimeSpent
	}
	return roundHours(total)
}

func roundHours(h float64) float64 {
	return float64(int64(h*100+0.5)) / 100
}
