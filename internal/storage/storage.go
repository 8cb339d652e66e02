package storage

import (
	"context"
	"errors"
	"time"

	"golang.org/x/exp/slices"

	"github.com/BalanceBalls/timesheet-tracker/internal/report"
)

var ErrReportNotFound = errors.New("report not found")

// Storage archives daily reports. Saving a report replaces any earlier report
// of the same employee and date.
type Storage interface {
	Up(ctx context.Context) error
	SaveReport(ctx context.Context, r report.Report) (int64, error)
	Report(ctx context.Context, employee string, date time.Time) (report.Report, error)
	Reports(ctx context.Context, employee string, from, to time.Time) ([]report.Report, error)
	Close() error
}

const DateLayout = "2006-01-02"

// FlatRow is one row of the reports/rows join.
type FlatRow struct {
	ReportId    int64
	Employee    string
	Date        time.Time
	TimesheetID string
	Locked      bool

	// Row columns are nil for a report without rows (left join).
	RowTaskID  *string
	RowProject *string
	RowTitle   *string
	RowActive  *bool
	RowHours   *float64
}

type ConvertableRows struct {
	Rows []FlatRow
}

// Convert groups joined rows back into reports, ordered by date.
func (cr *ConvertableRows) Convert() []report.Report {
	byId := make(map[int64]*report.Report)
	var order []int64

	for _, fr := range cr.Rows {
		r, ok := byId[fr.ReportId]
		if !ok {
			r = &report.Report{
				Id:          fr.ReportId,
				Employee:    fr.Employee,
				Date:        fr.Date,
				TimesheetID: fr.TimesheetID,
				Locked:      fr.Locked,
			}
			byId[fr.ReportId] = r
			order = append(order, fr.ReportId)
		}

		if fr.RowTaskID == nil {
			continue
		}

		row := report.ReportRow{ReportId: fr.ReportId, TaskID: *fr.RowTaskID}
		if fr.RowProject != nil {
			row.Project = *fr.RowProject
		}
		if fr.RowTitle != nil {
			row.Title = *fr.RowTitle
		}
		if fr.RowActive != nil {
			row.Active = *fr.RowActive
		}
		if fr.RowHours != nil {
			row.TimeSpent = *fr.RowHours
		}
		r.Rows = append(r.Rows, row)
	}

	result := make([]report.Report, 0, len(order))
	for _, id := range order {
		result = append(result, *byId[id])
	}

	slices.SortStableFunc(result, func(a, b report.Report) int {
		return a.Date.Compare(b.Date)
	})

	return result
}
