package timesheet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
	"github.com/BalanceBalls/timesheet-tracker/internal/logger"
)

// StartTimer opens a new detail for the task in today's timesheet, creating
// the timesheet when the day has none. It fails with ErrTimerRunning while
// any open detail exists in the task's timesheet, in today's or in any other
// draft timesheet of the employee.
//
// The call is not idempotent: a retry after an ambiguous failure re-checks
// the backend rather than assuming the first attempt had no effect.
func (e *Engine) StartTimer(ctx context.Context, tl *TaskLog) (*TaskLog, error) {
	ctx, log := logger.WithOperation(ctx, "start_timer")

	employee, err := e.employee()
	if err != nil {
		return nil, err
	}
	if tl == nil || tl.TaskID == "" {
		return nil, fmt.Errorf("%w: no task to start", ErrInvalidOperation)
	}

	now := e.Now()

	today, err := e.findTimesheet(ctx, employee, now)
	if err != nil {
		return nil, err
	}
	if today != nil && today.Locked() {
		return nil, fmt.Errorf("%w: %s", ErrLocked, today.ID)
	}

	checked := map[string]bool{}
	for _, parent := range []string{tl.TimesheetID, idOf(today)} {
		if parent == "" || checked[parent] {
			continue
		}
		checked[parent] = true

		open, err := e.openDetails(ctx, parent, "")
		if err != nil {
			return nil, err
		}
		if len(open) > 0 {
			return nil, fmt.Errorf("%w: task %s in timesheet %s", ErrTimerRunning, open[0].Task, parent)
		}
	}

	if err := e.checkOtherDrafts(ctx, employee, checked); err != nil {
		return nil, err
	}

	if err := e.revalidateTimer(ctx, checked); err != nil {
		return nil, err
	}

	if today == nil {
		today, err = e.createTimesheet(ctx, employee, now)
		if err != nil {
			return nil, err
		}
	}

	rec, err := e.res.Details.Create(ctx, frappe.Record{
		"parent":      today.ID,
		"parenttype":  frappe.DoctypeTimesheet,
		"parentfield": "time_logs",
		"task":        tl.TaskID,
		"project":     projectOf(tl),
		"from_time":   frappe.FormatDatetime(now, e.loc),
		"to_time":     nil,
		"hours":       0,
	})
	if err != nil {
		return nil, err
	}

	created, err := decodeDetail(rec, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", frappe.ErrCreate, err)
	}
	if created.From.IsZero() {
		created.From = now.Truncate(time.Second)
	}

	tl.IsActive = true
	tl.StartTime = created.From
	tl.DetailID = created.ID
	tl.TimesheetID = today.ID
	e.setTimer(tl)

	log.InfoContext(ctx, "timer started", logAttrsForDetail(created)...)
	return tl, nil
}

// StopTimer closes the single open detail of the task and folds its hours
// into the log. Zero open details fail with ErrTimerNotRunning; more than one
// fails with ErrInconsistentState and leaves the backend untouched.
func (e *Engine) StopTimer(ctx context.Context, tl *TaskLog) (*TaskLog, error) {
	ctx, log := logger.WithOperation(ctx, "stop_timer")

	if _, err := e.employee(); err != nil {
		return nil, err
	}
	if tl == nil || tl.TaskID == "" || tl.TimesheetID == "" {
		return nil, ErrTimerNotRunning
	}

	open, err := e.openDetails(ctx, tl.TimesheetID, tl.TaskID)
	if err != nil {
		return nil, err
	}

	switch {
	case len(open) == 0:
		if e.timerLog == tl || (tl.DetailID != "" && e.timerDetail == tl.DetailID) {
			e.clearTimer()
		}
		return nil, fmt.Errorf("%w: task %s", ErrTimerNotRunning, tl.TaskID)
	case len(open) > 1:
		return nil, fmt.Errorf("%w: task %s has %d open details in timesheet %s",
			ErrInconsistentState, tl.TaskID, len(open), tl.TimesheetID)
	}

	detail := open[0]
	now := e.Now()
	elapsed := now.Sub(detail.From)
	if elapsed < 0 {
		elapsed = 0
	}
	hours := durationToHours(elapsed)

	rec, err := e.res.Details.Update(ctx, detail.ID, frappe.Record{
		"to_time": frappe.FormatDatetime(now, e.loc),
		"hours":   hours,
	})
	if err != nil {
		return nil, err
	}

	if _, ok := rec["hours"]; ok {
		hours = rec.Float("hours")
	}

	tl.Accumulated += hoursToDuration(hours)
	tl.IsActive = false
	tl.StartTime = time.Time{}
	tl.DetailID = ""
	if e.timerLog == tl || e.timerDetail == detail.ID {
		e.clearTimer()
	}

	log.InfoContext(ctx, "timer stopped", append(logAttrsForDetail(detail), "hours", hours)...)
	return tl, nil
}

// checkOtherDrafts fails with ErrTimerRunning when any draft timesheet of the
// employee not checked yet holds an open detail, e.g. a timer left running
// over midnight by another process. Every draft is marked as checked.
func (e *Engine) checkOtherDrafts(ctx context.Context, employee string, checked map[string]bool) error {
	recs, err := e.res.Timesheets.Read(ctx, frappe.Query{
		Fields: timesheetFields,
		Filters: []frappe.Filter{
			{Field: "employee", Op: frappe.OpEq, Value: employee},
			{Field: "status", Op: frappe.OpEq, Value: StatusDraft},
		},
	})
	if err != nil {
		return err
	}
	timesheets, err := decodeTimesheets(recs, e.loc)
	if err != nil {
		return fmt.Errorf("%w: %w", frappe.ErrRead, err)
	}

	drafts := map[string]bool{}
	for _, ts := range timesheets {
		if !checked[ts.ID] {
			drafts[ts.ID] = true
		}
		checked[ts.ID] = true
	}
	if len(drafts) == 0 {
		return nil
	}

	recs, err = e.res.Details.Read(ctx, frappe.Query{
		Fields:  detailFields,
		Filters: []frappe.Filter{{Field: "to_time", Op: frappe.OpIs, Value: frappe.IsNotSet}},
		OrderBy: "from_time asc",
	})
	if err != nil {
		return err
	}
	details, err := decodeDetails(recs, e.loc)
	if err != nil {
		return fmt.Errorf("%w: %w", frappe.ErrRead, err)
	}

	for _, d := range details {
		if d.Open() && drafts[d.Parent] {
			return fmt.Errorf("%w: task %s in timesheet %s", ErrTimerRunning, d.Task, d.Parent)
		}
	}
	return nil
}

// revalidateTimer checks a cached timer that lives outside the timesheets
// already inspected. A still open detail blocks the start; anything else
// drops the stale pointer.
func (e *Engine) revalidateTimer(ctx context.Context, checked map[string]bool) error {
	if e.timerDetail == "" {
		return nil
	}
	if e.timerLog != nil && checked[e.timerLog.TimesheetID] {
		e.clearTimer()
		return nil
	}

	recs, err := e.res.Details.Read(ctx, frappe.Query{
		Fields:  detailFields,
		Filters: []frappe.Filter{{Field: "name", Op: frappe.OpEq, Value: e.timerDetail}},
		Limit:   1,
	})
	if err != nil {
		return err
	}

	if len(recs) == 1 {
		d, err := decodeDetail(recs[0], e.loc)
		if err != nil {
			return fmt.Errorf("%w: %w", frappe.ErrRead, err)
		}
		if d.Open() {
			return fmt.Errorf("%w: task %s in timesheet %s", ErrTimerRunning, d.Task, d.Parent)
		}
	}

	e.clearTimer()
	return nil
}

// openDetails reads the open details of a timesheet, optionally of one task,
// oldest first.
func (e *Engine) openDetails(ctx context.Context, parent, task string) ([]TimesheetDetail, error) {
	filters := []frappe.Filter{
		{Field: "parent", Op: frappe.OpEq, Value: parent},
		{Field: "to_time", Op: frappe.OpIs, Value: frappe.IsNotSet},
	}
	if task != "" {
		filters = append(filters, frappe.Filter{Field: "task", Op: frappe.OpEq, Value: task})
	}

	recs, err := e.res.Details.Read(ctx, frappe.Query{
		Fields:  detailFields,
		Filters: filters,
		OrderBy: "from_time asc",
	})
	if err != nil {
		return nil, err
	}

	details, err := decodeDetails(recs, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", frappe.ErrRead, err)
	}

	// The backend filter is trusted for narrowing only.
	open := details[:0]
	for _, d := range details {
		if d.Open() {
			open = append(open, d)
		}
	}
	return open, nil
}

// findTimesheet returns the timesheet of the employee starting on day's date,
// preferring a draft when the backend has several. It returns nil when none exists.
func (e *Engine) findTimesheet(ctx context.Context, employee string, day time.Time) (*Timesheet, error) {
	date := frappe.FormatDate(day, e.loc)
	recs, err := e.res.Timesheets.Read(ctx, frappe.Query{
		Fields: timesheetFields,
		Filters: []frappe.Filter{
			{Field: "employee", Op: frappe.OpEq, Value: employee},
			{Field: "start_date", Op: frappe.OpGte, Value: date},
			{Field: "start_date", Op: frappe.OpLte, Value: date},
		},
		OrderBy: "start_date asc",
	})
	if err != nil {
		return nil, err
	}

	timesheets, err := decodeTimesheets(recs, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", frappe.ErrRead, err)
	}
	if len(timesheets) == 0 {
		return nil, nil
	}

	for i := range timesheets {
		if !timesheets[i].Locked() {
			return &timesheets[i], nil
		}
	}
	return &timesheets[0], nil
}

func (e *Engine) createTimesheet(ctx context.Context, employee string, day time.Time) (*Timesheet, error) {
	rec, err := e.res.Timesheets.Create(ctx, frappe.Record{
		"employee":   employee,
		"start_date": frappe.FormatDate(day, e.loc),
		"status":     StatusDraft,
	})
	if err != nil {
		return nil, err
	}

	ts, err := decodeTimesheet(rec, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", frappe.ErrCreate, err)
	}
	if ts.ID == "" {
		return nil, &frappe.Error{Kind: frappe.ErrCreate, Doctype: frappe.DoctypeTimesheet,
			Err: errors.New("created timesheet has no name")}
	}

	logger.GetFromContext(ctx).InfoContext(ctx, "timesheet created", "timesheet", ts.ID, "date", DateKey(day))
	return &ts, nil
}

func idOf(ts *Timesheet) string {
	if ts == nil {
		return ""
	}
	return ts.ID
}

func projectOf(tl *TaskLog) string {
	if tl.Task == nil {
		return ""
	}
	if tl.Task.Project != nil && tl.Task.Project != UnknownProject {
		return tl.Task.Project.ID
	}
	return tl.Task.ProjectID
}
