package timesheet

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
	"github.com/BalanceBalls/timesheet-tracker/internal/logger"
)

// FetchDays returns one DayLog per calendar day from start to end inclusive,
// keyed by DateKey. Any failed read fails the whole call.
func (e *Engine) FetchDays(ctx context.Context, start, end time.Time) (map[string]*DayLog, error) {
	ctx, log := logger.WithOperation(ctx, "fetch_days")

	employee, err := e.employee()
	if err != nil {
		return nil, err
	}

	days := Days(start, end, e.loc)
	if len(days) == 0 {
		return nil, ErrInvalidRange
	}
	first, last := days[0], days[len(days)-1]

	var (
		tsRecs, detailRecs, projectRecs, taskRecs []frappe.Record
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tsRecs, err = e.res.Timesheets.Read(gctx, frappe.Query{
			Fields: timesheetFields,
			Filters: []frappe.Filter{
				{Field: "employee", Op: frappe.OpEq, Value: employee},
				{Field: "start_date", Op: frappe.OpGte, Value: frappe.FormatDate(first, e.loc)},
				{Field: "start_date", Op: frappe.OpLte, Value: frappe.FormatDate(last, e.loc)},
			},
			OrderBy: "start_date asc",
		})
		return err
	})
	g.Go(func() (err error) {
		detailRecs, err = e.res.Details.Read(gctx, frappe.Query{
			Fields: detailFields,
			Filters: []frappe.Filter{
				{Field: "from_time", Op: frappe.OpGte, Value: frappe.FormatDatetime(first, e.loc)},
				{Field: "from_time", Op: frappe.OpLt, Value: frappe.FormatDatetime(nextMidnight(last), e.loc)},
			},
			OrderBy: "from_time asc",
		})
		return err
	})
	g.Go(func() (err error) {
		projectRecs, err = e.readProjects(gctx)
		return err
	})
	g.Go(func() (err error) {
		taskRecs, err = e.readTasks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	timesheets, err := decodeTimesheets(tsRecs, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", frappe.ErrRead, err)
	}
	details, err := decodeDetails(detailRecs, e.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", frappe.ErrRead, err)
	}

	e.projects = CacheProjects(projectRecs)
	e.tasks = CacheTasks(taskRecs, e.projects)

	result := make(map[string]*DayLog, len(days))
	for _, day := range days {
		dl := e.foldDay(ctx, day, timesheets, details)
		result[DateKey(day)] = dl
	}

	e.observeTimer(result)

	log.DebugContext(ctx, "days fetched",
		"from", DateKey(first),
		"to", DateKey(last),
		"timesheets", len(timesheets),
		"details", len(details))

	return result, nil
}

// nextMidnight is the exclusive upper bound of day. Backend datetimes carry
// microseconds, so an inclusive 23:59:59 bound would miss the last second.
func nextMidnight(day time.Time) time.Time {
	return day.AddDate(0, 0, 1)
}

// foldDay builds the DayLog of one day. Only one timesheet per day is
// expected; when the backend has more, the first by start date wins.
func (e *Engine) foldDay(ctx context.Context, day time.Time, timesheets []Timesheet, details []TimesheetDetail) *DayLog {
	var matched []Timesheet
	for _, ts := range timesheets {
		if sameDay(ts.StartDate, day) {
			matched = append(matched, ts)
		}
	}

	if len(matched) == 0 {
		return &DayLog{Date: day, TaskLogs: []*TaskLog{}}
	}
	if len(matched) > 1 {
		logger.GetFromContext(ctx).WarnContext(ctx, "more than one timesheet for a day",
			"date", DateKey(day), "using", matched[0].ID, "count", len(matched))
	}
	ts := matched[0]

	var taskOrder []string
	groups := map[string][]TimesheetDetail{}
	for _, d := range details {
		if d.Parent != ts.ID {
			continue
		}
		if _, ok := groups[d.Task]; !ok {
			taskOrder = append(taskOrder, d.Task)
		}
		groups[d.Task] = append(groups[d.Task], d)
	}

	logs := make([]*TaskLog, 0, len(taskOrder))
	for _, taskID := range taskOrder {
		group := groups[taskID]
		tl := foldTaskLog(e.taskFor(taskID, group[0].Project), ts.ID, group)
		if tl.Duplicates > 0 {
			logger.GetFromContext(ctx).WarnContext(ctx, "task has more than one open detail",
				"timesheet", ts.ID, "task", taskID, "extra", tl.Duplicates)
		}
		logs = append(logs, tl)
	}
	sortTaskLogs(logs)

	return &DayLog{
		ID:       ts.ID,
		Date:     day,
		Locked:   ts.Locked(),
		TaskLogs: logs,
	}
}

// foldTaskLog folds the details of one task in one timesheet. The first open
// detail encountered makes the log active; further open details are counted
// as duplicates and ignored.
func foldTaskLog(task *Task, timesheetID string, details []TimesheetDetail) *TaskLog {
	tl := &TaskLog{
		Task:        task,
		TaskID:      task.ID,
		Title:       task.Title,
		Description: task.Description,
		TimesheetID: timesheetID,
	}

	for _, d := range details {
		if tl.firstFrom.IsZero() || d.From.Before(tl.firstFrom) {
			tl.firstFrom = d.From
		}

		if !d.Open() {
			tl.Accumulated += hoursToDuration(d.Hours)
			continue
		}

		if tl.IsActive {
			tl.Duplicates++
			continue
		}
		tl.IsActive = true
		tl.StartTime = d.From
		tl.DetailID = d.ID
	}

	return tl
}

// sortTaskLogs orders active logs by StartTime first. Logs without a
// StartTime follow, ordered by their earliest detail; task id breaks ties.
func sortTaskLogs(logs []*TaskLog) {
	slices.SortStableFunc(logs, func(a, b *TaskLog) int {
		aStart, bStart := !a.StartTime.IsZero(), !b.StartTime.IsZero()
		switch {
		case aStart && !bStart:
			return -1
		case !aStart && bStart:
			return 1
		case aStart && bStart:
			if c := a.StartTime.Compare(b.StartTime); c != 0 {
				return c
			}
		default:
			if c := a.firstFrom.Compare(b.firstFrom); c != 0 {
				return c
			}
		}
		switch {
		case a.TaskID < b.TaskID:
			return -1
		case a.TaskID > b.TaskID:
			return 1
		}
		return 0
	})
}

// observeTimer refreshes the advisory timer pointer from freshly folded
// days. A cached timer whose timesheet lies outside the fetched range is kept
// as is; otherwise the pointer follows what the backend shows, dropping a
// closed timer and adopting the first active log.
func (e *Engine) observeTimer(days map[string]*DayLog) {
	covered := false
	var active *TaskLog
	for _, dl := range SortedDays(days) {
		if e.timerLog != nil && dl.ID != "" && dl.ID == e.timerLog.TimesheetID {
			covered = true
		}
		for _, tl := range dl.TaskLogs {
			if !tl.IsActive {
				continue
			}
			if e.timerDetail != "" && e.timerDetail == tl.DetailID {
				e.setTimer(tl)
				return
			}
			if active == nil {
				active = tl
			}
		}
	}

	if e.timerLog != nil && !covered {
		return
	}
	if active != nil {
		e.setTimer(active)
		return
	}
	e.clearTimer()
}

func logAttrsForDetail(d TimesheetDetail) []any {
	return []any{
		slog.String("detail", d.ID),
		slog.String("timesheet", d.Parent),
		slog.String("task", d.Task),
	}
}
