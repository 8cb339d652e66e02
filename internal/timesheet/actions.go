package timesheet

import (
	"context"
	"fmt"
)

// Today aggregates the current day.
func (e *Engine) Today(ctx context.Context) (*DayLog, error) {
	now := e.Now()
	days, err := e.FetchDays(ctx, now, now)
	if err != nil {
		return nil, err
	}
	return days[DateKey(now)], nil
}

// StartTask starts the timer of a task by id, picking up today's log of the
// task when there is one.
func (e *Engine) StartTask(ctx context.Context, taskID string) (*TaskLog, error) {
	day, err := e.Today(ctx)
	if err != nil {
		return nil, err
	}

	tl := day.TaskLog(taskID)
	if tl == nil {
		// FetchDays refreshed the cache already.
		task, ok := e.Task(taskID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown task %q", ErrInvalidOperation, taskID)
		}
		tl = NewTaskLog(task, day)
	}

	return e.StartTimer(ctx, tl)
}

// StopRunning stops whatever timer the backend shows as running, looking
// back one day for timers left running over midnight.
func (e *Engine) StopRunning(ctx context.Context) (*TaskLog, error) {
	now := e.Now()
	if _, err := e.FetchDays(ctx, now.AddDate(0, 0, -1), now); err != nil {
		return nil, err
	}

	running, ok := e.Timer()
	if !ok {
		return nil, ErrTimerNotRunning
	}
	return e.StopTimer(ctx, &running)
}
