package bot

import (
	"context"
	"time"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BalanceBalls/timesheet-tracker/internal/generator"
	"github.com/BalanceBalls/timesheet-tracker/internal/report"
	"github.com/BalanceBalls/timesheet-tracker/internal/timesheet"
)

// API is the part of *tg.BotAPI the bot uses.
type API interface {
	Send(c tg.Chattable) (tg.Message, error)
	GetUpdatesChan(config tg.UpdateConfig) tg.UpdatesChannel
	StopReceivingUpdates()
}

// Tracker is the timesheet engine as seen by the bot.
type Tracker interface {
	Now() time.Time
	Session() timesheet.Session
	Today(ctx context.Context) (*timesheet.DayLog, error)
	FetchDays(ctx context.Context, start, end time.Time) (map[string]*timesheet.DayLog, error)
	FetchTasks(ctx context.Context) (map[string]*timesheet.Task, error)
	StartTask(ctx context.Context, taskID string) (*timesheet.TaskLog, error)
	StopRunning(ctx context.Context) (*timesheet.TaskLog, error)
}

type Storage interface {
	SaveReport(ctx context.Context, r report.Report) (int64, error)
	Reports(ctx context.Context, employee string, from, to time.Time) ([]report.Report, error)
}

type Generator interface {
	Generate(period generator.Period, reports []report.Report) (report.Result, error)
}
