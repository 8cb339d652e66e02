package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tg "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/BalanceBalls/timesheet-tracker/internal/generator"
	"github.com/BalanceBalls/timesheet-tracker/internal/logger"
	"github.com/BalanceBalls/timesheet-tracker/internal/report"
	"github.com/BalanceBalls/timesheet-tracker/internal/timesheet"
)

// commands
const (
	startCmd  = "start"
	helpCmd   = "help"
	todayCmd  = "today"
	tasksCmd  = "tasks"
	trackCmd  = "track"
	stopCmd   = "stop"
	reportCmd = "report"
)

const maxReportDays = 31

// TimesheetBot drives the timesheet of the logged in employee from one chat.
//
// Updates are handled one at a time, which is what keeps timer commands from
// overlapping on the engine.
type TimesheetBot struct {
	api API

	chatID  int64
	timeout time.Duration

	tracker   Tracker
	storage   Storage
	generator Generator
}

func New(api API, chatID int64, timeout time.Duration, tracker Tracker, storage Storage, generator Generator) *TimesheetBot {
	return &TimesheetBot{
		api:       api,
		chatID:    chatID,
		timeout:   timeout,
		tracker:   tracker,
		storage:   storage,
		generator: generator,
	}
}

// Serve handles updates until ctx is cancelled.
func (b *TimesheetBot) Serve(ctx context.Context) error {
	log := logger.GetFromContext(ctx)
	log.InfoContext(ctx, "bot started", "chat_id", b.chatID, "employee", b.tracker.Session().Employee)

	updateConfig := tg.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			// ignore any non-Message updates
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *TimesheetBot) handleMessage(ctx context.Context, msg *tg.Message) {
	log := logger.GetFromContext(ctx)

	if msg.Chat == nil {
		return
	}
	chatId := msg.Chat.ID

	if chatId != b.chatID {
		log.WarnContext(ctx, "message from unexpected chat", "chat_id", chatId)
		b.sendText(ctx, accessDeniedMsg, chatId)
		return
	}

	if !msg.IsCommand() {
		log.DebugContext(ctx, "user input was not recognized", "text", msg.Text)
		b.sendText(ctx, unknownCommandMsg, chatId)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	args := strings.TrimSpace(msg.CommandArguments())

	// Extract the command from the Message.
	switch msg.Command() {
	case startCmd:
		b.sendText(ctx, helloMsg, chatId)
	case helpCmd:
		b.sendText(ctx, fmt.Sprintf(helpMsg, b.tracker.Session().Employee, maxReportDays), chatId)
	case todayCmd:
		b.handleToday(ctx, chatId)
	case tasksCmd:
		b.handleTasks(ctx, chatId)
	case trackCmd:
		b.handleTrack(ctx, args, chatId)
	case stopCmd:
		b.handleStop(ctx, chatId)
	case reportCmd:
		b.handleReport(ctx, args, chatId)
	default:
		log.DebugContext(ctx, "command was not recognized", "command", msg.Command())
		b.sendText(ctx, unknownCommandMsg, chatId)
	}
}

func (b *TimesheetBot) handleToday(ctx context.Context, chatId int64) {
	day, err := b.tracker.Today(ctx)
	if err != nil {
		b.sendError(ctx, err, chatId)
		return
	}

	b.sendText(ctx, formatDay(day, b.tracker.Now()), chatId)
}

func (b *TimesheetBot) handleTasks(ctx context.Context, chatId int64) {
	tasks, err := b.tracker.FetchTasks(ctx)
	if err != nil {
		b.sendError(ctx, err, chatId)
		return
	}
	if len(tasks) == 0 {
		b.sendText(ctx, noTasksMsg, chatId)
		return
	}

	ids := maps.Keys(tasks)
	slices.Sort(ids)

	var sb strings.Builder
	for _, id := range ids {
		t := tasks[id]
		fmt.Fprintf(&sb, "%s %s [%s]\n", t.ID, t.Title, t.Project.Title)
	}
	b.sendText(ctx, sb.String(), chatId)
}

func (b *TimesheetBot) handleTrack(ctx context.Context, taskID string, chatId int64) {
	if taskID == "" {
		b.sendText(ctx, taskIdMissingMsg, chatId)
		return
	}

	tl, err := b.tracker.StartTask(ctx, taskID)
	if err != nil {
		b.sendError(ctx, err, chatId)
		return
	}

	b.sendText(ctx, fmt.Sprintf(timerStartedTemplate, tl.TaskID, tl.Title), chatId)
}

func (b *TimesheetBot) handleStop(ctx context.Context, chatId int64) {
	tl, err := b.tracker.StopRunning(ctx)
	if err != nil {
		b.sendError(ctx, err, chatId)
		return
	}

	b.sendText(ctx, fmt.Sprintf(timerStoppedTemplate, tl.TaskID, tl.Title, formatDuration(tl.Accumulated)), chatId)
}

func (b *TimesheetBot) handleReport(ctx context.Context, args string, chatId int64) {
	log := logger.GetFromContext(ctx)

	days := 1
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 || n > maxReportDays {
			b.sendText(ctx, reportDaysBadInputMsg, chatId)
			return
		}
		days = n
	}

	now := b.tracker.Now()
	from := now.AddDate(0, 0, 1-days)

	dayLogs, err := b.tracker.FetchDays(ctx, from, now)
	if err != nil {
		b.sendError(ctx, err, chatId)
		return
	}

	employee := b.tracker.Session().Employee
	for _, day := range timesheet.SortedDays(dayLogs) {
		if _, err := b.storage.SaveReport(ctx, report.FromDayLog(employee, day, now)); err != nil {
			log.ErrorContext(ctx, "failed to save report", "date", timesheet.DateKey(day.Date), "error", err)
			b.sendText(ctx, reportFailedMsg, chatId)
			return
		}
	}

	period := generator.Period{Employee: employee, From: from, To: now}
	reports, err := b.storage.Reports(ctx, employee, from, now)
	if err != nil {
		log.ErrorContext(ctx, "failed to load reports", "error", err)
		b.sendText(ctx, reportFailedMsg, chatId)
		return
	}

	result, err := b.generator.Generate(period, reports)
	if err != nil {
		log.ErrorContext(ctx, "failed to generate report", "error", err)
		b.sendText(ctx, reportFailedMsg, chatId)
		return
	}

	file := tg.FileBytes{
		Name:  result.Name,
		Bytes: result.Data,
	}

	msg := tg.NewDocument(chatId, file)
	msg.Caption = fmt.Sprintf(reportFileCaption, timesheet.DateKey(from), timesheet.DateKey(now))
	if _, err := b.api.Send(msg); err != nil {
		log.ErrorContext(ctx, "failed to send report", "error", err)
	}
}

// sendError shows conflicts with the timesheet as they are and hides
// transport details behind a generic reply.
func (b *TimesheetBot) sendError(ctx context.Context, err error, chatId int64) {
	if errors.Is(err, timesheet.ErrInvalidOperation) {
		b.sendText(ctx, "Ошибка: "+err.Error(), chatId)
		return
	}

	logger.GetFromContext(ctx).ErrorContext(ctx, "command failed", "error", err)
	b.sendText(ctx, commandFailedMsg, chatId)
}

func (b *TimesheetBot) sendText(ctx context.Context, text string, chatId int64) {
	message := tg.NewMessage(chatId, text)

	if _, err := b.api.Send(message); err != nil {
		logger.GetFromContext(ctx).ErrorContext(ctx, "failed to send message", "chat_id", chatId, "error", err)
	}
}

func formatDay(day *timesheet.DayLog, now time.Time) string {
	if day == nil || len(day.TaskLogs) == 0 {
		return emptyDayMsg
	}

	var total time.Duration
	var sb strings.Builder
	for _, tl := range day.TaskLogs {
		d := tl.Duration(now)
		total += d

		marker := " "
		if tl.IsActive {
			marker = "▶"
		}
		fmt.Fprintf(&sb, "%s %s %s %s\n", marker, formatDuration(d), tl.TaskID, tl.Title)
	}

	suffix := ""
	if day.Locked {
		suffix = lockedDaySuffix
	}

	header := fmt.Sprintf(todayHeaderTemplate, timesheet.DateKey(day.Date), formatDuration(total), suffix)
	return header + "\n" + sb.String()
}

// formatDuration renders h:mm.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%d:%02d", int(d.Hours()), int(d.Minutes())%60)
}
