package timesheet

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
	"github.com/BalanceBalls/timesheet-tracker/internal/logger"
)

// Resource is CRUD access to one remote doctype.
type Resource interface {
	Create(ctx context.Context, data frappe.Record) (frappe.Record, error)
	Read(ctx context.Context, q frappe.Query) ([]frappe.Record, error)
	Update(ctx context.Context, name string, data frappe.Record) (frappe.Record, error)
	Delete(ctx context.Context, name string) error
}

// Resources are the four doctypes the engine reads and mutates.
type Resources struct {
	Projects   Resource
	Tasks      Resource
	Timesheets Resource
	Details    Resource
}

type Authenticator interface {
	Login(ctx context.Context, creds frappe.Credentials) (frappe.Session, error)
}

// Session is the result of a login.
type Session struct {
	frappe.Session
	Repair RepairResult
}

// NewTask describes a task to create.
type NewTask struct {
	Title       string
	Description string
	ProjectID   string
}

const defaultRepairConcurrency = 4

// Engine mirrors the timesheets of one employee and mutates them.
//
// Engine is not safe for concurrent use. Callers must not overlap StartTimer
// and StopTimer calls; nothing inside serialises them.
type Engine struct {
	res  Resources
	auth Authenticator

	loc               *time.Location
	now               func() time.Time
	repairConcurrency int

	session Session

	projects map[string]*Project
	tasks    map[string]*Task

	// Advisory pointer to the running timer. Always re-checked against the
	// backend before a mutation.
	timerLog    *TaskLog
	timerDetail string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithRepairConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.repairConcurrency = n
		}
	}
}

// WithEmployee skips Login for callers that already know the employee.
func WithEmployee(employee string) Option {
	return func(e *Engine) { e.session.Employee = employee }
}

func New(res Resources, auth Authenticator, opts ...Option) *Engine {
	e := &Engine{
		res:               res,
		auth:              auth,
		loc:               time.Local,
		now:               time.Now,
		repairConcurrency: defaultRepairConcurrency,
		projects:          map[string]*Project{},
		tasks:             map[string]*Task{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FrappeResources wires a Frappe client to the engine.
func FrappeResources(c *frappe.Client) Resources {
	return Resources{
		Projects:   c.Resource(frappe.DoctypeProject),
		Tasks:      c.Resource(frappe.DoctypeTask),
		Timesheets: c.Resource(frappe.DoctypeTimesheet),
		Details:    c.Resource(frappe.DoctypeTimesheetDetail),
	}
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

func (e *Engine) Session() Session {
	return e.session
}

func (e *Engine) employee() (string, error) {
	if e.session.Employee == "" {
		return "", ErrNotLoggedIn
	}
	return e.session.Employee, nil
}

// Login authenticates, then runs the consistency repair once.
func (e *Engine) Login(ctx context.Context, creds frappe.Credentials) (Session, error) {
	ctx, log := logger.WithOperation(ctx, "login")

	fs, err := e.auth.Login(ctx, creds)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}

	e.session = Session{Session: fs}
	e.timerLog, e.timerDetail = nil, ""

	repair, err := e.ValidateTimesheet(ctx)
	if err != nil {
		e.session = Session{}
		return Session{}, fmt.Errorf("%w: consistency repair: %w", frappe.ErrLogin, err)
	}

	e.session.Repair = repair
	log.InfoContext(ctx, "logged in",
		"user", fs.User,
		"employee", fs.Employee,
		"repaired", len(repair.Deleted),
		"repair_failures", len(repair.Failed))

	return e.session, nil
}

func (e *Engine) readProjects(ctx context.Context) ([]frappe.Record, error) {
	return e.res.Projects.Read(ctx, frappe.Query{
		Fields:  projectFields,
		Filters: []frappe.Filter{{Field: "status", Op: frappe.OpEq, Value: "Open"}},
		OrderBy: "project_name asc",
	})
}

func (e *Engine) readTasks(ctx context.Context) ([]frappe.Record, error) {
	return e.res.Tasks.Read(ctx, frappe.Query{
		Fields:  taskFields,
		Filters: []frappe.Filter{{Field: "status", Op: frappe.OpNe, Value: taskStatusClosed}},
		OrderBy: "subject asc",
	})
}

const taskStatusClosed = "Completed"

// FetchProjects replaces the project cache with the open projects.
func (e *Engine) FetchProjects(ctx context.Context) (map[string]*Project, error) {
	ctx, _ = logger.WithOperation(ctx, "fetch_projects")

	records, err := e.readProjects(ctx)
	if err != nil {
		return nil, err
	}

	e.projects = CacheProjects(records)
	return e.Projects(), nil
}

// FetchTasks replaces both caches, since tasks resolve their projects.
func (e *Engine) FetchTasks(ctx context.Context) (map[string]*Task, error) {
	ctx, _ = logger.WithOperation(ctx, "fetch_tasks")

	var projectRecs, taskRecs []frappe.Record
	g, gctx := errgroup.WithContext(ctx)
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

	e.projects = CacheProjects(projectRecs)
	e.tasks = CacheTasks(taskRecs, e.projects)
	return e.Tasks(), nil
}

// Projects returns a snapshot of the project cache.
func (e *Engine) Projects() map[string]*Project {
	return maps.Clone(e.projects)
}

// Tasks returns a snapshot of the task cache.
func (e *Engine) Tasks() map[string]*Task {
	return maps.Clone(e.tasks)
}

// Task looks a task up in the cache.
func (e *Engine) Task(id string) (*Task, bool) {
	t, ok := e.tasks[id]
	return t, ok
}

// CreateTask creates a task and adds it to the cache.
func (e *Engine) CreateTask(ctx context.Context, nt NewTask) (*Task, error) {
	ctx, log := logger.WithOperation(ctx, "create_task")

	if nt.Title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalidOperation)
	}

	data := frappe.Record{
		"subject":     nt.Title,
		"description": nt.Description,
		"status":      "Open",
	}
	if nt.ProjectID != "" {
		data["project"] = nt.ProjectID
	}

	rec, err := e.res.Tasks.Create(ctx, data)
	if err != nil {
		return nil, err
	}

	t := decodeTask(rec)
	if t.ProjectID == "" {
		t.ProjectID = nt.ProjectID
	}
	t.Project = resolveProject(e.projects, t.ProjectID)

	tasks := maps.Clone(e.tasks)
	tasks[t.ID] = t
	e.tasks = tasks

	log.InfoContext(ctx, "task created", "task", t.ID, "project", t.ProjectID)
	return t, nil
}

// Timer returns a copy of the running task log, if the engine knows of one.
func (e *Engine) Timer() (TaskLog, bool) {
	if e.timerLog == nil {
		return TaskLog{}, false
	}
	return *e.timerLog, true
}

func (e *Engine) setTimer(tl *TaskLog) {
	e.timerLog = tl
	e.timerDetail = tl.DetailID
}

func (e *Engine) clearTimer() {
	e.timerLog = nil
	e.timerDetail = ""
}

// taskFor resolves a task id seen in a detail. Tasks missing from the cache
// (closed since, or never visible) get a placeholder so the log still renders.
func (e *Engine) taskFor(id, projectID string) *Task {
	if t, ok := e.tasks[id]; ok {
		return t
	}
	return &Task{
		ID:        id,
		Title:     id,
		ProjectID: projectID,
		Project:   resolveProject(e.projects, projectID),
	}
}
