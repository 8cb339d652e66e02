package timesheet

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
)

var (
	projectFields   = []string{"name", "project_name", "notes", "status"}
	taskFields      = []string{"name", "subject", "description", "status", "project", "_assign", "_user_tags"}
	timesheetFields = []string{"name", "employee", "start_date", "status", "total_hours"}
	detailFields    = []string{"name", "parent", "task", "project", "from_time", "to_time", "hours"}
)

// CacheProjects builds a fresh project cache from raw records.
func CacheProjects(records []frappe.Record) map[string]*Project {
	cache := make(map[string]*Project, len(records))
	for _, r := range records {
		p := &Project{
			ID:          r.Name(),
			Title:       r.String("project_name"),
			Description: r.String("notes"),
		}
		if p.Title == "" {
			p.Title = p.ID
		}
		cache[p.ID] = p
	}
	return cache
}

// CacheTasks builds a fresh task cache, resolving each task's project through
// projects. Unresolvable references point at UnknownProject.
func CacheTasks(records []frappe.Record, projects map[string]*Project) map[string]*Task {
	cache := make(map[string]*Task, len(records))
	for _, r := range records {
		t := decodeTask(r)
		t.Project = resolveProject(projects, t.ProjectID)
		cache[t.ID] = t
	}
	return cache
}

func resolveProject(projects map[string]*Project, id string) *Project {
	if p, ok := projects[id]; ok && id != "" {
		return p
	}
	return UnknownProject
}

func decodeTask(r frappe.Record) *Task {
	t := &Task{
		ID:          r.Name(),
		Title:       r.String("subject"),
		Description: r.String("description"),
		Status:      r.String("status"),
		ProjectID:   r.String("project"),
		AssignedTo:  decodeAssign(r.String("_assign")),
		Tags:        decodeTags(r.String("_user_tags")),
	}
	if t.Title == "" {
		t.Title = t.ID
	}
	return t
}

// _assign is stored as a JSON encoded list of user ids.
func decodeAssign(raw string) []string {
	if raw == "" {
		return nil
	}
	var users []string
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil
	}
	return users
}

// _user_tags is a comma separated list with a leading comma.
func decodeTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func decodeTimesheet(r frappe.Record, loc *time.Location) (Timesheet, error) {
	start, _, err := r.Time("start_date", loc)
	if err != nil {
		return Timesheet{}, fmt.Errorf("timesheet %s: %w", r.Name(), err)
	}
	return Timesheet{
		ID:         r.Name(),
		Employee:   r.String("employee"),
		StartDate:  start,
		Status:     r.String("status"),
		TotalHours: r.Float("total_hours"),
	}, nil
}

func decodeTimesheets(records []frappe.Record, loc *time.Location) ([]Timesheet, error) {
	out := make([]Timesheet, 0, len(records))
	for _, r := range records {
		ts, err := decodeTimesheet(r, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, nil
}

func decodeDetail(r frappe.Record, loc *time.Location) (TimesheetDetail, error) {
	from, _, err := r.Time("from_time", loc)
	if err != nil {
		return TimesheetDetail{}, fmt.Errorf("timesheet detail %s: %w", r.Name(), err)
	}
	to, _, err := r.Time("to_time", loc)
	if err != nil {
		return TimesheetDetail{}, fmt.Errorf("timesheet detail %s: %w", r.Name(), err)
	}
	return TimesheetDetail{
		ID:      r.Name(),
		Parent:  r.String("parent"),
		Task:    r.String("task"),
		Project: r.String("project"),
		From:    from,
		To:      to,
		Hours:   r.Float("hours"),
	}, nil
}

func decodeDetails(records []frappe.Record, loc *time.Location) ([]TimesheetDetail, error) {
	out := make([]TimesheetDetail, 0, len(records))
	for _, r := range records {
		d, err := decodeDetail(r, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
