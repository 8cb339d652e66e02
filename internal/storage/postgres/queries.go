package postgres

const (
	createReportsTable = `
CREATE TABLE IF NOT EXISTS reports (
  id            SERIAL PRIMARY KEY,
  employee      TEXT NOT NULL,
  date          TEXT NOT NULL,
  timesheet_id  TEXT,
  locked        BOOLEAN,

  UNIQUE(employee, date)
)`

	createRowsTable = `
CREATE TABLE IF NOT EXISTS rows (
  report_id   INTEGER,
  position    INTEGER,
  task_id     TEXT,
  project     TEXT,
  title       TEXT,
  active      BOOLEAN,
  time_spent  DOUBLE PRECISION,

  FOREIGN KEY(report_id) REFERENCES reports(id) ON DELETE CASCADE
)`

	removeReport = `
DELETE FROM reports
WHERE employee = $1 AND date = $2`

	addReport = `
INSERT INTO reports (employee, date, timesheet_id, locked)
VALUES ($1, $2, $3, $4)
RETURNING id`

	addRows = `
INSERT INTO rows (report_id, position, task_id, project, title, active, time_spent)
VALUES `

	getFullReports = `
SELECT
  r.id, r.employee, r.date, r.timesheet_id, r.locked,
  ro.task_id, ro.project, ro.title, ro.active, ro.time_spent
FROM reports r
  LEFT JOIN rows ro on ro.report_id = r.id
WHERE r.employee = $1 AND r.date >= $2 AND r.date <= $3
ORDER BY r.date, ro.position`
)
