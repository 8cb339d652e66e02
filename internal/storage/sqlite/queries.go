package sqlite

const (
	createReportsTable = `
CREATE TABLE IF NOT EXISTS reports (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  employee      TEXT NOT NULL,
  date          TEXT NOT NULL,
  timesheet_id  TEXT,
  locked        BIT,

  UNIQUE(employee, date)
)`

	createRowsTable = `
CREATE TABLE IF NOT EXISTS rows (
  report_id   INT,
  position    INT,
  task_id     TEXT,
  project     TEXT,
  title       TEXT,
  active      BIT,
  time_spent  REAL,

  FOREIGN KEY(report_id) REFERENCES reports(id)
)`

	findReportId = `
SELECT id FROM reports
WHERE employee = ? AND date = ?`

	removeRows = `
DELETE FROM rows
WHERE report_id = ?`

	removeReport = `
DELETE FROM reports
WHERE id = ?`

	addReport = `
INSERT INTO reports (employee, date, timesheet_id, locked)
VALUES (?, ?, ?, ?)`

	addRow = `
INSERT INTO rows (report_id, position, task_id, project, title, active, time_spent)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	getFullReports = `
SELECT
  r.id, r.employee, r.date, r.timesheet_id, r.locked,
  ro.task_id, ro.project, ro.title, ro.active, ro.time_spent
FROM reports r
  LEFT JOIN rows ro on ro.report_id = r.id
WHERE r.employee = ? AND r.date >= ? AND r.date <= ?
ORDER BY r.date, ro.position`
)
