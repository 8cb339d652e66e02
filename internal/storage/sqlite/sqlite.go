package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/BalanceBalls/timesheet-tracker/internal/logger"
	"github.com/BalanceBalls/timesheet-tracker/internal/report"
	"github.com/BalanceBalls/timesheet-tracker/internal/storage"
)

type SqliteStorage struct {
	db *sql.DB
}

func New(ctx context.Context, name string) (*SqliteStorage, error) {
	logger.GetFromContext(ctx).InfoContext(ctx, "initializing DB...", "db_name", name)
	db, err := sql.Open("sqlite3", name)

	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("could not access database: %w", err)
	}

	return &SqliteStorage{db: db}, nil
}

func (s *SqliteStorage) Up(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createReportsTable); err != nil {
		return fmt.Errorf("could not create table reports: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createRowsTable); err != nil {
		return fmt.Errorf("could not create table rows: %w", err)
	}

	return nil
}

func (s *SqliteStorage) SaveReport(ctx context.Context, r report.Report) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	date := r.Date.Format(storage.DateLayout)

	var previous int64
	err = tx.QueryRowContext(ctx, findReportId, r.Employee, date).Scan(&previous)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, fmt.Errorf("could not look up report: %w", err)
	default:
		if _, err = tx.ExecContext(ctx, removeRows, previous); err != nil {
			return 0, fmt.Errorf("could not remove report rows: %w", err)
		}
		if _, err = tx.ExecContext(ctx, removeReport, previous); err != nil {
			return 0, fmt.Errorf("could not remove report: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, addReport, r.Employee, date, r.TimesheetID, r.Locked)
	if err != nil {
		return 0, fmt.Errorf("could not add report: %w", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("could not add report: %w", err)
	}

	for i, row := range r.Rows {
		_, err = tx.ExecContext(ctx, addRow, id, i, row.TaskID, row.Project, row.Title, row.Active, row.TimeSpent)
		if err != nil {
			return 0, fmt.Errorf("could not add report row: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit report: %w", err)
	}

	return id, nil
}

func (s *SqliteStorage) Report(ctx context.Context, employee string, date time.Time) (report.Report, error) {
	reports, err := s.Reports(ctx, employee, date, date)
	if err != nil {
		return report.Report{}, err
	}
	if len(reports) == 0 {
		return report.Report{}, storage.ErrReportNotFound
	}
	return reports[0], nil
}

func (s *SqliteStorage) Reports(ctx context.Context, employee string, from, to time.Time) ([]report.Report, error) {
	rows, err := s.db.QueryContext(ctx, getFullReports,
		employee, from.Format(storage.DateLayout), to.Format(storage.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("could not query reports: %w", err)
	}

	defer rows.Close()

	cr := storage.ConvertableRows{}

	for rows.Next() {
		fr := storage.FlatRow{}

		var rawDate string
		var timesheetID sql.NullString
		err := rows.Scan(
			&fr.ReportId, &fr.Employee, &rawDate, &timesheetID, &fr.Locked,
			&fr.RowTaskID, &fr.RowProject, &fr.RowTitle, &fr.RowActive, &fr.RowHours)
		if err != nil {
			return nil, fmt.Errorf("could not scan report row: %w", err)
		}

		fr.Date, err = time.Parse(storage.DateLayout, rawDate)
		if err != nil {
			return nil, fmt.Errorf("could not parse report date %q: %w", rawDate, err)
		}
		fr.TimesheetID = timesheetID.String

		cr.Rows = append(cr.Rows, fr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read reports: %w", err)
	}

	return cr.Convert(), nil
}

func (s *SqliteStorage) Close() error {
	return s.db.Close()
}
