package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/BalanceBalls/timesheet-tracker/internal/logger"
	"github.com/BalanceBalls/timesheet-tracker/internal/report"
	"github.com/BalanceBalls/timesheet-tracker/internal/storage"
)

type PostgresStorage struct {
	db *sql.DB
}

func New(ctx context.Context, connectionString string) (*PostgresStorage, error) {
	logger.GetFromContext(ctx).InfoContext(ctx, "initializing Postgres DB...")
	db, err := sql.Open("postgres", connectionString)

	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("could not access database: %w", err)
	}

	return &PostgresStorage{db: db}, nil
}

func (s *PostgresStorage) Up(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createReportsTable); err != nil {
		return fmt.Errorf("could not create table reports: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createRowsTable); err != nil {
		return fmt.Errorf("could not create table rows: %w", err)
	}

	return nil
}

func (s *PostgresStorage) SaveReport(ctx context.Context, r report.Report) (id int64, err error) {
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

	// Rows go with it through ON DELETE CASCADE.
	if _, err = tx.ExecContext(ctx, removeReport, r.Employee, date); err != nil {
		return 0, fmt.Errorf("could not remove report: %w", err)
	}

	err = tx.QueryRowContext(ctx, addReport, r.Employee, date, r.TimesheetID, r.Locked).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("could not add report: %w", err)
	}

	if len(r.Rows) > 0 {
		columnsCnt := 7
		values := make([]interface{}, 0, len(r.Rows)*columnsCnt)
		query := addRows
		for i, row := range r.Rows {
			query += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d),",
				columnsCnt*i+1, columnsCnt*i+2, columnsCnt*i+3, columnsCnt*i+4,
				columnsCnt*i+5, columnsCnt*i+6, columnsCnt*i+7)

			values = append(values, id, i, row.TaskID, row.Project, row.Title, row.Active, row.TimeSpent)
		}

		// Trim comma at the end
		query = query[:len(query)-1]

		if _, err = tx.ExecContext(ctx, query, values...); err != nil {
			return 0, fmt.Errorf("could not add report rows: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit report: %w", err)
	}

	return id, nil
}

func (s *PostgresStorage) Report(ctx context.Context, employee string, date time.Time) (report.Report, error) {
	reports, err := s.Reports(ctx, employee, date, date)
	if err != nil {
		return report.Report{}, err
	}
	if len(reports) == 0 {
		return report.Report{}, storage.ErrReportNotFound
	}
	return reports[0], nil
}

func (s *PostgresStorage) Reports(ctx context.Context, employee string, from, to time.Time) ([]report.Report, error) {
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
		var locked sql.NullBool
		err := rows.Scan(
			&fr.ReportId, &fr.Employee, &rawDate, &timesheetID, &locked,
			&fr.RowTaskID, &fr.RowProject, &fr.RowTitle, &fr.RowActive, &fr.RowHours)
		if err != nil {
			return nil, fmt.Errorf("could not scan report row: %w", err)
		}

		fr.Date, err = time.Parse(storage.DateLayout, rawDate)
		if err != nil {
			return nil, fmt.Errorf("could not parse report date %q: %w", rawDate, err)
		}
		fr.TimesheetID = timesheetID.String
		fr.Locked = locked.Bool

		cr.Rows = append(cr.Rows, fr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not read reports: %w", err)
	}

	return cr.Convert(), nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
