package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/BalanceBalls/timesheet-tracker/internal/config"
	"github.com/BalanceBalls/timesheet-tracker/internal/frappe"
	"github.com/BalanceBalls/timesheet-tracker/internal/generator"
	htmlgenerator "github.com/BalanceBalls/timesheet-tracker/internal/generator/html"
	"github.com/BalanceBalls/timesheet-tracker/internal/logger"
	"github.com/BalanceBalls/timesheet-tracker/internal/storage"
	"github.com/BalanceBalls/timesheet-tracker/internal/storage/postgres"
	"github.com/BalanceBalls/timesheet-tracker/internal/storage/sqlite"
	"github.com/BalanceBalls/timesheet-tracker/internal/timesheet"
)

// App is everything a command needs, wired from the configuration.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Engine      *timesheet.Engine
	Credentials frappe.Credentials
	Generator   generator.Generator

	openStorage func(ctx context.Context) (storage.Storage, error)
	storage     storage.Storage
}

// Opener builds the App for one command run.
type Opener func(ctx context.Context, opts *RootOptions, logOut io.Writer) (*App, error)

// OpenApp wires the App from the environment and opts.EnvFile.
func OpenApp(ctx context.Context, opts *RootOptions, logOut io.Writer) (*App, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log, err := logger.New(level, cfg.LogFormat, logOut)
	if err != nil {
		return nil, err
	}

	client, err := frappe.NewClient(cfg.FrappeURL, cfg.FrappeTimeout)
	if err != nil {
		return nil, err
	}

	engine := timesheet.New(timesheet.FrappeResources(client), client,
		timesheet.WithLocation(cfg.Location()),
		timesheet.WithRepairConcurrency(cfg.RepairConcurrency),
	)

	return &App{
		Config:      cfg,
		Logger:      log,
		Engine:      engine,
		Credentials: cfg.Credentials(),
		Generator:   htmlgenerator.New(cfg.ReportFileDir, htmlgenerator.DefaultTemplate, true),
		openStorage: func(ctx context.Context) (storage.Storage, error) {
			return openStorage(ctx, cfg)
		},
	}, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	var (
		s   storage.Storage
		err error
	)
	switch cfg.DbDriver {
	case config.DriverPostgres:
		s, err = postgres.New(ctx, cfg.DbDSN)
	default:
		s, err = sqlite.New(ctx, cfg.DbDSN)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Up(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Storage opens the report storage on first use.
func (a *App) Storage(ctx context.Context) (storage.Storage, error) {
	if a.storage != nil {
		return a.storage, nil
	}
	if a.openStorage == nil {
		return nil, fmt.Errorf("report storage is not configured")
	}

	s, err := a.openStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not open report storage: %w", err)
	}
	a.storage = s
	return s, nil
}

func (a *App) Close() error {
	if a.storage != nil {
		return a.storage.Close()
	}
	return nil
}

// login authenticates, which also runs the consistency repair.
func (a *App) login(ctx context.Context) (timesheet.Session, error) {
	return a.Engine.Login(ctx, a.Credentials)
}
