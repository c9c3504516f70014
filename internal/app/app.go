package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mbackup-go/internal/config"
	"mbackup-go/internal/database"
	"mbackup-go/internal/fs"
	"mbackup-go/internal/mbackup"
	"mbackup-go/internal/mysql"
	"mbackup-go/internal/notify"
	"mbackup-go/internal/vault"
)

const defaultMasterPort = 3306

// App is the application layer between the CLI and mbackup.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw paths, and records every mutating run in the history
// database. The caller must call Close when done.
type App struct {
	cfg     config.Config
	layout  mbackup.Layout
	server  mbackup.Server
	vaults  []mbackup.Vault
	history *database.SQLiteHistory
	service *mbackup.Service
	clock   mbackup.Clock
	logger  mbackup.Logger
	op      *Operation
	logFile *os.File
}

// wiring holds the collaborators that differ between production and tests.
type wiring struct {
	server  mbackup.Server
	clock   mbackup.Clock
	ids     mbackup.IDGenerator
	console io.Writer
}

// NewApp creates a fully wired App from the given config.
// operation names the CLI command being run (e.g. "backup", "restore").
func NewApp(ctx context.Context, cfg config.Config, operation string) (*App, error) {
	clock := mbackup.RealClock{}
	client := mysql.NewClient(MySQLOptions(cfg.MySQL), mysql.ExecRunner{}, clock)
	return newApp(ctx, cfg, operation, wiring{
		server:  client,
		clock:   clock,
		ids:     mbackup.UUIDGenerator{},
		console: os.Stderr,
	})
}

func newApp(ctx context.Context, cfg config.Config, operation string, w wiring) (*App, error) {
	op := NewOperation(operation, w.clock.Now(), w.ids)

	slogger, logFile, err := newLogger(cfg.LogDir, op.ID, w.console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	history, err := database.NewHistoryFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	vaults, err := vault.NewVaultsFromConfig(ctx, cfg.Vaults)
	if err != nil {
		history.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating vaults: %w", err)
	}

	layout := LayoutFromConfig(cfg)
	notifier := notify.NewWebhookNotifier(cfg.Webhooks.SuccessURL, cfg.Webhooks.FailureURL, logger)
	catalog := fs.NewOSCatalog(w.ids)
	svc := mbackup.NewService(w.server, catalog, vaults, notifier, history, logger, w.clock, layout)

	return &App{
		cfg:     cfg,
		layout:  layout,
		server:  w.server,
		vaults:  vaults,
		history: history,
		service: svc,
		clock:   w.clock,
		logger:  logger,
		op:      op,
		logFile: logFile,
	}, nil
}

// MySQLOptions maps the [mysql] section onto client options.
func MySQLOptions(c config.MySQLConfig) mysql.Options {
	return mysql.Options{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		MysqlBin: c.MysqlBin,
		DumpBin:  c.MysqldumpBin,
	}
}

// LayoutFromConfig maps base directories and keep counts onto a Layout.
func LayoutFromConfig(cfg config.Config) mbackup.Layout {
	return mbackup.Layout{
		BaseDirs: map[mbackup.Kind]string{
			mbackup.Hourly:  cfg.BackupPaths.Hourly,
			mbackup.Daily:   cfg.BackupPaths.Daily,
			mbackup.Monthly: cfg.BackupPaths.Monthly,
			mbackup.Manual:  cfg.BackupPaths.Manual,
		},
		KeepCounts: map[mbackup.Kind]int{
			mbackup.Hourly:  cfg.Rotation.HourlyKeep,
			mbackup.Daily:   cfg.Rotation.DailyKeep,
			mbackup.Monthly: cfg.Rotation.MonthlyKeep,
		},
		Compress: cfg.Options.Compression,
	}
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Target returns the database server address, for messages.
func (a *App) Target() string {
	return a.server.Target()
}

// Backup runs a backup of kind. A non-empty path overrides the configured
// base directory.
func (a *App) Backup(ctx context.Context, kind mbackup.Kind, path string) (*mbackup.BackupResult, error) {
	a.op.Kind = kind.String()
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		path = abs
	}

	result, err := a.service.Backup(ctx, kind, path)

	var dir string
	if result != nil {
		dir = result.Directory
	}
	run := a.op.Finish(dir, err, a.clock.Now())
	if result != nil && result.Rotation != nil {
		run.Deleted = len(result.Rotation.Deleted)
		run.Failed = len(result.Rotation.Failures)
	}
	a.record(run)
	return result, err
}

// Rotate runs a rotation pass for kind in its configured base directory.
func (a *App) Rotate(ctx context.Context, kind mbackup.Kind) (*mbackup.RotationReport, error) {
	a.op.Kind = kind.String()

	baseDir, err := a.layout.BaseDir(kind)
	if err != nil {
		return nil, err
	}

	report, err := a.service.Rotate(ctx, kind, baseDir)

	run := a.op.Finish(baseDir, err, a.clock.Now())
	if report != nil {
		run.Deleted = len(report.Deleted)
		run.Failed = len(report.Failures)
	}
	a.record(run)
	return report, err
}

// List returns the completed backups of the given kinds, newest first.
func (a *App) List(kinds []mbackup.Kind) (*mbackup.Listing, error) {
	return a.service.List(kinds)
}

// Inspect resolves rawPath and describes the backup stored there.
func (a *App) Inspect(rawPath string) (*mbackup.BackupContents, error) {
	abs, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.Inspect(abs)
}

// Restore resolves rawPath and restores the backup stored there. When
// replica is non-nil the server is configured as its replica afterwards.
func (a *App) Restore(ctx context.Context, rawPath string, replica *mbackup.ReplicaSource) (*mbackup.RestoreResult, error) {
	abs, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	result, err := a.service.Restore(ctx, mbackup.RestoreRequest{Path: abs, Replica: replica})
	a.record(a.op.Finish(abs, err, a.clock.Now()))
	return result, err
}

// ReplicaSource fills the empty fields of override from the [replication]
// section. The port defaults to 3306.
func (a *App) ReplicaSource(override mbackup.ReplicaSource) *mbackup.ReplicaSource {
	src := override
	rc := a.cfg.Replication
	if src.Host == "" {
		src.Host = rc.MasterHost
	}
	if src.User == "" {
		src.User = rc.MasterUser
	}
	if src.Password == "" {
		src.Password = rc.MasterPassword
	}
	if src.Port == 0 {
		src.Port = rc.MasterPort
	}
	if src.Port == 0 {
		src.Port = defaultMasterPort
	}
	return &src
}

// CheckResult is the outcome of probing one dependency.
type CheckResult struct {
	Name string
	Err  error
}

// Check probes the database server, the schema of the history database
// and every configured vault.
func (a *App) Check(ctx context.Context) []CheckResult {
	results := []CheckResult{
		{
			Name: "database server " + a.server.Target(),
			Err:  a.server.Ping(ctx),
		},
		{
			Name: "history database " + a.history.Path(),
			Err:  a.history.CheckMigrations(),
		},
	}
	for _, v := range a.vaults {
		results = append(results, CheckResult{
			Name: "vault " + v.Name(),
			Err:  v.ValidateSetup(ctx),
		})
	}
	return results
}

// History returns the most recent runs, newest first.
func (a *App) History(limit int) ([]*mbackup.Run, error) {
	return a.service.GetHistory(limit)
}

// record writes run to the history database. Failing to record never
// fails the operation itself.
func (a *App) record(run *mbackup.Run) {
	if err := a.history.RecordRun(run); err != nil {
		a.logger.Warn("failed to record run in history", "run", run.ID, "error", err)
	}
}

// Close closes the history database and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.history.Close(); err != nil {
		firstErr = fmt.Errorf("closing history database: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
