package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"attendanceingest/config"
	"attendanceingest/internal/adapters/email"
	"attendanceingest/internal/adapters/table"
	"attendanceingest/internal/domain"
	"attendanceingest/internal/metrics"
	"attendanceingest/internal/repository/postgres"
	"attendanceingest/internal/services"
)

// runJobs wires storage, metrics and mail from the environment and imports jobs in order.
func runJobs(ctx context.Context, opts globalOptions, jobs []importJob) error {
	cfg, err := config.Load()
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("load config: %w", err))
	}
	logger := config.NewLogger(os.Stdout, cfg.Environment, cfg.LogLevel)

	mapping := table.DefaultMapping()
	if opts.mappingPath != "" {
		if mapping, err = table.LoadMapping(opts.mappingPath); err != nil {
			return withCode(exitValidation, err)
		}
	}

	db, err := sqlx.Open("postgres", cfg.DBUrl)
	if err != nil {
		return withCode(exitDB, fmt.Errorf("open database: %w", err))
	}
	defer db.Close()
	// Connections a session gives back after a failure must never be reused.
	db.SetMaxIdleConns(0)
	if err := db.PingContext(ctx); err != nil {
		return withCode(exitDB, fmt.Errorf("connect to database: %w", err))
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return withCode(exitUsage, err)
	}

	importCfg := services.ImportConfig{
		CommitInterval:    cfg.Import.CommitInterval,
		RefreshInterval:   cfg.Import.RefreshInterval,
		FuzzyShortlist:    cfg.Import.FuzzyShortlist,
		FuzzyAccept:       cfg.Import.FuzzyAccept,
		ReferralThreshold: cfg.Import.ReferralThreshold,
		LogPeople:         opts.logPeople,
	}
	importMetrics := metrics.NewImportMetrics()

	runner := &jobRunner{
		open: func(ctx context.Context) (domain.Importer, func() error, error) {
			session, err := postgres.OpenSession(ctx, db, logger)
			if err != nil {
				return nil, nil, withCode(exitDB, fmt.Errorf("open storage session: %w", err))
			}
			imp, err := services.NewImporter(session, services.Repositories{
				People:      postgres.NewPersonRepository(session),
				Attendance:  postgres.NewAttendanceRepository(session),
				InviteToken: postgres.NewInviteTokenRepository(session),
				Events:      postgres.NewEventRepository(session),
			}, importCfg, logger, services.WithMetrics(importMetrics))
			if err != nil {
				_ = session.Close()
				return nil, nil, withCode(exitUsage, err)
			}
			return imp, session.Close, nil
		},
		load:       table.Load,
		remove:     os.Remove,
		mapping:    mapping,
		keepSource: opts.keepSource,
		reports:    services.NewReportService(mailer, email.NewTemplateRenderer(), logger),
		logger:     logger,
	}
	if opts.notify {
		runner.notifyTo = cfg.Email.ReportTo
		if len(runner.notifyTo) == 0 {
			logger.Warn("--notify given but EMAIL_REPORT_TO is empty, no summary will be sent")
		}
	}

	err = runner.run(ctx, jobs)

	if cfg.Metrics.PushgatewayURL != "" {
		if perr := importMetrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); perr != nil {
			logger.Warn("could not push metrics", "error", perr)
		}
	}
	return err
}

// jobRunner imports manifest entries one after another.
type jobRunner struct {
	open       func(ctx context.Context) (domain.Importer, func() error, error)
	load       func(path string, mapping table.ColumnMapping) ([]domain.RegistrationRow, error)
	remove     func(path string) error
	mapping    table.ColumnMapping
	keepSource bool
	reports    domain.ReportService
	notifyTo   []string
	logger     *slog.Logger
}

// run stops at the first failing job.
func (r *jobRunner) run(ctx context.Context, jobs []importJob) error {
	r.logger.Info("processing events", "count", len(jobs))
	for _, job := range jobs {
		if err := r.runOne(ctx, job); err != nil {
			return err
		}
	}
	r.logger.Info("all events processed", "count", len(jobs))
	return nil
}

// runOne imports one job. The source table is deleted afterwards whatever the outcome, unless
// keepSource is set.
func (r *jobRunner) runOne(ctx context.Context, job importJob) error {
	logger := r.logger.With("event_id", job.EventID, "source", job.Path)
	if !r.keepSource {
		defer r.removeSource(logger, job.Path)
	}

	rows, err := r.load(job.Path, r.mapping)
	if err != nil {
		return classify(fmt.Errorf("load %s: %w", job.Path, err))
	}
	logger.Info("read registration table", "rows", len(rows))

	imp, closeSession, err := r.open(ctx)
	if err != nil {
		return classify(err)
	}
	defer func() {
		if err := closeSession(); err != nil {
			logger.Warn("could not close storage session", "error", err)
		}
	}()

	res, err := imp.Import(ctx, domain.ImportRequest{
		EventID:   job.EventID,
		EventName: job.EventName,
		Source:    job.Path,
		Rows:      rows,
	})
	r.notify(ctx, logger, res, err)
	if err != nil {
		return classify(fmt.Errorf("import event %d: %w", job.EventID, err))
	}
	return nil
}

func (r *jobRunner) notify(ctx context.Context, logger *slog.Logger, res *domain.ImportResult, runErr error) {
	if len(r.notifyTo) == 0 || res == nil {
		return
	}
	data := &domain.ImportSummaryEmailData{To: r.notifyTo, Result: res}
	if runErr != nil {
		data.Failure = runErr.Error()
	}
	if err := r.reports.SendImportSummary(ctx, data); err != nil {
		logger.Warn("could not send import summary", "error", err)
	}
}

func (r *jobRunner) removeSource(logger *slog.Logger, path string) {
	if err := r.remove(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("could not delete source table", "error", err)
		}
		return
	}
	logger.Info("deleted source table")
}
