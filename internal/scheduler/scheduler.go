package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/ppe-coverage/internal/config"
	"github.com/mamadbah2/ppe-coverage/internal/domain/models"
	"github.com/mamadbah2/ppe-coverage/internal/service/reporting"
)

// ReportBuilder is the part of the reporting service the job needs.
type ReportBuilder interface {
	ReloadIfStale(ctx context.Context) (bool, error)
	BuildReport(ctx context.Context, filter models.Filter) (*reporting.Report, error)
}

// SheetPublisher writes the summary table to a spreadsheet range.
type SheetPublisher interface {
	ReplaceRange(ctx context.Context, sheetRange string, rows [][]interface{}) error
	WriteRow(ctx context.Context, sheetRange string, values []interface{}) error
}

// SnapshotStore persists KPI snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot models.CoverageSnapshot) error
}

// Notifier sends coverage alerts.
type Notifier interface {
	NotifyCoverage(ctx context.Context, report *reporting.Report) (bool, error)
}

// Deps groups the collaborators of the scheduled job. Everything except Reports is optional.
type Deps struct {
	Reports      ReportBuilder
	Sheets       SheetPublisher
	SummaryRange string
	HistoryRange string
	Snapshots    SnapshotStore
	Notifier     Notifier
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	deps     Deps
	logger   *zap.Logger
	newID    func() string
}

// NewScheduler creates a scheduler running in the configured timezone.
func NewScheduler(cfg config.ReportingConfig, deps Deps, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: cfg.CronSchedule,
		deps:     deps,
		logger:   logger,
		newID:    uuid.NewString,
	}, nil
}

// Start registers the coverage job and starts the cron engine.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.runScheduled); err != nil {
		return fmt.Errorf("schedule coverage job %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("coverage job failed", zap.Error(err))
	}
}

// RunOnce executes the job: reload when stale, build the unfiltered report,
// then publish, snapshot and alert. Only reload and build failures are
// returned; the remaining steps log their errors and continue.
func (s *Scheduler) RunOnce(ctx context.Context) (*reporting.Report, error) {
	reloaded, err := s.deps.Reports.ReloadIfStale(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload dataset: %w", err)
	}
	if reloaded {
		s.logger.Info("dataset changed, reloaded")
	}

	report, err := s.deps.Reports.BuildReport(ctx, models.Filter{})
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}

	if s.deps.Sheets != nil && s.deps.SummaryRange != "" {
		if err := s.deps.Sheets.ReplaceRange(ctx, s.deps.SummaryRange, reporting.SheetRows(report)); err != nil {
			s.logger.Error("failed to publish summary", zap.Error(err))
		} else {
			s.logger.Info("summary published", zap.String("range", s.deps.SummaryRange))
		}
	}

	if s.deps.Sheets != nil && s.deps.HistoryRange != "" {
		if err := s.deps.Sheets.WriteRow(ctx, s.deps.HistoryRange, historyRow(report)); err != nil {
			s.logger.Error("failed to append kpi history", zap.Error(err))
		}
	}

	if s.deps.Snapshots != nil {
		snapshot := models.CoverageSnapshot{
			ID:          s.newID(),
			Source:      report.Source,
			Fingerprint: report.Fingerprint,
			KPIs:        report.KPIs,
			Critical:    report.Critical(),
			Unmapped:    report.Unmapped(),
			CreatedAt:   report.GeneratedAt,
		}
		if err := s.deps.Snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			s.logger.Error("failed to save snapshot", zap.Error(err))
		}
	}

	if s.deps.Notifier != nil {
		if _, err := s.deps.Notifier.NotifyCoverage(ctx, report); err != nil {
			s.logger.Error("failed to send coverage alert", zap.Error(err))
		}
	}

	return report, nil
}

// historyRow is one line of the KPI history sheet.
func historyRow(report *reporting.Report) []interface{} {
	return []interface{}{
		report.GeneratedAt.Format(time.RFC3339),
		report.KPIs.TotalQuantity,
		report.KPIs.TotalRequired,
		report.KPIs.MeanCoverage,
		len(report.Critical()),
		len(report.Unmapped()),
	}
}
