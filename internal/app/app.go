package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/ppe-coverage/internal/config"
	"github.com/mamadbah2/ppe-coverage/internal/dataset"
	"github.com/mamadbah2/ppe-coverage/internal/geo"
	"github.com/mamadbah2/ppe-coverage/internal/metrics"
	"github.com/mamadbah2/ppe-coverage/internal/repository/mongodb"
	"github.com/mamadbah2/ppe-coverage/internal/repository/sheets"
	"github.com/mamadbah2/ppe-coverage/internal/scheduler"
	"github.com/mamadbah2/ppe-coverage/internal/service/alerts"
	"github.com/mamadbah2/ppe-coverage/internal/service/coverage"
	"github.com/mamadbah2/ppe-coverage/internal/service/reporting"
	whatsappclient "github.com/mamadbah2/ppe-coverage/pkg/clients/whatsapp"
)

// App holds the components shared by the server and the CLI.
type App struct {
	Config     *config.Config
	Boundaries *geo.Boundaries
	NameMap    *coverage.RegionNameMap
	Cache      *dataset.Cache
	Metrics    *metrics.Collector
	Reports    *reporting.Service

	// Optional integrations, nil when not configured.
	Sheets    *sheets.GoogleSheetRepository
	Snapshots *mongodb.MongoDBRepository
	Notifier  *alerts.WhatsAppNotifier

	logger *zap.Logger
}

// New loads the static reference data and builds every configured component.
// The stock dataset itself is loaded lazily on first use.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	boundaries, err := geo.Load(cfg.Data.BoundariesPath)
	if err != nil {
		return nil, err
	}
	if boundaries.Unnamed > 0 {
		logger.Warn("boundary features without a name were skipped", zap.Int("count", boundaries.Unnamed))
	}

	nameMap, err := loadNameMap(cfg.Data.RegionMapPath, boundaries.IDs)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:     cfg,
		Boundaries: boundaries,
		NameMap:    nameMap,
		Metrics:    metrics.New(),
		logger:     logger,
	}

	if cfg.Sheets.Enabled() {
		a.Sheets, err = sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named("repo.sheets"))
		if err != nil {
			return nil, fmt.Errorf("init sheets repository: %w", err)
		}
	}

	var source dataset.Source = dataset.FileSource{Path: cfg.Data.StockCSVPath}
	if cfg.Sheets.StockRange != "" {
		source = dataset.SheetSource{Reader: a.Sheets, Range: cfg.Sheets.StockRange}
	}
	a.Cache = dataset.NewCache(source, logger.Named("dataset"))
	a.Reports = reporting.NewService(a.Cache, boundaries, nameMap, a.Metrics, logger.Named("svc.reporting"))

	if cfg.MongoDB.URI != "" {
		a.Snapshots, err = mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return nil, fmt.Errorf("init mongodb repository: %w", err)
		}
	}

	if cfg.WhatsApp.Enabled() {
		a.Notifier = alerts.NewWhatsAppNotifier(whatsappclient.NewClient(cfg.WhatsApp), cfg.WhatsApp.AlertRecipient, logger.Named("svc.alerts"))
	}

	logger.Info("application initialized",
		zap.String("source", source.Name()),
		zap.Int("boundaries", len(boundaries.IDs)),
		zap.Int("mapped_names", nameMap.Len()),
		zap.Bool("sheets", a.Sheets != nil),
		zap.Bool("snapshots", a.Snapshots != nil),
		zap.Bool("alerts", a.Notifier != nil))

	return a, nil
}

// SchedulerDeps converts the optional integrations into scheduler dependencies,
// leaving absent ones as nil interfaces.
func (a *App) SchedulerDeps() scheduler.Deps {
	deps := scheduler.Deps{Reports: a.Reports}
	if a.Sheets != nil {
		deps.Sheets = a.Sheets
		deps.SummaryRange = a.Config.Sheets.SummaryRange
		deps.HistoryRange = a.Config.Sheets.HistoryRange
	}
	if a.Snapshots != nil {
		deps.Snapshots = a.Snapshots
	}
	if a.Notifier != nil {
		deps.Notifier = a.Notifier
	}
	return deps
}

// Close releases external connections.
func (a *App) Close(ctx context.Context) {
	if a.Snapshots != nil {
		if err := a.Snapshots.Close(ctx); err != nil {
			a.logger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
}

func loadNameMap(path string, knownIDs []string) (*coverage.RegionNameMap, error) {
	if path == "" {
		nameMap, err := coverage.IdentityRegionNameMap(knownIDs)
		if err != nil {
			return nil, fmt.Errorf("build identity region map: %w", err)
		}
		return nameMap, nil
	}
	return coverage.LoadRegionNameMap(path)
}
