package main

import (
	"context"
	"database/sql"
	"errors"

	"github.com/it-Barath/fpms-sub006/common/database"
	"github.com/it-Barath/fpms-sub006/common/logger"
	"github.com/it-Barath/fpms-sub006/internal/config"
	"github.com/it-Barath/fpms-sub006/internal/repository"
	"github.com/it-Barath/fpms-sub006/internal/service"

	"go.uber.org/zap"
)

// app services shared by the commands. Tests set the service fields directly
// and leave db nil.
type app struct {
	logLevel string

	log       *zap.Logger
	db        *sql.DB
	refDB     *sql.DB
	resolver  service.HierarchyResolver
	engine    service.AggregationEngine
	assembler service.ReportAssembler
}

// open connects to the registry database named by the service configuration.
func (a *app) open(_ context.Context) error {
	if a.assembler != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if !cfg.DBEnabled {
		return errors.New("fpms-cli needs the registry database; DB_ENABLED is false")
	}
	if a.log, err = logger.NewLogger(a.logLevel, "console", "fpms-cli"); err != nil {
		return err
	}
	if a.db, err = database.NewPostgresDB(&cfg.Database); err != nil {
		return err
	}

	var reference repository.ReferenceDirectory
	switch {
	case cfg.Reference.Source == config.ReferenceSourceHTTP:
		reference = repository.NewHTTPReferenceDirectory(cfg.Reference.HTTPURL, cfg.Reference.Timeout, a.log)
	case cfg.Reference.Database != nil:
		if a.refDB, err = database.NewPostgresDB(cfg.ReferenceDatabase()); err != nil {
			return err
		}
		reference = repository.NewPostgresReferenceDirectory(a.refDB, cfg.Reference.Schema)
	default:
		reference = repository.NewPostgresReferenceDirectory(a.db, cfg.Reference.Schema)
	}

	a.wire(repository.NewPostgresOfficesRepository(a.db), reference, repository.NewPostgresStatsRepository(a.db),
		service.WithListingLimit(cfg.Report.ListingLimit),
		service.WithQueryTimeout(cfg.Report.QueryTimeout),
	)
	return nil
}

func (a *app) wire(offices repository.OfficesRepository, reference repository.ReferenceDirectory, stats repository.StatsRepository, opts ...service.EngineOption) {
	if a.log == nil {
		a.log = zap.NewNop()
	}
	a.resolver = service.NewHierarchyResolver(offices, reference, a.log)
	a.engine = service.NewAggregationEngine(stats, a.resolver, a.log, opts...)
	a.assembler = service.NewReportAssembler(a.resolver, a.engine, service.NewZapActivityLog(a.log), a.log)
}

func (a *app) close() {
	_ = database.Close(a.refDB)
	_ = database.Close(a.db)
	if a.log != nil {
		_ = a.log.Sync()
	}
}
