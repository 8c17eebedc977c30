package main

import (
	"database/sql"
	"fmt"

	"github.com/it-Barath/fpms-sub006/common/database"
	"github.com/it-Barath/fpms-sub006/internal/config"
	"github.com/it-Barath/fpms-sub006/internal/repository"

	"go.uber.org/zap"
)

// stores the registry sources the service reads from. db is nil only when the
// database is disabled and the in-memory registry serves every read.
type stores struct {
	db        *sql.DB
	refDB     *sql.DB
	offices   repository.OfficesRepository
	reference repository.ReferenceDirectory
	stats     repository.StatsRepository
}

// openStores connects the configured registry. With DB_ENABLED an unreachable
// database is an error: serving an empty registry instead would turn a data
// access failure into empty reports.
func openStores(cfg *config.Config, log *zap.Logger) (*stores, error) {
	s := &stores{}
	if !cfg.DBEnabled {
		log.Warn("DB disabled, serving the in-memory registry")
		mem := repository.NewMemoryRegistry()
		s.offices, s.reference, s.stats = mem, mem, mem
	} else {
		db, err := database.NewPostgresDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("registry database: %w", err)
		}
		log.Info("DB enabled for fpms-reports")
		s.db = db
		s.offices = repository.NewPostgresOfficesRepository(db)
		s.stats = repository.NewPostgresStatsRepository(db)
	}

	switch {
	case cfg.Reference.Source == config.ReferenceSourceHTTP:
		s.reference = repository.NewHTTPReferenceDirectory(cfg.Reference.HTTPURL, cfg.Reference.Timeout, log)
	case s.db != nil && cfg.Reference.Database != nil:
		refDB, err := database.NewPostgresDB(cfg.ReferenceDatabase())
		if err != nil {
			s.close()
			return nil, fmt.Errorf("reference database: %w", err)
		}
		s.refDB = refDB
		s.reference = repository.NewPostgresReferenceDirectory(refDB, cfg.Reference.Schema)
	case s.db != nil:
		s.reference = repository.NewPostgresReferenceDirectory(s.db, cfg.Reference.Schema)
	}
	return s, nil
}

func (s *stores) close() {
	_ = database.Close(s.refDB)
	_ = database.Close(s.db)
}
