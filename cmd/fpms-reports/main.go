package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/it-Barath/fpms-sub006/common/logger"
	rediscommon "github.com/it-Barath/fpms-sub006/common/redis"
	"github.com/it-Barath/fpms-sub006/internal/config"
	httpapi "github.com/it-Barath/fpms-sub006/internal/http"
	"github.com/it-Barath/fpms-sub006/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "fpms-reports")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	st, err := openStores(cfg, log)
	if err != nil {
		log.Fatal("failed to open registry", zap.Error(err))
	}
	offices, reference, stats := st.offices, st.reference, st.stats

	activity := service.MultiActivityLog{service.NewZapActivityLog(log)}
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis.Config)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rediscommon.Ping(pingCtx, redisClient); err != nil {
			log.Warn("redis unavailable, activity stream disabled", zap.Error(err))
			_ = rediscommon.Close(redisClient)
			redisClient = nil
		} else {
			activity = append(activity, service.NewRedisActivityLog(redisClient, cfg.Report.ActivityStream, cfg.Report.ActivityStreamLen))
		}
		cancel()
	}

	resolver := service.NewHierarchyResolver(offices, reference, log)
	engine := service.NewAggregationEngine(stats, resolver, log,
		service.WithListingLimit(cfg.Report.ListingLimit),
		service.WithQueryTimeout(cfg.Report.QueryTimeout),
	)
	assembler := service.NewReportAssembler(resolver, engine, activity, log,
		service.WithStrictReportTypes(cfg.Report.StrictReportTypes),
	)

	router := httpapi.NewRouter(log)
	router.RegisterReportRoutes(httpapi.NewReportHandler(assembler, log))
	router.RegisterHierarchyRoutes(httpapi.NewHierarchyHandler(resolver, engine, log))
	router.RegisterOfficeRoutes(httpapi.NewOfficeHandler(offices, log))
	var ping func(*http.Request) error
	if st.db != nil {
		ping = func(r *http.Request) error { return st.db.PingContext(r.Context()) }
	}
	router.RegisterHealthRoutes(ping)

	srv := service.NewServer(cfg.HTTP.Addr, router.Handler(cfg.HTTP.CORSAllowedOrigins), cfg.Report.QueryTimeout+30*time.Second, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = rediscommon.Close(redisClient)
	st.close()
}
