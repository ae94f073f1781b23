package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/parcoursup-portfolio/internal/config"
	"github.com/Zachkp/parcoursup-portfolio/internal/dataset"
	"github.com/Zachkp/parcoursup-portfolio/internal/logging"
	"github.com/Zachkp/parcoursup-portfolio/internal/store"
)

// server holds what the handlers share. The dataset is read-only after load.
type server struct {
	cfg      *config.AppConfig
	data     *dataset.Dataset
	logger   *slog.Logger
	metrics  *metrics
	tracker  *tracker // nil when tracking is disabled
	loadedAt time.Time
}

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)
	gin.SetMode(cfg.Server.Mode)

	ds, err := dataset.Load(cfg.Data.CSVPath)
	if err != nil {
		return err
	}
	report := ds.Report()
	logger.Info("dataset loaded",
		"path", cfg.Data.CSVPath,
		"rows", report.Rows,
		"summary", report.Summary,
		"detail", report.Detail,
	)
	if report.Inconsistent > 0 {
		logger.Warn("rows with more proposals than wishes or more admissions than proposals",
			"rows", report.Inconsistent)
	}

	s := &server{
		cfg:      cfg,
		data:     ds,
		logger:   logger,
		metrics:  newMetrics(report),
		loadedAt: time.Now(),
	}

	if cfg.Tracking.Enabled {
		st, err := store.New(cfg.Data.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		s.tracker, err = newTracker(st, logger, s.metrics)
		if err != nil {
			return err
		}
		if cfg.Tracking.ExposeRecent {
			s.tracker.recent = recentViews
		}
		s.tracker.cleanup(time.Duration(cfg.Tracking.RetentionDays) * 24 * time.Hour)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(s),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if s.tracker != nil {
		s.tracker.wait()
	}
	return nil
}

func newRouter(s *server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(s.logger), s.metrics.middleware())
	if s.tracker != nil {
		r.Use(s.tracker.middleware())
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", s.metrics.handler())

	api := r.Group("/api")
	api.GET("/years", s.years)
	api.GET("/formations", s.formations)
	api.GET("/status", s.status)
	api.GET("/export/:file", s.exportFile)
	if s.tracker != nil {
		api.GET("/stats", s.tracker.stats)
	}

	insights := api.Group("/insights")
	insights.GET("/landscape", s.landscape)
	insights.GET("/pairs", s.pairs)
	insights.GET("/trends", s.trends)
	insights.GET("/formations/top", s.topFormations)
	insights.GET("/formations/totals", s.formationTotals)
	insights.GET("/formations/rates", s.rates)
	insights.GET("/formations/funnel", s.funnel)
	insights.GET("/yearly", s.yearly)
	insights.GET("/dashboard", s.dashboard)

	return r
}
