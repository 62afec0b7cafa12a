/*
main.go - Application entry point

PURPOSE:
  Starts the HR entitlement engine behind its HTTP adapter. Loads config,
  opens the store, wires services and collaborators and shuts down
  gracefully.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), fail fast on bad values
  2. Build the zap logger
  3. Open the SQL store (sqlite3 or postgres) and migrate
  4. Wire engine, request service, reviewer router and notifiers
  5. Optionally seed free days (-seed-free-days)
  6. Start the rollover scheduler and the HTTP server

COMMAND-LINE FLAGS:
  -seed-free-days  Materialize SSHR_FREE_DAYS starting at this year, then continue
  -seed-years      Number of years to materialize (default 1)

ENVIRONMENT:
  See config/config.go. DB_DRIVER, DB_DSN, PORT, TIME_ZONE and the SSHR_*
  leave settings are the ones most deployments touch.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the rollover scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the database

SEE ALSO:
  - api/server.go: router configuration
  - config/config.go: settings and defaults
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/hr-engine/api"
	"github.com/warp/hr-engine/calendar"
	"github.com/warp/hr-engine/config"
	"github.com/warp/hr-engine/leave"
	"github.com/warp/hr-engine/logger"
	"github.com/warp/hr-engine/metrics"
	"github.com/warp/hr-engine/notify"
	"github.com/warp/hr-engine/review"
	"github.com/warp/hr-engine/staff"
	"github.com/warp/hr-engine/store/sqlstore"
)

func main() {
	seedYear := flag.Int("seed-free-days", 0, "materialize the free day template starting at this year")
	seedYears := flag.Int("seed-years", 1, "number of years to materialize with -seed-free-days")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	if err := run(cfg, zlog, *seedYear, *seedYears); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger, seedYear, seedYears int) error {
	rules, err := cfg.CalendarRules()
	if err != nil {
		return err
	}
	template, err := cfg.FreeDayTemplate()
	if err != nil {
		return err
	}

	store, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	collector := metrics.New()

	engine := leave.NewEngine(store, rules, cfg.LeavePolicy(),
		leave.WithLogger(zlog.Named("leave")),
		leave.WithRecorder(collector))

	requests := leave.NewRequestService(engine, store)
	requests.Router = review.NewSupervisorRouter(store, cfg.Leave.AdminGroup, cfg.Leave.AdminEmails)
	requests.Notifier = notify.Multi{
		notify.NewMailNotifier(notify.NewMailer(cfg.SMTP()), cfg.Email.From),
		notify.NewLogNotifier(zlog.Named("notify")),
	}
	requests.Recorder = collector
	requests.Log = zlog.Named("requests")

	if seedYear != 0 {
		if err := seedFreeDays(requests, template, seedYear, seedYears, zlog); err != nil {
			return err
		}
	}

	staffSvc := staff.NewService(store, nil, zlog.Named("staff"))

	handler := api.NewHandler(staffSvc, requests, zlog)
	handler.FreeDayTemplate = template
	handler.DefaultHour = cfg.Leave.DefaultHour

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Metrics:        collector.Handler(),
		Log:            zlog.Named("http"),
	})

	scheduler := api.NewRolloverScheduler(requests, zlog.Named("rollover"))
	scheduler.Enabled = cfg.Rollover.Enabled
	scheduler.CheckInterval = cfg.Rollover.CheckInterval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("time_zone", rules.Location().String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	zlog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	zlog.Info("server stopped")
	return nil
}

func seedFreeDays(requests *leave.RequestService, template []calendar.RecurringDay, startYear, years int, zlog *zap.Logger) error {
	if len(template) == 0 {
		zlog.Warn("no free day template configured, nothing to seed")
		return nil
	}
	days, err := requests.CreateFreeDays(context.Background(), template, startYear, years)
	if errors.Is(err, calendar.ErrDuplicateFreeDay) {
		zlog.Warn("free days already seeded", zap.Int("created", len(days)), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	zlog.Info("free days seeded", zap.Int("start_year", startYear), zap.Int("created", len(days)))
	return nil
}
