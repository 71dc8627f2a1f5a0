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

	"github.com/cmlabs-hris/hris-timekeeping/internal/config"
	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/worksession"
	appHTTP "github.com/cmlabs-hris/hris-timekeeping/internal/handler/http"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/clock"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/database"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-timekeeping/internal/repository/memory"
	"github.com/cmlabs-hris/hris-timekeeping/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-timekeeping/internal/service/attendance"
	"github.com/cmlabs-hris/hris-timekeeping/internal/service/file"
	sessionService "github.com/cmlabs-hris/hris-timekeeping/internal/service/worksession"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/sync/errgroup"
)

const (
	appName    = "hris-timekeeping"
	appVersion = "v1.0.0"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(!cfg.IsProduction())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", appName),
		slog.String("version", appVersion),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		attendanceRepo attendance.EntryRepository
		sessionRepo    worksession.SessionRepository
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{MaxConns: cfg.Database.MaxConns})
		if err != nil {
			return fmt.Errorf("error connecting to database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("error migrating database: %w", err)
		}
		attendanceRepo = postgresql.NewAttendanceRepository(db)
		sessionRepo = postgresql.NewWorkSessionRepository(db)
	case config.StorageDriverMemory:
		slog.Warn("Using in-memory storage, data is lost on restart")
		attendanceRepo = memory.NewAttendanceRepository()
		sessionRepo = memory.NewWorkSessionRepository()
	}

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize local storage: %w", err)
	}
	fileService := file.NewFileService(fileStorage, file.Config{})

	policy := attendance.DefaultShiftPolicy()
	policy.NightLateGrace = cfg.Attendance.NightLateGrace
	office := geo.Point{Latitude: cfg.Office.Latitude, Longitude: cfg.Office.Longitude}

	clk := clock.System()
	attendanceSvc := attendanceService.NewAttendanceService(attendanceRepo, clk, attendanceService.Config{
		Policy:        policy,
		Classifier:    geo.NewClassifier(office, cfg.Office.RemoteThresholdMeters),
		CheckoutGrace: cfg.Attendance.CheckoutGrace,
		HalfDayHours:  cfg.Attendance.HalfDayHours,
		Location:      cfg.App.Timezone,
	})
	sessionSvc := sessionService.NewWorkSessionService(sessionRepo, fileService, clk, sessionService.Config{
		ScreenshotCeiling: cfg.Session.ScreenshotCeiling,
		StaleAfter:        cfg.Session.StaleAfter,
		Location:          cfg.App.Timezone,
	})

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			AllowedOrigins: cfg.App.CORSAllowedOrigins,
			LogLevel:       cfg.SlogLevel(),
		},
		logger,
		JWTService.JWTAuth(),
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewWorkSessionHandler(sessionSvc),
		appHTTP.NewFileHandler(fileService),
	)

	scheduler := cron.NewScheduler()
	cron.NewTimekeepingJobs(attendanceSvc, sessionSvc, cfg.Cron.Interval).RegisterJobs(scheduler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
