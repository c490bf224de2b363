package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/volunteer-scheduler/internal/access"
	"github.com/example/volunteer-scheduler/internal/application"
	"github.com/example/volunteer-scheduler/internal/config"
	httptransport "github.com/example/volunteer-scheduler/internal/http"
	"github.com/example/volunteer-scheduler/internal/logging"
	"github.com/example/volunteer-scheduler/internal/persistence/sqlite"
)

const sessionSweepInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("scheduler", flag.ContinueOnError)
	envFile := flags.String("env", ".env", "optional dotenv file read before the environment")
	repair := flags.Bool("repair-day-of-week", false, "recompute the stored day of week of every schedule and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadFile(*envFile)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, stdout)

	storage, err := sqlite.Open(cfg.SQLitePath, sqlite.Options{
		Logger:             logger,
		SlowQueryThreshold: cfg.SlowQueryThreshold,
	})
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(ctx); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		return err
	}

	srv, err := newServer(cfg, storage, time.Now, logger)
	if err != nil {
		return err
	}

	if *repair {
		report, err := srv.maintenance.RepairDaysOfWeek(ctx, maintenancePrincipal())
		if err != nil {
			logger.Error("day of week repair failed", "error", err)
			return err
		}
		logger.Info("day of week repair finished",
			"total", report.Total,
			"fixed", report.Fixed,
			"correct", report.Correct,
			"invalid", report.Invalid,
		)
		return nil
	}

	go sweepSessions(ctx, storage.Sessions, sessionSweepInterval, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	return nil
}

type app struct {
	handler     http.Handler
	auth        *application.AuthService
	maintenance *application.MaintenanceService
}

// newServer wires the application services and the HTTP router on top of storage.
func newServer(cfg config.Config, storage *sqlite.Storage, now func() time.Time, logger *slog.Logger) (*app, error) {
	hasher := application.NewPasswordHasher()

	fallback := application.FallbackCredentials{Username: cfg.FallbackUsername}
	if cfg.FallbackPassword != "" {
		hash, err := hasher.Hash(cfg.FallbackPassword)
		if err != nil {
			return nil, fmt.Errorf("hash fallback password: %w", err)
		}
		fallback.PasswordHash = hash
	}

	departments := departmentStore{repo: storage.Departments}
	members := memberStore{repo: storage.Members}
	services := serviceStore{repo: storage.Services}
	users := userStore{repo: storage.Users}
	schedules := scheduleStore{repo: storage.Schedules}
	sessions := sessionStore{repo: storage.Sessions}

	authService := application.NewAuthServiceWithLogger(users, users, sessions, hasher, nil, now, application.AuthConfig{
		Secret:           []byte(cfg.SessionSecret),
		SessionTTL:       cfg.SessionTTL,
		IdentityCacheTTL: cfg.IdentityCacheTTL,
		Fallback:         fallback,
	}, logger)
	departmentService := application.NewDepartmentServiceWithLogger(departments, now, logger)
	memberService := application.NewMemberServiceWithLogger(members, departments, now, logger)
	catalog := application.NewServiceCatalogWithLogger(services, now, logger)
	userService := application.NewUserServiceWithLogger(users, departments, hasher, authService, now, logger)
	scheduleService := application.NewScheduleServiceWithLogger(schedules, departments, members, users, now, logger)
	statsService := application.NewStatsServiceWithLogger(members, departments, services, users, schedules, users, now, logger)
	maintenance := application.NewMaintenanceServiceWithLogger(schedules, logger)
	exportService := application.NewExportServiceWithLogger(scheduleService, cfg.ExportRowsPerPage, now, logger)

	var loginLimiter *httptransport.RateLimiter
	if cfg.LoginRateLimit > 0 {
		loginLimiter = httptransport.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	}
	var csrfKey []byte
	if cfg.CSRFKey != "" {
		csrfKey = []byte(cfg.CSRFKey)
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         logger,
		Sessions:       authService,
		Auth:           httptransport.NewAuthHandler(authService, logger),
		Dashboard:      httptransport.NewDashboardHandler(statsService, maintenance, logger),
		Departments:    httptransport.NewDepartmentHandler(departmentService, logger),
		Members:        httptransport.NewMemberHandler(memberService, logger),
		Services:       httptransport.NewServiceHandler(catalog, logger),
		Users:          httptransport.NewUserHandler(userService, logger),
		Schedules:      httptransport.NewScheduleHandler(scheduleService, now, logger),
		Export:         httptransport.NewExportHandler(exportService, now, logger),
		LoginLimiter:   loginLimiter,
		AllowedOrigins: cfg.AllowedOrigins,
		CSRFKey:        csrfKey,
		RequestTimeout: cfg.RequestTimeout,
	})

	return &app{handler: handler, auth: authService, maintenance: maintenance}, nil
}

func maintenancePrincipal() application.Principal {
	return application.Principal{
		UserID:        application.FallbackUserID,
		Username:      "maintenance",
		Role:          access.RoleAdministrator,
		DepartmentIDs: []int64{},
	}
}

type expiredSessionDeleter interface {
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

func sweepSessions(ctx context.Context, sessions expiredSessionDeleter, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.DeleteExpiredSessions(ctx, time.Now())
			if err != nil {
				logger.Warn("failed to delete expired sessions", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("expired sessions deleted", "count", removed)
			}
		}
	}
}
