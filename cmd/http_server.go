package cmd

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

	"github.com/frahmantamala/ad-user-manager/api"
	"github.com/frahmantamala/ad-user-manager/internal"
	"github.com/frahmantamala/ad-user-manager/internal/core/common/validation"
	"github.com/frahmantamala/ad-user-manager/internal/core/events"
	"github.com/frahmantamala/ad-user-manager/internal/directory"
	"github.com/frahmantamala/ad-user-manager/internal/task"
	"github.com/frahmantamala/ad-user-manager/internal/tasklog"
	"github.com/frahmantamala/ad-user-manager/internal/transport"
	"github.com/frahmantamala/ad-user-manager/internal/transport/rest"
	"github.com/frahmantamala/ad-user-manager/internal/user"
	"github.com/frahmantamala/ad-user-manager/pkg/logger"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server, the task scheduler and its worker pool`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config    *internal.Config
	Logger    *slog.Logger
	Directory *directory.Client
	EventBus  *events.EventBus
	TaskLog   *taskLogStore
	Pool      *task.Pool
	Scheduler *task.Scheduler
	Router    *chi.Mux
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	lg := deps.Logger

	schedCtx, stopScheduler := context.WithCancel(context.Background())
	schedDone := make(chan struct{})
	deps.Pool.Start()
	go func() {
		defer close(schedDone)
		_ = deps.Scheduler.Run(schedCtx)
	}()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	lg.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			lg.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("Server failed to start", "error", err)
			exitCode = 1
		}
	}

	// Tasks still queued for the future are dropped; in-flight ones finish.
	stopScheduler()
	<-schedDone
	deps.Pool.Shutdown()
	deps.EventBus.Wait()
	if err := deps.TaskLog.close(); err != nil {
		lg.Error("Task log close error", "error", err)
	}

	lg.Info("Server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	initLogger(config)
	lg := logger.LoggerWrapper()

	dirClient, err := newDirectoryClient(config.Directory, lg)
	if err != nil {
		return nil, err
	}

	store, err := newTaskLogStore(config, lg)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus(lg)

	taskLog := tasklog.New(store.store, lg)
	taskLog.Load(context.Background())
	tasklog.NewEventHandler(taskLog).Subscribe(bus)

	if !config.TaskLog.RedactPasswords {
		lg.Warn("generated passwords are recorded in the task log; set task_log.redact_passwords to omit them")
	}
	executor := task.NewExecutor(dirClient, bus, task.ExecutorConfig{
		RedactPasswords: config.TaskLog.RedactPasswords,
		Timeout:         3 * config.Directory.Timeout,
	}, lg)

	pool := task.NewPool(task.PoolConfig{
		MaxWorkers: config.Scheduler.MaxWorkers,
		QueueSize:  config.Scheduler.QueueSize,
	}, executor.Execute, lg)
	scheduler := task.NewScheduler(pool, task.Config{}, lg)

	schemas, err := validation.NewSchemaValidator(api.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load API schema: %w", err)
	}

	userService := user.NewService(dirClient, user.Config{
		TTL:    config.Cache.TTL,
		Locale: config.Directory.Locale,
	}, lg)

	checks := map[string]rest.Check{
		"directory": dirClient.Ping,
	}
	if store.db != nil {
		checks["database"] = store.db.PingContext
	}

	base := transport.NewBaseHandler(lg)
	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		User:    user.NewHandler(base, userService),
		Task:    task.NewHandler(base, scheduler, schemas),
		TaskLog: tasklog.NewHandler(base, taskLog),
		Health:  rest.NewHealthHandler(checks),
	}, rest.Options{
		AllowedOrigins: config.Server.Origins(),
		StaticDir:      config.Server.StaticDir,
	}, lg)

	return &Dependencies{
		Config:    config,
		Logger:    lg,
		Directory: dirClient,
		EventBus:  bus,
		TaskLog:   store,
		Pool:      pool,
		Scheduler: scheduler,
		Router:    router,
	}, nil
}
