package cmd

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/frahmantamala/ad-user-manager/internal"
	tasklogDatamodel "github.com/frahmantamala/ad-user-manager/internal/core/datamodel/tasklog"
	"github.com/frahmantamala/ad-user-manager/internal/directory"
	"github.com/frahmantamala/ad-user-manager/internal/tasklog"
	tasklogPostgres "github.com/frahmantamala/ad-user-manager/internal/tasklog/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newDirectoryClient(cfg internal.DirectoryConfig, lg *slog.Logger) (*directory.Client, error) {
	var tlsConfig *tls.Config
	if cfg.Encrypted() {
		var err error
		tlsConfig, err = directory.LoadTLSConfig(cfg.URL, cfg.CACertPath, cfg.SkipHostnameVerify)
		if err != nil {
			return nil, fmt.Errorf("failed to load directory TLS config: %w", err)
		}
	} else {
		lg.Warn("directory connection is not encrypted; account and password changes will be refused",
			"url", cfg.URL)
	}

	return directory.NewClient(cfg, directory.NewDialer(cfg, tlsConfig), lg), nil
}

// taskLogStore is the configured outcome log backend. db is set only for the
// postgres driver.
type taskLogStore struct {
	store tasklog.Store
	db    *sqlx.DB
	close func() error
}

func newTaskLogStore(cfg *internal.Config, lg *slog.Logger) (*taskLogStore, error) {
	gormConfig := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch cfg.TaskLog.Driver {
	case internal.TaskLogDriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.TaskLog.Path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create task log directory: %w", err)
		}
		gdb, err := gorm.Open(sqlite.Open(cfg.TaskLog.Path), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite task log: %w", err)
		}
		if err := gdb.AutoMigrate(&tasklogDatamodel.TaskLog{}); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite task log: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		lg.Info("task log backed by sqlite", "path", cfg.TaskLog.Path)
		return &taskLogStore{
			store: tasklogPostgres.NewTaskLogRepository(gdb),
			close: sqlDB.Close,
		}, nil

	case internal.TaskLogDriverPostgres:
		db, err := initDB(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), gormConfig)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to open postgres task log: %w", err)
		}
		lg.Info("task log backed by postgres")
		return &taskLogStore{
			store: tasklogPostgres.NewTaskLogRepository(gdb),
			db:    db,
			close: db.Close,
		}, nil

	default:
		lg.Info("task log backed by file", "path", cfg.TaskLog.Path)
		return &taskLogStore{
			store: tasklog.NewFileStore(cfg.TaskLog.Path),
			close: func() error { return nil },
		}, nil
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return dbConn, nil
}
