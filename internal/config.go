package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Directory     DirectoryConfig     `mapstructure:"directory"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	TaskLog       TaskLogConfig       `mapstructure:"task_log"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	StaticDir         string        `mapstructure:"static_dir"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DirectoryConfig struct {
	URL                string        `mapstructure:"url"`
	BaseDN             string        `mapstructure:"base_dn"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	CACertPath         string        `mapstructure:"ca_cert_path"`
	StartTLS           bool          `mapstructure:"start_tls"`
	SkipHostnameVerify bool          `mapstructure:"skip_hostname_verify"`
	Timeout            time.Duration `mapstructure:"timeout"`
	PageSize           uint32        `mapstructure:"page_size"`
	Locale             string        `mapstructure:"locale"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type SchedulerConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
	QueueSize  int `mapstructure:"queue_size"`
}

const (
	TaskLogDriverFile     = "file"
	TaskLogDriverSQLite   = "sqlite"
	TaskLogDriverPostgres = "postgres"
)

type TaskLogConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	RedactPasswords bool   `mapstructure:"redact_passwords"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Env    string `mapstructure:"env"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the values used when neither config.yml nor the
// environment set a key.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:              3000,
			AllowedOrigins:    "*",
			StaticDir:         "public",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		Directory: DirectoryConfig{
			CACertPath: "certs/ca.cer",
			Timeout:    10 * time.Second,
			PageSize:   500,
			Locale:     "en",
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			MaxWorkers: 4,
			QueueSize:  100,
		},
		TaskLog: TaskLogConfig{
			Driver: TaskLogDriverFile,
			Path:   "public/logs/task_logs.json",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Env:    "development",
				Level:  "info",
				Format: "",
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

// ApplyLegacyEnv fills the directory section from the AD_* variables the
// deployment scripts already export. Explicit config values win.
func (c *Config) ApplyLegacyEnv() {
	c.Directory.URL = getEnv("AD_URL", c.Directory.URL)
	c.Directory.BaseDN = getEnv("AD_BASE_DN", c.Directory.BaseDN)
	c.Directory.Username = getEnv("AD_USERNAME", c.Directory.Username)
	c.Directory.Password = getEnv("AD_PASSWORD", c.Directory.Password)
	c.Directory.CACertPath = getEnv("AD_CA_CERT", c.Directory.CACertPath)
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Directory.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("directory config: %v", err))
	}

	if c.Cache.TTL <= 0 {
		errs = append(errs, "cache config: ttl must be positive")
	}

	if err := c.TaskLog.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("task_log config: %v", err))
	}

	if c.TaskLog.Driver == TaskLogDriverPostgres {
		if err := c.Database.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("database config: %v", err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *ServerConfig) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *DirectoryConfig) Validate() error {
	if c.URL == "" {
		return errors.New("url is required (AD_URL)")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	switch u.Scheme {
	case "ldap", "ldaps":
	default:
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Scheme == "ldaps" && c.StartTLS {
		return errors.New("start_tls cannot be combined with an ldaps url")
	}
	if c.BaseDN == "" {
		return errors.New("base_dn is required (AD_BASE_DN)")
	}
	if c.Username == "" {
		return errors.New("username is required (AD_USERNAME)")
	}
	return nil
}

// Encrypted reports whether connections opened with this config are
// protected by TLS, either ldaps or StartTLS.
func (c *DirectoryConfig) Encrypted() bool {
	return strings.HasPrefix(strings.ToLower(c.URL), "ldaps://") || c.StartTLS
}

func (c *TaskLogConfig) Validate() error {
	switch c.Driver {
	case TaskLogDriverFile, TaskLogDriverSQLite:
		if c.Path == "" {
			return errors.New("path is required")
		}
	case TaskLogDriverPostgres:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}
