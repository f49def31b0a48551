package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/ad-user-manager/internal"
	"github.com/frahmantamala/ad-user-manager/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ad-user-manager",
	Short: "Active Directory user manager",
	Long:  `List Active Directory users and schedule account activation, deactivation and password resets.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig layers, lowest first: built-in defaults, config.yml in path (if
// present), ENV_* variables, then the AD_* variables.
func loadConfig(path string) (*internal.Config, error) {
	v := viper.New()
	setDefaults(v, internal.DefaultConfig())

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.ApplyLegacyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// config.yml does not mention.
func setDefaults(v *viper.Viper, d internal.Config) {
	v.SetDefault("http_server.port", d.Server.Port)
	v.SetDefault("http_server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("http_server.static_dir", d.Server.StaticDir)
	v.SetDefault("http_server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("http_server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("http_server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("http_server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("directory.url", d.Directory.URL)
	v.SetDefault("directory.base_dn", d.Directory.BaseDN)
	v.SetDefault("directory.username", d.Directory.Username)
	v.SetDefault("directory.password", d.Directory.Password)
	v.SetDefault("directory.ca_cert_path", d.Directory.CACertPath)
	v.SetDefault("directory.start_tls", d.Directory.StartTLS)
	v.SetDefault("directory.skip_hostname_verify", d.Directory.SkipHostnameVerify)
	v.SetDefault("directory.timeout", d.Directory.Timeout)
	v.SetDefault("directory.page_size", d.Directory.PageSize)
	v.SetDefault("directory.locale", d.Directory.Locale)

	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("scheduler.max_workers", d.Scheduler.MaxWorkers)
	v.SetDefault("scheduler.queue_size", d.Scheduler.QueueSize)

	v.SetDefault("task_log.driver", d.TaskLog.Driver)
	v.SetDefault("task_log.path", d.TaskLog.Path)
	v.SetDefault("task_log.redact_passwords", d.TaskLog.RedactPasswords)

	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", d.Database.ConnMaxIdleTime)
	v.SetDefault("database.source", d.Database.Source)

	v.SetDefault("observability.logging.env", d.Observability.Logging.Env)
	v.SetDefault("observability.logging.level", d.Observability.Logging.Level)
	v.SetDefault("observability.logging.format", d.Observability.Logging.Format)
}

func initLogger(cfg *internal.Config) {
	logging := cfg.Observability.Logging
	logger.InitWithFormat(logging.Env, logging.Level, logging.Format)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config-dir", "c", ".", "directory containing config.yml")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(taskLogCmd)
	rootCmd.AddCommand(usersCmd)
}
