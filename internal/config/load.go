package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name, e.g.
// REFLECTIONS_DATABASE_URL for database.url.
const EnvPrefix = "REFLECTIONS"

// keys lists every configuration key so environment variables are honored
// during Unmarshal even when no config file or default mentions them.
var keys = []string{
	"server.port",
	"server.log_level",
	"database.url",
	"database.auto_migrate",
	"auth.jwt_secret",
	"auth.admin_user_id",
	"auth.token_lifetime",
	"batch_api.base_url",
	"batch_api.api_key",
	"batch_api.endpoint",
	"batch_api.completion_window",
	"batch_api.request_timeout",
	"batch_api.max_retries",
	"reflection.model",
	"reflection.max_tokens",
	"reflection.system_prompt_path",
	"reflection.user_prompt_path",
	"schedule.submit_weekday",
	"schedule.submit_hour",
	"schedule.poll_window",
	"schedule.poll_cron",
	"poller.invocation_budget",
	"poller.per_job_timeout",
	"poller.retention_days",
	"notify.sendgrid_api_key",
	"notify.sendgrid_base_url",
	"notify.from_email",
	"notify.to_email",
	"notify.verbose",
	"archive.bucket",
	"archive.prefix",
	"archive.region",
	"archive.endpoint",
	"archive.access_key_id",
	"archive.secret_access_key",
	"archive.use_path_style",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("auth.token_lifetime", "1h")
	v.SetDefault("batch_api.base_url", "https://api.openai.com/v1")
	v.SetDefault("batch_api.endpoint", "/v1/chat/completions")
	v.SetDefault("batch_api.completion_window", "24h")
	v.SetDefault("batch_api.request_timeout", "30s")
	v.SetDefault("batch_api.max_retries", 2)
	v.SetDefault("reflection.model", "gpt-4o-mini")
	v.SetDefault("reflection.max_tokens", 600)
	v.SetDefault("schedule.submit_weekday", "sunday")
	v.SetDefault("schedule.submit_hour", 20)
	v.SetDefault("schedule.poll_window", "30h")
	v.SetDefault("schedule.poll_cron", "*/15 * * * *")
	v.SetDefault("poller.invocation_budget", "4m")
	v.SetDefault("poller.per_job_timeout", "90s")
	v.SetDefault("poller.retention_days", 30)
	v.SetDefault("notify.sendgrid_base_url", "https://api.sendgrid.com")
	v.SetDefault("archive.prefix", "batch-output")
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path searches
// for config.yaml in the working directory and ignores its absence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Schedule.SubmitWeekday = strings.ToLower(strings.TrimSpace(cfg.Schedule.SubmitWeekday))

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
