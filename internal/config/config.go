package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	BatchAPI   BatchAPIConfig   `mapstructure:"batch_api" validate:"required"`
	Reflection ReflectionConfig `mapstructure:"reflection" validate:"required"`
	Schedule   ScheduleConfig   `mapstructure:"schedule" validate:"required"`
	Poller     PollerConfig     `mapstructure:"poller" validate:"required"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL         string `mapstructure:"url" validate:"required,url"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains the admin token settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	AdminUserID   string        `mapstructure:"admin_user_id" validate:"required"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// BatchAPIConfig configures the external batch-processing service.
type BatchAPIConfig struct {
	BaseURL          string        `mapstructure:"base_url" validate:"required,url"`
	APIKey           string        `mapstructure:"api_key" validate:"required"`
	Endpoint         string        `mapstructure:"endpoint" validate:"required,startswith=/"`
	CompletionWindow string        `mapstructure:"completion_window" validate:"required"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxRetries       int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
}

// ReflectionConfig controls the content of each generation request.
type ReflectionConfig struct {
	Model            string `mapstructure:"model" validate:"required"`
	MaxTokens        int    `mapstructure:"max_tokens" validate:"gt=0"`
	SystemPromptPath string `mapstructure:"system_prompt_path" validate:"omitempty,file"`
	UserPromptPath   string `mapstructure:"user_prompt_path" validate:"omitempty,file"`
}

// ScheduleConfig describes when submissions happen and how long polling
// continues afterwards. All times are UTC. The weekly submission runs at
// SubmitWeekday SubmitHour:00.
type ScheduleConfig struct {
	SubmitWeekday string        `mapstructure:"submit_weekday" validate:"required,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	SubmitHour    int           `mapstructure:"submit_hour" validate:"gte=0,lte=23"`
	PollWindow    time.Duration `mapstructure:"poll_window" validate:"gt=0"`
	PollCron      string        `mapstructure:"poll_cron" validate:"required"`
}

// PollerConfig bounds a single polling invocation and retention of old jobs.
type PollerConfig struct {
	InvocationBudget time.Duration `mapstructure:"invocation_budget" validate:"gt=0"`
	PerJobTimeout    time.Duration `mapstructure:"per_job_timeout" validate:"gt=0"`
	RetentionDays    int           `mapstructure:"retention_days" validate:"gt=0"`
}

// Retention returns the retention window as a duration.
func (p PollerConfig) Retention() time.Duration {
	return time.Duration(p.RetentionDays) * 24 * time.Hour
}

// NotifyConfig configures the operator email channel. Email is disabled when
// SendGridAPIKey is empty. ToEmail may hold several comma-separated addresses.
// Verbose also mails polling attempts and still-processing reports.
type NotifyConfig struct {
	SendGridAPIKey  string `mapstructure:"sendgrid_api_key"`
	SendGridBaseURL string `mapstructure:"sendgrid_base_url" validate:"omitempty,url"`
	FromEmail       string `mapstructure:"from_email" validate:"required_with=SendGridAPIKey"`
	ToEmail         string `mapstructure:"to_email" validate:"required_with=SendGridAPIKey"`
	Verbose         bool   `mapstructure:"verbose"`
}

// EmailEnabled reports whether the SendGrid channel should be wired.
func (n NotifyConfig) EmailEnabled() bool {
	return n.SendGridAPIKey != ""
}

// ArchiveConfig configures raw output archiving to S3. Archiving is disabled
// when Bucket is empty.
type ArchiveConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region" validate:"required_with=Bucket"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// Enabled reports whether archiving is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}
