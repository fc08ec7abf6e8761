package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Mail providers accepted by MAIL_PROVIDER.
const (
	MailProviderLog            = "log"
	MailProviderPostmark       = "postmark"
	MailProviderActiveCampaign = "activecampaign"
	MailProviderSMTP           = "smtp"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Frontend  FrontendConfig
	Mail      MailConfig
	Scheduler SchedulerConfig
	Contacts  ContactsConfig
	Events    EventsConfig
	Jobs      JobsConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// FrontendConfig points at the app that renders the weekly report form.
type FrontendConfig struct {
	BaseURL string
}

// MailConfig selects the email backend used for magic link delivery.
type MailConfig struct {
	Provider    string
	FromAddress string
	FromName    string
	Timeout     time.Duration

	PostmarkServerToken string
	PostmarkBaseURL     string

	ActiveCampaignURL     string
	ActiveCampaignAPIKey  string
	ActiveCampaignFieldID string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

// SchedulerConfig governs the recurring dispatch and status scan.
type SchedulerConfig struct {
	Enabled       bool
	TickInterval  time.Duration
	ScanTime      string
	Timezone      string
	DispatchDelay time.Duration
}

// ContactsConfig configures the marketing platform contact import.
type ContactsConfig struct {
	BaseURL           string
	APIKey            string
	LocationID        string
	APIVersion        string
	StudentTag        string
	InactiveTagMarker string
	PageSize          int
	PageDelay         time.Duration
}

// EventsConfig enables publication of domain events.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

// JobsConfig tunes the admin-triggered background queue.
type JobsConfig struct {
	Workers    int
	Retries    int
	ResultTTL  time.Duration
	BufferSize int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		RunMigrations: v.GetBool("DB_RUN_MIGRATIONS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		CacheTTL: parseDuration(v.GetString("REDIS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Frontend = FrontendConfig{
		BaseURL: strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
	}

	cfg.Mail = MailConfig{
		Provider:              strings.ToLower(strings.TrimSpace(v.GetString("MAIL_PROVIDER"))),
		FromAddress:           v.GetString("MAIL_FROM_ADDRESS"),
		FromName:              v.GetString("MAIL_FROM_NAME"),
		Timeout:               parseDuration(v.GetString("MAIL_TIMEOUT"), 15*time.Second),
		PostmarkServerToken:   v.GetString("POSTMARK_SERVER_TOKEN"),
		PostmarkBaseURL:       v.GetString("POSTMARK_BASE_URL"),
		ActiveCampaignURL:     strings.TrimRight(v.GetString("ACTIVECAMPAIGN_URL"), "/"),
		ActiveCampaignAPIKey:  v.GetString("ACTIVECAMPAIGN_API_KEY"),
		ActiveCampaignFieldID: v.GetString("ACTIVECAMPAIGN_LINK_FIELD_ID"),
		SMTPHost:              v.GetString("SMTP_HOST"),
		SMTPPort:              v.GetInt("SMTP_PORT"),
		SMTPUsername:          v.GetString("SMTP_USERNAME"),
		SMTPPassword:          v.GetString("SMTP_PASSWORD"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:       v.GetBool("ENABLE_SCHEDULER"),
		TickInterval:  parseDuration(v.GetString("SCHEDULER_TICK_INTERVAL"), time.Minute),
		ScanTime:      v.GetString("SCHEDULER_SCAN_TIME"),
		Timezone:      v.GetString("SCHEDULER_TIMEZONE"),
		DispatchDelay: parseDuration(v.GetString("DISPATCH_SEND_DELAY"), 500*time.Millisecond),
	}

	pageSize := v.GetInt("CONTACTS_PAGE_SIZE")
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	cfg.Contacts = ContactsConfig{
		BaseURL:           strings.TrimRight(v.GetString("CONTACTS_BASE_URL"), "/"),
		APIKey:            v.GetString("CONTACTS_API_KEY"),
		LocationID:        v.GetString("CONTACTS_LOCATION_ID"),
		APIVersion:        v.GetString("CONTACTS_API_VERSION"),
		StudentTag:        v.GetString("CONTACTS_STUDENT_TAG"),
		InactiveTagMarker: v.GetString("CONTACTS_INACTIVE_TAG_MARKER"),
		PageSize:          pageSize,
		PageDelay:         parseDuration(v.GetString("CONTACTS_PAGE_DELAY"), 50*time.Millisecond),
	}

	cfg.Events = EventsConfig{
		NATSURL:       v.GetString("NATS_URL"),
		SubjectPrefix: v.GetString("EVENTS_SUBJECT_PREFIX"),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		Retries:    v.GetInt("JOBS_RETRIES"),
		ResultTTL:  parseDuration(v.GetString("JOBS_RESULT_TTL"), 7*24*time.Hour),
		BufferSize: v.GetInt("JOBS_BUFFER_SIZE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "alumnos_crm")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_RUN_MIGRATIONS", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CACHE_TTL", "5m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("FRONTEND_URL", "http://localhost:3000")

	v.SetDefault("MAIL_PROVIDER", MailProviderLog)
	v.SetDefault("MAIL_FROM_ADDRESS", "")
	v.SetDefault("MAIL_FROM_NAME", "")
	v.SetDefault("MAIL_TIMEOUT", "15s")
	v.SetDefault("POSTMARK_BASE_URL", "https://api.postmarkapp.com")
	v.SetDefault("SMTP_PORT", 587)

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_TICK_INTERVAL", "1m")
	v.SetDefault("SCHEDULER_SCAN_TIME", "02:00")
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("DISPATCH_SEND_DELAY", "500ms")

	v.SetDefault("CONTACTS_BASE_URL", "https://services.leadconnectorhq.com")
	v.SetDefault("CONTACTS_API_VERSION", "2021-07-28")
	v.SetDefault("CONTACTS_STUDENT_TAG", "ALUMNO_SISTEMA")
	v.SetDefault("CONTACTS_INACTIVE_TAG_MARKER", "inactivo")
	v.SetDefault("CONTACTS_PAGE_SIZE", 100)
	v.SetDefault("CONTACTS_PAGE_DELAY", "50ms")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("EVENTS_SUBJECT_PREFIX", "crm")

	v.SetDefault("JOBS_WORKERS", 1)
	v.SetDefault("JOBS_RETRIES", 1)
	v.SetDefault("JOBS_RESULT_TTL", "168h")
	v.SetDefault("JOBS_BUFFER_SIZE", 8)
}

// Location resolves the scheduler timezone, falling back to UTC.
func (c SchedulerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
