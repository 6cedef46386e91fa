package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const NIDPlaceholder = "{nid}"

type Config struct {
	Port       string `mapstructure:"port"`
	WebhookURL string `mapstructure:"webhook_url"`

	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	OwnerID          int64  `mapstructure:"owner_id"`
	// comma separated Telegram user ids seeded into the authorized list
	AuthorizedUsers string `mapstructure:"authorized_user_ids"`

	DBDriver    string `mapstructure:"db_driver"`
	DatabaseURL string `mapstructure:"database_url"`
	RedisURL    string `mapstructure:"redis_url"`

	QuestionsURL   string        `mapstructure:"questions_url"`
	MetadataURL    string        `mapstructure:"metadata_url"`
	SyllabusURL    string        `mapstructure:"syllabus_url"`
	FetchTimeouts  string        `mapstructure:"fetch_timeouts"`
	ExtractTimeout time.Duration `mapstructure:"extract_timeout"`
	AuditRetention time.Duration `mapstructure:"audit_retention"`

	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	GeminiModel  string `mapstructure:"gemini_model"`

	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	CORSOrigins string `mapstructure:"cors_origins"`
}

var defaults = map[string]any{
	"port":                "8080",
	"webhook_url":         "",
	"telegram_bot_token":  "",
	"owner_id":            0,
	"authorized_user_ids": "",
	"db_driver":           "postgres",
	"database_url":        "",
	"redis_url":           "",
	"questions_url":       "https://learn.aakashitutor.com/quiz/{nid}/getlocalequestions",
	"metadata_url":        "https://learn.aakashitutor.com/api/getquizfromid?nid={nid}",
	"syllabus_url":        "https://learn.aakashitutor.com/get/test/syllabus?nid={nid}",
	"fetch_timeouts":      "15s,30s,45s",
	"extract_timeout":     "3m",
	"audit_retention":     "2160h",
	"gemini_api_key":      "",
	"gemini_model":        "gemini-2.5-flash",
	"log_level":           "info",
	"log_format":          "json",
	"cors_origins":        "*",
}

// Load reads .env (if present), configs/config.yaml (if present) and the environment.
// Environment variables win; their names are the upper-cased keys (PORT, DATABASE_URL, ...).
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" && cfg.DBDriver == "postgres" {
		cfg.DatabaseURL = resolveDSN()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	for name, tpl := range map[string]string{
		"questions_url": c.QuestionsURL,
		"metadata_url":  c.MetadataURL,
		"syllabus_url":  c.SyllabusURL,
	} {
		if !strings.Contains(tpl, NIDPlaceholder) {
			return fmt.Errorf("%s must contain %s", name, NIDPlaceholder)
		}
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("db_driver must be postgres or sqlite, got %q", c.DBDriver)
	}
	if _, err := c.Timeouts(); err != nil {
		return err
	}
	if _, err := c.AuthorizedIDs(); err != nil {
		return err
	}
	if c.ExtractTimeout <= 0 {
		return errors.New("extract_timeout must be positive")
	}
	return nil
}

// RequireBot checks the settings only the Telegram front-end needs.
func (c *Config) RequireBot() error {
	if strings.TrimSpace(c.TelegramBotToken) == "" {
		return errors.New("missing TELEGRAM_BOT_TOKEN")
	}
	if c.OwnerID == 0 {
		return errors.New("missing OWNER_ID")
	}
	return nil
}

// Timeouts parses FetchTimeouts; the values must strictly increase.
func (c *Config) Timeouts() ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(c.FetchTimeouts, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, fmt.Errorf("fetch_timeouts: %w", err)
		}
		if len(out) > 0 && d <= out[len(out)-1] {
			return nil, fmt.Errorf("fetch_timeouts must strictly increase: %s", c.FetchTimeouts)
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, errors.New("fetch_timeouts is empty")
	}
	return out, nil
}

func (c *Config) AuthorizedIDs() ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(c.AuthorizedUsers, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("authorized_user_ids: %q is not a user id", part)
		}
		out = append(out, id)
	}
	return out, nil
}

func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// resolveDSN builds a Postgres DSN from POSTGRES_* / PG* variables.
func resolveDSN() string {
	pass := os.Getenv("POSTGRES_PASSWORD")
	if pass == "" && os.Getenv("PGHOST") == "" {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getenvDefault("POSTGRES_USER", "quizbot"), pass),
		Host:     net.JoinHostPort(getenvDefault("PGHOST", "db"), getenvDefault("PGPORT", "5432")),
		Path:     "/" + getenvDefault("POSTGRES_DB", "quizbot"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// SafeDSNSummary renders a DSN without credentials for logs.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "dsn: " + strings.SplitN(dsn, "?", 2)[0]
	}
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	user := u.User.Username()
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
