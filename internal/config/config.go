package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Database    DatabaseConfig
	Scheduler   SchedulerConfig
	HTTP        HTTPConfig
	Listings    APIConfig
	Ads         AdsConfig
	Calendar    APIConfig
	Chat        ChatConfig
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type SchedulerConfig struct {
	PollInterval    time.Duration
	JobTimeout      time.Duration
	StoreDriver     string // postgres | memory
	SeedFile        string
	JobsTable       string
	NotifyOnSuccess bool
	PushgatewayURL  string
	StatusAddr      string
}

type HTTPConfig struct {
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// APIConfig is the shape shared by the bearer-token platforms
type APIConfig struct {
	BaseURL     string
	AccessToken string
}

type AdsConfig struct {
	APIConfig
	APIVersion string
}

type ChatConfig struct {
	BaseURL  string
	BotToken string
	ChatID   string
}

// Load reads configuration from the environment and, when CONFIG_FILE is set,
// from that YAML file. Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	return FromViper(v), nil
}

// SetDefaults registers every known key so AutomaticEnv can resolve it
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("database_url", "")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "localpulse")
	v.SetDefault("db_password", "localpulse")
	v.SetDefault("db_name", "localpulse")
	v.SetDefault("db_sslmode", "disable")

	v.SetDefault("poll_interval", "1m")
	v.SetDefault("job_timeout", "30m")
	v.SetDefault("store_driver", "postgres")
	v.SetDefault("seed_file", "")
	v.SetDefault("jobs_table", "job_configs")
	v.SetDefault("notify_on_success", false)
	v.SetDefault("pushgateway_url", "")
	v.SetDefault("status_addr", ":8080")

	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("breaker_failures", 5)
	v.SetDefault("breaker_cooldown", "60s")

	v.SetDefault("listings_base_url", "https://mybusiness.googleapis.com/v4")
	v.SetDefault("listings_access_token", "")
	v.SetDefault("ads_base_url", "https://graph.facebook.com")
	v.SetDefault("ads_api_version", "v19.0")
	v.SetDefault("ads_access_token", "")
	v.SetDefault("calendar_base_url", "https://www.googleapis.com/calendar/v3")
	v.SetDefault("calendar_access_token", "")
	v.SetDefault("chat_base_url", "https://api.telegram.org")
	v.SetDefault("chat_bot_token", "")
	v.SetDefault("chat_id", "")
}

// FromViper maps a populated viper instance onto Config
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Environment: v.GetString("environment"),
		Database: DatabaseConfig{
			URL:      v.GetString("database_url"),
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			DBName:   v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
		},
		Scheduler: SchedulerConfig{
			PollInterval:    v.GetDuration("poll_interval"),
			JobTimeout:      v.GetDuration("job_timeout"),
			StoreDriver:     v.GetString("store_driver"),
			SeedFile:        v.GetString("seed_file"),
			JobsTable:       v.GetString("jobs_table"),
			NotifyOnSuccess: v.GetBool("notify_on_success"),
			PushgatewayURL:  v.GetString("pushgateway_url"),
			StatusAddr:      v.GetString("status_addr"),
		},
		HTTP: HTTPConfig{
			Timeout:         time.Duration(v.GetInt("http_timeout_seconds")) * time.Second,
			BreakerFailures: v.GetUint32("breaker_failures"),
			BreakerCooldown: v.GetDuration("breaker_cooldown"),
		},
		Listings: APIConfig{
			BaseURL:     v.GetString("listings_base_url"),
			AccessToken: v.GetString("listings_access_token"),
		},
		Ads: AdsConfig{
			APIConfig: APIConfig{
				BaseURL:     v.GetString("ads_base_url"),
				AccessToken: v.GetString("ads_access_token"),
			},
			APIVersion: v.GetString("ads_api_version"),
		},
		Calendar: APIConfig{
			BaseURL:     v.GetString("calendar_base_url"),
			AccessToken: v.GetString("calendar_access_token"),
		},
		Chat: ChatConfig{
			BaseURL:  v.GetString("chat_base_url"),
			BotToken: v.GetString("chat_bot_token"),
			ChatID:   v.GetString("chat_id"),
		},
	}
}

func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	return "postgres://" + c.Database.User + ":" + c.Database.Password +
		"@" + c.Database.Host + ":" + c.Database.Port +
		"/" + c.Database.DBName + "?sslmode=" + c.Database.SSLMode
}
