package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Store      StoreConfig      `yaml:"store"`
	Stripe     StripeConfig     `yaml:"stripe"`
	Notify     NotifyConfig     `yaml:"notify"`
	Redis      RedisConfig      `yaml:"redis"`
	Events     EventsConfig     `yaml:"events"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// StoreConfig points at the bookings store. For sqlite URL is a file path;
// for postgres it is a DSN and Key is the password injected into it.
type StoreConfig struct {
	Driver         string `yaml:"driver"`
	URL            string `yaml:"url"`
	Key            string `yaml:"key"`
	MaxConnections int    `yaml:"max_connections"`
}

type StripeConfig struct {
	SecretKey string `yaml:"secret_key"`
	Currency  string `yaml:"currency"`
}

type NotifyConfig struct {
	ClientID      string  `yaml:"client_id"`
	ClientSecret  string  `yaml:"client_secret"`
	BaseURL       string  `yaml:"base_url"`
	AlertTemplate string  `yaml:"alert_template"`
	AlertRPS      float64 `yaml:"alert_rps"`
	AlertBurst    int     `yaml:"alert_burst"`
	TelegramToken string  `yaml:"telegram_token"`
	TelegramChats []int64 `yaml:"telegram_chats"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
	LockKey  string        `yaml:"lock_key"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type EventsConfig struct {
	AMQPURL  string `yaml:"amqp_url"`
	Exchange string `yaml:"exchange"`
}

type MonitoringConfig struct {
	PrometheusPort int    `yaml:"prometheus_port"`
	PushgatewayURL string `yaml:"pushgateway_url"`
	PushJob        string `yaml:"push_job"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ScheduleConfig struct {
	RunAt   string        `yaml:"run_at"`
	Timeout time.Duration `yaml:"timeout"`
}

// envOverrides are the environment keys the deployment sets directly.
type envOverrides struct {
	StoreDriver        string `envconfig:"STORE_DRIVER"`
	StoreURL           string `envconfig:"STORE_URL"`
	StoreKey           string `envconfig:"STORE_KEY"`
	StripeSecretKey    string `envconfig:"STRIPE_SECRET_KEY"`
	StripeCurrency     string `envconfig:"STRIPE_CURRENCY"`
	NotifyClientID     string `envconfig:"NOTIFICATIONAPI_CLIENT_ID"`
	NotifyClientSecret string `envconfig:"NOTIFICATIONAPI_CLIENT_SECRET"`
	NotifyBaseURL      string `envconfig:"NOTIFICATIONAPI_BASE_URL"`
	TelegramToken      string `envconfig:"TELEGRAM_BOT_TOKEN"`
	RedisAddress       string `envconfig:"REDIS_ADDR"`
	AMQPURL            string `envconfig:"AMQP_URL"`
	PushgatewayURL     string `envconfig:"PUSHGATEWAY_URL"`
	LogLevel           string `envconfig:"LOG_LEVEL"`
}

// Load builds the configuration once at startup. The YAML file is optional;
// environment keys win over it.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	var config Config
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		expandedData := []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(expandedData, &config); err != nil {
			return nil, err
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&c.Store.Driver, env.StoreDriver)
	override(&c.Store.URL, env.StoreURL)
	override(&c.Store.Key, env.StoreKey)
	override(&c.Stripe.SecretKey, env.StripeSecretKey)
	override(&c.Stripe.Currency, env.StripeCurrency)
	override(&c.Notify.ClientID, env.NotifyClientID)
	override(&c.Notify.ClientSecret, env.NotifyClientSecret)
	override(&c.Notify.BaseURL, env.NotifyBaseURL)
	override(&c.Notify.TelegramToken, env.TelegramToken)
	override(&c.Redis.Address, env.RedisAddress)
	override(&c.Events.AMQPURL, env.AMQPURL)
	override(&c.Monitoring.PushgatewayURL, env.PushgatewayURL)
	override(&c.Logging.Level, env.LogLevel)
	return nil
}

// Validate checks the shape of the configuration. Credentials are checked
// per run by CheckCredentials.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}

	if len(c.Stripe.Currency) != 3 {
		return fmt.Errorf("invalid currency %q", c.Stripe.Currency)
	}

	if c.Notify.AlertRPS < 0 {
		return errors.New("notify.alert_rps must not be negative")
	}

	if _, _, err := c.Schedule.Clock(); err != nil {
		return err
	}

	return nil
}

// CheckCredentials reports the first missing credential the run cannot start without.
func (c *Config) CheckCredentials() error {
	if strings.TrimSpace(c.Store.URL) == "" || strings.TrimSpace(c.Store.Key) == "" {
		return errors.New("Missing store credentials in environment variables")
	}
	if strings.TrimSpace(c.Stripe.SecretKey) == "" {
		return errors.New("Missing Stripe secret key in environment variables")
	}
	return nil
}

// NotificationsConfigured reports whether the NotificationAPI sender can be built.
func (c NotifyConfig) NotificationsConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Clock parses RunAt as HH:MM (UTC).
func (s ScheduleConfig) Clock() (hour, minute int, err error) {
	if _, err := fmt.Sscanf(s.RunAt, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid schedule.run_at %q: %w", s.RunAt, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid schedule.run_at %q", s.RunAt)
	}
	return hour, minute, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "eventscan"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverSQLite
	}
	c.Store.Driver = strings.ToLower(c.Store.Driver)
	if c.Store.MaxConnections == 0 {
		c.Store.MaxConnections = 4
	}
	if c.Stripe.Currency == "" {
		c.Stripe.Currency = "cad"
	}
	c.Stripe.Currency = strings.ToLower(c.Stripe.Currency)
	if c.Notify.BaseURL == "" {
		c.Notify.BaseURL = "https://api.ca.notificationapi.com"
	}
	if c.Notify.AlertTemplate == "" {
		c.Notify.AlertTemplate = "admin_payment_error"
	}
	if c.Notify.AlertRPS == 0 {
		c.Notify.AlertRPS = 5
	}
	if c.Notify.AlertBurst == 0 {
		c.Notify.AlertBurst = 5
	}
	if c.Redis.LockKey == "" {
		c.Redis.LockKey = "eventscan:run"
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = 15 * time.Minute
	}
	if c.Events.Exchange == "" {
		c.Events.Exchange = "payments"
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Monitoring.PushJob == "" {
		c.Monitoring.PushJob = "eventscan"
	}
	if c.Schedule.RunAt == "" {
		c.Schedule.RunAt = "06:00"
	}
	if c.Schedule.Timeout == 0 {
		c.Schedule.Timeout = 10 * time.Minute
	}
}
