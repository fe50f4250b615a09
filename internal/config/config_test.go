package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"STORE_DRIVER", "STORE_URL", "STORE_KEY", "STRIPE_SECRET_KEY", "STRIPE_CURRENCY",
		"NOTIFICATIONAPI_CLIENT_ID", "NOTIFICATIONAPI_CLIENT_SECRET", "NOTIFICATIONAPI_BASE_URL",
		"TELEGRAM_BOT_TOKEN", "REDIS_ADDR", "AMQP_URL", "PUSHGATEWAY_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
app:
  name: "scanner"
store:
  driver: "postgres"
  url: "postgres://scanner@localhost:5432/bookings"
  key: "${TEST_STORE_KEY}"
stripe:
  secret_key: "sk_test_yaml"
notify:
  telegram_chats: [101, 202]
redis:
  lock_ttl: 5m
schedule:
  run_at: "07:30"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))
	t.Setenv("TEST_STORE_KEY", "from-env-expansion")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "scanner", cfg.App.Name)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "from-env-expansion", cfg.Store.Key)
	assert.Equal(t, "sk_test_yaml", cfg.Stripe.SecretKey)
	assert.Equal(t, []int64{101, 202}, cfg.Notify.TelegramChats)
	assert.Equal(t, 5*time.Minute, cfg.Redis.LockTTL)

	hour, minute, err := cfg.Schedule.Clock()
	require.NoError(t, err)
	assert.Equal(t, 7, hour)
	assert.Equal(t, 30, minute)
}

func TestLoadConfig_EnvironmentWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_URL", "file:bookings.db")
	t.Setenv("STORE_KEY", "service-role")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_env")
	t.Setenv("STRIPE_CURRENCY", "USD")
	t.Setenv("NOTIFICATIONAPI_CLIENT_ID", "client")
	t.Setenv("NOTIFICATIONAPI_CLIENT_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "file:bookings.db", cfg.Store.URL)
	assert.Equal(t, "usd", cfg.Stripe.Currency)
	assert.True(t, cfg.Notify.NotificationsConfigured())
	assert.NoError(t, cfg.CheckCredentials())
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "eventscan", cfg.App.Name)
	assert.Equal(t, "cad", cfg.Stripe.Currency)
	assert.Equal(t, "https://api.ca.notificationapi.com", cfg.Notify.BaseURL)
	assert.Equal(t, "admin_payment_error", cfg.Notify.AlertTemplate)
	assert.Equal(t, "eventscan:run", cfg.Redis.LockKey)
	assert.Equal(t, 15*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, "06:00", cfg.Schedule.RunAt)
	assert.False(t, cfg.Notify.NotificationsConfigured())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		cfg := Config{}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: true},
		{name: "bad currency", mutate: func(c *Config) { c.Stripe.Currency = "dollars" }, wantErr: true},
		{name: "negative alert rate", mutate: func(c *Config) { c.Notify.AlertRPS = -1 }, wantErr: true},
		{name: "bad run_at", mutate: func(c *Config) { c.Schedule.RunAt = "25:00" }, wantErr: true},
		{name: "garbage run_at", mutate: func(c *Config) { c.Schedule.RunAt = "soon" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckCredentials(t *testing.T) {
	cfg := Config{Stripe: StripeConfig{SecretKey: "sk"}}
	err := cfg.CheckCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing store credentials")

	cfg.Store = StoreConfig{URL: "file:x.db", Key: "key"}
	cfg.Stripe.SecretKey = " "
	err = cfg.CheckCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing Stripe secret key")

	cfg.Stripe.SecretKey = "sk"
	assert.NoError(t, cfg.CheckCredentials())
}
