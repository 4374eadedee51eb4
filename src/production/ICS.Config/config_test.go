package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 8, cfg.Protocol.TimeZone)
	assert.Equal(t, "00:00;14:05", cfg.Protocol.TransTimes)
	assert.Equal(t, "nginx/1.6.0", cfg.Protocol.ServerHeader)
	assert.False(t, cfg.MQTTEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORE_DRIVER", "POSTGRES")
	t.Setenv("POSTGRES_USER", "iclock")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("BROKER_HOST", "broker.local")
	t.Setenv("BROKER_TLS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example ,")
	t.Setenv("SYNC_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "tcps://broker.local:1883", cfg.GetMQTTBrokerURL())
	assert.Equal(t, "host=localhost port=5432 user=iclock password=secret dbname=iclock sslmode=disable", cfg.GetDatabaseDSN())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("READ_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READ_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory ok", func(c *Config) {}, ""},
		{"postgres missing user", func(c *Config) { c.Store.Driver = DriverPostgres }, "POSTGRES_USER"},
		{"mongo missing uri", func(c *Config) { c.Store.Driver = DriverMongo }, "MONGODB_URI"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }, "unknown STORE_DRIVER"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"bad timezone", func(c *Config) { c.Sync.TimeZone = "Mars/Olympus" }, "SYNC_TIMEZONE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Store:   StoreConfig{Driver: DriverMemory},
				Logging: LoggingConfig{Format: "text"},
				Admin:   AdminConfig{APISecret: "s"},
				Sync:    SyncConfig{TimeZone: "UTC"},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
