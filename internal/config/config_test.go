package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "database", cfg.Tracker.Driver)
	assert.Equal(t, "memory", cfg.Realtime.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Same(t, cfg, Get())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TRIAGE_SERVER_PORT", "9090")
	t.Setenv("TRIAGE_DATABASE_DRIVER", "sqlite")
	t.Setenv("TRIAGE_DATABASE_DSN", "file::memory:")
	t.Setenv("TRIAGE_TRACKER_DRIVER", "redis")
	t.Setenv("TRIAGE_REDIS_ADDR", "localhost:6379")
	t.Setenv("TRIAGE_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.Tracker.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:   ServerConfig{Mode: "debug"},
			Database: DatabaseConfig{Driver: "postgres"},
			Tracker:  TrackerConfig{Driver: "database"},
			Realtime: RealtimeConfig{Driver: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "unknown database driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "unknown tracker driver", mutate: func(c *Config) { c.Tracker.Driver = "etcd" }, wantErr: true},
		{name: "redis tracker without address", mutate: func(c *Config) { c.Tracker.Driver = "redis" }, wantErr: true},
		{name: "postgres feed on sqlite", mutate: func(c *Config) {
			c.Database.Driver = "sqlite"
			c.Realtime.Driver = "postgres"
		}, wantErr: true},
		{name: "release mode without secret", mutate: func(c *Config) { c.Server.Mode = "release" }, wantErr: true},
		{name: "release mode with secret", mutate: func(c *Config) {
			c.Server.Mode = "release"
			c.Auth.JWTSecret = "s3cret"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
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
