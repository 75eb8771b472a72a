package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "clinic-warehouse", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Warehouse.ExpiryAlertDays)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
}

func TestValidate_ConnectionPool(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Database.MaxIdleConns = 50 // exceeds MaxOpenConns

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_idle_conns")
}

func TestValidate_ProductionRequirements(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.App.Env = "production"

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")

	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	err = cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.password")

	cfg.Database.Password = "secret"
	err = cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sslmode")

	cfg.Database.SSLMode = "require"
	require.NoError(t, cfg.validate())
}

func TestValidate_SamplingRatio(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Telemetry.SamplingRatio = 1.5

	err := cfg.validate()
	require.Error(t, err)
}

func TestDSN_EscapesCredentials(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user@clinic",
		Password: "p@ss:word",
		DBName:   "clinic",
		SSLMode:  "disable",
	}

	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.NotContains(t, dsn, "p@ss:word") // must be URL-escaped
}
