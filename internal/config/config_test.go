package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.Scheduler.PollInterval)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.JobTimeout)
	assert.Equal(t, "postgres", cfg.Scheduler.StoreDriver)
	assert.Equal(t, "job_configs", cfg.Scheduler.JobsTable)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.EqualValues(t, 5, cfg.HTTP.BreakerFailures)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JOB_TIMEOUT", "5m")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CHAT_BOT_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Scheduler.JobTimeout)
	assert.Equal(t, "memory", cfg.Scheduler.StoreDriver)
	assert.Equal(t, "secret", cfg.Chat.BotToken)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs_table: scheduler_jobs\nnotify_on_success: true\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "scheduler_jobs", cfg.Scheduler.JobsTable)
	assert.True(t, cfg.Scheduler.NotifyOnSuccess)
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file "+path)
	assert.Contains(t, fmt.Sprintf("%+v", err), "config.Load")
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable",
	}}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", cfg.DatabaseURL())

	cfg.Database.URL = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DatabaseURL())
}
