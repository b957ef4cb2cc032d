package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localpulse/jobs/internal/config"
	"github.com/localpulse/jobs/pkg/jobs"
	"github.com/localpulse/jobs/pkg/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Database.URL = "postgres://u:p@127.0.0.1:1/none?sslmode=disable"
	return cfg
}

func TestNew_RegistersEveryModule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.StoreDriver = StoreDriverMemory

	a, err := New(context.Background(), cfg, Options{Manual: true})
	require.NoError(t, err)
	defer a.Close()

	assert.Empty(t, a.Failed)
	assert.Equal(t, []string{
		jobs.AdsInsightsJobName,
		jobs.AlertsDigestJobName,
		jobs.CalendarSyncJobName,
		jobs.PostsPublishJobName,
		jobs.ReviewsSyncJobName,
	}, a.Registry.Names())
	assert.IsType(t, &store.MemoryStore{}, a.Store)
}

func TestNew_MemoryStoreSeeded(t *testing.T) {
	seed := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
jobs:
  - job_name: alerts.digest.daily
    schedule_interval_minutes: 1440
    enabled: false
`), 0o600))

	cfg := testConfig(t)
	cfg.Scheduler.StoreDriver = StoreDriverMemory
	cfg.Scheduler.SeedFile = seed

	a, err := New(context.Background(), cfg, Options{Manual: true})
	require.NoError(t, err)
	defer a.Close()

	row, err := a.Store.GetConfig(context.Background(), jobs.AlertsDigestJobName)
	require.NoError(t, err)
	assert.False(t, row.Enabled)
	assert.Equal(t, 24*time.Hour, row.Interval())
}

func TestNew_UnknownStoreDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.StoreDriver = "redis"

	_, err := New(context.Background(), cfg, Options{Manual: true})
	assert.Error(t, err)
}

func TestNew_MemoryStoreStartsWithoutDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.StoreDriver = StoreDriverMemory

	a, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &store.MemoryStore{}, a.Store)
	assert.Len(t, a.Clients, 4)
	for _, name := range []string{"chat", "listings", "ads", "calendar"} {
		assert.Contains(t, a.Clients, name)
	}
}

func TestNew_PostgresStorePingsDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.StoreDriver = StoreDriverPostgres

	_, err := New(context.Background(), cfg, Options{})
	assert.Error(t, err)
}
