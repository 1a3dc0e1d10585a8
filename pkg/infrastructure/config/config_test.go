package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, DriverMemory, c.Store.Driver)
	assert.Equal(t, DriverLocal, c.Locking.Driver)
	assert.Equal(t, 30*time.Second, c.Workflow.OperationTimeout)
	assert.Equal(t, 30, c.Forecast.HorizonDays)
	assert.Equal(t, 256, c.Events.PerStream)
	assert.Equal(t, 10000, c.Events.Total)
	assert.NoError(t, c.Validate())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fieldflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  env: prod
http:
  addr: ":9090"
store:
  driver: postgres
postgres:
  dsn: postgres://file
workflow:
  operation_timeout: 5s
forecast:
  horizon_days: 14
`), 0o600))

	t.Setenv("FIELDFLOW_POSTGRES_DSN", "postgres://env")

	c, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "prod", c.App.Env)
	assert.Equal(t, ":9090", c.HTTP.Addr)
	assert.Equal(t, "postgres://env", c.Postgres.DSN)
	assert.Equal(t, 5*time.Second, c.Workflow.OperationTimeout)
	assert.Equal(t, 14, c.Forecast.HorizonDays)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FIELDFLOW_HTTP_ADDR=:7070\n"), 0o600))
	t.Setenv("FIELDFLOW_HTTP_ADDR", "")
	os.Unsetenv("FIELDFLOW_HTTP_ADDR")

	c, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.HTTP.Addr)

	_, err = Load("", filepath.Join(dir, "missing.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store.Driver = "sqlite" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"unknown locker", func(c *Config) { c.Locking.Driver = "zookeeper" }},
		{"redis without addr", func(c *Config) { c.Locking.Driver = DriverRedis }},
		{"zero timeout", func(c *Config) { c.Workflow.OperationTimeout = 0 }},
		{"zero horizon", func(c *Config) { c.Forecast.HorizonDays = 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
