package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 50_000, cfg.Matching.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Matching.SearchTimeout)
	assert.Equal(t, uint32(5), cfg.Breaker.ConsecutiveFailures)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "donormatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
matching:
  batch_size: 1000
  max_phase_one_loci: 2
kafka:
  brokers: ["broker-1:9092"]
logging:
  level: debug
`), 0o600))

	t.Setenv("DONORMATCH_MATCHING_SEARCH_TIMEOUT", "2s")
	t.Setenv("DONORMATCH_DATABASE_URL", "postgres://donormatch@localhost:5432/donormatch")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 1000, cfg.Matching.BatchSize)
	assert.Equal(t, 2, cfg.Matching.MaxPhaseOneLoci)
	assert.Equal(t, 2*time.Second, cfg.Matching.SearchTimeout)
	assert.Equal(t, []string{"broker-1:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "postgres://donormatch@localhost:5432/donormatch", cfg.Database.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   Server{Addr: ":8080"},
			Matching: Matching{BatchSize: 10},
			Logging:  Logging{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: "server address"},
		{name: "zero batch size", mutate: func(c *Config) { c.Matching.BatchSize = 0 }, wantErr: "batch size"},
		{name: "negative phase one cap", mutate: func(c *Config) { c.Matching.MaxPhaseOneLoci = -1 }, wantErr: "phase one loci"},
		{name: "brokers without topic", mutate: func(c *Config) { c.Kafka.Brokers = []string{"b:9092"} }, wantErr: "kafka topic"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "log level"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
