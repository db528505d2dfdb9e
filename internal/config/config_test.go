package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: postgres
  dsn: "host=localhost user=gaussdb dbname=cafehub"
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  topic:
    purchase: shop.purchase
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=localhost user=gaussdb dbname=cafehub", cfg.Database.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "shop.purchase", cfg.Kafka.Topic.Purchase)
	assert.Empty(t, cfg.Kafka.Topic.Claim)

	// 未配置的项取默认值
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.Equal(t, 5, cfg.Outbox.MaxRetryCount)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("CAFEHUB_SERVER_PORT", "7070")
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "database:\n  driver: oracle\n"},
		{"sqlite without dsn", "database:\n  driver: sqlite\n"},
		{"kafka without brokers", "kafka:\n  enabled: true\n  brokers: []\n"},
		{"zero batch", "outbox:\n  batch_size: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
