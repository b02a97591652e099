package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
db:
  dsn: "postgres://localhost/blinkpay"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "blink", cfg.Ledger.RefPrefix)
	assert.Equal(t, int64(20), cfg.Worker.IntervalSeconds)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
}

func TestLoadRequiresAddrAndDSN(t *testing.T) {
	_, err := Load(writeConfig(t, `db: {dsn: "x"}`))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `server: {addr: ":1"}`))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
db:
  dsn: "postgres://localhost/blinkpay"
ledger:
  ref_prefix: "blink"
`)

	t.Setenv("LEDGER_REF_PREFIX", "testnet")
	t.Setenv("WORKER_INTERVAL_SECONDS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "testnet", cfg.Ledger.RefPrefix)
	assert.Equal(t, int64(5), cfg.Worker.IntervalSeconds)
}
