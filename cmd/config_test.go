package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runConfigCommand(t *testing.T, contents string) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(contents), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--config", file})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		cfgFile = ""
	})

	require.NoError(t, Execute())
	return out.String()
}

func TestConfigCommandPrintsEffectiveConfig(t *testing.T) {
	printed := runConfigCommand(t, `
server:
  address: 127.0.0.1:9000
database:
  driver: sqlite
  dsn: relief.db
redis:
  password: hunter2
`)

	assert.Contains(t, printed, "address: 127.0.0.1:9000")
	assert.Contains(t, printed, "driver: sqlite")
	assert.Contains(t, printed, "reindex_interval: 10m0s")
	assert.NotContains(t, printed, "hunter2")
}

func TestConfigCommandRedactsDatabasePassword(t *testing.T) {
	printed := runConfigCommand(t, `
database:
  driver: postgres
  dsn: postgresql://relief:s3cretpw@db:5432/relief
`)

	assert.NotContains(t, printed, "s3cretpw")
	assert.Contains(t, printed, "dsn: postgresql://relief:xxxxx@db:5432/relief")
}
