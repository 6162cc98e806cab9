package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass-backend/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const baseConfig = `
server:
  host: 0.0.0.0
  port: 8080
jwt:
  secret: "0123456789abcdef0123456789abcdef"
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, baseConfig))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 60, cfg.JWT.AccessTokenExpiry)
	assert.Equal(t, "0 10 0 * * *", cfg.Scheduler.ExpireStalePasses)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "0.0.0.0:8080", cfg.GetServerAddress())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "gatepass")
	t.Setenv("DB_NAME", "gatepass")
	t.Setenv("DB_PORT", "5433")

	cfg, err := config.Load(writeConfig(t, baseConfig))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Contains(t, cfg.GetDatabaseConnectionString(), "db.internal:5433")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing jwt secret", `
server:
  port: 8080
`},
		{"short jwt secret", `
server:
  port: 8080
jwt:
  secret: "tooshort"
`},
		{"bad port", `
server:
  port: 0
jwt:
  secret: "0123456789abcdef0123456789abcdef"
`},
		{"unknown backend", baseConfig + `
store:
  backend: dynamo
`},
		{"postgres without host", baseConfig + `
store:
  backend: postgres
`},
		{"firestore without project", baseConfig + `
store:
  backend: firestore
`},
		{"operator without hash", baseConfig + `
operators:
  - username: frontdesk
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
