package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/amp-labs/lifecycle/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requiredConfig struct {
	Value string `env:"FSM_TEST_REQUIRED_VALUE,required"`
}

func TestLoadDefaults(t *testing.T) { //nolint:paralleltest // Uses t.Setenv
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("FSM_DB_TABLE", "")

	_ = os.Unsetenv("LOG_LEVEL")
	_ = os.Unsetenv("FSM_DB_TABLE")

	var logging config.Logging

	require.NoError(t, config.Load(&logging))
	assert.Equal(t, slog.LevelInfo, logging.Level)
	assert.Equal(t, "stderr", logging.Output)

	var db config.Database

	require.NoError(t, config.Load(&db))
	assert.Equal(t, "sqlite", db.Driver)
	assert.Equal(t, "records", db.Table)
}

func TestLoadFromEnvironment(t *testing.T) { //nolint:paralleltest // Uses t.Setenv
	t.Setenv("LOG_JSON", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FSM_DOT_BIN", "/opt/graphviz/bin/dot")

	var logging config.Logging

	require.NoError(t, config.Load(&logging))
	assert.True(t, logging.JSON)
	assert.Equal(t, slog.LevelDebug, logging.Level)

	var gv config.Graphviz

	require.NoError(t, config.Load(&gv))
	assert.Equal(t, "/opt/graphviz/bin/dot", gv.Binary)
}

func TestLoadErrors(t *testing.T) { //nolint:paralleltest // Reads the process environment
	var missing requiredConfig

	require.ErrorIs(t, config.Load(&missing), config.ErrParsingConfig)
	require.ErrorIs(t, config.Load[requiredConfig](nil), config.ErrNilPointer)
}

func TestLoadFrom(t *testing.T) { //nolint:paralleltest // Uses t.Setenv
	t.Setenv("FSM_DB_DRIVER", "postgres")

	path := filepath.Join(t.TempDir(), "fsm.env")
	require.NoError(t, os.WriteFile(path, []byte("FSM_DB_DRIVER=sqlite\nFSM_DB_DSN=file:test.db\nFSM_DB_TABLE=vehicles\n"), 0o600))

	var db config.Database

	require.NoError(t, config.LoadFrom(&db, path))
	assert.Equal(t, "postgres", db.Driver)
	assert.Equal(t, "file:test.db", db.DSN)
	assert.Equal(t, "vehicles", db.Table)

	_, set := os.LookupEnv("FSM_DB_DSN")
	assert.False(t, set)

	require.Error(t, config.LoadFrom(&db, filepath.Join(t.TempDir(), "missing.env")))
}
