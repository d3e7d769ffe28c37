package db

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"estatehub-marketplace/pkg/config"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestDialectSelection(t *testing.T) {
	cfg := &config.Config{}

	cfg.Database.Type = "sqlite"
	cfg.Database.DBName = "file::memory:"
	require.Equal(t, "sqlite", Dialect(cfg).Name())

	cfg.Database.Type = "mysql"
	require.Equal(t, "mysql", Dialect(cfg).Name())

	cfg.Database.Type = ""
	require.Equal(t, "postgres", Dialect(cfg).Name())
}

func TestMetricSkippedOnSqlite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Type = "sqlite"

	// Metric never touches the handle on sqlite, so nil is fine here.
	require.NoError(t, Metric(cfg, nil))
}
