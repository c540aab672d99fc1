package store_test

import (
	"os"
	"testing"

	"github.com/aquamind/batchsim/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateRejectsIdleExceedingOpen(t *testing.T) {
	cfg := store.Config{MaxOpenConns: 5, MaxIdleConns: 10}
	assert.Error(t, cfg.Validate())
}

func TestConfig_DSNIncludesAllFields(t *testing.T) {
	cfg := store.Config{Host: "db.internal", Port: 5433, User: "sim", Password: "secret", Database: "batchsim", SSLMode: "require"}
	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "dbname=batchsim")
	assert.Contains(t, dsn, "sslmode=require")
}

func TestLoadConfigFromEnv_AppliesDefaults(t *testing.T) {
	for _, key := range []string{
		"BATCHSIM_DB_PORT", "BATCHSIM_DB_MAX_OPEN_CONNS", "BATCHSIM_DB_MAX_IDLE_CONNS",
		"BATCHSIM_DB_CONN_MAX_LIFETIME", "BATCHSIM_DB_CONN_MAX_IDLE_TIME",
		"BATCHSIM_DB_HOST", "BATCHSIM_DB_USER", "BATCHSIM_DB_NAME", "BATCHSIM_DB_SSLMODE",
	} {
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := store.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 10, cfg.MaxIdleConns)
	assert.Equal(t, "localhost", cfg.Host)
}
