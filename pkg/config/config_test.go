package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BOOKKEEPER_DB_PATH", "BOOKKEEPER_TENANT_ID", "BOOKKEEPER_ACTOR",
		"BOOKKEEPER_CONTROL_ACCOUNT", "BOOKKEEPER_RULES_FILE",
		"BEANCOUNT_ROOT", "BEANCOUNT_DB_PATH",
		"BEANCOUNT_CURRENCY", "BEANCOUNT_MAPPING_FILE", "DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "system", cfg.Bookkeeper.Actor)
	assert.Equal(t, "1100", cfg.Bookkeeper.ControlAccount)
	assert.Equal(t, int64(0), cfg.Bookkeeper.TenantID)
	assert.Equal(t, "./beancount", cfg.Beancount.Root)
	assert.Equal(t, "ZAR", cfg.Beancount.Currency)
	assert.False(t, cfg.Debug)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, so unset them.
	for _, key := range []string{"BOOKKEEPER_TENANT_ID", "BOOKKEEPER_CONTROL_ACCOUNT", "DEBUG"} {
		require.NoError(t, os.Unsetenv(key))
	}

	path := filepath.Join(t.TempDir(), "test.env")
	content := "BOOKKEEPER_TENANT_ID=42\nBOOKKEEPER_CONTROL_ACCOUNT=1150\nDEBUG=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Cleanup(func() {
		os.Unsetenv("BOOKKEEPER_TENANT_ID")
		os.Unsetenv("BOOKKEEPER_CONTROL_ACCOUNT")
		os.Unsetenv("DEBUG")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Bookkeeper.TenantID)
	assert.Equal(t, "1150", cfg.Bookkeeper.ControlAccount)
	assert.True(t, cfg.Debug)
}

func TestLoadInvalidTenant(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOOKKEEPER_TENANT_ID", "acme")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Bookkeeper: BookkeeperConfig{Actor: "system", ControlAccount: "1100"},
		Beancount:  BeancountConfig{Root: "./beancount"},
	}

	assert.NoError(t, cfg.Validate(
		[]string{"bookkeeper", "actor"},
		[]string{"beancount", "root"},
	))

	err := cfg.Validate(
		[]string{"bookkeeper", "tenantId"},
		[]string{"beancount", "mappingFile"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bookkeeper.tenantId")
	assert.Contains(t, err.Error(), "beancount.mappingFile")
}
