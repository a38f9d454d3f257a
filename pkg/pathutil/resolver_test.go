package pathutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	p := New(Config{BeancountRoot: "/ledger"})
	assert.Equal(t, filepath.Join("/ledger", ".bookkeeper", "bookkeeper.db"), p.GetDatabasePath())

	p = New(Config{BeancountRoot: "/ledger", DatabasePath: "/tmp/x.db"})
	assert.Equal(t, "/tmp/x.db", p.GetDatabasePath())
	assert.Equal(t, filepath.Join("/ledger", "accounts.beancount"), p.GetAccountsFilePath())
}

func TestGetMonthFilePath(t *testing.T) {
	p := New(Config{BeancountRoot: "/ledger"})

	path, err := p.GetMonthFilePath("2024-03")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/ledger", "2024", "2024-03.beancount"), path)

	for _, bad := range []string{"2024", "24-03", "2024-3", "2024-03-01"} {
		_, err := p.GetMonthFilePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2024-02", MonthKey(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
}

func TestEnsureParentDir(t *testing.T) {
	root := t.TempDir()
	p := New(Config{BeancountRoot: root})

	file := filepath.Join(root, "2024", "2024-01.beancount")
	require.NoError(t, p.EnsureParentDir(file))
	assert.True(t, p.FileExists(filepath.Dir(file)))
	assert.False(t, p.FileExists(file))
}
