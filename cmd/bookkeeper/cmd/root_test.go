package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/db"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

func openTestSession(t *testing.T) *session {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	activeSession = &session{conn: conn, store: db.NewStore(conn), actor: "alice"}
	t.Cleanup(func() { activeSession = nil })
	return activeSession
}

func TestCloseActiveSession(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t)

	tenant := model.Tenant{Name: "Acme"}
	require.NoError(t, s.store.CreateTenant(ctx, &tenant))

	closeActiveSession()
	assert.Nil(t, activeSession)

	_, err := s.store.GetTenant(ctx, tenant.ID)
	assert.Error(t, err)
	assert.ErrorIs(t, err, model.ErrPersistence)

	// nothing left to close
	assert.NotPanics(t, closeActiveSession)
}

func TestSessionCloseClearsOnlyItself(t *testing.T) {
	first := openTestSession(t)
	second := openTestSession(t)

	first.Close()
	assert.Same(t, second, activeSession)

	second.Close()
	assert.Nil(t, activeSession)
}
