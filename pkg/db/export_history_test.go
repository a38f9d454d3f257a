package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/posting"
)

func TestExportHistory(t *testing.T) {
	ctx := context.Background()
	conn, s := openTestStore(t)
	sd := seed(t, ctx, s)
	history := NewExportHistory(conn)

	txn := newTxn(sd.tenant.ID, "FEE", "35.00", "0", 5)
	require.NoError(t, s.CreateTransaction(ctx, txn))
	require.NoError(t, s.CreateTransaction(ctx, newTxn(sd.tenant.ID, "UNKNOWN", "1.00", "0", 6)))
	require.NoError(t, s.UpdateClassification(ctx, txn.ID, "9600", "system", time.Now()))

	entry, err := posting.NewEngine(s, nil).Post(ctx, txn, sd.fees, sd.bank, "system")
	require.NoError(t, err)

	exported, err := history.IsExported(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, exported)

	rec := ExportRecord{EntryID: entry.ID, EntryDate: "2024-03-05", BeancountFile: "/ledger/2024/2024-03.beancount"}
	require.NoError(t, history.RecordExport(ctx, rec))
	require.NoError(t, history.RecordExport(ctx, rec))

	exported, err = history.IsExported(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, exported)

	ids, err := history.ExportedIDs(ctx, sd.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{entry.ID: true}, ids)

	stats, err := history.GetStats(ctx, sd.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTransactions)
	assert.Equal(t, 1, stats.Unclassified)
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.ExportedEntries)
	assert.True(t, stats.LastExport.Valid)

	deleted, err := history.DeleteExport(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = history.DeleteExport(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestOverrideKeepsExportRecord(t *testing.T) {
	ctx := context.Background()
	conn, s := openTestStore(t)
	sd := seed(t, ctx, s)
	history := NewExportHistory(conn)

	txn := newTxn(sd.tenant.ID, "FEE", "35.00", "0", 5)
	require.NoError(t, s.CreateTransaction(ctx, txn))
	require.NoError(t, s.UpdateClassification(ctx, txn.ID, "9600", "system", time.Now()))

	engine := posting.NewEngine(s, nil)
	entry, err := engine.Post(ctx, txn, sd.fees, sd.bank, "system")
	require.NoError(t, err)
	require.NoError(t, history.RecordExport(ctx, ExportRecord{EntryID: entry.ID, EntryDate: "2024-03-05", BeancountFile: "/ledger/2024/2024-03.beancount"}))

	// the override rewrites the exported entry in place
	overridden, err := engine.Override(ctx, txn.ID, sd.fees.ID, sd.bank.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, overridden.ID)

	exported, err := history.IsExported(ctx, overridden.ID)
	require.NoError(t, err)
	assert.True(t, exported)
}

func TestExportMetadata(t *testing.T) {
	ctx := context.Background()
	conn, _ := openTestStore(t)
	history := NewExportHistory(conn)

	value, err := history.GetMetadata(ctx, "last_export_run")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, history.SetMetadata(ctx, "last_export_run", "a"))
	require.NoError(t, history.SetMetadata(ctx, "last_export_run", "b"))

	value, err = history.GetMetadata(ctx, "last_export_run")
	require.NoError(t, err)
	assert.Equal(t, "b", value)
}
