package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ExportRecord records that a journal entry was written to a Beancount file.
type ExportRecord struct {
	ID            int64
	EntryID       int64
	EntryDate     string
	BeancountFile string
	ExportedAt    time.Time
}

// ExportHistory manages the export history of journal entries.
type ExportHistory struct {
	conn *Connection
}

// NewExportHistory creates a new ExportHistory instance.
func NewExportHistory(conn *Connection) *ExportHistory {
	return &ExportHistory{conn: conn}
}

// RecordExport records an export.
// If the entry was exported before, the file path and timestamp are updated.
func (h *ExportHistory) RecordExport(ctx context.Context, record ExportRecord) error {
	query := `
		INSERT INTO export_history (entry_id, entry_date, beancount_file)
		VALUES (?, ?, ?)
		ON CONFLICT(entry_id) DO UPDATE SET
			entry_date = excluded.entry_date,
			beancount_file = excluded.beancount_file,
			exported_at = CURRENT_TIMESTAMP
	`

	_, err := h.conn.db.ExecContext(ctx, query,
		record.EntryID,
		record.EntryDate,
		record.BeancountFile,
	)
	if err != nil {
		return fmt.Errorf("failed to record export: %w", err)
	}

	return nil
}

// IsExported checks if a journal entry has been exported.
func (h *ExportHistory) IsExported(ctx context.Context, entryID int64) (bool, error) {
	var count int
	err := h.conn.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM export_history WHERE entry_id = ?`, entryID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if exported: %w", err)
	}

	return count > 0, nil
}

// ExportedIDs returns the IDs of all exported entries of a tenant.
// This is useful for bulk filtering.
func (h *ExportHistory) ExportedIDs(ctx context.Context, tenantID int64) (map[int64]bool, error) {
	query := `
		SELECT h.entry_id FROM export_history h
		JOIN journal_entries e ON e.id = h.entry_id
		WHERE e.tenant_id = ?
	`

	rows, err := h.conn.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exported IDs: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan entry ID: %w", err)
		}
		ids[id] = true
	}

	return ids, rows.Err()
}

// DeleteExport forgets an export so the entry is written again on the next run.
func (h *ExportHistory) DeleteExport(ctx context.Context, entryID int64) (bool, error) {
	result, err := h.conn.db.ExecContext(ctx, `DELETE FROM export_history WHERE entry_id = ?`, entryID)
	if err != nil {
		return false, fmt.Errorf("failed to delete export record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// Stats represents database statistics for one tenant.
type Stats struct {
	TotalTransactions int
	Unclassified      int
	TotalEntries      int
	ExportedEntries   int
	LastExport        sql.NullString
}

// GetStats retrieves statistics for a tenant.
func (h *ExportHistory) GetStats(ctx context.Context, tenantID int64) (*Stats, error) {
	var stats Stats

	err := h.conn.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bank_transactions WHERE tenant_id = ?`, tenantID).Scan(&stats.TotalTransactions)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction count: %w", err)
	}

	err = h.conn.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bank_transactions WHERE tenant_id = ? AND (account_code IS NULL OR account_code = '')`,
		tenantID).Scan(&stats.Unclassified)
	if err != nil {
		return nil, fmt.Errorf("failed to get unclassified count: %w", err)
	}

	err = h.conn.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM journal_entries WHERE tenant_id = ?`, tenantID).Scan(&stats.TotalEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entry count: %w", err)
	}

	err = h.conn.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(h.exported_at) FROM export_history h
		JOIN journal_entries e ON e.id = h.entry_id
		WHERE e.tenant_id = ?`, tenantID).Scan(&stats.ExportedEntries, &stats.LastExport)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get export count: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value.
func (h *ExportHistory) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := h.conn.db.QueryRowContext(ctx, `SELECT value FROM export_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (h *ExportHistory) SetMetadata(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO export_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := h.conn.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
