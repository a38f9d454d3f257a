package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

const entryColumns = `id, tenant_id, fiscal_period_id, reference, entry_date, description,
	created_by, created_at, source_transaction_id`

const lineColumns = `id, entry_id, account_id, debit_amount, credit_amount, description,
	source_transaction_id, line_number`

func scanEntry(row interface{ Scan(...interface{}) error }) (*model.JournalEntry, error) {
	var e model.JournalEntry
	var date string
	var source sql.NullInt64

	if err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.FiscalPeriodID,
		&e.Reference,
		&date,
		&e.Description,
		&e.CreatedBy,
		&e.CreatedAt,
		&source,
	); err != nil {
		return nil, err
	}

	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid entry date %q: %w", date, err)
	}
	e.EntryDate = parsed

	if source.Valid {
		id := source.Int64
		e.SourceTransactionID = &id
	}
	return &e, nil
}

func scanLine(row interface{ Scan(...interface{}) error }) (*model.JournalEntryLine, error) {
	var l model.JournalEntryLine
	var source sql.NullInt64

	if err := row.Scan(
		&l.ID,
		&l.EntryID,
		&l.AccountID,
		&l.DebitAmount,
		&l.CreditAmount,
		&l.Description,
		&source,
		&l.LineNumber,
	); err != nil {
		return nil, err
	}

	if source.Valid {
		id := source.Int64
		l.SourceTransactionID = &id
	}
	return &l, nil
}

func queryLines(ctx context.Context, q querier, query string, args ...interface{}) ([]model.JournalEntryLine, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to list journal lines: %w", err))
	}
	defer rows.Close()

	var lines []model.JournalEntryLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, model.Persistence(fmt.Errorf("failed to scan journal line: %w", err))
		}
		lines = append(lines, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to list journal lines: %w", err))
	}
	return lines, nil
}

// GetEntry implements store.LedgerStore.
func (s *Store) GetEntry(ctx context.Context, id int64) (*model.JournalEntry, error) {
	row := s.conn.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("journal entry %d", id)
	}
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to get journal entry: %w", err))
	}

	e.Lines, err = queryLines(ctx, s.conn.db,
		`SELECT `+lineColumns+` FROM journal_entry_lines WHERE entry_id = ? ORDER BY line_number`, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListEntries implements store.LedgerStore.
func (s *Store) ListEntries(ctx context.Context, tenantID int64) ([]model.JournalEntry, error) {
	rows, err := s.conn.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id = ? ORDER BY entry_date, id`, tenantID)
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to list journal entries: %w", err))
	}

	var entries []model.JournalEntry
	index := make(map[int64]int)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, model.Persistence(fmt.Errorf("failed to scan journal entry: %w", err))
		}
		index[e.ID] = len(entries)
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, model.Persistence(fmt.Errorf("failed to list journal entries: %w", err))
	}
	rows.Close()

	lines, err := queryLines(ctx, s.conn.db, `
		SELECT l.id, l.entry_id, l.account_id, l.debit_amount, l.credit_amount, l.description,
			l.source_transaction_id, l.line_number
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.tenant_id = ?
		ORDER BY l.entry_id, l.line_number`, tenantID)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		if i, ok := index[l.EntryID]; ok {
			entries[i].Lines = append(entries[i].Lines, l)
		}
	}
	return entries, nil
}

// LinesBySourceTransaction implements store.LedgerStore.
func (s *Store) LinesBySourceTransaction(ctx context.Context, transactionID int64) ([]model.JournalEntryLine, error) {
	return linesBySource(ctx, s.conn.db, transactionID)
}

func linesBySource(ctx context.Context, q querier, transactionID int64) ([]model.JournalEntryLine, error) {
	return queryLines(ctx, q,
		`SELECT `+lineColumns+` FROM journal_entry_lines
		WHERE source_transaction_id = ?
		ORDER BY entry_id, line_number`, transactionID)
}

// ListClassifiedWithoutLines implements store.LedgerStore.
func (s *Store) ListClassifiedWithoutLines(ctx context.Context, tenantID int64) ([]model.BankTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM bank_transactions t
		WHERE t.tenant_id = ?
			AND t.account_code IS NOT NULL AND t.account_code != ''
			AND NOT EXISTS (
				SELECT 1 FROM journal_entry_lines l WHERE l.source_transaction_id = t.id
			)
		ORDER BY t.transaction_date, t.id`
	return queryTransactions(ctx, s.conn.db, query, tenantID)
}

// InTx implements store.LedgerStore.
func (s *Store) InTx(ctx context.Context, fn func(tx store.LedgerTx) error) error {
	return s.conn.Transaction(ctx, func(tx *sql.Tx) error {
		return fn(&ledgerTx{tx: tx})
	})
}

type ledgerTx struct {
	tx *sql.Tx
}

func (l *ledgerTx) CreateEntry(ctx context.Context, entry *model.JournalEntry) error {
	query := `
		INSERT INTO journal_entries
			(tenant_id, fiscal_period_id, reference, entry_date, description, created_by, created_at, source_transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var source sql.NullInt64
	if entry.SourceTransactionID != nil {
		source = sql.NullInt64{Int64: *entry.SourceTransactionID, Valid: true}
	}

	result, err := l.tx.ExecContext(ctx, query,
		entry.TenantID,
		entry.FiscalPeriodID,
		entry.Reference,
		entry.EntryDate.Format(dateLayout),
		entry.Description,
		entry.CreatedBy,
		entry.CreatedAt.UTC(),
		source,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyPosted
		}
		return model.Persistence(fmt.Errorf("failed to create journal entry: %w", err))
	}

	entry.ID, err = result.LastInsertId()
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to get journal entry id: %w", err))
	}
	return nil
}

func (l *ledgerTx) CreateLine(ctx context.Context, line *model.JournalEntryLine) error {
	query := `
		INSERT INTO journal_entry_lines
			(entry_id, account_id, debit_amount, credit_amount, description, source_transaction_id, line_number)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var source sql.NullInt64
	if line.SourceTransactionID != nil {
		source = sql.NullInt64{Int64: *line.SourceTransactionID, Valid: true}
	}

	result, err := l.tx.ExecContext(ctx, query,
		line.EntryID,
		line.AccountID,
		line.DebitAmount.String(),
		line.CreditAmount.String(),
		line.Description,
		source,
		line.LineNumber,
	)
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to create journal line: %w", err))
	}

	line.ID, err = result.LastInsertId()
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to get journal line id: %w", err))
	}
	return nil
}

func (l *ledgerTx) UpdateLine(ctx context.Context, line *model.JournalEntryLine) error {
	query := `
		UPDATE journal_entry_lines
		SET account_id = ?, debit_amount = ?, credit_amount = ?, description = ?
		WHERE id = ?
	`
	result, err := l.tx.ExecContext(ctx, query,
		line.AccountID,
		line.DebitAmount.String(),
		line.CreditAmount.String(),
		line.Description,
		line.ID,
	)
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to update journal line: %w", err))
	}
	return requireRow(result, "journal line", line.ID)
}

func (l *ledgerTx) LinesBySourceTransaction(ctx context.Context, transactionID int64) ([]model.JournalEntryLine, error) {
	return linesBySource(ctx, l.tx, transactionID)
}

func (l *ledgerTx) UpdateClassification(ctx context.Context, transactionID int64, accountCode string, actor string, at time.Time) error {
	return updateClassification(ctx, l.tx, transactionID, accountCode, actor, at)
}
