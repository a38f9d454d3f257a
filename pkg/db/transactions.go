package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

const transactionColumns = `t.id, t.tenant_id, t.fiscal_period_id, t.transaction_date, t.details,
	t.debit_amount, t.credit_amount, t.account_code, t.last_updated_by, t.last_updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (*model.BankTransaction, error) {
	var t model.BankTransaction
	var date string
	var code sql.NullString
	var updatedAt sql.NullTime

	if err := row.Scan(
		&t.ID,
		&t.TenantID,
		&t.FiscalPeriodID,
		&date,
		&t.Details,
		&t.DebitAmount,
		&t.CreditAmount,
		&code,
		&t.LastUpdatedBy,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction date %q: %w", date, err)
	}
	t.Date = parsed

	if code.Valid {
		t.AccountCode = &code.String
	}
	if updatedAt.Valid {
		at := updatedAt.Time
		t.LastUpdatedAt = &at
	}
	return &t, nil
}

// CreateTransaction implements store.TransactionStore.
func (s *Store) CreateTransaction(ctx context.Context, txn *model.BankTransaction) error {
	query := `
		INSERT INTO bank_transactions
			(tenant_id, fiscal_period_id, transaction_date, details, debit_amount, credit_amount,
			 account_code, last_updated_by, last_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var code sql.NullString
	if txn.AccountCode != nil {
		code = sql.NullString{String: *txn.AccountCode, Valid: true}
	}
	var updatedAt sql.NullTime
	if txn.LastUpdatedAt != nil {
		updatedAt = sql.NullTime{Time: txn.LastUpdatedAt.UTC(), Valid: true}
	}

	result, err := s.conn.db.ExecContext(ctx, query,
		txn.TenantID,
		txn.FiscalPeriodID,
		txn.Date.Format(dateLayout),
		txn.Details,
		txn.DebitAmount.String(),
		txn.CreditAmount.String(),
		code,
		txn.LastUpdatedBy,
		updatedAt,
	)
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to create transaction: %w", err))
	}

	txn.ID, err = result.LastInsertId()
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to get transaction id: %w", err))
	}
	return nil
}

// GetTransaction implements store.TransactionStore.
func (s *Store) GetTransaction(ctx context.Context, id int64) (*model.BankTransaction, error) {
	row := s.conn.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM bank_transactions t WHERE t.id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("transaction %d", id)
	}
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to get transaction: %w", err))
	}
	return t, nil
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]model.BankTransaction, error) {
	where := []string{"t.tenant_id = ?"}
	args := []interface{}{filter.TenantID}

	if filter.FiscalPeriodID != 0 {
		where = append(where, "t.fiscal_period_id = ?")
		args = append(args, filter.FiscalPeriodID)
	}
	if filter.UnclassifiedOnly {
		where = append(where, "(t.account_code IS NULL OR t.account_code = '')")
	}

	query := `SELECT ` + transactionColumns + ` FROM bank_transactions t
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY t.transaction_date, t.id`

	return queryTransactions(ctx, s.conn.db, query, args...)
}

func queryTransactions(ctx context.Context, q querier, query string, args ...interface{}) ([]model.BankTransaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to list transactions: %w", err))
	}
	defer rows.Close()

	var txns []model.BankTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, model.Persistence(fmt.Errorf("failed to scan transaction: %w", err))
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to list transactions: %w", err))
	}
	return txns, nil
}

// UpdateClassification implements store.TransactionStore.
func (s *Store) UpdateClassification(ctx context.Context, id int64, accountCode string, actor string, at time.Time) error {
	return updateClassification(ctx, s.conn.db, id, accountCode, actor, at)
}

func updateClassification(ctx context.Context, q querier, id int64, accountCode, actor string, at time.Time) error {
	query := `
		UPDATE bank_transactions
		SET account_code = ?, last_updated_by = ?, last_updated_at = ?
		WHERE id = ?
	`
	result, err := q.ExecContext(ctx, query, accountCode, actor, at.UTC(), id)
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to update classification: %w", err))
	}
	return requireRow(result, "transaction", id)
}
