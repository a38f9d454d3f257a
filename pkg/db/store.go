package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

const dateLayout = "2006-01-02"

var _ store.Store = (*Store)(nil)

// Store implements the store interfaces on top of a SQLite connection.
type Store struct {
	conn *Connection
}

// NewStore creates a new Store instance.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// CreateTenant implements store.TenantStore.
func (s *Store) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	result, err := s.conn.db.ExecContext(ctx, `INSERT INTO tenants (name) VALUES (?)`, tenant.Name)
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to create tenant: %w", err))
	}
	tenant.ID, err = result.LastInsertId()
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to get tenant id: %w", err))
	}
	return nil
}

// GetTenant implements store.TenantStore.
func (s *Store) GetTenant(ctx context.Context, id int64) (*model.Tenant, error) {
	var t model.Tenant
	err := s.conn.db.QueryRowContext(ctx, `SELECT id, name FROM tenants WHERE id = ?`, id).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("tenant %d", id)
	}
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to get tenant: %w", err))
	}
	return &t, nil
}

// CreateAccount implements store.AccountStore.
func (s *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (tenant_id, code, name, category, active)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.conn.db.ExecContext(ctx, query,
		account.TenantID,
		account.Code,
		account.Name,
		string(account.Category),
		account.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Validationf("account code %q already exists for tenant %d", account.Code, account.TenantID)
		}
		return model.Persistence(fmt.Errorf("failed to create account: %w", err))
	}
	account.ID, err = result.LastInsertId()
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to get account id: %w", err))
	}
	return nil
}

const accountColumns = `id, tenant_id, code, name, category, active`

func scanAccount(row interface{ Scan(...interface{}) error }) (*model.Account, error) {
	var a model.Account
	var category string
	if err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &category, &a.Active); err != nil {
		return nil, err
	}
	a.Category = model.AccountCategory(category)
	return &a, nil
}

// GetAccount implements store.AccountStore.
func (s *Store) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	row := s.conn.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("account %d", id)
	}
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to get account: %w", err))
	}
	return a, nil
}

// UpdateAccount implements store.AccountStore.
func (s *Store) UpdateAccount(ctx context.Context, account *model.Account) error {
	query := `
		UPDATE accounts SET code = ?, name = ?, category = ?, active = ?
		WHERE id = ? AND tenant_id = ?
	`
	result, err := s.conn.db.ExecContext(ctx, query,
		account.Code,
		account.Name,
		string(account.Category),
		account.Active,
		account.ID,
		account.TenantID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Validationf("account code %q already exists for tenant %d", account.Code, account.TenantID)
		}
		return model.Persistence(fmt.Errorf("failed to update account: %w", err))
	}
	return requireRow(result, "account", account.ID)
}

// ListAccounts implements store.AccountStore.
func (s *Store) ListAccounts(ctx context.Context, tenantID int64) ([]model.Account, error) {
	rows, err := s.conn.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE tenant_id = ? ORDER BY code`, tenantID)
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to list accounts: %w", err))
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, model.Persistence(fmt.Errorf("failed to scan account: %w", err))
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to list accounts: %w", err))
	}
	return accounts, nil
}

// FindActiveAccountByCode implements store.AccountStore.
func (s *Store) FindActiveAccountByCode(ctx context.Context, tenantID int64, code string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id = ? AND code = ? AND active = 1`
	a, err := scanAccount(s.conn.db.QueryRowContext(ctx, query, tenantID, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("active account %q for tenant %d", code, tenantID)
	}
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to find account: %w", err))
	}
	return a, nil
}

func requireRow(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if n == 0 {
		return model.NotFoundf("%s %d", what, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
