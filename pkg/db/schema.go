// Package db provides the SQLite-backed stores for tenants, rules, accounts,
// bank transactions, the journal and the Beancount export history.
package db

// Schema defines the SQL statements to create database tables.
// Money columns hold decimal strings so sums are exact.
const Schema = `
CREATE TABLE IF NOT EXISTS tenants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL
);

-- Chart of accounts; codes are unique per tenant
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id INTEGER NOT NULL REFERENCES tenants(id),
    code TEXT NOT NULL,
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    UNIQUE(tenant_id, code)
);

CREATE TABLE IF NOT EXISTS classification_rules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id INTEGER NOT NULL REFERENCES tenants(id),
    name TEXT NOT NULL,
    match_type TEXT NOT NULL,          -- CONTAINS, STARTS_WITH, ENDS_WITH, EQUALS, REGEX
    match_value TEXT NOT NULL,
    target_account_code TEXT NOT NULL,
    priority INTEGER NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_rules_tenant_priority
    ON classification_rules(tenant_id, active, priority DESC, id);

CREATE TABLE IF NOT EXISTS bank_transactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id INTEGER NOT NULL REFERENCES tenants(id),
    fiscal_period_id INTEGER NOT NULL,
    transaction_date TEXT NOT NULL,    -- YYYY-MM-DD
    details TEXT NOT NULL,
    debit_amount TEXT NOT NULL DEFAULT '0',
    credit_amount TEXT NOT NULL DEFAULT '0',
    account_code TEXT,                 -- NULL while unclassified
    last_updated_by TEXT NOT NULL DEFAULT '',
    last_updated_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_bank_transactions_tenant
    ON bank_transactions(tenant_id, account_code);

CREATE TABLE IF NOT EXISTS journal_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tenant_id INTEGER NOT NULL REFERENCES tenants(id),
    fiscal_period_id INTEGER NOT NULL,
    reference TEXT NOT NULL,
    entry_date TEXT NOT NULL,          -- YYYY-MM-DD
    description TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    source_transaction_id INTEGER REFERENCES bank_transactions(id)
);

-- A bank transaction is posted by at most one generated entry
CREATE UNIQUE INDEX IF NOT EXISTS idx_journal_entries_source
    ON journal_entries(source_transaction_id)
    WHERE source_transaction_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS journal_entry_lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id INTEGER NOT NULL REFERENCES journal_entries(id),
    account_id INTEGER NOT NULL REFERENCES accounts(id),
    debit_amount TEXT NOT NULL DEFAULT '0',
    credit_amount TEXT NOT NULL DEFAULT '0',
    description TEXT NOT NULL DEFAULT '',
    source_transaction_id INTEGER REFERENCES bank_transactions(id),
    line_number INTEGER NOT NULL,
    UNIQUE(entry_id, line_number)
);

CREATE INDEX IF NOT EXISTS idx_journal_lines_source
    ON journal_entry_lines(source_transaction_id);

-- Export history table
-- Tracks which journal entries have been written to Beancount files
CREATE TABLE IF NOT EXISTS export_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id INTEGER NOT NULL REFERENCES journal_entries(id),
    entry_date TEXT NOT NULL,          -- YYYY-MM-DD
    beancount_file TEXT NOT NULL,      -- Path to Beancount file
    exported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(entry_id)
);

-- Key-value metadata about exports
CREATE TABLE IF NOT EXISTS export_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.db.Exec(Schema); err != nil {
		return err
	}
	return nil
}
