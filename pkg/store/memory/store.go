// Package memory is an in-memory implementation of the store interfaces, used
// as a test backend. It is safe for concurrent use. Data is lost when the
// process exits; use the SQLite store in pkg/db for persistence.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

var _ store.Store = (*Store)(nil)

// ErrInjected is the default error returned by an injected write failure.
var ErrInjected = errors.New("injected write failure")

// Store holds all records in maps keyed by ID.
type Store struct {
	mu sync.RWMutex

	tenants      map[int64]model.Tenant
	rules        map[int64]model.ClassificationRule
	accounts     map[int64]model.Account
	transactions map[int64]model.BankTransaction
	entries      map[int64]model.JournalEntry
	lines        map[int64]model.JournalEntryLine

	lastID int64

	// failAt makes the n-th write inside the next InTx fail (1-based).
	failAt  int
	failErr error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		tenants:      make(map[int64]model.Tenant),
		rules:        make(map[int64]model.ClassificationRule),
		accounts:     make(map[int64]model.Account),
		transactions: make(map[int64]model.BankTransaction),
		entries:      make(map[int64]model.JournalEntry),
		lines:        make(map[int64]model.JournalEntryLine),
	}
}

// FailWriteAt makes the n-th write of the next ledger unit of work fail with err
// (ErrInjected if err is nil). It is used to exercise rollback.
func (s *Store) FailWriteAt(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	s.failAt = n
	s.failErr = err
}

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

// CreateTenant implements store.TenantStore.
func (s *Store) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant.ID = s.nextID()
	s.tenants[tenant.ID] = *tenant
	return nil
}

// GetTenant implements store.TenantStore.
func (s *Store) GetTenant(ctx context.Context, id int64) (*model.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, model.NotFoundf("tenant %d", id)
	}
	return &t, nil
}

// CreateRule implements store.RuleStore.
func (s *Store) CreateRule(ctx context.Context, rule *model.ClassificationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rule.ID = s.nextID()
	rule.Sequence = rule.ID
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.ID] = *rule
	return nil
}

// GetRule implements store.RuleStore.
func (s *Store) GetRule(ctx context.Context, id int64) (*model.ClassificationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	if !ok {
		return nil, model.NotFoundf("rule %d", id)
	}
	return &r, nil
}

// UpdateRule implements store.RuleStore.
func (s *Store) UpdateRule(ctx context.Context, rule *model.ClassificationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.rules[rule.ID]
	if !ok || existing.TenantID != rule.TenantID {
		return model.NotFoundf("rule %d", rule.ID)
	}
	rule.Sequence = rule.ID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()
	s.rules[rule.ID] = *rule
	return nil
}

// ListRules implements store.RuleStore.
func (s *Store) ListRules(ctx context.Context, tenantID int64) ([]model.ClassificationRule, error) {
	return s.listRules(tenantID, false), nil
}

// ListActiveRules implements store.RuleStore.
func (s *Store) ListActiveRules(ctx context.Context, tenantID int64) ([]model.ClassificationRule, error) {
	return s.listRules(tenantID, true), nil
}

func (s *Store) listRules(tenantID int64, activeOnly bool) []model.ClassificationRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ClassificationRule
	for _, r := range s.rules {
		if r.TenantID != tenantID || (activeOnly && !r.Active) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CreateAccount implements store.AccountStore.
func (s *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.TenantID == account.TenantID && a.Code == account.Code {
			return model.Validationf("account code %q already exists for tenant %d", account.Code, account.TenantID)
		}
	}
	account.ID = s.nextID()
	s.accounts[account.ID] = *account
	return nil
}

// GetAccount implements store.AccountStore.
func (s *Store) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, model.NotFoundf("account %d", id)
	}
	return &a, nil
}

// UpdateAccount implements store.AccountStore.
func (s *Store) UpdateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[account.ID]
	if !ok || existing.TenantID != account.TenantID {
		return model.NotFoundf("account %d", account.ID)
	}
	for id, a := range s.accounts {
		if id != account.ID && a.TenantID == account.TenantID && a.Code == account.Code {
			return model.Validationf("account code %q already exists for tenant %d", account.Code, account.TenantID)
		}
	}
	s.accounts[account.ID] = *account
	return nil
}

// ListAccounts implements store.AccountStore.
func (s *Store) ListAccounts(ctx context.Context, tenantID int64) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Account
	for _, a := range s.accounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// FindActiveAccountByCode implements store.AccountStore.
func (s *Store) FindActiveAccountByCode(ctx context.Context, tenantID int64, code string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.TenantID == tenantID && a.Code == code && a.Active {
			found := a
			return &found, nil
		}
	}
	return nil, model.NotFoundf("active account %q for tenant %d", code, tenantID)
}

// CreateTransaction implements store.TransactionStore.
func (s *Store) CreateTransaction(ctx context.Context, txn *model.BankTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn.ID = s.nextID()
	s.transactions[txn.ID] = copyTransaction(*txn)
	return nil
}

// GetTransaction implements store.TransactionStore.
func (s *Store) GetTransaction(ctx context.Context, id int64) (*model.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return nil, model.NotFoundf("transaction %d", id)
	}
	t = copyTransaction(t)
	return &t, nil
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]model.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.BankTransaction
	for _, t := range s.transactions {
		if t.TenantID != filter.TenantID {
			continue
		}
		if filter.FiscalPeriodID != 0 && t.FiscalPeriodID != filter.FiscalPeriodID {
			continue
		}
		if filter.UnclassifiedOnly && t.IsClassified() {
			continue
		}
		out = append(out, copyTransaction(t))
	}
	sortTransactions(out)
	return out, nil
}

// UpdateClassification implements store.TransactionStore.
func (s *Store) UpdateClassification(ctx context.Context, id int64, accountCode string, actor string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setClassification(s.transactions, id, accountCode, actor, at)
}

func (s *Store) setClassification(txns map[int64]model.BankTransaction, id int64, accountCode, actor string, at time.Time) error {
	t, ok := txns[id]
	if !ok {
		return model.NotFoundf("transaction %d", id)
	}
	code := accountCode
	at = at.UTC()
	t.AccountCode = &code
	t.LastUpdatedBy = actor
	t.LastUpdatedAt = &at
	txns[id] = t
	return nil
}

// GetEntry implements store.LedgerStore.
func (s *Store) GetEntry(ctx context.Context, id int64) (*model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, model.NotFoundf("journal entry %d", id)
	}
	e.Lines = s.linesOf(id)
	return &e, nil
}

// ListEntries implements store.LedgerStore.
func (s *Store) ListEntries(ctx context.Context, tenantID int64) ([]model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.JournalEntry
	for _, e := range s.entries {
		if e.TenantID != tenantID {
			continue
		}
		e.Lines = s.linesOf(e.ID)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) linesOf(entryID int64) []model.JournalEntryLine {
	var out []model.JournalEntryLine
	for _, l := range s.lines {
		if l.EntryID == entryID {
			out = append(out, l)
		}
	}
	sortLines(out)
	return out
}

// LinesBySourceTransaction implements store.LedgerStore.
func (s *Store) LinesBySourceTransaction(ctx context.Context, transactionID int64) ([]model.JournalEntryLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return linesBySource(s.lines, transactionID), nil
}

func linesBySource(lines map[int64]model.JournalEntryLine, transactionID int64) []model.JournalEntryLine {
	var out []model.JournalEntryLine
	for _, l := range lines {
		if l.SourceTransactionID != nil && *l.SourceTransactionID == transactionID {
			out = append(out, l)
		}
	}
	sortLines(out)
	return out
}

// ListClassifiedWithoutLines implements store.LedgerStore.
func (s *Store) ListClassifiedWithoutLines(ctx context.Context, tenantID int64) ([]model.BankTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posted := make(map[int64]bool)
	for _, l := range s.lines {
		if l.SourceTransactionID != nil {
			posted[*l.SourceTransactionID] = true
		}
	}

	var out []model.BankTransaction
	for _, t := range s.transactions {
		if t.TenantID == tenantID && t.IsClassified() && !posted[t.ID] {
			out = append(out, copyTransaction(t))
		}
	}
	sortTransactions(out)
	return out, nil
}

// InTx implements store.LedgerStore. Writes go to copies of the ledger maps
// which replace the originals only when fn succeeds, so each unit of work
// costs a copy of every entry, line and transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx store.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		s:            s,
		entries:      cloneMap(s.entries),
		lines:        cloneMap(s.lines),
		transactions: cloneMap(s.transactions),
		lastID:       s.lastID,
		failAt:       s.failAt,
		failErr:      s.failErr,
	}
	s.failAt = 0

	if err := fn(tx); err != nil {
		return err
	}

	s.entries = tx.entries
	s.lines = tx.lines
	s.transactions = tx.transactions
	s.lastID = tx.lastID
	return nil
}

type memTx struct {
	s            *Store
	entries      map[int64]model.JournalEntry
	lines        map[int64]model.JournalEntryLine
	transactions map[int64]model.BankTransaction
	lastID       int64

	writes  int
	failAt  int
	failErr error
}

func (tx *memTx) write() error {
	tx.writes++
	if tx.failAt > 0 && tx.writes == tx.failAt {
		return tx.failErr
	}
	return nil
}

func (tx *memTx) nextID() int64 {
	tx.lastID++
	return tx.lastID
}

func (tx *memTx) CreateEntry(ctx context.Context, entry *model.JournalEntry) error {
	if err := tx.write(); err != nil {
		return err
	}
	if entry.SourceTransactionID != nil {
		for _, e := range tx.entries {
			if e.SourceTransactionID != nil && *e.SourceTransactionID == *entry.SourceTransactionID {
				return model.ErrAlreadyPosted
			}
		}
	}
	entry.ID = tx.nextID()
	stored := *entry
	stored.Lines = nil
	tx.entries[entry.ID] = stored
	return nil
}

func (tx *memTx) CreateLine(ctx context.Context, line *model.JournalEntryLine) error {
	if err := tx.write(); err != nil {
		return err
	}
	if _, ok := tx.entries[line.EntryID]; !ok {
		return model.NotFoundf("journal entry %d", line.EntryID)
	}
	line.ID = tx.nextID()
	tx.lines[line.ID] = *line
	return nil
}

func (tx *memTx) UpdateLine(ctx context.Context, line *model.JournalEntryLine) error {
	if err := tx.write(); err != nil {
		return err
	}
	if _, ok := tx.lines[line.ID]; !ok {
		return model.NotFoundf("journal line %d", line.ID)
	}
	tx.lines[line.ID] = *line
	return nil
}

func (tx *memTx) LinesBySourceTransaction(ctx context.Context, transactionID int64) ([]model.JournalEntryLine, error) {
	return linesBySource(tx.lines, transactionID), nil
}

func (tx *memTx) UpdateClassification(ctx context.Context, transactionID int64, accountCode string, actor string, at time.Time) error {
	if err := tx.write(); err != nil {
		return err
	}
	return tx.s.setClassification(tx.transactions, transactionID, accountCode, actor, at)
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTransaction(t model.BankTransaction) model.BankTransaction {
	if t.AccountCode != nil {
		code := *t.AccountCode
		t.AccountCode = &code
	}
	if t.LastUpdatedAt != nil {
		at := *t.LastUpdatedAt
		t.LastUpdatedAt = &at
	}
	return t
}

func sortTransactions(ts []model.BankTransaction) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].Date.Equal(ts[j].Date) {
			return ts[i].Date.Before(ts[j].Date)
		}
		return ts[i].ID < ts[j].ID
	})
}

func sortLines(ls []model.JournalEntryLine) {
	sort.Slice(ls, func(i, j int) bool {
		if ls[i].EntryID != ls[j].EntryID {
			return ls[i].EntryID < ls[j].EntryID
		}
		return ls[i].LineNumber < ls[j].LineNumber
	})
}
