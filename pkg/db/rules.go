package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
)

const ruleColumns = `id, tenant_id, name, match_type, match_value, target_account_code,
	priority, active, description, created_at, updated_at`

func scanRule(row interface{ Scan(...interface{}) error }) (*model.ClassificationRule, error) {
	var r model.ClassificationRule
	var matchType string
	if err := row.Scan(
		&r.ID,
		&r.TenantID,
		&r.Name,
		&matchType,
		&r.MatchValue,
		&r.TargetAccountCode,
		&r.Priority,
		&r.Active,
		&r.Description,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.MatchType = model.MatchType(matchType)
	r.Sequence = r.ID
	return &r, nil
}

// CreateRule implements store.RuleStore.
func (s *Store) CreateRule(ctx context.Context, rule *model.ClassificationRule) error {
	query := `
		INSERT INTO classification_rules
			(tenant_id, name, match_type, match_value, target_account_code, priority, active, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.conn.db.ExecContext(ctx, query,
		rule.TenantID,
		rule.Name,
		string(rule.MatchType),
		rule.MatchValue,
		rule.TargetAccountCode,
		rule.Priority,
		rule.Active,
		rule.Description,
	)
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to create rule: %w", err))
	}

	rule.ID, err = result.LastInsertId()
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to get rule id: %w", err))
	}
	rule.Sequence = rule.ID
	return nil
}

// GetRule implements store.RuleStore.
func (s *Store) GetRule(ctx context.Context, id int64) (*model.ClassificationRule, error) {
	row := s.conn.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM classification_rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("rule %d", id)
	}
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to get rule: %w", err))
	}
	return r, nil
}

// UpdateRule implements store.RuleStore.
func (s *Store) UpdateRule(ctx context.Context, rule *model.ClassificationRule) error {
	query := `
		UPDATE classification_rules SET
			name = ?,
			match_type = ?,
			match_value = ?,
			target_account_code = ?,
			priority = ?,
			active = ?,
			description = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ?
	`
	result, err := s.conn.db.ExecContext(ctx, query,
		rule.Name,
		string(rule.MatchType),
		rule.MatchValue,
		rule.TargetAccountCode,
		rule.Priority,
		rule.Active,
		rule.Description,
		rule.ID,
		rule.TenantID,
	)
	if err != nil {
		return model.Persistence(fmt.Errorf("failed to update rule: %w", err))
	}
	return requireRow(result, "rule", rule.ID)
}

// ListRules implements store.RuleStore.
func (s *Store) ListRules(ctx context.Context, tenantID int64) ([]model.ClassificationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM classification_rules
		WHERE tenant_id = ?
		ORDER BY priority DESC, id`
	return s.queryRules(ctx, query, tenantID)
}

// ListActiveRules implements store.RuleStore.
func (s *Store) ListActiveRules(ctx context.Context, tenantID int64) ([]model.ClassificationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM classification_rules
		WHERE tenant_id = ? AND active = 1
		ORDER BY priority DESC, id`
	return s.queryRules(ctx, query, tenantID)
}

func (s *Store) queryRules(ctx context.Context, query string, args ...interface{}) ([]model.ClassificationRule, error) {
	rows, err := s.conn.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to list rules: %w", err))
	}
	defer rows.Close()

	var rules []model.ClassificationRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, model.Persistence(fmt.Errorf("failed to scan rule: %w", err))
		}
		rules = append(rules, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Persistence(fmt.Errorf("failed to list rules: %w", err))
	}
	return rules, nil
}
