package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"jobserver/internal/domain"
	"jobserver/internal/infra"
	"jobserver/internal/sqlinline"
)

// RuleRepositoryPG implements domain.RuleRepository on PostgreSQL.
type RuleRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRuleRepository creates a new governance rule repository.
func NewRuleRepository(sql infra.SQLExecutor) *RuleRepositoryPG {
	return &RuleRepositoryPG{sql: sql}
}

// List returns all governance rules ordered by key.
func (r *RuleRepositoryPG) List(ctx context.Context) ([]domain.GovernanceRule, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListRules)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.GovernanceRule
	for rows.Next() {
		var rule domain.GovernanceRule
		var config []byte
		if err := rows.Scan(&rule.Key, &config, &rule.CurrentUsage); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(config, &rule.Config); err != nil {
			return nil, fmt.Errorf("decode rule %s config: %w", rule.Key, err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// IncrementUsage bumps the rule's usage counter by one in a single server-side
// statement and returns the new value.
func (r *RuleRepositoryPG) IncrementUsage(ctx context.Context, ruleKey string) (int, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QIncrementRuleUsage, ruleKey)
	var usage int
	if err := row.Scan(&usage); err != nil {
		if infra.IsNoRows(err) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("increment rule usage: %w", err)
	}
	return usage, nil
}

var _ domain.RuleRepository = (*RuleRepositoryPG)(nil)
