package repository

import (
	"context"
	"database/sql"
)

// RuleRepo stores categorization rules and their conditions.
type RuleRepo struct {
	db *sql.DB
}

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

// List returns active rules in creation order, conditions attached in
// position order. Evaluation order is a correctness requirement here:
// the classification engine accepts the first rule that passes.
func (r *RuleRepo) List(ctx context.Context) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, name, logic, action, COALESCE(category_code, ''), is_active, position, created_at
	FROM bank_rules WHERE is_active = 1 ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rule
	index := map[string]int{}
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.Name, &rule.Logic, &rule.Action,
			&rule.CategoryCode, &rule.IsActive, &rule.Position, &rule.CreatedAt); err != nil {
			return nil, err
		}
		index[rule.ID] = len(out)
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	condRows, err := r.db.QueryContext(ctx, `
	SELECT c.id, c.rule_id, c.field, c.operator, c.value, c.position
	FROM bank_rule_conditions c
	JOIN bank_rules r ON r.id = c.rule_id
	WHERE r.is_active = 1
	ORDER BY c.rule_id, c.position, c.id`)
	if err != nil {
		return nil, err
	}
	defer condRows.Close()
	for condRows.Next() {
		var c RuleCondition
		if err := condRows.Scan(&c.ID, &c.RuleID, &c.Field, &c.Operator, &c.Value, &c.Position); err != nil {
			return nil, err
		}
		if i, ok := index[c.RuleID]; ok {
			out[i].Conditions = append(out[i].Conditions, c)
		}
	}
	return out, condRows.Err()
}

// Add inserts a rule and its conditions atomically. The rule takes the
// next evaluation slot; ids and timestamps play no part in ordering.
func (r *RuleRepo) Add(ctx context.Context, rule Rule) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	var category interface{}
	if rule.CategoryCode != "" {
		category = rule.CategoryCode
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO bank_rules(id, name, logic, action, category_code, is_active, position, created_at)
	VALUES(?, ?, ?, ?, ?, ?,
	 (SELECT COALESCE(MAX(position) + 1, 0) FROM bank_rules), CURRENT_TIMESTAMP)`,
		rule.ID, rule.Name, rule.Logic, rule.Action, category, rule.IsActive); err != nil {
		_ = tx.Rollback()
		return err
	}
	for i, c := range rule.Conditions {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO bank_rule_conditions(id, rule_id, field, operator, value, position)
		VALUES(?, ?, ?, ?, ?, ?)`,
			c.ID, rule.ID, c.Field, c.Operator, c.Value, i); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Update replaces a rule's fields and conditions, keeping its evaluation
// slot (position and created_at are untouched).
func (r *RuleRepo) Update(ctx context.Context, rule Rule) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	var category interface{}
	if rule.CategoryCode != "" {
		category = rule.CategoryCode
	}
	if _, err := tx.ExecContext(ctx, `
	UPDATE bank_rules SET name = ?, logic = ?, action = ?, category_code = ?, is_active = ? WHERE id = ?`,
		rule.Name, rule.Logic, rule.Action, category, rule.IsActive, rule.ID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bank_rule_conditions WHERE rule_id = ?`, rule.ID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for i, c := range rule.Conditions {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO bank_rule_conditions(id, rule_id, field, operator, value, position)
		VALUES(?, ?, ?, ?, ?, ?)`,
			c.ID, rule.ID, c.Field, c.Operator, c.Value, i); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *RuleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bank_rules WHERE id = ?`, id)
	return err
}
