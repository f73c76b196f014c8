package classify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/myata/backoffice/internal/database/repository"
)

var stringOps = map[string]bool{
	OpContains:    true,
	OpNotContains: true,
	OpEquals:      true,
	OpNotEquals:   true,
	OpStartsWith:  true,
}

var numberOps = map[string]bool{
	OpGT:      true,
	OpGTE:     true,
	OpLT:      true,
	OpLTE:     true,
	OpEquals:  true,
	OpBetween: true,
}

// ValidateRule checks a rule before it is saved. The engine tolerates
// malformed conditions at evaluation time, so this is the only gate that
// keeps them out of the database.
func ValidateRule(rule *repository.Rule) error {
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("rule name is required")
	}
	if rule.Logic != LogicAnd && rule.Logic != LogicOr {
		return fmt.Errorf("rule %q: logic must be %q or %q, got %q", rule.Name, LogicAnd, LogicOr, rule.Logic)
	}
	switch rule.Action {
	case ActionCategorize:
		if strings.TrimSpace(rule.CategoryCode) == "" {
			return fmt.Errorf("rule %q: categorize action requires a category", rule.Name)
		}
	case ActionHide:
	default:
		return fmt.Errorf("rule %q: action must be %q or %q, got %q", rule.Name, ActionCategorize, ActionHide, rule.Action)
	}
	if len(rule.Conditions) == 0 {
		return fmt.Errorf("rule %q: at least one condition is required", rule.Name)
	}
	for i, c := range rule.Conditions {
		if err := validateCondition(c); err != nil {
			return fmt.Errorf("rule %q: condition %d: %w", rule.Name, i+1, err)
		}
	}
	return nil
}

func validateCondition(c repository.RuleCondition) error {
	switch c.Field {
	case FieldBeneficiary, FieldPurpose, FieldKNP:
		if !stringOps[c.Operator] {
			return fmt.Errorf("operator %q is not valid for text field %q", c.Operator, c.Field)
		}
		if strings.TrimSpace(c.Value) == "" {
			return fmt.Errorf("value is required")
		}
	case FieldAmount:
		if !numberOps[c.Operator] {
			return fmt.Errorf("operator %q is not valid for field %q", c.Operator, c.Field)
		}
		if c.Operator == OpBetween {
			if _, _, ok := parseBetween(c.Value); !ok {
				return fmt.Errorf("value %q is not a min-max range", c.Value)
			}
		} else if _, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64); err != nil {
			return fmt.Errorf("value %q is not a number", c.Value)
		}
	case FieldIsDebit:
		if c.Operator != OpEquals {
			return fmt.Errorf("operator %q is not valid for field %q", c.Operator, c.Field)
		}
		if _, err := strconv.ParseBool(strings.TrimSpace(c.Value)); err != nil {
			return fmt.Errorf("value %q is not a boolean", c.Value)
		}
	default:
		return fmt.Errorf("unknown field %q", c.Field)
	}
	return nil
}
