// Package classify evaluates categorization rules against normalized bank
// transactions. Rules are plain parameters: callers fetch them and pass
// them in, so the engine has no ambient state and is trivially testable.
package classify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/myata/backoffice/internal/database/repository"
)

// Rule vocabulary.
const (
	LogicAnd = "and"
	LogicOr  = "or"

	ActionCategorize = "categorize"
	ActionHide       = "hide"

	FieldBeneficiary = "beneficiary"
	FieldPurpose     = "purpose"
	FieldKNP         = "knp"
	FieldAmount      = "amount"
	FieldIsDebit     = "is_debit"

	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpStartsWith  = "starts_with"
	OpGT          = "gt"
	OpGTE         = "gte"
	OpLT          = "lt"
	OpLTE         = "lte"
	OpBetween     = "between"
)

// Result is the outcome of classifying one transaction.
type Result struct {
	Category    string
	Confidence  string
	MatchedRule string // audit trace, empty when no rule fired
	Hidden      bool
}

// Apply evaluates rules in order and accepts the first one that passes.
// Evaluation order is significant: callers must supply rules in creation
// order. No rule passing is not an error, it is the uncategorized outcome.
func Apply(tx repository.Transaction, rules []repository.Rule) Result {
	for i := range rules {
		rule := &rules[i]
		if !rule.IsActive || len(rule.Conditions) == 0 {
			continue
		}
		if !matches(tx, rule) {
			continue
		}
		if rule.Action == ActionHide {
			return Result{Hidden: true, MatchedRule: Describe(rule)}
		}
		return Result{
			Category:    rule.CategoryCode,
			Confidence:  confidenceFor(tx, rule),
			MatchedRule: Describe(rule),
		}
	}
	return Result{
		Category:   repository.CategoryUncategorized,
		Confidence: repository.ConfidenceLow,
	}
}

// Describe renders a rule as a human-readable audit trace.
func Describe(rule *repository.Rule) string {
	parts := make([]string, 0, len(rule.Conditions))
	for _, c := range rule.Conditions {
		parts = append(parts, fmt.Sprintf("%s %s %q", c.Field, c.Operator, c.Value))
	}
	sep := " and "
	if rule.Logic == LogicOr {
		sep = " or "
	}
	return fmt.Sprintf("%s [%s]", rule.Name, strings.Join(parts, sep))
}

func matches(tx repository.Transaction, rule *repository.Rule) bool {
	if rule.Logic == LogicOr {
		for _, c := range rule.Conditions {
			if evalCondition(tx, c) {
				return true
			}
		}
		return false
	}
	for _, c := range rule.Conditions {
		if !evalCondition(tx, c) {
			return false
		}
	}
	return true
}

// confidenceFor keeps the keyword-era trust ordering: the payment purpose
// is operator-authored text, so a match through it outranks one through a
// counterparty name or any other field.
func confidenceFor(tx repository.Transaction, rule *repository.Rule) string {
	for _, c := range rule.Conditions {
		if c.Field != FieldPurpose {
			continue
		}
		if rule.Logic != LogicOr || evalCondition(tx, c) {
			return repository.ConfidenceHigh
		}
	}
	return repository.ConfidenceMedium
}

// evalCondition is deliberately total: an unknown field or an unparsable
// value evaluates false rather than failing the import. ValidateRule
// rejects such conditions at authoring time.
func evalCondition(tx repository.Transaction, c repository.RuleCondition) bool {
	switch c.Field {
	case FieldBeneficiary:
		return evalString(tx.Beneficiary, c.Operator, c.Value)
	case FieldPurpose:
		return evalString(tx.Purpose, c.Operator, c.Value)
	case FieldKNP:
		return evalString(tx.KNP, c.Operator, c.Value)
	case FieldAmount:
		return evalNumber(tx.Amount, c.Operator, c.Value)
	case FieldIsDebit:
		return evalBool(tx.IsDebit, c.Operator, c.Value)
	}
	return false
}

func evalString(have, op, want string) bool {
	have = strings.ToLower(strings.TrimSpace(have))
	want = strings.ToLower(strings.TrimSpace(want))
	switch op {
	case OpContains:
		return strings.Contains(have, want)
	case OpNotContains:
		return !strings.Contains(have, want)
	case OpEquals:
		return have == want
	case OpNotEquals:
		return have != want
	case OpStartsWith:
		return strings.HasPrefix(have, want)
	}
	return false
}

func evalNumber(have float64, op, raw string) bool {
	if op == OpBetween {
		lo, hi, ok := parseBetween(raw)
		return ok && have >= lo && have <= hi
	}
	want, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return false
	}
	switch op {
	case OpGT:
		return have > want
	case OpGTE:
		return have >= want
	case OpLT:
		return have < want
	case OpLTE:
		return have <= want
	case OpEquals:
		return have == want
	}
	return false
}

func evalBool(have bool, op, raw string) bool {
	if op != OpEquals {
		return false
	}
	want, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return have == want
}

// parseBetween parses an inclusive "min-max" bound pair.
func parseBetween(raw string) (lo, hi float64, ok bool) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	hi, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi, true
}
