package repository

import "time"

// Confidence values record how a category assignment was derived.
const (
	ConfidenceHigh   = "high"   // purpose-based rule match
	ConfidenceMedium = "medium" // any other rule match
	ConfidenceManual = "manual" // operator override, never reclassified
	ConfidenceLow    = "low"    // no rule matched
)

// CategoryUncategorized is the sentinel category for unmatched transactions.
// It is a real taxonomy member so downstream aggregation never drops rows.
const CategoryUncategorized = "uncategorized"

// Category represents one taxonomy entry.
type Category struct {
	Code      string
	Label     string
	Group     string
	PnLLine   *string
	SortOrder int
}

// Transaction represents a bank statement row, normalized.
// Date and the period bounds are ISO date strings; an unparsable source
// date passes through verbatim rather than failing the row.
type Transaction struct {
	ID                 string
	Date               string
	Amount             float64
	IsDebit            bool
	Beneficiary        string
	BIN                string
	BeneficiaryAccount string
	BIK                string
	KNP                string
	Purpose            string
	Category           string
	Confidence         string
	MatchedRule        *string
	PeriodFrom         string
	PeriodTo           string
	TxHash             string
	ImportFile         string
	ImportBatchID      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Rule represents a categorization rule with its ordered conditions.
// Position is the evaluation slot: assigned monotonically at insert,
// stable across edits. Timestamps alone cannot carry the order; sqlite's
// CURRENT_TIMESTAMP has one-second resolution and rules land in batches.
type Rule struct {
	ID           string
	Name         string
	Logic        string // "and" | "or"
	Action       string // "categorize" | "hide"
	CategoryCode string
	IsActive     bool
	Position     int
	CreatedAt    time.Time
	Conditions   []RuleCondition
}

// RuleCondition is one field/operator/value predicate of a rule.
type RuleCondition struct {
	ID       string
	RuleID   string
	Field    string
	Operator string
	Value    string
	Position int
}
