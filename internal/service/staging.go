package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/myata/backoffice/internal/database/repository"
	"github.com/myata/backoffice/internal/period"
)

// Sortable staging columns.
const (
	SortDate        = "date"
	SortBeneficiary = "beneficiary"
	SortPurpose     = "purpose"
	SortAmount      = "amount"
	SortPeriod      = "period"
	SortCategory    = "category"
)

// Staging is an in-memory import buffer. Rows live here between extraction
// and commit so the operator can review, override, and discard without any
// database writes. Nothing persists until Commit.
type Staging struct {
	File       string
	BatchID    string
	Rows       []repository.Transaction
	Hidden     int
	Duplicates int
}

// SetCategory overrides the category of row i. Manual assignments are the
// operator's word over the rules, so confidence is pinned accordingly and
// the rule trace cleared.
func (s *Staging) SetCategory(i int, category string) error {
	if i < 0 || i >= len(s.Rows) {
		return fmt.Errorf("staging row %d out of range", i)
	}
	s.Rows[i].Category = category
	s.Rows[i].Confidence = repository.ConfidenceManual
	s.Rows[i].MatchedRule = nil
	return nil
}

// SetPeriod overrides the accounting period of row i.
func (s *Staging) SetPeriod(i int, rng period.Range) error {
	if i < 0 || i >= len(s.Rows) {
		return fmt.Errorf("staging row %d out of range", i)
	}
	s.Rows[i].PeriodFrom = rng.FromISO()
	s.Rows[i].PeriodTo = rng.ToISO()
	return nil
}

// Remove drops row i from the buffer.
func (s *Staging) Remove(i int) error {
	if i < 0 || i >= len(s.Rows) {
		return fmt.Errorf("staging row %d out of range", i)
	}
	s.Rows = append(s.Rows[:i], s.Rows[i+1:]...)
	return nil
}

// Clear discards all buffered rows. Canceling a staged import is a Clear:
// nothing was persisted, so there is nothing else to undo.
func (s *Staging) Clear() {
	s.Rows = nil
	s.Hidden = 0
	s.Duplicates = 0
}

// Uncategorized counts rows still carrying the sentinel category.
func (s *Staging) Uncategorized() int {
	n := 0
	for _, t := range s.Rows {
		if t.Category == repository.CategoryUncategorized {
			n++
		}
	}
	return n
}

// SortBy reorders the buffer by a column. The sort is stable so ties keep
// statement order. Sorting by category puts uncategorized rows last
// regardless of direction: they are the review backlog.
func (s *Staging) SortBy(column string, asc bool) {
	less := func(a, b repository.Transaction) bool { return a.Date < b.Date }
	switch column {
	case SortDate:
	case SortBeneficiary:
		less = func(a, b repository.Transaction) bool {
			return strings.ToLower(a.Beneficiary) < strings.ToLower(b.Beneficiary)
		}
	case SortPurpose:
		less = func(a, b repository.Transaction) bool {
			return strings.ToLower(a.Purpose) < strings.ToLower(b.Purpose)
		}
	case SortAmount:
		less = func(a, b repository.Transaction) bool { return a.Amount < b.Amount }
	case SortPeriod:
		less = func(a, b repository.Transaction) bool { return a.PeriodFrom < b.PeriodFrom }
	case SortCategory:
		sort.SliceStable(s.Rows, func(i, j int) bool {
			a, b := s.Rows[i], s.Rows[j]
			au := a.Category == repository.CategoryUncategorized
			bu := b.Category == repository.CategoryUncategorized
			if au != bu {
				return bu
			}
			if asc {
				return a.Category < b.Category
			}
			return a.Category > b.Category
		})
		return
	default:
		return
	}
	sort.SliceStable(s.Rows, func(i, j int) bool {
		if asc {
			return less(s.Rows[i], s.Rows[j])
		}
		return less(s.Rows[j], s.Rows[i])
	})
}
