// Package service holds the import workflow: stage a statement in memory,
// let the operator review it, then commit the batch in one transaction.
package service

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/myata/backoffice/internal/classify"
	"github.com/myata/backoffice/internal/database/repository"
	"github.com/myata/backoffice/internal/statement"
)

// Notifier delivers post-commit summaries. Implementations must not block
// the import path on delivery problems.
type Notifier interface {
	BankImportSummary(ctx context.Context, file string, total, categorized, uncategorized int) error
}

// ImportService runs statement imports end to end.
type ImportService struct {
	Transactions *repository.TransactionRepo
	Rules        *repository.RuleRepo
	Categories   *repository.CategoryRepo
	Notifier     Notifier
	Log          zerolog.Logger
	Extract      statement.Options
}

// CommitResult summarizes one committed batch.
type CommitResult struct {
	Committed     int
	Categorized   int
	Uncategorized int
	Hidden        int
	Duplicates    int
}

// fingerprintPurposeLen bounds how much of the purpose text participates in
// the duplicate fingerprint. Banks occasionally truncate or re-wrap long
// purposes between exports; the first 100 characters are stable.
const fingerprintPurposeLen = 100

// Fingerprint derives the duplicate-detection hash of a transaction from
// its stable fields. Two rows with the same date, amount, beneficiary, and
// purpose prefix are the same payment no matter which export they came in.
func Fingerprint(t repository.Transaction) string {
	purpose := strings.Join(strings.Fields(strings.ToLower(t.Purpose)), " ")
	if runes := []rune(purpose); len(runes) > fingerprintPurposeLen {
		purpose = string(runes[:fingerprintPurposeLen])
	}
	key := fmt.Sprintf("%s|%.2f|%s|%s",
		t.Date, t.Amount, strings.ToLower(strings.TrimSpace(t.Beneficiary)), purpose)
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum[:])
}

// Stage extracts, normalizes, and classifies a statement grid into a fresh
// in-memory buffer. Classification happens here, once: the committed rows
// carry exactly what the operator reviewed, even if rules change meanwhile.
// Rows matching a hide rule or an already-imported fingerprint are counted
// and dropped.
func (s *ImportService) Stage(ctx context.Context, grid [][]any, filename string) (*Staging, error) {
	rules, err := s.Rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	raw, fallback := s.Extract.Extract(grid)
	if fallback {
		s.Log.Warn().Str("file", filename).
			Msg("header row not found, using positional fallback")
	}

	st := &Staging{File: filename, BatchID: uuid.NewString()}
	for _, row := range raw {
		t := statement.Normalize(row)
		res := classify.Apply(t, rules)
		if res.Hidden {
			st.Hidden++
			continue
		}
		t.ID = uuid.NewString()
		t.Category = res.Category
		t.Confidence = res.Confidence
		if res.MatchedRule != "" {
			rule := res.MatchedRule
			t.MatchedRule = &rule
		}
		t.TxHash = Fingerprint(t)
		t.ImportFile = filename
		t.ImportBatchID = st.BatchID
		st.Rows = append(st.Rows, t)
	}

	s.dedupe(ctx, st)

	s.Log.Info().Str("file", filename).Str("batch", st.BatchID).
		Int("staged", len(st.Rows)).Int("hidden", st.Hidden).
		Int("duplicates", st.Duplicates).Msg("statement staged")
	return st, nil
}

// dedupe drops staged rows whose fingerprint is already in the database.
// A dedup query failure must not block a month-end import, so it degrades
// to a warning and keeps every row; the operator can prune duplicates in
// review.
func (s *ImportService) dedupe(ctx context.Context, st *Staging) {
	if len(st.Rows) == 0 {
		return
	}
	hashes := make([]string, len(st.Rows))
	for i, t := range st.Rows {
		hashes[i] = t.TxHash
	}
	seen, err := s.Transactions.ExistingHashes(ctx, hashes)
	if err != nil {
		s.Log.Warn().Err(err).Str("file", st.File).
			Msg("duplicate check failed, keeping all rows")
		return
	}
	kept := st.Rows[:0]
	for _, t := range st.Rows {
		if seen[t.TxHash] {
			st.Duplicates++
			continue
		}
		kept = append(kept, t)
	}
	st.Rows = kept
}

// Commit writes the staged batch in a single transaction and, on success,
// fires the summary notification. An empty buffer commits as a no-op.
func (s *ImportService) Commit(ctx context.Context, st *Staging) (CommitResult, error) {
	res := CommitResult{Hidden: st.Hidden, Duplicates: st.Duplicates}
	if len(st.Rows) == 0 {
		st.Clear()
		return res, nil
	}

	if err := s.Transactions.BulkInsert(ctx, st.Rows); err != nil {
		return CommitResult{}, fmt.Errorf("committing batch %s: %w", st.BatchID, err)
	}
	res.Committed = len(st.Rows)
	res.Uncategorized = st.Uncategorized()
	res.Categorized = res.Committed - res.Uncategorized

	s.Log.Info().Str("file", st.File).Str("batch", st.BatchID).
		Int("committed", res.Committed).Int("uncategorized", res.Uncategorized).
		Msg("batch committed")

	if s.Notifier != nil {
		if err := s.Notifier.BankImportSummary(ctx, st.File, res.Committed, res.Categorized, res.Uncategorized); err != nil {
			s.Log.Warn().Err(err).Msg("import notification failed")
		}
	}
	st.Clear()
	return res, nil
}

// OverrideStagedCategory reassigns a staged row to another category after
// checking it against the taxonomy. The row becomes a manual assignment.
func (s *ImportService) OverrideStagedCategory(ctx context.Context, st *Staging, i int, category string) error {
	ok, err := s.Categories.Exists(ctx, category)
	if err != nil {
		return fmt.Errorf("checking category %q: %w", category, err)
	}
	if !ok {
		return fmt.Errorf("unknown category %q", category)
	}
	return st.SetCategory(i, category)
}

// OverrideCategory reassigns a committed transaction to another category.
// The target must exist in the taxonomy; the repository marks the row as a
// manual assignment so re-imports never overwrite it.
func (s *ImportService) OverrideCategory(ctx context.Context, id, category string) error {
	ok, err := s.Categories.Exists(ctx, category)
	if err != nil {
		return fmt.Errorf("checking category %q: %w", category, err)
	}
	if !ok {
		return fmt.Errorf("unknown category %q", category)
	}
	return s.Transactions.UpdateCategory(ctx, id, category)
}
