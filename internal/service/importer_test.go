package service

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/myata/backoffice/internal/classify"
	"github.com/myata/backoffice/internal/database"
	"github.com/myata/backoffice/internal/database/repository"
	"github.com/myata/backoffice/internal/logger"
	"github.com/myata/backoffice/internal/statement"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	migrations, err := filepath.Abs("../database/migrations")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	catRepo := repository.NewCategoryRepo(db)
	for _, code := range []string{repository.CategoryUncategorized, "cogs_kitchen", "opex_bank_fees", "rent_main"} {
		require.NoError(t, catRepo.Upsert(ctx, repository.Category{Code: code, Label: code, Group: "test"}))
	}
	return db
}

func addRule(t *testing.T, db *sql.DB, id, name, action, category string, conds ...repository.RuleCondition) {
	t.Helper()
	for i := range conds {
		conds[i].ID = id + "-c" + string(rune('a'+i))
	}
	require.NoError(t, repository.NewRuleRepo(db).Add(context.Background(), repository.Rule{
		ID:           id,
		Name:         name,
		Logic:        classify.LogicAnd,
		Action:       action,
		CategoryCode: category,
		IsActive:     true,
		Conditions:   conds,
	}))
}

func newImporter(db *sql.DB) *ImportService {
	return &ImportService{
		Transactions: repository.NewTransactionRepo(db),
		Rules:        repository.NewRuleRepo(db),
		Categories:   repository.NewCategoryRepo(db),
		Log:          zerolog.Nop(),
		Extract:      statement.DefaultOptions(),
	}
}

func statementGrid(rows ...[]any) [][]any {
	grid := [][]any{
		{"ТОО Мята", "", ""},
		{"№", "Дата", "Дебет", "Кредит", "Бенефициар", "Счет", "БИК", "КНП", "Назначение платежа"},
	}
	return append(grid, rows...)
}

func debitRow(date string, amount float64, beneficiary, purpose string) []any {
	return []any{"1", date, amount, 0.0, beneficiary, "KZ123", "CASPKZKA", "710", purpose}
}

type stubNotifier struct {
	file              string
	total, cat, uncat int
	calls             int
}

func (s *stubNotifier) BankImportSummary(_ context.Context, file string, total, categorized, uncategorized int) error {
	s.file, s.total, s.cat, s.uncat = file, total, categorized, uncategorized
	s.calls++
	return nil
}

func TestStageClassifiesRows(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db := newTestDB(t)
	addRule(t, db, "rule-1", "Закуп кухни", classify.ActionCategorize, "cogs_kitchen",
		repository.RuleCondition{Field: classify.FieldPurpose, Operator: classify.OpContains, Value: "кухня"})
	addRule(t, db, "rule-2", "Kaspi fees", classify.ActionCategorize, "opex_bank_fees",
		repository.RuleCondition{Field: classify.FieldBeneficiary, Operator: classify.OpContains, Value: "kaspi"})

	grid := statementGrid(
		debitRow("30.01.2026 10:00:00", 42000, "ТОО Поставщик", "Оплата кухня счет 7"),
		debitRow("30.01.2026 11:00:00", 350, "АО Kaspi Bank", "Комиссия"),
		debitRow("30.01.2026 12:00:00", 9000, "Неизвестный", "Прочее"),
	)

	st, err := newImporter(db).Stage(ctx, grid, "january.xlsx")
	require.NoError(t, err)
	require.Equal(t, "january.xlsx", st.File)
	require.NotEmpty(t, st.BatchID)
	require.Len(t, st.Rows, 3)
	require.Zero(t, st.Hidden)
	require.Zero(t, st.Duplicates)

	require.Equal(t, "cogs_kitchen", st.Rows[0].Category)
	require.Equal(t, repository.ConfidenceHigh, st.Rows[0].Confidence)
	require.NotNil(t, st.Rows[0].MatchedRule)

	require.Equal(t, "opex_bank_fees", st.Rows[1].Category)
	require.Equal(t, repository.ConfidenceMedium, st.Rows[1].Confidence)

	require.Equal(t, repository.CategoryUncategorized, st.Rows[2].Category)
	require.Equal(t, repository.ConfidenceLow, st.Rows[2].Confidence)
	require.Nil(t, st.Rows[2].MatchedRule)
	require.Equal(t, 1, st.Uncategorized())

	seen := map[string]bool{}
	for _, row := range st.Rows {
		require.Len(t, row.TxHash, 64)
		require.False(t, seen[row.TxHash], "fingerprints must be distinct")
		seen[row.TxHash] = true
		require.Equal(t, st.BatchID, row.ImportBatchID)
		require.Equal(t, "january.xlsx", row.ImportFile)
		require.NotEmpty(t, row.ID)
	}
}

func TestStageDropsHiddenRows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	addRule(t, db, "rule-1", "own transfers", classify.ActionHide, "",
		repository.RuleCondition{Field: classify.FieldPurpose, Operator: classify.OpContains, Value: "собственными"})

	grid := statementGrid(
		debitRow("01.02.2026", 500000, "ТОО Мята", "Перевод между собственными счетами"),
		debitRow("01.02.2026", 1000, "Поставщик", "Оплата"),
	)

	st, err := newImporter(db).Stage(ctx, grid, "feb.xlsx")
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)
	require.Equal(t, 1, st.Hidden)
}

func TestStageLogsPositionalFallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	imp := newImporter(db)
	var buf bytes.Buffer
	imp.Log = logger.NewWithWriter(&buf)

	// No header row anywhere: extraction falls back to the configured
	// data start and the import warns so format drift gets noticed.
	grid := make([][]any, 12)
	for i := range grid {
		grid[i] = []any{"metadata"}
	}
	grid[11] = debitRow("05.02.2026", 500, "Kcell", "Связь")

	st, err := imp.Stage(ctx, grid, "headerless.xlsx")
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)
	require.Contains(t, buf.String(), "positional fallback")
	require.Contains(t, buf.String(), "headerless.xlsx")
}

func TestImportIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	imp := newImporter(db)

	grid := statementGrid(
		debitRow("30.01.2026 10:00:00", 42000, "ТОО Поставщик", "Оплата кухня"),
		debitRow("30.01.2026 11:00:00", 350, "АО Kaspi Bank", "Комиссия"),
	)

	st, err := imp.Stage(ctx, grid, "january.xlsx")
	require.NoError(t, err)
	res, err := imp.Commit(ctx, st)
	require.NoError(t, err)
	require.Equal(t, 2, res.Committed)
	require.Empty(t, st.Rows, "commit clears the buffer")

	// Same file again: every row is a known fingerprint.
	st, err = imp.Stage(ctx, grid, "january.xlsx")
	require.NoError(t, err)
	require.Empty(t, st.Rows)
	require.Equal(t, 2, st.Duplicates)

	res, err = imp.Commit(ctx, st)
	require.NoError(t, err)
	require.Zero(t, res.Committed)
	require.Equal(t, 2, res.Duplicates)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bank_transactions").Scan(&count))
	require.Equal(t, 2, count)
}

func TestCommitNotifiesSummary(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	addRule(t, db, "rule-1", "Закуп кухни", classify.ActionCategorize, "cogs_kitchen",
		repository.RuleCondition{Field: classify.FieldPurpose, Operator: classify.OpContains, Value: "кухня"})

	imp := newImporter(db)
	notifier := &stubNotifier{}
	imp.Notifier = notifier

	st, err := imp.Stage(ctx, statementGrid(
		debitRow("05.02.2026", 42000, "ТОО Поставщик", "Оплата кухня"),
		debitRow("05.02.2026", 9000, "Неизвестный", "Прочее"),
	), "feb.xlsx")
	require.NoError(t, err)

	res, err := imp.Commit(ctx, st)
	require.NoError(t, err)
	require.Equal(t, 2, res.Committed)
	require.Equal(t, 1, res.Categorized)
	require.Equal(t, 1, res.Uncategorized)

	require.Equal(t, 1, notifier.calls)
	require.Equal(t, "feb.xlsx", notifier.file)
	require.Equal(t, 2, notifier.total)
	require.Equal(t, 1, notifier.cat)
	require.Equal(t, 1, notifier.uncat)
}

func TestCommitEmptyStagingIsNoOp(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	imp := newImporter(db)
	notifier := &stubNotifier{}
	imp.Notifier = notifier

	res, err := imp.Commit(context.Background(), &Staging{File: "empty.xlsx", Duplicates: 3, Hidden: 1})
	require.NoError(t, err)
	require.Zero(t, res.Committed)
	require.Equal(t, 3, res.Duplicates)
	require.Equal(t, 1, res.Hidden)
	require.Zero(t, notifier.calls)
}

func TestStageKeepsRowsWhenDedupeFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)

	brokenPath := filepath.Join(t.TempDir(), "broken.db")
	broken, err := sql.Open("sqlite3", brokenPath)
	require.NoError(t, err)
	require.NoError(t, broken.Close())

	imp := newImporter(db)
	imp.Transactions = repository.NewTransactionRepo(broken)

	st, err := imp.Stage(ctx, statementGrid(
		debitRow("05.02.2026", 42000, "ТОО Поставщик", "Оплата"),
	), "feb.xlsx")
	require.NoError(t, err)
	require.Len(t, st.Rows, 1)
	require.Zero(t, st.Duplicates)
}

func TestOverrideCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	imp := newImporter(db)

	st, err := imp.Stage(ctx, statementGrid(
		debitRow("05.02.2026", 1200000, "Арендодатель", "платеж"),
	), "feb.xlsx")
	require.NoError(t, err)
	id := st.Rows[0].ID
	_, err = imp.Commit(ctx, st)
	require.NoError(t, err)

	require.Error(t, imp.OverrideCategory(ctx, id, "no_such_category"))

	require.NoError(t, imp.OverrideCategory(ctx, id, "rent_main"))
	got, err := imp.Transactions.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "rent_main", got.Category)
	require.Equal(t, repository.ConfidenceManual, got.Confidence)
}

func TestOverrideStagedCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)
	imp := newImporter(db)

	st, err := imp.Stage(ctx, statementGrid(
		debitRow("05.02.2026", 42000, "ТОО Поставщик", "Оплата"),
	), "feb.xlsx")
	require.NoError(t, err)

	require.Error(t, imp.OverrideStagedCategory(ctx, st, 0, "no_such_category"))
	require.Equal(t, repository.CategoryUncategorized, st.Rows[0].Category)

	require.NoError(t, imp.OverrideStagedCategory(ctx, st, 0, "cogs_kitchen"))
	require.Equal(t, "cogs_kitchen", st.Rows[0].Category)
	require.Equal(t, repository.ConfidenceManual, st.Rows[0].Confidence)
}

func TestFingerprintStability(t *testing.T) {
	t.Parallel()

	base := repository.Transaction{
		Date:        "2026-01-30",
		Amount:      42000,
		Beneficiary: "ТОО Поставщик",
		Purpose:     "Оплата за  товары\nпо счету 12",
	}
	require.Equal(t, Fingerprint(base), Fingerprint(base))

	// Case and whitespace differences do not change the fingerprint.
	variant := base
	variant.Beneficiary = "  тоо поставщик "
	variant.Purpose = "ОПЛАТА ЗА ТОВАРЫ ПО СЧЕТУ 12"
	require.Equal(t, Fingerprint(base), Fingerprint(variant))

	changed := base
	changed.Amount = 42000.01
	require.NotEqual(t, Fingerprint(base), Fingerprint(changed))
}
