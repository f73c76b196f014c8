package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/myata/backoffice/internal/classify"
	"github.com/myata/backoffice/internal/config"
	"github.com/myata/backoffice/internal/database"
	"github.com/myata/backoffice/internal/database/repository"
	"github.com/myata/backoffice/internal/logger"
	"github.com/myata/backoffice/internal/notify"
	"github.com/myata/backoffice/internal/period"
	"github.com/myata/backoffice/internal/service"
	"github.com/myata/backoffice/internal/statement"
)

const usage = `myata backoffice

Usage:
  backoffice import <statement.xlsx> [-commit] [-period SPEC]
  backoffice transactions [-month YYYY-MM] [-category CODE] [-search TEXT] [-limit N]
  backoffice categorize <transaction-id> <category-code>
  backoffice delete <transaction-id> [<transaction-id>...]
  backoffice rules
  backoffice rules-add -name NAME [-logic and|or] [-action categorize|hide] [-category CODE] -when FIELD:OP:VALUE [-when ...]
  backoffice rules-delete <rule-id>
  backoffice categories
  backoffice reset

Period SPEC for import: prev-month, prev-quarter, YYYY-MM, or YYYY-MM:YYYY-MM.
Without -commit, import stages the statement and prints the review table only.
`

func main() {
	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatal().Err(err).Msg("mkdir db dir")
	}

	if err := database.RunMigrations(cfg.Database.Path, migrationsPath()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	if err := database.SeedDefaults(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("seed defaults")
	}

	a := &app{
		cfg:          cfg,
		db:           db,
		log:          log,
		transactions: repository.NewTransactionRepo(db),
		rules:        repository.NewRuleRepo(db),
		categories:   repository.NewCategoryRepo(db),
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Fatal().Err(err).Msg(os.Args[1])
	}
}

// migrationsPath resolves where the SQL migrations live. Defaults to the
// in-repo path; deployments point MYATA_MIGRATIONS at the installed copy.
func migrationsPath() string {
	if p := os.Getenv("MYATA_MIGRATIONS"); p != "" {
		return p
	}
	return "internal/database/migrations"
}

type app struct {
	cfg          config.Config
	db           *sql.DB
	log          zerolog.Logger
	transactions *repository.TransactionRepo
	rules        *repository.RuleRepo
	categories   *repository.CategoryRepo
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "import":
		return a.runImport(ctx, args)
	case "transactions":
		return a.runTransactions(ctx, args)
	case "categorize":
		return a.runCategorize(ctx, args)
	case "delete":
		return a.runDelete(ctx, args)
	case "rules":
		return a.runRules(ctx)
	case "rules-add":
		return a.runRulesAdd(ctx, args)
	case "rules-delete":
		return a.runRulesDelete(ctx, args)
	case "categories":
		return a.runCategories(ctx)
	case "reset":
		return a.runReset(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) importer() *service.ImportService {
	return &service.ImportService{
		Transactions: a.transactions,
		Rules:        a.rules,
		Categories:   a.categories,
		Notifier:     notify.NewTelegram(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.log),
		Log:          a.log,
		Extract: statement.Options{
			HeaderScanRows:  a.cfg.Import.HeaderScanRows,
			FallbackDataRow: a.cfg.Import.FallbackDataRow,
		},
	}
}

func (a *app) runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	commit := fs.Bool("commit", false, "commit the staged batch")
	periodSpec := fs.String("period", "", "override the accounting period of every staged row")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("import needs exactly one statement file")
	}
	path := fs.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open statement: %w", err)
	}
	defer f.Close()

	grid, err := statement.ReadWorkbook(f)
	if err != nil {
		return err
	}

	imp := a.importer()
	st, err := imp.Stage(ctx, grid, filepath.Base(path))
	if err != nil {
		return err
	}

	if *periodSpec != "" {
		rng, err := parsePeriodSpec(*periodSpec)
		if err != nil {
			return err
		}
		for i := range st.Rows {
			if err := st.SetPeriod(i, rng); err != nil {
				return err
			}
		}
	}

	printStaging(st)

	if !*commit {
		fmt.Println("\nDry run: nothing committed. Re-run with -commit to save.")
		return nil
	}
	res, err := imp.Commit(ctx, st)
	if err != nil {
		return err
	}
	fmt.Printf("\nCommitted %d transactions (%d categorized, %d uncategorized, %d hidden, %d duplicates skipped).\n",
		res.Committed, res.Categorized, res.Uncategorized, res.Hidden, res.Duplicates)
	return nil
}

func parsePeriodSpec(spec string) (period.Range, error) {
	now := time.Now()
	switch spec {
	case "prev-month":
		return period.PreviousMonth(now), nil
	case "prev-quarter":
		return period.PreviousQuarter(now), nil
	}
	parse := func(s string) (int, time.Month, error) {
		parts := strings.SplitN(s, "-", 2)
		if len(parts) != 2 {
			return 0, 0, fmt.Errorf("period %q: want YYYY-MM", s)
		}
		y, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, 0, fmt.Errorf("period %q: bad year", s)
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("period %q: bad month", s)
		}
		return y, time.Month(m), nil
	}
	from, to, found := strings.Cut(spec, ":")
	fy, fm, err := parse(from)
	if err != nil {
		return period.Range{}, err
	}
	if !found {
		return period.Explicit(fy, fm, fy, fm), nil
	}
	ty, tm, err := parse(to)
	if err != nil {
		return period.Range{}, err
	}
	return period.Explicit(fy, fm, ty, tm), nil
}

func printStaging(st *service.Staging) {
	fmt.Printf("Staged %d rows from %s (batch %s); %d hidden, %d duplicates skipped.\n\n",
		len(st.Rows), st.File, st.BatchID, st.Hidden, st.Duplicates)
	st.SortBy(service.SortCategory, true)
	for i, t := range st.Rows {
		dir := "credit"
		if t.IsDebit {
			dir = "debit"
		}
		fmt.Printf("%3d  %s  %12.2f %-6s  %-14s %-6s  %s\n",
			i, t.Date, t.Amount, dir, t.Category, t.Confidence, trimTo(t.Beneficiary, 40))
	}
	if n := st.Uncategorized(); n > 0 {
		fmt.Printf("\n%d rows need a category before reporting makes sense.\n", n)
	}
}

func (a *app) runTransactions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	month := fs.String("month", "", "filter by transaction month, YYYY-MM")
	category := fs.String("category", "", "filter by category code")
	search := fs.String("search", "", "substring match on beneficiary or purpose")
	limit := fs.Int("limit", 100, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	txs, err := a.transactions.List(ctx, repository.TransactionFilters{
		Month:    *month,
		Category: *category,
		Search:   *search,
		Limit:    *limit,
	})
	if err != nil {
		return err
	}
	for _, t := range txs {
		fmt.Printf("%s  %s  %12.2f  %-14s %-6s  %s | %s\n",
			t.ID, t.Date, t.Amount, t.Category, t.Confidence,
			trimTo(t.Beneficiary, 32), trimTo(t.Purpose, 48))
	}
	fmt.Printf("%d transactions\n", len(txs))
	return nil
}

func (a *app) runCategorize(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("categorize needs <transaction-id> <category-code>")
	}
	return a.importer().OverrideCategory(ctx, args[0], args[1])
}

func (a *app) runRules(ctx context.Context) error {
	rules, err := a.rules.List(ctx)
	if err != nil {
		return err
	}
	for _, r := range rules {
		target := r.CategoryCode
		if r.Action == classify.ActionHide {
			target = "(hidden)"
		}
		fmt.Printf("%s  %-10s -> %-14s  %s\n", r.ID, r.Action, target, classify.Describe(&r))
	}
	fmt.Printf("%d active rules\n", len(rules))
	return nil
}

func (a *app) runDelete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("delete needs at least one transaction id")
	}
	if len(args) == 1 {
		return a.transactions.Delete(ctx, args[0])
	}
	return a.transactions.DeleteBatch(ctx, args)
}

// conditionList collects repeated -when flags, FIELD:OP:VALUE each.
type conditionList []repository.RuleCondition

func (c *conditionList) String() string { return fmt.Sprintf("%d conditions", len(*c)) }

func (c *conditionList) Set(s string) error {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return fmt.Errorf("condition %q: want FIELD:OP:VALUE", s)
	}
	*c = append(*c, repository.RuleCondition{
		ID:       uuid.NewString(),
		Field:    parts[0],
		Operator: parts[1],
		Value:    parts[2],
	})
	return nil
}

func (a *app) runRulesAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rules-add", flag.ExitOnError)
	name := fs.String("name", "", "rule name")
	logic := fs.String("logic", classify.LogicAnd, "condition logic: and | or")
	action := fs.String("action", classify.ActionCategorize, "match action: categorize | hide")
	category := fs.String("category", "", "category code assigned on match")
	var conds conditionList
	fs.Var(&conds, "when", "condition, FIELD:OP:VALUE (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rule := repository.Rule{
		ID:           uuid.NewString(),
		Name:         *name,
		Logic:        *logic,
		Action:       *action,
		CategoryCode: *category,
		IsActive:     true,
		Conditions:   conds,
	}
	if err := classify.ValidateRule(&rule); err != nil {
		return err
	}
	if rule.Action == classify.ActionCategorize {
		ok, err := a.categories.Exists(ctx, rule.CategoryCode)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown category %q", rule.CategoryCode)
		}
	}
	if err := a.rules.Add(ctx, rule); err != nil {
		return err
	}
	fmt.Printf("Added rule %s (%s)\n", rule.ID, rule.Name)
	return nil
}

func (a *app) runRulesDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("rules-delete needs <rule-id>")
	}
	return a.rules.Delete(ctx, args[0])
}

func (a *app) runCategories(ctx context.Context) error {
	cats, err := a.categories.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		pnl := ""
		if c.PnLLine != nil {
			pnl = *c.PnLLine
		}
		fmt.Printf("%-24s %-28s %-16s %s\n", c.Code, c.Label, c.Group, pnl)
	}
	return nil
}

func (a *app) runReset(ctx context.Context) error {
	maintenance := &service.MaintenanceService{DB: a.db}
	if err := maintenance.Reset(); err != nil {
		return err
	}
	return database.SeedDefaults(ctx, a.db)
}

func trimTo(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
