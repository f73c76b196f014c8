package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/myata/backoffice/internal/database/repository"
	"github.com/myata/backoffice/internal/logger"
)

type seedCategory struct {
	code  string
	label string
	group string
	pnl   string // empty = cash-flow only, no P&L line
}

// Category taxonomy of the venue's P&L. Codes are stable identifiers;
// labels and P&L lines are display data.
var seedCategories = []seedCategory{
	{"revenue_kitchen", "Доходы — Кухня", "revenue", "Кухня"},
	{"revenue_bar", "Доходы — Бар", "revenue", "Бар"},
	{"revenue_hookah", "Доходы — Кальян", "revenue", "Кальян"},
	{"revenue_other", "Доходы — Прочее", "revenue", "Прочее"},
	{"cogs_kitchen", "Закуп кухня", "cogs", "Закуп кухня"},
	{"cogs_bar", "Закуп бар", "cogs", "Закуп бар"},
	{"cogs_hookah", "Закуп кальян", "cogs", "Закуп кальян"},
	{"payroll", "ФОТ", "payroll", "ФОТ Прочее"},
	{"payroll_mgmt", "ФОТ Менеджмент", "payroll", "ФОТ Менеджмент"},
	{"payroll_kitchen", "ФОТ Кухня", "payroll", "ФОТ Кухня"},
	{"payroll_bar", "ФОТ Бар", "payroll", "ФОТ Бар"},
	{"payroll_hookah", "ФОТ Кальян", "payroll", "ФОТ Дымный коктейль"},
	{"payroll_hall", "ФОТ Зал", "payroll", "ФОТ Зал"},
	{"marketing_smm", "Маркетинг — СММ", "marketing", "СММ"},
	{"marketing_target", "Маркетинг — Таргет", "marketing", "Таргет"},
	{"marketing_2gis", "Маркетинг — 2ГИС", "marketing", "2ГИС"},
	{"marketing_yandex", "Маркетинг — Яндекс", "marketing", "Яндекс"},
	{"marketing_google", "Маркетинг — Google", "marketing", "Google"},
	{"marketing_other", "Маркетинг — Прочее", "marketing", "Маркетинг прочее"},
	{"rent_main", "Аренда помещения", "rent", "Аренда помещения"},
	{"rent_storage", "Аренда склада/кровли", "rent", "Аренда склада и кровли"},
	{"rent_property_tax", "Налог на недвижимость", "rent", "Налог на недвижимость"},
	{"util_electric", "Электричество", "utilities", "Электричество"},
	{"util_water", "Водоснабжение", "utilities", "Водоснабжение"},
	{"util_heating", "Отопление", "utilities", "Отопление"},
	{"util_internet", "Интернет и связь", "utilities", "Интернет и связь"},
	{"util_trash", "Вывоз мусора", "utilities", "Вывоз мусора"},
	{"util_other", "Ком.услуги прочее", "utilities", "Ком.услуги прочее"},
	{"opex_supplies", "Хозтовары", "opex_other", "Хозтовары"},
	{"opex_bank_fees", "Комиссии банка", "opex_other", "Комиссии банка/эквайринг"},
	{"opex_security", "Система безопасности", "opex_other", "Система безопасности"},
	{"opex_software", "Программное обеспечение", "opex_other", "Программное обеспечение"},
	{"opex_pest", "Дератизация", "opex_other", "Дератизация/дезинсекция"},
	{"opex_grease", "Чистка жироуловителей", "opex_other", "Чистка жироуловителей"},
	{"opex_repair", "Мелкий ремонт", "opex_other", "Мелкий ремонт"},
	{"opex_royalty", "Роялти", "opex_other", "Роялти"},
	{"opex_other", "Прочие OpEx", "opex_other", "Прочее"},
	{"tax_retail", "Розничный налог", "taxes", "Розничный налог"},
	{"tax_payroll", "Налоги по зарплате", "taxes", "Налоги по зарплате"},
	{"tax_alcohol", "Лицензия на алкоголь", "taxes", "Лицензия на алкоголь"},
	{"tax_hookah", "Лицензия на кальян", "taxes", "Лицензия на дымный коктейль"},
	{"tax_other", "Налоги прочее", "taxes", "Налоги прочее"},
	{"capex_repair", "Ремонт (CapEx)", "capex", "Ремонт"},
	{"capex_equipment", "Мебель и техника", "capex", "Мебель и техника"},
	{"capex_other", "CapEx прочее", "capex", "CAPEX прочее"},
	{"dividends", "Дивиденды", "dividends", ""},
	{"internal_transfer", "Внутренний перевод", "internal", ""},
	{repository.CategoryUncategorized, "Не распознано", "uncategorized", ""},
}

type seedRule struct {
	name     string
	field    string
	value    string
	category string
}

// Starter rules: the accountant's vocabulary in the payment purpose, plus
// a few well-known counterparties. One contains-condition each; operators
// beyond contains are for operator-authored rules.
var seedRules = []seedRule{
	{"Закуп кухни", "purpose", "кухня", "cogs_kitchen"},
	{"Закуп бара", "purpose", "бар", "cogs_bar"},
	{"Закуп кальяна", "purpose", "кальян", "cogs_hookah"},
	{"Хозтовары", "purpose", "хозтовар", "opex_supplies"},
	{"Аренда", "purpose", "аренд", "rent_main"},
	{"Отопление", "purpose", "отопление", "util_heating"},
	{"Электричество", "purpose", "электри", "util_electric"},
	{"Водоснабжение", "purpose", "водоснаб", "util_water"},
	{"Вывоз мусора", "purpose", "мусор", "util_trash"},
	{"Дератизация", "purpose", "дератизац", "opex_pest"},
	{"Розничный налог", "purpose", "розничный налог", "tax_retail"},
	{"ИПН", "purpose", "ипн", "tax_payroll"},
	{"Зарплата", "purpose", "зарплат", "payroll"},
	{"Комиссия по картам", "purpose", "операций по картам", "opex_bank_fees"},
	{"Ведение счета", "purpose", "ведение счета", "opex_bank_fees"},
	{"Реклама", "purpose", "реклам", "marketing_other"},
	{"Роялти", "purpose", "роялти", "opex_royalty"},
	{"Дивиденды", "purpose", "дивиденд", "dividends"},
	{"Kaspi Pay", "beneficiary", "kaspi pay", "opex_bank_fees"},
	{"Kaspi Bank", "beneficiary", "kaspi bank", "opex_bank_fees"},
	{"2ГИС", "beneficiary", "2гис", "marketing_2gis"},
	{"Алматы Су", "beneficiary", "алматы су", "util_water"},
	{"Тепловые сети", "beneficiary", "тепловые сети", "util_heating"},
	{"Охрана", "beneficiary", "охран", "opex_security"},
	{"iiko", "beneficiary", "iiko", "opex_software"},
	{"УГД", "beneficiary", "угд", "tax_payroll"},
}

// SeedDefaults ensures the category taxonomy exists and, for a brand-new
// database, installs the starter rule set. It is idempotent and safe to
// run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	catRepo := repository.NewCategoryRepo(db)
	for i, sc := range seedCategories {
		c := repository.Category{Code: sc.code, Label: sc.label, Group: sc.group, SortOrder: i}
		if sc.pnl != "" {
			pnl := sc.pnl
			c.PnLLine = &pnl
		}
		if err := catRepo.Upsert(ctx, c); err != nil {
			return err
		}
	}

	var ruleCount int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bank_rules`).Scan(&ruleCount); err != nil {
		return err
	}
	if ruleCount > 0 {
		return nil
	}

	ruleRepo := repository.NewRuleRepo(db)
	// Seed order is evaluation order: purpose rules land ahead of
	// beneficiary rules, matching the keyword dialect's priority.
	for _, sr := range seedRules {
		id := uuid.NewSHA1(uuid.NameSpaceOID, []byte("rule:"+sr.name)).String()
		rule := repository.Rule{
			ID:           id,
			Name:         sr.name,
			Logic:        "and",
			Action:       "categorize",
			CategoryCode: sr.category,
			IsActive:     true,
			Conditions: []repository.RuleCondition{{
				ID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte("cond:"+sr.name)).String(),
				Field:    sr.field,
				Operator: "contains",
				Value:    sr.value,
			}},
		}
		if err := ruleRepo.Add(ctx, rule); err != nil {
			return err
		}
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("categories", len(seedCategories)).Int("rules", len(seedRules)).
		Msg("seeded default taxonomy and starter rules")
	return nil
}
