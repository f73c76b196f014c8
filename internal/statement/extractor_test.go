package statement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func headerRow() []any {
	return []any{"№", "Дата", "Дебет", "Кредит", "Бенефициар", "Счет", "БИК", "КНП", "Назначение платежа"}
}

func dataRow(date string, debit, credit float64, beneficiary, purpose string) []any {
	return []any{"45", date, debit, credit, beneficiary, "KZ123", "CASPKZKA", "710", purpose}
}

func TestExtractLocatesHeader(t *testing.T) {
	t.Parallel()

	grid := [][]any{
		{"ТОО Мята"},
		{"Выписка по счету", "", ""},
		headerRow(),
		{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, 9.0},
		dataRow("30.01.2026 23:42:00", 15000, 0, "ТОО Поставщик", "Оплата за товары"),
		dataRow("31.01.2026 10:00:00", 0, 98000, "Kaspi Pay", "Выручка"),
		{"", "Итого обороты", 15000.0, 98000.0},
	}

	rows, fallback := DefaultOptions().Extract(grid)
	require.False(t, fallback)
	require.Len(t, rows, 2)
	require.Equal(t, "ТОО Поставщик", rows[0].String(colBeneficiary))
	require.Equal(t, 98000.0, rows[1].Number(colCredit))
}

func TestExtractFallbackWhenHeaderMissing(t *testing.T) {
	t.Parallel()

	grid := make([][]any, 13)
	for i := range grid {
		grid[i] = []any{"metadata"}
	}
	grid[11] = dataRow("01.02.2026", 500, 0, "Kcell", "Связь")
	grid[12] = dataRow("02.02.2026", 0, 0, "пусто", "нет суммы")

	rows, fallback := DefaultOptions().Extract(grid)
	require.True(t, fallback)
	require.Len(t, rows, 1)
	require.Equal(t, "Kcell", rows[0].String(colBeneficiary))
}

func TestExtractSkipsRulerSubtotalsAndZeroRows(t *testing.T) {
	t.Parallel()

	grid := [][]any{
		headerRow(),
		{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0, 8.0, 9.0},
		dataRow("05.01.2026", 1200, 0, "Халык Банк", "Комиссия"),
		{"", "Итого за день", 1200.0, 0.0},
		{"", "05.01.2026", "", "", "строка без сумм"},
		{"", "итого обороты", 1200.0, 0.0},
	}

	rows, fallback := DefaultOptions().Extract(grid)
	require.False(t, fallback)
	require.Len(t, rows, 1)
	require.Equal(t, 1200.0, rows[0].Number(colDebit))
}

func TestExtractEmptyGrid(t *testing.T) {
	t.Parallel()

	rows, fallback := DefaultOptions().Extract(nil)
	require.True(t, fallback)
	require.Empty(t, rows)
}

func TestRawRowAccessors(t *testing.T) {
	t.Parallel()

	row := RawRow{"text", 710.0, nil}
	require.Equal(t, "text", row.String(0))
	require.Equal(t, "710", row.String(1))
	require.Equal(t, "", row.String(2))
	require.Equal(t, "", row.String(9))
	require.Equal(t, 710.0, row.Number(1))
	require.Equal(t, 0.0, row.Number(0))
	require.Equal(t, 0.0, row.Number(-1))
}
