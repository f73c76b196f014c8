package statement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/myata/backoffice/internal/database/repository"
	"github.com/myata/backoffice/internal/period"
)

var (
	dateRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	binRe  = regexp.MustCompile(`ИИН/БИН\s*(\d+)`)
	lineRe = regexp.MustCompile(`[\r\n]+`)
)

// Normalize converts a raw statement row into a canonical transaction.
// It never fails: malformed cells degrade to defaults or passthrough and
// the row stays classifiable, worst case as uncategorized.
func Normalize(row RawRow) repository.Transaction {
	debit := row.Number(colDebit)
	credit := row.Number(colCredit)
	isDebit := debit > 0
	amount := credit
	if isDebit {
		amount = debit
	}

	// Beneficiary cell holds "Name\r\nИИН/БИН 123..." — display name is the
	// first line, tax id is extracted separately.
	rawBeneficiary := row.String(colBeneficiary)
	beneficiary := strings.TrimSpace(lineRe.Split(rawBeneficiary, 2)[0])
	bin := ""
	if m := binRe.FindStringSubmatch(rawBeneficiary); m != nil {
		bin = m[1]
	}

	// "30.01.2026 23:42:00" → "2026-01-30"; anything else passes through.
	rawDate := row.String(colDate)
	date := rawDate
	if m := dateRe.FindStringSubmatch(rawDate); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		date = fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
	}

	t := repository.Transaction{
		Date:               date,
		Amount:             amount,
		IsDebit:            isDebit,
		Beneficiary:        beneficiary,
		BIN:                bin,
		BeneficiaryAccount: row.String(colAccount),
		BIK:                row.String(colBIK),
		KNP:                row.String(colKNP),
		Purpose:            row.String(colPurpose),
		Category:           repository.CategoryUncategorized,
		Confidence:         repository.ConfidenceLow,
	}
	if rng, ok := period.Default(date); ok {
		t.PeriodFrom = rng.FromISO()
		t.PeriodTo = rng.ToISO()
	}
	return t
}
