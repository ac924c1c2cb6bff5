package google

import (
	"fmt"
	"strconv"
	"strings"

	"budget/internal/core"
)

// header is written to row 1 of an empty sheet.
var header = []any{
	"Date", "Total", "Income by EOM", "Income received",
	"Expense by EOM", "Expense remaining", "Profit by EOM", "End of month",
}

const lastColumn = "H"

// balanceRow renders a record as a sheet row. Amounts are plain strings
// with two decimals so USER_ENTERED parses them as numbers.
func balanceRow(rec core.EstimatedBalanceRecord) []any {
	e := rec.Estimate
	return []any{
		rec.Date.String(),
		core.FormatAmount(e.PreviousTotal),
		core.FormatAmount(e.IncomeByEndOfMonth),
		core.FormatAmount(e.IncomeReceived),
		core.FormatAmount(e.ExpenseByEndOfMonth),
		core.FormatAmount(e.ExpenseRemaining),
		core.FormatAmount(e.ProfitByEndOfMonth),
		e.EndOfMonthDate.String(),
	}
}

// findDateRow returns the 1-based row whose first cell equals date, or 0.
func findDateRow(values [][]any, date string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == date {
			return i + 1
		}
	}
	return 0
}

// parseDateColumn returns the first-column cells that are dates.
func parseDateColumn(values [][]any) []core.Date {
	var out []core.Date
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		d, err := core.ParseDate(fmt.Sprint(row[0]))
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

// rowRange returns the A:H range of a single row.
func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
