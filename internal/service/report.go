package service

import (
	"fmt"
	"strings"

	"settlement/internal/domain"
)

// FormatReport formats a settlement run as plain text (for email/print).
func FormatReport(result *domain.Settlement) string {
	var b strings.Builder

	b.WriteString(`
=====================================
       SETTLEMENT REPORT
=====================================
Run ID: ` + result.RunID + `
Date: ` + result.CreatedAt.Format("Jan 02, 2006 3:04 PM") + `
Business day: ` + string(result.Rule) + `
Rounding: ` + string(result.Rounding) + `
Premium basis: ` + string(result.Basis) + `

TOTALS
-------------------------------------
Records:         ` + fmt.Sprintf("%d", len(result.Detail)) + `
Payable records: ` + fmt.Sprintf("%d", result.PayableCount) + `
Drivers:         ` + fmt.Sprintf("%d", result.EntityCount) + `
Daily rows:      ` + fmt.Sprintf("%d", len(result.Summary)) + `
Row errors:      ` + fmt.Sprintf("%d", len(result.Errors)) + `
TOTAL PREMIUM:   ` + formatWon(result.TotalPremium) + `

DAILY SUMMARY
-------------------------------------
`)

	for _, s := range result.Summary {
		fmt.Fprintf(&b, "%s %s  %s  (settled %s, overlap %s)\n",
			s.EntityID, s.BusinessDay, formatWon(s.Premium),
			formatMinutes(s.SettledMinutes), formatMinutes(s.OverlapMinutes))
		for _, c := range s.Breakdown {
			fmt.Fprintf(&b, "    %-10s %s x %.2f = %s\n", c.Category, formatMinutes(c.Minutes), c.Rate, formatWon(c.Premium))
		}
	}

	if len(result.Errors) > 0 {
		b.WriteString(`
ROW ERRORS
-------------------------------------
`)
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "row %d [%s] %s\n", e.Row, e.Kind, e.Message)
		}
	}

	b.WriteString("=====================================\n")
	return b.String()
}

func formatWon(amount int64) string {
	digits := fmt.Sprintf("%d", amount)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	var out []byte
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return sign + string(out) + " KRW"
}

func formatMinutes(m int64) string {
	return fmt.Sprintf("%d min", m)
}
