package settlement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"settlement/internal/domain"
)

// Calculator prices billable minutes per coverage category.
type Calculator struct {
	rates    map[string]decimal.Decimal
	rounding domain.RoundingPolicy
}

// PremiumResult is the priced outcome of one group.
type PremiumResult struct {
	Total     int64
	Breakdown []domain.CategoryPremium // categories with a non-zero premium, sorted by name
	Unknown   []string                 // categories with no configured rate
}

// NewCalculator builds a Calculator over rates. Category names are trimmed.
func NewCalculator(rates map[string]float64, rounding domain.RoundingPolicy) *Calculator {
	c := &Calculator{
		rates:    make(map[string]decimal.Decimal, len(rates)),
		rounding: rounding,
	}
	for category, rate := range rates {
		c.rates[strings.TrimSpace(category)] = decimal.NewFromFloat(rate)
	}
	return c
}

// Rate returns the per-minute rate of category and whether it is configured.
func (c *Calculator) Rate(category string) (float64, bool) {
	rate, ok := c.rates[strings.TrimSpace(category)]
	if !ok {
		return 0, false
	}
	return rate.InexactFloat64(), true
}

// RowPremium prices minutes of a single category. Unknown categories cost 0.
func (c *Calculator) RowPremium(minutes int64, category string) int64 {
	rate, ok := c.rates[strings.TrimSpace(category)]
	if !ok || minutes <= 0 {
		return 0
	}
	return c.round(decimal.NewFromInt(minutes).Mul(rate))
}

// Premium prices every category in minutesByCategory, rounding each category
// on its own before the integers are summed.
func (c *Calculator) Premium(minutesByCategory map[string]int64) PremiumResult {
	categories := make([]string, 0, len(minutesByCategory))
	for category := range minutesByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var res PremiumResult
	for _, category := range categories {
		minutes := minutesByCategory[category]
		rate, ok := c.rates[strings.TrimSpace(category)]
		if !ok {
			res.Unknown = append(res.Unknown, category)
			continue
		}
		premium := c.round(decimal.NewFromInt(minutes).Mul(rate))
		res.Total += premium
		if premium == 0 {
			continue
		}
		res.Breakdown = append(res.Breakdown, domain.CategoryPremium{
			Category: category,
			Minutes:  minutes,
			Rate:     rate.InexactFloat64(),
			Premium:  premium,
		})
	}
	return res
}

func (c *Calculator) round(raw decimal.Decimal) int64 {
	switch c.rounding {
	case domain.RoundingCeiling:
		return raw.Ceil().IntPart()
	case domain.RoundingHalfEven:
		return raw.RoundBank(0).IntPart()
	default:
		return raw.Floor().IntPart()
	}
}

// ParseRounding converts a configuration value into a RoundingPolicy.
func ParseRounding(s string) (domain.RoundingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "floor", "truncate":
		return domain.RoundingFloor, nil
	case "ceil", "ceiling":
		return domain.RoundingCeiling, nil
	case "half_even", "half-even", "bank", "banker":
		return domain.RoundingHalfEven, nil
	default:
		return "", fmt.Errorf("unknown rounding policy %q", s)
	}
}

// ParseBasis converts a configuration value into a PremiumBasis.
func ParseBasis(s string) (domain.PremiumBasis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "union", "settled":
		return domain.PremiumBasisUnion, nil
	case "raw", "total":
		return domain.PremiumBasisRaw, nil
	default:
		return "", fmt.Errorf("unknown premium basis %q", s)
	}
}
