package domain

// CoverageRate is the per-minute premium of one coverage category.
type CoverageRate struct {
	Category string
	Rate     float64
}

// SettlementStatus describes one upstream settlement status code.
type SettlementStatus struct {
	Code    string
	Label   string
	Payable bool
}

// RatePlan is the pricing and eligibility configuration applied to a run.
type RatePlan struct {
	Rates               []CoverageRate
	Statuses            []SettlementStatus
	SelfInsuredKeywords []string
}

// RateTable returns the rates keyed by category.
func (p *RatePlan) RateTable() map[string]float64 {
	table := make(map[string]float64, len(p.Rates))
	for _, r := range p.Rates {
		table[r.Category] = r.Rate
	}
	return table
}

// PayableCodes returns the accepted status codes.
func (p *RatePlan) PayableCodes() []string {
	var codes []string
	for _, s := range p.Statuses {
		if s.Payable {
			codes = append(codes, s.Code)
		}
	}
	return codes
}
