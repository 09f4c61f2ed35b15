package domain

import "time"

// BusinessDayRule selects how a trip start is mapped to a billing date.
type BusinessDayRule string

const (
	// BusinessDayCalendar keys trips by midnight-to-midnight date.
	BusinessDayCalendar BusinessDayRule = "calendar"
	// BusinessDayPlatform keys trips by the 06:00-to-06:00 platform day.
	BusinessDayPlatform BusinessDayRule = "platform"
)

// RoundingPolicy selects how a fractional per-category premium becomes an integer.
type RoundingPolicy string

const (
	RoundingFloor    RoundingPolicy = "floor"
	RoundingCeiling  RoundingPolicy = "ceiling"
	RoundingHalfEven RoundingPolicy = "half_even"
)

// PremiumBasis selects which minutes are billed per coverage category.
type PremiumBasis string

const (
	// PremiumBasisUnion bills the deduplicated (merged) minutes of each category.
	PremiumBasisUnion PremiumBasis = "union"
	// PremiumBasisRaw bills the sum of per-trip ceiling minutes.
	PremiumBasisRaw PremiumBasis = "raw"
)

// MergedInterval is one segment of the union of a group's trips.
type MergedInterval struct {
	EntityID        string
	BusinessDay     string
	Seq             int // 1-based position within the group
	Start           time.Time
	End             time.Time
	DurationMinutes int64
}

// CategoryPremium is the itemized premium of one coverage category in a group.
type CategoryPremium struct {
	Category string
	Minutes  int64
	Rate     float64
	Premium  int64
}

// DailySummaryRow is the billing projection of one (entity, business day) group.
//
// TotalMinutes, OverlapMinutes and SettledMinutes are each rounded up on their
// own, so TotalMinutes == OverlapMinutes+SettledMinutes does not always hold.
type DailySummaryRow struct {
	EntityID       string
	BusinessDay    string
	TotalMinutes   int64
	OverlapMinutes int64
	SettledMinutes int64
	RecordCount    int

	// Running minutes with and without self-insured trips, and the
	// total-minus-union overlap once self-insured trips are left out.
	MinutesIncludingSelfInsured        int64
	MinutesExcludingSelfInsured        int64
	OverlapExcludingSelfInsuredMinutes int64

	// Overlap found between chronologically adjacent trips, attributed to
	// the category of the later trip.
	SelfInsuredOverlapMinutes int64
	StandardOverlapMinutes    int64

	Premium   int64
	Breakdown []CategoryPremium
}

// RowErrorKind classifies a non-fatal, per-row problem.
type RowErrorKind string

const (
	RowErrorParse           RowErrorKind = "parse"
	RowErrorOrdering        RowErrorKind = "ordering"
	RowErrorUnknownCategory RowErrorKind = "unknown_category"
	RowErrorMissingEntity   RowErrorKind = "missing_entity"
)

// RowError is a non-fatal problem found on one input row.
type RowError struct {
	Row     int
	Kind    RowErrorKind
	Field   string
	Value   string
	Message string
}

// Settlement is the complete output of one batch run.
type Settlement struct {
	RunID        string
	Rule         BusinessDayRule
	Rounding     RoundingPolicy
	Basis        PremiumBasis
	Detail       []DetailRow
	Summary      []DailySummaryRow
	Merged       []MergedInterval
	Errors       []RowError
	TotalPremium int64
	PayableCount int
	EntityCount  int
	CreatedAt    time.Time
}
