package domain

import "time"

// TripRecord is one raw trip log line as read from the upstream batch.
type TripRecord struct {
	Row        int    // 0-based position in the input batch
	EntityID   string // driver/operator identifier
	RawStart   any    // string, time.Time or spreadsheet serial number
	RawEnd     any
	Coverage   string
	StatusCode string
	Fields     map[string]any // original cells keyed by input header
}

// DetailRow is a TripRecord annotated by a settlement run.
// Exactly one DetailRow is produced per input record, in input order.
type DetailRow struct {
	Record TripRecord

	Start *time.Time // nil when the start timestamp could not be parsed
	End   *time.Time

	CalendarDay    string // YYYY-MM-DD, midnight rollover
	PlatformDay    string // YYYY-MM-DD, 06:00 rollover
	BusinessDay    string // day under the configured rule
	BusinessDayKey string // BusinessDay as YYYYMMDD

	Payable          bool
	StatusLabel      string
	SelfInsured      bool
	DurationMinutes  *int64 // ceiling minutes; nil when not payable or not computable
	OverlapsPrevious bool   // starts before the previous trip of the same group ended
	Rate             float64
	Premium          int64
}

// Computable reports whether the row has a usable, non-inverted interval.
func (r *DetailRow) Computable() bool {
	return r.Start != nil && r.End != nil && !r.End.Before(*r.Start)
}

// Duration returns End-Start, or zero when the row is not computable.
func (r *DetailRow) Duration() time.Duration {
	if !r.Computable() {
		return 0
	}
	return r.End.Sub(*r.Start)
}
