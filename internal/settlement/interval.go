package settlement

import (
	"sort"
	"time"
)

// Interval is a closed time span. A zero Start or End means the endpoint is unknown.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns End-Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) valid() bool {
	return !iv.Start.IsZero() && !iv.End.IsZero() && !iv.End.Before(iv.Start)
}

// Merge returns the minimal sorted set of pairwise-disjoint intervals covering
// the valid inputs. Intervals with an unknown endpoint or End before Start are
// dropped. Intervals that touch (next.Start == cur.End) are joined.
// A zero-width interval is only kept when it is absorbed by a wider one.
//
// The input slice is not modified.
func Merge(intervals []Interval) []Interval {
	valid := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.valid() {
			valid = append(valid, iv)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.Slice(valid, func(i, j int) bool {
		return valid[i].Start.Before(valid[j].Start)
	})

	var merged []Interval
	cur := valid[0]
	for _, next := range valid[1:] {
		if !next.Start.After(cur.End) {
			if next.End.After(cur.End) {
				cur.End = next.End
			}
			continue
		}
		merged = appendSegment(merged, cur)
		cur = next
	}
	return appendSegment(merged, cur)
}

func appendSegment(merged []Interval, iv Interval) []Interval {
	if iv.Duration() == 0 {
		return merged
	}
	return append(merged, iv)
}

// Union returns the total time covered by intervals, counting overlap once.
func Union(intervals []Interval) time.Duration {
	var total time.Duration
	for _, iv := range Merge(intervals) {
		total += iv.Duration()
	}
	return total
}

// CeilMinutes converts d into whole minutes, rounding any remainder up.
// Non-positive durations yield 0.
func CeilMinutes(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Minute - 1) / time.Minute)
}
