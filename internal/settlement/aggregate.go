package settlement

import (
	"sort"
	"strings"
	"time"

	"settlement/internal/domain"
)

// Group is the interval group of one (entity, business day): its payable,
// computable trips sorted by start then end, and the durations derived from
// them. A Group is built once by Aggregate and not modified afterwards.
type Group struct {
	EntityID    string
	BusinessDay string
	Rows        []*domain.DetailRow
	Merged      []Interval

	Total   time.Duration // sum of trip durations, overlap counted repeatedly
	Union   time.Duration // time covered by at least one trip
	Overlap time.Duration // max(0, Total-Union)

	// Total and overlap with self-insured trips left out entirely.
	StandardTotal               time.Duration
	OverlapExcludingSelfInsured time.Duration

	// Adjacency overlap, attributed to the category of the later trip.
	SelfInsuredOverlap time.Duration
	StandardOverlap    time.Duration
}

type groupKey struct {
	entity string
	day    string
}

// Aggregate groups rows by (entity, business day) and derives the overlap
// figures of every group. Only payable rows with a computable interval and an
// entity id take part; a key without such rows yields no group.
//
// Aggregate sets OverlapsPrevious on the participating rows. Groups are
// returned sorted by entity id, then business day.
func Aggregate(rows []*domain.DetailRow) []*Group {
	index := make(map[groupKey]*Group)
	for _, row := range rows {
		if !eligible(row) {
			continue
		}
		key := groupKey{entity: row.Record.EntityID, day: row.BusinessDay}
		g, ok := index[key]
		if !ok {
			g = &Group{EntityID: key.entity, BusinessDay: key.day}
			index[key] = g
		}
		g.Rows = append(g.Rows, row)
	}

	groups := make([]*Group, 0, len(index))
	for _, g := range index {
		g.build()
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].EntityID != groups[j].EntityID {
			return groups[i].EntityID < groups[j].EntityID
		}
		return groups[i].BusinessDay < groups[j].BusinessDay
	})
	return groups
}

func eligible(row *domain.DetailRow) bool {
	return row.Payable && row.Computable() && row.Record.EntityID != "" && row.BusinessDay != ""
}

func (g *Group) build() {
	sort.SliceStable(g.Rows, func(i, j int) bool {
		a, b := g.Rows[i], g.Rows[j]
		if !a.Start.Equal(*b.Start) {
			return a.Start.Before(*b.Start)
		}
		return a.End.Before(*b.End)
	})

	intervals := make([]Interval, 0, len(g.Rows))
	var standard []Interval
	for i, row := range g.Rows {
		g.Total += row.Duration()
		iv := Interval{Start: *row.Start, End: *row.End}
		intervals = append(intervals, iv)
		if !row.SelfInsured {
			g.StandardTotal += row.Duration()
			standard = append(standard, iv)
		}

		if i == 0 {
			continue
		}
		// Only the immediate predecessor is compared, so a trip overlapped by
		// an earlier, non-adjacent trip is not flagged.
		prev := g.Rows[i-1]
		if !prev.End.After(*row.Start) {
			continue
		}
		row.OverlapsPrevious = true
		end := *row.End
		if prev.End.Before(end) {
			end = *prev.End
		}
		if row.SelfInsured {
			g.SelfInsuredOverlap += end.Sub(*row.Start)
		} else {
			g.StandardOverlap += end.Sub(*row.Start)
		}
	}

	g.Merged = Merge(intervals)
	for _, iv := range g.Merged {
		g.Union += iv.Duration()
	}
	g.Overlap = g.Total - g.Union
	if g.Overlap < 0 {
		g.Overlap = 0
	}
	g.OverlapExcludingSelfInsured = g.StandardTotal - Union(standard)
	if g.OverlapExcludingSelfInsured < 0 {
		g.OverlapExcludingSelfInsured = 0
	}
}

// MinutesByCategory returns the billable minutes of each coverage category.
//
// Under PremiumBasisUnion a category is billed for the union of its own trips,
// so a single-category group bills exactly its settled minutes. Under
// PremiumBasisRaw each trip's ceiling minutes are summed.
func (g *Group) MinutesByCategory(basis domain.PremiumBasis) map[string]int64 {
	minutes := make(map[string]int64)
	if basis == domain.PremiumBasisRaw {
		for _, row := range g.Rows {
			minutes[category(row)] += CeilMinutes(row.Duration())
		}
		return minutes
	}

	byCategory := make(map[string][]Interval)
	for _, row := range g.Rows {
		c := category(row)
		byCategory[c] = append(byCategory[c], Interval{Start: *row.Start, End: *row.End})
	}
	for c, intervals := range byCategory {
		minutes[c] = CeilMinutes(Union(intervals))
	}
	return minutes
}

// Summary projects the group into a summary row without premium figures.
func (g *Group) Summary() domain.DailySummaryRow {
	return domain.DailySummaryRow{
		EntityID:                  g.EntityID,
		BusinessDay:               g.BusinessDay,
		TotalMinutes:              CeilMinutes(g.Total),
		OverlapMinutes:            CeilMinutes(g.Overlap),
		SettledMinutes:            CeilMinutes(g.Union),
		RecordCount:               len(g.Rows),

		MinutesIncludingSelfInsured:        CeilMinutes(g.Total),
		MinutesExcludingSelfInsured:        CeilMinutes(g.StandardTotal),
		OverlapExcludingSelfInsuredMinutes: CeilMinutes(g.OverlapExcludingSelfInsured),

		SelfInsuredOverlapMinutes: CeilMinutes(g.SelfInsuredOverlap),
		StandardOverlapMinutes:    CeilMinutes(g.StandardOverlap),
	}
}

// MergedIntervals returns the audit rows of the group's union.
func (g *Group) MergedIntervals() []domain.MergedInterval {
	out := make([]domain.MergedInterval, 0, len(g.Merged))
	for i, iv := range g.Merged {
		out = append(out, domain.MergedInterval{
			EntityID:        g.EntityID,
			BusinessDay:     g.BusinessDay,
			Seq:             i + 1,
			Start:           iv.Start,
			End:             iv.End,
			DurationMinutes: CeilMinutes(iv.Duration()),
		})
	}
	return out
}

func category(row *domain.DetailRow) string {
	return strings.TrimSpace(row.Record.Coverage)
}
