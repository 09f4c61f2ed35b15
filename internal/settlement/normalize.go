package settlement

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"settlement/internal/domain"
)

// DefaultZone is the wall-clock zone trips are settled in.
const DefaultZone = "Asia/Seoul"

const (
	dayLayout    = "2006-01-02"
	dayKeyLayout = "20060102"

	// platformDayStartHour is the hour at which a platform business day begins.
	platformDayStartHour = 6
)

// Layouts carrying an explicit offset; the parsed instant is moved to the
// settlement zone before the offset is dropped.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -0700 MST",
}

// Layouts without offset, already in local wall-clock time.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006.01.02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"20060102150405",
	"2006-01-02",
	"20060102",
}

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Normalizer converts heterogeneous timestamps into naive local wall-clock
// times. A naive time carries the wall-clock fields in the time.UTC location
// and never an offset.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer creates a Normalizer for the given IANA zone name.
// An empty name selects DefaultZone.
func NewNormalizer(zone string) (*Normalizer, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", zone, err)
	}
	return &Normalizer{loc: loc}, nil
}

// Normalize parses v as a timestamp for the named field.
//
// A time.Time in the time.UTC location is already naive and passes through
// unchanged, so Normalize is idempotent on its own output. Any other
// time.Time is an instant and is moved to the settlement zone. Strings are
// parsed against the known layouts; numbers are spreadsheet serial days.
func (n *Normalizer) Normalize(field string, v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, &ParseError{Field: field, Value: ""}
		}
		if t.Location() == time.UTC {
			return naive(t), nil
		}
		return naive(t.In(n.loc)), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, &ParseError{Field: field, Value: ""}
		}
		return n.Normalize(field, *t)
	case string:
		return n.parseString(field, t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, &ParseError{Field: field, Value: t.String()}
		}
		return fromSerial(field, f)
	case float64:
		return fromSerial(field, t)
	case float32:
		return fromSerial(field, float64(t))
	case int:
		return fromSerial(field, float64(t))
	case int64:
		return fromSerial(field, float64(t))
	case nil:
		return time.Time{}, &ParseError{Field: field, Value: ""}
	default:
		return time.Time{}, &ParseError{Field: field, Value: fmt.Sprint(v)}
	}
}

func (n *Normalizer) parseString(field, raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, &ParseError{Field: field, Value: raw}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return naive(t.In(n.loc)), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Spreadsheet exports sometimes stringify serial dates.
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 1 {
		return fromSerial(field, f)
	}
	return time.Time{}, &ParseError{Field: field, Value: raw}
}

func fromSerial(field string, days float64) (time.Time, error) {
	if math.IsNaN(days) || math.IsInf(days, 0) || days <= 0 {
		return time.Time{}, &ParseError{Field: field, Value: strconv.FormatFloat(days, 'f', -1, 64)}
	}
	ms := math.Round(days * 24 * 60 * 60 * 1000)
	return excelEpoch.Add(time.Duration(ms) * time.Millisecond), nil
}

func naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// CalendarDay returns the midnight-to-midnight date of t as YYYY-MM-DD.
func CalendarDay(t time.Time) string {
	return t.Format(dayLayout)
}

// PlatformDay returns the 06:00-to-06:00 date of t as YYYY-MM-DD.
// 06:00:00 exactly already belongs to the new day.
func PlatformDay(t time.Time) string {
	if t.Hour() < platformDayStartHour {
		return t.AddDate(0, 0, -1).Format(dayLayout)
	}
	return t.Format(dayLayout)
}

// BusinessDay returns the billing date of t under rule.
func BusinessDay(t time.Time, rule domain.BusinessDayRule) string {
	if rule == domain.BusinessDayPlatform {
		return PlatformDay(t)
	}
	return CalendarDay(t)
}

// DayKey converts a YYYY-MM-DD day into its compact YYYYMMDD form.
func DayKey(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return ""
	}
	return t.Format(dayKeyLayout)
}

// ParseRule converts a configuration value into a BusinessDayRule.
func ParseRule(s string) (domain.BusinessDayRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "calendar", "db":
		return domain.BusinessDayCalendar, nil
	case "platform", "06", "0600":
		return domain.BusinessDayPlatform, nil
	default:
		return "", fmt.Errorf("unknown business day rule %q", s)
	}
}
