package settlement

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement/internal/domain"
)

func TestNormalize(t *testing.T) {
	n, err := NewNormalizer("")
	require.NoError(t, err)

	want := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	testCases := []struct {
		name string
		in   any
	}{
		{"naive string", "2025-11-01 09:00:00"},
		{"padded string", "  2025-11-01 09:00:00 "},
		{"T separator", "2025-11-01T09:00:00"},
		{"slashes", "2025/11/01 09:00:00"},
		{"dots", "2025.11.01 09:00:00"},
		{"minute precision", "2025-11-01 09:00"},
		{"compact", "20251101090000"},
		{"utc offset string", "2025-11-01T00:00:00Z"},
		{"kst offset string", "2025-11-01 09:00:00+09:00"},
		{"naive time value", time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)},
		{"time value at zero offset", time.Date(2025, 11, 1, 0, 0, 0, 0, time.FixedZone("GMT", 0))},
		{"time value in seoul", time.Date(2025, 11, 1, 9, 0, 0, 0, seoul)},
		{"excel serial", 45962.375},
		{"excel serial as json number", json.Number("45962.375")},
		{"excel serial as string", "45962.375"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := n.Normalize("start", tc.in)
			require.NoError(t, err)
			assert.True(t, want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n, err := NewNormalizer(DefaultZone)
	require.NoError(t, err)

	for _, in := range []any{"2025-11-01 05:59:59", "2025-11-01T05:59:59+09:00", 45962.2499884259} {
		first, err := n.Normalize("start", in)
		require.NoError(t, err)
		second, err := n.Normalize("start", first)
		require.NoError(t, err)

		assert.True(t, first.Equal(second), "%v: %s then %s", in, first, second)
		assert.Equal(t, PlatformDay(first), PlatformDay(second))
	}

	got, err := n.Normalize("start", time.Date(2025, 11, 1, 5, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2025-10-31", PlatformDay(got))
}

func TestNormalize_ParseErrors(t *testing.T) {
	n, err := NewNormalizer(DefaultZone)
	require.NoError(t, err)

	testCases := []struct {
		name string
		in   any
	}{
		{"nil", nil},
		{"empty", ""},
		{"blank", "   "},
		{"garbage", "not a time"},
		{"zero time", time.Time{}},
		{"negative serial", -3.0},
		{"unsupported type", []int{1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.Normalize("end", tc.in)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
			assert.Equal(t, "end", pe.Field)
		})
	}
}

func TestNewNormalizer_UnknownZone(t *testing.T) {
	_, err := NewNormalizer("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestBusinessDay_PlatformBoundary(t *testing.T) {
	testCases := []struct {
		name string
		in   time.Time
		rule domain.BusinessDayRule
		want string
	}{
		{"platform before six", time.Date(2025, 11, 1, 5, 59, 59, 0, time.UTC), domain.BusinessDayPlatform, "2025-10-31"},
		{"platform at six", time.Date(2025, 11, 1, 6, 0, 0, 0, time.UTC), domain.BusinessDayPlatform, "2025-11-01"},
		{"platform midnight", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), domain.BusinessDayPlatform, "2025-10-31"},
		{"platform month rollover", time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC), domain.BusinessDayPlatform, "2025-02-28"},
		{"calendar before six", time.Date(2025, 11, 1, 5, 59, 59, 0, time.UTC), domain.BusinessDayCalendar, "2025-11-01"},
		{"calendar late night", time.Date(2025, 11, 1, 23, 59, 59, 0, time.UTC), domain.BusinessDayCalendar, "2025-11-01"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BusinessDay(tc.in, tc.rule))
		})
	}
}

func TestDayKey(t *testing.T) {
	assert.Equal(t, "20251101", DayKey("2025-11-01"))
	assert.Equal(t, "", DayKey(""))
}

func TestParseRule(t *testing.T) {
	rule, err := ParseRule("")
	require.NoError(t, err)
	assert.Equal(t, domain.BusinessDayCalendar, rule)

	rule, err = ParseRule("Platform")
	require.NoError(t, err)
	assert.Equal(t, domain.BusinessDayPlatform, rule)

	_, err = ParseRule("weekly")
	assert.Error(t, err)
}
