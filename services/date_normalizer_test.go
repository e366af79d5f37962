package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock pins "now" so year inference is deterministic.
func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 12, 0, 0, 0, time.Local)
	}
}

func TestParseOfferingDateFormats(t *testing.T) {
	normalizer := NewDateNormalizerWithClock(fixedClock(2026, time.June, 15))

	tests := []struct {
		name  string
		input string
		want  string // YYYY-MM-DD, "" for nil
	}{
		{"full date with dots", "2026.02.20", "2026-02-20"},
		{"full date with dashes", "2026-02-20", "2026-02-20"},
		{"full date with slashes", "2026/02/20", "2026-02-20"},
		{"two digit year", "26.02.20", "2026-02-20"},
		{"range keeps start", "02.20~02.21", "2027-02-20"},
		{"month before now rolls to next year", "02.20", "2027-02-20"},
		{"month at now stays this year", "06.20", "2026-06-20"},
		{"month after now stays this year", "11.05", "2026-11-05"},
		{"trailing label text", "2026.02.20(목)", "2026-02-20"},
		{"empty", "", ""},
		{"no digits", "미정", ""},
		{"impossible day", "2026.02.30", ""},
		{"impossible month", "2026.13.01", ""},
		{"lone number", "2026", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizer.ParseOfferingDate(tt.input)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestParseOfferingDateRangeCrossingYearEnd(t *testing.T) {
	normalizer := NewDateNormalizerWithClock(fixedClock(2026, time.November, 1))

	start, end := normalizer.ParseOfferingDateRange("12.30~01.02")
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, "2026-12-30", start.Format("2006-01-02"))
	// End month precedes start month, so the range crosses into next year.
	assert.Equal(t, "2027-01-02", end.Format("2006-01-02"))
}

func TestParseOfferingDateRangeSingleDay(t *testing.T) {
	normalizer := NewDateNormalizerWithClock(fixedClock(2026, time.June, 15))

	start, end := normalizer.ParseOfferingDateRange("2026.07.01")
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.True(t, start.Equal(*end))
}

func TestYearInferenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("year-less dates resolve to this year or next, never the past", prop.ForAll(
		func(nowMonth, month, day int) bool {
			normalizer := NewDateNormalizerWithClock(fixedClock(2026, time.Month(nowMonth), 10))
			parsed := normalizer.ParseOfferingDate(fmt.Sprintf("%02d.%02d", month, day))
			if parsed == nil {
				// Day out of range for the month is a legitimate reject.
				return day > 28
			}
			if month < nowMonth {
				return parsed.Year() == 2027
			}
			return parsed.Year() == 2026
		},
		gen.IntRange(1, 12),
		gen.IntRange(1, 12),
		gen.IntRange(1, 28),
	))

	properties.TestingRun(t)
}

func TestRangeStartTokenProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	normalizer := NewDateNormalizerWithClock(fixedClock(2026, time.June, 15))

	properties.Property("full-date range start keeps the first token's month and day", prop.ForAll(
		func(month, day, endMonth, endDay int) bool {
			text := fmt.Sprintf("2026.%02d.%02d~%02d.%02d", month, day, endMonth, endDay)
			start := normalizer.ParseOfferingDate(text)
			if start == nil {
				return false
			}
			return start.Year() == 2026 && int(start.Month()) == month && start.Day() == day
		},
		gen.IntRange(1, 12),
		gen.IntRange(1, 28),
		gen.IntRange(1, 12),
		gen.IntRange(1, 28),
	))

	properties.TestingRun(t)
}

func TestAddBusinessDaysProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	normalizer := NewDateNormalizer()

	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.Local)

	properties.Property("result never lands on a weekend", prop.ForAll(
		func(dayOffset, businessDays int) bool {
			start := base.AddDate(0, 0, dayOffset)
			result := normalizer.AddBusinessDays(start, businessDays)
			wd := result.Weekday()
			return wd != time.Saturday && wd != time.Sunday
		},
		gen.IntRange(0, 365),
		gen.IntRange(1, 30),
	))

	properties.Property("result is strictly after the start", prop.ForAll(
		func(dayOffset, businessDays int) bool {
			start := base.AddDate(0, 0, dayOffset)
			return normalizer.AddBusinessDays(start, businessDays).After(start)
		},
		gen.IntRange(0, 365),
		gen.IntRange(1, 30),
	))

	properties.Property("adding is monotonic in the day count", prop.ForAll(
		func(dayOffset, businessDays int) bool {
			start := base.AddDate(0, 0, dayOffset)
			shorter := normalizer.AddBusinessDays(start, businessDays)
			longer := normalizer.AddBusinessDays(start, businessDays+1)
			return longer.After(shorter)
		},
		gen.IntRange(0, 365),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

func TestAddBusinessDaysSkipsWeekend(t *testing.T) {
	normalizer := NewDateNormalizer()

	// 2026-02-20 is a Friday; two business days later is Tuesday.
	friday := time.Date(2026, time.February, 20, 0, 0, 0, 0, time.Local)
	result := normalizer.AddBusinessDays(friday, 2)
	assert.Equal(t, "2026-02-24", result.Format("2006-01-02"))
	assert.Equal(t, time.Tuesday, result.Weekday())
}

func TestSplitDateRange(t *testing.T) {
	normalizer := NewDateNormalizer()

	start, end, ok := normalizer.SplitDateRange("02.20 ~ 02.21")
	require.True(t, ok)
	assert.Equal(t, "02.20", start)
	assert.Equal(t, "02.21", end)

	start, end, ok = normalizer.SplitDateRange("2026-02-20")
	require.True(t, ok)
	assert.Equal(t, "2026.02.20", start)
	assert.Equal(t, start, end)

	_, _, ok = normalizer.SplitDateRange("상장일 미정")
	assert.False(t, ok)
}
