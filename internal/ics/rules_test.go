package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRule(t *testing.T) {
	r := parseRule("FREQ=MONTHLY;INTERVAL=2;BYDAY=2MO,-1FR;BYMONTHDAY=1,-1;BYSETPOS=-1;WKST=MO;COUNT=5", time.UTC)

	assert.Equal(t, freqMonthly, r.freq)
	assert.Equal(t, 2, r.interval)
	assert.Equal(t, []weekdayToken{{day: time.Monday, ordinal: 2}, {day: time.Friday, ordinal: -1}}, r.byDay)
	assert.Equal(t, []int{1, -1}, r.byMonthDay)
	assert.Equal(t, []int{-1}, r.bySetPos)
	assert.Equal(t, time.Monday, r.wkst)
	assert.False(t, r.hasUntil, "COUNT is ignored and sets no bound")
}

func TestParseRuleDefaults(t *testing.T) {
	r := parseRule("FREQ=WEEKLY", time.UTC)
	assert.Equal(t, freqWeekly, r.freq)
	assert.Equal(t, 1, r.interval)
	assert.Equal(t, time.Sunday, r.wkst)
	assert.Empty(t, r.byDay)
	assert.False(t, r.hasUntil)
}

func TestParseRuleIntervalFloor(t *testing.T) {
	for _, val := range []string{"0", "-3", "abc", ""} {
		r := parseRule("FREQ=WEEKLY;INTERVAL="+val, time.UTC)
		assert.Equal(t, 1, r.interval, "INTERVAL=%q", val)
	}
}

func TestParseRuleUntil(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	r := parseRule("FREQ=WEEKLY;UNTIL=20260112T100000Z", ny)
	require.True(t, r.hasUntil)
	assert.True(t, r.until.Equal(time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC)))

	// A civil/date UNTIL is read in the event zone.
	r = parseRule("FREQ=WEEKLY;UNTIL=20260112", ny)
	require.True(t, r.hasUntil)
	assert.True(t, r.until.Equal(time.Date(2026, 1, 12, 0, 0, 0, 0, ny)))

	r = parseRule("FREQ=WEEKLY;UNTIL=bogus", ny)
	assert.False(t, r.hasUntil)
}

func TestParseWeekdayToken(t *testing.T) {
	tests := []struct {
		tok    string
		want   weekdayToken
		wantOK bool
	}{
		{"MO", weekdayToken{day: time.Monday}, true},
		{"2mo", weekdayToken{day: time.Monday, ordinal: 2}, true},
		{"-1FR", weekdayToken{day: time.Friday, ordinal: -1}, true},
		{" SU ", weekdayToken{day: time.Sunday}, true},
		{"0MO", weekdayToken{}, false},
		{"XX", weekdayToken{}, false},
		{"M", weekdayToken{}, false},
		{"", weekdayToken{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			got, ok := parseWeekdayToken(tt.tok)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseIntList(t *testing.T) {
	assert.Equal(t, []int{1, -1, 15}, parseIntList("1,-1,15"))
	assert.Equal(t, []int{3}, parseIntList("0,x,3"), "zero and junk entries are skipped")
	assert.Empty(t, parseIntList(""))
}

func TestMatchesWeekdayToken(t *testing.T) {
	// January 2026: the 1st is a Thursday, Mondays fall on 5/12/19/26 and
	// Fridays on 2/9/16/23/30.
	day := func(d int) time.Time { return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name string
		tok  weekdayToken
		day  time.Time
		want bool
	}{
		{"plain weekday match", weekdayToken{day: time.Monday}, day(12), true},
		{"plain weekday miss", weekdayToken{day: time.Monday}, day(13), false},
		{"second monday", weekdayToken{day: time.Monday, ordinal: 2}, day(12), true},
		{"second monday wrong week", weekdayToken{day: time.Monday, ordinal: 2}, day(5), false},
		{"last friday", weekdayToken{day: time.Friday, ordinal: -1}, day(30), true},
		{"last friday wrong week", weekdayToken{day: time.Friday, ordinal: -1}, day(23), false},
		{"second to last friday", weekdayToken{day: time.Friday, ordinal: -2}, day(23), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesWeekdayToken(tt.tok, tt.day))
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, daysInMonth(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 28, daysInMonth(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 29, daysInMonth(time.Date(2028, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, daysInMonth(time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)))
}
