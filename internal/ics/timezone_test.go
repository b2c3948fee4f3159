package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupZone(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		want   string
		wantOK bool
	}{
		{name: "IANA identifier", id: "America/New_York", want: "America/New_York", wantOK: true},
		{name: "Windows display name", id: "Eastern Standard Time", want: "America/New_York", wantOK: true},
		{name: "Windows daylight variant", id: "Pacific Daylight Time", want: "America/Los_Angeles", wantOK: true},
		{name: "quoted identifier", id: `"Pacific Standard Time"`, want: "America/Los_Angeles", wantOK: true},
		{name: "tzone scheme takes the last token", id: "tzone://Microsoft/Eastern Standard Time", want: "America/New_York", wantOK: true},
		{name: "tzone utc token", id: "tzone://Microsoft/Utc", want: "UTC", wantOK: true},
		{name: "utc lowercase", id: "utc", want: "UTC", wantOK: true},
		{name: "gmt", id: "GMT", want: "UTC", wantOK: true},
		{name: "bare z", id: "Z", want: "UTC", wantOK: true},
		{name: "unknown name misses", id: "Middle Earth Standard Time", wantOK: false},
		{name: "empty misses", id: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, ok := lookupZone(tt.id)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, loc.String())
			}
		})
	}
}

func TestResolverChain(t *testing.T) {
	host, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	tests := []struct {
		name string
		r    resolver
		prop string
		want string
	}{
		{
			name: "property TZID wins",
			r:    resolver{wrTimezone: "America/Chicago", vtimezoneID: "Asia/Tokyo", hostZone: host},
			prop: "DTSTART;TZID=America/New_York:20260105T100000",
			want: "America/New_York",
		},
		{
			name: "calendar hint when no TZID",
			r:    resolver{wrTimezone: "America/Chicago", vtimezoneID: "Asia/Tokyo", hostZone: host},
			prop: "DTSTART:20260105T100000",
			want: "America/Chicago",
		},
		{
			name: "vtimezone when hint missing",
			r:    resolver{vtimezoneID: "Asia/Tokyo", hostZone: host},
			prop: "DTSTART:20260105T100000",
			want: "Asia/Tokyo",
		},
		{
			name: "host zone as the weakest fallback",
			r:    resolver{hostZone: host},
			prop: "DTSTART:20260105T100000",
			want: "America/Denver",
		},
		{
			name: "alias miss falls through, never a fixed offset",
			r:    resolver{wrTimezone: "Middle Earth Standard Time", vtimezoneID: "Asia/Tokyo", hostZone: host},
			prop: "DTSTART:20260105T100000",
			want: "Asia/Tokyo",
		},
		{
			name: "bad TZID falls back to the calendar chain",
			r:    resolver{wrTimezone: "America/Chicago", hostZone: host},
			prop: "DTSTART;TZID=Nope Zone:20260105T100000",
			want: "America/Chicago",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := parseProperty(tt.prop)
			require.True(t, ok)
			assert.Equal(t, tt.want, tt.r.zoneFor(p).String())
		})
	}
}
