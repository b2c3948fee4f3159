package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

func TestFormatInstance(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name string
		inst model.Instance
		host *time.Location
		want string
	}{
		{
			name: "same-day end shows only the time",
			inst: model.Instance{Event: model.Event{
				Summary: "Standup",
				Start:   time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
				End:     time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC),
			}},
			host: time.UTC,
			want: "Mon 01/05 9:00 AM – 9:30 AM Standup",
		},
		{
			name: "cross-date end shows the full stamp",
			inst: model.Instance{Event: model.Event{
				Summary: "Launch party",
				Start:   time.Date(2026, 1, 5, 23, 0, 0, 0, time.UTC),
				End:     time.Date(2026, 1, 6, 1, 0, 0, 0, time.UTC),
			}},
			host: time.UTC,
			want: "Mon 01/05 11:00 PM – Tue 01/06 1:00 AM Launch party",
		},
		{
			name: "all-day",
			inst: model.Instance{Event: model.Event{
				Summary: "Focus day",
				Start:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
				End:     time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
				AllDay:  true,
			}},
			host: time.UTC,
			want: "Mon 01/05 (All-day) Focus day",
		},
		{
			name: "rendering follows the host zone",
			inst: model.Instance{Event: model.Event{
				Summary: "Sync",
				Start:   time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC),
				End:     time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC),
			}},
			host: ny,
			want: "Mon 01/05 9:30 AM – 10:00 AM Sync",
		},
		{
			name: "utc instants can land on another host date",
			inst: model.Instance{Event: model.Event{
				Summary: "Late call",
				Start:   time.Date(2026, 1, 6, 2, 0, 0, 0, time.UTC),
				End:     time.Date(2026, 1, 6, 3, 0, 0, 0, time.UTC),
			}},
			host: ny,
			want: "Mon 01/05 9:00 PM – 10:00 PM Late call",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatInstance(tt.inst, tt.host))
		})
	}
}

func TestUpcomingLines(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 5, 0, 0, time.UTC)
	mk := func(summary, location string, h int) model.Instance {
		start := time.Date(2026, 1, 5, h, 0, 0, 0, time.UTC)
		return model.Instance{
			Event: model.Event{
				Summary:  summary,
				Location: location,
				Start:    start,
				End:      start.Add(30 * time.Minute),
			},
			EffectiveStart: start,
			EffectiveEnd:   start.Add(30 * time.Minute),
		}
	}

	eligible := []model.Instance{
		mk("Running now", "", 9),
		mk("Review", "Room 4", 10),
		mk("Lunch", "", 12),
		mk("Retro", "Room 9", 15),
	}

	got := upcomingLines(eligible, now, 2, true, time.UTC)
	assert.Equal(t, []string{
		"Mon 01/05 10:00 AM – 10:30 AM Review @ Room 4",
		"Mon 01/05 12:00 PM – 12:30 PM Lunch",
	}, got, "started instances are skipped and the list caps at count")

	got = upcomingLines(eligible, now, 10, false, time.UTC)
	require.Len(t, got, 3)
	assert.Equal(t, "Mon 01/05 10:00 AM – 10:30 AM Review", got[0], "locations stay off without the toggle")
}
