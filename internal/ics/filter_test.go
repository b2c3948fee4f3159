package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

func eligibleFixture() model.Instance {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	return model.Instance{
		Event: model.Event{
			UID:          "u1",
			Summary:      "Team standup",
			Location:     "Room 4",
			Status:       model.StatusConfirmed,
			Transparency: model.TranspOpaque,
			Start:        start,
			End:          start.Add(30 * time.Minute),
		},
	}
}

func TestIsEligible(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Instance)
		opts   Options
		want   bool
	}{
		{"plain busy event", nil, Options{}, true},
		{
			"cancelled always out",
			func(in *model.Instance) { in.Status = model.StatusCancelled },
			Options{TriggerAllDay: true},
			false,
		},
		{
			"all-day out by default",
			func(in *model.Instance) { in.AllDay = true },
			Options{},
			false,
		},
		{
			"all-day in when enabled",
			func(in *model.Instance) { in.AllDay = true },
			Options{TriggerAllDay: true},
			true,
		},
		{
			"transparent stays without busy-only",
			func(in *model.Instance) { in.Transparency = model.TranspTransparent },
			Options{},
			true,
		},
		{
			"transparent out with busy-only",
			func(in *model.Instance) { in.Transparency = model.TranspTransparent },
			Options{TriggerBusyOnly: true},
			false,
		},
		{
			"tentative stays without exclusion",
			func(in *model.Instance) { in.Status = model.StatusTentative },
			Options{},
			true,
		},
		{
			"tentative out with exclusion",
			func(in *model.Instance) { in.Status = model.StatusTentative },
			Options{ExcludeTentative: true},
			false,
		},
		{
			"declined marker out with exclusion",
			func(in *model.Instance) { in.AttendanceMarkers = []string{"ACCEPTED", "DECLINED"} },
			Options{ExcludeDeclinedIfPresent: true},
			false,
		},
		{
			"declined exclusion ignores marker-free events",
			nil,
			Options{ExcludeDeclinedIfPresent: true},
			true,
		},
		{
			"accepted markers stay with exclusion",
			func(in *model.Instance) { in.AttendanceMarkers = []string{"ACCEPTED"} },
			Options{ExcludeDeclinedIfPresent: true},
			true,
		},
		{
			"include keyword hits summary",
			nil,
			Options{IncludeKeywords: []string{"standup"}},
			true,
		},
		{
			"include keyword hits location",
			nil,
			Options{IncludeKeywords: []string{"room 4"}},
			true,
		},
		{
			"include keyword miss",
			nil,
			Options{IncludeKeywords: []string{"retro"}},
			false,
		},
		{
			"exclude keyword hit",
			nil,
			Options{ExcludeKeywords: []string{"standup"}},
			false,
		},
		{
			"exclude wins over include",
			nil,
			Options{IncludeKeywords: []string{"standup"}, ExcludeKeywords: []string{"room"}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := eligibleFixture()
			if tt.mutate != nil {
				tt.mutate(&inst)
			}
			assert.Equal(t, tt.want, isEligible(inst, tt.opts))
		})
	}
}
