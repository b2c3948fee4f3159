package ics

import (
	"time"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

// Display layouts. Rendering always uses the host zone, never the feed's.
const (
	displayDateTime = "Mon 01/02 3:04 PM"
	displayTime     = "3:04 PM"
	displayDate     = "Mon 01/02"
)

// formatInstance renders one instance for display: timed instances as
// "<start> – <end> <summary>" with the end shortened to a bare time when
// both sides share a calendar date, all-day instances as
// "<date> (All-day) <summary>".
func formatInstance(inst model.Instance, host *time.Location) string {
	start := inst.Start.In(host)
	if inst.AllDay {
		return start.Format(displayDate) + " (All-day) " + inst.Summary
	}

	end := inst.End.In(host)
	endPart := end.Format(displayDateTime)
	if sameDate(start, end) {
		endPart = end.Format(displayTime)
	}
	return start.Format(displayDateTime) + " – " + endPart + " " + inst.Summary
}

// upcomingLines renders the first count eligible instances starting after
// now, optionally suffixed with the location.
func upcomingLines(eligible []model.Instance, now time.Time, count int, showLocation bool, host *time.Location) []string {
	var lines []string
	for _, inst := range eligible {
		if !inst.EffectiveStart.After(now) {
			continue
		}
		line := formatInstance(inst, host)
		if showLocation && inst.Location != "" {
			line += " @ " + inst.Location
		}
		lines = append(lines, line)
		if len(lines) == count {
			break
		}
	}
	return lines
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
