package ics

import (
	"time"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

// overrideKey joins an override/cancellation record to the generated
// occurrence it replaces or removes: the master's UID plus the original
// occurrence instant.
type overrideKey struct {
	uid string
	at  int64 // unix nanoseconds
}

// expandEvents turns built events into concrete instances within the
// inclusive window [winStart, winEnd], in input order.
//
// Anchored records (RECURRENCE-ID) pass through as literal instances,
// except CANCELLED ones, which only delete the matching generated
// occurrence. Masters never appear directly; only their expansions do.
// Everything else passes through literally. A literal instance is kept
// only when it overlaps the window.
func expandEvents(events []model.Event, winStart, winEnd time.Time) ([]model.Instance, []model.Diagnostic) {
	// Index override records by key; the last record per key wins.
	overrides := make(map[overrideKey]int)
	for i, ev := range events {
		if ev.IsAnchored() {
			overrides[overrideKey{ev.UID, ev.RecurrenceAnchor.UnixNano()}] = i
		}
	}

	var out []model.Instance
	var diags []model.Diagnostic

	for i, ev := range events {
		switch {
		case ev.IsAnchored():
			if overrides[overrideKey{ev.UID, ev.RecurrenceAnchor.UnixNano()}] != i {
				continue // superseded by a later record for the same occurrence
			}
			if ev.Status == model.StatusCancelled {
				continue
			}
			if overlapsWindow(ev, winStart, winEnd) {
				out = append(out, literalInstance(ev))
			}
		case ev.RuleText != "":
			inst, diag := expandMaster(ev, overrides, winStart, winEnd)
			out = append(out, inst...)
			if diag != nil {
				diags = append(diags, *diag)
			}
		default:
			if overlapsWindow(ev, winStart, winEnd) {
				out = append(out, literalInstance(ev))
			}
		}
	}

	return out, diags
}

func literalInstance(ev model.Event) model.Instance {
	return model.Instance{Event: ev}
}

func overlapsWindow(ev model.Event, winStart, winEnd time.Time) bool {
	return !ev.End.Before(winStart) && !ev.Start.After(winEnd)
}

// expandMaster walks calendar days across the window on the recurrence
// zone's calendar, at the master's local time-of-day, and emits a
// generated instance for every day the rule matches. Only WEEKLY and
// MONTHLY rules expand; anything else keeps the master as a single
// literal instance with an unsupported-frequency diagnostic.
func expandMaster(ev model.Event, overrides map[overrideKey]int, winStart, winEnd time.Time) ([]model.Instance, *model.Diagnostic) {
	loc := ev.Zone
	if loc == nil {
		loc = time.Local
	}
	r := parseRule(ev.RuleText, loc)

	if r.freq != freqWeekly && r.freq != freqMonthly {
		diag := &model.Diagnostic{
			UID:     ev.UID,
			Reason:  model.DiagUnsupportedFrequency,
			Summary: ev.Summary,
			Value:   ev.RuleText,
		}
		if overlapsWindow(ev, winStart, winEnd) {
			return []model.Instance{literalInstance(ev)}, diag
		}
		return nil, diag
	}

	masterLocal := ev.Start.In(loc)
	masterDate := dateOf(masterLocal)
	hour, minute, sec := masterLocal.Clock()
	dur := ev.Duration()

	byDay := r.byDay
	if r.freq == freqWeekly && len(byDay) == 0 {
		byDay = []weekdayToken{{day: masterLocal.Weekday()}}
	}

	var out []model.Instance

	cursor := dateOf(winStart.In(loc))
	last := dateOf(winEnd.In(loc))

	for ; !cursor.After(last); cursor = cursor.AddDate(0, 0, 1) {
		switch r.freq {
		case freqWeekly:
			if !weekdayInTokens(byDay, cursor.Weekday()) {
				continue
			}
			if w := weeksBetween(masterDate, cursor, r.wkst); w < 0 || w%r.interval != 0 {
				continue
			}
		case freqMonthly:
			if mo := monthsBetween(masterDate, cursor); mo < 0 || mo%r.interval != 0 {
				continue
			}
			if !monthlyDayMatches(r, masterDate, cursor) {
				continue
			}
		}

		y, m, d := cursor.Date()
		candidate := time.Date(y, m, d, hour, minute, sec, 0, loc)

		if candidate.Before(ev.Start) {
			continue
		}
		if r.hasUntil && candidate.After(r.until) {
			continue
		}
		if candidate.Before(winStart) || candidate.After(winEnd) {
			continue
		}

		if _, ok := overrides[overrideKey{ev.UID, candidate.UnixNano()}]; ok {
			// The override record stands in for this occurrence, or a
			// cancellation erased it.
			continue
		}

		inst := literalInstance(ev)
		inst.Start = candidate
		inst.End = candidate.Add(dur)
		inst.RuleText = ""
		inst.Generated = true
		out = append(out, inst)
	}

	return out, nil
}

// dateOf reduces an instant to its calendar date, held at UTC midnight so
// day arithmetic stays exact across DST transitions.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekStart returns the date of the first day of date's week, aligned to
// the rule's week-start weekday.
func weekStart(date time.Time, wkst time.Weekday) time.Time {
	delta := (int(date.Weekday()) - int(wkst) + 7) % 7
	return date.AddDate(0, 0, -delta)
}

func weeksBetween(masterDate, date time.Time, wkst time.Weekday) int {
	return int(weekStart(date, wkst).Sub(weekStart(masterDate, wkst)) / (7 * 24 * time.Hour))
}

func monthsBetween(masterDate, date time.Time) int {
	return (date.Year()-masterDate.Year())*12 + int(date.Month()) - int(masterDate.Month())
}

// monthlyDayMatches applies the MONTHLY day selectors in precedence order:
// BYMONTHDAY, then BYDAY with BYSETPOS, then plain BYDAY tokens, then the
// master's own day-of-month.
func monthlyDayMatches(r rule, masterDate, date time.Time) bool {
	switch {
	case len(r.byMonthDay) > 0:
		last := daysInMonth(date)
		for _, n := range r.byMonthDay {
			day := n
			if n < 0 {
				day = last + 1 + n
			}
			if date.Day() == day {
				return true
			}
		}
		return false
	case len(r.byDay) > 0 && len(r.bySetPos) > 0:
		return setPosMatches(r.byDay, r.bySetPos, date)
	case len(r.byDay) > 0:
		return anyTokenMatchesDay(r.byDay, date)
	default:
		return date.Day() == masterDate.Day()
	}
}

// setPosMatches builds the ordered pool of days in date's month whose
// weekday is in the BYDAY set (ordinal prefixes ignored) and reports
// whether date sits at one of the BYSETPOS positions, negatives counting
// from the pool's end.
func setPosMatches(tokens []weekdayToken, setPos []int, date time.Time) bool {
	last := daysInMonth(date)
	pool := make([]int, 0, last)
	for d := 1; d <= last; d++ {
		wd := time.Date(date.Year(), date.Month(), d, 0, 0, 0, 0, time.UTC).Weekday()
		if weekdayInTokens(tokens, wd) {
			pool = append(pool, d)
		}
	}
	for _, pos := range setPos {
		idx := pos - 1
		if pos < 0 {
			idx = len(pool) + pos
		}
		if idx >= 0 && idx < len(pool) && pool[idx] == date.Day() {
			return true
		}
	}
	return false
}
