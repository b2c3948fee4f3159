package ics

import (
	"fmt"
	"strings"
	"time"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

// Date-value layouts tried by parseDateValue.
const (
	layoutUTCSeconds   = "20060102T150405Z"
	layoutUTCMinutes   = "20060102T1504Z"
	layoutCivilSeconds = "20060102T150405"
	layoutCivilMinutes = "20060102T1504"
	layoutDateOnly     = "20060102"
)

const defaultTimedDuration = 30 * time.Minute

// buildEvent converts one VEVENT property bag into a normalized Event.
// A nil Event means the block was dropped; the Diagnostic (which may
// accompany a kept Event, e.g. for a defaulted bad DTEND) says why.
func buildEvent(b eventBlock, r resolver) (*model.Event, *model.Diagnostic) {
	uid := strings.TrimSpace(b.value("UID"))
	summary := unescapeText(strings.TrimSpace(b.value("SUMMARY")))

	dtstart, ok := b.prop("DTSTART")
	if !ok || strings.TrimSpace(dtstart.Value) == "" {
		return nil, &model.Diagnostic{UID: uid, Reason: model.DiagMissingStart, Summary: summary}
	}

	startZone := r.zoneFor(dtstart)
	start, allDay, err := parseDateValue(dtstart.Value, startZone)
	if err != nil {
		return nil, &model.Diagnostic{
			UID:     uid,
			Reason:  model.DiagBadStart,
			Summary: summary,
			Value:   strings.TrimSpace(dtstart.Value),
		}
	}

	ev := &model.Event{
		UID:          uid,
		Summary:      summary,
		Location:     unescapeText(strings.TrimSpace(b.value("LOCATION"))),
		Status:       upperOrDefault(b.value("STATUS"), model.StatusConfirmed),
		Transparency: upperOrDefault(b.value("TRANSP"), model.TranspOpaque),
		Start:        start,
		AllDay:       allDay,
		RuleText:     strings.TrimSpace(b.value("RRULE")),
		Zone:         startZone,
	}

	var diag *model.Diagnostic
	if dtend, present := b.prop("DTEND"); present && strings.TrimSpace(dtend.Value) != "" {
		end, _, endErr := parseDateValue(dtend.Value, r.zoneFor(dtend))
		if endErr != nil {
			// A bad DTEND is treated like a missing one; the event
			// survives with the default span.
			ev.End = defaultEnd(start, allDay)
			diag = &model.Diagnostic{
				UID:     uid,
				Reason:  model.DiagBadEnd,
				Summary: summary,
				Value:   strings.TrimSpace(dtend.Value),
			}
		} else {
			ev.End = end
		}
	} else {
		ev.End = defaultEnd(start, allDay)
	}

	if ev.End.Before(ev.Start) {
		return nil, &model.Diagnostic{UID: uid, Reason: model.DiagEndBeforeStart, Summary: summary}
	}

	// RECURRENCE-ID marks an override/cancellation of one occurrence; its
	// own TZID wins, else the DTSTART zone applies.
	if rid, present := b.prop("RECURRENCE-ID"); present && strings.TrimSpace(rid.Value) != "" {
		anchorZone := startZone
		if loc, found := lookupZone(rid.Param("TZID")); found {
			anchorZone = loc
		}
		if t, _, ridErr := parseDateValue(rid.Value, anchorZone); ridErr == nil {
			ev.RecurrenceAnchor = t
		}
	}

	for _, att := range b.attendees {
		marker := strings.ToUpper(strings.TrimSpace(strings.Trim(att.Param("PARTSTAT"), `"`)))
		if marker != "" {
			ev.AttendanceMarkers = append(ev.AttendanceMarkers, marker)
		}
	}

	if ev.UID == "" {
		ev.UID = fmt.Sprintf("event-%d-%s", ev.Start.Unix(), ev.Summary)
	}

	return ev, diag
}

func defaultEnd(start time.Time, allDay bool) time.Time {
	if allDay {
		return start.AddDate(0, 0, 1)
	}
	return start.Add(defaultTimedDuration)
}

// parseDateValue parses one ICS date value. Grammar, tried in order: a
// 'T'-separated value ending in 'Z' is a UTC instant (seconds or minutes
// precision); a value with no 'T' and exactly 8 characters is an all-day
// date at midnight in loc (this is also the all-day detection rule); a
// 'T'-separated value without 'Z' is a civil timestamp in loc.
func parseDateValue(value string, loc *time.Location) (time.Time, bool, error) {
	v := strings.Trim(strings.TrimSpace(value), `"`)
	switch {
	case strings.Contains(v, "T") && strings.HasSuffix(v, "Z"):
		if t, err := time.Parse(layoutUTCSeconds, v); err == nil {
			return t, false, nil
		}
		t, err := time.Parse(layoutUTCMinutes, v)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("utc timestamp %q: %w", v, err)
		}
		return t, false, nil
	case !strings.Contains(v, "T") && len(v) == 8:
		t, err := time.ParseInLocation(layoutDateOnly, v, loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("date %q: %w", v, err)
		}
		return t, true, nil
	case strings.Contains(v, "T"):
		if t, err := time.ParseInLocation(layoutCivilSeconds, v, loc); err == nil {
			return t, false, nil
		}
		t, err := time.ParseInLocation(layoutCivilMinutes, v, loc)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("civil timestamp %q: %w", v, err)
		}
		return t, false, nil
	}
	return time.Time{}, false, fmt.Errorf("unrecognized date value %q", v)
}

// unescapeText reverses ICS text escaping in one left-to-right pass:
// \n and \N become newlines, \\ a backslash, \, a comma, \; a semicolon.
// Unknown escapes are kept verbatim.
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case '\\', ',', ';':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func upperOrDefault(v, def string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}
