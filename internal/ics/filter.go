package ics

import (
	"strings"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

// isEligible is the pure predicate deciding whether an instance may drive
// the switch. Keyword lists arrive pre-split and lowercased; matching is
// case-insensitive substring match against "summary location".
func isEligible(inst model.Instance, opts Options) bool {
	if inst.Status == model.StatusCancelled {
		return false
	}
	if inst.AllDay && !opts.TriggerAllDay {
		return false
	}
	if opts.TriggerBusyOnly && inst.Transparency == model.TranspTransparent {
		return false
	}
	if opts.ExcludeTentative && inst.Status == model.StatusTentative {
		return false
	}
	if opts.ExcludeDeclinedIfPresent && len(inst.AttendanceMarkers) > 0 && hasMarker(inst.AttendanceMarkers, model.PartStatDeclined) {
		return false
	}

	if len(opts.IncludeKeywords) > 0 || len(opts.ExcludeKeywords) > 0 {
		hay := strings.ToLower(inst.Summary + " " + inst.Location)
		if len(opts.IncludeKeywords) > 0 && !anyKeywordMatches(hay, opts.IncludeKeywords) {
			return false
		}
		if anyKeywordMatches(hay, opts.ExcludeKeywords) {
			return false
		}
	}
	return true
}

func hasMarker(markers []string, want string) bool {
	for _, m := range markers {
		if m == want {
			return true
		}
	}
	return false
}

func anyKeywordMatches(hay string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(hay, kw) {
			return true
		}
	}
	return false
}
