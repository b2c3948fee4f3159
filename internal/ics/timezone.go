package ics

import (
	"strings"
	"time"
)

// windowsToIANA maps common provider display names (Windows/Outlook zone
// names) to IANA zone identifiers. A miss here falls through to the next
// weaker source in the resolution chain; it never produces a fixed-offset
// fallback zone.
var windowsToIANA = map[string]string{
	"Pacific Standard Time":        "America/Los_Angeles",
	"Pacific Daylight Time":        "America/Los_Angeles",
	"Mountain Standard Time":       "America/Denver",
	"Mountain Daylight Time":       "America/Denver",
	"Central Standard Time":        "America/Chicago",
	"Central Daylight Time":        "America/Chicago",
	"Eastern Standard Time":        "America/New_York",
	"Eastern Daylight Time":        "America/New_York",
	"Atlantic Standard Time":       "America/Halifax",
	"Alaskan Standard Time":        "America/Anchorage",
	"Alaskan Daylight Time":        "America/Anchorage",
	"Hawaiian Standard Time":       "Pacific/Honolulu",
	"Hawaii Standard Time":         "Pacific/Honolulu",
	"SA Pacific Standard Time":     "America/Bogota",
	"GMT Standard Time":            "Europe/London",
	"Central Europe Standard Time": "Europe/Paris",
	"China Standard Time":          "Asia/Shanghai",
	"Tokyo Standard Time":          "Asia/Tokyo",
	"India Standard Time":          "Asia/Kolkata",
	"AUS Eastern Standard Time":    "Australia/Sydney",
}

// resolver carries the calendar-level timezone context for one feed.
// Resolution order, first success wins: the property's own TZID parameter,
// the calendar X-WR-TIMEZONE hint, the first VTIMEZONE TZID, and finally
// the host default zone.
type resolver struct {
	wrTimezone  string
	vtimezoneID string
	hostZone    *time.Location
}

// zoneFor resolves the zone for one dated property.
func (r resolver) zoneFor(p property) *time.Location {
	if loc, ok := lookupZone(p.Param("TZID")); ok {
		return loc
	}
	return r.calendarZone()
}

// calendarZone resolves the calendar-level zone without a property TZID.
func (r resolver) calendarZone() *time.Location {
	if loc, ok := lookupZone(r.wrTimezone); ok {
		return loc
	}
	if loc, ok := lookupZone(r.vtimezoneID); ok {
		return loc
	}
	return r.hostZone
}

// lookupZone resolves a single zone identifier: recognized UTC/GMT
// spellings first, then the IANA database, then the provider alias table.
// The boolean is false on a miss so the caller can fall through.
func lookupZone(id string) (*time.Location, bool) {
	id = normalizeZoneID(id)
	if id == "" {
		return nil, false
	}
	if isUTCName(id) {
		return time.UTC, true
	}
	if loc, err := time.LoadLocation(id); err == nil {
		return loc, true
	}
	if alias, ok := windowsToIANA[id]; ok {
		if loc, err := time.LoadLocation(alias); err == nil {
			return loc, true
		}
	}
	return nil, false
}

// normalizeZoneID strips quotes and reduces tzone:// identifiers to their
// last path token, e.g. "tzone://Microsoft/Eastern Standard Time" becomes
// "Eastern Standard Time".
func normalizeZoneID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.Trim(id, `"`)
	if strings.HasPrefix(id, "tzone://") {
		if idx := strings.LastIndex(id, "/"); idx >= 0 {
			id = id[idx+1:]
		}
	}
	return strings.TrimSpace(id)
}

func isUTCName(id string) bool {
	switch strings.ToUpper(id) {
	case "UTC", "GMT", "Z":
		return true
	}
	return false
}
