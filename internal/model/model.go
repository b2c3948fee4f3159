package model

import "time"

// Status values as they appear on a VEVENT, uppercased.
const (
	StatusConfirmed = "CONFIRMED"
	StatusTentative = "TENTATIVE"
	StatusCancelled = "CANCELLED"
)

// Transparency values; TRANSPARENT events do not block availability.
const (
	TranspOpaque      = "OPAQUE"
	TranspTransparent = "TRANSPARENT"
)

// PartStatDeclined is the attendance marker of a declined invitation.
const PartStatDeclined = "DECLINED"

// Transition reasons reported with the next re-evaluation instant.
const (
	ReasonActiveEnd = "active-end"
	ReasonNextStart = "next-start"
	ReasonNone      = "none"
)

// Event is one normalized calendar event: absolute start/end instants,
// all-day flag, status and transparency, attendance markers, and the raw
// recurrence rule text when the event is a recurring master.
type Event struct {
	UID      string `json:"uid"`
	Summary  string `json:"summary"`
	Location string `json:"location,omitempty"`

	Status       string `json:"status"`
	Transparency string `json:"transparency"`

	// AttendanceMarkers holds each attendee's PARTSTAT value in feed order.
	AttendanceMarkers []string `json:"attendanceMarkers,omitempty"`

	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"allDay"`

	// RuleText is the raw RRULE value; set only on a recurring master.
	RuleText string `json:"ruleText,omitempty"`

	// RecurrenceAnchor marks this event as an override or cancellation of
	// one occurrence of a recurring master, keyed by that occurrence's
	// original instant. Zero on ordinary events and masters.
	RecurrenceAnchor time.Time `json:"-"`

	// Zone is the location DTSTART was interpreted in; recurrence
	// expansion walks days on this zone's calendar.
	Zone *time.Location `json:"-"`
}

// IsAnchored reports whether the event is an override/cancellation record.
func (e Event) IsAnchored() bool { return !e.RecurrenceAnchor.IsZero() }

// Duration is the span between start and end.
func (e Event) Duration() time.Duration { return e.End.Sub(e.Start) }

// Instance is a concrete occurrence of an event within the evaluation
// window: the event plus offset-adjusted effective times and a flag telling
// a recurrence-expanded instance apart from a literally declared one.
type Instance struct {
	Event

	EffectiveStart time.Time `json:"effectiveStart"`
	EffectiveEnd   time.Time `json:"effectiveEnd"`

	Generated bool `json:"generated"`
}

// Diagnostic reasons.
const (
	DiagMissingStart         = "missing-dtstart"
	DiagBadStart             = "unparsable-dtstart"
	DiagBadEnd               = "unparsable-dtend"
	DiagEndBeforeStart       = "end-before-start"
	DiagUnsupportedFrequency = "unsupported-frequency"
)

// Diagnostic records why an event was dropped or kept in degraded form.
// Diagnostics are data in the result, not log output, so one bad event
// never fails the rest of the feed.
type Diagnostic struct {
	UID     string `json:"uid"`
	Reason  string `json:"reason"`
	Summary string `json:"summary,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Result is the complete outcome of one engine evaluation. It is derived
// from scratch on every invocation; the engine holds no state between calls.
type Result struct {
	Active        bool     `json:"active"`
	ActiveSummary string   `json:"activeSummary,omitempty"`
	NextSummary   string   `json:"nextSummary,omitempty"`
	Upcoming      []string `json:"upcoming,omitempty"`

	// CalendarZone is the resolved calendar-level timezone identifier.
	CalendarZone string `json:"calendarZone"`

	// NextTransition is the next instant the signal must be re-evaluated:
	// the governing instance's effective end while active, else the next
	// instance's effective start, else zero with reason "none".
	NextTransition   time.Time `json:"nextTransition"`
	TransitionReason string    `json:"transitionReason"`

	Governing *Instance  `json:"governing,omitempty"`
	Next      *Instance  `json:"next,omitempty"`
	Eligible  []Instance `json:"eligible"`

	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	BlocksParsed      int `json:"blocksParsed"`
	EventsBuilt       int `json:"eventsBuilt"`
	InstancesExpanded int `json:"instancesExpanded"`
}
