package ics

import (
	"sort"
	"strings"
	"time"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

// Option floors and defaults.
const (
	defaultMaxEvents     = 50
	defaultNextListCount = 5
	maxHorizonDays       = 366
)

// Options is the engine configuration snapshot for one evaluation.
type Options struct {
	// IncludePastHours and HorizonDays bound the evaluation window around
	// the current instant.
	IncludePastHours int
	HorizonDays      int

	// MaxEvents caps the eligible set after ordering.
	MaxEvents int

	TriggerAllDay            bool
	TriggerBusyOnly          bool
	ExcludeTentative         bool
	ExcludeDeclinedIfPresent bool

	// Keyword lists, pre-split and lowercased by the configuration layer.
	IncludeKeywords []string
	ExcludeKeywords []string

	// StartOffset and EndOffset shift raw times into effective times.
	StartOffset time.Duration
	EndOffset   time.Duration

	NextListCount        int
	NextListShowLocation bool

	// HostZone is the display zone and the weakest timezone-resolution
	// fallback. nil means time.Local.
	HostZone *time.Location
}

func (o Options) normalized() Options {
	if o.IncludePastHours < 0 {
		o.IncludePastHours = 0
	}
	if o.HorizonDays < 1 {
		o.HorizonDays = 1
	}
	if o.HorizonDays > maxHorizonDays {
		o.HorizonDays = maxHorizonDays
	}
	if o.MaxEvents <= 0 {
		o.MaxEvents = defaultMaxEvents
	}
	if o.NextListCount <= 0 {
		o.NextListCount = defaultNextListCount
	}
	if o.HostZone == nil {
		o.HostZone = time.Local
	}
	return o
}

// Evaluate runs the whole pipeline once: parse the feed, build events,
// expand recurrences across the window, filter, and resolve the
// active/next state at now. It is a pure function of its arguments;
// identical inputs produce identical results.
func Evaluate(feed string, opts Options, now time.Time) (*model.Result, error) {
	opts = opts.normalized()

	if !strings.Contains(feed, "BEGIN:VCALENDAR") || !strings.Contains(feed, "BEGIN:VEVENT") {
		return nil, ErrInvalidFeed
	}

	doc := parseFeed(feed)
	zr := resolver{
		wrTimezone:  doc.wrTimezone,
		vtimezoneID: doc.vtimezoneID,
		hostZone:    opts.HostZone,
	}

	res := &model.Result{
		BlocksParsed: len(doc.blocks),
		CalendarZone: zr.calendarZone().String(),
	}

	events := make([]model.Event, 0, len(doc.blocks))
	for _, b := range doc.blocks {
		ev, diag := buildEvent(b, zr)
		if diag != nil {
			res.Diagnostics = append(res.Diagnostics, *diag)
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	res.EventsBuilt = len(events)

	winStart := now.Add(-time.Duration(opts.IncludePastHours) * time.Hour)
	winEnd := now.AddDate(0, 0, opts.HorizonDays)

	instances, diags := expandEvents(events, winStart, winEnd)
	res.Diagnostics = append(res.Diagnostics, diags...)
	res.InstancesExpanded = len(instances)

	for i := range instances {
		instances[i].EffectiveStart = instances[i].Start.Add(opts.StartOffset)
		instances[i].EffectiveEnd = instances[i].End.Add(opts.EndOffset)
	}

	eligible := make([]model.Instance, 0, len(instances))
	for _, inst := range instances {
		if isEligible(inst, opts) {
			eligible = append(eligible, inst)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].EffectiveStart.Before(eligible[j].EffectiveStart)
	})
	if len(eligible) > opts.MaxEvents {
		eligible = eligible[:opts.MaxEvents]
	}
	res.Eligible = eligible

	ra := resolveActiveNext(eligible, now)
	res.Active = ra.active
	res.Governing = ra.governing
	res.Next = ra.next
	res.NextTransition = ra.transition
	res.TransitionReason = ra.reason
	if ra.governing != nil {
		res.ActiveSummary = formatInstance(*ra.governing, opts.HostZone)
	}
	if ra.next != nil {
		res.NextSummary = formatInstance(*ra.next, opts.HostZone)
	}
	res.Upcoming = upcomingLines(eligible, now, opts.NextListCount, opts.NextListShowLocation, opts.HostZone)

	return res, nil
}
