package ics

import (
	"time"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/model"
)

// resolution is the outcome of scanning the eligible set at one instant.
type resolution struct {
	active     bool
	governing  *model.Instance
	next       *model.Instance
	transition time.Time
	reason     string
}

// resolveActiveNext scans the eligible set, ordered ascending by effective
// start. An instance is active when effective start ≤ now < effective end.
// The governing instance is the active one ending soonest (first seen wins
// ties); the next instance is the earliest with effective start > now.
// The transition is the governing end while active, else the next start.
func resolveActiveNext(eligible []model.Instance, now time.Time) resolution {
	res := resolution{reason: model.ReasonNone}

	for i := range eligible {
		inst := eligible[i]
		switch {
		case !inst.EffectiveStart.After(now) && now.Before(inst.EffectiveEnd):
			if res.governing == nil || inst.EffectiveEnd.Before(res.governing.EffectiveEnd) {
				g := inst
				res.governing = &g
			}
		case inst.EffectiveStart.After(now) && res.next == nil:
			n := inst
			res.next = &n
		}
	}

	res.active = res.governing != nil
	switch {
	case res.governing != nil:
		res.transition = res.governing.EffectiveEnd
		res.reason = model.ReasonActiveEnd
	case res.next != nil:
		res.transition = res.next.EffectiveStart
		res.reason = model.ReasonNextStart
	}
	return res
}

// SameTransition reports whether a newly computed re-evaluation instant is
// unchanged from the previously scheduled one within tol, so an external
// timer can skip re-arming.
func SameTransition(prev, next time.Time, tol time.Duration) bool {
	if prev.IsZero() != next.IsZero() {
		return false
	}
	if prev.IsZero() {
		return true
	}
	d := next.Sub(prev)
	if d < 0 {
		d = -d
	}
	return d <= tol
}
