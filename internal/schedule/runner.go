package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/ics"
)

// Trigger names why an evaluation ran.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerPoll     Trigger = "poll"
	TriggerBoundary Trigger = "boundary"
	TriggerManual   Trigger = "manual"
)

const (
	defaultMinGap       = 2 * time.Second
	transitionTolerance = time.Second
)

// EvalFunc runs one fetch+evaluate+publish cycle and returns the next
// transition instant. A zero time means there is nothing to arm.
type EvalFunc func(ctx context.Context, trigger Trigger) time.Time

type refreshReq struct {
	done chan struct{}
}

// Runner drives re-evaluation from two independent triggers sharing one
// pipeline: a fixed cron cadence and a one-shot timer armed at the next
// computed transition instant. A short minimum gap collapses
// near-simultaneous timer triggers; manual refreshes bypass it.
type Runner struct {
	eval     EvalFunc
	interval time.Duration
	log      *zap.Logger

	minGap  time.Duration
	refresh chan refreshReq
}

func New(eval EvalFunc, pollInterval time.Duration, log *zap.Logger) *Runner {
	return &Runner{
		eval:     eval,
		interval: pollInterval,
		log:      log,
		minGap:   defaultMinGap,
		refresh:  make(chan refreshReq),
	}
}

// Trigger requests a manual refresh and blocks until that evaluation
// finishes or ctx is done.
func (r *Runner) Trigger(ctx context.Context) error {
	req := refreshReq{done: make(chan struct{})}
	select {
	case r.refresh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run evaluates once at startup, then loops until ctx is done. The
// boundary timer is re-armed after every evaluation unless the newly
// computed transition matches the armed one within tolerance.
func (r *Runner) Run(ctx context.Context) error {
	pollC := make(chan struct{}, 1)
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
		select {
		case pollC <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("schedule: poll cadence: %w", err)
	}

	var (
		timer     *time.Timer
		boundaryC <-chan time.Time
		armedAt   time.Time
		lastRun   time.Time
	)
	disarm := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			boundaryC = nil
		}
		armedAt = time.Time{}
	}
	arm := func(at time.Time) {
		if ics.SameTransition(armedAt, at, transitionTolerance) && timer != nil {
			return
		}
		disarm()
		if at.IsZero() {
			return
		}
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		timer = time.NewTimer(d)
		boundaryC = timer.C
		armedAt = at
		r.log.Debug("armed boundary timer", zap.Time("at", at))
	}
	runOnce := func(trigger Trigger) {
		lastRun = time.Now()
		arm(r.eval(ctx, trigger))
	}

	r.log.Info("scheduler started", zap.Duration("poll_interval", r.interval))
	runOnce(TriggerStartup)
	c.Start()
	defer func() { <-c.Stop().Done() }()

	for {
		select {
		case <-ctx.Done():
			disarm()
			return nil
		case <-pollC:
			if time.Since(lastRun) < r.minGap {
				r.log.Debug("collapsed poll trigger", zap.Duration("since_last", time.Since(lastRun)))
				continue
			}
			runOnce(TriggerPoll)
		case <-boundaryC:
			// The armed instant has been consumed; the next arm call must
			// not see it as still pending.
			timer = nil
			boundaryC = nil
			armedAt = time.Time{}
			if since := time.Since(lastRun); since < r.minGap {
				// A boundary evaluation may not be dropped outright, the
				// switch flip depends on it. Retry once the gap has passed.
				r.log.Debug("collapsed boundary trigger", zap.Duration("since_last", since))
				arm(time.Now().Add(r.minGap - since))
				continue
			}
			runOnce(TriggerBoundary)
		case req := <-r.refresh:
			runOnce(TriggerManual)
			close(req.done)
		}
	}
}
