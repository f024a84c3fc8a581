package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/victor-igor/wacrm-backend/internal/model"
)

// DefaultDueTolerance is how far a recurring time may drift from wall clock
// and still count as due. The rule is minute-granular, so one minute either
// side covers evaluator passes that land just off the tick.
const DefaultDueTolerance = time.Minute

// ScheduleEvaluator decides whether and when a campaign fires.
type ScheduleEvaluator struct {
	Tolerance time.Duration
}

func NewScheduleEvaluator() *ScheduleEvaluator {
	return &ScheduleEvaluator{Tolerance: DefaultDueTolerance}
}

// IsDue reports whether the campaign should fire at now.
//
//   - instant: due exactly once, while it has never run.
//   - scheduled: due once now has reached schedule_time and it has never run.
//     A missed tick fires late on the next pass rather than being skipped.
//   - recurring: due whenever now's weekday is in the rule and the time of
//     day is within Tolerance of one of the rule's times. Never terminal,
//     but each tick fires at most once: a tick the last run already covered
//     is not due again, even while now is still inside the tolerance window.
func (e *ScheduleEvaluator) IsDue(c *model.Campaign, now time.Time) bool {
	if !c.Sendable() {
		return false
	}
	switch c.Type {
	case model.CampaignTypeInstant:
		return !c.HasRun()
	case model.CampaignTypeScheduled:
		return !c.HasRun() && c.ScheduleTime != nil && !now.Before(*c.ScheduleTime)
	case model.CampaignTypeRecurring:
		return e.recurringDue(c, now)
	default:
		return false
	}
}

func (e *ScheduleEvaluator) recurringDue(c *model.Campaign, now time.Time) bool {
	rule := c.Recurrence
	if rule == nil {
		return false
	}
	weekday := int(now.Weekday())
	if !containsInt(rule.Days, weekday) {
		return false
	}
	tolerance := e.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultDueTolerance
	}
	for _, clock := range rule.Times {
		hour, minute, err := ParseClock(clock)
		if err != nil {
			continue
		}
		tick := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		diff := now.Sub(tick)
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance && !alreadyFired(c.LastRunAt, tick, tolerance) {
			return true
		}
	}
	return false
}

// alreadyFired reports whether the last run was close enough to tick to
// count as the same firing, rather than a new one.
func alreadyFired(lastRun *time.Time, tick time.Time, tolerance time.Duration) bool {
	if lastRun == nil {
		return false
	}
	diff := lastRun.Sub(tick)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// NextFireTime returns the earliest moment strictly derived from the
// campaign's schedule at which it could fire after the given time, or nil
// when it will never fire again.
func (e *ScheduleEvaluator) NextFireTime(c *model.Campaign, after time.Time) *time.Time {
	switch c.Type {
	case model.CampaignTypeInstant:
		if c.HasRun() {
			return nil
		}
		t := after
		return &t
	case model.CampaignTypeScheduled:
		if c.HasRun() || c.ScheduleTime == nil {
			return nil
		}
		if c.ScheduleTime.After(after) {
			t := *c.ScheduleTime
			return &t
		}
		// already past due: fires on the next pass
		t := after
		return &t
	case model.CampaignTypeRecurring:
		return nextRecurring(c.Recurrence, after)
	default:
		return nil
	}
}

func nextRecurring(rule *model.RecurrenceRule, after time.Time) *time.Time {
	if rule == nil || len(rule.Days) == 0 || len(rule.Times) == 0 {
		return nil
	}
	var best *time.Time
	for offset := 0; offset <= 7; offset++ {
		day := after.AddDate(0, 0, offset)
		if !containsInt(rule.Days, int(day.Weekday())) {
			continue
		}
		for _, clock := range rule.Times {
			hour, minute, err := ParseClock(clock)
			if err != nil {
				continue
			}
			tick := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, after.Location())
			if !tick.After(after) {
				continue
			}
			if best == nil || tick.Before(*best) {
				t := tick
				best = &t
			}
		}
	}
	return best
}

// ParseClock parses a "HH:MM" wall-clock string.
func ParseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed clock %q", clock)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("malformed clock %q", clock)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("malformed clock %q", clock)
	}
	return hour, minute, nil
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
