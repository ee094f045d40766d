package callsched

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Day is the length of the daily period offsets are measured in.
const Day = 24 * time.Hour

const msPerDay = int64(Day / time.Millisecond)

var _ cron.Schedule = DailySchedule{}

// DailySchedule fires Offset after a UTC midnight and then every Interval.
//
// Offset is not reduced modulo a day: 3*Day + time.Hour lands three days and
// one hour after today's midnight. A non-positive Interval behaves like a
// daily period when rolling a past offset forward.
//
// DailySchedule implements cron.Schedule, so it can also drive a cron.Cron.
type DailySchedule struct {
	Offset   time.Duration
	Interval time.Duration
}

// Next returns the first fire instant strictly after t.
func (s DailySchedule) Next(t time.Time) time.Time {
	return nextRuntime(t, s.Offset, s.Interval)
}

// nextRuntime resolves a daily offset and repeat interval into the next
// absolute fire instant after now. The arithmetic is done in whole epoch
// milliseconds; the result is always strictly after now.
func nextRuntime(now time.Time, offset, interval time.Duration) time.Time {
	nowMs := now.UnixMilli()
	midnight := nowMs - floorMod(nowMs, msPerDay)
	next := midnight + offset.Milliseconds()

	step := interval.Milliseconds()
	if step <= 0 {
		step = msPerDay
	}

	// Jump straight past now instead of stepping one interval at a time; a
	// process resumed after a long suspension may be many periods behind.
	if next < nowMs {
		next += step * ceilDiv(nowMs-next, step)
	}
	// Landing exactly on now counts as too late.
	if next <= nowMs {
		next += step
	}
	return time.UnixMilli(next).UTC()
}

// timeOfDay returns how far t is past the most recent UTC midnight, in whole
// milliseconds.
func timeOfDay(t time.Time) time.Duration {
	return time.Duration(floorMod(t.UnixMilli(), msPerDay)) * time.Millisecond
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// ceilDiv divides a positive a by a positive b, rounding up.
func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
