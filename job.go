package callsched

import (
	"time"

	"github.com/google/uuid"
)

// Spec describes a call to schedule.
type Spec struct {
	// Handler is the function to invoke. Required.
	// It may take any parameters matching Self and Args, and may return an
	// error as its last result; such errors are reported, not retried.
	Handler any

	// Args are passed to Handler on every firing. nil means no arguments.
	Args []any

	// Self, when non-nil, is passed as the first argument ahead of Args.
	// Use it with method expressions: Spec{Handler: (*Cache).Flush, Self: c}.
	Self any

	// DailyOffset is the time after a UTC midnight at which to fire. It may be
	// negative or longer than a day; see DailySchedule.
	// For Delay it is the delay relative to now instead.
	DailyOffset time.Duration

	// Interval repeats the call every Interval after the first firing.
	// Zero or negative means fire once.
	Interval time.Duration
}

// Job is a scheduled call. The Scheduler that returned it is its only
// mutator; the accessors are safe to call from any goroutine.
type Job struct {
	id       uuid.UUID
	sched    *Scheduler
	handler  any
	call     *call
	self     any
	args     []any
	schedule DailySchedule

	// Guarded by sched.mu.
	nextFireAt time.Time
	timer      Timer
	gen        uint64
	fires      int
}

// JobSnapshot is a point-in-time copy of a Job's state.
type JobSnapshot struct {
	ID          string
	DailyOffset time.Duration
	Interval    time.Duration
	NextFireAt  time.Time
	Fires       int
	Armed       bool
}

// ID returns the job's unique identifier.
func (j *Job) ID() string { return j.id.String() }

// Handler returns the handler the job was scheduled with.
func (j *Job) Handler() any { return j.handler }

// Self returns the bound receiver, or nil.
func (j *Job) Self() any { return j.self }

// Args returns a copy of the job's arguments.
func (j *Job) Args() []any {
	out := make([]any, len(j.args))
	copy(out, j.args)
	return out
}

// DailyOffset returns the resolved offset after midnight.
func (j *Job) DailyOffset() time.Duration { return j.schedule.Offset }

// Interval returns the repeat interval; zero for a one-shot job.
func (j *Job) Interval() time.Duration { return j.schedule.Interval }

// Repeating reports whether the job re-arms after firing.
func (j *Job) Repeating() bool { return j.schedule.Interval > 0 }

// NextFireAt returns the instant the currently or most recently armed timer
// fires at.
func (j *Job) NextFireAt() time.Time {
	j.sched.mu.Lock()
	defer j.sched.mu.Unlock()
	return j.nextFireAt
}

// Armed reports whether the job still has a pending timer.
func (j *Job) Armed() bool {
	j.sched.mu.Lock()
	defer j.sched.mu.Unlock()
	return j.timer != nil
}

// Fires returns how many times the handler has been invoked.
func (j *Job) Fires() int {
	j.sched.mu.Lock()
	defer j.sched.mu.Unlock()
	return j.fires
}

// Snapshot returns a consistent copy of the job's state.
func (j *Job) Snapshot() JobSnapshot {
	j.sched.mu.Lock()
	defer j.sched.mu.Unlock()
	return JobSnapshot{
		ID:          j.id.String(),
		DailyOffset: j.schedule.Offset,
		Interval:    j.schedule.Interval,
		NextFireAt:  j.nextFireAt,
		Fires:       j.fires,
		Armed:       j.timer != nil,
	}
}
