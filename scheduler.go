// Package callsched invokes functions at a time of day, once or at a fixed
// interval, inside a single process.
//
// Every job owns one single-shot timer. When it fires the handler is called
// first and, for repeating jobs, the timer is re-armed only after the handler
// returns, so the schedule is recomputed from the current time on every
// firing and a job never overlaps itself.
package callsched

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds the configuration for a Scheduler.
type Config struct {
	// Clock supplies the current time and single-shot timers.
	// Default: RealClock.
	Clock Clock

	// Logger receives debug events for arm, fire, retire and cancel, and
	// handler errors. The zero value discards everything.
	Logger zerolog.Logger

	// OnError is called when a handler returns a non-nil error.
	// The job stays scheduled; a repeating job is re-armed as usual.
	OnError func(ctx context.Context, job *Job, err error)
}

// Scheduler owns a set of jobs and their timers.
// It is safe for concurrent use.
type Scheduler struct {
	clock  Clock
	log    zerolog.Logger
	config Config

	// ctx is handed to OnError and canceled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	jobs   []*Job
	closed bool
}

// New creates a new Scheduler with the given configuration.
func New(config Config) *Scheduler {
	if config.Clock == nil {
		config.Clock = RealClock{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		clock:  config.Clock,
		log:    config.Logger.With().Str("component", "callsched").Logger(),
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule validates spec, arms a timer for its first fire instant and
// registers the resulting job.
//
// The first fire instant is the next occurrence of spec.DailyOffset strictly
// after now, stepping by spec.Interval (or by a day for one-shot jobs).
// Errors wrap ErrInvalidArgument, or are ErrClosed after Close.
func (s *Scheduler) Schedule(spec Spec) (*Job, error) {
	c, err := bindCall(spec.Handler, spec.Self, spec.Args)
	if err != nil {
		return nil, err
	}

	args := make([]any, len(spec.Args))
	copy(args, spec.Args)

	job := &Job{
		id:      uuid.New(),
		sched:   s,
		handler: spec.Handler,
		call:    c,
		self:    spec.Self,
		args:    args,
		schedule: DailySchedule{
			Offset:   spec.DailyOffset.Truncate(time.Millisecond),
			Interval: spec.Interval.Truncate(time.Millisecond),
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	s.arm(job, s.clock.Now())
	s.jobs = append(s.jobs, job)

	s.log.Debug().
		Str("job_id", job.ID()).
		Dur("offset", job.schedule.Offset).
		Dur("interval", job.schedule.Interval).
		Time("next_fire_at", job.nextFireAt).
		Msg("job scheduled")
	return job, nil
}

// Validate reports the error Schedule would return for spec, without
// scheduling anything. It does not check whether the Scheduler is closed.
func Validate(spec Spec) error {
	_, err := bindCall(spec.Handler, spec.Self, spec.Args)
	return err
}

// Delay schedules spec with spec.DailyOffset read as a delay from now rather
// than an offset after midnight. Validation is the same as Schedule.
//
// A zero delay resolves to the current instant, which is too late by one
// step: a one-shot job then fires a day later, a repeating one after one
// Interval.
func (s *Scheduler) Delay(spec Spec) (*Job, error) {
	return s.Schedule(resolveDelay(spec, s.clock.Now()))
}

func resolveDelay(spec Spec, now time.Time) Spec {
	spec.DailyOffset += timeOfDay(now)
	return spec
}

// Jobs returns the scheduled jobs in scheduling order.
func (s *Scheduler) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Close cancels every job and makes later Schedule calls fail with
// ErrClosed. It returns the canceled jobs. Close is idempotent.
func (s *Scheduler) Close() []*Job {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	removed := s.Cancel(All)
	s.cancel()
	return removed
}

// arm computes the job's next fire instant relative to now and starts a
// fresh timer for it. Must hold s.mu.
func (s *Scheduler) arm(job *Job, now time.Time) {
	job.nextFireAt = job.schedule.Next(now)
	job.gen++
	gen := job.gen
	job.timer = s.clock.AfterFunc(job.nextFireAt.Sub(now), func() {
		s.fire(job, gen)
	})
}

// fire runs when a job's timer elapses. The handler is called before the
// re-arm decision; a repeating job's next timer starts only once it returns.
func (s *Scheduler) fire(job *Job, gen uint64) {
	s.mu.Lock()
	if job.gen != gen || job.timer == nil {
		// Canceled or re-armed after this timer had already fired.
		s.mu.Unlock()
		return
	}
	job.fires++
	at := job.nextFireAt
	s.mu.Unlock()

	s.log.Debug().Str("job_id", job.ID()).Time("fire_at", at).Msg("job firing")

	if err := job.call.invoke(); err != nil {
		s.handleError(job, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if job.gen != gen || job.timer == nil {
		// Canceled while the handler ran.
		return
	}
	if job.Repeating() {
		s.arm(job, s.clock.Now())
		s.log.Debug().
			Str("job_id", job.ID()).
			Time("next_fire_at", job.nextFireAt).
			Msg("job re-armed")
		return
	}
	s.retire(job)
}

// retire drops a fired one-shot job from the set. Must hold s.mu.
func (s *Scheduler) retire(job *Job) {
	for i, j := range s.jobs {
		if j == job {
			s.jobs = append(s.jobs[:i:i], s.jobs[i+1:]...)
			break
		}
	}
	job.timer = nil
	job.gen++
	s.log.Debug().Str("job_id", job.ID()).Msg("job retired")
}

func (s *Scheduler) handleError(job *Job, err error) {
	s.log.Error().Err(err).Str("job_id", job.ID()).Msg("handler failed")
	if s.config.OnError != nil {
		s.config.OnError(s.ctx, job, err)
	}
}
