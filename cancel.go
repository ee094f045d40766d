package callsched

import "unsafe"

// Matcher selects jobs for Cancel.
type Matcher interface {
	matches(job *Job) bool
}

type allMatcher struct{}

func (allMatcher) matches(*Job) bool { return true }

// All matches every scheduled job.
var All Matcher = allMatcher{}

type jobMatcher struct {
	job *Job
}

func (m jobMatcher) matches(job *Job) bool { return job == m.job }

// MatchJob matches one specific job.
func MatchJob(job *Job) Matcher {
	return jobMatcher{job: job}
}

type handlerMatcher struct {
	key unsafe.Pointer
	ok  bool
}

func (m handlerMatcher) matches(job *Job) bool {
	if !m.ok {
		return false
	}
	key, ok := handlerKey(job.handler)
	return ok && key == m.key
}

// MatchHandler matches every job scheduled with the same func value as
// handler. Top-level functions and method expressions such as (*T).Run are
// one value wherever they appear. A method value w.Run or a capturing closure
// is a new value each time it is evaluated, so keep the value that was
// scheduled, or use MatchJob. A non-function handler matches nothing.
func MatchHandler(handler any) Matcher {
	key, ok := handlerKey(handler)
	return handlerMatcher{key: key, ok: ok}
}

// Cancel removes every job m matches, stops its timer and returns the removed
// jobs in scheduling order. Jobs that do not match are left armed and keep
// their order. Matching nothing is not an error; the result is then empty.
//
// Once Cancel returns, a removed job will not fire again. A handler that was
// already running finishes, but its job is not re-armed.
func (s *Scheduler) Cancel(m Matcher) []*Job {
	removed := []*Job{}
	if m == nil {
		return removed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// O(n) in the number of jobs; schedules are expected to be small.
	kept := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if m.matches(job) {
			removed = append(removed, job)
		} else {
			kept = append(kept, job)
		}
	}
	s.jobs = kept

	for _, job := range removed {
		if job.timer != nil {
			job.timer.Stop()
		}
		job.timer = nil
		job.gen++
		s.log.Debug().Str("job_id", job.ID()).Msg("job canceled")
	}
	return removed
}
