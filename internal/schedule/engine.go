package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"taskping/internal/model"
	"taskping/internal/repository"
)

// ErrBusy is returned by RunNow when the send-now guard is enabled and
// a fire for the same task is already in flight.
var ErrBusy = errors.New("a reminder for this task is already in flight")

// Outcome is the result of one dispatch attempt.
type Outcome struct {
	Delivered bool   `json:"delivered"`
	Detail    string `json:"detail"`
	// Retire tells the engine the task has been closed and its job must
	// be removed instead of rescheduled.
	Retire bool `json:"-"`
}

// Dispatcher executes the actual reminder send for a task. It loads
// fresh task state, so the engine never passes anything but the id.
type Dispatcher interface {
	Dispatch(ctx context.Context, taskID uint) (Outcome, error)
}

// Options tune the engine.
type Options struct {
	Location *time.Location
	// MisfireGrace bounds catch-up sends after downtime: a fire missed
	// by at most this delay still goes out once on recovery; older
	// misses are skipped and the cadence resumes at the next
	// on-schedule instant.
	MisfireGrace time.Duration
	// GuardManualSends makes RunNow respect the per-job execution lock.
	GuardManualSends bool
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine owns the background reminder timeline. Each Tick it collects
// due jobs from the durable store and dispatches every one on its own
// goroutine, with at most one in-flight execution per task. Reschedule
// and retire decisions are written only after the dispatch finishes, so
// a job's fires are strictly ordered.
type Engine struct {
	jobs       *repository.JobRepository
	dispatcher Dispatcher
	log        zerolog.Logger

	loc         *time.Location
	grace       time.Duration
	guardManual bool
	now         func() time.Time

	mu       sync.Mutex
	inflight map[uint]struct{}
	wg       sync.WaitGroup
}

func NewEngine(jobs *repository.JobRepository, dispatcher Dispatcher, opts Options, log zerolog.Logger) *Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MisfireGrace <= 0 {
		opts.MisfireGrace = 15 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		jobs:        jobs,
		dispatcher:  dispatcher,
		log:         log,
		loc:         opts.Location,
		grace:       opts.MisfireGrace,
		guardManual: opts.GuardManualSends,
		now:         opts.Now,
		inflight:    map[uint]struct{}{},
	}
}

// Schedule computes the task's trigger and upserts its job, replacing
// any previous definition for the same task id in a single statement.
// A task whose window holds no valid instant still gets a job row (with
// a zero next fire); the next tick retires it without dispatching.
func (e *Engine) Schedule(ctx context.Context, task *model.Task) error {
	trig := NewTrigger(task.StartAt.In(e.loc), task.FreqDays, task.RemindForDays)
	job := &model.ScheduledJob{
		TaskID:   task.ID,
		StartAt:  trig.StartAt,
		EndAt:    trig.EndAt,
		FreqDays: trig.FreqDays,
		Timezone: e.loc.String(),
	}
	if next, ok := trig.NextFrom(e.now().In(e.loc)); ok {
		job.NextFireAt = next
	}
	if err := e.jobs.Put(ctx, job); err != nil {
		return err
	}
	e.log.Debug().Uint("task_id", task.ID).Time("next_fire", job.NextFireAt).Msg("job scheduled")
	return nil
}

// Cancel removes the task's job. Idempotent: a missing job is not an
// error. An in-flight dispatch for the task completes, but no further
// fire will be scheduled because the job row is gone.
func (e *Engine) Cancel(ctx context.Context, taskID uint) (bool, error) {
	found, err := e.jobs.Remove(ctx, taskID)
	if err != nil {
		return false, err
	}
	if found {
		e.log.Debug().Uint("task_id", taskID).Msg("job cancelled")
	}
	return found, nil
}

// Tick processes every due job once. Safe to call from a periodic
// scheduler; a job whose previous fire is still running is skipped this
// round (backlogged fires coalesce into the running one).
func (e *Engine) Tick(ctx context.Context) {
	now := e.now().In(e.loc)
	due, err := e.jobs.ListDue(ctx, now)
	if err != nil {
		e.log.Error().Err(err).Msg("list due jobs")
		return
	}

	for i := range due {
		job := due[i]

		if job.NextFireAt.IsZero() {
			// Empty window: created but never fires.
			if _, err := e.jobs.Remove(ctx, job.TaskID); err != nil {
				e.log.Error().Err(err).Uint("task_id", job.TaskID).Msg("retire empty-window job")
			}
			continue
		}

		trig := TriggerFromJob(&job, e.loc)

		if now.Sub(job.NextFireAt) > e.grace {
			// Engine was down past the grace window: skip the missed
			// fire(s) instead of sending a backlog storm.
			next, ok := trig.NextAfter(now)
			if !ok {
				if _, err := e.jobs.Remove(ctx, job.TaskID); err != nil {
					e.log.Error().Err(err).Uint("task_id", job.TaskID).Msg("retire job after downtime")
				} else {
					e.log.Info().Uint("task_id", job.TaskID).Msg("window exhausted during downtime, job retired")
				}
				continue
			}
			if err := e.jobs.Reschedule(ctx, job.TaskID, next); err != nil {
				e.log.Error().Err(err).Uint("task_id", job.TaskID).Msg("reschedule after misfire")
				continue
			}
			e.log.Warn().
				Uint("task_id", job.TaskID).
				Time("missed", job.NextFireAt).
				Time("next_fire", next).
				Msg("misfire beyond grace, skipping to next on-schedule instant")
			continue
		}

		if !e.acquire(job.TaskID) {
			e.log.Debug().Uint("task_id", job.TaskID).Msg("previous fire still running, coalescing")
			continue
		}

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			defer e.release(job.TaskID)
			e.fire(ctx, &job, trig, now)
		}()
	}
}

// fire runs one dispatch and transitions the job out of Firing:
// rescheduled on the original cadence, or retired when the task closed
// or the window is exhausted.
func (e *Engine) fire(ctx context.Context, job *model.ScheduledJob, trig Trigger, now time.Time) {
	out, err := e.dispatcher.Dispatch(ctx, job.TaskID)
	switch {
	case err != nil:
		// Dispatch-level failures (e.g. task row missing) keep the job
		// on its cadence; deletion is expected to cancel the job first.
		e.log.Error().Err(err).Uint("task_id", job.TaskID).Msg("dispatch failed")
	case out.Retire:
		if _, rmErr := e.jobs.Remove(ctx, job.TaskID); rmErr != nil {
			e.log.Error().Err(rmErr).Uint("task_id", job.TaskID).Msg("retire job")
		} else {
			e.log.Info().Uint("task_id", job.TaskID).Str("detail", out.Detail).Msg("job retired")
		}
		return
	case out.Delivered:
		e.log.Info().Uint("task_id", job.TaskID).Msg("reminder delivered")
	default:
		// Transport failure: no early retry, wait for the next
		// regularly scheduled fire.
		e.log.Warn().Uint("task_id", job.TaskID).Str("detail", out.Detail).Msg("reminder not delivered")
	}

	// Resume the cadence from the original schedule, not from now.
	next, ok := trig.NextAfter(job.NextFireAt)
	for ok && !next.After(now) {
		next, ok = trig.NextAfter(next)
	}
	if !ok {
		if _, rmErr := e.jobs.Remove(ctx, job.TaskID); rmErr != nil {
			e.log.Error().Err(rmErr).Uint("task_id", job.TaskID).Msg("retire exhausted job")
		} else {
			e.log.Info().Uint("task_id", job.TaskID).Msg("window exhausted, job retired")
		}
		return
	}
	if err := e.jobs.Reschedule(ctx, job.TaskID, next); err != nil {
		e.log.Error().Err(err).Uint("task_id", job.TaskID).Msg("reschedule job")
	}
}

// RunNow dispatches a task immediately, outside its schedule. With the
// guard enabled it takes the same per-job lock as scheduled fires and
// reports ErrBusy instead of double-sending; without it, manual sends
// may overlap a scheduled fire (the historical behavior).
func (e *Engine) RunNow(ctx context.Context, taskID uint) (Outcome, error) {
	if e.guardManual {
		if !e.acquire(taskID) {
			return Outcome{}, ErrBusy
		}
		defer e.release(taskID)
	}
	out, err := e.dispatcher.Dispatch(ctx, taskID)
	if err != nil {
		return out, err
	}
	if out.Retire {
		if _, rmErr := e.jobs.Remove(ctx, taskID); rmErr != nil {
			e.log.Error().Err(rmErr).Uint("task_id", taskID).Msg("retire job")
		}
	}
	return out, nil
}

// Stop waits for in-flight dispatches, up to the context deadline.
func (e *Engine) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		e.log.Warn().Msg("engine stop timed out with dispatches in flight")
	}
}

func (e *Engine) acquire(taskID uint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[taskID]; busy {
		return false
	}
	e.inflight[taskID] = struct{}{}
	return true
}

func (e *Engine) release(taskID uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, taskID)
}
