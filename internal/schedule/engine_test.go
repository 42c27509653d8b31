package schedule

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"taskping/internal/model"
	"taskping/internal/repository"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []uint
	out   Outcome
	err   error
	block chan struct{} // when set, Dispatch waits until it is closed
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, taskID uint) (Outcome, error) {
	d.mu.Lock()
	d.calls = append(d.calls, taskID)
	block := d.block
	d.mu.Unlock()
	if block != nil {
		<-block
	}
	return d.out, d.err
}

func (d *fakeDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func newJobRepo(t *testing.T) (*repository.JobRepository, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "engine.db")
	db, err := repository.NewDB(dsn)
	require.NoError(t, err)
	return repository.NewJobRepository(db), dsn
}

func newEngineAt(jobs *repository.JobRepository, d Dispatcher, now time.Time, opts Options) *Engine {
	opts.Now = func() time.Time { return now }
	if opts.Location == nil {
		opts.Location = now.Location()
	}
	return NewEngine(jobs, d, opts, zerolog.Nop())
}

func istStart(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return time.Date(2024, 1, 1, 9, 0, 0, 0, loc)
}

func TestEngineTickDispatchesAndReschedules(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	disp := &fakeDispatcher{out: Outcome{Delivered: true, Detail: "ok"}}
	eng := newEngineAt(jobs, disp, start, Options{})

	task := &model.Task{ID: 1, StartAt: start, FreqDays: 1, RemindForDays: 3}
	require.NoError(t, eng.Schedule(context.Background(), task))

	eng.Tick(context.Background())
	eng.Stop(context.Background())

	require.Equal(t, []uint{1}, disp.calls)

	job, err := jobs.Get(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.True(t, job.NextFireAt.Equal(start.AddDate(0, 0, 1)),
		"next fire %v, want %v", job.NextFireAt, start.AddDate(0, 0, 1))
}

func TestEngineScheduleReplacesExistingJob(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	eng := newEngineAt(jobs, &fakeDispatcher{}, start.Add(-time.Hour), Options{})

	task := &model.Task{ID: 3, StartAt: start, FreqDays: 1, RemindForDays: 5}
	require.NoError(t, eng.Schedule(context.Background(), task))

	task.FreqDays = 2
	require.NoError(t, eng.Schedule(context.Background(), task))
	require.NoError(t, eng.Schedule(context.Background(), task))

	all, err := jobs.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1, "rescheduling must leave exactly one live job")
	require.Equal(t, 2, all[0].FreqDays)
}

func TestEngineRetiresClosedTask(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	disp := &fakeDispatcher{out: Outcome{Retire: true, Detail: "task is completed; not sending"}}
	eng := newEngineAt(jobs, disp, start, Options{})

	task := &model.Task{ID: 4, StartAt: start, FreqDays: 1, RemindForDays: 5}
	require.NoError(t, eng.Schedule(context.Background(), task))

	eng.Tick(context.Background())
	eng.Stop(context.Background())

	require.Equal(t, 1, disp.callCount())
	job, err := jobs.Get(context.Background(), 4)
	require.NoError(t, err)
	require.Nil(t, job, "retired job must be removed from the store")
}

func TestEngineMisfireWithinGraceFiresOnce(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	disp := &fakeDispatcher{out: Outcome{Delivered: true}}
	// Engine recovers 10 minutes late, inside the 15 minute grace.
	now := start.Add(10 * time.Minute)
	eng := newEngineAt(jobs, disp, now, Options{Location: start.Location()})

	schedEng := newEngineAt(jobs, disp, start.Add(-time.Hour), Options{Location: start.Location()})
	task := &model.Task{ID: 5, StartAt: start, FreqDays: 1, RemindForDays: 3}
	require.NoError(t, schedEng.Schedule(context.Background(), task))

	eng.Tick(context.Background())
	eng.Stop(context.Background())

	require.Equal(t, 1, disp.callCount(), "late fire within grace goes out once")

	job, err := jobs.Get(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, job)
	// Cadence resumes from the original schedule, not from recovery time.
	require.True(t, job.NextFireAt.Equal(start.AddDate(0, 0, 1)))
}

func TestEngineMisfireBeyondGraceSkips(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	disp := &fakeDispatcher{out: Outcome{Delivered: true}}
	// Down for an hour: past grace, the missed fire is skipped.
	now := start.Add(time.Hour)
	eng := newEngineAt(jobs, disp, now, Options{Location: start.Location()})

	schedEng := newEngineAt(jobs, disp, start.Add(-time.Hour), Options{Location: start.Location()})
	task := &model.Task{ID: 6, StartAt: start, FreqDays: 1, RemindForDays: 3}
	require.NoError(t, schedEng.Schedule(context.Background(), task))

	eng.Tick(context.Background())
	eng.Stop(context.Background())

	require.Zero(t, disp.callCount(), "missed fire beyond grace must not send")

	job, err := jobs.Get(context.Background(), 6)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.True(t, job.NextFireAt.Equal(start.AddDate(0, 0, 1)))
}

func TestEngineMisfireBeyondGraceRetiresExhaustedWindow(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	disp := &fakeDispatcher{out: Outcome{Delivered: true}}
	// The whole window passed while the process was down.
	now := start.AddDate(0, 0, 10)
	eng := newEngineAt(jobs, disp, now, Options{Location: start.Location()})

	schedEng := newEngineAt(jobs, disp, start.Add(-time.Hour), Options{Location: start.Location()})
	task := &model.Task{ID: 7, StartAt: start, FreqDays: 1, RemindForDays: 3}
	require.NoError(t, schedEng.Schedule(context.Background(), task))

	eng.Tick(context.Background())
	eng.Stop(context.Background())

	require.Zero(t, disp.callCount())
	job, err := jobs.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Nil(t, job)
}

func TestEngineCoalescesOverlappingFires(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	disp := &fakeDispatcher{out: Outcome{Delivered: true}, block: make(chan struct{})}
	eng := newEngineAt(jobs, disp, start, Options{})

	task := &model.Task{ID: 8, StartAt: start, FreqDays: 1, RemindForDays: 3}
	require.NoError(t, eng.Schedule(context.Background(), task))

	// First tick takes the per-job lock and blocks in dispatch; the
	// second tick sees the job still due but must not stack a second
	// execution.
	eng.Tick(context.Background())
	eng.Tick(context.Background())

	close(disp.block)
	eng.Stop(context.Background())

	require.Equal(t, 1, disp.callCount(), "overlapping fires must coalesce")
}

func TestEngineEmptyWindowRetiredWithoutDispatch(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	disp := &fakeDispatcher{}
	eng := newEngineAt(jobs, disp, start, Options{})

	task := &model.Task{ID: 9, StartAt: start, FreqDays: 1, RemindForDays: 0}
	require.NoError(t, eng.Schedule(context.Background(), task))

	// The job exists until the engine inspects it.
	all, err := jobs.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].NextFireAt.IsZero())

	eng.Tick(context.Background())
	eng.Stop(context.Background())

	require.Zero(t, disp.callCount())
	job, err := jobs.Get(context.Background(), 9)
	require.NoError(t, err)
	require.Nil(t, job)
}

func TestEngineCancelIsIdempotent(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	eng := newEngineAt(jobs, &fakeDispatcher{}, start, Options{})

	task := &model.Task{ID: 10, StartAt: start, FreqDays: 1, RemindForDays: 3}
	require.NoError(t, eng.Schedule(context.Background(), task))

	found, err := eng.Cancel(context.Background(), 10)
	require.NoError(t, err)
	require.True(t, found)

	found, err = eng.Cancel(context.Background(), 10)
	require.NoError(t, err)
	require.False(t, found, "cancelling an absent job is a no-op, not an error")
}

func TestEngineRestartReproducesNextFire(t *testing.T) {
	start := istStart(t)
	dsn := filepath.Join(t.TempDir(), "restart.db")
	db, err := repository.NewDB(dsn)
	require.NoError(t, err)
	jobs := repository.NewJobRepository(db)

	eng := newEngineAt(jobs, &fakeDispatcher{}, start.Add(-time.Hour), Options{Location: start.Location()})
	task := &model.Task{ID: 11, StartAt: start, FreqDays: 2, RemindForDays: 7}
	require.NoError(t, eng.Schedule(context.Background(), task))

	before, err := jobs.Get(context.Background(), 11)
	require.NoError(t, err)
	require.NotNil(t, before)

	// Simulated restart: fresh connection to the same database file.
	db2, err := repository.NewDB(dsn)
	require.NoError(t, err)
	jobs2 := repository.NewJobRepository(db2)

	after, err := jobs2.Get(context.Background(), 11)
	require.NoError(t, err)
	require.NotNil(t, after)
	require.True(t, before.NextFireAt.Equal(after.NextFireAt),
		"restart changed the next fire: %v != %v", before.NextFireAt, after.NextFireAt)

	trig := TriggerFromJob(after, start.Location())
	next, ok := trig.NextFrom(start.Add(-time.Hour))
	require.True(t, ok)
	require.True(t, next.Equal(after.NextFireAt))
}

func TestEngineRunNowGuard(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	disp := &fakeDispatcher{out: Outcome{Delivered: true}}
	eng := newEngineAt(jobs, disp, start, Options{GuardManualSends: true})

	// A fire already in flight makes a guarded manual send back off.
	require.True(t, eng.acquire(12))
	_, err := eng.RunNow(context.Background(), 12)
	require.ErrorIs(t, err, ErrBusy)
	eng.release(12)

	out, err := eng.RunNow(context.Background(), 12)
	require.NoError(t, err)
	require.True(t, out.Delivered)
}

func TestEngineRunNowRetiresClosedTaskJob(t *testing.T) {
	jobs, _ := newJobRepo(t)
	start := istStart(t)
	disp := &fakeDispatcher{out: Outcome{Retire: true, Detail: "task is cancelled; not sending"}}
	eng := newEngineAt(jobs, disp, start, Options{})

	task := &model.Task{ID: 13, StartAt: start, FreqDays: 1, RemindForDays: 3}
	require.NoError(t, eng.Schedule(context.Background(), task))

	out, err := eng.RunNow(context.Background(), 13)
	require.NoError(t, err)
	require.False(t, out.Delivered)

	job, err := jobs.Get(context.Background(), 13)
	require.NoError(t, err)
	require.Nil(t, job, "manual dispatch of a closed task also retires its job")
}
