package scheduler

import (
	"context"
	"fmt"
	"time"

	"hearth/internal/logging"
	"hearth/internal/tools/cron"
)

// TickInterval is the Scheduler's polling granularity, matching the
// one-minute resolution of a cron expression itself.
const TickInterval = time.Minute

// Store is the persistence slice the Scheduler needs: enumerate due jobs
// and record each one's next fire time after it runs. A strict subset of
// internal/store's cron methods — CreateJob/DeleteJob belong to
// tools/cron's Handler, not here.
type Store interface {
	ListJobs(ctx context.Context) ([]cron.Job, error)
	SetNextRun(ctx context.Context, id string, next time.Time) error
}

// NextCalculator computes a cron expression's next fire time after from.
// Implemented by Parser.
type NextCalculator interface {
	Next(expression string, from time.Time) (time.Time, error)
}

// Runner re-invokes the Agent Loop for a scheduled job's instruction under
// a synthetic, headless session. Implemented by internal/wiring, which
// adapts an *agent.Loop into this contract.
type Runner interface {
	RunInstruction(ctx context.Context, sessionID, instruction string) error
}

// Scheduler fires scheduled jobs on a single in-process ticker, grounded
// on the stop/done ticker-worker shape of reflection_worker.go.
type Scheduler struct {
	Store    Store
	Parser   NextCalculator
	Runner   Runner
	Interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// New builds a Scheduler. interval defaults to TickInterval when zero.
func New(store Store, parser NextCalculator, runner Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = TickInterval
	}
	return &Scheduler{Store: store, Parser: parser, Runner: runner, Interval: interval}
}

// Start launches the background ticker. Safe to call once; a second call
// before Stop is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(ctx, s.stop, s.done)
}

// Stop halts the ticker and waits (up to 2s) for the in-flight cycle to
// finish.
func (s *Scheduler) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
	}
	s.stop = nil
	s.done = nil
}

func (s *Scheduler) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one polling cycle: every job whose NextRun has arrived is
// invoked, in list order, and rescheduled from the moment it ran. A job
// whose Runner invocation fails is logged and rescheduled anyway — a
// single bad instruction must not wedge the job out of its cadence.
func (s *Scheduler) Tick(ctx context.Context) {
	log := logging.Get(logging.CategoryCron)

	jobs, err := s.Store.ListJobs(ctx)
	if err != nil {
		log.Warn("scheduler: list jobs: %v", err)
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		if job.NextRun.After(now) {
			continue
		}
		s.fire(ctx, job, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, job cron.Job, now time.Time) {
	log := logging.Get(logging.CategoryCron)
	sessionID := fmt.Sprintf("cron:%s", job.ID)

	if err := s.Runner.RunInstruction(ctx, sessionID, job.Instruction); err != nil {
		log.Warn("scheduler: job %s failed: %v", job.ID, err)
	} else {
		log.Info("scheduler: job %s fired", job.ID)
	}

	next, err := s.Parser.Next(job.Expression, now)
	if err != nil {
		log.Warn("scheduler: job %s: computing next run: %v", job.ID, err)
		return
	}
	if err := s.Store.SetNextRun(ctx, job.ID, next); err != nil {
		log.Warn("scheduler: job %s: recording next run: %v", job.ID, err)
	}
}
