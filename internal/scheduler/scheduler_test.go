package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hearth/internal/tools/cron"
)

type fakeStore struct {
	jobs       []cron.Job
	nextRunSet map[string]time.Time
}

func (f *fakeStore) ListJobs(ctx context.Context) ([]cron.Job, error) {
	return f.jobs, nil
}

func (f *fakeStore) SetNextRun(ctx context.Context, id string, next time.Time) error {
	if f.nextRunSet == nil {
		f.nextRunSet = make(map[string]time.Time)
	}
	f.nextRunSet[id] = next
	return nil
}

type fakeParser struct {
	next time.Time
	err  error
}

func (p *fakeParser) Next(expression string, from time.Time) (time.Time, error) {
	return p.next, p.err
}

type fakeRunner struct {
	invocations []string
	err         error
}

func (r *fakeRunner) RunInstruction(ctx context.Context, sessionID, instruction string) error {
	r.invocations = append(r.invocations, sessionID+":"+instruction)
	return r.err
}

func TestTickFiresDueJobsAndReschedules(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{jobs: []cron.Job{
		{ID: "job-1", Expression: "* * * * *", Instruction: "say hi", NextRun: now.Add(-time.Minute)},
	}}
	runner := &fakeRunner{}
	parser := &fakeParser{next: now.Add(time.Minute)}

	s := New(store, parser, runner, time.Minute)
	s.Tick(context.Background())

	require.Len(t, runner.invocations, 1)
	require.Equal(t, "cron:job-1:say hi", runner.invocations[0])
	require.Contains(t, store.nextRunSet, "job-1")
}

func TestTickSkipsJobsNotYetDue(t *testing.T) {
	store := &fakeStore{jobs: []cron.Job{
		{ID: "job-1", Expression: "* * * * *", Instruction: "say hi", NextRun: time.Now().Add(time.Hour)},
	}}
	runner := &fakeRunner{}
	s := New(store, &fakeParser{}, runner, time.Minute)

	s.Tick(context.Background())
	require.Empty(t, runner.invocations)
}

func TestTickReschedulesEvenWhenRunnerFails(t *testing.T) {
	now := time.Now().UTC()
	store := &fakeStore{jobs: []cron.Job{
		{ID: "job-1", Expression: "* * * * *", Instruction: "say hi", NextRun: now.Add(-time.Minute)},
	}}
	runner := &fakeRunner{err: fmt.Errorf("boom")}
	parser := &fakeParser{next: now.Add(time.Minute)}

	s := New(store, parser, runner, time.Minute)
	s.Tick(context.Background())

	require.Len(t, runner.invocations, 1)
	require.Contains(t, store.nextRunSet, "job-1")
}

func TestStartAndStopDoesNotHang(t *testing.T) {
	store := &fakeStore{}
	s := New(store, &fakeParser{}, &fakeRunner{}, 10*time.Millisecond)

	s.Start(context.Background())
	time.Sleep(25 * time.Millisecond)
	s.Stop()
}
