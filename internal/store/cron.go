package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hearth/internal/tools/cron"
)

// CreateJob implements tools/cron.Store. next is left to the caller
// (the Scheduler, which owns cron-expression interpretation) via a later
// call to SetNextRun; CreateJob seeds next_run_time to now so a
// freshly-created job is picked up on the scheduler's next tick and
// rescheduled from there.
func (s *Store) CreateJob(ctx context.Context, expression, instruction string) (cron.Job, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	id := uuid.NewString()
	now := s.now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_jobs (job_id, cron_expression, prompt, next_run_time) VALUES (?, ?, ?, ?)`,
		id, expression, instruction, now,
	)
	if err != nil {
		return cron.Job{}, fmt.Errorf("create job: %w", err)
	}
	return cron.Job{ID: id, Expression: expression, Instruction: instruction, NextRun: now}, nil
}

// ListJobs implements tools/cron.Store.
func (s *Store) ListJobs(ctx context.Context) ([]cron.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT job_id, cron_expression, prompt, next_run_time FROM scheduled_jobs ORDER BY next_run_time ASC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []cron.Job
	for rows.Next() {
		var j cron.Job
		if err := rows.Scan(&j.ID, &j.Expression, &j.Instruction, &j.NextRun); err != nil {
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// DeleteJob implements tools/cron.Store.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE job_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete job: %s not found", id)
	}
	return nil
}

// SetNextRun updates a job's next fire time, used by the Scheduler after
// each invocation.
func (s *Store) SetNextRun(ctx context.Context, id string, next time.Time) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE scheduled_jobs SET next_run_time = ? WHERE job_id = ?`, next, id)
	if err != nil {
		return fmt.Errorf("set next run: %w", err)
	}
	return nil
}
