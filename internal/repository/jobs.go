package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Job is one row in the background job queue.
type Job struct {
	ID           uuid.UUID
	JobType      string
	Payload      []byte
	Status       string
	Priority     int32
	Attempts     int32
	MaxAttempts  int32
	ScheduledAt  time.Time
	ErrorMessage sql.NullString
	StartedAt    sql.NullTime
	CompletedAt  sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EnqueueJobParams contains the fields for scheduling a job.
type EnqueueJobParams struct {
	JobType     string
	Payload     []byte
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// EnqueueJob inserts a pending job.
func (q *Queries) EnqueueJob(ctx context.Context, params EnqueueJobParams) (Job, error) {
	job := Job{
		JobType:     params.JobType,
		Payload:     params.Payload,
		Status:      "pending",
		Priority:    params.Priority,
		MaxAttempts: params.MaxAttempts,
		ScheduledAt: params.ScheduledAt,
	}
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO jobs (job_type, payload, status, priority, max_attempts, scheduled_at)
		VALUES ($1, $2, 'pending', $3, $4, $5)
		RETURNING id, attempts, created_at, updated_at`,
		params.JobType, params.Payload, params.Priority, params.MaxAttempts, params.ScheduledAt).
		Scan(&job.ID, &job.Attempts, &job.CreatedAt, &job.UpdatedAt)
	return job, err
}

// DequeueJob claims the next runnable job. FOR UPDATE SKIP LOCKED lets
// concurrent workers dequeue without blocking each other; call inside a
// transaction so the row lock holds until UpdateJobStarted commits.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	var job Job
	err := q.db.QueryRowContext(ctx, `
		SELECT id, job_type, payload, status, priority, attempts, max_attempts, scheduled_at, error_message, started_at, completed_at, created_at, updated_at
		FROM jobs
		WHERE status = 'pending' AND scheduled_at <= now()
		ORDER BY priority DESC, scheduled_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`).
		Scan(&job.ID, &job.JobType, &job.Payload, &job.Status, &job.Priority,
			&job.Attempts, &job.MaxAttempts, &job.ScheduledAt, &job.ErrorMessage,
			&job.StartedAt, &job.CompletedAt, &job.CreatedAt, &job.UpdatedAt)
	return job, err
}

// UpdateJobStarted marks a claimed job as running.
func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'running', started_at = now(), updated_at = now()
		WHERE id = $1`, id)
	return err
}

// UpdateJobCompleted marks a job as successfully finished.
func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'completed', completed_at = now(), updated_at = now()
		WHERE id = $1`, id)
	return err
}

// UpdateJobFailedParams contains the fields for recording a job failure.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
	Permanent    bool
}

// UpdateJobFailed records a failure. Permanent failures and jobs out of
// attempts are marked failed; everything else is rescheduled with
// exponential backoff.
func (q *Queries) UpdateJobFailed(ctx context.Context, params UpdateJobFailedParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET
			attempts = attempts + 1,
			error_message = $2,
			status = CASE
				WHEN $3 OR attempts + 1 >= max_attempts THEN 'failed'
				ELSE 'pending'
			END,
			scheduled_at = CASE
				WHEN $3 OR attempts + 1 >= max_attempts THEN scheduled_at
				ELSE now() + (interval '1 second' * power(2, attempts))
			END,
			updated_at = now()
		WHERE id = $1`,
		params.ID, params.ErrorMessage, params.Permanent)
	return err
}

// RecoverStaleJobs resets running jobs older than the threshold back to
// pending. Returns how many were recovered.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'pending', started_at = NULL, updated_at = now()
		WHERE status = 'running' AND started_at < now() - ($1 * interval '1 second')`,
		thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
