package worker

import (
	"fmt"
	"time"
)

// Config tunes the background job worker.
type Config struct {
	// Concurrency is how many goroutines poll the jobs table in
	// parallel. Each one dequeues and runs jobs independently.
	Concurrency int

	// PollInterval is the sleep between dequeue attempts when the
	// queue is empty.
	PollInterval time.Duration

	// JobTimeout bounds a single job execution. When exceeded the
	// job's context is canceled and the attempt counts as a failure.
	JobTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for in-flight jobs
	// before giving up on a graceful exit.
	ShutdownTimeout time.Duration

	// StaleJobThreshold is how long a job may sit in 'running' before
	// startup recovery assumes its worker died and re-queues it.
	StaleJobThreshold time.Duration
}

// DefaultConfig returns the worker defaults. Share-card generation is
// the heaviest job we run, so the job timeout is short.
func DefaultConfig() Config {
	return Config{
		Concurrency:       2,
		PollInterval:      5 * time.Second,
		JobTimeout:        2 * time.Minute,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 10 * time.Minute,
	}
}

// Validate rejects configurations that would spin, stall, or flood the
// database.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Concurrency > 100 {
		return fmt.Errorf("concurrency too high (max 100), got %d", c.Concurrency)
	}
	if c.PollInterval < 1*time.Second {
		return fmt.Errorf("poll interval must be at least 1 second, got %v", c.PollInterval)
	}
	if c.JobTimeout < 1*time.Second {
		return fmt.Errorf("job timeout must be at least 1 second, got %v", c.JobTimeout)
	}
	if c.ShutdownTimeout < 1*time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	if c.StaleJobThreshold < 1*time.Minute {
		return fmt.Errorf("stale job threshold must be at least 1 minute, got %v", c.StaleJobThreshold)
	}
	return nil
}
