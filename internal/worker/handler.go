package worker

import (
	"context"
	"errors"
)

// JobHandler executes one kind of background job. Handlers are
// registered with the worker keyed by Type.
type JobHandler interface {
	// Type returns the job type identifier this handler processes,
	// matching the job_type column in the jobs table.
	Type() string

	// Handle runs the job. The payload is the raw JSON stored at
	// enqueue time. Return a PermanentError for failures that retrying
	// cannot fix, such as a malformed payload or a reading that no
	// longer exists.
	Handle(ctx context.Context, payload []byte) error
}

// PermanentError marks a failure that should not be retried. The
// worker moves the job straight to 'failed' instead of rescheduling.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to see through the wrapper.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError wraps err so the worker will not retry it.
func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is a
// PermanentError.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}
