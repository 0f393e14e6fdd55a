package backlog

import "errors"

var (
	// ErrMissingDependency is returned when a backlog is constructed without a store
	ErrMissingDependency = errors.New("backlog store cannot be nil")

	// ErrInvalidPayload is returned when a payload has no fields
	ErrInvalidPayload = errors.New("payload must have at least one field")

	// ErrInvalidTaskID is returned for ids below 1
	ErrInvalidTaskID = errors.New("task id must be a positive integer")

	// ErrTaskNotFound is returned when no fields are stored for a task id
	ErrTaskNotFound = errors.New("task not found")

	// ErrBlockTimeout is returned by Claim when nothing became available within the wait window.
	// It means "the queue is currently empty", not a failure.
	ErrBlockTimeout = errors.New("no task available within wait timeout")

	// ErrStoreUnavailable wraps every error reported by the backing store
	ErrStoreUnavailable = errors.New("backlog store unavailable")

	// ErrUnworkable is returned by a Handler to mark the task as permanently unworkable
	ErrUnworkable = errors.New("task is unworkable")

	// ErrNilHandler is returned when a worker is created without a handler
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrWorkerAlreadyStarted is returned by Worker.Start on a running worker
	ErrWorkerAlreadyStarted = errors.New("worker already started")

	// ErrWorkerNotStarted is returned by Worker.Stop on a stopped worker
	ErrWorkerNotStarted = errors.New("worker not started")
)

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrStoreUnavailable, err)
}
