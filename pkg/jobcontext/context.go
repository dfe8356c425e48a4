// Package jobcontext carries job metadata and the job deadline through a
// context so long-running background work can stop cleanly before it is cut
// off.
package jobcontext

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type KeyContext string

var (
	keyJobID        KeyContext = "job_id"
	keyJobType      KeyContext = "job_type"
	keyJobStartTime KeyContext = "job_start_time"
)

// JobMetadata holds metadata for a job execution
type JobMetadata struct {
	JobID     uuid.UUID
	JobType   string
	StartTime time.Time
	Deadline  time.Time
}

// Begin initializes a job context with a fresh job ID. A positive timeout
// bounds the job; zero leaves the parent's deadline in place.
func Begin(parentCtx context.Context, jobType string, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, timeout)
	} else {
		ctx, cancel = context.WithCancel(parentCtx)
	}

	ctx = context.WithValue(ctx, keyJobID, uuid.New())
	ctx = context.WithValue(ctx, keyJobType, jobType)
	ctx = context.WithValue(ctx, keyJobStartTime, time.Now())

	return ctx, cancel
}

// Run executes jobFunc, turning a panic into an error
func Run(ctx context.Context, jobFunc func(context.Context) error) (err error) {
	if ctx.Err() != nil {
		return fmt.Errorf("context cancelled before job execution: %w", ctx.Err())
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic recovered: %v", p)
		}
	}()

	return jobFunc(ctx)
}

// ShouldStop reports whether new work should not be started: the context is
// done, or less than margin remains before its deadline.
func ShouldStop(ctx context.Context, margin time.Duration) bool {
	if ctx.Err() != nil {
		return true
	}
	remaining, ok := Remaining(ctx)
	return ok && remaining < margin
}

// Remaining returns the time left before the context deadline
func Remaining(ctx context.Context) (time.Duration, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	return time.Until(deadline), true
}

// GetJobID extracts job ID from context
func GetJobID(ctx context.Context) (uuid.UUID, bool) {
	jobID, ok := ctx.Value(keyJobID).(uuid.UUID)
	return jobID, ok
}

// GetJobType extracts job type from context
func GetJobType(ctx context.Context) (string, bool) {
	jobType, ok := ctx.Value(keyJobType).(string)
	return jobType, ok
}

// GetJobStartTime extracts job start time from context
func GetJobStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(keyJobStartTime).(time.Time)
	return startTime, ok
}

// GetJobMetadata extracts all job metadata from context
func GetJobMetadata(ctx context.Context) *JobMetadata {
	jobID, _ := GetJobID(ctx)
	jobType, _ := GetJobType(ctx)
	startTime, _ := GetJobStartTime(ctx)
	deadline, _ := ctx.Deadline()

	return &JobMetadata{
		JobID:     jobID,
		JobType:   jobType,
		StartTime: startTime,
		Deadline:  deadline,
	}
}
