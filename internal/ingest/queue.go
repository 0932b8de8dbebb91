package ingest

import (
	"context"
	"errors"
	"log/slog"
)

// ErrQueueFull is returned on the result channel when the queue has no
// room for another job.
var ErrQueueFull = errors.New("ingest: queue full")

// ErrQueueClosed is delivered to jobs still waiting when the queue's
// run loop exits.
var ErrQueueClosed = errors.New("ingest: queue closed")

type queued struct {
	run  func(ctx context.Context) error
	done chan error
}

// Queue runs ingestion jobs one at a time, in submission order. A
// single consumer goroutine drains the channel, so two documents are
// never processed concurrently.
type Queue struct {
	jobs   chan queued
	logger *slog.Logger
}

func NewQueue(size int, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		jobs:   make(chan queued, size),
		logger: logger,
	}
}

// Submit enqueues a job and returns a channel that receives the job's
// result exactly once. When the queue is full the error is delivered
// immediately and the job never runs.
func (q *Queue) Submit(job func(ctx context.Context) error) <-chan error {
	done := make(chan error, 1)
	select {
	case q.jobs <- queued{run: job, done: done}:
	default:
		done <- ErrQueueFull
	}
	return done
}

// Run consumes jobs until ctx is cancelled. It is the single lane:
// call it from exactly one goroutine.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.drain(ctx.Err())
			return ctx.Err()
		default:
		}
		select {
		case <-ctx.Done():
			q.drain(ctx.Err())
			return ctx.Err()
		case job := <-q.jobs:
			err := job.run(ctx)
			if err != nil {
				q.logger.Error("ingestion job failed", "error", err)
			}
			job.done <- err
		}
	}
}

// drain fails any jobs still queued so their submitters do not block
// forever on the result channel.
func (q *Queue) drain(cause error) {
	for {
		select {
		case job := <-q.jobs:
			job.done <- errors.Join(ErrQueueClosed, cause)
		default:
			return
		}
	}
}
