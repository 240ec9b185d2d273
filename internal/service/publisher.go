package service

import "context"

// JobPublisher enqueues a job for the worker. *queue.Publisher implements it.
type JobPublisher interface {
	Publish(ctx context.Context, job interface{}) error
}
