package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"replyflow/internal/models"
	"replyflow/internal/repository"

	"github.com/cenkalti/backoff/v5"
)

// StepRunner runs workflow tasks as a sequence of checkpointed steps.
// A step that already completed is replayed from its stored output,
// so a redelivered task resumes where the previous attempt stopped.
type StepRunner struct {
	tasks      repository.TaskRepository
	maxTries   uint
	newBackOff func() backoff.BackOff
}

// StepRunnerOption configures a StepRunner
type StepRunnerOption func(*StepRunner)

// WithStepRetries sets the in-step attempt budget and exponential backoff bounds
func WithStepRetries(maxTries uint, initial, max time.Duration) StepRunnerOption {
	return func(r *StepRunner) {
		r.maxTries = maxTries
		r.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = max
			return b
		}
	}
}

// WithBackOff replaces the backoff policy, e.g. with &backoff.ZeroBackOff{} in tests
func WithBackOff(newBackOff func() backoff.BackOff) StepRunnerOption {
	return func(r *StepRunner) {
		r.newBackOff = newBackOff
	}
}

// NewStepRunner creates a runner that persists step outputs in tasks
func NewStepRunner(tasks repository.TaskRepository, opts ...StepRunnerOption) *StepRunner {
	r := &StepRunner{
		tasks:    tasks,
		maxTries: 3,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Task is one running workflow with its step cursor
type Task struct {
	runner *StepRunner
	record *models.TaskRecord
}

// Begin starts the task id or resumes it
func (r *StepRunner) Begin(ctx context.Context, id, kind string) (*Task, error) {
	record, err := r.tasks.Begin(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	if record.Steps == nil {
		record.Steps = map[string]json.RawMessage{}
	}
	if record.Attempts > 1 && !record.Status.Finished() {
		log.Printf("🔁 Resuming task %s (attempt %d)", id, record.Attempts)
	}
	return &Task{runner: r, record: record}, nil
}

// ID returns the task's idempotency key
func (t *Task) ID() string {
	return t.record.ID
}

// Finished reports whether a previous delivery already completed the task
func (t *Task) Finished() bool {
	return t.record.Status.Finished()
}

// Outcome returns the stored final status and reason of a finished task
func (t *Task) Outcome() (models.TaskStatus, string) {
	reason := ""
	if t.record.Reason != nil {
		reason = *t.record.Reason
	}
	return t.record.Status, reason
}

// Resumed reports whether an earlier delivery already began this task
func (t *Task) Resumed() bool {
	return t.record.Attempts > 1
}

// Done reports whether step already has a stored output
func (t *Task) Done(step string) bool {
	_, ok := t.record.Steps[step]
	return ok
}

// Finish records the task's final status
func (t *Task) Finish(ctx context.Context, status models.TaskStatus, reason string) error {
	if err := t.runner.tasks.Finish(ctx, t.record.ID, status, reason); err != nil {
		return err
	}
	t.record.Status = status
	t.record.Reason = &reason
	return nil
}

// StepOption adjusts a single step
type StepOption func(*stepConfig)

type stepConfig struct {
	maxTries uint
}

// WithMaxTries overrides the attempt budget of one step; 1 disables retries
func WithMaxTries(n uint) StepOption {
	return func(c *stepConfig) {
		c.maxTries = n
	}
}

// RunStep executes fn once per task unless its output is already stored.
// Transient errors are retried with backoff; terminal ones stop immediately.
func RunStep[T any](ctx context.Context, t *Task, name string, fn func(ctx context.Context) (T, error), opts ...StepOption) (T, error) {
	var out T

	if raw, ok := t.record.Steps[name]; ok {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, fmt.Errorf("failed to replay step %s: %w", name, err)
		}
		return out, nil
	}

	cfg := stepConfig{maxTries: t.runner.maxTries}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxTries == 0 {
		cfg.maxTries = 1
	}

	out, err := backoff.Retry(ctx, func() (T, error) {
		v, err := fn(ctx)
		if err != nil && IsTerminal(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(t.runner.newBackOff()),
		backoff.WithMaxTries(cfg.maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Printf("⏳ Task %s step %s failed, retrying in %v: %v", t.record.ID, name, wait, err)
		}),
	)
	if err != nil {
		return out, err
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return out, fmt.Errorf("failed to encode step %s: %w", name, err)
	}
	if err := t.runner.tasks.SaveStep(ctx, t.record.ID, name, raw); err != nil {
		return out, fmt.Errorf("failed to checkpoint step %s: %w", name, err)
	}
	t.record.Steps[name] = raw
	t.record.LastCompletedStep = &name

	return out, nil
}
