package models

import (
	"encoding/json"
	"time"
)

// TaskStatus is the lifecycle of a durable workflow task
type TaskStatus string

const (
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskSkipped   TaskStatus = "skipped"
	TaskFailed    TaskStatus = "failed"
)

// Finished reports whether the task reached a final state
func (s TaskStatus) Finished() bool {
	return s == TaskCompleted || s == TaskSkipped || s == TaskFailed
}

// TaskRecord is the persisted step cursor of one workflow task
type TaskRecord struct {
	ID                string                     `json:"id" db:"id"`
	Kind              string                     `json:"kind" db:"kind"`
	Status            TaskStatus                 `json:"status" db:"status"`
	Reason            *string                    `json:"reason,omitempty" db:"reason"`
	LastCompletedStep *string                    `json:"last_completed_step,omitempty" db:"last_completed_step"`
	Attempts          int                        `json:"attempts" db:"attempts"`
	Steps             map[string]json.RawMessage `json:"-"`
	CreatedAt         time.Time                  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at" db:"updated_at"`
}
