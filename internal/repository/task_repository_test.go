package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"replyflow/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestTaskBegin_LoadsCompletedSteps(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO workflow_tasks").
		WithArgs("reply:abc", "reply").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "kind", "status", "reason", "last_completed_step", "attempts", "created_at", "updated_at",
		}).AddRow("reply:abc", "reply", "running", nil, "generate", 2, now, now))
	mock.ExpectQuery("SELECT step, output FROM workflow_steps").
		WithArgs("reply:abc").
		WillReturnRows(sqlmock.NewRows([]string{"step", "output"}).
			AddRow("generate", []byte(`"hello"`)))

	task, err := repo.Begin(context.Background(), "reply:abc", "reply")
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if task.Status != models.TaskRunning || task.Attempts != 2 {
		t.Errorf("Unexpected task: %+v", task)
	}
	var reply string
	if err := json.Unmarshal(task.Steps["generate"], &reply); err != nil || reply != "hello" {
		t.Errorf("Expected stored output hello, got %q (%v)", reply, err)
	}
	assertExpectations(t, mock)
}

func TestTaskSaveStep(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("WITH saved AS").
		WithArgs("reply:abc", "send", []byte(`{"message_id":"m1"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveStep(context.Background(), "reply:abc", "send", json.RawMessage(`{"message_id":"m1"}`))
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	assertExpectations(t, mock)
}

func TestTaskFinish(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("UPDATE workflow_tasks SET status").
		WithArgs("reply:abc", models.TaskSkipped, "paused").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Finish(context.Background(), "reply:abc", models.TaskSkipped, "paused"); err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	assertExpectations(t, mock)
}
