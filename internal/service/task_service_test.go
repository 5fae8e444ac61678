package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"centone-chat/internal/domain"
)

func TestTaskService_AddToggleRemove(t *testing.T) {
	svc := newTestServices(t, nil).tasks
	ctx := context.Background()

	task, err := svc.Add(ctx, testOwner, "  Llamar al banco ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if task.Description != "Llamar al banco" || task.Completed {
		t.Fatalf("unexpected task %+v", task)
	}

	toggled, err := svc.Toggle(ctx, testOwner, task.ID)
	if err != nil || !toggled.Completed {
		t.Fatalf("expected completed after toggle, got %+v %v", toggled, err)
	}
	toggled, _ = svc.Toggle(ctx, testOwner, task.ID)
	if toggled.Completed {
		t.Fatalf("expected toggle back to pending")
	}

	if err := svc.Remove(ctx, testOwner, task.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(ctx, testOwner, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Toggle(ctx, testOwner, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Add(ctx, testOwner, " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTaskService_AcceptCandidates(t *testing.T) {
	svc := newTestServices(t, nil).tasks
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	created, err := svc.AcceptCandidates(ctx, testOwner, []domain.TaskCandidate{
		{Description: "Buy milk", Selected: true},
		{Description: "Skip me", Selected: false},
		{Description: "Call mom", Completed: true, Selected: true},
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 created tasks, got %d", len(created))
	}

	tasks, _ := svc.List(ctx, testOwner)
	if len(tasks) != 2 || tasks[0].Description != "Buy milk" || tasks[1].Description != "Call mom" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	for _, task := range tasks {
		if task.Completed {
			t.Fatalf("accepted task %q must start pending", task.Description)
		}
	}

	// append-only: aceptar de nuevo duplica
	if _, err := svc.AcceptCandidates(ctx, testOwner, []domain.TaskCandidate{{Description: "Buy milk", Selected: true}}); err != nil {
		t.Fatalf("accept again: %v", err)
	}
	tasks, _ = svc.List(ctx, testOwner)
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
}

func TestTaskService_RequiresIdentity(t *testing.T) {
	svc := newTestServices(t, nil).tasks
	if _, err := svc.List(context.Background(), domain.Owner{AppID: "app"}); !errors.Is(err, domain.ErrIdentityUnavailable) {
		t.Fatalf("expected ErrIdentityUnavailable, got %v", err)
	}
	var nilSvc *TaskService
	if _, err := nilSvc.List(context.Background(), testOwner); !errors.Is(err, ErrTaskServiceNotConfigured) {
		t.Fatalf("expected ErrTaskServiceNotConfigured, got %v", err)
	}
}
