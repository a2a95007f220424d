package planner

import (
	"context"
	"database/sql"
	"testing"
	"time"
)

func TestMemoryAuditStore(t *testing.T) {
	store := NewMemoryAuditStore()
	ctx := context.Background()
	for i, status := range []string{"succeeded", "failed", "skipped"} {
		event := AuditEvent{
			PlanID:    "plan-1",
			RunID:     "run-1",
			Step:      i + 1,
			Position:  i + 1,
			Tool:      "t-echo",
			Status:    status,
			StartedAt: time.Now().UTC(),
		}
		if err := store.Record(ctx, event); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	events, err := store.List(ctx, AuditFilter{PlanID: "plan-1", Status: "failed"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Step != 2 {
		t.Fatalf("unexpected events: %+v", events)
	}
	limited, _ := store.List(ctx, AuditFilter{Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestSQLiteAuditStore(t *testing.T) {
	db, err := sql.Open("sqlite", "file:plan_audit_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteAuditStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	ctx := context.Background()
	event := AuditEvent{
		PlanID:     "plan-1",
		RunID:      "run-1",
		Step:       1,
		Position:   1,
		Tool:       "space_calculator-calculate_gravity",
		Status:     "succeeded",
		Output:     map[string]any{"force": 12.5},
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}
	if err := store.Record(ctx, event); err != nil {
		t.Fatalf("record: %v", err)
	}
	failed := event
	failed.Step, failed.Position, failed.Status, failed.Output, failed.Error = 2, 2, "failed", nil, "Error: boom"
	if err := store.Record(ctx, failed); err != nil {
		t.Fatalf("record: %v", err)
	}

	events, err := store.List(ctx, AuditFilter{RunID: "run-1", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	out, ok := events[0].Output.(map[string]any)
	if !ok || out["force"] != 12.5 {
		t.Fatalf("unexpected output: %#v", events[0].Output)
	}
	if events[1].Error != "Error: boom" || events[1].Output != nil {
		t.Fatalf("unexpected failed event: %+v", events[1])
	}

	byStatus, err := store.List(ctx, AuditFilter{Status: "failed"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].Step != 2 {
		t.Fatalf("unexpected status filter result: %+v", byStatus)
	}
}

func TestExecutorWritesSQLiteAudit(t *testing.T) {
	store, err := OpenSQLiteAuditStore("file:plan_audit_exec?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	exec := NewExecutor(newFake(), WithAuditStore(store))
	res, err := exec.Execute(context.Background(), &Plan{Steps: []Step{
		{Step: 1, Tool: "t-echo", Input: "hello"},
	}})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	events, err := store.List(context.Background(), AuditFilter{RunID: res.RunID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Output != "hello" {
		t.Fatalf("unexpected audit events: %+v", events)
	}
}
