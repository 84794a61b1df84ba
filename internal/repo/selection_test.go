package repo

import (
	"context"
	"testing"
	"time"

	"threadshelf/internal/model"
)

func TestRepairSelection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _, _ := newTestRepo(t, []model.Thread{
		{ID: "a", Title: "A", LastUpdatedAt: t0},
		{ID: "b", Title: "B", LastUpdatedAt: t0.Add(2 * time.Hour)},
		{ID: "c", Title: "C", LastUpdatedAt: t0.Add(1 * time.Hour)},
	})

	if got := r.RepairSelection("c"); got != "c" {
		t.Fatalf("live id should be kept, got %q", got)
	}
	if got := r.RepairSelection(""); got != "b" {
		t.Fatalf("empty selection should pick most recent, got %q", got)
	}
	r.DeleteThread(ctx, "b")
	if got := r.RepairSelection("b"); got != "c" {
		t.Fatalf("deleted id should repair to next most recent, got %q", got)
	}
	r.DeleteThread(ctx, "a")
	r.DeleteThread(ctx, "c")
	if got := r.RepairSelection("c"); got != "" {
		t.Fatalf("no threads should give empty selection, got %q", got)
	}
}

func TestSelectionStateMachine(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, st, clk := newTestRepo(t, nil)
	if r.Active() != "thread-1" {
		t.Fatalf("initial selection: %q", r.Active())
	}

	// Explicit pick of a live thread.
	if !r.Pick(ctx, "thread-3") || r.Active() != "thread-3" {
		t.Fatalf("pick thread-3 failed, active=%q", r.Active())
	}
	// Pick of an unknown id is not a transition.
	if r.Pick(ctx, "ghost") || r.Active() != "thread-3" {
		t.Fatalf("unknown pick changed selection to %q", r.Active())
	}

	// Adding alone keeps the selection; SelectAdded moves it.
	clk.Advance(time.Hour)
	th, _ := r.AddThread(ctx, "New")
	if r.Active() != "thread-3" {
		t.Fatalf("AddThread moved selection to %q", r.Active())
	}
	r.SelectAdded(ctx, th)
	if r.Active() != th.ID {
		t.Fatalf("SelectAdded: %q", r.Active())
	}
	if reopened := Open(ctx, st, WithClock(clk)); reopened.Active() != th.ID {
		t.Fatalf("added selection not persisted: %q", reopened.Active())
	}
	r.SelectAdded(ctx, model.Thread{ID: "ghost"})
	if r.Active() != th.ID {
		t.Fatalf("SelectAdded of unknown thread changed selection to %q", r.Active())
	}

	// Deleting an unselected thread leaves the selection alone.
	r.DeleteThread(ctx, "thread-2")
	if r.Active() != th.ID {
		t.Fatalf("unrelated delete moved selection to %q", r.Active())
	}

	// Deleting the selected thread repairs to the most recent survivor.
	r.DeleteThread(ctx, th.ID)
	if r.Active() != "thread-1" {
		t.Fatalf("repair after delete: got %q want thread-1", r.Active())
	}

	// The selection survives a reopen.
	r2 := Open(ctx, st, WithClock(clk))
	if r2.Active() != "thread-1" {
		t.Fatalf("persisted selection: got %q", r2.Active())
	}

	r.DeleteThread(ctx, "thread-1")
	r.DeleteThread(ctx, "thread-3")
	if r.Active() != "" {
		t.Fatalf("expected NoSelection, got %q", r.Active())
	}
}
