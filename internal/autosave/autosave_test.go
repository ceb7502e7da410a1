package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	saves []string
	err   error
	block chan struct{}
}

func (r *recorder) save(ctx context.Context, noteID string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, noteID)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestCoordinator_SingleEdit(t *testing.T) {
	r := &recorder{}
	c := New(30*time.Millisecond, r.save)
	defer c.Stop()

	c.Touch("n1")
	if c.State("n1") != Pending {
		t.Errorf("expected PENDING after touch, got %v", c.State("n1"))
	}

	waitFor(t, 500*time.Millisecond, func() bool { return r.count() == 1 })
	waitFor(t, 500*time.Millisecond, func() bool { return c.State("n1") == Idle })
}

func TestCoordinator_CoalesceEdits(t *testing.T) {
	r := &recorder{}
	c := New(80*time.Millisecond, r.save)
	defer c.Stop()

	for i := 0; i < 5; i++ {
		c.Touch("n1")
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(300 * time.Millisecond)
	if got := r.count(); got != 1 {
		t.Errorf("expected 1 coalesced save, got %d", got)
	}
}

func TestCoordinator_CancelDropsSave(t *testing.T) {
	r := &recorder{}
	c := New(50*time.Millisecond, r.save)
	defer c.Stop()

	c.Touch("n1")
	c.Cancel("n1")

	time.Sleep(150 * time.Millisecond)
	if got := r.count(); got != 0 {
		t.Errorf("expected no save after cancel, got %d", got)
	}
	if c.State("n1") != Idle {
		t.Errorf("expected IDLE after cancel, got %v", c.State("n1"))
	}
}

func TestCoordinator_Flush(t *testing.T) {
	r := &recorder{}
	c := New(5*time.Second, r.save)
	defer c.Stop()

	c.Touch("n1")
	if c.PendingCount() != 1 {
		t.Errorf("expected 1 pending, got %d", c.PendingCount())
	}

	if err := c.Flush(context.Background(), "n1"); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if r.count() != 1 {
		t.Errorf("flush should save immediately, got %d saves", r.count())
	}
	if c.PendingCount() != 0 {
		t.Errorf("expected 0 pending after flush, got %d", c.PendingCount())
	}

	// Nothing pending: flush is a no-op
	if err := c.Flush(context.Background(), "n1"); err != nil {
		t.Fatalf("second flush failed: %v", err)
	}
	if r.count() != 1 {
		t.Errorf("flush without edits should not save, got %d saves", r.count())
	}
}

func TestCoordinator_FailedSaveStaysDirty(t *testing.T) {
	r := &recorder{err: errors.New("store down")}
	c := New(5*time.Second, r.save)
	defer c.Stop()

	c.Touch("n1")
	if err := c.Flush(context.Background(), "n1"); err == nil {
		t.Fatal("expected flush error")
	}
	if c.State("n1") != Dirty {
		t.Errorf("expected DIRTY after failed save, got %v", c.State("n1"))
	}

	r.mu.Lock()
	r.err = nil
	r.mu.Unlock()

	if err := c.FlushAll(context.Background()); err != nil {
		t.Fatalf("retry flush failed: %v", err)
	}
	if c.State("n1") != Idle {
		t.Errorf("expected IDLE after successful retry, got %v", c.State("n1"))
	}
}

func TestCoordinator_EditDuringSaveIsNotLost(t *testing.T) {
	r := &recorder{block: make(chan struct{})}
	c := New(20*time.Millisecond, r.save)
	defer c.Stop()

	c.Touch("n1")
	waitFor(t, 500*time.Millisecond, func() bool { return c.State("n1") == Saving })

	c.Touch("n1")
	if c.State("n1") != Saving {
		t.Errorf("touch during save should not start a second save, got %v", c.State("n1"))
	}

	close(r.block)
	waitFor(t, time.Second, func() bool { return r.count() == 2 })
}

func TestCoordinator_PerNoteTimers(t *testing.T) {
	r := &recorder{}
	c := New(30*time.Millisecond, r.save)
	defer c.Stop()

	c.Touch("a")
	c.Touch("b")

	waitFor(t, 500*time.Millisecond, func() bool { return r.count() == 2 })

	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	for _, id := range r.saves {
		seen[id] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("expected saves for both notes, got %v", r.saves)
	}
}

func TestCoordinator_StopIgnoresTouch(t *testing.T) {
	r := &recorder{}
	c := New(20*time.Millisecond, r.save)

	c.Touch("n1")
	c.Stop()
	c.Touch("n2")

	time.Sleep(100 * time.Millisecond)
	if r.count() != 0 {
		t.Errorf("expected no saves after stop, got %d", r.count())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{Idle, "IDLE"},
		{Dirty, "DIRTY"},
		{Pending, "PENDING"},
		{Saving, "SAVING"},
		{State(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if tt.state.String() != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, tt.state.String(), tt.expected)
		}
	}
}
