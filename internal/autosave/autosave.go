// Package autosave debounces editor changes into store saves, one timer per note.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is the autosave state of a single note
type State int

const (
	// Idle means nothing is waiting to be saved
	Idle State = iota
	// Dirty means edits exist but no timer is armed, e.g. after a failed save
	Dirty
	// Pending means the debounce timer is armed
	Pending
	// Saving means the save call is in flight
	Saving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Dirty:
		return "DIRTY"
	case Pending:
		return "PENDING"
	case Saving:
		return "SAVING"
	default:
		return "UNKNOWN"
	}
}

// SaveFunc persists the current draft of a note
type SaveFunc func(ctx context.Context, noteID string) error

// Coordinator collapses bursts of edits into one save per quiet period
type Coordinator struct {
	delay   time.Duration
	save    SaveFunc
	mu      sync.Mutex
	notes   map[string]*entry
	stopped bool
}

type entry struct {
	state State
	timer *time.Timer
	// gen invalidates timers that were replaced or cancelled but already fired
	gen uint64
	// again records edits that arrived while a save was in flight
	again bool
	done  chan struct{}
}

// New creates a coordinator that calls save after delay of edit silence
func New(delay time.Duration, save SaveFunc) *Coordinator {
	return &Coordinator{
		delay: delay,
		save:  save,
		notes: make(map[string]*entry),
	}
}

// Touch records an edit to noteID and (re)arms its timer. The newest edit wins;
// earlier timers for the same note are discarded.
func (c *Coordinator) Touch(noteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	e, exists := c.notes[noteID]
	if !exists {
		e = &entry{}
		c.notes[noteID] = e
	}

	if e.state == Saving {
		e.again = true
		return
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	c.arm(noteID, e)
}

// arm must be called with c.mu held
func (c *Coordinator) arm(noteID string, e *entry) {
	e.gen++
	gen := e.gen
	e.state = Pending
	e.again = false
	e.timer = time.AfterFunc(c.delay, func() {
		c.fire(noteID, gen)
	})
}

func (c *Coordinator) fire(noteID string, gen uint64) {
	c.mu.Lock()
	e, exists := c.notes[noteID]
	if !exists || e.gen != gen || e.state != Pending {
		c.mu.Unlock()
		return
	}
	c.begin(e)
	c.mu.Unlock()

	c.run(context.Background(), noteID, e)
}

// begin must be called with c.mu held
func (c *Coordinator) begin(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	e.state = Saving
	e.done = make(chan struct{})
}

func (c *Coordinator) run(ctx context.Context, noteID string, e *entry) error {
	err := c.save(ctx, noteID)
	if err != nil {
		slog.Error("autosave failed", "note_id", noteID, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	close(e.done)

	// Cancelled or stopped while saving: the result belongs to nobody
	if current, exists := c.notes[noteID]; !exists || current != e {
		return err
	}

	switch {
	case e.again && !c.stopped:
		c.arm(noteID, e)
	case err != nil:
		e.state = Dirty
	default:
		delete(c.notes, noteID)
	}
	return err
}

// Cancel drops any pending save for noteID without running it.
// A save already in flight completes but its outcome is ignored.
func (c *Coordinator) Cancel(noteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.notes[noteID]; exists {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.gen++
		delete(c.notes, noteID)
	}
}

// Flush saves noteID now if it has unsaved edits. If a save is in flight it
// waits for it, then saves again when newer edits arrived meanwhile.
func (c *Coordinator) Flush(ctx context.Context, noteID string) error {
	for {
		c.mu.Lock()
		e, exists := c.notes[noteID]
		if !exists {
			c.mu.Unlock()
			return nil
		}

		switch e.state {
		case Saving:
			done := e.done
			c.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		case Pending, Dirty:
			c.begin(e)
			c.mu.Unlock()
			return c.run(ctx, noteID, e)
		default:
			c.mu.Unlock()
			return nil
		}
	}
}

// FlushAll flushes every note with unsaved edits
func (c *Coordinator) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]string, 0, len(c.notes))
	for id := range c.notes {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := c.Flush(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// State returns the autosave state of noteID
func (c *Coordinator) State(noteID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.notes[noteID]; exists {
		return e.state
	}
	return Idle
}

// PendingCount returns the number of notes with unsaved edits
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notes)
}

// Stop cancels all timers. Later Touch calls are ignored.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	for _, e := range c.notes {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.gen++
	}
	c.notes = make(map[string]*entry)
}
