package watcher

import (
	"sync"
	"time"
)

// Kind is what happened to a note file
type Kind int

const (
	Changed Kind = iota
	Removed
)

func (k Kind) String() string {
	switch k {
	case Changed:
		return "CHANGED"
	case Removed:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Event reports a change to one stored note
type Event struct {
	NoteID    string
	Kind      Kind
	Timestamp time.Time
}

// Debouncer coalesces bursts of events for the same note into one
type Debouncer struct {
	delay  time.Duration
	events map[string]*pendingEvent
	mu     sync.Mutex
	output chan Event
	stopCh chan struct{}
	once   sync.Once
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// NewDebouncer creates a debouncer that emits after delayMs of quiet per note
func NewDebouncer(delayMs int) *Debouncer {
	return &Debouncer{
		delay:  time.Duration(delayMs) * time.Millisecond,
		events: make(map[string]*pendingEvent),
		output: make(chan Event, 100),
		stopCh: make(chan struct{}),
	}
}

// Events returns the channel of debounced events
func (d *Debouncer) Events() <-chan Event {
	return d.output
}

// Add records an event for noteID and restarts its quiet period. The most
// recent kind wins: an atomic save shows up as a remove followed by a create.
func (d *Debouncer) Add(noteID string, kind Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case <-d.stopCh:
		return
	default:
	}

	event := Event{NoteID: noteID, Kind: kind, Timestamp: time.Now()}

	if pending, exists := d.events[noteID]; exists {
		pending.timer.Stop()
		pending.event = event
		pending.timer = time.AfterFunc(d.delay, func() {
			d.emit(noteID)
		})
		return
	}

	d.events[noteID] = &pendingEvent{
		event: event,
		timer: time.AfterFunc(d.delay, func() {
			d.emit(noteID)
		}),
	}
}

// emit sends an event to the output channel
func (d *Debouncer) emit(noteID string) {
	d.mu.Lock()
	pending, exists := d.events[noteID]
	if exists {
		delete(d.events, noteID)
	}
	d.mu.Unlock()

	if exists {
		select {
		case d.output <- pending.event:
		case <-d.stopCh:
		}
	}
}

// Flush immediately emits all pending events
func (d *Debouncer) Flush() {
	d.mu.Lock()
	ids := make([]string, 0, len(d.events))
	for id, pending := range d.events {
		pending.timer.Stop()
		ids = append(ids, id)
	}
	d.mu.Unlock()

	for _, id := range ids {
		d.emit(id)
	}
}

// Stop drops pending events. The output channel is left open; readers
// should also select on Done.
func (d *Debouncer) Stop() {
	d.once.Do(func() {
		close(d.stopCh)
	})

	d.mu.Lock()
	for _, pending := range d.events {
		pending.timer.Stop()
	}
	d.events = make(map[string]*pendingEvent)
	d.mu.Unlock()
}

// Done is closed once Stop has been called
func (d *Debouncer) Done() <-chan struct{} {
	return d.stopCh
}

// PendingCount returns the number of pending events
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}
