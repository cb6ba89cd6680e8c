package events

import (
	"sync"

	"curvelaunch/core/types"
)

// Event represents a structured state change emitted by a native module.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (audit store, gateway,
// metrics).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wired into engines so event emission stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans a single emission out to every registered emitter.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter constructs a fan-out emitter. Nil entries are skipped.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	out := &MultiEmitter{}
	for _, e := range emitters {
		if e != nil {
			out.emitters = append(out.emitters, e)
		}
	}
	return out
}

// Emit implements the Emitter interface.
func (m *MultiEmitter) Emit(evt Event) {
	if m == nil {
		return
	}
	for _, e := range m.emitters {
		e.Emit(evt)
	}
}

// SequencedEvent pairs an emitted event payload with the monotonically
// increasing sequence number assigned by the recorder.
type SequencedEvent struct {
	Sequence uint64
	Payload  *types.Event
}

// Recorder retains emitted events in memory and assigns each a monotonic
// sequence number. It backs the gateway's event listing endpoint and the
// engine test assertions.
type Recorder struct {
	mu     sync.RWMutex
	seq    uint64
	events []SequencedEvent
	cap    int
}

// NewRecorder constructs a recorder retaining at most cap events. A
// non-positive cap keeps every event.
func NewRecorder(cap int) *Recorder {
	return &Recorder{cap: cap}
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.events = append(r.events, SequencedEvent{Sequence: r.seq, Payload: payload.Clone()})
	if r.cap > 0 && len(r.events) > r.cap {
		r.events = append([]SequencedEvent{}, r.events[len(r.events)-r.cap:]...)
	}
}

// After returns up to limit events with a sequence strictly greater than the
// supplied cursor, oldest first. A non-positive limit returns everything.
func (r *Recorder) After(cursor uint64, limit int) []SequencedEvent {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SequencedEvent, 0, len(r.events))
	for _, entry := range r.events {
		if entry.Sequence <= cursor {
			continue
		}
		out = append(out, SequencedEvent{Sequence: entry.Sequence, Payload: entry.Payload.Clone()})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Sequence reports the last assigned sequence number.
func (r *Recorder) Sequence() uint64 {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.seq
}
