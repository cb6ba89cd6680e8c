package types

// Event represents a structured state change produced by a native module. The
// attribute map carries stringified payload fields so downstream consumers can
// persist or serve events without knowing the emitting module's types.
type Event struct {
	Type       string
	Attributes map[string]string
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := &Event{Type: e.Type}
	if e.Attributes != nil {
		clone.Attributes = make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			clone.Attributes[k] = v
		}
	}
	return clone
}
