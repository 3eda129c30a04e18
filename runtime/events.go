package runtime

import (
	"sync"

	"github.com/justapithecus/autotiny/log"
	"github.com/justapithecus/autotiny/types"
)

// Emitter receives orchestrator events as they happen.
// Emit must not block the batch loop for long.
type Emitter interface {
	Emit(ev types.Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ev types.Event)

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev types.Event) { f(ev) }

// LogEmitter writes each event to a structured logger at the event's level,
// using the event name as the message.
type LogEmitter struct {
	Logger *log.Logger
}

// Emit logs ev.
func (e LogEmitter) Emit(ev types.Event) {
	if e.Logger == nil {
		return
	}
	switch ev.Level {
	case types.LogLevelDebug:
		e.Logger.Debug(string(ev.Name), ev.Fields)
	case types.LogLevelWarn:
		e.Logger.Warn(string(ev.Name), ev.Fields)
	case types.LogLevelError:
		e.Logger.Error(string(ev.Name), ev.Fields)
	default:
		e.Logger.Info(string(ev.Name), ev.Fields)
	}
}

// Recorder keeps every emitted event in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []types.Event
}

// Emit records ev.
func (r *Recorder) Emit(ev types.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in emission order.
func (r *Recorder) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the recorded event names in emission order.
func (r *Recorder) Names() []types.EventName {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.EventName, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Name
	}
	return out
}

// multiEmitter fans events out to several emitters in order.
type multiEmitter []Emitter

func (m multiEmitter) Emit(ev types.Event) {
	for _, e := range m {
		e.Emit(ev)
	}
}

// Tee returns an Emitter that forwards to every non-nil emitter given.
func Tee(emitters ...Emitter) Emitter {
	var m multiEmitter
	for _, e := range emitters {
		if e != nil {
			m = append(m, e)
		}
	}
	return m
}
