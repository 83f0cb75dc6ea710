package labels

import (
	"errors"
	"sync"
)

// Operation identifies what an event attempted
type Operation string

const (
	OpCreate     Operation = "ADD"
	OpUpdate     Operation = "UPD"
	OpDelete     Operation = "DEL"
	OpListLabels Operation = "LBL"
)

// Outcome is the result of an attempted operation
type Outcome string

const (
	OutcomeSuccess Outcome = "SUC"
	OutcomeError   Outcome = "ERR"
	OutcomeDryRun  Outcome = "DRY"
)

// Event records one attempted remote mutation, or one failed label listing
type Event struct {
	Operation Operation `json:"operation"`
	Outcome   Outcome   `json:"outcome"`
	Repo      string    `json:"repo"`
	Name      string    `json:"name,omitempty"`
	Color     string    `json:"color,omitempty"`
	Err       error     `json:"-"`
}

// Detail returns the error detail of a failed event, empty otherwise
func (e Event) Detail() string {
	if e.Err == nil {
		return ""
	}
	var coded interface{ CodeMessage() string }
	if errors.As(e.Err, &coded) {
		return coded.CodeMessage()
	}
	return e.Err.Error()
}

// EventSink receives every event produced during a run
type EventSink interface {
	Record(event Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(Event)

// Record calls f(event)
func (f EventSinkFunc) Record(event Event) {
	f(event)
}

// discardSink drops every event
type discardSink struct{}

func (discardSink) Record(Event) {}

// EventLog is an in-memory sink, safe for concurrent use
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// Record appends the event
func (l *EventLog) Record(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

// Events returns a copy of the recorded events
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// RunSummary aggregates one batch invocation
type RunSummary struct {
	Repos  int `json:"repos"`
	Errors int `json:"errors"`
}

// ExitStatus is the process status derived from a run
type ExitStatus int

const (
	ExitSuccess ExitStatus = 0
	ExitError   ExitStatus = 10
)
